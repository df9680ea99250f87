package report

import (
	"context"
	"errors"
	"strings"

	"shopcsv/internal/logger"
	"shopcsv/internal/services/shopify"

	"github.com/shopspring/decimal"
)

// API is the part of the Shopify client the report reads from.
type API interface {
	ListOrders(ctx context.Context, params shopify.ListOrdersParams) (*shopify.OrdersResponse, error)
	GetOrderTransactions(ctx context.Context, orderID int64) ([]shopify.Transaction, error)
	GetProduct(ctx context.Context, productID int64) (*shopify.Product, error)
	GetOrderRisks(ctx context.Context, orderID int64) ([]shopify.OrderRisk, error)
}

// Address attributes by name. The column mapping below reads from this
// table instead of reaching into the struct by reflection.
var addressFields = map[string]func(*shopify.Address) string{
	"address1": func(a *shopify.Address) string { return a.Address1 },
	"address2": func(a *shopify.Address) string { return a.Address2 },
	"city":     func(a *shopify.Address) string { return a.City },
	"province": func(a *shopify.Address) string { return a.Province },
	"zip":      func(a *shopify.Address) string { return a.Zip },
	"country":  func(a *shopify.Address) string { return a.Country },
}

// Both billing columns read address1; existing exports depend on it.
const (
	billingStreetField   = "address1"
	billingAddress1Field = "address1"
	shippingZipField     = "zip"
	shippingCountryField = "country"
)

const vendorSeparator = ", "

var riskSeverity = map[string]int{
	shopify.RiskAccept:      1,
	shopify.RiskInvestigate: 2,
	shopify.RiskCancel:      3,
}

// Enricher turns one order into a report row, pulling transactions,
// product vendors and risks from the API.
type Enricher struct {
	api        API
	logger     *logger.Logger
	skipFailed bool
}

// NewEnricher builds an Enricher. With skipFailed set, a failed lookup only
// blanks the affected columns instead of failing the whole report.
func NewEnricher(api API, logger *logger.Logger, skipFailed bool) *Enricher {
	return &Enricher{
		api:        api,
		logger:     logger,
		skipFailed: skipFailed,
	}
}

func (e *Enricher) Enrich(ctx context.Context, order shopify.Order) (Row, error) {
	row := Row{
		Name:            order.Name,
		Email:           order.Email,
		FinancialStatus: order.FinancialStatus,
		Currency:        order.Currency,
		PriceSubtotal:   order.SubtotalPrice,
		PriceTotal:      order.TotalPrice,
		BillingStreet:   addressValue(order.BillingAddress, billingStreetField),
		BillingAddress1: addressValue(order.BillingAddress, billingAddress1Field),
		ShippingZip:     addressValue(order.ShippingAddress, shippingZipField),
		ShippingCountry: addressValue(order.ShippingAddress, shippingCountryField),
		Tags:            order.Tags,
	}
	if order.FulfillmentStatus != nil {
		row.FulfillmentStatus = *order.FulfillmentStatus
	}

	paid, refunded, err := e.transactionTotals(ctx, order.ID)
	if err = e.check(ctx, "fetch transactions", order.ID, err); err != nil {
		return Row{}, err
	}
	row.PaidAt = formatAmount(paid)
	row.RefundedAmount = formatAmount(refunded)

	vendors, err := e.vendors(ctx, order.LineItems)
	if err = e.check(ctx, "fetch products", order.ID, err); err != nil {
		return Row{}, err
	}
	row.Vendor = strings.Join(vendors, vendorSeparator)

	risk, err := e.riskLevel(ctx, order.ID)
	if err = e.check(ctx, "fetch risks", order.ID, err); err != nil {
		return Row{}, err
	}
	row.RiskLevel = risk

	row.normalize()
	return row, nil
}

// check decides whether a lookup error fails the report. Auth failures,
// timeouts and cancellation are always fatal.
func (e *Enricher) check(ctx context.Context, op string, orderID int64, err error) error {
	if err == nil {
		return nil
	}
	lookupErr := &RemoteLookupError{Op: op, OrderID: orderID, Err: err}
	if !e.skipFailed || ctx.Err() != nil ||
		errors.Is(err, shopify.ErrUnauthorized) || errors.Is(err, context.DeadlineExceeded) {
		return lookupErr
	}
	e.logger.Warn("Skipping failed lookup: %v", lookupErr)
	return nil
}

// transactionTotals sums successful sale and refund amounts.
func (e *Enricher) transactionTotals(ctx context.Context, orderID int64) (decimal.Decimal, decimal.Decimal, error) {
	paid, refunded := decimal.Zero, decimal.Zero

	transactions, err := e.api.GetOrderTransactions(ctx, orderID)
	if err != nil {
		return paid, refunded, err
	}

	for _, tx := range transactions {
		if tx.Status != shopify.TransactionStatusSuccess {
			continue
		}
		switch tx.Kind {
		case shopify.TransactionKindSale:
			paid = paid.Add(tx.Amount)
		case shopify.TransactionKindRefund:
			refunded = refunded.Add(tx.Amount)
		}
	}
	return paid, refunded, nil
}

// vendors resolves the vendor of every line item in order. Duplicates are kept.
func (e *Enricher) vendors(ctx context.Context, items []shopify.LineItem) ([]string, error) {
	vendors := make([]string, 0, len(items))
	for _, item := range items {
		// custom line items have no product behind them
		if item.ProductID == nil {
			continue
		}
		product, err := e.api.GetProduct(ctx, *item.ProductID)
		if err != nil {
			return nil, err
		}
		if product.Vendor != "" {
			vendors = append(vendors, product.Vendor)
		}
	}
	return vendors, nil
}

// riskLevel reports the most severe recommendation among the order's risks.
func (e *Enricher) riskLevel(ctx context.Context, orderID int64) (string, error) {
	risks, err := e.api.GetOrderRisks(ctx, orderID)
	if err != nil {
		return "", err
	}

	level, severity := "", -1
	for _, risk := range risks {
		if risk.Recommendation == "" {
			continue
		}
		if s := riskSeverity[risk.Recommendation]; s > severity {
			level, severity = risk.Recommendation, s
		}
	}
	return level, nil
}

func addressValue(address *shopify.Address, field string) string {
	if address == nil {
		return NotAvailable
	}
	get, ok := addressFields[field]
	if !ok {
		return NotAvailable
	}
	return get(address)
}

// formatAmount renders a sum, leaving zero blank so it exports as N/A.
func formatAmount(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}
