package report

import (
	"fmt"
	"strings"
	"time"
)

// NotAvailable replaces every blank value in an exported row.
const NotAvailable = "N/A"

// Header is the fixed column order of the order-details export.
var Header = []string{
	"name",
	"email",
	"financial_status",
	"paid_at",
	"fulfillment_status",
	"currency",
	"price_subtotal",
	"price_total",
	"billing_street",
	"billing_address1",
	"shipping_zip",
	"shipping_country",
	"refunded_amount",
	"vendor",
	"tags",
	"risk_level",
}

// Row is one flattened order. PaidAt holds the summed successful sale
// amount; the column name is kept for compatibility with existing exports.
type Row struct {
	Name              string
	Email             string
	FinancialStatus   string
	PaidAt            string
	FulfillmentStatus string
	Currency          string
	PriceSubtotal     string
	PriceTotal        string
	BillingStreet     string
	BillingAddress1   string
	ShippingZip       string
	ShippingCountry   string
	RefundedAmount    string
	Vendor            string
	Tags              string
	RiskLevel         string
}

// fields must list the columns in Header order.
func (r *Row) fields() []*string {
	return []*string{
		&r.Name,
		&r.Email,
		&r.FinancialStatus,
		&r.PaidAt,
		&r.FulfillmentStatus,
		&r.Currency,
		&r.PriceSubtotal,
		&r.PriceTotal,
		&r.BillingStreet,
		&r.BillingAddress1,
		&r.ShippingZip,
		&r.ShippingCountry,
		&r.RefundedAmount,
		&r.Vendor,
		&r.Tags,
		&r.RiskLevel,
	}
}

// Values returns the row's cells in Header order.
func (r Row) Values() []string {
	fields := r.fields()
	values := make([]string, len(fields))
	for i, f := range fields {
		values[i] = *f
	}
	return values
}

func (r *Row) normalize() {
	for _, f := range r.fields() {
		if strings.TrimSpace(*f) == "" {
			*f = NotAvailable
		}
	}
}

// Filename is the attachment name for an export generated on day.
func Filename(day time.Time) string {
	return fmt.Sprintf("order-details-%s.csv", day.Format("2006-01-02"))
}
