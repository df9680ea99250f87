package shopify

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order represents a Shopify order as returned by orders.json
type Order struct {
	ID                int64      `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	FinancialStatus   string     `json:"financial_status"`
	FulfillmentStatus *string    `json:"fulfillment_status"`
	Currency          string     `json:"currency"`
	SubtotalPrice     string     `json:"subtotal_price"`
	TotalPrice        string     `json:"total_price"`
	Tags              string     `json:"tags"`
	BillingAddress    *Address   `json:"billing_address"`
	ShippingAddress   *Address   `json:"shipping_address"`
	LineItems         []LineItem `json:"line_items"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Address is the billing or shipping address attached to an order
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Address1  string `json:"address1"`
	Address2  string `json:"address2"`
	City      string `json:"city"`
	Province  string `json:"province"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

// LineItem represents one line of an order. ProductID is nil for custom items.
type LineItem struct {
	ID        int64  `json:"id"`
	ProductID *int64 `json:"product_id"`
	VariantID *int64 `json:"variant_id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
	Vendor    string `json:"vendor"`
}

// Transaction kinds and statuses used by the report
const (
	TransactionKindSale      = "sale"
	TransactionKindRefund    = "refund"
	TransactionStatusSuccess = "success"
)

// Transaction represents a payment transaction on an order
type Transaction struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	Kind      string          `json:"kind"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Gateway   string          `json:"gateway"`
	CreatedAt time.Time       `json:"created_at"`
}

// Product holds the product fields the report requests.
type Product struct {
	ID     int64  `json:"id"`
	Vendor string `json:"vendor"`
}

// Risk recommendations, least to most severe
const (
	RiskAccept      = "accept"
	RiskInvestigate = "investigate"
	RiskCancel      = "cancel"
)

// OrderRisk represents a fraud analysis result for an order
type OrderRisk struct {
	ID             int64  `json:"id"`
	OrderID        int64  `json:"order_id"`
	Recommendation string `json:"recommendation"`
	Score          string `json:"score"`
	Source         string `json:"source"`
	Message        string `json:"message"`
	Display        bool   `json:"display"`
}

// OrdersResponse is one page of orders plus the cursor for the next one
type OrdersResponse struct {
	Orders   []Order `json:"orders"`
	NextPage string  `json:"-"`
}

// ListOrdersParams are the query parameters sent to orders.json
type ListOrdersParams struct {
	Status   string
	Limit    int
	PageInfo string
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
}
