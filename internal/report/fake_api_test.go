package report

import (
	"context"
	"fmt"
	"sync"

	"shopcsv/internal/services/shopify"

	"github.com/shopspring/decimal"
)

// fakeAPI serves canned Shopify data from memory.
type fakeAPI struct {
	mu           sync.Mutex
	pages        [][]shopify.Order
	transactions map[int64][]shopify.Transaction
	products     map[int64]shopify.Product
	risks        map[int64][]shopify.OrderRisk
	failOn       map[string]error
	calls        map[string]int
}

func newFakeAPI(orders ...shopify.Order) *fakeAPI {
	return &fakeAPI{
		pages:        [][]shopify.Order{orders},
		transactions: map[int64][]shopify.Transaction{},
		products:     map[int64]shopify.Product{},
		risks:        map[int64][]shopify.OrderRisk{},
		failOn:       map[string]error{},
		calls:        map[string]int{},
	}
}

func (f *fakeAPI) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.failOn[op]
}

func (f *fakeAPI) ListOrders(ctx context.Context, params shopify.ListOrdersParams) (*shopify.OrdersResponse, error) {
	if err := f.record("orders"); err != nil {
		return nil, err
	}
	page := 0
	if params.PageInfo != "" {
		fmt.Sscanf(params.PageInfo, "page-%d", &page)
	}
	resp := &shopify.OrdersResponse{}
	if page < len(f.pages) {
		resp.Orders = f.pages[page]
	}
	if page+1 < len(f.pages) {
		resp.NextPage = fmt.Sprintf("page-%d", page+1)
	}
	return resp, nil
}

func (f *fakeAPI) GetOrderTransactions(ctx context.Context, orderID int64) ([]shopify.Transaction, error) {
	if err := f.record("transactions"); err != nil {
		return nil, err
	}
	return f.transactions[orderID], nil
}

func (f *fakeAPI) GetProduct(ctx context.Context, productID int64) (*shopify.Product, error) {
	if err := f.record("products"); err != nil {
		return nil, err
	}
	p, ok := f.products[productID]
	if !ok {
		return nil, shopify.ErrNotFound
	}
	return &p, nil
}

func (f *fakeAPI) GetOrderRisks(ctx context.Context, orderID int64) ([]shopify.OrderRisk, error) {
	if err := f.record("risks"); err != nil {
		return nil, err
	}
	return f.risks[orderID], nil
}

func (f *fakeAPI) callCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func tx(orderID int64, kind, status, amount string) shopify.Transaction {
	return shopify.Transaction{
		OrderID: orderID,
		Kind:    kind,
		Status:  status,
		Amount:  decimal.RequireFromString(amount),
	}
}

func productID(id int64) *int64 {
	return &id
}

func strPtr(s string) *string {
	return &s
}
