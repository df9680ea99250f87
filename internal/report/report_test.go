package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"shopcsv/internal/config"
	"shopcsv/internal/logger"
	"shopcsv/internal/services/shopify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const expectedHeader = "name,email,financial_status,paid_at,fulfillment_status,currency,price_subtotal,price_total," +
	"billing_street,billing_address1,shipping_zip,shipping_country,refunded_amount,vendor,tags,risk_level"

func TestHeader(t *testing.T) {
	assert.Equal(t, expectedHeader, strings.Join(Header, ","))
	assert.Len(t, Row{}.Values(), len(Header))
}

func TestAssemble_PreservesInputOrder(t *testing.T) {
	orders := make([]shopify.Order, 25)
	for i := range orders {
		orders[i] = shopify.Order{ID: int64(i + 1), Name: fmt.Sprintf("#%d", 1000+i)}
	}
	api := newFakeAPI(orders...)

	rows, err := NewAssembler(NewEnricher(api, logger.New("error"), false), 8).Assemble(context.Background(), orders)
	require.NoError(t, err)
	require.Len(t, rows, len(orders))

	for i, row := range rows {
		assert.Equal(t, orders[i].Name, row.Name)
	}
}

func TestAssemble_Empty(t *testing.T) {
	rows, err := NewAssembler(NewEnricher(newFakeAPI(), logger.New("error"), false), 4).Assemble(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestAssemble_FailsWholeBatch(t *testing.T) {
	orders := []shopify.Order{{ID: 1}, {ID: 2}, {ID: 3}}
	api := newFakeAPI(orders...)
	api.failOn["risks"] = errors.New("risk service down")

	rows, err := NewAssembler(NewEnricher(api, logger.New("error"), false), 2).Assemble(context.Background(), orders)
	assert.Nil(t, rows)

	var lookupErr *RemoteLookupError
	assert.True(t, errors.As(err, &lookupErr))
}

func TestEncode_HeaderOnly(t *testing.T) {
	data, err := EncodeBytes(nil)
	require.NoError(t, err)
	assert.Equal(t, expectedHeader+"\n", string(data))
}

func TestEncode_RoundTrip(t *testing.T) {
	rows := []Row{
		{
			Name:      "#1001",
			Email:     "a@example.com",
			Vendor:    "Acme, Globex",
			Tags:      `say "hi"`,
			RiskLevel: "line one\nline two",
		},
		{Name: "#1002", PaidAt: "12.5"},
	}
	for i := range rows {
		rows[i].normalize()
	}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, rows))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(rows)+1)

	assert.Equal(t, Header, records[0])
	for i, row := range rows {
		assert.Equal(t, row.Values(), records[i+1])
	}
	assert.Equal(t, "Acme, Globex", records[1][13])
	assert.Equal(t, NotAvailable, records[2][1])
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestEncode_WriterError(t *testing.T) {
	err := Encode(failingWriter{}, []Row{{Name: "#1"}})

	var encErr *EncodingError
	require.True(t, errors.As(err, &encErr))
	assert.Contains(t, err.Error(), "disk full")
}

func testConfig() *config.Config {
	return &config.Config{
		ReportConcurrency: 4,
		ReportMaxPages:    1,
	}
}

func factoryFor(api API) APIFactory {
	return func(shopify.Session) API { return api }
}

func TestGenerate_EndToEnd(t *testing.T) {
	orders := []shopify.Order{
		{
			ID:             1,
			Name:           "#1001",
			Email:          "jane@example.com",
			Currency:       "USD",
			BillingAddress: &shopify.Address{Address1: "123 Main St"},
			LineItems: []shopify.LineItem{
				{ID: 1, ProductID: productID(10)},
				{ID: 2, ProductID: productID(20)},
			},
		},
		{ID: 2, Name: "#1002"},
	}
	api := newFakeAPI(orders...)
	api.transactions[1] = []shopify.Transaction{tx(1, "sale", "success", "100.00")}
	api.products[10] = shopify.Product{ID: 10, Vendor: "Acme"}
	api.products[20] = shopify.Product{ID: 20, Vendor: "Globex"}

	gen := NewGenerator(testConfig(), logger.New("error"), factoryFor(api))
	result, err := gen.Generate(context.Background(), shopify.NewSession("acme.myshopify.com", "tok", "2024-01"))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Rows)

	records, err := csv.NewReader(bytes.NewReader(result.CSV)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{
		"#1001", "jane@example.com", "N/A", "100", "N/A", "USD", "N/A", "N/A",
		"123 Main St", "123 Main St", "N/A", "N/A", "N/A", "Acme, Globex", "N/A", "N/A",
	}, records[1])
	assert.Equal(t, "#1002", records[2][0])
}

func TestGenerate_EmptyShop(t *testing.T) {
	gen := NewGenerator(testConfig(), logger.New("error"), factoryFor(newFakeAPI()))

	result, err := gen.Generate(context.Background(), shopify.NewSession("acme.myshopify.com", "tok", "2024-01"))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Rows)
	assert.Equal(t, expectedHeader+"\n", string(result.CSV))
}

func TestGenerate_FollowsPagesUpToLimit(t *testing.T) {
	api := newFakeAPI()
	api.pages = [][]shopify.Order{
		{{ID: 1, Name: "#1"}},
		{{ID: 2, Name: "#2"}},
		{{ID: 3, Name: "#3"}},
	}
	cfg := testConfig()
	cfg.ReportMaxPages = 2

	result, err := NewGenerator(cfg, logger.New("error"), factoryFor(api)).
		Generate(context.Background(), shopify.NewSession("acme.myshopify.com", "tok", "2024-01"))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Rows)
	assert.Equal(t, 2, api.callCount("orders"))
}

func TestGenerate_RequiresSession(t *testing.T) {
	api := newFakeAPI()
	gen := NewGenerator(testConfig(), logger.New("error"), factoryFor(api))

	_, err := gen.Generate(context.Background(), shopify.NewSession("acme.myshopify.com", "", "2024-01"))
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.Equal(t, 0, api.callCount("orders"))
}

func TestGenerate_RejectedTokenIsAuthenticationError(t *testing.T) {
	api := newFakeAPI()
	api.failOn["orders"] = fmt.Errorf("orders.json: %w", shopify.ErrUnauthorized)

	_, err := NewGenerator(testConfig(), logger.New("error"), factoryFor(api)).
		Generate(context.Background(), shopify.NewSession("acme.myshopify.com", "tok", "2024-01"))
	assert.ErrorIs(t, err, ErrAuthentication)
	assert.ErrorIs(t, err, shopify.ErrUnauthorized)
}

func TestGenerate_LookupFailureFailsJob(t *testing.T) {
	api := newFakeAPI(shopify.Order{ID: 1})
	api.failOn["transactions"] = errors.New("timeout")

	_, err := NewGenerator(testConfig(), logger.New("error"), factoryFor(api)).
		Generate(context.Background(), shopify.NewSession("acme.myshopify.com", "tok", "2024-01"))

	var lookupErr *RemoteLookupError
	require.True(t, errors.As(err, &lookupErr))
	assert.NotErrorIs(t, err, ErrAuthentication)
}

func TestFilename(t *testing.T) {
	day := time.Date(2024, time.March, 5, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, "order-details-2024-03-05.csv", Filename(day))
}

// slowAPI holds every transaction lookup open briefly and tracks how many
// run at once.
type slowAPI struct {
	*fakeAPI
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (s *slowAPI) GetOrderTransactions(ctx context.Context, orderID int64) ([]shopify.Transaction, error) {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	return s.fakeAPI.GetOrderTransactions(ctx, orderID)
}

func TestAssemble_BoundsConcurrency(t *testing.T) {
	orders := make([]shopify.Order, 20)
	for i := range orders {
		orders[i] = shopify.Order{ID: int64(i + 1)}
	}
	api := &slowAPI{fakeAPI: newFakeAPI(orders...)}

	rows, err := NewAssembler(NewEnricher(api, logger.New("error"), false), 3).Assemble(context.Background(), orders)
	require.NoError(t, err)
	require.Len(t, rows, len(orders))

	assert.LessOrEqual(t, api.peak.Load(), int32(3))
	assert.Greater(t, api.peak.Load(), int32(1))
}
