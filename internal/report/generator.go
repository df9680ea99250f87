package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shopcsv/internal/config"
	"shopcsv/internal/logger"
	"shopcsv/internal/services/shopify"
)

const (
	ordersPageSize = 250
	ordersStatus   = "any"
)

// APIFactory opens an API handle for one authenticated session.
type APIFactory func(session shopify.Session) API

// ShopifyAPIFactory returns a factory producing rate-limited Shopify clients.
func ShopifyAPIFactory(cfg *config.Config, logger *logger.Logger) APIFactory {
	return func(session shopify.Session) API {
		return shopify.NewClient(session, logger,
			shopify.WithRateLimit(cfg.RateLimit, cfg.RateLimit*2),
			shopify.WithRequestTimeout(cfg.RequestTimeout),
		)
	}
}

// Result is a finished export.
type Result struct {
	CSV         []byte
	Rows        int
	GeneratedAt time.Time
}

// Generator runs the full export for one shop: list orders, enrich, encode.
type Generator struct {
	newAPI      APIFactory
	logger      *logger.Logger
	concurrency int
	maxPages    int
	skipFailed  bool
}

func NewGenerator(cfg *config.Config, logger *logger.Logger, newAPI APIFactory) *Generator {
	maxPages := cfg.ReportMaxPages
	if maxPages < 1 {
		maxPages = 1
	}
	return &Generator{
		newAPI:      newAPI,
		logger:      logger,
		concurrency: cfg.ReportConcurrency,
		maxPages:    maxPages,
		skipFailed:  cfg.ReportSkipFailedLookups,
	}
}

// Generate builds the CSV export. The session must be valid before any API call is made.
func (g *Generator) Generate(ctx context.Context, session shopify.Session) (*Result, error) {
	if err := session.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	started := time.Now()
	api := g.newAPI(session)

	orders, err := g.fetchOrders(ctx, api)
	if err != nil {
		return nil, classify(err)
	}

	assembler := NewAssembler(NewEnricher(api, g.logger, g.skipFailed), g.concurrency)
	rows, err := assembler.Assemble(ctx, orders)
	if err != nil {
		return nil, classify(err)
	}

	csvData, err := EncodeBytes(rows)
	if err != nil {
		return nil, err
	}

	g.logger.Info("Generated order report for %s: %d rows in %s", session.Domain, len(rows), time.Since(started))
	return &Result{
		CSV:         csvData,
		Rows:        len(rows),
		GeneratedAt: started,
	}, nil
}

// fetchOrders reads up to maxPages pages of orders in the order Shopify returns them.
func (g *Generator) fetchOrders(ctx context.Context, api API) ([]shopify.Order, error) {
	var orders []shopify.Order
	params := shopify.ListOrdersParams{Status: ordersStatus, Limit: ordersPageSize}

	for page := 0; page < g.maxPages; page++ {
		resp, err := api.ListOrders(ctx, params)
		if err != nil {
			return nil, &RemoteLookupError{Op: "list orders", Err: err}
		}
		orders = append(orders, resp.Orders...)

		if resp.NextPage == "" {
			break
		}
		params.PageInfo = resp.NextPage
	}

	g.logger.Debug("Fetched %d orders", len(orders))
	return orders, nil
}

// classify marks token rejections as authentication failures.
func classify(err error) error {
	if errors.Is(err, shopify.ErrUnauthorized) {
		return fmt.Errorf("%w: %w", ErrAuthentication, err)
	}
	return err
}
