package report

import (
	"context"

	"shopcsv/internal/services/shopify"

	"golang.org/x/sync/errgroup"
)

// Assembler enriches a batch of orders. Rows come back in input order.
type Assembler struct {
	enricher    *Enricher
	concurrency int
}

func NewAssembler(enricher *Enricher, concurrency int) *Assembler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Assembler{
		enricher:    enricher,
		concurrency: concurrency,
	}
}

// Assemble enriches every order. The first failure cancels the rest and is returned.
func (a *Assembler) Assemble(ctx context.Context, orders []shopify.Order) ([]Row, error) {
	rows := make([]Row, len(orders))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(a.concurrency)

	for i := range orders {
		i := i
		group.Go(func() error {
			row, err := a.enricher.Enrich(groupCtx, orders[i])
			if err != nil {
				return err
			}
			// each goroutine owns its own slot
			rows[i] = row
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}
