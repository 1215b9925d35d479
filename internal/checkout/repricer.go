package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/healthymarket/healthy-market/internal/catalog"
	"github.com/healthymarket/healthy-market/internal/domain"
	"golang.org/x/sync/errgroup"
)

const repriceConcurrency = 8

type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

// reprice replaces every client-supplied line with catalog data, keeping only
// the product id and quantity.
func reprice(ctx context.Context, products ProductLookup, items []domain.CartLineItem) ([]domain.CartLineItem, error) {
	out := make([]domain.CartLineItem, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(repriceConcurrency)
	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			product, err := products.GetProduct(gctx, item.ProductID)
			if errors.Is(err, catalog.ErrProductNotFound) {
				return domain.NewValidationError(fmt.Sprintf("items[%d].productId", i), "unknown product "+item.ProductID)
			}
			if err != nil {
				return fmt.Errorf("lookup product %s: %w", item.ProductID, err)
			}
			out[i] = domain.NewLineItem(*product, item.Quantity)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
