package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/example/marketplace/internal/ratings/store"
	"golang.org/x/sync/errgroup"
)

// ProviderStats aggregates a provider's ratings across both listing
// categories. Averages are rounded to one decimal; the overall average is the
// count-weighted combination of the two category averages, computed before
// rounding so rounding never compounds.
type ProviderStats struct {
	ProductRatingAvg   float64 `json:"average_product_rating"`
	ProductRatingCount int64   `json:"product_rating_count"`
	ServiceRatingAvg   float64 `json:"average_service_rating"`
	ServiceRatingCount int64   `json:"service_rating_count"`
	OverallRatingAvg   float64 `json:"overall_average_rating"`
	TotalRatingCount   int64   `json:"total_rating_count"`
}

// ProviderStats computes rating aggregates for the given provider. A provider
// with no ratings gets all-zero stats; this is not an error.
func (e *Engine) ProviderStats(ctx context.Context, providerID string) (ProviderStats, error) {
	var product, service store.CategoryStats

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		product, err = e.ratings.ProductStats(gctx, providerID)
		return err
	})
	g.Go(func() error {
		var err error
		service, err = e.ratings.ServiceStats(gctx, providerID)
		return err
	})
	if err := g.Wait(); err != nil {
		return ProviderStats{}, fmt.Errorf("provider stats: %w", err)
	}

	total := product.Count + service.Count
	var overall float64
	if total > 0 {
		overall = (product.Average*float64(product.Count) + service.Average*float64(service.Count)) / float64(total)
	}
	if math.IsNaN(overall) || math.IsInf(overall, 0) {
		overall = 0
	}

	return ProviderStats{
		ProductRatingAvg:   round1(product.Average),
		ProductRatingCount: product.Count,
		ServiceRatingAvg:   round1(service.Average),
		ServiceRatingCount: service.Count,
		OverallRatingAvg:   round1(overall),
		TotalRatingCount:   total,
	}, nil
}

// round1 rounds to one decimal place, halves away from zero.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
