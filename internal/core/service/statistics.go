package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/brick-inventory/internal/core/domain"
	"github.com/rl1809/brick-inventory/internal/metrics"
)

// Statistics aggregates catalog and ownership figures. A store reporting
// nothing yields zero values rather than an error.
func (s *InventoryService) Statistics(ctx context.Context) (*domain.Statistics, error) {
	defer metrics.ObserveSince("statistics", time.Now())

	var (
		catalog  *domain.CatalogStats
		holdings *domain.HoldingsStats
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		if catalog, err = s.catalog.CatalogStats(gCtx); err != nil {
			return fmt.Errorf("catalog stats: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if holdings, err = s.holdings.HoldingsStats(gCtx); err != nil {
			return fmt.Errorf("holdings stats: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("statistics failed", zap.Error(err))
		return nil, err
	}

	out := &domain.Statistics{}
	if catalog != nil {
		out.Catalog = *catalog
	}
	if holdings != nil {
		out.Holdings = *holdings
	}
	out.Catalog.AveragePieces = math.Round(out.Catalog.AveragePieces*100) / 100
	if out.Catalog.OffersByColor == nil {
		out.Catalog.OffersByColor = map[string]int{}
	}
	return out, nil
}
