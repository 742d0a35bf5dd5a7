package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/brick-inventory/internal/core/domain"
	"github.com/rl1809/brick-inventory/internal/metrics"
	"github.com/rl1809/brick-inventory/internal/port"
)

var (
	ErrUserNotFound     = fmt.Errorf("user %w", domain.ErrNotFound)
	ErrAssemblyNotFound = fmt.Errorf("assembly %w", domain.ErrNotFound)
	ErrInvalidTopCount  = fmt.Errorf("%w: top count must be positive", domain.ErrInvalidInput)
	ErrUnknownRankMode  = fmt.Errorf("%w: unknown rank mode", domain.ErrInvalidInput)
	errEmptyUserID      = errors.New("empty user id")
)

const (
	defaultFetchConcurrency = 8
	defaultFullScanLimit    = 10
)

type Options struct {
	// FetchConcurrency bounds parallel catalog lookups within one request.
	FetchConcurrency int
	// FullScanLimit is how many incomplete assemblies the cheapest mode prices.
	FullScanLimit int
}

// InventoryService answers ownership questions against point-in-time reads of
// the catalog and holdings stores. It keeps no state between calls.
type InventoryService struct {
	catalog          port.CatalogRepository
	holdings         port.HoldingsRepository
	logger           *zap.Logger
	fetchConcurrency int
	fullScanLimit    int
}

func NewInventoryService(catalog port.CatalogRepository, holdings port.HoldingsRepository, logger *zap.Logger, opts Options) *InventoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.FetchConcurrency <= 0 {
		opts.FetchConcurrency = defaultFetchConcurrency
	}
	if opts.FullScanLimit <= 0 {
		opts.FullScanLimit = defaultFullScanLimit
	}
	return &InventoryService{
		catalog:          catalog,
		holdings:         holdings,
		logger:           logger,
		fetchConcurrency: opts.FetchConcurrency,
		fullScanLimit:    opts.FullScanLimit,
	}
}

func (s *InventoryService) loadHoldings(ctx context.Context, userID string) (*domain.UserHoldings, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, errEmptyUserID)
	}

	h, err := s.holdings.GetHoldings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get holdings: %w", err)
	}
	if h == nil {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	if err := h.Validate(); err != nil {
		return nil, fmt.Errorf("holdings of %s: %w", userID, err)
	}
	return h, nil
}

// fetchManifests loads manifests in parallel. Unknown ids are absent from the
// returned map.
func (s *InventoryService) fetchManifests(ctx context.Context, ids []string) (map[string]*domain.Manifest, error) {
	found := make([]*domain.Manifest, len(ids))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.fetchConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			m, err := s.catalog.GetManifest(gCtx, id)
			if err != nil {
				return fmt.Errorf("get manifest %s: %w", id, err)
			}
			found[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*domain.Manifest, len(ids))
	for i, m := range found {
		if m != nil {
			out[ids[i]] = m
		}
	}
	return out, nil
}

func (s *InventoryService) fetchItems(ctx context.Context, ids []string) (map[string]*domain.Item, error) {
	found := make([]*domain.Item, len(ids))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.fetchConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			it, err := s.catalog.GetItem(gCtx, id)
			if err != nil {
				return fmt.Errorf("get item %s: %w", id, err)
			}
			found[i] = it
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*domain.Item, len(ids))
	for i, it := range found {
		if it != nil {
			out[ids[i]] = it
		}
	}
	return out, nil
}

func (s *InventoryService) fetchSummaries(ctx context.Context, ids []string) ([]*domain.Summary, error) {
	found := make([]*domain.Summary, len(ids))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.fetchConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			sum, err := s.catalog.GetSummary(gCtx, id)
			if err != nil {
				return fmt.Errorf("get summary %s: %w", id, err)
			}
			found[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return found, nil
}

func (s *InventoryService) degrade(userID string, w domain.Warning) domain.Warning {
	metrics.DegradedData.WithLabelValues(string(w.Kind)).Inc()
	s.logger.Warn("catalog data out of sync",
		zap.String("kind", string(w.Kind)),
		zap.String("user_id", userID),
		zap.String("assembly_id", w.AssemblyID),
	)
	return w
}
