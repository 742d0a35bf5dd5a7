package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/brick-inventory/internal/core/domain"
	"github.com/rl1809/brick-inventory/internal/metrics"
	"github.com/rl1809/brick-inventory/internal/port"
)

var (
	ErrDuplicateView = errors.New("duplicate view")
	ErrInvalidLimit  = fmt.Errorf("%w: limit must be positive", domain.ErrInvalidInput)
)

const persistTimeout = 5 * time.Second

// ViewService counts assembly views for popularity ranking. Counters live in
// the cache; view events are persisted asynchronously by ProcessViews workers.
type ViewService struct {
	cache     port.CacheRepository
	catalog   port.CatalogRepository
	logger    *zap.Logger
	dedupeTTL time.Duration
	viewQueue chan domain.ViewEvent
}

func NewViewService(cache port.CacheRepository, catalog port.CatalogRepository, logger *zap.Logger, queueSize int, dedupeTTL time.Duration) *ViewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewService{
		cache:     cache,
		catalog:   catalog,
		logger:    logger,
		dedupeTTL: dedupeTTL,
		viewQueue: make(chan domain.ViewEvent, queueSize),
	}
}

// RecordView counts at most one view per user and assembly within the dedupe
// window.
func (s *ViewService) RecordView(ctx context.Context, userID, assemblyID string) error {
	if userID == "" || assemblyID == "" {
		return fmt.Errorf("%w: view requires user and assembly", domain.ErrInvalidInput)
	}

	idempotencyKey := viewKey(userID, assemblyID)

	ok, err := s.cache.SetIdempotency(ctx, idempotencyKey, s.dedupeTTL)
	if err != nil {
		return fmt.Errorf("idempotency check failed: %w", err)
	}
	if !ok {
		metrics.Views.WithLabelValues(metrics.ViewDuplicate).Inc()
		return ErrDuplicateView
	}

	if err := s.cache.IncrementViews(ctx, assemblyID, 1); err != nil {
		s.release(ctx, 0, idempotencyKey)
		return fmt.Errorf("view increment failed: %w", err)
	}
	metrics.Views.WithLabelValues(metrics.ViewCounted).Inc()

	event := domain.ViewEvent{
		ID:         uuid.NewString(),
		UserID:     userID,
		AssemblyID: assemblyID,
		ViewedAt:   time.Now().UTC(),
	}

	select {
	case s.viewQueue <- event:
		return nil
	case <-ctx.Done():
		s.rollback(0, event)
		return ctx.Err()
	}
}

func (s *ViewService) GetViewQueue() <-chan domain.ViewEvent {
	return s.viewQueue
}

// Close stops accepting views; workers drain what is queued and return.
func (s *ViewService) Close() {
	close(s.viewQueue)
}

// ProcessViews persists queued events until the queue is closed. A failed
// write rolls the cached counter back so both stores agree.
func (s *ViewService) ProcessViews(workerID int, repo port.ViewRepository) {
	for event := range s.viewQueue {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)

		if err := repo.SaveView(ctx, event); err != nil {
			s.logger.Error("failed to save view",
				zap.Int("worker", workerID),
				zap.String("view_id", event.ID),
				zap.Error(err),
			)
			s.rollbackWith(ctx, workerID, event)
		} else {
			metrics.Views.WithLabelValues(metrics.ViewPersisted).Inc()
		}

		cancel()
	}
}

func (s *ViewService) rollback(workerID int, event domain.ViewEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	s.rollbackWith(ctx, workerID, event)
}

// rollbackWith undoes a counted view: the counter goes back down and the dedupe
// key is released so the viewer can be counted again.
func (s *ViewService) rollbackWith(ctx context.Context, workerID int, event domain.ViewEvent) {
	s.release(ctx, workerID, viewKey(event.UserID, event.AssemblyID))

	if err := s.cache.IncrementViews(ctx, event.AssemblyID, -1); err != nil {
		s.logger.Error("CRITICAL view rollback failed",
			zap.Int("worker", workerID),
			zap.String("view_id", event.ID),
			zap.Error(err),
		)
		return
	}
	metrics.Views.WithLabelValues(metrics.ViewRolledBack).Inc()
	s.logger.Warn("rolled back view",
		zap.Int("worker", workerID),
		zap.String("view_id", event.ID),
		zap.String("assembly_id", event.AssemblyID),
	)
}

func (s *ViewService) release(ctx context.Context, workerID int, key string) {
	if err := s.cache.ClearIdempotency(ctx, key); err != nil {
		s.logger.Warn("failed to release view dedupe key",
			zap.Int("worker", workerID),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

func viewKey(userID, assemblyID string) string {
	return fmt.Sprintf("view:%s:%s", userID, assemblyID)
}

// Popular returns the n most viewed assemblies that still have a catalog
// summary.
func (s *ViewService) Popular(ctx context.Context, n int) ([]domain.PopularAssembly, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLimit, n)
	}
	defer metrics.ObserveSince("popular", time.Now())

	counts, err := s.cache.TopViewed(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("top viewed: %w", err)
	}

	out := make([]domain.PopularAssembly, 0, len(counts))
	for _, c := range counts {
		sum, err := s.catalog.GetSummary(ctx, c.AssemblyID)
		if err != nil {
			return nil, fmt.Errorf("get summary %s: %w", c.AssemblyID, err)
		}
		if sum == nil {
			metrics.DegradedData.WithLabelValues(string(domain.WarningMissingSummary)).Inc()
			s.logger.Warn("popular assembly has no summary", zap.String("assembly_id", c.AssemblyID))
			continue
		}
		out = append(out, domain.PopularAssembly{Summary: *sum, Views: c.Views})
	}
	return out, nil
}
