package port

import (
	"context"
	"time"

	"github.com/rl1809/brick-inventory/internal/core/domain"
)

type CacheRepository interface {
	// SetIdempotency sets a key for idempotency check, returns false if already exists
	SetIdempotency(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// ClearIdempotency releases a key so the same action can succeed again
	ClearIdempotency(ctx context.Context, key string) error

	// IncrementViews adjusts the view counter of an assembly; negative deltas roll back
	IncrementViews(ctx context.Context, assemblyID string, delta int64) error

	// TopViewed returns the n most viewed assemblies, most viewed first
	TopViewed(ctx context.Context, n int) ([]domain.ViewCount, error)
}
