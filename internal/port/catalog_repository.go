package port

import (
	"context"
	"iter"

	"github.com/rl1809/brick-inventory/internal/core/domain"
)

// CatalogRepository is the read-only view of the catalog store. Lookups of
// unknown ids return a nil record and a nil error.
type CatalogRepository interface {
	GetItem(ctx context.Context, itemID string) (*domain.Item, error)

	GetManifest(ctx context.Context, assemblyID string) (*domain.Manifest, error)

	GetSummary(ctx context.Context, assemblyID string) (*domain.Summary, error)

	// GetSimilarNeighbors returns up to k neighbors ordered by descending score.
	// Edges are directed and may contain duplicates or self references.
	GetSimilarNeighbors(ctx context.Context, assemblyID string, k int) ([]domain.Neighbor, error)

	// ListManifests streams every manifest. The stream is a per-read snapshot:
	// concurrent catalog writes may be partially visible.
	ListManifests(ctx context.Context) iter.Seq2[domain.Manifest, error]

	ListColors(ctx context.Context) ([]domain.Color, error)

	// CatalogStats aggregates counts and price extremes over the whole catalog.
	CatalogStats(ctx context.Context) (*domain.CatalogStats, error)
}
