package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rl1809/brick-inventory/internal/core/domain"
	"github.com/rl1809/brick-inventory/internal/metrics"
)

type Completion struct {
	UserID     string
	AssemblyID string
	Percentage float64
	Warnings   []domain.Warning
}

// ScoreCompletion reports how much of an assembly the user could build from
// everything they effectively own.
func (s *InventoryService) ScoreCompletion(ctx context.Context, userID, assemblyID string) (*Completion, error) {
	defer metrics.ObserveSince("score_completion", time.Now())

	if assemblyID == "" {
		return nil, fmt.Errorf("%w: empty assembly id", domain.ErrInvalidInput)
	}

	h, err := s.loadHoldings(ctx, userID)
	if err != nil {
		return nil, err
	}

	m, err := s.catalog.GetManifest(ctx, assemblyID)
	if err != nil {
		return nil, fmt.Errorf("get manifest %s: %w", assemblyID, err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrAssemblyNotFound, assemblyID)
	}

	inv, err := s.materialize(ctx, h)
	if err != nil {
		return nil, err
	}

	c := &Completion{
		UserID:     userID,
		AssemblyID: assemblyID,
		Percentage: domain.CompletionPercentage(inv.Inventory, *m),
		Warnings:   inv.Warnings,
	}
	if m.TotalPieces <= 0 {
		c.Warnings = append(c.Warnings, s.degrade(userID, domain.Warning{
			Kind:       domain.WarningEmptyManifest,
			AssemblyID: assemblyID,
		}))
	}
	return c, nil
}
