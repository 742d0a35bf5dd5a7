package port

import (
	"context"

	"github.com/rl1809/brick-inventory/internal/core/domain"
)

type HoldingsRepository interface {
	// GetHoldings returns nil, nil for an unknown user
	GetHoldings(ctx context.Context, userID string) (*domain.UserHoldings, error)

	// HoldingsStats aggregates ownership counts over every user
	HoldingsStats(ctx context.Context) (*domain.HoldingsStats, error)
}
