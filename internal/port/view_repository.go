package port

import (
	"context"

	"github.com/rl1809/brick-inventory/internal/core/domain"
)

type ViewRepository interface {
	// SaveView persists a counted assembly view
	SaveView(ctx context.Context, event domain.ViewEvent) error
}
