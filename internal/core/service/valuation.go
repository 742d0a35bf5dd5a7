package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/brick-inventory/internal/core/domain"
	"github.com/rl1809/brick-inventory/internal/metrics"
)

// ValueInventory prices the user's directly owned items with one offer per
// identity chosen by policy. Items without offers are skipped.
func (s *InventoryService) ValueInventory(ctx context.Context, userID string, policy domain.OfferPolicy) (*domain.Valuation, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	defer metrics.ObserveSince("value_inventory", time.Now())

	h, err := s.loadHoldings(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(h.Items))
	ids := make([]string, 0, len(h.Items))
	for _, it := range h.Items {
		if it.Quantity <= 0 {
			continue
		}
		if _, ok := seen[it.Identity.ItemID]; ok {
			continue
		}
		seen[it.Identity.ItemID] = struct{}{}
		ids = append(ids, it.Identity.ItemID)
	}

	items, err := s.fetchItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	v := domain.ValueItems(h.Items, items, policy)
	v.UserID = userID

	s.logger.Debug("valued inventory",
		zap.String("user_id", userID),
		zap.String("policy", string(policy)),
		zap.String("total", v.Total.String()),
		zap.Int("priced", v.PricedItems),
		zap.Int("unpriced", v.UnpricedItems),
	)
	return &v, nil
}

func (s *InventoryService) TotalInventoryValue(ctx context.Context, userID string, policy domain.OfferPolicy) (decimal.Decimal, error) {
	v, err := s.ValueInventory(ctx, userID, policy)
	if err != nil {
		return decimal.Zero, err
	}
	return v.Total, nil
}

// MostExpensiveOwnedItem returns nil when the user owns nothing priced.
func (s *InventoryService) MostExpensiveOwnedItem(ctx context.Context, userID string, policy domain.OfferPolicy) (*domain.ItemValue, error) {
	v, err := s.ValueInventory(ctx, userID, policy)
	if err != nil {
		return nil, err
	}
	return v.MostExpensive, nil
}
