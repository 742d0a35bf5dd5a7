package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/brick-inventory/internal/core/domain"
	"github.com/rl1809/brick-inventory/internal/metrics"
)

// Materialize flattens a user's holdings: directly owned items plus one level
// of assembly expansion. Owned assemblies without a manifest contribute
// nothing and manifest entries without an item or color are skipped; both are
// reported as warnings.
func (s *InventoryService) Materialize(ctx context.Context, userID string) (*domain.MaterializedInventory, error) {
	defer metrics.ObserveSince("materialize", time.Now())

	h, err := s.loadHoldings(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.materialize(ctx, h)
}

func (s *InventoryService) materialize(ctx context.Context, h *domain.UserHoldings) (*domain.MaterializedInventory, error) {
	result := &domain.MaterializedInventory{
		UserID:    h.UserID,
		Inventory: domain.NewInventory(),
	}

	for _, it := range h.Items {
		if it.Quantity <= 0 {
			continue
		}
		result.Inventory.Add(it.Identity, it.Quantity)
		result.DirectUnits += it.Quantity
	}

	manifests, err := s.fetchManifests(ctx, h.OwnedAssemblyIDs())
	if err != nil {
		return nil, err
	}

	for _, a := range h.Assemblies {
		if a.Quantity <= 0 {
			continue
		}
		m, ok := manifests[a.AssemblyID]
		if !ok {
			result.Warnings = append(result.Warnings, s.degrade(h.UserID, domain.Warning{
				Kind:       domain.WarningMissingManifest,
				AssemblyID: a.AssemblyID,
			}))
			continue
		}
		invalid := false
		for _, e := range m.Entries {
			if e.Quantity <= 0 {
				continue
			}
			if e.Identity.Validate() != nil {
				invalid = true
				continue
			}
			n := a.Quantity * e.Quantity
			result.Inventory.Add(e.Identity, n)
			result.AssemblyUnits += n
		}
		if invalid {
			result.Warnings = append(result.Warnings, s.degrade(h.UserID, domain.Warning{
				Kind:       domain.WarningInvalidEntry,
				AssemblyID: a.AssemblyID,
			}))
		}
	}

	s.logger.Debug("materialized inventory",
		zap.String("user_id", h.UserID),
		zap.Int("identities", result.Inventory.Len()),
		zap.Int("direct_units", result.DirectUnits),
		zap.Int("assembly_units", result.AssemblyUnits),
	)
	return result, nil
}
