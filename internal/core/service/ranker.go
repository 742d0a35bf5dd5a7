package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/brick-inventory/internal/core/domain"
	"github.com/rl1809/brick-inventory/internal/metrics"
)

// RankCandidates suggests assemblies to build next.
//
// Shortlist mode walks the similarity graph out of every owned assembly and is
// bounded by the top count. Cheapest mode scores the whole catalog and prices
// the best incomplete assemblies; it costs O(assemblies x manifest size) per
// call and reads the catalog without a transaction, so a scan racing catalog
// writes may blend old and new manifests.
func (s *InventoryService) RankCandidates(ctx context.Context, userID string, mode domain.RankMode) (*domain.Ranking, error) {
	switch mode.Kind {
	case domain.ModeShortlist:
		if mode.TopCount <= 0 {
			return nil, fmt.Errorf("%w: got %d", ErrInvalidTopCount, mode.TopCount)
		}
	case domain.ModeCheapest:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRankMode, string(mode.Kind))
	}

	defer metrics.ObserveSince("rank_"+string(mode.Kind), time.Now())

	h, err := s.loadHoldings(ctx, userID)
	if err != nil {
		return nil, err
	}
	inv, err := s.materialize(ctx, h)
	if err != nil {
		return nil, err
	}

	ranking := &domain.Ranking{
		UserID:     userID,
		Mode:       mode,
		Candidates: []domain.Candidate{},
		Warnings:   inv.Warnings,
	}

	if mode.Kind == domain.ModeShortlist {
		err = s.shortlist(ctx, h, inv, mode.TopCount, ranking)
	} else {
		err = s.cheapestIncomplete(ctx, inv, ranking)
	}
	if err != nil {
		return nil, err
	}
	return ranking, nil
}

func (s *InventoryService) shortlist(ctx context.Context, h *domain.UserHoldings, inv *domain.MaterializedInventory, topCount int, ranking *domain.Ranking) error {
	owned := h.OwnedAssemblyIDs()
	if len(owned) == 0 {
		return nil
	}

	lists := make([][]domain.Neighbor, len(owned))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.fetchConcurrency)
	for i, id := range owned {
		g.Go(func() error {
			ns, err := s.catalog.GetSimilarNeighbors(gCtx, id, topCount)
			if err != nil {
				return fmt.Errorf("get neighbors of %s: %w", id, err)
			}
			lists[i] = ns
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var merged []domain.Neighbor
	for i, src := range owned {
		for _, n := range lists[i] {
			if n.AssemblyID == "" || n.AssemblyID == src {
				continue
			}
			merged = append(merged, n)
		}
	}
	picked := domain.MergeNeighbors(merged, topCount)

	ids := make([]string, len(picked))
	for i, n := range picked {
		ids[i] = n.AssemblyID
	}
	manifests, err := s.fetchManifests(ctx, ids)
	if err != nil {
		return err
	}

	for _, n := range picked {
		c := domain.Candidate{AssemblyID: n.AssemblyID, Similarity: n.Score}
		if m, ok := manifests[n.AssemblyID]; ok {
			c.Percentage = domain.CompletionPercentage(inv.Inventory, *m)
		} else {
			ranking.Warnings = append(ranking.Warnings, s.degrade(h.UserID, domain.Warning{
				Kind:       domain.WarningMissingManifest,
				AssemblyID: n.AssemblyID,
			}))
		}
		ranking.Candidates = append(ranking.Candidates, c)
	}

	s.logger.Debug("ranked shortlist",
		zap.String("user_id", h.UserID),
		zap.Int("owned_assemblies", len(owned)),
		zap.Int("neighbors", len(merged)),
		zap.Int("candidates", len(ranking.Candidates)),
	)
	return nil
}

func (s *InventoryService) cheapestIncomplete(ctx context.Context, inv *domain.MaterializedInventory, ranking *domain.Ranking) error {
	var (
		candidates []domain.Candidate
		scanned    int
	)
	for m, err := range s.catalog.ListManifests(ctx) {
		if err != nil {
			return fmt.Errorf("list manifests: %w", err)
		}
		scanned++
		// a missing declared total scores 0 and stays a candidate
		if m.TotalPieces <= 0 {
			ranking.Warnings = append(ranking.Warnings, s.degrade(inv.UserID, domain.Warning{
				Kind:       domain.WarningEmptyManifest,
				AssemblyID: m.AssemblyID,
			}))
		}
		pct := domain.CompletionPercentage(inv.Inventory, m)
		if pct >= 100 {
			continue
		}
		candidates = append(candidates, domain.Candidate{AssemblyID: m.AssemblyID, Percentage: pct})
	}
	metrics.ManifestsScanned.Add(float64(scanned))

	domain.SortByCompletion(candidates)
	if len(candidates) > s.fullScanLimit {
		candidates = candidates[:s.fullScanLimit]
	}
	ranking.Candidates = append(ranking.Candidates, candidates...)

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.AssemblyID
	}
	summaries, err := s.fetchSummaries(ctx, ids)
	if err != nil {
		return err
	}

	for i, sum := range summaries {
		if sum == nil {
			ranking.Warnings = append(ranking.Warnings, s.degrade(inv.UserID, domain.Warning{
				Kind:       domain.WarningMissingSummary,
				AssemblyID: ids[i],
			}))
			continue
		}
		if !sum.LowestPrice.Valid {
			continue
		}
		// strict comparison keeps the more complete candidate on equal prices
		if ranking.Cheapest == nil || sum.LowestPrice.Decimal.LessThan(ranking.Cheapest.Price) {
			ranking.Cheapest = &domain.PricedCandidate{
				Candidate: candidates[i],
				Summary:   *sum,
				Price:     sum.LowestPrice.Decimal,
			}
		}
	}

	s.logger.Debug("ranked full scan",
		zap.String("user_id", inv.UserID),
		zap.Int("scanned", scanned),
		zap.Int("candidates", len(candidates)),
		zap.Bool("priced", ranking.Cheapest != nil),
	)
	return nil
}
