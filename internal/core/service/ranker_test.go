package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/brick-inventory/internal/core/domain"
)

func candidateIDs(cs []domain.Candidate) []string {
	ids := make([]string, len(cs))
	for i, c := range cs {
		ids[i] = c.AssemblyID
	}
	return ids
}

func TestRankCandidates_ShortlistNoAssemblies(t *testing.T) {
	svc, _, _ := newScenario()

	r, err := svc.RankCandidates(context.Background(), "bob", domain.ShortlistMode(5))
	require.NoError(t, err)
	assert.NotNil(t, r.Candidates)
	assert.Empty(t, r.Candidates)
	assert.Nil(t, r.Cheapest)
}

func TestRankCandidates_ShortlistMergesAndDedupes(t *testing.T) {
	svc, catalog, holdings := newScenario()
	catalog.addAssembly("S2", 5, "", entry(redA, 5))
	catalog.addAssembly("N1", 2, "", entry(redA, 2))
	catalog.addAssembly("N2", 10, "", entry(blueB, 10))
	catalog.addAssembly("N3", 4, "", entry(redA, 1), entry(blueB, 3))
	holdings.users["alice"].Assemblies = append(holdings.users["alice"].Assemblies,
		domain.OwnedAssembly{AssemblyID: "S2", Quantity: 1})

	catalog.neighbors["S1"] = []domain.Neighbor{
		{AssemblyID: "N1", Score: 0.9},
		{AssemblyID: "S1", Score: 1.0},
		{AssemblyID: "N2", Score: 0.5},
	}
	catalog.neighbors["S2"] = []domain.Neighbor{
		{AssemblyID: "N2", Score: 0.8},
		{AssemblyID: "N3", Score: 0.4},
		{AssemblyID: "", Score: 0.99},
	}

	r, err := svc.RankCandidates(context.Background(), "alice", domain.ShortlistMode(3))
	require.NoError(t, err)

	assert.Equal(t, []string{"N1", "N2", "N3"}, candidateIDs(r.Candidates))
	assert.Equal(t, 0.8, r.Candidates[1].Similarity, "highest score wins for duplicates")
	assert.Equal(t, 100.0, r.Candidates[0].Percentage)
	assert.Equal(t, 50.0, r.Candidates[1].Percentage)
	assert.Empty(t, r.Warnings)
}

func TestRankCandidates_ShortlistTruncates(t *testing.T) {
	svc, catalog, _ := newScenario()
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("N%d", i)
		catalog.addAssembly(id, 1, "", entry(redA, 1))
		catalog.neighbors["S1"] = append(catalog.neighbors["S1"], domain.Neighbor{AssemblyID: id, Score: float64(i)})
	}

	r, err := svc.RankCandidates(context.Background(), "alice", domain.ShortlistMode(2))
	require.NoError(t, err)
	assert.Equal(t, []string{"N7", "N6"}, candidateIDs(r.Candidates))
}

func TestRankCandidates_ShortlistMissingManifest(t *testing.T) {
	svc, catalog, _ := newScenario()
	catalog.neighbors["S1"] = []domain.Neighbor{{AssemblyID: "ghost", Score: 0.7}}

	r, err := svc.RankCandidates(context.Background(), "alice", domain.ShortlistMode(4))
	require.NoError(t, err)

	require.Len(t, r.Candidates, 1)
	assert.Equal(t, 0.0, r.Candidates[0].Percentage)
	assert.Equal(t, []domain.Warning{{Kind: domain.WarningMissingManifest, AssemblyID: "ghost"}}, r.Warnings)
}

func TestRankCandidates_InvalidMode(t *testing.T) {
	svc, _, _ := newScenario()
	ctx := context.Background()

	_, err := svc.RankCandidates(ctx, "alice", domain.ShortlistMode(0))
	assert.ErrorIs(t, err, ErrInvalidTopCount)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.RankCandidates(ctx, "alice", domain.RankMode{Kind: "random"})
	assert.ErrorIs(t, err, ErrUnknownRankMode)

	_, err = svc.RankCandidates(ctx, "nobody", domain.CheapestMode())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

// cheapestCatalog holds assemblies at every completion level for a user that
// owns only {(itemA, red): 4}.
func cheapestCatalog() (*InventoryService, *mockCatalog) {
	catalog := newMockCatalog()
	catalog.addAssembly("full", 4, "1.00", entry(redA, 4))
	catalog.addAssembly("half", 8, "40.00", entry(redA, 4), entry(blueB, 4))
	catalog.addAssembly("quarter", 16, "12.50", entry(redA, 4), entry(blueB, 12))
	catalog.addAssembly("none", 5, "", entry(blueB, 5))
	catalog.addAssembly("broken", 0, "0.10", entry(redA, 1))

	holdings := &mockHoldings{users: map[string]*domain.UserHoldings{
		"u": {UserID: "u", Items: []domain.OwnedItem{{Identity: redA, Quantity: 4}}},
	}}
	return NewInventoryService(catalog, holdings, nil, Options{FullScanLimit: 10}), catalog
}

func TestRankCandidates_CheapestIncomplete(t *testing.T) {
	svc, _ := cheapestCatalog()

	r, err := svc.RankCandidates(context.Background(), "u", domain.CheapestMode())
	require.NoError(t, err)

	// equal percentages fall back to assembly id order
	assert.Equal(t, []string{"half", "quarter", "broken", "none"}, candidateIDs(r.Candidates))
	for _, c := range r.Candidates {
		assert.Less(t, c.Percentage, 100.0, c.AssemblyID)
	}
	assert.Equal(t, []domain.Warning{{Kind: domain.WarningEmptyManifest, AssemblyID: "broken"}}, r.Warnings)

	require.NotNil(t, r.Cheapest)
	assert.Equal(t, "broken", r.Cheapest.AssemblyID)
	assert.True(t, r.Cheapest.Price.Equal(decimal.RequireFromString("0.10")))
	assert.Equal(t, 0.0, r.Cheapest.Percentage)
}

func TestRankCandidates_CheapestAmongScoredAssemblies(t *testing.T) {
	svc, catalog := cheapestCatalog()
	delete(catalog.manifests, "broken")

	r, err := svc.RankCandidates(context.Background(), "u", domain.CheapestMode())
	require.NoError(t, err)

	assert.Equal(t, []string{"half", "quarter", "none"}, candidateIDs(r.Candidates))
	assert.Empty(t, r.Warnings)
	require.NotNil(t, r.Cheapest)
	assert.Equal(t, "quarter", r.Cheapest.AssemblyID)
	assert.True(t, r.Cheapest.Price.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, 25.0, r.Cheapest.Percentage)
}

func TestRankCandidates_CheapestRespectsScanLimit(t *testing.T) {
	svc, catalog := cheapestCatalog()
	svc.fullScanLimit = 1
	catalog.summaries["half"].LowestPrice = decimal.NullDecimal{}

	r, err := svc.RankCandidates(context.Background(), "u", domain.CheapestMode())
	require.NoError(t, err)

	assert.Equal(t, []string{"half"}, candidateIDs(r.Candidates))
	assert.Nil(t, r.Cheapest, "only the unpriced candidate was within the limit")
}

func TestRankCandidates_CheapestMissingSummary(t *testing.T) {
	svc, catalog := cheapestCatalog()
	delete(catalog.manifests, "broken")
	delete(catalog.summaries, "quarter")

	r, err := svc.RankCandidates(context.Background(), "u", domain.CheapestMode())
	require.NoError(t, err)

	require.NotNil(t, r.Cheapest)
	assert.Equal(t, "half", r.Cheapest.AssemblyID)
	assert.Contains(t, r.Warnings, domain.Warning{Kind: domain.WarningMissingSummary, AssemblyID: "quarter"})
}

func TestRankCandidates_CheapestScanError(t *testing.T) {
	svc, catalog := cheapestCatalog()
	catalog.failListAt = 2

	_, err := svc.RankCandidates(context.Background(), "u", domain.CheapestMode())
	assert.ErrorIs(t, err, errStoreDown)
}
