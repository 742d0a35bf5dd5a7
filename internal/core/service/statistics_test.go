package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/brick-inventory/internal/core/domain"
)

func TestStatistics(t *testing.T) {
	svc, catalog, holdings := newScenario()
	catalog.stats = &domain.CatalogStats{
		Assemblies:    3,
		AveragePieces: 20.0 / 3,
		MostPieces:    &domain.AssemblyStat{AssemblyID: "S1", PieceCount: 7},
		OffersByColor: map[string]int{"red": 2},
	}
	holdings.stats = &domain.HoldingsStats{
		Users:     2,
		MostUnits: &domain.Tally{ID: "alice", Count: 4},
	}

	st, err := svc.Statistics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, st.Catalog.Assemblies)
	assert.Equal(t, 6.67, st.Catalog.AveragePieces)
	assert.Equal(t, "S1", st.Catalog.MostPieces.AssemblyID)
	assert.Equal(t, map[string]int{"red": 2}, st.Catalog.OffersByColor)
	assert.Equal(t, 2, st.Holdings.Users)
	assert.Equal(t, &domain.Tally{ID: "alice", Count: 4}, st.Holdings.MostUnits)
}

func TestStatistics_EmptyStores(t *testing.T) {
	svc, _, _ := newScenario()

	st, err := svc.Statistics(context.Background())
	require.NoError(t, err)

	assert.Zero(t, st.Catalog.Assemblies)
	assert.Nil(t, st.Catalog.MostPieces)
	assert.NotNil(t, st.Catalog.OffersByColor)
	assert.Zero(t, st.Holdings.Users)
}

func TestStatistics_StoreFailure(t *testing.T) {
	svc, catalog, _ := newScenario()
	catalog.failStats = true

	_, err := svc.Statistics(context.Background())
	assert.ErrorIs(t, err, errStoreDown)

	svc, _, holdings := newScenario()
	holdings.err = errStoreDown

	_, err = svc.Statistics(context.Background())
	assert.ErrorIs(t, err, errStoreDown)
}
