package domain

import (
	"maps"
	"slices"

	"github.com/shopspring/decimal"
)

// Tally is an id with a count, used for most/fewest statistics.
type Tally struct {
	ID    string
	Count int
}

type AssemblyStat struct {
	AssemblyID string
	Name       string
	PieceCount int
	Price      decimal.NullDecimal
}

// OfferStat is one offer price for an identity.
type OfferStat struct {
	Identity Identity
	Price    decimal.Decimal
}

// CatalogStats summarizes the whole catalog. Extremes are nil on an empty
// catalog; ties go to the smallest id.
type CatalogStats struct {
	Assemblies       int
	PricedAssemblies int
	AveragePieces    float64
	MostPieces       *AssemblyStat
	FewestPieces     *AssemblyStat
	CheapestAssembly *AssemblyStat
	PriciestAssembly *AssemblyStat

	Items         int
	OffersByColor map[string]int
	MostOffers    *Tally
	FewestOffers  *Tally
	CheapestOffer *OfferStat
	PriciestOffer *OfferStat
}

// HoldingsStats summarizes ownership across users. Only positive quantities
// count, so a user holding nothing is absent from the fewest-style tallies.
type HoldingsStats struct {
	Users               int
	UsersWithItems      int
	UsersWithAssemblies int

	// MostUnits and FewestUnits count owned item units per user.
	MostUnits   *Tally
	FewestUnits *Tally
	// MostAssemblies and FewestAssemblies count distinct assemblies per user.
	MostAssemblies   *Tally
	FewestAssemblies *Tally
	// The owned tallies count distinct users per item or assembly id.
	MostOwnedItem      *Tally
	LeastOwnedItem     *Tally
	MostOwnedAssembly  *Tally
	LeastOwnedAssembly *Tally
}

type Statistics struct {
	Catalog  CatalogStats
	Holdings HoldingsStats
}

// Extremes returns the highest and lowest counts in counts. Ties go to the
// smallest id; both results are nil when counts is empty.
func Extremes(counts map[string]int) (most, fewest *Tally) {
	for _, id := range slices.Sorted(maps.Keys(counts)) {
		n := counts[id]
		if most == nil || n > most.Count {
			most = &Tally{ID: id, Count: n}
		}
		if fewest == nil || n < fewest.Count {
			fewest = &Tally{ID: id, Count: n}
		}
	}
	return most, fewest
}
