package domain

import "github.com/shopspring/decimal"

type Offer struct {
	Link     string
	Price    decimal.Decimal
	Quantity int
}

// Item holds every known offer for a catalog item, grouped by color id.
type Item struct {
	ID     string
	Offers map[string][]Offer
}

func (i *Item) OffersFor(colorID string) []Offer {
	if i == nil {
		return nil
	}
	return i.Offers[colorID]
}

type ManifestEntry struct {
	Identity Identity
	Quantity int
}

// Manifest lists what an assembly is made of. TotalPieces is the catalog's
// declared piece count and may differ from the sum of entry quantities.
type Manifest struct {
	AssemblyID  string
	Entries     []ManifestEntry
	TotalPieces int
}

type Summary struct {
	AssemblyID  string
	Name        string
	Year        int
	PieceCount  int
	LowestPrice decimal.NullDecimal
}

// Neighbor is one precomputed similarity edge. Scores are opaque ranking hints.
type Neighbor struct {
	AssemblyID string
	Score      float64
}
