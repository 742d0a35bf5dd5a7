package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

type RankModeKind string

const (
	ModeShortlist RankModeKind = "shortlist"
	ModeCheapest  RankModeKind = "cheapest"
)

type RankMode struct {
	Kind     RankModeKind
	TopCount int // shortlist only
}

func ShortlistMode(topCount int) RankMode {
	return RankMode{Kind: ModeShortlist, TopCount: topCount}
}

func CheapestMode() RankMode {
	return RankMode{Kind: ModeCheapest}
}

type Candidate struct {
	AssemblyID string
	Similarity float64
	Percentage float64
}

type PricedCandidate struct {
	Candidate
	Summary Summary
	Price   decimal.Decimal
}

type Ranking struct {
	UserID     string
	Mode       RankMode
	Candidates []Candidate
	// Cheapest is set in cheapest mode when at least one candidate has a known price.
	Cheapest *PricedCandidate
	Warnings []Warning
}

// MergeNeighbors orders neighbors by descending score, keeps the first
// occurrence of each assembly and truncates to limit. Equal scores keep their
// input order.
func MergeNeighbors(neighbors []Neighbor, limit int) []Neighbor {
	if limit <= 0 {
		return []Neighbor{}
	}
	sorted := make([]Neighbor, len(neighbors))
	copy(sorted, neighbors)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	seen := make(map[string]struct{}, len(sorted))
	out := make([]Neighbor, 0, min(limit, len(sorted)))
	for _, n := range sorted {
		if len(out) >= limit {
			break
		}
		if _, ok := seen[n.AssemblyID]; ok {
			continue
		}
		seen[n.AssemblyID] = struct{}{}
		out = append(out, n)
	}
	return out
}

// SortByCompletion orders candidates by descending percentage, breaking ties by
// assembly id so full scans are deterministic.
func SortByCompletion(cs []Candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Percentage != cs[j].Percentage {
			return cs[i].Percentage > cs[j].Percentage
		}
		return cs[i].AssemblyID < cs[j].AssemblyID
	})
}
