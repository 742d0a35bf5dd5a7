package domain

import "math"

// CompletionPercentage scores how much of m the inventory covers. Each required
// identity contributes at most its required quantity; the sum is divided by the
// manifest's declared total and rounded to two decimals.
//
// Entries repeating an identity are summed before the cap, so one owned piece
// never covers two entries: {X:2, X:3} against 4 owned X covers 4, not 5.
func CompletionPercentage(inv *Inventory, m Manifest) float64 {
	if m.TotalPieces <= 0 {
		return 0
	}

	required := make(map[Identity]int, len(m.Entries))
	for _, e := range m.Entries {
		if e.Quantity > 0 {
			required[e.Identity] += e.Quantity
		}
	}

	covered := 0
	for id, need := range required {
		covered += min(need, inv.Get(id))
	}

	pct := float64(covered) / float64(m.TotalPieces) * 100
	pct = math.Round(pct*100) / 100
	return min(pct, 100)
}
