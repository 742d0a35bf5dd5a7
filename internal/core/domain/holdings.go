package domain

import "fmt"

type OwnedItem struct {
	Identity Identity
	Quantity int
}

type OwnedAssembly struct {
	AssemblyID string
	Quantity   int
}

// UserHoldings is a read-only snapshot of what a user owns. Item order is the
// order the holdings store returned and is preserved through materialization.
type UserHoldings struct {
	UserID     string
	Items      []OwnedItem
	Assemblies []OwnedAssembly
}

// Validate rejects holdings that cannot be scored: empty identities and
// negative quantities.
func (h *UserHoldings) Validate() error {
	for _, it := range h.Items {
		if err := it.Identity.Validate(); err != nil {
			return err
		}
		if it.Quantity < 0 {
			return fmt.Errorf("%w: item %s has %d", ErrNegativeQuantity, it.Identity, it.Quantity)
		}
	}
	for _, a := range h.Assemblies {
		if a.AssemblyID == "" {
			return fmt.Errorf("%w: empty assembly id", ErrInvalidInput)
		}
		if a.Quantity < 0 {
			return fmt.Errorf("%w: assembly %s has %d", ErrNegativeQuantity, a.AssemblyID, a.Quantity)
		}
	}
	return nil
}

// OwnedAssemblyIDs returns distinct ids of assemblies held with a positive
// quantity, in holdings order.
func (h *UserHoldings) OwnedAssemblyIDs() []string {
	seen := make(map[string]struct{}, len(h.Assemblies))
	ids := make([]string, 0, len(h.Assemblies))
	for _, a := range h.Assemblies {
		if a.Quantity <= 0 {
			continue
		}
		if _, ok := seen[a.AssemblyID]; ok {
			continue
		}
		seen[a.AssemblyID] = struct{}{}
		ids = append(ids, a.AssemblyID)
	}
	return ids
}
