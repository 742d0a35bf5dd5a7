package domain

// Inventory is a multiset of identities. Only positive quantities are stored;
// iteration follows first-insertion order.
type Inventory struct {
	quantities map[Identity]int
	order      []Identity
}

func NewInventory() *Inventory {
	return &Inventory{quantities: make(map[Identity]int)}
}

// Add accumulates qty units of id. Non-positive amounts are ignored.
func (inv *Inventory) Add(id Identity, qty int) {
	if qty <= 0 {
		return
	}
	if _, ok := inv.quantities[id]; !ok {
		inv.order = append(inv.order, id)
	}
	inv.quantities[id] += qty
}

func (inv *Inventory) Get(id Identity) int {
	if inv == nil {
		return 0
	}
	return inv.quantities[id]
}

func (inv *Inventory) Len() int {
	if inv == nil {
		return 0
	}
	return len(inv.quantities)
}

func (inv *Inventory) Identities() []Identity {
	if inv == nil {
		return nil
	}
	out := make([]Identity, len(inv.order))
	copy(out, inv.order)
	return out
}

func (inv *Inventory) TotalUnits() int {
	total := 0
	if inv == nil {
		return total
	}
	for _, q := range inv.quantities {
		total += q
	}
	return total
}

// MaterializedInventory is computed per request and never persisted.
type MaterializedInventory struct {
	UserID        string
	Inventory     *Inventory
	DirectUnits   int
	AssemblyUnits int
	Warnings      []Warning
}
