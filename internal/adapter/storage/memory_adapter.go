package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/rl1809/brick-inventory/internal/core/domain"
)

// MemoryAdapter keeps the catalog, holdings and view log in process. Reads
// return copies, so callers hold a stable snapshot.
type MemoryAdapter struct {
	mu        sync.RWMutex
	colors    map[string]domain.Color
	items     map[string]domain.Item
	manifests map[string]domain.Manifest
	summaries map[string]domain.Summary
	neighbors map[string][]domain.Neighbor
	holdings  map[string]domain.UserHoldings
	views     []domain.ViewEvent
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		colors:    make(map[string]domain.Color),
		items:     make(map[string]domain.Item),
		manifests: make(map[string]domain.Manifest),
		summaries: make(map[string]domain.Summary),
		neighbors: make(map[string][]domain.Neighbor),
		holdings:  make(map[string]domain.UserHoldings),
	}
}

func (m *MemoryAdapter) PutColor(c domain.Color) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.colors[c.ID] = c
}

func (m *MemoryAdapter) PutItem(it domain.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[it.ID] = copyItem(it)
}

// PutAssembly stores both the summary and the manifest; the manifest's
// declared total is taken from the summary piece count.
func (m *MemoryAdapter) PutAssembly(sum domain.Summary, entries []domain.ManifestEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries[sum.AssemblyID] = sum
	m.manifests[sum.AssemblyID] = domain.Manifest{
		AssemblyID:  sum.AssemblyID,
		Entries:     slices.Clone(entries),
		TotalPieces: sum.PieceCount,
	}
}

func (m *MemoryAdapter) PutManifest(man domain.Manifest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	man.Entries = slices.Clone(man.Entries)
	m.manifests[man.AssemblyID] = man
}

func (m *MemoryAdapter) PutSummary(sum domain.Summary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries[sum.AssemblyID] = sum
}

func (m *MemoryAdapter) AddNeighbors(assemblyID string, ns ...domain.Neighbor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.neighbors[assemblyID] = append(m.neighbors[assemblyID], ns...)
}

func (m *MemoryAdapter) PutHoldings(h domain.UserHoldings) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.Items = slices.Clone(h.Items)
	h.Assemblies = slices.Clone(h.Assemblies)
	m.holdings[h.UserID] = h
}

func (m *MemoryAdapter) GetItem(_ context.Context, itemID string) (*domain.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[itemID]
	if !ok {
		return nil, nil
	}
	cp := copyItem(it)
	return &cp, nil
}

func (m *MemoryAdapter) GetManifest(_ context.Context, assemblyID string) (*domain.Manifest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	man, ok := m.manifests[assemblyID]
	if !ok {
		return nil, nil
	}
	man.Entries = slices.Clone(man.Entries)
	return &man, nil
}

func (m *MemoryAdapter) GetSummary(_ context.Context, assemblyID string) (*domain.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum, ok := m.summaries[assemblyID]
	if !ok {
		return nil, nil
	}
	return &sum, nil
}

func (m *MemoryAdapter) GetSimilarNeighbors(_ context.Context, assemblyID string, k int) ([]domain.Neighbor, error) {
	m.mu.RLock()
	ns := slices.Clone(m.neighbors[assemblyID])
	m.mu.RUnlock()

	sort.SliceStable(ns, func(i, j int) bool { return ns[i].Score > ns[j].Score })
	if k > 0 && len(ns) > k {
		ns = ns[:k]
	}
	return ns, nil
}

func (m *MemoryAdapter) ListManifests(ctx context.Context) iter.Seq2[domain.Manifest, error] {
	return func(yield func(domain.Manifest, error) bool) {
		m.mu.RLock()
		ids := slices.Sorted(maps.Keys(m.manifests))
		m.mu.RUnlock()

		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				yield(domain.Manifest{}, err)
				return
			}
			man, _ := m.GetManifest(ctx, id)
			if man == nil {
				continue
			}
			if !yield(*man, nil) {
				return
			}
		}
	}
}

func (m *MemoryAdapter) ListColors(_ context.Context) ([]domain.Color, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Color, 0, len(m.colors))
	for _, id := range slices.Sorted(maps.Keys(m.colors)) {
		out = append(out, m.colors[id])
	}
	return out, nil
}

func (m *MemoryAdapter) GetHoldings(_ context.Context, userID string) (*domain.UserHoldings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.holdings[userID]
	if !ok {
		return nil, nil
	}
	h.Items = slices.Clone(h.Items)
	h.Assemblies = slices.Clone(h.Assemblies)
	return &h, nil
}

func (m *MemoryAdapter) SaveView(_ context.Context, event domain.ViewEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.views = append(m.views, event)
	return nil
}

func (m *MemoryAdapter) Views() []domain.ViewEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.views)
}

func (m *MemoryAdapter) CatalogStats(_ context.Context) (*domain.CatalogStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := &domain.CatalogStats{
		Assemblies:    len(m.summaries),
		Items:         len(m.items),
		OffersByColor: make(map[string]int),
	}

	pieces := 0
	for _, id := range slices.Sorted(maps.Keys(m.summaries)) {
		sum := m.summaries[id]
		a := &domain.AssemblyStat{AssemblyID: id, Name: sum.Name, PieceCount: sum.PieceCount, Price: sum.LowestPrice}
		pieces += sum.PieceCount

		if st.MostPieces == nil || a.PieceCount > st.MostPieces.PieceCount {
			st.MostPieces = a
		}
		if st.FewestPieces == nil || a.PieceCount < st.FewestPieces.PieceCount {
			st.FewestPieces = a
		}
		if !a.Price.Valid {
			continue
		}
		st.PricedAssemblies++
		if st.CheapestAssembly == nil || a.Price.Decimal.LessThan(st.CheapestAssembly.Price.Decimal) {
			st.CheapestAssembly = a
		}
		if st.PriciestAssembly == nil || a.Price.Decimal.GreaterThan(st.PriciestAssembly.Price.Decimal) {
			st.PriciestAssembly = a
		}
	}
	if st.Assemblies > 0 {
		st.AveragePieces = float64(pieces) / float64(st.Assemblies)
	}

	offers := make(map[string]int, len(m.items))
	for _, itemID := range slices.Sorted(maps.Keys(m.items)) {
		it := m.items[itemID]
		offers[itemID] = 0
		for _, color := range slices.Sorted(maps.Keys(it.Offers)) {
			list := it.Offers[color]
			offers[itemID] += len(list)
			st.OffersByColor[color] += len(list)

			id := domain.Identity{ItemID: itemID, ColorID: color}
			if low, ok := domain.PolicyLowest.Select(list); ok {
				if st.CheapestOffer == nil || low.LessThan(st.CheapestOffer.Price) {
					st.CheapestOffer = &domain.OfferStat{Identity: id, Price: low}
				}
			}
			if high, ok := domain.PolicyHighest.Select(list); ok {
				if st.PriciestOffer == nil || high.GreaterThan(st.PriciestOffer.Price) {
					st.PriciestOffer = &domain.OfferStat{Identity: id, Price: high}
				}
			}
		}
	}
	st.MostOffers, st.FewestOffers = domain.Extremes(offers)
	return st, nil
}

func (m *MemoryAdapter) HoldingsStats(_ context.Context) (*domain.HoldingsStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := &domain.HoldingsStats{Users: len(m.holdings)}
	units := make(map[string]int)
	assemblies := make(map[string]int)
	itemOwners := make(map[string]int)
	assemblyOwners := make(map[string]int)

	for userID, h := range m.holdings {
		items := make(map[string]struct{})
		for _, it := range h.Items {
			if it.Quantity <= 0 {
				continue
			}
			units[userID] += it.Quantity
			items[it.Identity.ItemID] = struct{}{}
		}
		for itemID := range items {
			itemOwners[itemID]++
		}

		owned := make(map[string]struct{})
		for _, a := range h.Assemblies {
			if a.Quantity > 0 {
				owned[a.AssemblyID] = struct{}{}
			}
		}
		if len(owned) > 0 {
			assemblies[userID] = len(owned)
		}
		for id := range owned {
			assemblyOwners[id]++
		}
	}

	st.UsersWithItems = len(units)
	st.UsersWithAssemblies = len(assemblies)
	st.MostUnits, st.FewestUnits = domain.Extremes(units)
	st.MostAssemblies, st.FewestAssemblies = domain.Extremes(assemblies)
	st.MostOwnedItem, st.LeastOwnedItem = domain.Extremes(itemOwners)
	st.MostOwnedAssembly, st.LeastOwnedAssembly = domain.Extremes(assemblyOwners)
	return st, nil
}

func copyItem(it domain.Item) domain.Item {
	offers := make(map[string][]domain.Offer, len(it.Offers))
	for color, list := range it.Offers {
		offers[color] = slices.Clone(list)
	}
	it.Offers = offers
	return it
}

type fixtureOffer struct {
	Link     string          `json:"link"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type fixturePart struct {
	ItemID   string `json:"item_id"`
	ColorID  string `json:"color_id"`
	Quantity int    `json:"quantity"`
}

type fixtureRef struct {
	ID       string  `json:"id"`
	Quantity int     `json:"quantity"`
	Score    float64 `json:"score"`
}

type fixture struct {
	Colors []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"colors"`
	Items []struct {
		ID     string                    `json:"id"`
		Offers map[string][]fixtureOffer `json:"offers"`
	} `json:"items"`
	Assemblies []struct {
		ID          string              `json:"id"`
		Name        string              `json:"name"`
		Year        int                 `json:"year"`
		NumParts    int                 `json:"num_parts"`
		LowestPrice decimal.NullDecimal `json:"lowest_price"`
		Parts       []fixturePart       `json:"parts"`
		Similar     []fixtureRef        `json:"similar"`
	} `json:"assemblies"`
	Users []struct {
		ID         string        `json:"id"`
		Items      []fixturePart `json:"items"`
		Assemblies []fixtureRef  `json:"assemblies"`
	} `json:"users"`
}

// LoadMemoryAdapter builds an adapter from a JSON catalog fixture.
func LoadMemoryAdapter(r io.Reader) (*MemoryAdapter, error) {
	var f fixture
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}

	m := NewMemoryAdapter()
	for _, c := range f.Colors {
		m.PutColor(domain.Color{ID: c.ID, Name: c.Name})
	}
	for _, it := range f.Items {
		item := domain.Item{ID: it.ID, Offers: make(map[string][]domain.Offer, len(it.Offers))}
		for color, list := range it.Offers {
			for _, o := range list {
				item.Offers[color] = append(item.Offers[color], domain.Offer{Link: o.Link, Price: o.Price, Quantity: o.Quantity})
			}
		}
		m.PutItem(item)
	}
	for _, a := range f.Assemblies {
		entries := make([]domain.ManifestEntry, 0, len(a.Parts))
		for _, p := range a.Parts {
			entries = append(entries, domain.ManifestEntry{
				Identity: domain.Identity{ItemID: p.ItemID, ColorID: p.ColorID},
				Quantity: p.Quantity,
			})
		}
		m.PutAssembly(domain.Summary{
			AssemblyID:  a.ID,
			Name:        a.Name,
			Year:        a.Year,
			PieceCount:  a.NumParts,
			LowestPrice: a.LowestPrice,
		}, entries)
		for _, s := range a.Similar {
			m.AddNeighbors(a.ID, domain.Neighbor{AssemblyID: s.ID, Score: s.Score})
		}
	}
	for _, u := range f.Users {
		h := domain.UserHoldings{UserID: u.ID}
		for _, p := range u.Items {
			h.Items = append(h.Items, domain.OwnedItem{
				Identity: domain.Identity{ItemID: p.ItemID, ColorID: p.ColorID},
				Quantity: p.Quantity,
			})
		}
		for _, a := range u.Assemblies {
			h.Assemblies = append(h.Assemblies, domain.OwnedAssembly{AssemblyID: a.ID, Quantity: a.Quantity})
		}
		m.PutHoldings(h)
	}
	return m, nil
}
