package service

import (
	"context"
	"errors"
	"iter"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/brick-inventory/internal/core/domain"
)

var errStoreDown = errors.New("store down")

// Mock CatalogRepository
type mockCatalog struct {
	mu            sync.Mutex
	items         map[string]*domain.Item
	manifests     map[string]*domain.Manifest
	summaries     map[string]*domain.Summary
	neighbors     map[string][]domain.Neighbor
	failManifests bool
	failListAt    int
	manifestCalls int
	stats         *domain.CatalogStats
	failStats     bool
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{
		items:      make(map[string]*domain.Item),
		manifests:  make(map[string]*domain.Manifest),
		summaries:  make(map[string]*domain.Summary),
		neighbors:  make(map[string][]domain.Neighbor),
		failListAt: -1,
	}
}

func (m *mockCatalog) addAssembly(id string, total int, price string, entries ...domain.ManifestEntry) {
	m.manifests[id] = &domain.Manifest{AssemblyID: id, Entries: entries, TotalPieces: total}
	s := &domain.Summary{AssemblyID: id, Name: "Set " + id, PieceCount: total}
	if price != "" {
		s.LowestPrice = decimal.NewNullDecimal(decimal.RequireFromString(price))
	}
	m.summaries[id] = s
}

func (m *mockCatalog) addItem(id, colorID string, prices ...string) {
	it, ok := m.items[id]
	if !ok {
		it = &domain.Item{ID: id, Offers: map[string][]domain.Offer{}}
		m.items[id] = it
	}
	for _, p := range prices {
		it.Offers[colorID] = append(it.Offers[colorID], domain.Offer{Price: decimal.RequireFromString(p), Quantity: 1})
	}
}

func (m *mockCatalog) GetItem(ctx context.Context, itemID string) (*domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[itemID], nil
}

func (m *mockCatalog) GetManifest(ctx context.Context, assemblyID string) (*domain.Manifest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.manifestCalls++
	if m.failManifests {
		return nil, errStoreDown
	}
	return m.manifests[assemblyID], nil
}

func (m *mockCatalog) GetSummary(ctx context.Context, assemblyID string) (*domain.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summaries[assemblyID], nil
}

func (m *mockCatalog) GetSimilarNeighbors(ctx context.Context, assemblyID string, k int) ([]domain.Neighbor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns := slices.Clone(m.neighbors[assemblyID])
	sort.SliceStable(ns, func(i, j int) bool { return ns[i].Score > ns[j].Score })
	if len(ns) > k {
		ns = ns[:k]
	}
	return ns, nil
}

func (m *mockCatalog) ListManifests(ctx context.Context) iter.Seq2[domain.Manifest, error] {
	return func(yield func(domain.Manifest, error) bool) {
		m.mu.Lock()
		ids := slices.Sorted(maps.Keys(m.manifests))
		m.mu.Unlock()
		for i, id := range ids {
			if i == m.failListAt {
				yield(domain.Manifest{}, errStoreDown)
				return
			}
			if !yield(*m.manifests[id], nil) {
				return
			}
		}
	}
}

func (m *mockCatalog) ListColors(ctx context.Context) ([]domain.Color, error) {
	return nil, nil
}

func (m *mockCatalog) CatalogStats(ctx context.Context) (*domain.CatalogStats, error) {
	if m.failStats {
		return nil, errStoreDown
	}
	return m.stats, nil
}

// Mock HoldingsRepository
type mockHoldings struct {
	users map[string]*domain.UserHoldings
	stats *domain.HoldingsStats
	err   error
}

func (m *mockHoldings) GetHoldings(ctx context.Context, userID string) (*domain.UserHoldings, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.users[userID], nil
}

func (m *mockHoldings) HoldingsStats(ctx context.Context) (*domain.HoldingsStats, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.stats, nil
}

// Mock CacheRepository
type mockCacheRepo struct {
	mu             sync.Mutex
	views          map[string]int64
	idempotencySet map[string]bool
	failIncrement  bool
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{
		views:          make(map[string]int64),
		idempotencySet: make(map[string]bool),
	}
}

func (m *mockCacheRepo) SetIdempotency(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.idempotencySet[key] {
		return false, nil
	}
	m.idempotencySet[key] = true
	return true, nil
}

func (m *mockCacheRepo) ClearIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.idempotencySet, key)
	return nil
}

func (m *mockCacheRepo) hasKey(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.idempotencySet[key]
}

func (m *mockCacheRepo) IncrementViews(ctx context.Context, assemblyID string, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failIncrement {
		return errStoreDown
	}
	m.views[assemblyID] = max(0, m.views[assemblyID]+delta)
	return nil
}

func (m *mockCacheRepo) TopViewed(ctx context.Context, n int) ([]domain.ViewCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.ViewCount
	for id, v := range m.views {
		if v > 0 {
			out = append(out, domain.ViewCount{AssemblyID: id, Views: v})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Views != out[j].Views {
			return out[i].Views > out[j].Views
		}
		return out[i].AssemblyID < out[j].AssemblyID
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (m *mockCacheRepo) viewsOf(id string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.views[id]
}

// Mock ViewRepository
type mockViewRepo struct {
	mu    sync.Mutex
	saved []domain.ViewEvent
	fail  bool
}

func (m *mockViewRepo) SaveView(ctx context.Context, event domain.ViewEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errStoreDown
	}
	m.saved = append(m.saved, event)
	return nil
}
