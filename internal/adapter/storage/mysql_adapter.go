package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rl1809/brick-inventory/internal/core/domain"
)

//go:embed schema.sql
var schemaSQL string

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// EnsureSchema creates missing tables. It never alters existing ones.
func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) GetItem(ctx context.Context, itemID string) (*domain.Item, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT i.id, o.color_id, o.link, o.price, o.quantity
		FROM items i LEFT JOIN item_offers o ON o.item_id = i.id
		WHERE i.id = ?
		ORDER BY o.id`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	defer rows.Close()

	var item *domain.Item
	for rows.Next() {
		var (
			id       string
			colorID  sql.NullString
			link     sql.NullString
			price    decimal.NullDecimal
			quantity sql.NullInt64
		)
		if err := rows.Scan(&id, &colorID, &link, &price, &quantity); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		if item == nil {
			item = &domain.Item{ID: id, Offers: make(map[string][]domain.Offer)}
		}
		if !colorID.Valid || !price.Valid {
			continue
		}
		item.Offers[colorID.String] = append(item.Offers[colorID.String], domain.Offer{
			Link:     link.String,
			Price:    price.Decimal,
			Quantity: int(quantity.Int64),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate item: %w", err)
	}
	return item, nil
}

func (m *MySQLAdapter) GetManifest(ctx context.Context, assemblyID string) (*domain.Manifest, error) {
	man := domain.Manifest{AssemblyID: assemblyID}
	err := m.db.QueryRowContext(ctx, `
		SELECT num_parts FROM assemblies WHERE id = ?`, assemblyID,
	).Scan(&man.TotalPieces)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query assembly: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT item_id, color_id, quantity
		FROM assembly_parts WHERE assembly_id = ?
		ORDER BY item_id, color_id`, assemblyID,
	)
	if err != nil {
		return nil, fmt.Errorf("query assembly parts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e domain.ManifestEntry
		if err := rows.Scan(&e.Identity.ItemID, &e.Identity.ColorID, &e.Quantity); err != nil {
			return nil, fmt.Errorf("scan assembly part: %w", err)
		}
		man.Entries = append(man.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assembly parts: %w", err)
	}
	return &man, nil
}

func (m *MySQLAdapter) GetSummary(ctx context.Context, assemblyID string) (*domain.Summary, error) {
	var s domain.Summary
	err := m.db.QueryRowContext(ctx, `
		SELECT id, name, year, num_parts, lowest_price
		FROM assemblies WHERE id = ?`, assemblyID,
	).Scan(&s.AssemblyID, &s.Name, &s.Year, &s.PieceCount, &s.LowestPrice)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	return &s, nil
}

func (m *MySQLAdapter) GetSimilarNeighbors(ctx context.Context, assemblyID string, k int) ([]domain.Neighbor, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT other_assembly_id, score
		FROM assembly_similarities WHERE assembly_id = ?
		ORDER BY score DESC
		LIMIT ?`, assemblyID, k,
	)
	if err != nil {
		return nil, fmt.Errorf("query similarities: %w", err)
	}
	defer rows.Close()

	var out []domain.Neighbor
	for rows.Next() {
		var n domain.Neighbor
		if err := rows.Scan(&n.AssemblyID, &n.Score); err != nil {
			return nil, fmt.Errorf("scan similarity: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate similarities: %w", err)
	}
	return out, nil
}

// ListManifests streams manifests ordered by assembly id from a single query.
func (m *MySQLAdapter) ListManifests(ctx context.Context) iter.Seq2[domain.Manifest, error] {
	return func(yield func(domain.Manifest, error) bool) {
		rows, err := m.db.QueryContext(ctx, `
			SELECT a.id, a.num_parts, p.item_id, p.color_id, p.quantity
			FROM assemblies a LEFT JOIN assembly_parts p ON p.assembly_id = a.id
			ORDER BY a.id`)
		if err != nil {
			yield(domain.Manifest{}, fmt.Errorf("query manifests: %w", err))
			return
		}
		defer rows.Close()

		var cur *domain.Manifest
		for rows.Next() {
			var (
				id       string
				total    int
				itemID   sql.NullString
				colorID  sql.NullString
				quantity sql.NullInt64
			)
			if err := rows.Scan(&id, &total, &itemID, &colorID, &quantity); err != nil {
				yield(domain.Manifest{}, fmt.Errorf("scan manifest: %w", err))
				return
			}
			if cur != nil && cur.AssemblyID != id {
				if !yield(*cur, nil) {
					return
				}
				cur = nil
			}
			if cur == nil {
				cur = &domain.Manifest{AssemblyID: id, TotalPieces: total}
			}
			if itemID.Valid && colorID.Valid {
				cur.Entries = append(cur.Entries, domain.ManifestEntry{
					Identity: domain.Identity{ItemID: itemID.String, ColorID: colorID.String},
					Quantity: int(quantity.Int64),
				})
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.Manifest{}, fmt.Errorf("iterate manifests: %w", err))
			return
		}
		if cur != nil {
			yield(*cur, nil)
		}
	}
}

func (m *MySQLAdapter) ListColors(ctx context.Context) ([]domain.Color, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT id, name FROM colors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query colors: %w", err)
	}
	defer rows.Close()

	var out []domain.Color
	for rows.Next() {
		var c domain.Color
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan color: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate colors: %w", err)
	}
	return out, nil
}

func (m *MySQLAdapter) GetHoldings(ctx context.Context, userID string) (*domain.UserHoldings, error) {
	var id string
	err := m.db.QueryRowContext(ctx, `SELECT id FROM users WHERE id = ?`, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	h := &domain.UserHoldings{UserID: id}

	itemRows, err := m.db.QueryContext(ctx, `
		SELECT item_id, color_id, quantity
		FROM user_items WHERE user_id = ?
		ORDER BY item_id, color_id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query user items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var it domain.OwnedItem
		if err := itemRows.Scan(&it.Identity.ItemID, &it.Identity.ColorID, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan user item: %w", err)
		}
		h.Items = append(h.Items, it)
	}
	if err := itemRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user items: %w", err)
	}

	setRows, err := m.db.QueryContext(ctx, `
		SELECT assembly_id, quantity
		FROM user_assemblies WHERE user_id = ?
		ORDER BY assembly_id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("query user assemblies: %w", err)
	}
	defer setRows.Close()

	for setRows.Next() {
		var a domain.OwnedAssembly
		if err := setRows.Scan(&a.AssemblyID, &a.Quantity); err != nil {
			return nil, fmt.Errorf("scan user assembly: %w", err)
		}
		h.Assemblies = append(h.Assemblies, a)
	}
	if err := setRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user assemblies: %w", err)
	}
	return h, nil
}

func (m *MySQLAdapter) CatalogStats(ctx context.Context) (*domain.CatalogStats, error) {
	st := &domain.CatalogStats{OffersByColor: make(map[string]int)}

	err := m.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(lowest_price), COALESCE(AVG(num_parts), 0)
		FROM assemblies`,
	).Scan(&st.Assemblies, &st.PricedAssemblies, &st.AveragePieces)
	if err != nil {
		return nil, fmt.Errorf("query assembly counts: %w", err)
	}

	extremes := []struct {
		dst   **domain.AssemblyStat
		query string
	}{
		{&st.MostPieces, `ORDER BY num_parts DESC, id`},
		{&st.FewestPieces, `ORDER BY num_parts ASC, id`},
		{&st.CheapestAssembly, `WHERE lowest_price IS NOT NULL ORDER BY lowest_price ASC, id`},
		{&st.PriciestAssembly, `WHERE lowest_price IS NOT NULL ORDER BY lowest_price DESC, id`},
	}
	for _, e := range extremes {
		var a domain.AssemblyStat
		err := m.db.QueryRowContext(ctx,
			`SELECT id, name, num_parts, lowest_price FROM assemblies `+e.query+` LIMIT 1`,
		).Scan(&a.AssemblyID, &a.Name, &a.PieceCount, &a.Price)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("query assembly extreme: %w", err)
		}
		*e.dst = &a
	}

	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&st.Items); err != nil {
		return nil, fmt.Errorf("query item count: %w", err)
	}

	rows, err := m.db.QueryContext(ctx, `
		SELECT color_id, COUNT(*) FROM item_offers GROUP BY color_id`)
	if err != nil {
		return nil, fmt.Errorf("query offers by color: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var color string
		var n int
		if err := rows.Scan(&color, &n); err != nil {
			return nil, fmt.Errorf("scan offers by color: %w", err)
		}
		st.OffersByColor[color] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate offers by color: %w", err)
	}

	const offersPerItem = `
		SELECT i.id, COUNT(o.id) AS n
		FROM items i LEFT JOIN item_offers o ON o.item_id = i.id
		GROUP BY i.id `
	if st.MostOffers, err = m.queryTally(ctx, offersPerItem+`ORDER BY n DESC, i.id LIMIT 1`); err != nil {
		return nil, err
	}
	if st.FewestOffers, err = m.queryTally(ctx, offersPerItem+`ORDER BY n ASC, i.id LIMIT 1`); err != nil {
		return nil, err
	}

	if st.CheapestOffer, err = m.queryOffer(ctx, `ASC`); err != nil {
		return nil, err
	}
	if st.PriciestOffer, err = m.queryOffer(ctx, `DESC`); err != nil {
		return nil, err
	}
	return st, nil
}

func (m *MySQLAdapter) HoldingsStats(ctx context.Context) (*domain.HoldingsStats, error) {
	st := &domain.HoldingsStats{}

	err := m.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(DISTINCT user_id) FROM user_items WHERE quantity > 0),
			(SELECT COUNT(DISTINCT user_id) FROM user_assemblies WHERE quantity > 0)`,
	).Scan(&st.Users, &st.UsersWithItems, &st.UsersWithAssemblies)
	if err != nil {
		return nil, fmt.Errorf("query user counts: %w", err)
	}

	const (
		unitsPerUser      = `SELECT user_id, SUM(quantity) AS n FROM user_items WHERE quantity > 0 GROUP BY user_id `
		assembliesPerUser = `SELECT user_id, COUNT(*) AS n FROM user_assemblies WHERE quantity > 0 GROUP BY user_id `
		ownersPerItem     = `SELECT item_id, COUNT(DISTINCT user_id) AS n FROM user_items WHERE quantity > 0 GROUP BY item_id `
		ownersPerAssembly = `SELECT assembly_id, COUNT(*) AS n FROM user_assemblies WHERE quantity > 0 GROUP BY assembly_id `
	)
	tallies := []struct {
		dst   **domain.Tally
		query string
	}{
		{&st.MostUnits, unitsPerUser + `ORDER BY n DESC, user_id LIMIT 1`},
		{&st.FewestUnits, unitsPerUser + `ORDER BY n ASC, user_id LIMIT 1`},
		{&st.MostAssemblies, assembliesPerUser + `ORDER BY n DESC, user_id LIMIT 1`},
		{&st.FewestAssemblies, assembliesPerUser + `ORDER BY n ASC, user_id LIMIT 1`},
		{&st.MostOwnedItem, ownersPerItem + `ORDER BY n DESC, item_id LIMIT 1`},
		{&st.LeastOwnedItem, ownersPerItem + `ORDER BY n ASC, item_id LIMIT 1`},
		{&st.MostOwnedAssembly, ownersPerAssembly + `ORDER BY n DESC, assembly_id LIMIT 1`},
		{&st.LeastOwnedAssembly, ownersPerAssembly + `ORDER BY n ASC, assembly_id LIMIT 1`},
	}
	for _, t := range tallies {
		if *t.dst, err = m.queryTally(ctx, t.query); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// queryTally scans a single (id, count) row; no row yields nil.
func (m *MySQLAdapter) queryTally(ctx context.Context, query string) (*domain.Tally, error) {
	var t domain.Tally
	err := m.db.QueryRowContext(ctx, query).Scan(&t.ID, &t.Count)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query tally: %w", err)
	}
	return &t, nil
}

func (m *MySQLAdapter) queryOffer(ctx context.Context, dir string) (*domain.OfferStat, error) {
	var o domain.OfferStat
	err := m.db.QueryRowContext(ctx, `
		SELECT item_id, color_id, price FROM item_offers
		WHERE price >= 0
		ORDER BY price `+dir+`, item_id, color_id LIMIT 1`,
	).Scan(&o.Identity.ItemID, &o.Identity.ColorID, &o.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query offer extreme: %w", err)
	}
	return &o, nil
}

func (m *MySQLAdapter) SaveView(ctx context.Context, event domain.ViewEvent) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO assembly_views (id, user_id, assembly_id, viewed_at)
		VALUES (?, ?, ?, ?)`,
		event.ID, event.UserID, event.AssemblyID, event.ViewedAt,
	)
	if err != nil {
		return fmt.Errorf("insert view: %w", err)
	}
	return nil
}

// Ping reports whether the database is reachable.
func (m *MySQLAdapter) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}
