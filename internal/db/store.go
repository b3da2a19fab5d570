package db

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/david/proper-search/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	DefaultLimit = 500
	MaxLimit     = 1000
)

var ErrNotFound = errors.New("listing not found")

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

type ListParams struct {
	Query        string
	City         string
	MinBeds      *int
	MaxPrice     *float64
	MinSqft      *float64
	PropertyType string
	Tags         []string // canonical tags that must all be present
	Bounds       *models.Bounds
	Status       string // "active" (default), "pending", "sold" or "all"
	SortBy       string
	Limit        int
	Offset       int
}

type ListResult struct {
	Listings []models.Listing `json:"listings"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// SoldParams selects comparable-sale candidates.
type SoldParams struct {
	Bounds  models.Bounds
	MinSqft float64
	MaxSqft float64
	Limit   int
}

// selectCols is the column list shared by every listing query.
const selectCols = `id, address, city, state, zip,
	price::float8, beds, baths::float8, sqft::float8, equity_pct::float8, lat, lng, tags,
	property_type, year_built, lot_size::float8, price_per_sqft::float8, days_on_market,
	image, status, sold_date, sold_price::float8, created_at`

func scanListing(scan func(dest ...interface{}) error) (models.Listing, error) {
	var l models.Listing
	var lat, lng *float64
	var propertyType, status string
	var image *string
	var soldDate *time.Time

	err := scan(
		&l.ID, &l.Address, &l.City, &l.State, &l.Zip,
		&l.Price, &l.Beds, &l.Baths, &l.Sqft, &l.EquityPct, &lat, &lng, &l.Tags,
		&propertyType, &l.YearBuilt, &l.LotSize, &l.PricePerSqft, &l.DaysOnMarket,
		&image, &status, &soldDate, &l.SoldPrice, &l.CreatedAt,
	)
	if err != nil {
		return l, err
	}

	// Missing coordinates become NaN so HasCoordinates rejects them.
	l.Lat, l.Lng = math.NaN(), math.NaN()
	if lat != nil && lng != nil {
		l.Lat, l.Lng = *lat, *lng
	}
	if image != nil {
		l.Image = *image
	}
	l.SoldDate = soldDate
	l.PropertyType = models.PropertyType(propertyType)
	l.Status = models.Status(status)
	l.Tags = models.CanonicalTags(l.Tags)

	return l, nil
}

func (s *Store) ListListings(ctx context.Context, params ListParams) (*ListResult, error) {
	where, args := buildListWhere(params)
	argIdx := len(args) + 1

	var total int
	countSQL := "SELECT COUNT(*) FROM properties " + where
	if err := s.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count failed: %w", err)
	}

	limit := clampLimit(params.Limit)
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	selectSQL := fmt.Sprintf("SELECT %s FROM properties %s %s LIMIT $%d OFFSET $%d",
		selectCols, where, orderClause(params.SortBy), argIdx, argIdx+1)
	args = append(args, limit, offset)

	listings, err := s.queryListings(ctx, selectSQL, args...)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Listings: listings,
		Total:    total,
		Limit:    limit,
		Offset:   offset,
	}, nil
}

// ListSold returns sold listings inside the bounding box and square-footage
// range, most recent sales first.
func (s *Store) ListSold(ctx context.Context, params SoldParams) ([]models.Listing, error) {
	b := params.Bounds
	sql := fmt.Sprintf(`
		SELECT %s
		FROM properties
		WHERE status = 'sold'
			AND lat BETWEEN $1 AND $2
			AND lng BETWEEN $3 AND $4
			AND sqft BETWEEN $5 AND $6
		ORDER BY sold_date DESC NULLS LAST, id
		LIMIT $7
	`, selectCols)

	return s.queryListings(ctx, sql, b.South, b.North, b.West, b.East,
		params.MinSqft, params.MaxSqft, clampLimit(params.Limit))
}

func (s *Store) GetListing(ctx context.Context, id uuid.UUID) (*models.Listing, error) {
	sql := fmt.Sprintf(`
		SELECT %s
		FROM properties
		WHERE id = $1
	`, selectCols)
	row := s.pool.QueryRow(ctx, sql, id)

	l, err := scanListing(row.Scan)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}

	return &l, nil
}

// GetListings fetches listings by id, preserving the order of ids. Unknown
// ids are skipped.
func (s *Store) GetListings(ctx context.Context, ids []uuid.UUID) ([]models.Listing, error) {
	if len(ids) == 0 {
		return []models.Listing{}, nil
	}

	sql := fmt.Sprintf("SELECT %s FROM properties WHERE id = ANY($1)", selectCols)
	found, err := s.queryListings(ctx, sql, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]models.Listing, len(found))
	for _, l := range found {
		byID[l.ID] = l
	}
	out := make([]models.Listing, 0, len(found))
	for _, id := range ids {
		if l, ok := byID[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

// CitySuggestions returns up to eight distinct "City, ST" labels for active
// listings whose city starts with prefix.
func (s *Store) CitySuggestions(ctx context.Context, prefix string) ([]string, error) {
	prefix = strings.TrimSpace(prefix)
	if len([]rune(prefix)) < 2 {
		return []string{}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT city, state
		FROM properties
		WHERE status = 'active' AND city ILIKE $1 || '%'
		LIMIT 100
	`, escapeLike(prefix))
	if err != nil {
		return nil, fmt.Errorf("city suggestions: %w", err)
	}
	defer rows.Close()

	var out []string
	seen := map[string]struct{}{}
	for rows.Next() {
		var city, state string
		if err := rows.Scan(&city, &state); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		label := city + ", " + state
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
		if len(out) == 8 {
			break
		}
	}
	if out == nil {
		out = []string{}
	}
	return out, rows.Err()
}

// StatusCounts returns listing counts per lifecycle status plus the number of
// rows that cannot be placed on a map.
func (s *Store) StatusCounts(ctx context.Context) (map[string]int, int, error) {
	counts := map[string]int{}
	rows, err := s.pool.Query(ctx, "SELECT status, COUNT(*) FROM properties GROUP BY status")
	if err != nil {
		return nil, 0, fmt.Errorf("status counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, 0, fmt.Errorf("scan failed: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var missing int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM properties WHERE lat IS NULL OR lng IS NULL").Scan(&missing); err != nil {
		return nil, 0, fmt.Errorf("missing coordinates count: %w", err)
	}
	return counts, missing, nil
}

func (s *Store) queryListings(ctx context.Context, sql string, args ...interface{}) ([]models.Listing, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var listings []models.Listing
	for rows.Next() {
		l, err := scanListing(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	if listings == nil {
		listings = []models.Listing{}
	}
	return listings, nil
}

func buildListWhere(params ListParams) (string, []interface{}) {
	where := "WHERE 1=1"
	var args []interface{}
	argIdx := 1

	switch status := strings.ToLower(strings.TrimSpace(params.Status)); status {
	case "all":
	case "", "active":
		where += " AND status = 'active'"
	default:
		where += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, status)
		argIdx++
	}

	if q := strings.ToLower(strings.TrimSpace(params.Query)); q != "" {
		where += fmt.Sprintf(" AND (city ILIKE '%%' || $%d || '%%' OR zip ILIKE '%%' || $%d || '%%' OR address ILIKE '%%' || $%d || '%%' OR state ILIKE '%%' || $%d || '%%')",
			argIdx, argIdx, argIdx, argIdx)
		args = append(args, escapeLike(q))
		argIdx++
	}
	if city := strings.TrimSpace(params.City); city != "" {
		where += fmt.Sprintf(" AND city ILIKE '%%' || $%d || '%%'", argIdx)
		args = append(args, escapeLike(city))
		argIdx++
	}
	if params.MinBeds != nil {
		where += fmt.Sprintf(" AND beds >= $%d", argIdx)
		args = append(args, *params.MinBeds)
		argIdx++
	}
	if params.MaxPrice != nil {
		where += fmt.Sprintf(" AND price <= $%d", argIdx)
		args = append(args, *params.MaxPrice)
		argIdx++
	}
	if params.PropertyType != "" {
		where += fmt.Sprintf(" AND property_type = $%d", argIdx)
		args = append(args, params.PropertyType)
		argIdx++
	}
	if params.MinSqft != nil {
		where += fmt.Sprintf(" AND sqft >= $%d", argIdx)
		args = append(args, *params.MinSqft)
		argIdx++
	}
	// Stored tags are canonicalised by the properties trigger (002_canonical_tags.sql).
	if tags := models.CanonicalTags(params.Tags); len(tags) > 0 {
		where += fmt.Sprintf(" AND tags @> $%d", argIdx)
		args = append(args, tags)
		argIdx++
	}
	if b := params.Bounds; b != nil {
		where += fmt.Sprintf(" AND lat BETWEEN $%d AND $%d AND lng BETWEEN $%d AND $%d",
			argIdx, argIdx+1, argIdx+2, argIdx+3)
		args = append(args, b.South, b.North, b.West, b.East)
	}

	return where, args
}

func orderClause(sortBy string) string {
	switch sortBy {
	case "price-asc":
		return "ORDER BY price ASC, id"
	case "beds-desc":
		return "ORDER BY beds DESC, id"
	case "sqft-desc":
		return "ORDER BY sqft DESC, id"
	case "equity-desc":
		return "ORDER BY equity_pct DESC NULLS LAST, id"
	case "newest":
		return "ORDER BY days_on_market ASC NULLS LAST, created_at DESC, id"
	case "ppsqft-asc":
		return "ORDER BY COALESCE(price_per_sqft, price / NULLIF(sqft, 0)) ASC NULLS LAST, id"
	default: // "price-desc"
		return "ORDER BY price DESC, id"
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// escapeLike neutralises LIKE wildcards in user input.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
