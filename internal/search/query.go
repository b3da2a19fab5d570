package search

import (
	"strings"

	"github.com/david/proper-search/internal/db"
	"github.com/david/proper-search/internal/models"
)

// Predicate reports whether a listing satisfies a compiled search.
type Predicate func(models.Listing) bool

// MatchAll accepts every listing.
func MatchAll(models.Listing) bool { return true }

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Compile turns a free-text query and structured filters into a predicate.
// All constraints are combined with AND; unset filters are ignored and an
// empty query matches everything.
func Compile(query string, f models.Filters) Predicate {
	q := normalize(query)
	city := normalize(f.City)
	tags := f.QuickTags()

	return func(l models.Listing) bool {
		if city != "" && !strings.Contains(normalize(l.City), city) {
			return false
		}
		if f.MinBeds != nil && l.Beds < *f.MinBeds {
			return false
		}
		if f.MaxPrice != nil && l.Price > *f.MaxPrice {
			return false
		}
		if f.MinSqft != nil && l.Sqft < *f.MinSqft {
			return false
		}
		if f.PropertyType != "" && l.PropertyType != f.PropertyType {
			return false
		}
		for _, tag := range tags {
			if !l.HasTag(tag) {
				return false
			}
		}
		if q != "" && !strings.Contains(haystack(l), q) {
			return false
		}
		return true
	}
}

func haystack(l models.Listing) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{l.Address, l.City, l.State, l.Zip} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// BuildParams describes the same search as Compile for a remote fetch. The
// store orders by key before applying the limit, so a page holds the top of
// the requested order.
func BuildParams(query string, f models.Filters, bounds *models.Bounds, key Sort, limit int) db.ListParams {
	params := db.ListParams{
		Query:    strings.TrimSpace(query),
		City:     strings.TrimSpace(f.City),
		MinBeds:  f.MinBeds,
		MaxPrice: f.MaxPrice,
		MinSqft:  f.MinSqft,
		Tags:     f.QuickTags(),
		Bounds:   bounds,
		SortBy:   string(key),
		Limit:    limit,
	}
	if f.PropertyType != "" {
		params.PropertyType = string(f.PropertyType)
	}
	if params.Limit <= 0 {
		params.Limit = db.DefaultLimit
	}
	if params.Limit > db.MaxLimit {
		params.Limit = db.MaxLimit
	}
	return params
}
