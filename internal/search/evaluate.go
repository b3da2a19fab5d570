package search

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/david/proper-search/internal/models"
)

type Sort string

const (
	SortPriceDesc  Sort = "price-desc"
	SortPriceAsc   Sort = "price-asc"
	SortBedsDesc   Sort = "beds-desc"
	SortSqftDesc   Sort = "sqft-desc"
	SortEquityDesc Sort = "equity-desc"
	SortNewest     Sort = "newest"
	SortPPSFAsc    Sort = "ppsqft-asc"
)

var ErrUnknownSort = errors.New("unknown sort option")

var sorts = []Sort{SortPriceDesc, SortPriceAsc, SortBedsDesc, SortSqftDesc, SortEquityDesc, SortNewest, SortPPSFAsc}

// ParseSort accepts the documented sort keys; an empty string selects
// price descending.
func ParseSort(s string) (Sort, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SortPriceDesc, nil
	}
	for _, known := range sorts {
		if Sort(s) == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSort, s)
}

// Evaluate filters items with pred and orders the survivors by key. The
// input slice is never modified and ties keep their input order.
func Evaluate(items []models.Listing, pred Predicate, key Sort) []models.Listing {
	if pred == nil {
		pred = MatchAll
	}

	out := make([]models.Listing, 0, len(items))
	for _, l := range items {
		if pred(l) {
			out = append(out, l)
		}
	}

	SortListings(out, key)
	return out
}

// SortListings stably sorts items in place.
func SortListings(items []models.Listing, key Sort) {
	less := lessFunc(key)
	sort.SliceStable(items, func(i, j int) bool {
		return less(items[i], items[j])
	})
}

func lessFunc(key Sort) func(a, b models.Listing) bool {
	switch key {
	case SortPriceAsc:
		return func(a, b models.Listing) bool { return a.Price < b.Price }
	case SortBedsDesc:
		return func(a, b models.Listing) bool { return a.Beds > b.Beds }
	case SortSqftDesc:
		return func(a, b models.Listing) bool { return a.Sqft > b.Sqft }
	case SortEquityDesc:
		return func(a, b models.Listing) bool { return equityOf(a) > equityOf(b) }
	case SortNewest:
		return func(a, b models.Listing) bool { return domOf(a) < domOf(b) }
	case SortPPSFAsc:
		return func(a, b models.Listing) bool { return ppsfOf(a) < ppsfOf(b) }
	default:
		return func(a, b models.Listing) bool { return a.Price > b.Price }
	}
}

func equityOf(l models.Listing) float64 {
	if l.EquityPct == nil {
		return 0
	}
	return *l.EquityPct
}

// domOf treats a missing days-on-market as a very large value so such
// listings sort last under "newest".
func domOf(l models.Listing) int {
	if l.DaysOnMarket == nil {
		return math.MaxInt
	}
	return *l.DaysOnMarket
}

func ppsfOf(l models.Listing) float64 {
	v, ok := l.PPSF()
	if !ok {
		return math.Inf(1)
	}
	return v
}
