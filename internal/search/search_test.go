package search

import (
	"testing"

	"github.com/david/proper-search/internal/models"
	"github.com/google/uuid"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

func sampleListings() []models.Listing {
	return []models.Listing{
		{ID: uuid.New(), Address: "100 Main St", City: "Houston", State: "TX", Zip: "77002", Price: 250000, Beds: 3, Sqft: 1500, PropertyType: models.PropertyHouse, Tags: []string{"High Equity", "absentee"}, DaysOnMarket: intPtr(12), EquityPct: floatPtr(45)},
		{ID: uuid.New(), Address: "2 Oak Ave", City: "Houston", State: "TX", Zip: "77005", Price: 180000, Beds: 2, Sqft: 900, PropertyType: models.PropertyCondo, Tags: []string{"vacant"}, EquityPct: floatPtr(10)},
		{ID: uuid.New(), Address: "55 Elm Rd", City: "Katy", State: "TX", Zip: "77449", Price: 320000, Beds: 4, Sqft: 2400, PropertyType: models.PropertyHouse, Tags: []string{"highEquity"}, DaysOnMarket: intPtr(3)},
		{ID: uuid.New(), Address: "9 Pine Ct", City: "Pasadena", State: "TX", Zip: "77502", Price: 250000, Beds: 3, Sqft: 0, PropertyType: models.PropertyTownhouse, DaysOnMarket: intPtr(40), EquityPct: floatPtr(45)},
	}
}

func ids(items []models.Listing) []uuid.UUID {
	out := make([]uuid.UUID, len(items))
	for i, l := range items {
		out[i] = l.ID
	}
	return out
}

func TestCompile(t *testing.T) {
	items := sampleListings()

	tests := []struct {
		name    string
		query   string
		filters models.Filters
		want    []int
	}{
		{"empty matches all", "", models.Filters{}, []int{0, 1, 2, 3}},
		{"query is case-insensitive and trimmed", "  HOUSTON ", models.Filters{}, []int{0, 1}},
		{"query matches zip", "77449", models.Filters{}, []int{2}},
		{"query matches address", "oak ave", models.Filters{}, []int{1}},
		{"min beds inclusive", "", models.Filters{MinBeds: intPtr(3)}, []int{0, 2, 3}},
		{"max price inclusive", "", models.Filters{MaxPrice: floatPtr(250000)}, []int{0, 1, 3}},
		{"min sqft inclusive", "", models.Filters{MinSqft: floatPtr(1500)}, []int{0, 2}},
		{"city substring", "", models.Filters{City: "hou"}, []int{0, 1}},
		{"property type", "", models.Filters{PropertyType: models.PropertyCondo}, []int{1}},
		{"high equity across spellings", "", models.Filters{HighEquity: true}, []int{0, 2}},
		{"quick filter intersects query", "houston", models.Filters{HighEquity: true}, []int{0}},
		{"two quick filters intersect", "", models.Filters{HighEquity: true, Absentee: true}, []int{0}},
		{"no match", "dallas", models.Filters{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred := Compile(tt.query, tt.filters)
			var got []int
			for i, l := range items {
				if pred(l) {
					got = append(got, i)
				}
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("expected %v, got %v", tt.want, got)
				}
			}
		})
	}
}

func TestEvaluate_OutputIsSubsetOfInput(t *testing.T) {
	items := sampleListings()
	inInput := map[uuid.UUID]bool{}
	for _, l := range items {
		inInput[l.ID] = true
	}

	filters := []models.Filters{
		{}, {MinBeds: intPtr(2)}, {Vacant: true}, {City: "katy", MaxPrice: floatPtr(1e6)}, {HighEquity: true, Vacant: true},
	}
	for _, f := range filters {
		for _, key := range sorts {
			for _, l := range Evaluate(items, Compile("", f), key) {
				if !inInput[l.ID] {
					t.Fatalf("listing %s not in input", l.ID)
				}
			}
		}
	}
}

func TestEvaluate_DoesNotMutateInput(t *testing.T) {
	items := sampleListings()
	before := ids(items)
	Evaluate(items, nil, SortPriceAsc)
	for i, id := range ids(items) {
		if id != before[i] {
			t.Fatal("input order changed")
		}
	}
}

func TestEvaluate_SortOrders(t *testing.T) {
	items := sampleListings()

	tests := []struct {
		key  Sort
		want []int
	}{
		{SortPriceDesc, []int{2, 0, 3, 1}},
		{SortPriceAsc, []int{1, 0, 3, 2}},
		{SortBedsDesc, []int{2, 0, 3, 1}},
		{SortSqftDesc, []int{2, 0, 1, 3}},
		{SortEquityDesc, []int{0, 3, 1, 2}},
		{SortNewest, []int{2, 0, 3, 1}},
		{SortPPSFAsc, []int{2, 0, 1, 3}},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			got := ids(Evaluate(items, nil, tt.key))
			for i, idx := range tt.want {
				if got[i] != items[idx].ID {
					t.Fatalf("position %d: expected listing %d", i, idx)
				}
			}
		})
	}
}

func TestEvaluate_SortIsIdempotentAndStable(t *testing.T) {
	items := sampleListings()
	for _, key := range sorts {
		once := Evaluate(items, nil, key)
		twice := Evaluate(once, nil, key)
		a, b := ids(once), ids(twice)
		for i := range a {
			if a[i] != b[i] {
				t.Fatalf("sort %s not idempotent", key)
			}
		}
	}

	// Listings 0 and 3 tie on price; input order must be kept.
	got := Evaluate(items, nil, SortPriceDesc)
	if got[1].ID != items[0].ID || got[2].ID != items[3].ID {
		t.Fatal("ties did not keep input order")
	}
}

func TestParseSort(t *testing.T) {
	if k, err := ParseSort(""); err != nil || k != SortPriceDesc {
		t.Fatalf("expected default price-desc, got %q %v", k, err)
	}
	if k, err := ParseSort("PPSQFT-ASC"); err != nil || k != SortPPSFAsc {
		t.Fatalf("expected ppsqft-asc, got %q %v", k, err)
	}
	if _, err := ParseSort("random"); err == nil {
		t.Fatal("expected error for unknown sort")
	}
}

func TestBuildParams(t *testing.T) {
	p := BuildParams(" houston ", models.Filters{HighEquity: true, Vacant: true, PropertyType: models.PropertyCondo}, nil, SortNewest, 0)

	if p.Query != "houston" {
		t.Fatalf("expected trimmed query, got %q", p.Query)
	}
	if p.Limit != 500 {
		t.Fatalf("expected default limit 500, got %d", p.Limit)
	}
	if p.SortBy != "newest" {
		t.Fatalf("expected sort newest passed to the store, got %q", p.SortBy)
	}
	if p.PropertyType != "condo" {
		t.Fatalf("expected condo, got %q", p.PropertyType)
	}
	if len(p.Tags) != 2 || p.Tags[0] != models.TagHighEquity || p.Tags[1] != models.TagVacant {
		t.Fatalf("unexpected tags: %v", p.Tags)
	}
}
