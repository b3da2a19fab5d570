package models

import (
	"math"
	"testing"
)

func TestCanonicalTag(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"highEquity", TagHighEquity},
		{"high equity", TagHighEquity},
		{"High Equity", TagHighEquity},
		{"high-equity", TagHighEquity},
		{"HIGH_EQUITY", TagHighEquity},
		{" Absentee ", TagAbsentee},
		{"VACANT", TagVacant},
		{"  Hot Lead ", "Hot Lead"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := CanonicalTag(tt.in); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestCanonicalTags_DedupesAndDropsBlanks(t *testing.T) {
	got := CanonicalTags([]string{"High Equity", "", "highEquity", "vacant", "  "})
	if len(got) != 2 || got[0] != TagHighEquity || got[1] != TagVacant {
		t.Fatalf("unexpected tags: %v", got)
	}
}

func TestListingHasCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng float64
		want     bool
	}{
		{"houston", 29.7604, -95.3698, true},
		{"nan lat", math.NaN(), -95.3698, false},
		{"inf lng", 29.7604, math.Inf(1), false},
		{"out of range", 91, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := Listing{Lat: tt.lat, Lng: tt.lng}
			if got := l.HasCoordinates(); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestListingPPSF(t *testing.T) {
	stored := 150.0
	if v, ok := (Listing{Price: 300000, Sqft: 1500}).PPSF(); !ok || v != 200 {
		t.Fatalf("expected computed 200, got %v (%v)", v, ok)
	}
	if v, ok := (Listing{Price: 300000, Sqft: 1500, PricePerSqft: &stored}).PPSF(); !ok || v != 150 {
		t.Fatalf("expected stored 150, got %v (%v)", v, ok)
	}
	if _, ok := (Listing{Price: 300000}).PPSF(); ok {
		t.Fatal("expected no price per sqft without square footage")
	}
}
