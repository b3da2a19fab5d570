package models

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
)

type PropertyType string

const (
	PropertyHouse       PropertyType = "house"
	PropertyCondo       PropertyType = "condo"
	PropertyTownhouse   PropertyType = "townhouse"
	PropertyLand        PropertyType = "land"
	PropertyMultiFamily PropertyType = "multi-family"
)

// Valid reports whether t is one of the known property classifications.
func (t PropertyType) Valid() bool {
	switch t {
	case PropertyHouse, PropertyCondo, PropertyTownhouse, PropertyLand, PropertyMultiFamily:
		return true
	}
	return false
}

type Status string

const (
	StatusActive  Status = "active"
	StatusPending Status = "pending"
	StatusSold    Status = "sold"
)

// Listing is a single property record as served by the listing store.
// Listings are treated as immutable snapshots once fetched.
type Listing struct {
	ID           uuid.UUID    `json:"id"`
	Address      string       `json:"address"`
	City         string       `json:"city"`
	State        string       `json:"state"`
	Zip          string       `json:"zip"`
	Price        float64      `json:"price"`
	Beds         int          `json:"beds"`
	Baths        float64      `json:"baths"`
	Sqft         float64      `json:"sqft"`
	LotSize      *float64     `json:"lot_size,omitempty"`
	YearBuilt    *int         `json:"year_built,omitempty"`
	DaysOnMarket *int         `json:"days_on_market,omitempty"`
	EquityPct    *float64     `json:"equity_pct,omitempty"`
	PricePerSqft *float64     `json:"price_per_sqft,omitempty"`
	Lat          float64      `json:"lat"`
	Lng          float64      `json:"lng"`
	PropertyType PropertyType `json:"property_type"`
	Tags         []string     `json:"tags"`
	Status       Status       `json:"status"`
	SoldDate     *time.Time   `json:"sold_date,omitempty"`
	SoldPrice    *float64     `json:"sold_price,omitempty"`
	Image        string       `json:"image,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

// HasCoordinates reports whether the listing can be placed on a map and used
// in distance computations.
func (l Listing) HasCoordinates() bool {
	if math.IsNaN(l.Lat) || math.IsInf(l.Lat, 0) || math.IsNaN(l.Lng) || math.IsInf(l.Lng, 0) {
		return false
	}
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// PPSF returns the listing's price per square foot, preferring the stored
// value. ok is false when neither is available.
func (l Listing) PPSF() (float64, bool) {
	if l.PricePerSqft != nil && *l.PricePerSqft > 0 {
		return *l.PricePerSqft, true
	}
	if l.Sqft <= 0 {
		return 0, false
	}
	return l.Price / l.Sqft, true
}

// HasTag reports whether the listing carries tag, comparing canonical forms.
func (l Listing) HasTag(tag string) bool {
	want := CanonicalTag(tag)
	for _, t := range l.Tags {
		if CanonicalTag(t) == want {
			return true
		}
	}
	return false
}

type plainListing Listing

type listingJSON struct {
	plainListing
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

func (l Listing) jsonView() listingJSON {
	v := listingJSON{plainListing: plainListing(l)}
	if l.HasCoordinates() {
		lat, lng := l.Lat, l.Lng
		v.Lat, v.Lng = &lat, &lng
	}
	return v
}

// MarshalJSON writes unusable coordinates as null.
func (l Listing) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.jsonView())
}

// Comp is a sold listing with its great-circle distance from a subject listing.
type Comp struct {
	Listing
	DistanceMiles float64 `json:"distance_miles"`
}

func (c Comp) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		listingJSON
		DistanceMiles float64 `json:"distance_miles"`
	}{c.Listing.jsonView(), c.DistanceMiles})
}

// Filters holds the optional structured search constraints. Nil or zero
// fields apply no constraint.
type Filters struct {
	City         string       `json:"city,omitempty" yaml:"city,omitempty"`
	MinBeds      *int         `json:"min_beds,omitempty" yaml:"min_beds,omitempty"`
	MaxPrice     *float64     `json:"max_price,omitempty" yaml:"max_price,omitempty"`
	MinSqft      *float64     `json:"min_sqft,omitempty" yaml:"min_sqft,omitempty"`
	PropertyType PropertyType `json:"property_type,omitempty" yaml:"property_type,omitempty"`
	Absentee     bool         `json:"absentee,omitempty" yaml:"absentee,omitempty"`
	HighEquity   bool         `json:"high_equity,omitempty" yaml:"high_equity,omitempty"`
	Vacant       bool         `json:"vacant,omitempty" yaml:"vacant,omitempty"`
}

// QuickTags returns the canonical tags required by the enabled quick filters.
func (f Filters) QuickTags() []string {
	var tags []string
	if f.Absentee {
		tags = append(tags, TagAbsentee)
	}
	if f.HighEquity {
		tags = append(tags, TagHighEquity)
	}
	if f.Vacant {
		tags = append(tags, TagVacant)
	}
	return tags
}
