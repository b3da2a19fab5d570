package models

// LatLng is a geographic point in decimal degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Bounds is a latitude/longitude rectangle. It does not handle boxes that
// cross the antimeridian.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Contains reports whether p lies inside b, edges included.
func (b Bounds) Contains(p LatLng) bool {
	return p.Lat >= b.South && p.Lat <= b.North && p.Lng >= b.West && p.Lng <= b.East
}

// Extend grows b to include p.
func (b Bounds) Extend(p LatLng) Bounds {
	if p.Lat > b.North {
		b.North = p.Lat
	}
	if p.Lat < b.South {
		b.South = p.Lat
	}
	if p.Lng > b.East {
		b.East = p.Lng
	}
	if p.Lng < b.West {
		b.West = p.Lng
	}
	return b
}

// Position returns the listing's coordinates.
func (l Listing) Position() LatLng {
	return LatLng{Lat: l.Lat, Lng: l.Lng}
}
