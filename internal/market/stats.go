// Package market summarises a result set for the market insights view.
package market

import (
	"math"
	"sort"

	"github.com/david/proper-search/internal/models"
)

// HighEquityPct is the equity percentage at which a listing counts as high equity.
const HighEquityPct = 30.0

type Summary struct {
	Avg    float64 `json:"avg"`
	Median float64 `json:"median"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

type EquitySummary struct {
	Avg       float64 `json:"avg"`
	Median    float64 `json:"median"`
	HighCount int     `json:"high_count"`
}

// BedroomBucket groups listings by bedroom count. The last bucket is open
// ended (5+).
type BedroomBucket struct {
	Label    string   `json:"label"`
	MinBeds  int      `json:"min_beds"`
	Count    int      `json:"count"`
	AvgPrice float64  `json:"avg_price"`
	AvgDOM   *float64 `json:"avg_dom,omitempty"`
}

// PriceBand counts listings with Min <= price < Max. A nil Max is unbounded.
type PriceBand struct {
	Label string   `json:"label"`
	Min   float64  `json:"min"`
	Max   *float64 `json:"max,omitempty"`
	Count int      `json:"count"`
}

type Stats struct {
	Count         int             `json:"count"`
	Price         Summary         `json:"price"`
	Sqft          Summary         `json:"sqft"`
	PricePerSqft  *Summary        `json:"price_per_sqft"`
	DaysOnMarket  *Summary        `json:"days_on_market"`
	Equity        *EquitySummary  `json:"equity"`
	PropertyTypes map[string]int  `json:"property_types"`
	Bedrooms      []BedroomBucket `json:"bedrooms"`
	Tags          map[string]int  `json:"tags"`
	PriceBands    []PriceBand     `json:"price_bands"`
}

const maxBedroomBucket = 5

var bandEdges = []struct {
	label string
	min   float64
	max   float64
}{
	{"Under $100K", 0, 100000},
	{"$100K-$200K", 100000, 200000},
	{"$200K-$300K", 200000, 300000},
	{"$300K-$500K", 300000, 500000},
	{"$500K+", 500000, math.Inf(1)},
}

// Compute aggregates items. It returns nil for an empty set.
func Compute(items []models.Listing) *Stats {
	if len(items) == 0 {
		return nil
	}

	st := &Stats{
		Count:         len(items),
		PropertyTypes: map[string]int{},
		Tags:          map[string]int{models.TagAbsentee: 0, models.TagHighEquity: 0, models.TagVacant: 0},
	}

	prices := make([]float64, 0, len(items))
	sqfts := make([]float64, 0, len(items))
	var ppsf, dom, equity []float64

	bedPrices := make([][]float64, maxBedroomBucket+1)
	bedDOM := make([][]float64, maxBedroomBucket+1)

	for _, l := range items {
		prices = append(prices, l.Price)
		sqfts = append(sqfts, l.Sqft)
		if l.Sqft > 0 {
			ppsf = append(ppsf, l.Price/l.Sqft)
		}

		b := bedroomIndex(l.Beds)
		bedPrices[b] = append(bedPrices[b], l.Price)
		if l.DaysOnMarket != nil {
			dom = append(dom, float64(*l.DaysOnMarket))
			bedDOM[b] = append(bedDOM[b], float64(*l.DaysOnMarket))
		}
		if l.EquityPct != nil {
			equity = append(equity, *l.EquityPct)
		}

		pt := string(l.PropertyType)
		if pt == "" {
			pt = "unknown"
		}
		st.PropertyTypes[pt]++

		for _, tag := range models.CanonicalTags(l.Tags) {
			if _, ok := st.Tags[tag]; ok {
				st.Tags[tag]++
			}
		}
	}

	st.Price = summarize(prices)
	st.Sqft = summarize(sqfts)
	if len(ppsf) > 0 {
		s := summarize(ppsf)
		st.PricePerSqft = &s
	}
	if len(dom) > 0 {
		s := summarize(dom)
		st.DaysOnMarket = &s
	}
	if len(equity) > 0 {
		high := 0
		for _, e := range equity {
			if e >= HighEquityPct {
				high++
			}
		}
		st.Equity = &EquitySummary{Avg: Mean(equity), Median: Median(equity), HighCount: high}
	}

	st.Bedrooms = make([]BedroomBucket, 0, maxBedroomBucket+1)
	for i := 0; i <= maxBedroomBucket; i++ {
		bucket := BedroomBucket{
			Label:    bedroomLabel(i),
			MinBeds:  i,
			Count:    len(bedPrices[i]),
			AvgPrice: Mean(bedPrices[i]),
		}
		if len(bedDOM[i]) > 0 {
			avg := Mean(bedDOM[i])
			bucket.AvgDOM = &avg
		}
		st.Bedrooms = append(st.Bedrooms, bucket)
	}

	st.PriceBands = priceBands(prices)
	return st
}

func bedroomIndex(beds int) int {
	if beds < 0 {
		return 0
	}
	if beds > maxBedroomBucket {
		return maxBedroomBucket
	}
	return beds
}

func bedroomLabel(i int) string {
	if i == maxBedroomBucket {
		return "5+"
	}
	return string(rune('0' + i))
}

func priceBands(prices []float64) []PriceBand {
	bands := make([]PriceBand, len(bandEdges))
	for i, e := range bandEdges {
		bands[i] = PriceBand{Label: e.label, Min: e.min}
		if !math.IsInf(e.max, 1) {
			upper := e.max
			bands[i].Max = &upper
		}
	}
	for _, p := range prices {
		for i, e := range bandEdges {
			if p >= e.min && p < e.max {
				bands[i].Count++
				break
			}
		}
	}
	return bands
}

func summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	s := Summary{Avg: Mean(values), Median: Median(values), Min: values[0], Max: values[0]}
	for _, v := range values[1:] {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	return s
}

// Mean returns the arithmetic mean, or 0 for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Median returns the middle value, averaging the two middle values for an
// even count. It returns 0 for no values and does not modify its input.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
