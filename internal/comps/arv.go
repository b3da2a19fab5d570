package comps

import (
	"math"
	"sort"

	"github.com/david/proper-search/internal/models"
)

// ARV is an after-repair value estimate derived from comps' sold price per
// square foot.
type ARV struct {
	AvgPricePerSqft    float64 `json:"avg_price_per_sqft"`
	MedianPricePerSqft float64 `json:"median_price_per_sqft"`
	EstimatedARV       float64 `json:"estimated_arv"`
	CompCount          int     `json:"comp_count"`
}

// EstimateARV values subjectSqft at the comps' mean sold $/sqft. Only comps
// with a positive sold price and square footage count. It returns nil when
// none qualify, meaning there is not enough data.
func EstimateARV(subjectSqft float64, comps []models.Comp) *ARV {
	var ppsf []float64
	for _, c := range comps {
		if c.SoldPrice == nil || *c.SoldPrice <= 0 || c.Sqft <= 0 {
			continue
		}
		ppsf = append(ppsf, *c.SoldPrice/c.Sqft)
	}
	if len(ppsf) == 0 {
		return nil
	}

	var sum float64
	for _, v := range ppsf {
		sum += v
	}
	mean := sum / float64(len(ppsf))

	return &ARV{
		AvgPricePerSqft:    mean,
		MedianPricePerSqft: median(ppsf),
		EstimatedARV:       math.Round(subjectSqft * mean),
		CompCount:          len(ppsf),
	}
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
