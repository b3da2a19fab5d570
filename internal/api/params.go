package api

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/david/proper-search/internal/models"
	"github.com/david/proper-search/internal/search"
	"github.com/labstack/echo/v4"
)

// parseSearchRequest reads listing filters from the query string. Malformed
// numeric filters are ignored, as are non-positive ones.
func parseSearchRequest(c echo.Context, defaultLimit int) (search.Request, error) {
	f := models.Filters{
		City:       strings.TrimSpace(c.QueryParam("city")),
		Absentee:   queryBool(c, "absentee"),
		HighEquity: queryBool(c, "high_equity"),
		Vacant:     queryBool(c, "vacant"),
	}

	if v, err := strconv.Atoi(c.QueryParam("min_beds")); err == nil && v > 0 {
		f.MinBeds = &v
	}
	if v, err := strconv.ParseFloat(c.QueryParam("max_price"), 64); err == nil && v > 0 {
		f.MaxPrice = &v
	}
	if v, err := strconv.ParseFloat(c.QueryParam("min_sqft"), 64); err == nil && v > 0 {
		f.MinSqft = &v
	}
	if pt := strings.ToLower(strings.TrimSpace(c.QueryParam("property_type"))); pt != "" && pt != "any" {
		t := models.PropertyType(pt)
		if !t.Valid() {
			return search.Request{}, fmt.Errorf("unknown property type %q", pt)
		}
		f.PropertyType = t
	}

	bounds, err := parseBounds(c)
	if err != nil {
		return search.Request{}, err
	}

	return search.Request{
		Query:   c.QueryParam("q"),
		Filters: f,
		Sort:    c.QueryParam("sort"),
		Bounds:  bounds,
		Limit:   queryInt(c, "limit", defaultLimit),
	}, nil
}

// parseBounds reads north/south/east/west. Either all four are given or
// none are.
func parseBounds(c echo.Context) (*models.Bounds, error) {
	names := []string{"north", "south", "east", "west"}
	vals := make([]float64, len(names))
	given := 0
	for i, n := range names {
		raw := c.QueryParam(n)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %q", n, raw)
		}
		vals[i] = v
		given++
	}

	switch given {
	case 0:
		return nil, nil
	case len(names):
		b := &models.Bounds{North: vals[0], South: vals[1], East: vals[2], West: vals[3]}
		if b.North < b.South || b.East < b.West {
			return nil, fmt.Errorf("bounds are inverted")
		}
		return b, nil
	default:
		return nil, fmt.Errorf("bounds need north, south, east and west")
	}
}

func queryBool(c echo.Context, name string) bool {
	v, err := strconv.ParseBool(c.QueryParam(name))
	return err == nil && v
}

func queryInt(c echo.Context, name string, fallback int) int {
	if v, err := strconv.Atoi(c.QueryParam(name)); err == nil {
		return v
	}
	return fallback
}

func queryFloat(c echo.Context, name string, fallback float64) float64 {
	if v, err := strconv.ParseFloat(c.QueryParam(name), 64); err == nil {
		return v
	}
	return fallback
}
