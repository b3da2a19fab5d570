// Package export writes listing selections as CSV or XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/david/proper-search/internal/models"
)

// Columns is the fixed export header.
var Columns = []string{
	"id", "address", "city", "state", "zip", "price", "beds", "baths", "sqft",
	"equity_pct", "property_type", "year_built", "lat", "lng", "tags",
}

// TagSeparator joins a listing's tags into one cell.
const TagSeparator = "|"

// WriteCSV writes a header and one row per listing. Fields are quoted as
// needed so addresses with commas or quotes read back unchanged.
func WriteCSV(w io.Writer, listings []models.Listing) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, l := range listings {
		if err := cw.Write(csvRecord(l)); err != nil {
			return fmt.Errorf("write listing %s: %w", l.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRecord(l models.Listing) []string {
	return []string{
		l.ID.String(),
		l.Address,
		l.City,
		l.State,
		l.Zip,
		formatFloat(l.Price),
		strconv.Itoa(l.Beds),
		formatFloat(l.Baths),
		formatFloat(l.Sqft),
		formatOptFloat(l.EquityPct),
		string(l.PropertyType),
		formatOptInt(l.YearBuilt),
		formatCoord(l, l.Lat),
		formatCoord(l, l.Lng),
		strings.Join(l.Tags, TagSeparator),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatOptInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// formatCoord leaves unusable coordinates blank instead of writing NaN.
func formatCoord(l models.Listing, v float64) string {
	if !l.HasCoordinates() {
		return ""
	}
	return formatFloat(v)
}
