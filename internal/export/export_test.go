package export

import (
	"bytes"
	"encoding/csv"
	"math"
	"strings"
	"testing"

	"github.com/david/proper-search/internal/models"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

func sample() []models.Listing {
	equity := 42.5
	year := 1987
	return []models.Listing{
		{
			ID: uuid.New(), Address: `12 "Old Mill" Rd, Unit 4`, City: "Houston", State: "TX", Zip: "77002",
			Price: 249999.5, Beds: 3, Baths: 2.5, Sqft: 1500, EquityPct: &equity, PropertyType: models.PropertyHouse,
			YearBuilt: &year, Lat: 29.7604, Lng: -95.3698, Tags: []string{models.TagHighEquity, models.TagVacant},
		},
		{
			ID: uuid.New(), Address: "line one\nline two", City: "Katy", State: "TX", Zip: "77449",
			Price: 100000, Lat: math.NaN(), Lng: math.NaN(),
		},
	}
}

func TestWriteCSV_RoundTrip(t *testing.T) {
	items := sample()

	var buf bytes.Buffer
	if err := WriteCSV(&buf, items); err != nil {
		t.Fatalf("write: %v", err)
	}

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(records))
	}
	if strings.Join(records[0], ",") != strings.Join(Columns, ",") {
		t.Fatalf("unexpected header: %v", records[0])
	}

	first := records[1]
	want := []string{
		items[0].ID.String(), items[0].Address, "Houston", "TX", "77002", "249999.5", "3", "2.5", "1500",
		"42.5", "house", "1987", "29.7604", "-95.3698", "highEquity|vacant",
	}
	for i := range want {
		if first[i] != want[i] {
			t.Fatalf("column %s: expected %q, got %q", Columns[i], want[i], first[i])
		}
	}

	second := records[2]
	if second[1] != "line one\nline two" {
		t.Fatalf("expected embedded newline preserved, got %q", second[1])
	}
	if second[9] != "" || second[11] != "" || second[12] != "" || second[14] != "" {
		t.Fatalf("expected blank optional fields, got %v", second)
	}
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != strings.Join(Columns, ",") {
		t.Fatalf("expected header only, got %q", got)
	}
}

func TestWriteXLSX(t *testing.T) {
	items := sample()

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, items); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != SheetName {
		t.Fatalf("expected only %s sheet, got %v", SheetName, sheets)
	}

	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "id" || rows[0][14] != "tags" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[1][1] != items[0].Address || rows[1][14] != "highEquity|vacant" {
		t.Fatalf("unexpected first row: %v", rows[1])
	}
}
