package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/david/proper-search/internal/models"
	"github.com/xuri/excelize/v2"
)

const SheetName = "Listings"

// WriteXLSX writes the same columns as WriteCSV to a single-sheet workbook.
// Numeric columns are stored as numbers; missing values are empty cells.
func WriteXLSX(w io.Writer, listings []models.Listing) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("open stream writer: %w", err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, l := range listings {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, xlsxRow(l)); err != nil {
			return fmt.Errorf("write listing %s: %w", l.ID, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}

	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func xlsxRow(l models.Listing) []interface{} {
	row := []interface{}{
		l.ID.String(),
		l.Address,
		l.City,
		l.State,
		l.Zip,
		l.Price,
		l.Beds,
		l.Baths,
		l.Sqft,
		nil,
		string(l.PropertyType),
		nil,
		nil,
		nil,
		strings.Join(l.Tags, TagSeparator),
	}
	if l.EquityPct != nil {
		row[9] = *l.EquityPct
	}
	if l.YearBuilt != nil {
		row[11] = *l.YearBuilt
	}
	if l.HasCoordinates() {
		row[12] = l.Lat
		row[13] = l.Lng
	}
	return row
}
