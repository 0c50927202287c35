// Package export renders scan history as spreadsheet downloads.
package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/pillflow/pillflow-backend/internal/pharmacy/domain"
	"github.com/xuri/excelize/v2"
)

const (
	scanSheet      = "Scans"
	dateTimeFormat = "yyyy-mm-dd hh:mm"
)

// ScanHeader is the header row of the scan export
var ScanHeader = []string{
	"Customer",
	"Barcode",
	"Staff",
	"Weeks Supply",
	"Collected",
	"Next Due",
}

var scanColumnWidths = []float64{28, 22, 8, 14, 18, 18}

// ScansWorkbook builds an XLSX workbook with one row per scan. Times are
// written in loc.
func ScansWorkbook(scans []*domain.Scan, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.Local
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(scanSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	dateFormat := dateTimeFormat
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &dateFormat})
	if err != nil {
		return nil, fmt.Errorf("failed to create date style: %w", err)
	}

	if err := f.SetSheetRow(scanSheet, "A1", &ScanHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	if err := f.SetCellStyle(scanSheet, "A1", "F1", headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}
	for i, width := range scanColumnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(scanSheet, col, col, width); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, s := range scans {
		row := i + 2
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}
		values := []interface{}{
			s.CustomerName,
			s.Barcode,
			s.StaffInitials,
			s.WeeksSupply,
			wallClock(s.CollectionDate, loc),
			wallClock(s.NextDueDate, loc),
		}
		if err := f.SetSheetRow(scanSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", row, err)
		}
	}
	if len(scans) > 0 {
		last := fmt.Sprintf("F%d", len(scans)+1)
		if err := f.SetCellStyle(scanSheet, "E2", last, dateStyle); err != nil {
			return nil, fmt.Errorf("failed to style dates: %w", err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// wallClock re-expresses t in loc as a zone-less time; spreadsheet cells
// carry no zone and excelize would otherwise write UTC.
func wallClock(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), l.Minute(), l.Second(), 0, time.UTC)
}

// Filename returns the download name for an export made at now
func Filename(now time.Time) string {
	return fmt.Sprintf("webster-pack-scans-%s.xlsx", now.Format("2006-01-02"))
}
