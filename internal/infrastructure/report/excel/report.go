// Package excel renders scan results as an xlsx workbook for analysts who
// review match suggestions outside the dashboard.
package excel

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/dmitrovk/portal-reconciler/internal/core/domain"
)

var suggestionHeaders = []string{
	"Record ID", "External ID", "Portal", "Buyer", "Record Total", "Currency",
	"Invoice ID", "Invoice Number", "Score", "Reasons",
}

const suggestionSheet = "Suggestions"

// BuildSuggestionReport writes one row per (record, suggestion) pair, in the
// ranked order the matcher produced. Records without suggestions still get a
// row so analysts can see what the scan could not place.
func BuildSuggestionReport(results []domain.RecordSuggestions) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", suggestionSheet)

	boldStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, h := range suggestionHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		if err := f.SetCellValue(suggestionSheet, cell, h); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
		if err := f.SetCellStyle(suggestionSheet, cell, cell, boldStyle); err != nil {
			return nil, fmt.Errorf("style header: %w", err)
		}
	}

	row := 2
	for _, rs := range results {
		if len(rs.Matches) == 0 {
			writeRecordCells(f, row, rs.Record)
			row++
			continue
		}
		for _, m := range rs.Matches {
			writeRecordCells(f, row, rs.Record)
			f.SetCellValue(suggestionSheet, fmt.Sprintf("G%d", row), m.InvoiceID)
			f.SetCellValue(suggestionSheet, fmt.Sprintf("H%d", row), m.InvoiceNumber)
			f.SetCellValue(suggestionSheet, fmt.Sprintf("I%d", row), m.Score)
			f.SetCellValue(suggestionSheet, fmt.Sprintf("J%d", row), reasonSummary(m.Reasons))
			row++
		}
	}

	colWidths := []float64{16, 16, 12, 20, 12, 8, 16, 16, 8, 48}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(suggestionSheet, col, col, w)
	}

	return f, nil
}

// ReportFilename stamps the export so repeated downloads do not collide.
func ReportFilename(now time.Time) string {
	return fmt.Sprintf("suggestions_%s.xlsx", now.UTC().Format("20060102_150405"))
}

func writeRecordCells(f *excelize.File, row int, rec domain.PortalRecord) {
	f.SetCellValue(suggestionSheet, fmt.Sprintf("A%d", row), rec.ID)
	f.SetCellValue(suggestionSheet, fmt.Sprintf("B%d", row), rec.ExternalID)
	f.SetCellValue(suggestionSheet, fmt.Sprintf("C%d", row), rec.Portal)
	f.SetCellValue(suggestionSheet, fmt.Sprintf("D%d", row), rec.BuyerName)
	f.SetCellValue(suggestionSheet, fmt.Sprintf("E%d", row), rec.Total.String())
	f.SetCellValue(suggestionSheet, fmt.Sprintf("F%d", row), rec.Currency)
}

func reasonSummary(reasons []domain.MatchReason) string {
	parts := make([]string, 0, len(reasons))
	for _, r := range reasons {
		parts = append(parts, fmt.Sprintf("%s (%s)", r.Label, r.Confidence))
	}
	return strings.Join(parts, "; ")
}
