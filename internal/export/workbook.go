// Package export renders snapshot presentations and grouped material lists as
// spreadsheet workbooks, for operators who print or hand the inventory around.
package export

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"rental-billing/internal/core"
)

const (
	summarySheet   = "Summary"
	materialsSheet = "Materials"
)

// Workbook builds a two-sheet workbook from a snapshot presentation: a summary
// sheet with the document totals and the per-category aggregate table, and a
// materials sheet with the detailed grouped item list.
func Workbook(pres *core.SnapshotPresentation) (*excelize.File, error) {
	f := excelize.NewFile()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetName(sheet, summarySheet); err != nil {
		return nil, fmt.Errorf("failed to rename summary sheet: %w", err)
	}

	if err := writeSummary(f, pres); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(materialsSheet); err != nil {
		return nil, fmt.Errorf("failed to create materials sheet: %w", err)
	}
	if err := writeMaterials(f, materialsSheet, pres.Groups); err != nil {
		return nil, err
	}
	return f, nil
}

// WriteFile renders the presentation workbook to path.
func WriteFile(path string, pres *core.SnapshotPresentation) error {
	f, err := Workbook(pres)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func writeSummary(f *excelize.File, pres *core.SnapshotPresentation) error {
	header := [][]any{
		{"Document", fmt.Sprintf("%s %s", pres.Kind, pres.Number)},
		{"Date", pres.Date.Format("2006-01-02")},
		{"Days", pres.DaysCount},
		{"Degressive rate", pres.DegressiveRate.String()},
		{"Discount rate (%)", pres.DiscountRate.String()},
		{"VAT rate (%)", pres.VatRate.String()},
		{},
		{"Daily amount", money(pres.DailyAmount), pres.Currency},
		{"Discount", money(pres.DiscountAmount), pres.Currency},
		{"Daily total excl. VAT", money(pres.DailyTotal), pres.Currency},
		{"VAT", money(pres.VatAmount), pres.Currency},
		{"Total excl. VAT", money(pres.TotalExclVat), pres.Currency},
		{"Total incl. VAT", money(pres.TotalInclVat), pres.Currency},
		{"Replacement value", money(pres.ReplacementAmount), pres.Currency},
		{},
		{"Category", "Quantity", "Subtotal"},
	}

	row := 1
	for _, values := range header {
		if err := setRow(f, summarySheet, row, values); err != nil {
			return err
		}
		row++
	}
	for _, ct := range pres.Categories {
		if err := setRow(f, summarySheet, row, []any{ct.Name, ct.Quantity, money(ct.SubTotal)}); err != nil {
			return err
		}
		row++
	}
	return nil
}

func writeMaterials(f *excelize.File, sheet string, groups []core.MaterialGroup) error {
	row := 1
	for _, g := range groups {
		name := g.Name
		if g.CategoryName != "" && g.CategoryName != g.Name {
			name = fmt.Sprintf("%s / %s", g.CategoryName, g.Name)
		}
		if name != "" {
			if err := setRow(f, sheet, row, []any{name}); err != nil {
				return err
			}
			row++
		}
		if err := setRow(f, sheet, row, []any{"Reference", "Name", "Park", "Qty", "Rental price", "Total", "Replacement"}); err != nil {
			return err
		}
		row++
		for _, item := range g.Items {
			values := []any{
				item.Reference,
				item.Name,
				item.ParkName,
				item.Quantity,
				money(item.RentalPrice),
				money(item.Total),
				money(item.TotalReplacementPrice),
			}
			if err := setRow(f, sheet, row, values); err != nil {
				return err
			}
			row++
		}
		row++ // blank separator between groups
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to compute cell for row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

// money converts a decimal to the float64 excelize stores in numeric cells. The
// values are already rounded to 2 decimals by the presentation layer.
func money(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
