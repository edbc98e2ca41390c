// Package report renders aggregate calculation results for download.
package report

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/wattwise/wattwise/pkg/types"
)

const (
	summarySheet    = "summary"
	appliancesSheet = "appliances"
)

var applianceHeader = []any{
	"Appliance",
	"Wattage (W)",
	"Daily (kWh)",
	"Weekly (kWh)",
	"Monthly (kWh)",
	"Daily Cost",
	"Weekly Cost",
	"Monthly Cost",
}

// XLSX renders res as a workbook with a summary sheet and one row per
// appliance on the appliances sheet.
func XLSX(res types.AggregateResult, rate float64) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("failed to rename summary sheet: %w", err)
	}
	if _, err := f.NewSheet(appliancesSheet); err != nil {
		return nil, fmt.Errorf("failed to create appliances sheet: %w", err)
	}

	summary := [][]any{
		{"Electricity Usage Estimate"},
		{},
		{"Rate (per kWh)", rate},
		{"Appliances", len(res.Appliances)},
		{},
		{"", "Daily", "Weekly", "Monthly"},
		{"Consumption (kWh)", res.TotalConsumption.Daily, res.TotalConsumption.Weekly, res.TotalConsumption.Monthly},
		{"Cost", res.TotalCost.Daily, res.TotalCost.Weekly, res.TotalCost.Monthly},
	}
	if err := setRows(f, summarySheet, summary); err != nil {
		return nil, err
	}

	rows := make([][]any, 0, len(res.Appliances)+1)
	rows = append(rows, applianceHeader)
	for _, a := range res.Appliances {
		rows = append(rows, []any{
			a.Name,
			a.Wattage,
			a.Consumption.Daily,
			a.Consumption.Weekly,
			a.Consumption.Monthly,
			a.Cost.Daily,
			a.Cost.Weekly,
			a.Cost.Monthly,
		})
	}
	if err := setRows(f, appliancesSheet, rows); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to set %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

// PDF renders res as a single A4 document with the totals and a table of
// appliances.
func PDF(res types.AggregateResult, rate float64) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	// core fonts are cp1252
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFont("Arial", "B", 14)
	pdf.AddPage()

	pdf.Cell(0, 8, "Electricity Usage Estimate")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Rate (per kWh): %.2f", rate))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Appliances: %d", len(res.Appliances)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(40, 6, "", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Daily", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Weekly", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Monthly", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	totalsRow(pdf, "Consumption (kWh)", res.TotalConsumption.Daily, res.TotalConsumption.Weekly, res.TotalConsumption.Monthly)
	totalsRow(pdf, "Cost", res.TotalCost.Daily, res.TotalCost.Weekly, res.TotalCost.Monthly)
	pdf.Ln(8)

	widths := []float64{46, 20, 20, 20, 22, 20, 20, 22}
	pdf.SetFont("Arial", "B", 8)
	for i, h := range applianceHeader {
		pdf.CellFormat(widths[i], 6, h.(string), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 8)
	for _, a := range res.Appliances {
		pdf.CellFormat(widths[0], 6, tr(a.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, fmt.Sprintf("%g", a.Wattage), "1", 0, "R", false, 0, "")
		for i, v := range []float64{
			a.Consumption.Daily,
			a.Consumption.Weekly,
			a.Consumption.Monthly,
			a.Cost.Daily,
			a.Cost.Weekly,
			a.Cost.Monthly,
		} {
			pdf.CellFormat(widths[i+2], 6, fmt.Sprintf("%.2f", v), "1", 0, "R", false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func totalsRow(pdf *gofpdf.Fpdf, label string, daily, weekly, monthly float64) {
	pdf.CellFormat(40, 6, label, "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 6, fmt.Sprintf("%.2f", daily), "1", 0, "R", false, 0, "")
	pdf.CellFormat(40, 6, fmt.Sprintf("%.2f", weekly), "1", 0, "R", false, 0, "")
	pdf.CellFormat(40, 6, fmt.Sprintf("%.2f", monthly), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)
}
