// Package export renders monthly reports into downloadable files.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"brauer/internal/domain/excise"
)

const reportSheet = "Monthly Report"

// WriteReportXLSX renders the report as a spreadsheet: the balance section
// first, then the tax breakdown by Plato group.
func WriteReportXLSX(w io.Writer, report *excise.MonthlyReport) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(reportSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	setCell := func(cell string, value any) {
		_ = f.SetCellValue(reportSheet, cell, value)
	}
	setHeader := func(cell, value string) {
		setCell(cell, value)
		_ = f.SetCellStyle(reportSheet, cell, cell, bold)
	}

	setHeader("A1", "Excise Monthly Report")
	setCell("B1", report.Period)
	setCell("A2", "Status")
	setCell("B2", string(report.Status))
	if report.SubmittedAt != nil {
		setCell("A3", "Submitted at")
		setCell("B3", report.SubmittedAt.Format("2006-01-02 15:04:05"))
		setCell("A4", "Submitted by")
		setCell("B4", report.SubmittedBy)
	}

	setHeader("A6", "Balance (hl)")
	balanceRows := []struct {
		label string
		value string
	}{
		{"Opening balance", report.OpeningBalanceHl.String()},
		{"Production", report.ProductionHl.String()},
		{"Transfer in", report.TransferInHl.String()},
		{"Release", report.ReleaseHl.String()},
		{"Transfer out", report.TransferOutHl.String()},
		{"Loss", report.LossHl.String()},
		{"Destruction", report.DestructionHl.String()},
		{"Adjustment", report.AdjustmentHl.String()},
		{"Closing balance", report.ClosingBalanceHl.String()},
	}
	row := 7
	for _, r := range balanceRows {
		setCell(fmt.Sprintf("A%d", row), r.label)
		setCell(fmt.Sprintf("B%d", row), r.value)
		row++
	}

	row++
	setHeader(fmt.Sprintf("A%d", row), "Tax by Plato group")
	row++
	setHeader(fmt.Sprintf("A%d", row), "Plato")
	setHeader(fmt.Sprintf("B%d", row), "Volume (hl)")
	setHeader(fmt.Sprintf("C%d", row), "Tax")
	row++
	for _, d := range report.TaxDetails {
		setCell(fmt.Sprintf("A%d", row), d.Plato.String())
		setCell(fmt.Sprintf("B%d", row), d.VolumeHl.String())
		setCell(fmt.Sprintf("C%d", row), d.Tax.String())
		row++
	}
	setHeader(fmt.Sprintf("A%d", row), "Total")
	setCell(fmt.Sprintf("C%d", row), report.TotalTax.String())

	_ = f.SetColWidth(reportSheet, "A", "A", 22)
	_ = f.SetColWidth(reportSheet, "B", "C", 14)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
