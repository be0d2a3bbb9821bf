package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"brauer/internal/core/id"
	"brauer/internal/core/types"
	"brauer/internal/domain/excise"
)

func TestWriteReportXLSX(t *testing.T) {
	report := excise.NewMonthlyReport(id.New(), "2026-03")
	report.OpeningBalanceHl = types.MustDecimal("42")
	report.ProductionHl = types.MustDecimal("100")
	report.ReleaseHl = types.MustDecimal("60")
	report.ClosingBalanceHl = report.ComputeClosing()
	report.TotalTax = types.MustDecimal("178.96")
	report.TaxDetails = excise.TaxDetails{
		{Plato: types.MustDecimal("11.5"), VolumeHl: types.MustDecimal("40"), Tax: types.MustDecimal("100.16")},
		{Plato: types.MustDecimal("12.5"), VolumeHl: types.MustDecimal("20"), Tax: types.MustDecimal("78.8")},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteReportXLSX(&buf, report))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	require.Equal(t, []string{"Monthly Report"}, sheets)

	period, err := f.GetCellValue("Monthly Report", "B1")
	require.NoError(t, err)
	assert.Equal(t, "2026-03", period)

	opening, err := f.GetCellValue("Monthly Report", "B7")
	require.NoError(t, err)
	assert.Equal(t, "42", opening)

	closing, err := f.GetCellValue("Monthly Report", "B15")
	require.NoError(t, err)
	assert.Equal(t, "82", closing)

	firstPlato, err := f.GetCellValue("Monthly Report", "A19")
	require.NoError(t, err)
	assert.Equal(t, "11.5", firstPlato)

	total, err := f.GetCellValue("Monthly Report", "C21")
	require.NoError(t, err)
	assert.Equal(t, "178.96", total)
}

func TestWriteReportXLSX_EmptyTaxDetails(t *testing.T) {
	report := excise.NewMonthlyReport(id.New(), "2026-04")

	var buf bytes.Buffer
	require.NoError(t, WriteReportXLSX(&buf, report))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	total, err := f.GetCellValue("Monthly Report", "C19")
	require.NoError(t, err)
	assert.Equal(t, "0", total)
}
