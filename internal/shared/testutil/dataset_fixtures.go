package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/NIKPRIN6598/Cleaner-Selector/internal/dataset"
)

// SampleHeader is the header row of the sample dataset.
var SampleHeader = []string{
	"Product", "Country", "Kind", "Application", "Effect", "Condition",
	"Etching Rate", "contains Surfactants", "Conc.", "Temp min", "Temp max",
}

// SampleRows holds ten records: five from US and five from DE. Exactly three
// have a concentration within [5, 10] and CL-180 has no concentration.
var SampleRows = [][]string{
	{"CL-100", "US", "Alkaline", "Aluminium", "Degreasing", "Immersion", "Low", "Yes", "2", "20", "60"},
	{"CL-110", "DE", "Acidic", "Steel", "Pickling", "Spray", "Medium", "No", "5", "30", "70"},
	{"CL-120", "US", "Neutral", "Copper", "Degreasing", "Ultrasonic", "Low", "Yes", "12", "25", "50"},
	{"CL-130", "DE", "Alkaline", "Aluminium", "Etching", "Immersion", "High", "No", "8", "40", "80"},
	{"CL-140", "US", "Acidic", "Steel", "Passivation", "Spray", "Medium", "Yes", "15", "20", "45"},
	{"CL-150", "DE", "Neutral", "Glass", "Degreasing", "Immersion", "Low", "No", "10", "15", "40"},
	{"CL-160", "US", "Alkaline", "Steel", "Degreasing", "Spray", "Low", "Yes", "3", "50", "90"},
	{"CL-170", "DE", "Acidic", "Copper", "Pickling", "Immersion", "High", "No", "20", "35", "65"},
	{"CL-180", "US", "Neutral", "Aluminium", "Degreasing", "Ultrasonic", "None", "Yes", "", "20", "55"},
	{"CL-190", "DE", "Alkaline", "Glass", "Etching", "Spray", "Medium", "No", "1.5", "60", "95"},
}

// SampleTable builds the sample dataset in memory.
func SampleTable(t testing.TB) *dataset.Table {
	t.Helper()
	table, err := dataset.NewTable(SampleHeader, SampleRows)
	require.NoError(t, err)
	return table
}

// WriteWorkbook saves header and rows as the first sheet of a new workbook
// in dir and returns its path.
func WriteWorkbook(t testing.TB, dir, name string, header []string, rows [][]string) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	write := func(rowNum int, cells []string) {
		values := make([]interface{}, len(cells))
		for i, c := range cells {
			values[i] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &values))
	}

	write(1, header)
	for i, row := range rows {
		write(i+2, row)
	}

	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}

// WriteSampleWorkbook saves the sample dataset as cleaners.xlsx in dir.
func WriteSampleWorkbook(t testing.TB, dir string) string {
	t.Helper()
	return WriteWorkbook(t, dir, "cleaners.xlsx", SampleHeader, SampleRows)
}
