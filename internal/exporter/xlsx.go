package exporter

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/NIKPRIN6598/Cleaner-Selector/internal/dataset"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/filter"
)

const xlsxSheet = "Results"

// WriteXLSX writes the view as a single-sheet workbook. Numeric cells are
// stored as numbers, missing ones are left empty.
func WriteXLSX(dst io.Writer, view filter.View) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, 0, len(view.Columns()))
	for _, name := range view.Columns() {
		header = append(header, name)
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	cols := view.Table.Columns()
	for _, row := range view.Rows {
		values := make([]interface{}, len(cols))
		for i, col := range cols {
			switch {
			case col.Kind != dataset.Numeric:
				values[i] = row.Record.Cells[i]
			case row.Record.Numbers[i].Valid:
				values[i] = row.Record.Numbers[i].Value
			default:
				values[i] = nil
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, row.Index+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", row.Index, err)
		}
	}

	if err := f.SetPanes(xlsxSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if _, err := f.WriteTo(dst); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
