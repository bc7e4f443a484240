package exporter

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/NIKPRIN6598/Cleaner-Selector/internal/filter"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter provides CSV export functionality
type CSVWriter struct{}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter() *CSVWriter {
	return &CSVWriter{}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// Write streams the view as CSV: one header row, then every row of the view
// without an index column.
func (w *CSVWriter) Write(dst io.Writer, view filter.View, options WriteOptions) error {
	if options.BOMPrefix {
		if _, err := dst.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(dst)
	if err := writer.Write(view.Columns()); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for _, row := range view.Rows {
		if err := writer.Write(view.RowCells(row)); err != nil {
			return fmt.Errorf("failed to write record %d: %w", row.Index, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
