package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// LoadOptions tunes how a file is read.
type LoadOptions struct {
	// Sheet selects the workbook sheet. Empty means the first sheet.
	Sheet string
	// Logger receives load diagnostics. Nil falls back to slog.Default.
	Logger *slog.Logger
}

// LoadFile reads a dataset from disk, choosing the reader by extension.
func LoadFile(ctx context.Context, path string, opts LoadOptions) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		t   *Table
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		t, err = loadWorkbook(path, opts.Sheet)
	case ".csv":
		t, err = loadCSVFile(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	logger.InfoContext(ctx, "dataset loaded",
		slog.String("path", path),
		slog.Int("records", t.Len()),
		slog.Int("columns", len(t.columns)))

	return t, nil
}

func loadWorkbook(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	return ReadWorkbook(f, sheet)
}

// ReadWorkbook extracts a table from an open workbook.
func ReadWorkbook(f *excelize.File, sheet string) (*Table, error) {
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmptySheet
		}
		sheet = sheets[0]
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}
	return NewTable(rows[0], rows[1:])
}

func loadCSVFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	return ReadCSV(f)
}

// ReadCSV parses a header-first CSV stream into a table. A leading UTF-8 BOM
// is ignored.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptySheet
	}
	if len(rows[0]) > 0 {
		rows[0][0] = strings.TrimPrefix(rows[0][0], "\ufeff")
	}
	return NewTable(rows[0], rows[1:])
}
