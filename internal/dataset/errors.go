package dataset

import "errors"

var (
	// ErrMissingColumns is returned when the header lacks a required column.
	ErrMissingColumns = errors.New("dataset is missing required columns")

	// ErrEmptySheet is returned when a sheet has no header row.
	ErrEmptySheet = errors.New("dataset sheet is empty")

	// ErrUnsupportedFormat is returned for file extensions no loader handles.
	ErrUnsupportedFormat = errors.New("unsupported dataset format")

	// ErrSheetNotFound is returned when the configured sheet does not exist.
	ErrSheetNotFound = errors.New("sheet not found")
)
