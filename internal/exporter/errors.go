package exporter

import "errors"

var (
	// ErrEmptyView is returned when an image is requested for a view with
	// no rows. The export is skipped rather than producing a blank table.
	ErrEmptyView = errors.New("no rows to export")

	// ErrTooManyRows is returned when an image is requested for more rows
	// than the renderer's row limit.
	ErrTooManyRows = errors.New("too many rows for an image")

	// ErrUnsupportedFormat is returned for an unknown export format name.
	ErrUnsupportedFormat = errors.New("unsupported export format")
)
