package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/NIKPRIN6598/Cleaner-Selector/internal/config"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/filter"
)

// FileWriter saves views under a directory using the fixed export names.
type FileWriter struct {
	Dir      string
	Renderer Renderer
	CSV      WriteOptions
	Logger   *slog.Logger
}

// WriteFile saves view as format and returns the written path. An image of
// an empty view is refused with ErrEmptyView before any file is touched.
// The file is written beside its final name and renamed into place.
func (fw *FileWriter) WriteFile(ctx context.Context, view filter.View, format Format) (string, error) {
	if format == FormatPNG && view.Empty() {
		return "", ErrEmptyView
	}
	if err := os.MkdirAll(fw.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	final := filepath.Join(fw.Dir, format.FileName())
	tmp, err := os.CreateTemp(fw.Dir, "."+format.FileName()+"-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	switch format {
	case FormatPNG:
		renderer := fw.Renderer
		if renderer == nil {
			renderer = NewRasterRenderer(DefaultLayout())
		}
		err = renderer.Render(ctx, view, tmp)
	case FormatXLSX:
		err = WriteXLSX(tmp, view)
	default:
		err = NewCSVWriter().Write(tmp, view, fw.CSV)
	}
	if err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", format, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), final); err != nil {
		return "", fmt.Errorf("failed to move export into place: %w", err)
	}

	if fw.Logger != nil {
		fw.Logger.InfoContext(ctx, "export written",
			slog.String("format", string(format)),
			slog.String("path", final),
			slog.Int("rows", view.Len()))
	}
	return final, nil
}

// NewFileWriter builds a writer over the configured exports directory.
func NewFileWriter(paths *config.Paths, cfg config.ExportConfig, logger *slog.Logger) *FileWriter {
	return &FileWriter{
		Dir:      paths.ExportsDir,
		Renderer: NewRenderer(cfg, logger),
		CSV:      WriteOptions{BOMPrefix: cfg.CSVBOM},
		Logger:   logger,
	}
}
