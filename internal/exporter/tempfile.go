package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/NIKPRIN6598/Cleaner-Selector/internal/config"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/filter"
)

// RenderTemp renders view into a temporary PNG under dir. The returned
// cleanup removes the file and is safe to call more than once.
func RenderTemp(ctx context.Context, r Renderer, view filter.View, dir string) (path string, cleanup func(), err error) {
	if view.Empty() {
		return "", func() {}, ErrEmptyView
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", func() {}, fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.CreateTemp(dir, "filtered_results-*.png")
	if err != nil {
		return "", func() {}, fmt.Errorf("create temp file: %w", err)
	}
	path = f.Name()
	cleanup = func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove temp image", slog.String("path", path), slog.String("error", err.Error()))
		}
	}

	if err := r.Render(ctx, view, f); err != nil {
		f.Close()
		cleanup()
		return "", func() {}, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", func() {}, fmt.Errorf("close temp file: %w", err)
	}
	return path, cleanup, nil
}

// NewRenderer picks the configured image renderer. A zero MaxImageRows
// falls back to config.DefaultMaxImageRows.
func NewRenderer(cfg config.ExportConfig, logger *slog.Logger) Renderer {
	maxRows := cfg.MaxImageRows
	if maxRows <= 0 {
		maxRows = config.DefaultMaxImageRows
	}
	if cfg.ImageRenderer == "chrome" {
		return NewChromeRenderer(cfg.ChromePath, cfg.ImageTimeout, config.ImageDPI, maxRows, logger)
	}
	layout := DefaultLayout()
	layout.MaxRows = maxRows
	return NewRasterRenderer(layout)
}
