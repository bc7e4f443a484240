package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains the resolved, absolute application paths.
type Paths struct {
	BaseDir    string
	DataDir    string
	ExportsDir string
	CacheDir   string
	LogsDir    string
}

// ResolvePaths turns the configured directories into absolute paths.
func ResolvePaths(cfg PathsConfig) (*Paths, error) {
	base := cfg.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		base = wd
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}
		return filepath.Join(base, p)
	}

	return &Paths{
		BaseDir:    base,
		DataDir:    resolve(cfg.DataDir),
		ExportsDir: resolve(cfg.ExportsDir),
		CacheDir:   resolve(cfg.CacheDir),
		LogsDir:    resolve(cfg.LogsDir),
	}, nil
}

// EnsureDirectories creates the writable directories if they don't exist.
// DataDir is read-only input and is left alone.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.ExportsDir, p.CacheDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
		slog.Debug("Ensured directory exists", slog.String("directory", dir))
	}
	return nil
}

// DatasetPath resolves a dataset file name against DataDir.
func (p *Paths) DatasetPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.DataDir, name)
}

// LogPathResolution logs the resolved paths at debug level.
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	logger.Debug("Resolved application paths",
		slog.String("base_dir", p.BaseDir),
		slog.String("data_dir", p.DataDir),
		slog.String("exports_dir", p.ExportsDir),
		slog.String("cache_dir", p.CacheDir),
		slog.String("logs_dir", p.LogsDir))
}
