package validation

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/NIKPRIN6598/Cleaner-Selector/internal/dataset"
)

// ErrEmptyFile is returned for a zero byte dataset file.
var ErrEmptyFile = errors.New("file is empty")

// FileValidator checks the dataset and export locations before the
// front ends touch them, logging each failure.
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateDatasetFile checks that path names a readable, non-empty
// workbook or CSV file. The extension is checked first so an unsupported
// format is reported even when the file is missing.
func (v *FileValidator) ValidateDatasetFile(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".xlsx", ".xlsm", ".csv":
	default:
		v.logger.Error("Dataset has an unsupported extension",
			slog.String("file", path),
			slog.String("extension", ext))
		return fmt.Errorf("%w: %q", dataset.ErrUnsupportedFormat, ext)
	}

	// Excel keeps "~$name.xlsx" lock files next to open workbooks.
	if strings.HasPrefix(filepath.Base(path), "~$") {
		v.logger.Warn("Refusing temporary Excel file",
			slog.String("file", path))
		return fmt.Errorf("file %s is a temporary Excel file", path)
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("Dataset file does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist: %w", path, err)
	}
	if err != nil {
		v.logger.Error("Failed to stat dataset file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Dataset path is a directory",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	if info.Size() == 0 {
		v.logger.Error("Dataset file is empty",
			slog.String("file", path))
		return fmt.Errorf("%s: %w", path, ErrEmptyFile)
	}

	file, err := os.Open(path)
	if err != nil {
		v.logger.Error("Dataset file is not readable",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("file %s is not readable: %w", path, err)
	}
	file.Close()

	v.logger.Debug("Dataset file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

// ValidateOutputDirectory ensures dir exists, creating it when needed, and
// that exports can be written into it.
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	probe, err := os.CreateTemp(dir, ".write_test-*")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	probe.Close()
	os.Remove(probe.Name())

	v.logger.Debug("Output directory validated",
		slog.String("directory", dir))
	return nil
}
