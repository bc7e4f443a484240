package exporter

import (
	"fmt"
	"strings"

	"github.com/NIKPRIN6598/Cleaner-Selector/internal/config"
)

// Format names a download type.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatPNG  Format = "png"
	FormatXLSX Format = "xlsx"
)

// ParseFormat maps a user-supplied name such as "PNG" to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatPNG, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// ParseFormats splits a comma separated list, dropping duplicates.
func ParseFormats(s string) ([]Format, error) {
	var out []Format
	seen := make(map[Format]bool)
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		f, err := ParseFormat(part)
		if err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// FileName is the download name for the format.
func (f Format) FileName() string {
	switch f {
	case FormatPNG:
		return config.PNGExportName
	case FormatXLSX:
		return config.XLSXExportName
	default:
		return config.CSVExportName
	}
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}
