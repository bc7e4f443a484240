package dataset

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsConfig locates a dataset kept in Google Sheets.
type SheetsConfig struct {
	SpreadsheetID   string
	ReadRange       string
	CredentialsFile string
	APIKey          string
}

// NewSheetsService creates a read-only Sheets client. A credentials file
// takes precedence over an API key; extra options are appended last so
// callers can point the client at another endpoint.
func NewSheetsService(ctx context.Context, cfg SheetsConfig, extra ...option.ClientOption) (*sheets.Service, error) {
	opts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsReadonlyScope)}
	switch {
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheets credentials: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(data))
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	opts = append(opts, extra...)

	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return svc, nil
}

// LoadSheets reads a range whose first row is the header.
func LoadSheets(ctx context.Context, svc *sheets.Service, spreadsheetID, readRange string) (*Table, error) {
	resp, err := svc.Spreadsheets.Values.Get(spreadsheetID, readRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet range %q: %w", readRange, err)
	}
	if len(resp.Values) == 0 {
		return nil, ErrEmptySheet
	}

	rows := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = sheetCell(v)
		}
		rows[i] = cells
	}
	return NewTable(rows[0], rows[1:])
}

func sheetCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return Number{Value: val, Valid: true}.String()
	default:
		return fmt.Sprint(val)
	}
}
