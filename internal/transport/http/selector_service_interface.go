package http

import (
	"context"
	"io"

	"github.com/NIKPRIN6598/Cleaner-Selector/internal/filter"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/services"
)

// SelectorServiceInterface defines the filter operations the handlers need.
type SelectorServiceInterface interface {
	Options(ctx context.Context) []services.FieldOption
	State(ctx context.Context, sid string) (filter.State, error)
	ApplySelection(ctx context.Context, sid, field string, values []string) (filter.State, bool, error)
	ApplyRange(ctx context.Context, sid, field string, lo, hi float64) (filter.State, bool, error)
	Reconcile(ctx context.Context, sid string, sub filter.Submission) (filter.State, []string, error)
	Clear(ctx context.Context, sid string) (filter.State, error)
	View(ctx context.Context, sid string) (filter.View, filter.State, error)

	ExportCSV(ctx context.Context, sid string, w io.Writer) error
	ExportXLSX(ctx context.Context, sid string, w io.Writer) error
	ExportImage(ctx context.Context, sid string) (path string, cleanup func(), err error)
}

var _ SelectorServiceInterface = (*services.SelectorService)(nil)
