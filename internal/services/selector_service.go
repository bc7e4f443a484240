package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/NIKPRIN6598/Cleaner-Selector/internal/dataset"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/exporter"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/filter"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/infrastructure"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/session"
	ws "github.com/NIKPRIN6598/Cleaner-Selector/internal/websocket"
)

// Notifier receives an event whenever a session's view changes.
type Notifier interface {
	Notify(ctx context.Context, sessionID string, ev ws.Event)
}

// SelectorOptions holds the collaborators of a SelectorService.
type SelectorOptions struct {
	Policy   filter.RangePolicy
	Renderer exporter.Renderer
	CSV      exporter.WriteOptions
	TempDir  string
	Notifier Notifier
	Metrics  *infrastructure.BusinessMetrics
	Logger   *slog.Logger
}

// SelectorService runs the filter reconciler for every browser session.
type SelectorService struct {
	table    *dataset.Table
	store    *session.Store
	policy   filter.RangePolicy
	csv      *exporter.CSVWriter
	csvOpts  exporter.WriteOptions
	renderer exporter.Renderer
	tempDir  string
	notifier Notifier
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

// FieldOption describes one filter widget.
type FieldOption struct {
	Key    string               `json:"key"`
	Label  string               `json:"label"`
	Column string               `json:"column"`
	Kind   string               `json:"kind"`
	Values []string             `json:"values,omitempty"`
	Counts []dataset.ValueCount `json:"counts,omitempty"`
	Min    *float64             `json:"min,omitempty"`
	Max    *float64             `json:"max,omitempty"`
}

// NewSelectorService creates the service over a loaded table.
func NewSelectorService(table *dataset.Table, store *session.Store, opts SelectorOptions) *SelectorService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Policy == "" {
		opts.Policy = filter.RangesAlways
	}
	if opts.Renderer == nil {
		opts.Renderer = exporter.NewRasterRenderer(exporter.DefaultLayout())
	}

	logger.Info("SelectorService initialized",
		slog.Int("records", table.Len()),
		slog.String("range_policy", string(opts.Policy)))

	return &SelectorService{
		table:    table,
		store:    store,
		policy:   opts.Policy,
		csv:      exporter.NewCSVWriter(),
		csvOpts:  opts.CSV,
		renderer: opts.Renderer,
		tempDir:  opts.TempDir,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		logger:   logger,
		tracer:   otel.Tracer(infrastructure.MeterName + "/services"),
	}
}

// Table returns the dataset the service filters.
func (s *SelectorService) Table() *dataset.Table { return s.table }

// Policy returns the configured range policy.
func (s *SelectorService) Policy() filter.RangePolicy { return s.policy }

// Options returns the widget catalog: distinct values for categorical
// fields and the column extremes for numeric ones.
func (s *SelectorService) Options(ctx context.Context) []FieldOption {
	out := make([]FieldOption, 0, len(filter.Fields))
	for _, f := range filter.Fields {
		opt := FieldOption{Key: f.Key, Label: f.Label, Column: f.Column, Kind: f.Kind.String()}
		if f.Numeric() {
			if lo, hi, ok := s.table.Extremes(f.Column); ok {
				opt.Min, opt.Max = &lo, &hi
			}
		} else {
			opt.Values = s.table.DistinctValues(f.Column)
			opt.Counts = s.table.Counts(f.Column)
		}
		out = append(out, opt)
	}
	return out
}

func (s *SelectorService) defaultState() filter.State {
	return filter.NewState(s.table)
}

// State returns the session's filter state, creating the default on first
// use.
func (s *SelectorService) State(ctx context.Context, sid string) (filter.State, error) {
	if sid == "" {
		return filter.State{}, ErrNoSession
	}
	return s.store.Update(sid, s.defaultState, func(cur filter.State) (filter.State, error) {
		return cur, nil
	})
}

// ApplySelection replaces one categorical selection.
func (s *SelectorService) ApplySelection(ctx context.Context, sid, field string, values []string) (filter.State, bool, error) {
	return s.mutate(ctx, sid, field, func(cur filter.State) (filter.State, []string, error) {
		next, changed, err := filter.ApplySelection(s.table, cur, field, values)
		return next, changedKeys(field, changed), err
	})
}

// ApplyRange replaces one numeric range.
func (s *SelectorService) ApplyRange(ctx context.Context, sid, field string, lo, hi float64) (filter.State, bool, error) {
	return s.mutate(ctx, sid, field, func(cur filter.State) (filter.State, []string, error) {
		next, changed, err := filter.ApplyRange(s.table, cur, field, lo, hi)
		return next, changedKeys(field, changed), err
	})
}

// Reconcile applies a whole form submission and reports the fields that
// changed.
func (s *SelectorService) Reconcile(ctx context.Context, sid string, sub filter.Submission) (filter.State, []string, error) {
	var keys []string
	next, _, err := s.mutate(ctx, sid, "submission", func(cur filter.State) (filter.State, []string, error) {
		n, changed, err := filter.Reconcile(s.table, cur, sub)
		keys = changed
		return n, changed, err
	})
	return next, keys, err
}

// Clear resets the session to the default state. It always notifies.
func (s *SelectorService) Clear(ctx context.Context, sid string) (filter.State, error) {
	if sid == "" {
		return filter.State{}, ErrNoSession
	}
	next, err := s.store.Update(sid, s.defaultState, func(filter.State) (filter.State, error) {
		st, _ := filter.Clear(s.table)
		return st, nil
	})
	if err != nil {
		return next, err
	}

	s.metrics.RecordFilterChange(ctx, "clear")
	s.logger.InfoContext(ctx, "filters cleared", slog.String("session_id", sid))
	s.notify(ctx, sid, next, nil, true)
	return next, nil
}

// View computes the session's current view.
func (s *SelectorService) View(ctx context.Context, sid string) (filter.View, filter.State, error) {
	st, err := s.State(ctx, sid)
	if err != nil {
		return filter.View{}, st, err
	}
	view := filter.ComputeView(s.table, st, s.policy)
	s.metrics.RecordView(ctx, view.Len())
	return view, st, nil
}

// ExportCSV writes the session's view as CSV.
func (s *SelectorService) ExportCSV(ctx context.Context, sid string, w io.Writer) error {
	return s.export(ctx, sid, exporter.FormatCSV, func(ctx context.Context, view filter.View) error {
		return s.csv.Write(w, view, s.csvOpts)
	})
}

// ExportXLSX writes the session's view as a workbook.
func (s *SelectorService) ExportXLSX(ctx context.Context, sid string, w io.Writer) error {
	return s.export(ctx, sid, exporter.FormatXLSX, func(ctx context.Context, view filter.View) error {
		return exporter.WriteXLSX(w, view)
	})
}

// ExportImage renders the session's view to a temp PNG. The caller serves
// the file and then calls cleanup. An empty view yields ErrEmptyView.
func (s *SelectorService) ExportImage(ctx context.Context, sid string) (path string, cleanup func(), err error) {
	cleanup = func() {}
	err = s.export(ctx, sid, exporter.FormatPNG, func(ctx context.Context, view filter.View) error {
		var rerr error
		path, cleanup, rerr = exporter.RenderTemp(ctx, s.renderer, view, s.tempDir)
		return rerr
	})
	return path, cleanup, err
}

func (s *SelectorService) export(ctx context.Context, sid string, format exporter.Format, fn func(context.Context, filter.View) error) error {
	ctx, span := s.tracer.Start(ctx, "selector.export."+string(format),
		trace.WithAttributes(attribute.String("export.format", string(format))))
	defer span.End()

	view, _, err := s.View(ctx, sid)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("export.rows", view.Len()))

	start := time.Now()
	err = fn(ctx, view)
	s.metrics.RecordExport(ctx, string(format), time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.WarnContext(ctx, "export failed",
			slog.String("format", string(format)),
			slog.Int("rows", view.Len()),
			slog.String("error", err.Error()))
		return fmt.Errorf("%s export: %w", format, err)
	}

	s.logger.InfoContext(ctx, "export written",
		slog.String("format", string(format)),
		slog.Int("rows", view.Len()),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (s *SelectorService) mutate(ctx context.Context, sid, field string, fn func(filter.State) (filter.State, []string, error)) (filter.State, bool, error) {
	if sid == "" {
		return filter.State{}, false, ErrNoSession
	}

	var keys []string
	next, err := s.store.Update(sid, s.defaultState, func(cur filter.State) (filter.State, error) {
		n, changed, err := fn(cur)
		keys = changed
		return n, err
	})
	if err != nil {
		s.metrics.RecordFilterRejection(ctx, field)
		s.logger.WarnContext(ctx, "filter rejected",
			slog.String("session_id", sid),
			slog.String("field", field),
			slog.String("error", err.Error()))
		return next, false, err
	}
	if len(keys) == 0 {
		return next, false, nil
	}

	for _, k := range keys {
		s.metrics.RecordFilterChange(ctx, k)
	}
	s.logger.InfoContext(ctx, "filters changed",
		slog.String("session_id", sid),
		slog.Any("fields", keys),
		slog.Any("active", next.Summary(s.table)))
	s.notify(ctx, sid, next, keys, false)
	return next, true, nil
}

func (s *SelectorService) notify(ctx context.Context, sid string, st filter.State, keys []string, cleared bool) {
	if s.notifier == nil {
		return
	}
	view := filter.ComputeView(s.table, st, s.policy)
	infrastructure.AddSpanEvent(ctx, "view.changed",
		attribute.StringSlice("filter.fields", keys),
		attribute.Bool("filter.cleared", cleared),
		attribute.Int("view.rows", view.Len()))
	s.notifier.Notify(ctx, sid, ws.Event{
		Type: ws.TypeViewChanged,
		Data: ws.ViewChanged{
			Fields:  keys,
			Cleared: cleared,
			Rows:    view.Len(),
			Summary: st.Summary(s.table),
		},
	})
}

func changedKeys(field string, changed bool) []string {
	if !changed {
		return nil
	}
	return []string{field}
}
