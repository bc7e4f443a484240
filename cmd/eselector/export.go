package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/NIKPRIN6598/Cleaner-Selector/internal/app"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/config"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/dataset"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/exporter"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/filter"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/infrastructure"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/validation"
)

type exportOptions struct {
	data    string
	outDir  string
	formats string
	selects []string
	ranges  []string
	policy  string
}

func newExportCmd(c *cli) *cobra.Command {
	var opts exportOptions
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Apply filters from flags and write the filtered results",
		Long: `Loads the dataset, applies the given selections and ranges and writes
filtered_results.csv (and optionally .png and .xlsx) to --out-dir.
The image is skipped when no row matches or when the view has more rows
than export.max_image_rows allows.`,
		Example: `  eselector export --data cleaners.xlsx --select region=DE --select pH=Alkaline
  eselector export --range concentration=5:10 --format csv,png`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			if opts.data != "" {
				abs, err := filepath.Abs(opts.data)
				if err != nil {
					return err
				}
				cfg.Dataset.Source = "file"
				cfg.Dataset.File = abs
			}
			if opts.policy == "" {
				opts.policy = cfg.Filter.RangePolicy
			}
			logger, err := c.loggerFor(cfg.Logging)
			if err != nil {
				return err
			}
			written, err := runExport(cmd.Context(), cfg, opts, logger)
			for _, path := range written {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&opts.data, "data", "", "dataset file (.xlsx or .csv), overrides the configured source")
	cmd.Flags().StringVar(&opts.outDir, "out-dir", ".", "directory receiving the exports")
	cmd.Flags().StringVar(&opts.formats, "format", "csv", "comma separated formats: csv, png, xlsx")
	cmd.Flags().StringArrayVar(&opts.selects, "select", nil, "field=value, repeatable")
	cmd.Flags().StringArrayVar(&opts.ranges, "range", nil, "field=lo:hi, repeatable")
	cmd.Flags().StringVar(&opts.policy, "policy", "", "range policy: always | with-categorical")
	return cmd
}

// runExport loads the dataset, reconciles the flag filters and writes each
// requested format. It returns the paths written so far even on error. Every
// record logged by one run carries the same trace ID.
func runExport(ctx context.Context, cfg *config.Config, opts exportOptions, logger *slog.Logger) ([]string, error) {
	ctx = infrastructure.EnsureTraceID(ctx)
	formats, err := exporter.ParseFormats(opts.formats)
	if err != nil {
		return nil, err
	}
	policy, err := filter.ParsePolicy(opts.policy)
	if err != nil {
		return nil, err
	}
	if err := validation.NewFileValidator(logger).ValidateOutputDirectory(opts.outDir); err != nil {
		return nil, err
	}
	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		return nil, err
	}
	table, err := app.LoadDataset(ctx, cfg.Dataset, paths, logger)
	if err != nil {
		return nil, err
	}

	state, err := buildState(table, opts.selects, opts.ranges)
	if err != nil {
		return nil, err
	}
	view := filter.ComputeView(table, state, policy)
	logger.InfoContext(ctx, "filters applied",
		slog.Any("active", state.Summary(table)),
		slog.Int("rows", view.Len()),
		slog.Int("total", table.Len()))

	fw := exporter.NewFileWriter(paths, cfg.Export, logger)
	fw.Dir = opts.outDir

	var written []string
	for _, f := range formats {
		path, err := fw.WriteFile(ctx, view, f)
		if errors.Is(err, exporter.ErrEmptyView) {
			logger.InfoContext(ctx, "image export skipped",
				slog.String("format", string(f)),
				slog.String("reason", filter.NoResultsMessage))
			continue
		}
		if errors.Is(err, exporter.ErrTooManyRows) {
			logger.WarnContext(ctx, "image export skipped",
				slog.String("format", string(f)),
				slog.String("reason", err.Error()))
			continue
		}
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// buildState starts from the default state and applies every flag filter.
// Repeated --select flags for one field accumulate.
func buildState(table *dataset.Table, selects, ranges []string) (filter.State, error) {
	sub := filter.Submission{
		Selections: make(map[string][]string),
		Ranges:     make(map[string]filter.Range),
	}
	for _, s := range selects {
		key, value, ok := strings.Cut(s, "=")
		if !ok || key == "" {
			return filter.State{}, fmt.Errorf("--select %q: want field=value", s)
		}
		sub.Selections[key] = append(sub.Selections[key], value)
	}
	for _, r := range ranges {
		key, bounds, ok := strings.Cut(r, "=")
		lo, hi, ok2 := strings.Cut(bounds, ":")
		if !ok || !ok2 || key == "" {
			return filter.State{}, fmt.Errorf("--range %q: want field=lo:hi", r)
		}
		lower, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
		if err != nil {
			return filter.State{}, fmt.Errorf("--range %q: %w: not a number", r, filter.ErrInvalidRange)
		}
		upper, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
		if err != nil {
			return filter.State{}, fmt.Errorf("--range %q: %w: not a number", r, filter.ErrInvalidRange)
		}
		sub.Ranges[key] = filter.Range{Min: lower, Max: upper}
	}

	state, _, err := filter.Reconcile(table, filter.NewState(table), sub)
	return state, err
}
