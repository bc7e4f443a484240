package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/NIKPRIN6598/Cleaner-Selector/internal/app"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/config"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/exporter"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/filter"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/tui"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/validation"
)

func newTUICmd(c *cli) *cobra.Command {
	var (
		data   string
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Filter the dataset in the terminal",
		Long: `Opens a terminal screen over the dataset. Press enter on a filter to pick
values (space toggles), [ ] and { } move numeric bounds, c clears, e and p
save filtered_results.csv and .png to the output directory, q quits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			// The screen owns stdout.
			cfg.Logging.Output = "file"

			paths, err := config.ResolvePaths(cfg.Paths)
			if err != nil {
				return err
			}
			if cfg.Logging.FilePath != "" && !filepath.IsAbs(cfg.Logging.FilePath) {
				cfg.Logging.FilePath = filepath.Join(paths.BaseDir, cfg.Logging.FilePath)
			}
			logger, err := c.loggerFor(cfg.Logging)
			if err != nil {
				return err
			}
			if data != "" {
				abs, err := filepath.Abs(data)
				if err != nil {
					return err
				}
				cfg.Dataset.Source = "file"
				cfg.Dataset.File = abs
			}
			table, err := app.LoadDataset(cmd.Context(), cfg.Dataset, paths, logger)
			if err != nil {
				return err
			}
			policy, err := filter.ParsePolicy(cfg.Filter.RangePolicy)
			if err != nil {
				return err
			}

			if err := validation.NewFileValidator(logger).ValidateOutputDirectory(outDir); err != nil {
				return err
			}
			exports := exporter.NewFileWriter(paths, cfg.Export, logger)
			exports.Dir = outDir
			return tui.Run(cmd.Context(), tui.Options{
				Table:   table,
				Policy:  policy,
				Exports: exports,
				Logger:  logger,
			})
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "dataset file (.xlsx or .csv), overrides the configured source")
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "directory receiving exports")
	return cmd
}
