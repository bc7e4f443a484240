package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/NIKPRIN6598/Cleaner-Selector/internal/app"
)

func newServeCmd(c *cli) *cobra.Command {
	var (
		host string
		port int
		data string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web selector",
		Long: `Starts the HTTP server: the filter page at /, the JSON API under
/api/selector, downloads, live refresh over /ws, health checks and
Prometheus metrics at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.cfg
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if data != "" {
				abs, err := filepath.Abs(data)
				if err != nil {
					return err
				}
				cfg.Dataset.Source = "file"
				cfg.Dataset.File = abs
			}

			logger, err := c.loggerFor(cfg.Logging)
			if err != nil {
				return err
			}
			application, err := app.NewApplication(cmd.Context(), app.Options{Config: cfg, Logger: logger})
			if err != nil {
				return err
			}
			return application.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host")
	cmd.Flags().IntVar(&port, "port", 8080, "listen port")
	cmd.Flags().StringVar(&data, "data", "", "dataset file (.xlsx or .csv), overrides the configured source")
	return cmd
}
