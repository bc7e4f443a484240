package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/NIKPRIN6598/Cleaner-Selector/internal/config"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/infrastructure"
)

// cli carries the state shared by every subcommand.
type cli struct {
	configFile string
	envFile    string
	logLevel   string

	cfg *config.Config
	// logger is set by tests; otherwise each command builds its own.
	logger *slog.Logger
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "eselector",
		Short: config.AppName + " - filter cleaning products by region, pH, application and more",
		Long: `eselector narrows a spreadsheet of industrial cleaning products with
categorical multi-selects and numeric ranges, shows the matching rows and
exports them as filtered_results.csv, .png or .xlsx.

Configuration is read from config.yaml, a .env file and ESELECTOR_*
environment variables, in that order of precedence.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadWithOptions(config.LoadOptions{
				ConfigFile: c.configFile,
				EnvFile:    c.envFile,
			})
			if err != nil {
				return err
			}
			if c.logLevel != "" {
				cfg.Logging.Level = c.logLevel
			}
			c.cfg = cfg
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = infrastructure.CloseLogFile()
		},
	}

	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (default: ./config.yaml when present)")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", "", "dotenv file to load (default: ./.env when present)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "debug | info | warn | error")

	root.AddCommand(newServeCmd(c), newExportCmd(c), newTUICmd(c))
	return root
}

// loggerFor returns the injected logger or initializes the process logger
// from cfg.
func (c *cli) loggerFor(cfg config.LoggingConfig) (*slog.Logger, error) {
	if c.logger != nil {
		return c.logger, nil
	}
	logger, err := infrastructure.InitializeLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&cli{}).ExecuteContext(ctx); err != nil {
		slog.Error("eselector failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
