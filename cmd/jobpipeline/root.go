package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rohmanhakim/docs-crawler/internal/app"
	"github.com/rohmanhakim/docs-crawler/internal/build"
	"github.com/rohmanhakim/docs-crawler/internal/config"
	"github.com/spf13/cobra"
)

var (
	catalogPath string
	filtersPath string
	envPath     string
	dryRun      bool
	showVersion bool
)

// rootCmd is the process entrypoint: it loads the site catalog, the
// global filter document and the sink credentials, builds the
// composition root, and runs it until an OS signal arrives.
var rootCmd = &cobra.Command{
	Use:   "jobpipeline",
	Short: "A continuous job-listing crawler and Notion sink.",
	Long: `jobpipeline polls a catalog of job-listing sites on a per-site
cadence, extracts and normalizes each listing, and writes it to a
downstream document database, deduplicating and retiring stale entries
along the way.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if showVersion {
			fmt.Println(build.FullVersion())
			return nil
		}
		return run(cmd.Context())
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to
// happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&catalogPath, "config", "", "site catalog YAML path (required)")
	rootCmd.PersistentFlags().StringVar(&filtersPath, "filters", "", "global filter document YAML path (optional)")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", "", ".env file path for sink credentials (optional)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "validate configuration and exit without starting any worker")
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "print the build version and exit")
}

func run(ctx context.Context) error {
	if catalogPath == "" {
		return fmt.Errorf("--config is required")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	logger.Info("starting", "version", build.FullVersion())

	sites, err := config.LoadCatalog(catalogPath)
	if err != nil {
		return fmt.Errorf("loading site catalog: %w", err)
	}
	globalFilters, err := config.LoadGlobalFilters(filtersPath)
	if err != nil {
		return fmt.Errorf("loading global filters: %w", err)
	}
	secrets, err := config.LoadSecrets(envPath)
	if err != nil {
		return fmt.Errorf("loading sink credentials: %w", err)
	}
	settings, err := config.WithDefault().WithDryRun(dryRun).Build()
	if err != nil {
		return fmt.Errorf("building settings: %w", err)
	}

	logger.Info("configuration loaded", "sites", len(sites), "dry_run", settings.DryRun())
	if settings.DryRun() {
		return nil
	}

	a := app.New(settings, secrets, sites, globalFilters, logger)

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Start(sigCtx)
	<-sigCtx.Done()
	logger.Info("signal received, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	a.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
	return nil
}
