package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/ags-analyzer/internal/ai"
	cfgpkg "github.com/KaramelBytes/ags-analyzer/internal/config"
	"github.com/KaramelBytes/ags-analyzer/internal/logger"
	"github.com/KaramelBytes/ags-analyzer/internal/report"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

var (
	cfgFile string
	debug   bool
	// Retry/HTTP flags (override config if set)
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int

	// Loaded configuration
	cfg *cfgpkg.Global
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ags",
	Short: "AGS: schema-driven sales analytics with an LLM Q&A layer",
	Long: `AGS maps arbitrary sales tables onto a fixed business schema (sales, region,
product, date), computes aggregate analytics, and answers natural-language
questions from those aggregates only.`,
	Version:           Version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.ags/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max retry attempts on 429/5xx (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	rootCmd.PersistentFlags().IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
}

// setup runs before every command: logger, configuration, model catalog and
// presentation theme.
func setup(cmd *cobra.Command, _ []string) error {
	log = logger.New(debug)
	slog.SetDefault(log)
	report.InitTheme(report.DefaultTheme)

	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: analysis commands work without config
		fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: failed to load config: %v\n", err)
		c = &cfgpkg.Global{DefaultProvider: ai.ProviderOpenRouter, Temperature: 0.2, MaxTokens: 512}
	}
	cfg = c

	f := cmd.Root().PersistentFlags()
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = flagRetryMaxDelayMs
	}

	if cfg.ModelCatalog != "" {
		if err := ai.MergeCatalogFile(cfg.ModelCatalog); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: model catalog not loaded: %v\n", err)
		}
	}
	log.Debug("configuration loaded", "provider", cfg.DefaultProvider, "model", cfg.DefaultModel)
	return nil
}
