// Command recipescan analyzes recipe documents, fetches articles from the
// feeds they reference, and serves both stores over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pevans/recipescan/config"
	"github.com/pevans/recipescan/newsfeed"
	"github.com/pevans/recipescan/sources"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	flagConfig  string
	flagVerbose bool
)

// Resolved in PersistentPreRunE before any subcommand runs.
var (
	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:               "recipescan",
	Short:             "Static recipe analyzer and feed fetcher",
	Long:              "recipescan extracts metadata and endpoints from recipe documents without running them, then fetches articles from the discovered feeds.",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("recipescan %s (commit: %s)\n", version, commit)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file (default: $XDG_CONFIG_HOME/recipescan/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(recipesCmd)
	rootCmd.AddCommand(articlesCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	var err error
	cfg, err = config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func openSources() (*sources.SourceStore, error) {
	store, err := sources.NewSourceStore(cfg.SourcesDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open sources store: %w", err)
	}
	return store, nil
}

func openNews() (*newsfeed.NewsStore, error) {
	store, err := newsfeed.NewNewsStore(cfg.NewsDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open news store: %w", err)
	}
	return store, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
