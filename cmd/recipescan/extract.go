package main

import (
	"fmt"

	"github.com/pevans/recipescan/ingest"
	"github.com/spf13/cobra"
)

var (
	flagRecipesDir string
	flagPrefix     string
	flagLimit      int
	flagSourcesDB  string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Analyze recipes and store their metadata and endpoints",
	Args:  cobra.NoArgs,
	RunE:  runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&flagRecipesDir, "recipes-dir", "", "directory holding *.recipe files")
	extractCmd.Flags().StringVar(&flagPrefix, "prefix", "", "recipe identifier prefix (default: builtin)")
	extractCmd.Flags().IntVar(&flagLimit, "limit", 0, "process at most this many recipes")
	extractCmd.Flags().StringVar(&flagSourcesDB, "db", "", "path to the sources database")
}

func runExtract(cmd *cobra.Command, args []string) error {
	if flagRecipesDir != "" {
		cfg.RecipesDir = flagRecipesDir
	}
	if flagPrefix != "" {
		cfg.RecipesPrefix = flagPrefix
	}
	if flagSourcesDB != "" {
		cfg.SourcesDSN = flagSourcesDB
	}

	store, err := openSources()
	if err != nil {
		return err
	}
	defer store.Close()

	extractor := ingest.New(store, ingest.Config{
		RecipesDir: cfg.RecipesDir,
		Prefix:     cfg.RecipesPrefix,
		Limit:      flagLimit,
	}, logger)

	res, err := extractor.Run()
	if err != nil {
		return err
	}

	fmt.Printf("✓ Processed %d recipes (%d failed to parse), %d endpoint hits\n",
		res.Processed, res.Failed, res.Hits)
	fmt.Printf("  Database: %s\n", cfg.SourcesDSN)
	return nil
}
