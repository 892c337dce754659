// Package ingest runs the extraction pass: every recipe in a directory is
// analyzed and its metadata and endpoint hits are written to the sources
// store.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pevans/recipescan/recipe"
	"github.com/pevans/recipescan/sources"
)

// Config configures an extraction pass.
type Config struct {
	// RecipesDir holds the *.recipe documents.
	RecipesDir string
	// Prefix namespaces recipe identifiers. Default: "builtin".
	Prefix string
	// Limit stops after this many recipes. Zero means no limit.
	Limit int
}

func (c *Config) defaults() {
	if c.Prefix == "" {
		c.Prefix = "builtin"
	}
}

// Result summarizes a pass.
type Result struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Hits      int `json:"hits"`
}

// Extractor writes analysis results to a sources store.
type Extractor struct {
	store  *sources.SourceStore
	config Config
	logger *slog.Logger
}

// New creates an Extractor.
func New(store *sources.SourceStore, cfg Config, logger *slog.Logger) *Extractor {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{store: store, config: cfg, logger: logger}
}

// Recipes returns the recipe documents in lexicographic order.
func Recipes(dir string) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.recipe"))
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}

	files := paths[:0]
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil && info.Mode().IsRegular() {
			files = append(files, p)
		}
	}
	slices.Sort(files)
	return files, nil
}

// RecipeUID derives the identifier of the recipe at path from its path
// relative to dir, without extension.
func RecipeUID(prefix, dir, path string) string {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	rel = strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))
	return prefix + ":" + rel
}

// Run analyzes every recipe and commits all writes in a single transaction
// once the pass completes. A recipe that fails to parse is still stored,
// with its error and literal hits; only storage or filesystem failures abort
// the pass.
func (e *Extractor) Run() (Result, error) {
	var res Result

	files, err := Recipes(e.config.RecipesDir)
	if err != nil {
		return res, err
	}
	if e.config.Limit > 0 && len(files) > e.config.Limit {
		files = files[:e.config.Limit]
	}

	batch, err := e.store.Begin()
	if err != nil {
		return res, err
	}
	defer batch.Rollback()

	for _, path := range files {
		hits, parsed, err := e.ingestOne(batch, path)
		if err != nil {
			return res, fmt.Errorf("%s: %w", path, err)
		}

		res.Processed++
		res.Hits += hits
		if !parsed {
			res.Failed++
		}
	}

	if err := batch.Commit(); err != nil {
		return res, err
	}

	e.logger.Info("extraction pass complete",
		"dir", e.config.RecipesDir,
		"processed", res.Processed,
		"failed", res.Failed,
		"hits", res.Hits)
	return res, nil
}

// ingestOne stores one recipe and its hits. It reports the number of hits
// and whether the document parsed.
func (e *Extractor) ingestOne(batch *sources.Batch, path string) (int, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, false, fmt.Errorf("failed to read recipe: %w", err)
	}

	uid := RecipeUID(e.config.Prefix, e.config.RecipesDir, path)
	meta, hits, parseErr := recipe.Analyze(raw)

	sum := sha256.Sum256(raw)
	row := sources.Recipe{
		UID:               uid,
		Title:             meta.Title,
		Author:            meta.Author,
		Description:       meta.Description,
		Language:          meta.Language,
		PublicationType:   meta.PublicationType,
		NeedsSubscription: meta.NeedsSubscription,
		ClassName:         meta.ClassName,
		FilePath:          path,
		FileSHA256:        hex.EncodeToString(sum[:]),
		ParseStatus:       sources.ParseOK,
		LastParsed:        time.Now(),
	}
	if row.Title == nil || *row.Title == "" {
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		row.Title = &stem
	}
	if parseErr != nil {
		msg := parseErr.Error()
		row.ParseStatus = sources.ParseError
		row.ParseError = &msg
	}

	recipeID, err := batch.UpsertRecipe(row)
	if err != nil {
		return 0, false, err
	}

	for _, hit := range hits {
		if hit.URL == "" {
			continue
		}
		if err := batch.RecordHit(recipeID, hit); err != nil {
			return 0, false, err
		}
	}

	if parseErr != nil {
		e.logger.Warn("recipe failed to parse", "recipe", uid, "error", parseErr, "endpoints", len(hits))
	} else {
		e.logger.Debug("recipe parsed", "recipe", uid, "endpoints", len(hits))
	}
	return len(hits), parseErr == nil, nil
}
