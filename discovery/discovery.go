// Package discovery is the fetch stage: it pulls articles for the recipes in
// the sources store, either by handing each recipe to an execution engine or
// by polling the feed endpoints the extraction pass discovered, and appends
// them to the news store.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pevans/recipescan/newsfeed"
	"github.com/pevans/recipescan/sources"
)

// Fetch modes.
const (
	ModeAuto   = "auto"
	ModeRecipe = "recipe"
	ModeRSS    = "rss"
)

// ErrNoEngine is returned by recipe mode when no engine was supplied.
var ErrNoEngine = errors.New("recipe mode requires an execution engine")

// Config holds configuration for the fetch stage.
type Config struct {
	// Mode is auto, recipe, or rss. Default: auto.
	Mode string
	// MaxArticles caps the articles taken from each feed. Default: 100.
	MaxArticles int
	// Recipes restricts a pass to these recipe identifiers. Empty means all.
	Recipes []string
	// Interval between passes in Run. Zero runs a single pass.
	Interval time.Duration
	// FetchTimeout bounds each feed retrieval. Default: 30s.
	FetchTimeout time.Duration
}

// DefaultConfig returns the default fetch configuration.
func DefaultConfig() Config {
	return Config{
		Mode:         ModeAuto,
		MaxArticles:  100,
		FetchTimeout: 30 * time.Second,
	}
}

func (c *Config) defaults() {
	d := DefaultConfig()
	if c.Mode == "" {
		c.Mode = d.Mode
	}
	if c.MaxArticles <= 0 {
		c.MaxArticles = d.MaxArticles
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = d.FetchTimeout
	}
}

// Validate checks the mode.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeAuto, ModeRecipe, ModeRSS:
		return nil
	}
	return fmt.Errorf("invalid fetch mode %q: must be auto, recipe, or rss", c.Mode)
}

// PassResult summarizes one fetch pass.
type PassResult struct {
	PassID   uuid.UUID `json:"pass_id"`
	Mode     string    `json:"mode"`
	Recipes  int       `json:"recipes"`
	Failed   int       `json:"failed"`
	Articles int       `json:"articles"`
	Inserted int       `json:"inserted"`
}

// Service runs fetch passes.
type Service struct {
	sources *sources.SourceStore
	news    *newsfeed.NewsStore
	fetcher FeedFetcher
	engine  Engine
	config  Config
	logger  *slog.Logger
}

// New creates a Service. engine may be nil, which limits it to rss mode.
func New(
	src *sources.SourceStore,
	news *newsfeed.NewsStore,
	fetcher FeedFetcher,
	engine Engine,
	cfg Config,
	logger *slog.Logger,
) (*Service, error) {
	cfg.defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if fetcher == nil {
		fetcher = NewHTTPFetcher(cfg.FetchTimeout, "")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		sources: src,
		news:    news,
		fetcher: fetcher,
		engine:  engine,
		config:  cfg,
		logger:  logger,
	}, nil
}

// Run executes passes until ctx is cancelled, sleeping Interval between
// them. With a zero Interval it runs exactly one pass. A pass is never
// interrupted mid-recipe; cancellation takes effect between recipes.
func (s *Service) Run(ctx context.Context) error {
	for {
		if _, err := s.RunOnce(ctx); err != nil {
			if s.config.Interval <= 0 || ctx.Err() != nil {
				return err
			}
			s.logger.Error("fetch pass failed", "error", err)
		}

		if s.config.Interval <= 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.config.Interval):
		}
	}
}

// RunOnce executes a single pass in the configured mode. Auto mode uses the
// engine when one is configured and falls back to polling feeds if recipe
// mode as a whole fails.
func (s *Service) RunOnce(ctx context.Context) (PassResult, error) {
	res := PassResult{PassID: uuid.New(), Mode: s.config.Mode}
	logger := s.logger.With("pass", res.PassID.String())

	var err error
	switch s.config.Mode {
	case ModeRecipe:
		err = s.runRecipeMode(ctx, logger, &res)
	case ModeRSS:
		err = s.runRSSMode(ctx, logger, &res)
	default:
		if s.engine != nil {
			res.Mode = ModeRecipe
			err = s.runRecipeMode(ctx, logger, &res)
			if err == nil {
				break
			}
			logger.Warn("recipe mode failed, falling back to rss", "error", err)
		}
		res.Mode = ModeRSS
		err = s.runRSSMode(ctx, logger, &res)
	}
	if err != nil {
		return res, err
	}

	logger.Info("fetch pass complete",
		"mode", res.Mode,
		"recipes", res.Recipes,
		"failed", res.Failed,
		"articles", res.Articles,
		"inserted", res.Inserted)
	return res, nil
}

func (s *Service) wanted(uid string) bool {
	return len(s.config.Recipes) == 0 || slices.Contains(s.config.Recipes, uid)
}

// recipeRun accumulates one recipe's outcome.
type recipeRun struct {
	uid      string
	started  time.Time
	status   string
	errMsg   *string
	articles int
	inserted int
}

func newRecipeRun(uid string) *recipeRun {
	return &recipeRun{uid: uid, started: time.Now(), status: newsfeed.RunOK}
}

// fail records err as the run outcome. The last failure wins.
func (r *recipeRun) fail(err error) {
	msg := describeError(err)
	r.status = newsfeed.RunError
	r.errMsg = &msg
}

// finish records the run and commits the recipe's batch.
func (s *Service) finish(batch *newsfeed.Batch, run *recipeRun, res *PassResult) error {
	_, err := batch.RecordRun(newsfeed.Run{
		RecipeUID:    run.uid,
		StartedAt:    run.started,
		FinishedAt:   time.Now(),
		Status:       run.status,
		Error:        run.errMsg,
		ArticleCount: run.articles,
	})
	if err != nil {
		return err
	}
	if err := batch.Commit(); err != nil {
		return err
	}

	res.Recipes++
	res.Articles += run.articles
	res.Inserted += run.inserted
	if run.status != newsfeed.RunOK {
		res.Failed++
	}
	return nil
}

func (s *Service) runRecipeMode(ctx context.Context, logger *slog.Logger, res *PassResult) error {
	if s.engine == nil {
		return ErrNoEngine
	}

	recipes, err := s.sources.ListRecipes(sources.RecipeFilter{})
	if err != nil {
		return err
	}

	for _, r := range recipes {
		if !s.wanted(r.UID) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.fetchRecipe(ctx, logger, r, res); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) fetchRecipe(ctx context.Context, logger *slog.Logger, r sources.Recipe, res *PassResult) error {
	batch, err := s.news.Begin()
	if err != nil {
		return err
	}
	defer batch.Rollback()

	run := newRecipeRun(r.UID)
	logger.Debug("running recipe", "recipe", r.UID, "file", r.FilePath)

	if err := s.downloadRecipe(ctx, batch, r, run); err != nil {
		run.fail(err)
		logger.Warn("recipe fetch failed", "recipe", r.UID, "error", *run.errMsg)
	}

	return s.finish(batch, run, res)
}

func (s *Service) downloadRecipe(ctx context.Context, batch *newsfeed.Batch, r sources.Recipe, run *recipeRun) error {
	src, err := os.ReadFile(r.FilePath)
	if err != nil {
		return err
	}

	feeds, err := s.engine.Download(ctx, r.UID, src)
	if err != nil {
		return err
	}

	for _, feed := range feeds {
		for i, a := range feed.Articles {
			if i >= s.config.MaxArticles {
				break
			}

			html := a.HTML
			if html == "" {
				html = a.Summary
			}
			var published string
			if a.Published != nil {
				published = a.Published.Format(time.RFC3339)
			}

			article := buildArticle(r.UID, r.Title, feed.Title, Entry{
				Title:     a.Title,
				Link:      a.URL,
				GUID:      a.GUID,
				Author:    a.Author,
				Published: published,
				Summary:   a.Summary,
			}, html)
			if err := s.insert(batch, run, article); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) runRSSMode(ctx context.Context, logger *slog.Logger, res *PassResult) error {
	groups, err := s.sources.ListFeedEndpoints(s.config.Recipes)
	if err != nil {
		return err
	}

	for _, g := range groups {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.pollRecipe(ctx, logger, g, res); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) pollRecipe(ctx context.Context, logger *slog.Logger, g sources.FeedGroup, res *PassResult) error {
	batch, err := s.news.Begin()
	if err != nil {
		return err
	}
	defer batch.Rollback()

	run := newRecipeRun(g.RecipeUID)
	for _, feed := range g.Feeds {
		if err := s.pollFeed(ctx, batch, g, feed, run); err != nil {
			run.fail(err)
			logger.Warn("feed fetch failed", "recipe", g.RecipeUID, "feed", feed.URL, "error", *run.errMsg)
		}
	}

	return s.finish(batch, run, res)
}

func (s *Service) pollFeed(ctx context.Context, batch *newsfeed.Batch, g sources.FeedGroup, feed sources.FeedEndpoint, run *recipeRun) error {
	fetchCtx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	defer cancel()

	data, err := s.fetcher.Fetch(fetchCtx, feed.URL)
	if err != nil {
		return err
	}

	title, entries := ParseFeed(data)
	if title == "" {
		title = feed.FeedTitle
	}

	for i, e := range entries {
		if i >= s.config.MaxArticles {
			break
		}

		html := e.Content
		if html == "" {
			html = e.Summary
		}

		article := buildArticle(g.RecipeUID, g.RecipeTitle, title, e, html)
		if err := s.insert(batch, run, article); err != nil {
			return err
		}
	}
	return nil
}

// insert stores one article. Every processed article counts toward the run,
// including ones already stored by an earlier pass.
func (s *Service) insert(batch *newsfeed.Batch, run *recipeRun, a newsfeed.Article) error {
	inserted, err := batch.InsertArticle(a)
	if err != nil {
		return err
	}
	run.articles++
	if inserted {
		run.inserted++
	}
	return nil
}

func buildArticle(uid string, recipeTitle *string, feedTitle string, e Entry, html string) newsfeed.Article {
	a := newsfeed.Article{
		RecipeUID:   uid,
		RecipeTitle: recipeTitle,
		FeedTitle:   optional(feedTitle),
		Title:       optional(e.Title),
		URL:         optional(e.Link),
		GUID:        optional(e.GUID),
		Author:      optional(e.Author),
		Summary:     optional(e.Summary),
		Published:   optional(e.Published),
		ContentHTML: html,
		ContentText: HTMLToText(html),
		Fingerprint: newsfeed.Fingerprint(uid, e.Link, e.Title, e.Published),
	}
	if html != "" {
		hash := newsfeed.HashText(html)
		a.ContentHash = &hash
	}
	return a
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// describeError renders err as "<Type>: <message>", naming the innermost
// typed error in the chain.
func describeError(err error) string {
	name := "Error"
	for e := err; e != nil; e = errors.Unwrap(e) {
		t := fmt.Sprintf("%T", e)
		t = t[strings.LastIndex(t, ".")+1:]
		switch t {
		case "errorString", "wrapError", "wrapErrors", "joinError":
			continue
		}
		name = t
	}
	return name + ": " + err.Error()
}
