// Package newsfeed stores the output of fetch passes: one run row per recipe
// per pass, and the articles they fetched. Both tables are append-only.
package newsfeed

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Run outcomes.
const (
	RunOK    = "ok"
	RunError = "error"
)

var ErrEmptyRecipeUID = errors.New("recipe_uid must not be empty")

// now is replaced in tests to control fetched_at.
var now = time.Now

// NewsStore manages runs and articles using SQLite.
type NewsStore struct {
	db *sql.DB
	writer
}

// Run is the outcome of fetching one recipe once.
type Run struct {
	ID           int64     `json:"id"`
	RecipeUID    string    `json:"recipe_uid"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Status       string    `json:"status"`
	Error        *string   `json:"error,omitempty"`
	ArticleCount int       `json:"article_count"`
}

// Article is one fetched article. Published is kept as the text the source
// supplied.
type Article struct {
	ID          int64     `json:"id"`
	RecipeUID   string    `json:"recipe_uid"`
	RecipeTitle *string   `json:"recipe_title,omitempty"`
	FeedTitle   *string   `json:"feed_title,omitempty"`
	Title       *string   `json:"article_title,omitempty"`
	URL         *string   `json:"article_url,omitempty"`
	GUID        *string   `json:"article_guid,omitempty"`
	Author      *string   `json:"author,omitempty"`
	Summary     *string   `json:"summary,omitempty"`
	Published   *string   `json:"published,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
	ContentHTML string    `json:"content_html"`
	ContentText string    `json:"content_text"`
	ContentHash *string   `json:"content_hash,omitempty"`
	Fingerprint string    `json:"fingerprint"`
}

// ArticleFilter represents filtering options for listing articles.
type ArticleFilter struct {
	RecipeUID string // Filter by recipe; empty lists all
	Limit     int    // Pagination limit
	Offset    int    // Pagination offset
}

// NewNewsStore opens (creating if needed) the news database at dbPath.
func NewNewsStore(dbPath string) (*NewsStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &NewsStore{db: db, writer: writer{q: db}}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *NewsStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY,
		recipe_uid TEXT,
		started_at TEXT,
		finished_at TEXT,
		status TEXT,
		error TEXT,
		article_count INTEGER
	);

	CREATE TABLE IF NOT EXISTS articles (
		id INTEGER PRIMARY KEY,
		recipe_uid TEXT NOT NULL,
		recipe_title TEXT,
		feed_title TEXT,
		article_title TEXT,
		article_url TEXT,
		article_guid TEXT,
		author TEXT,
		summary TEXT,
		published TEXT,
		fetched_at TEXT,
		content_html TEXT,
		content_text TEXT,
		content_hash TEXT,
		fingerprint TEXT UNIQUE
	);

	CREATE INDEX IF NOT EXISTS idx_articles_recipe_uid ON articles(recipe_uid);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *NewsStore) Close() error {
	return s.db.Close()
}

// Batch groups one recipe's articles and run into a single transaction.
type Batch struct {
	tx *sql.Tx
	writer
}

// Begin starts a batch. Callers must Commit or Rollback it.
func (s *NewsStore) Begin() (*Batch, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Batch{tx: tx, writer: writer{q: tx}}, nil
}

// Commit makes every write in the batch durable.
func (b *Batch) Commit() error {
	if err := b.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Rollback discards the batch. It is a no-op after Commit.
func (b *Batch) Rollback() error {
	err := b.tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to roll back: %w", err)
	}
	return nil
}

type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
}

type writer struct {
	q dbtx
}

// RecordRun appends a run.
func (w writer) RecordRun(r Run) (int64, error) {
	if r.RecipeUID == "" {
		return 0, ErrEmptyRecipeUID
	}

	res, err := w.q.Exec(`
		INSERT INTO runs (recipe_uid, started_at, finished_at, status, error, article_count)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		r.RecipeUID, formatTime(&r.StartedAt), formatTime(&r.FinishedAt),
		r.Status, r.Error, r.ArticleCount,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record run: %w", err)
	}
	return res.LastInsertId()
}

// InsertArticle appends an article unless one with the same fingerprint is
// already stored, in which case nothing at all is written. It reports
// whether a row was added. An empty Fingerprint is derived from the recipe,
// URL, title, and published text; a zero FetchedAt is set to now.
func (w writer) InsertArticle(a Article) (bool, error) {
	if a.RecipeUID == "" {
		return false, ErrEmptyRecipeUID
	}
	if a.Fingerprint == "" {
		a.Fingerprint = Fingerprint(a.RecipeUID, deref(a.URL), deref(a.Title), deref(a.Published))
	}
	if a.FetchedAt.IsZero() {
		a.FetchedAt = now()
	}

	res, err := w.q.Exec(`
		INSERT OR IGNORE INTO articles (
			recipe_uid, recipe_title, feed_title, article_title, article_url,
			article_guid, author, summary, published, fetched_at,
			content_html, content_text, content_hash, fingerprint
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.RecipeUID, a.RecipeTitle, a.FeedTitle, a.Title, a.URL,
		a.GUID, a.Author, a.Summary, a.Published, formatTime(&a.FetchedAt),
		a.ContentHTML, a.ContentText, a.ContentHash, a.Fingerprint,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert article: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n > 0, nil
}

// Fingerprint is the article dedup key: the hex SHA-256 of parts joined
// with "|".
func Fingerprint(parts ...string) string {
	return HashText(strings.Join(parts, "|"))
}

// HashText returns the hex SHA-256 of s.
func HashText(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Helper functions for time formatting
func formatTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	// Strip monotonic clock and zone for consistent storage and comparisons
	return t.Truncate(0).UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	// Try RFC3339Nano first, fall back to RFC3339 for compatibility
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t.Truncate(0)
}
