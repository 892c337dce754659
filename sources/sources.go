// Package sources persists what the extraction pass learns about recipes:
// the recipes themselves, the endpoints they reference, and a link per
// discovery route between the two.
package sources

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pevans/recipescan/endpoint"
)

// Custom errors for source operations
var (
	ErrRecipeNotFound = errors.New("recipe not found")
	ErrEmptyRecipeUID = errors.New("recipe_uid must not be empty")
	ErrEmptyURL       = errors.New("endpoint url must not be empty")
)

// Parse outcomes stored in Recipe.ParseStatus.
const (
	ParseOK    = "ok"
	ParseError = "error"
)

// now is replaced in tests to control first_seen/last_seen.
var now = time.Now

// SourceStore manages recipes, endpoints, and their links using SQLite.
// Writes made directly on the store autocommit; use Begin to group them.
type SourceStore struct {
	db *sql.DB
	writer
}

// Recipe is a recipe row. Metadata fields are nil when the analyzer could
// not resolve them.
type Recipe struct {
	ID                int64     `json:"id"`
	UID               string    `json:"recipe_uid"`
	Title             *string   `json:"title"`
	Author            *string   `json:"author"`
	Description       *string   `json:"description"`
	Language          *string   `json:"language"`
	PublicationType   *string   `json:"publication_type"`
	NeedsSubscription *string   `json:"needs_subscription"`
	ClassName         *string   `json:"class_name"`
	FilePath          string    `json:"file_path"`
	FileSHA256        string    `json:"file_sha256"`
	ParseStatus       string    `json:"parse_status"`
	ParseError        *string   `json:"parse_error"`
	LastParsed        time.Time `json:"last_parsed"`
}

// Endpoint is a canonical URL with the components it had when first
// stored.
type Endpoint struct {
	ID     int64         `json:"id"`
	URL    string        `json:"url"`
	Type   endpoint.Type `json:"url_type"`
	Scheme string        `json:"scheme"`
	Domain string        `json:"domain"`
	Path   string        `json:"path"`
	Query  string        `json:"query"`
}

// Link is one discovery route from a recipe to an endpoint.
type Link struct {
	RecipeID   int64           `json:"recipe_id"`
	EndpointID int64           `json:"endpoint_id"`
	Context    string          `json:"context"`
	FeedTitle  string          `json:"feed_title"`
	Source     endpoint.Source `json:"source"`
	Confidence float64         `json:"confidence"`
	RawURL     string          `json:"raw_url"`
	FirstSeen  time.Time       `json:"first_seen"`
	LastSeen   time.Time       `json:"last_seen"`
}

// RecipeEndpoint is a link joined with its endpoint.
type RecipeEndpoint struct {
	Endpoint
	Link
}

// FeedEndpoint is a feed URL to poll for one recipe.
type FeedEndpoint struct {
	RecipeUID   string
	RecipeTitle *string
	URL         string
	FeedTitle   string
}

// NewSourceStore opens (creating if needed) the sources database at dbPath.
func NewSourceStore(dbPath string) (*SourceStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SourceStore{db: db, writer: writer{q: db}}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the tables if they don't exist.
func (s *SourceStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS recipes (
		id INTEGER PRIMARY KEY,
		recipe_uid TEXT UNIQUE,
		title TEXT,
		author TEXT,
		description TEXT,
		language TEXT,
		publication_type TEXT,
		needs_subscription TEXT,
		class_name TEXT,
		file_path TEXT,
		file_sha256 TEXT,
		parse_status TEXT,
		parse_error TEXT,
		last_parsed TEXT
	);

	CREATE TABLE IF NOT EXISTS endpoints (
		id INTEGER PRIMARY KEY,
		url TEXT UNIQUE,
		url_type TEXT,
		scheme TEXT,
		domain TEXT,
		path TEXT,
		query TEXT
	);

	CREATE TABLE IF NOT EXISTS recipe_endpoints (
		recipe_id INTEGER NOT NULL,
		endpoint_id INTEGER NOT NULL,
		context TEXT NOT NULL DEFAULT '',
		feed_title TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL,
		confidence REAL,
		raw_url TEXT,
		first_seen TEXT,
		last_seen TEXT,
		UNIQUE(recipe_id, endpoint_id, context, feed_title, source)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SourceStore) Close() error {
	return s.db.Close()
}

// Batch groups writes into one transaction.
type Batch struct {
	tx *sql.Tx
	writer
}

// Begin starts a batch. Callers must Commit or Rollback it.
func (s *SourceStore) Begin() (*Batch, error) {
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

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

type writer struct {
	q dbtx
}

// UpsertRecipe inserts r or, when its recipe_uid is already stored,
// overwrites every other column with r's values. It returns the row id.
func (w writer) UpsertRecipe(r Recipe) (int64, error) {
	if r.UID == "" {
		return 0, ErrEmptyRecipeUID
	}
	if r.LastParsed.IsZero() {
		r.LastParsed = now()
	}

	query := `
		INSERT INTO recipes (
			recipe_uid, title, author, description, language,
			publication_type, needs_subscription, class_name,
			file_path, file_sha256, parse_status, parse_error, last_parsed
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(recipe_uid) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			description = excluded.description,
			language = excluded.language,
			publication_type = excluded.publication_type,
			needs_subscription = excluded.needs_subscription,
			class_name = excluded.class_name,
			file_path = excluded.file_path,
			file_sha256 = excluded.file_sha256,
			parse_status = excluded.parse_status,
			parse_error = excluded.parse_error,
			last_parsed = excluded.last_parsed
	`

	_, err := w.q.Exec(query,
		r.UID, r.Title, r.Author, r.Description, r.Language,
		r.PublicationType, r.NeedsSubscription, r.ClassName,
		r.FilePath, r.FileSHA256, r.ParseStatus, r.ParseError,
		formatTime(&r.LastParsed),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert recipe: %w", err)
	}

	var id int64
	err = w.q.QueryRow("SELECT id FROM recipes WHERE recipe_uid = ?", r.UID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to read recipe id: %w", err)
	}
	return id, nil
}

// UpsertEndpoint inserts a canonical URL or, when it is already stored,
// refreshes only its type. The decomposed components keep their first
// values. It returns the row id.
func (w writer) UpsertEndpoint(u string, typ endpoint.Type) (int64, error) {
	if u == "" {
		return 0, ErrEmptyURL
	}

	parts := endpoint.Split(u)
	query := `
		INSERT INTO endpoints (url, url_type, scheme, domain, path, query)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET url_type = excluded.url_type
	`

	_, err := w.q.Exec(query, u, string(typ), parts.Scheme, parts.Domain, parts.Path, parts.Query)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert endpoint: %w", err)
	}

	var id int64
	err = w.q.QueryRow("SELECT id FROM endpoints WHERE url = ?", u).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to read endpoint id: %w", err)
	}
	return id, nil
}

// LinkRecipeEndpoint records that hit led from a recipe to an endpoint. A
// link is identified by recipe, endpoint, context, feed title, and source;
// rediscovering it only advances last_seen. The confidence and raw URL of
// the first discovery are kept.
func (w writer) LinkRecipeEndpoint(recipeID, endpointID int64, hit endpoint.Hit) error {
	ts := now()
	query := `
		INSERT INTO recipe_endpoints (
			recipe_id, endpoint_id, context, feed_title, source,
			confidence, raw_url, first_seen, last_seen
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(recipe_id, endpoint_id, context, feed_title, source)
		DO UPDATE SET last_seen = excluded.last_seen
	`

	_, err := w.q.Exec(query,
		recipeID, endpointID, hit.Context, hit.FeedTitle, string(hit.Source),
		hit.Confidence, hit.RawURL, formatTime(&ts), formatTime(&ts),
	)
	if err != nil {
		return fmt.Errorf("failed to link recipe endpoint: %w", err)
	}
	return nil
}

// RecordHit upserts the hit's endpoint and links it to the recipe.
func (w writer) RecordHit(recipeID int64, hit endpoint.Hit) error {
	endpointID, err := w.UpsertEndpoint(hit.URL, hit.Type)
	if err != nil {
		return err
	}
	return w.LinkRecipeEndpoint(recipeID, endpointID, hit)
}

// Helper functions for time formatting
func formatTime(t *time.Time) any {
	if t == nil {
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
