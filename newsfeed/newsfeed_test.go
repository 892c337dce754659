package newsfeed

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: create a test news store
func setupTestStore(t *testing.T) *NewsStore {
	store, err := NewNewsStore(filepath.Join(t.TempDir(), "news.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func strPtr(s string) *string { return &s }

// Test helper: create a sample article
func createSampleArticle(uid, url, title string) Article {
	return Article{
		RecipeUID:   uid,
		RecipeTitle: strPtr("Example"),
		FeedTitle:   strPtr("Tech"),
		Title:       strPtr(title),
		URL:         strPtr(url),
		Published:   strPtr("Mon, 02 Jan 2026 15:04:05 GMT"),
		ContentHTML: "<p>Hello</p>",
		ContentText: "Hello",
		ContentHash: strPtr(HashText("<p>Hello</p>")),
	}
}

// TestFingerprint verifies the dedup key is stable and order sensitive
func TestFingerprint(t *testing.T) {
	a := Fingerprint("builtin:x", "http://ex.com/1", "Title", "")
	b := Fingerprint("builtin:x", "http://ex.com/1", "Title", "")
	c := Fingerprint("builtin:x", "Title", "http://ex.com/1", "")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
	assert.Equal(t, HashText("builtin:x|http://ex.com/1|Title|"), a)
}

// TestInsertArticle_DuplicateIsNoop verifies a repeated fingerprint leaves
// the first row untouched, fetched_at included
func TestInsertArticle_DuplicateIsNoop(t *testing.T) {
	store := setupTestStore(t)

	first := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	orig := now
	now = func() time.Time { return first }
	t.Cleanup(func() { now = orig })

	article := createSampleArticle("builtin:x", "http://ex.com/1", "One")
	inserted, err := store.InsertArticle(article)
	require.NoError(t, err)
	assert.True(t, inserted)

	now = func() time.Time { return first.Add(24 * time.Hour) }
	again := article
	again.ContentText = "changed"
	again.Summary = strPtr("changed")
	inserted, err = store.InsertArticle(again)
	require.NoError(t, err)
	assert.False(t, inserted, "duplicate fingerprint should be ignored")

	articles, err := store.ListArticles(ArticleFilter{})
	require.NoError(t, err)
	require.Len(t, articles, 1)
	assert.True(t, first.Equal(articles[0].FetchedAt), "fetched_at keeps the first insertion")
	assert.Equal(t, "Hello", articles[0].ContentText)
	assert.Nil(t, articles[0].Summary)
	assert.Equal(t, Fingerprint("builtin:x", "http://ex.com/1", "One", "Mon, 02 Jan 2026 15:04:05 GMT"),
		articles[0].Fingerprint)
}

// TestInsertArticle_DistinctFingerprints verifies different keys coexist
func TestInsertArticle_DistinctFingerprints(t *testing.T) {
	store := setupTestStore(t)

	for _, a := range []Article{
		createSampleArticle("builtin:x", "http://ex.com/1", "One"),
		createSampleArticle("builtin:x", "http://ex.com/2", "Two"),
		createSampleArticle("builtin:y", "http://ex.com/1", "One"),
		{RecipeUID: "builtin:y"},
	} {
		inserted, err := store.InsertArticle(a)
		require.NoError(t, err)
		assert.True(t, inserted)
	}

	total, err := store.CountArticles(ArticleFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, total)

	onlyX, err := store.ListArticles(ArticleFilter{RecipeUID: "builtin:x"})
	require.NoError(t, err)
	require.Len(t, onlyX, 2)
	assert.Equal(t, "Two", *onlyX[0].Title, "newest first")

	page, err := store.ListArticles(ArticleFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

// TestInsertArticle_RequiresRecipe verifies the recipe key is mandatory
func TestInsertArticle_RequiresRecipe(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.InsertArticle(Article{})
	assert.ErrorIs(t, err, ErrEmptyRecipeUID)
}

// TestRecordRun_AppendOnly verifies every run is kept
func TestRecordRun_AppendOnly(t *testing.T) {
	store := setupTestStore(t)
	start := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)

	_, err := store.RecordRun(Run{
		RecipeUID: "builtin:x", StartedAt: start, FinishedAt: start.Add(time.Second),
		Status: RunOK, ArticleCount: 3,
	})
	require.NoError(t, err)
	_, err = store.RecordRun(Run{
		RecipeUID: "builtin:x", StartedAt: start.Add(time.Hour), FinishedAt: start.Add(time.Hour),
		Status: RunError, Error: strPtr("URLError: timed out"),
	})
	require.NoError(t, err)
	_, err = store.RecordRun(Run{RecipeUID: "builtin:y", Status: RunOK})
	require.NoError(t, err)

	runs, err := store.ListRuns("builtin:x", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, RunError, runs[0].Status)
	assert.Equal(t, "URLError: timed out", *runs[0].Error)
	assert.Equal(t, RunOK, runs[1].Status)
	assert.Equal(t, 3, runs[1].ArticleCount)
	assert.True(t, start.Equal(runs[1].StartedAt))
	assert.Nil(t, runs[1].Error)

	all, err := store.ListRuns("", 1)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "builtin:y", all[0].RecipeUID)
}

// TestBatch_CommitAndRollback verifies a recipe's writes land together
func TestBatch_CommitAndRollback(t *testing.T) {
	store := setupTestStore(t)

	batch, err := store.Begin()
	require.NoError(t, err)
	_, err = batch.InsertArticle(createSampleArticle("builtin:x", "http://ex.com/1", "One"))
	require.NoError(t, err)
	_, err = batch.RecordRun(Run{RecipeUID: "builtin:x", Status: RunOK, ArticleCount: 1})
	require.NoError(t, err)
	require.NoError(t, batch.Rollback())

	total, err := store.CountArticles(ArticleFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)

	batch, err = store.Begin()
	require.NoError(t, err)
	_, err = batch.InsertArticle(createSampleArticle("builtin:x", "http://ex.com/1", "One"))
	require.NoError(t, err)
	_, err = batch.RecordRun(Run{RecipeUID: "builtin:x", Status: RunOK, ArticleCount: 1})
	require.NoError(t, err)
	require.NoError(t, batch.Commit())

	total, err = store.CountArticles(ArticleFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	runs, err := store.ListRuns("builtin:x", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
