package newsfeed

import (
	"database/sql"
	"fmt"
)

const articleColumns = `
	id, recipe_uid, recipe_title, feed_title, article_title, article_url,
	article_guid, author, summary, published, fetched_at,
	content_html, content_text, content_hash, fingerprint
`

// ListArticles lists articles newest first.
func (s *NewsStore) ListArticles(filter ArticleFilter) ([]Article, error) {
	query := "SELECT " + articleColumns + " FROM articles"

	var args []any
	if filter.RecipeUID != "" {
		query += " WHERE recipe_uid = ?"
		args = append(args, filter.RecipeUID)
	}

	query += " ORDER BY id DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		var a Article
		var fetchedAt, html, text sql.NullString
		err := rows.Scan(
			&a.ID, &a.RecipeUID, &a.RecipeTitle, &a.FeedTitle, &a.Title, &a.URL,
			&a.GUID, &a.Author, &a.Summary, &a.Published, &fetchedAt,
			&html, &text, &a.ContentHash, &a.Fingerprint,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		if fetchedAt.Valid {
			a.FetchedAt = parseTime(fetchedAt.String)
		}
		a.ContentHTML = html.String
		a.ContentText = text.String
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// CountArticles counts the articles matching filter, ignoring pagination.
func (s *NewsStore) CountArticles(filter ArticleFilter) (int, error) {
	query := "SELECT COUNT(*) FROM articles"

	var args []any
	if filter.RecipeUID != "" {
		query += " WHERE recipe_uid = ?"
		args = append(args, filter.RecipeUID)
	}

	var n int
	if err := s.db.QueryRow(query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return n, nil
}

// ListRuns lists runs newest first. An empty recipeUID lists all; a
// non-positive limit means no limit.
func (s *NewsStore) ListRuns(recipeUID string, limit int) ([]Run, error) {
	query := `
		SELECT id, recipe_uid, started_at, finished_at, status, error, article_count
		FROM runs
	`

	var args []any
	if recipeUID != "" {
		query += " WHERE recipe_uid = ?"
		args = append(args, recipeUID)
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished, status sql.NullString
		var count sql.NullInt64
		err := rows.Scan(&r.ID, &r.RecipeUID, &started, &finished, &status, &r.Error, &count)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt = parseTime(started.String)
		r.FinishedAt = parseTime(finished.String)
		r.Status = status.String
		r.ArticleCount = int(count.Int64)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
