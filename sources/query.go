package sources

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pevans/recipescan/endpoint"
)

// RecipeFilter represents filtering options for listing recipes.
type RecipeFilter struct {
	ParseStatus *string // Filter by parse_status
	Limit       int     // Pagination limit
	Offset      int     // Pagination offset
}

// FeedGroup is the de-duplicated feed list of one recipe.
type FeedGroup struct {
	RecipeUID   string
	RecipeTitle *string
	Feeds       []FeedEndpoint
}

const recipeColumns = `
	id, recipe_uid, title, author, description, language,
	publication_type, needs_subscription, class_name,
	file_path, file_sha256, parse_status, parse_error, last_parsed
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecipe(row rowScanner) (*Recipe, error) {
	var r Recipe
	var filePath, sha, status, lastParsed sql.NullString
	err := row.Scan(
		&r.ID, &r.UID, &r.Title, &r.Author, &r.Description, &r.Language,
		&r.PublicationType, &r.NeedsSubscription, &r.ClassName,
		&filePath, &sha, &status, &r.ParseError, &lastParsed,
	)
	if err != nil {
		return nil, err
	}

	r.FilePath = filePath.String
	r.FileSHA256 = sha.String
	r.ParseStatus = status.String
	if lastParsed.Valid {
		r.LastParsed = parseTime(lastParsed.String)
	}
	return &r, nil
}

// GetRecipe retrieves a recipe by its identifier.
func (s *SourceStore) GetRecipe(uid string) (*Recipe, error) {
	row := s.db.QueryRow("SELECT "+recipeColumns+" FROM recipes WHERE recipe_uid = ?", uid)
	r, err := scanRecipe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecipeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query recipe: %w", err)
	}
	return r, nil
}

// ListRecipes lists recipes ordered by identifier.
func (s *SourceStore) ListRecipes(filter RecipeFilter) ([]Recipe, error) {
	query := "SELECT " + recipeColumns + " FROM recipes"

	var args []any
	if filter.ParseStatus != nil {
		query += " WHERE parse_status = ?"
		args = append(args, *filter.ParseStatus)
	}

	query += " ORDER BY recipe_uid"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query recipes: %w", err)
	}
	defer rows.Close()

	var recipes []Recipe
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		recipes = append(recipes, *r)
	}
	return recipes, rows.Err()
}

// ListRecipeEndpoints returns every link of a recipe joined with its
// endpoint, in discovery order.
func (s *SourceStore) ListRecipeEndpoints(uid string) ([]RecipeEndpoint, error) {
	recipe, err := s.GetRecipe(uid)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT e.id, e.url, e.url_type, e.scheme, e.domain, e.path, e.query,
		       re.recipe_id, re.endpoint_id, re.context, re.feed_title, re.source,
		       re.confidence, re.raw_url, re.first_seen, re.last_seen
		FROM recipe_endpoints re
		JOIN endpoints e ON e.id = re.endpoint_id
		WHERE re.recipe_id = ?
		ORDER BY re.rowid
	`

	rows, err := s.db.Query(query, recipe.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query recipe endpoints: %w", err)
	}
	defer rows.Close()

	var out []RecipeEndpoint
	for rows.Next() {
		var re RecipeEndpoint
		var typ, source string
		var raw, firstSeen, lastSeen sql.NullString
		err := rows.Scan(
			&re.Endpoint.ID, &re.URL, &typ, &re.Scheme, &re.Domain, &re.Path, &re.Query,
			&re.RecipeID, &re.EndpointID, &re.Context, &re.FeedTitle, &source,
			&re.Confidence, &raw, &firstSeen, &lastSeen,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe endpoint: %w", err)
		}
		re.Type = endpoint.Type(typ)
		re.Source = endpoint.Source(source)
		re.RawURL = raw.String
		re.FirstSeen = parseTime(firstSeen.String)
		re.LastSeen = parseTime(lastSeen.String)
		out = append(out, re)
	}
	return out, rows.Err()
}

// ListEndpoints lists endpoints ordered by URL. An empty typ lists all.
func (s *SourceStore) ListEndpoints(typ endpoint.Type) ([]Endpoint, error) {
	query := "SELECT id, url, url_type, scheme, domain, path, query FROM endpoints"

	var args []any
	if typ != "" {
		query += " WHERE url_type = ?"
		args = append(args, string(typ))
	}
	query += " ORDER BY url"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query endpoints: %w", err)
	}
	defer rows.Close()

	var out []Endpoint
	for rows.Next() {
		var e Endpoint
		var t string
		if err := rows.Scan(&e.ID, &e.URL, &t, &e.Scheme, &e.Domain, &e.Path, &e.Query); err != nil {
			return nil, fmt.Errorf("failed to scan endpoint: %w", err)
		}
		e.Type = endpoint.Type(t)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListFeedEndpoints returns, per recipe in identifier order, the feed-typed
// endpoints to poll. A URL linked more than once appears once; it takes the
// first non-empty feed title among its links.
func (s *SourceStore) ListFeedEndpoints(uids []string) ([]FeedGroup, error) {
	query := `
		SELECT r.recipe_uid, r.title, e.url, re.feed_title
		FROM recipe_endpoints re
		JOIN endpoints e ON e.id = re.endpoint_id
		JOIN recipes r ON r.id = re.recipe_id
		WHERE e.url_type = ?
	`
	args := []any{string(endpoint.TypeFeed)}

	if len(uids) > 0 {
		query += " AND r.recipe_uid IN (?" + strings.Repeat(", ?", len(uids)-1) + ")"
		for _, uid := range uids {
			args = append(args, uid)
		}
	}
	query += " ORDER BY r.recipe_uid, re.rowid"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query feed endpoints: %w", err)
	}
	defer rows.Close()

	var groups []FeedGroup
	var index map[string]int
	for rows.Next() {
		var f FeedEndpoint
		if err := rows.Scan(&f.RecipeUID, &f.RecipeTitle, &f.URL, &f.FeedTitle); err != nil {
			return nil, fmt.Errorf("failed to scan feed endpoint: %w", err)
		}

		if len(groups) == 0 || groups[len(groups)-1].RecipeUID != f.RecipeUID {
			groups = append(groups, FeedGroup{RecipeUID: f.RecipeUID, RecipeTitle: f.RecipeTitle})
			index = make(map[string]int)
		}
		g := &groups[len(groups)-1]

		if i, seen := index[f.URL]; seen {
			if g.Feeds[i].FeedTitle == "" {
				g.Feeds[i].FeedTitle = f.FeedTitle
			}
			continue
		}
		index[f.URL] = len(g.Feeds)
		g.Feeds = append(g.Feeds, f)
	}
	return groups, rows.Err()
}
