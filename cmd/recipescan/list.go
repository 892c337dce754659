package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pevans/recipescan/newsfeed"
	"github.com/pevans/recipescan/sources"
	"github.com/spf13/cobra"
)

var (
	flagFormat string
	flagStatus string
	flagRecipe string
	flagOffset int
	flagPage   int
)

var recipesCmd = &cobra.Command{
	Use:   "recipes",
	Short: "List extracted recipes",
	Args:  cobra.NoArgs,
	RunE:  runRecipes,
}

var articlesCmd = &cobra.Command{
	Use:   "articles",
	Short: "List fetched articles, newest first",
	Args:  cobra.NoArgs,
	RunE:  runArticles,
}

func init() {
	for _, c := range []*cobra.Command{recipesCmd, articlesCmd} {
		c.Flags().StringVar(&flagFormat, "format", "table", "output format: table, json, or compact")
		c.Flags().IntVar(&flagPage, "limit", 20, "maximum rows to show")
		c.Flags().IntVar(&flagOffset, "offset", 0, "rows to skip")
	}
	recipesCmd.Flags().StringVar(&flagStatus, "status", "", "only recipes with this parse status (ok or error)")
	articlesCmd.Flags().StringVar(&flagRecipe, "recipe", "", "only articles of this recipe")
}

func runRecipes(cmd *cobra.Command, args []string) error {
	store, err := openSources()
	if err != nil {
		return err
	}
	defer store.Close()

	filter := sources.RecipeFilter{Limit: flagPage, Offset: flagOffset}
	if flagStatus != "" {
		filter.ParseStatus = &flagStatus
	}

	recipes, err := store.ListRecipes(filter)
	if err != nil {
		return err
	}

	switch flagFormat {
	case "json":
		return printJSON(map[string]any{"recipes": recipes, "total": len(recipes)})
	case "compact":
		for _, r := range recipes {
			fmt.Printf("%s %s\n", r.UID, orDefault(r.Title, "Untitled"))
		}
		return nil
	default:
		printRecipeTable(recipes)
		return nil
	}
}

func runArticles(cmd *cobra.Command, args []string) error {
	store, err := openNews()
	if err != nil {
		return err
	}
	defer store.Close()

	filter := newsfeed.ArticleFilter{RecipeUID: flagRecipe, Limit: flagPage, Offset: flagOffset}

	total, err := store.CountArticles(filter)
	if err != nil {
		return err
	}
	articles, err := store.ListArticles(filter)
	if err != nil {
		return err
	}

	switch flagFormat {
	case "json":
		return printJSON(map[string]any{"articles": articles, "total": total})
	case "compact":
		printArticlesCompact(articles)
		return nil
	default:
		printArticleTable(articles, total, flagOffset)
		return nil
	}
}

// printRecipeTable prints recipes in human-readable table format
func printRecipeTable(recipes []sources.Recipe) {
	if len(recipes) == 0 {
		fmt.Println("No recipes to display.")
		return
	}

	fmt.Printf("%-40s %-6s %-8s %s\n", "RECIPE", "STATUS", "LANGUAGE", "TITLE")
	fmt.Println("----------------------------------------------------------------------------------------------------")

	for _, r := range recipes {
		fmt.Printf("%-40s %-6s %-8s %s\n",
			truncate(r.UID, 40),
			r.ParseStatus,
			orDefault(r.Language, "-"),
			truncate(orDefault(r.Title, "Untitled"), 50),
		)
	}
}

// printArticleTable prints articles in human-readable table format
func printArticleTable(articles []newsfeed.Article, total, offset int) {
	if len(articles) == 0 {
		fmt.Println("No articles to display.")
		return
	}

	fmt.Printf("Showing %d-%d of %d articles\n\n", offset+1, offset+len(articles), total)

	for _, a := range articles {
		fmt.Printf("%s\n", truncate(orDefault(a.Title, "Untitled"), 70))
		fmt.Printf("   %s | %s | Published: %s | Fetched: %s\n",
			a.RecipeUID,
			orDefault(a.FeedTitle, "Unknown feed"),
			orDefault(a.Published, "unknown"),
			a.FetchedAt.Format("2006-01-02 15:04"),
		)
		if a.ContentText != "" {
			fmt.Printf("   %s\n", wrapText(truncate(a.ContentText, 150), 90))
		}
		fmt.Printf("   URL: %s\n", orDefault(a.URL, "-"))
		fmt.Println()
	}
}

// printArticlesCompact prints one line per article
func printArticlesCompact(articles []newsfeed.Article) {
	if len(articles) == 0 {
		fmt.Println("No articles to display.")
		return
	}

	for _, a := range articles {
		fmt.Printf("%s %s (%s)\n", a.Fingerprint[:8], orDefault(a.Title, "Untitled"), a.RecipeUID)
	}
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
