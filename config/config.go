// Package config resolves recipescan settings. Precedence, highest first:
// environment variables, the YAML config file, built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

const appName = "recipescan"

// Environment overrides.
const (
	EnvSourcesDSN = "RECIPESCAN_SOURCES_DSN"
	EnvNewsDSN    = "RECIPESCAN_NEWS_DSN"
	EnvRecipesDir = "RECIPESCAN_RECIPES_DIR"
)

// Config is the resolved configuration.
type Config struct {
	SourcesDSN    string
	NewsDSN       string
	RecipesDir    string
	RecipesPrefix string
	FetchMode     string
	MaxArticles   int
	FetchRecipes  []string
	FetchInterval time.Duration
	FetchTimeout  time.Duration
	UserAgent     string
	APIAddr       string
}

// Defaults returns the built-in configuration. Databases live under
// $XDG_DATA_HOME/recipescan.
func Defaults() Config {
	dataDir := filepath.Join(xdg.DataHome, appName)
	return Config{
		SourcesDSN:    filepath.Join(dataDir, "sources.db"),
		NewsDSN:       filepath.Join(dataDir, "news.db"),
		RecipesDir:    "recipes",
		RecipesPrefix: "builtin",
		FetchMode:     "auto",
		MaxArticles:   100,
		FetchTimeout:  30 * time.Second,
		APIAddr:       ":8080",
	}
}

// Load resolves configuration from defaults, the config file at path (the
// default location when empty), and the environment.
func Load(path string) (Config, error) {
	cfg := Defaults()

	file, err := LoadConfigFile(path)
	if err != nil {
		return cfg, err
	}
	if file != nil {
		if err := cfg.apply(file); err != nil {
			return cfg, err
		}
	}

	if val := os.Getenv(EnvSourcesDSN); val != "" {
		cfg.SourcesDSN = val
	}
	if val := os.Getenv(EnvNewsDSN); val != "" {
		cfg.NewsDSN = val
	}
	if val := os.Getenv(EnvRecipesDir); val != "" {
		cfg.RecipesDir = val
	}

	return cfg, nil
}

func (c *Config) apply(f *FileConfig) error {
	if f.Storage.Sources.DSN != "" {
		c.SourcesDSN = f.Storage.Sources.DSN
	}
	if f.Storage.News.DSN != "" {
		c.NewsDSN = f.Storage.News.DSN
	}
	if f.Recipes.Dir != "" {
		c.RecipesDir = f.Recipes.Dir
	}
	if f.Recipes.Prefix != "" {
		c.RecipesPrefix = f.Recipes.Prefix
	}
	if f.Fetch.Mode != "" {
		c.FetchMode = f.Fetch.Mode
	}
	if f.Fetch.MaxArticles > 0 {
		c.MaxArticles = f.Fetch.MaxArticles
	}
	if len(f.Fetch.Recipes) > 0 {
		c.FetchRecipes = f.Fetch.Recipes
	}
	if f.Fetch.UserAgent != "" {
		c.UserAgent = f.Fetch.UserAgent
	}
	if f.API.Addr != "" {
		c.APIAddr = f.API.Addr
	}

	if f.Fetch.Interval != "" {
		d, err := ParseDuration(f.Fetch.Interval)
		if err != nil {
			return fmt.Errorf("fetch.interval: %w", err)
		}
		c.FetchInterval = d
	}
	if f.Fetch.Timeout != "" {
		d, err := ParseDuration(f.Fetch.Timeout)
		if err != nil {
			return fmt.Errorf("fetch.timeout: %w", err)
		}
		c.FetchTimeout = d
	}
	return nil
}

// ParseDuration extends time.ParseDuration to support 'd' (days) and 'w'
// (weeks).
func ParseDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err == nil {
		return d, nil
	}

	unit := 24 * time.Hour
	switch {
	case strings.HasSuffix(s, "d"):
	case strings.HasSuffix(s, "w"):
		unit *= 7
	default:
		return 0, fmt.Errorf("invalid duration: %s", s)
	}

	digits := s[:len(s)-1]
	if digits == "" || digits[0] < '0' || digits[0] > '9' {
		return 0, fmt.Errorf("invalid duration: %s", s)
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("invalid duration: %s", s)
	}
	return time.Duration(n) * unit, nil
}
