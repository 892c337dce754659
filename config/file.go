package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// StorageConfig represents storage configuration from config file.
type StorageConfig struct {
	Sources struct {
		DSN string `yaml:"dsn"`
	} `yaml:"sources"`
	News struct {
		DSN string `yaml:"dsn"`
	} `yaml:"news"`
}

// RecipesConfig locates the recipe corpus.
type RecipesConfig struct {
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`
}

// FetchConfig holds fetch stage options. Durations accept Go syntax plus
// d and w suffixes.
type FetchConfig struct {
	Mode        string   `yaml:"mode"`
	MaxArticles int      `yaml:"max_articles"`
	Recipes     []string `yaml:"recipes"`
	Interval    string   `yaml:"interval"`
	Timeout     string   `yaml:"timeout"`
	UserAgent   string   `yaml:"user_agent"`
}

// APIConfig configures the read-only HTTP API.
type APIConfig struct {
	Addr string `yaml:"addr"`
}

// FileConfig represents the structure of config.yaml.
type FileConfig struct {
	Storage StorageConfig `yaml:"storage"`
	Recipes RecipesConfig `yaml:"recipes"`
	Fetch   FetchConfig   `yaml:"fetch"`
	API     APIConfig     `yaml:"api"`
}

// DefaultPath returns $XDG_CONFIG_HOME/recipescan/config.yaml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

// LoadConfigFile loads configuration from path, or from DefaultPath when path
// is empty. Returns nil if the file doesn't exist (not an error). Returns
// error if the file exists but cannot be parsed.
func LoadConfigFile(path string) (*FileConfig, error) {
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}
