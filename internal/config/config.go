// Package config loads and validates the project configuration. Precedence,
// lowest to highest: built-in defaults, the project .codebuddy.yaml, then
// CODEBUDDY_* environment variables. A .env file in the project root is
// loaded into the environment first.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	cberrors "github.com/phuetz/code-buddy/internal/errors"
)

// FileName is the project configuration file, looked up in the project root.
const FileName = ".codebuddy.yaml"

// Config is the complete configuration.
type Config struct {
	Version    int              `yaml:"version"`
	Paths      PathsConfig      `yaml:"paths"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Search     SearchConfig     `yaml:"search"`
	Store      StoreConfig      `yaml:"store"`
	Index      IndexConfig      `yaml:"index"`
	Watch      WatchConfig      `yaml:"watch"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Log        LogConfig        `yaml:"log"`
}

// PathsConfig selects which files to index.
type PathsConfig struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider is one of tfidf, semhash, code.
	Provider   string `yaml:"provider"`
	Dimensions int    `yaml:"dimensions"`
	CacheSize  int    `yaml:"cache_size"`
}

// SearchConfig configures retrieval defaults.
type SearchConfig struct {
	// Strategy is one of semantic, keyword, hybrid, reranked, corrective.
	Strategy string  `yaml:"strategy"`
	TopK     int     `yaml:"top_k"`
	MinScore float64 `yaml:"min_score"`
}

// StoreConfig selects and tunes the vector store backend.
type StoreConfig struct {
	// Backend is hnsw, brute, or partitioned (brute force sharded by
	// language).
	Backend        string `yaml:"backend"`
	M              int    `yaml:"m"`
	EfConstruction int    `yaml:"ef_construction"`
	EfSearch       int    `yaml:"ef_search"`
}

// IndexConfig configures persistence.
type IndexConfig struct {
	// Path is the index directory. Empty disables persistence.
	Path string `yaml:"path"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// TelemetryConfig configures local query metrics.
type TelemetryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// defaultExcludePatterns are always excluded unless overridden.
var defaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
	"**/*.min.js",
	"**/*.min.css",
	"**/package-lock.json",
	"**/go.sum",
	"**/.codebuddy/**",
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			Exclude: append([]string(nil), defaultExcludePatterns...),
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "code",
			Dimensions: 256,
			CacheSize:  10000,
		},
		Search: SearchConfig{
			Strategy: "hybrid",
			TopK:     10,
		},
		Store: StoreConfig{
			Backend:        "hnsw",
			M:              16,
			EfConstruction: 200,
			EfSearch:       50,
		},
		Index: IndexConfig{
			Path: filepath.Join(".codebuddy", "index"),
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the effective configuration for a project root.
func Load(rootDir string) (*Config, error) {
	// Best-effort; a missing .env is the common case.
	_ = godotenv.Load(filepath.Join(rootDir, ".env"))

	cfg := Default()

	path := filepath.Join(rootDir, FileName)
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, cberrors.New(cberrors.ErrCodeConfigInvalid,
				fmt.Sprintf("parse %s: %v", FileName, err), err).
				WithSuggestion("fix the YAML syntax or delete the file to use defaults")
		}
	case !os.IsNotExist(err):
		return nil, cberrors.Wrap(cberrors.ErrCodeConfigNotFound, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies CODEBUDDY_* environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CODEBUDDY_EMBED_PROVIDER"); v != "" {
		cfg.Embeddings.Provider = v
	}
	if v := os.Getenv("CODEBUDDY_EMBED_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Embeddings.Dimensions = n
		}
	}
	if v := os.Getenv("CODEBUDDY_SEARCH_STRATEGY"); v != "" {
		cfg.Search.Strategy = v
	}
	if v := os.Getenv("CODEBUDDY_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("CODEBUDDY_INDEX_PATH"); v != "" {
		cfg.Index.Path = v
	}
	if v := os.Getenv("CODEBUDDY_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CODEBUDDY_TELEMETRY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Telemetry.Enabled = b
		}
	}
}

// Validate rejects configurations that would fail later in confusing ways.
func (c *Config) Validate() error {
	switch c.Embeddings.Provider {
	case "tfidf", "semhash", "code":
	default:
		return cberrors.New(cberrors.ErrCodeConfigInvalid,
			fmt.Sprintf("unknown embedding provider %q", c.Embeddings.Provider), nil).
			WithSuggestion("use one of: tfidf, semhash, code")
	}
	if c.Embeddings.Dimensions <= 0 {
		return cberrors.New(cberrors.ErrCodeConfigInvalid,
			fmt.Sprintf("embedding dimensions must be positive, got %d", c.Embeddings.Dimensions), nil)
	}
	switch c.Store.Backend {
	case "hnsw", "brute", "partitioned":
	default:
		return cberrors.New(cberrors.ErrCodeConfigInvalid,
			fmt.Sprintf("unknown store backend %q", c.Store.Backend), nil).
			WithSuggestion("use one of: hnsw, brute, partitioned")
	}
	switch c.Search.Strategy {
	case "semantic", "keyword", "hybrid", "reranked", "corrective":
	default:
		return cberrors.New(cberrors.ErrCodeConfigInvalid,
			fmt.Sprintf("unknown search strategy %q", c.Search.Strategy), nil)
	}
	if c.Search.TopK <= 0 {
		return cberrors.New(cberrors.ErrCodeConfigInvalid,
			fmt.Sprintf("search top_k must be positive, got %d", c.Search.TopK), nil)
	}
	return nil
}

// Save writes the configuration to the project root.
func (c *Config) Save(rootDir string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	path := filepath.Join(rootDir, FileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", FileName, err)
	}
	return nil
}
