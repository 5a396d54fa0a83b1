// Package config loads LexMind configuration.
//
// Precedence, lowest to highest: built-in defaults, the user file
// ($XDG_CONFIG_HOME/lexmind/config.yaml), the project file (.lexmind.yaml
// in the working directory), then LEXMIND_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	lexerrors "github.com/Aman-CERP/lexmind/internal/errors"
)

// ProjectConfigNames are the project-level file names, in lookup order.
var ProjectConfigNames = []string{".lexmind.yaml", ".lexmind.yml"}

// Config is the complete LexMind configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Corpus     CorpusConfig     `yaml:"corpus" json:"corpus"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Storage    StorageConfig    `yaml:"storage" json:"storage"`
	Server     ServerConfig     `yaml:"server" json:"server"`
}

// CorpusConfig locates the document folder.
type CorpusConfig struct {
	Path       string   `yaml:"path" json:"path"`
	Extensions []string `yaml:"extensions" json:"extensions"`
}

// SearchConfig tunes hybrid retrieval.
type SearchConfig struct {
	// Alpha weights dense against sparse scores (1 = dense only).
	Alpha float64 `yaml:"alpha" json:"alpha"`

	DefaultK int `yaml:"default_k" json:"default_k"`
	MaxK     int `yaml:"max_k" json:"max_k"`

	// RelevanceFloor drops fused scores below it.
	RelevanceFloor float64 `yaml:"relevance_floor" json:"relevance_floor"`

	// HighlightThreshold is the cosine a snippet word needs against the query
	// embedding to be marked.
	HighlightThreshold float64 `yaml:"highlight_threshold" json:"highlight_threshold"`

	SnippetLength int `yaml:"snippet_length" json:"snippet_length"`

	// SparseBackend: "memory" (default), "sqlite" or "bleve".
	SparseBackend string `yaml:"sparse_backend" json:"sparse_backend"`

	// SparseNormalization: "none" (default) or "max".
	SparseNormalization string `yaml:"sparse_normalization" json:"sparse_normalization"`

	// DenseBackend: "flat" (default, exact) or "hnsw".
	DenseBackend string `yaml:"dense_backend" json:"dense_backend"`

	Timeout string `yaml:"timeout" json:"timeout"`

	MarkOpen  string `yaml:"mark_open" json:"mark_open"`
	MarkClose string `yaml:"mark_close" json:"mark_close"`
}

// EmbeddingsConfig selects and tunes the embedding provider.
type EmbeddingsConfig struct {
	// Provider: "static" (default), "ollama" or "openai".
	Provider      string `yaml:"provider" json:"provider"`
	Model         string `yaml:"model" json:"model"`
	Dimensions    int    `yaml:"dimensions" json:"dimensions"`
	BatchSize     int    `yaml:"batch_size" json:"batch_size"`
	CacheSize     int    `yaml:"cache_size" json:"cache_size"`
	OllamaHost    string `yaml:"ollama_host" json:"ollama_host"`
	OpenAIBaseURL string `yaml:"openai_base_url" json:"openai_base_url"`
	OpenAIToken   string `yaml:"openai_token" json:"-"`

	// Snapshot persists embeddings in the data directory between runs.
	Snapshot bool `yaml:"snapshot" json:"snapshot"`
}

// StorageConfig locates on-disk state.
type StorageConfig struct {
	DataDir   string `yaml:"data_dir" json:"data_dir"`
	SearchLog bool   `yaml:"search_log" json:"search_log"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	LogLevel      string `yaml:"log_level" json:"log_level"`
	Watch         bool   `yaml:"watch" json:"watch"`
	WatchDebounce string `yaml:"watch_debounce" json:"watch_debounce"`
}

// NewConfig returns the built-in defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Corpus: CorpusConfig{
			Path:       "docs",
			Extensions: []string{".txt", ".md", ".docx", ".pdf"},
		},
		Search: SearchConfig{
			Alpha:               0.5,
			DefaultK:            3,
			MaxK:                10,
			RelevanceFloor:      0.2,
			HighlightThreshold:  0.75,
			SnippetLength:       300,
			SparseBackend:       "memory",
			SparseNormalization: "none",
			DenseBackend:        "flat",
			Timeout:             "10s",
			MarkOpen:            "<mark>",
			MarkClose:           "</mark>",
		},
		Embeddings: EmbeddingsConfig{
			Provider:      "static",
			Dimensions:    256,
			BatchSize:     32,
			CacheSize:     4096,
			OllamaHost:    "http://localhost:11434",
			OpenAIBaseURL: "http://localhost:8080/v1",
		},
		Storage: StorageConfig{
			DataDir:   ".lexmind",
			SearchLog: true,
		},
		Server: ServerConfig{
			LogLevel:      "info",
			WatchDebounce: "500ms",
		},
	}
}

// UserConfigPath returns $XDG_CONFIG_HOME/lexmind/config.yaml, falling back
// to ~/.config/lexmind/config.yaml.
func UserConfigPath() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "lexmind", "config.yaml")
}

// Load resolves configuration for the project rooted at dir.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if p := UserConfigPath(); p != "" && fileExists(p) {
		if err := cfg.loadYAML(p); err != nil {
			return nil, err
		}
	}

	for _, name := range ProjectConfigNames {
		p := filepath.Join(dir, name)
		if fileExists(p) {
			if err := cfg.loadYAML(p); err != nil {
				return nil, err
			}
			break
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.resolvePaths(dir)
	return cfg, nil
}

// loadYAML decodes path over the current values. Keys missing from the file
// keep what the lower layers set, so alpha: 0 is an explicit value.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return lexerrors.New(lexerrors.ErrCodeConfigNotFound,
			fmt.Sprintf("failed to read config file %s", path), err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return lexerrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err)
	}
	return nil
}

// applyEnvOverrides applies LEXMIND_* variables.
func (c *Config) applyEnvOverrides() error {
	floats := map[string]*float64{
		"LEXMIND_ALPHA":               &c.Search.Alpha,
		"LEXMIND_RELEVANCE_FLOOR":     &c.Search.RelevanceFloor,
		"LEXMIND_HIGHLIGHT_THRESHOLD": &c.Search.HighlightThreshold,
	}
	for key, dst := range floats {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return lexerrors.ConfigError(fmt.Sprintf("%s must be a number, got %q", key, v), err)
			}
			*dst = f
		}
	}

	strs := map[string]*string{
		"LEXMIND_CORPUS_PATH":         &c.Corpus.Path,
		"LEXMIND_EMBEDDINGS_PROVIDER": &c.Embeddings.Provider,
		"LEXMIND_EMBEDDINGS_MODEL":    &c.Embeddings.Model,
		"LEXMIND_OLLAMA_HOST":         &c.Embeddings.OllamaHost,
		"LEXMIND_OPENAI_BASE_URL":     &c.Embeddings.OpenAIBaseURL,
		"LEXMIND_OPENAI_TOKEN":        &c.Embeddings.OpenAIToken,
		"LEXMIND_SPARSE_BACKEND":      &c.Search.SparseBackend,
		"LEXMIND_DENSE_BACKEND":       &c.Search.DenseBackend,
		"LEXMIND_LOG_LEVEL":           &c.Server.LogLevel,
		"LEXMIND_DATA_DIR":            &c.Storage.DataDir,
	}
	for key, dst := range strs {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	return nil
}

// Validate checks ranges and enumerations.
func (c *Config) Validate() error {
	s := c.Search
	if s.Alpha < 0 || s.Alpha > 1 {
		return lexerrors.New(lexerrors.ErrCodeInvalidAlpha,
			fmt.Sprintf("search.alpha must be between 0 and 1, got %g", s.Alpha), nil)
	}
	if s.RelevanceFloor < 0 {
		return lexerrors.ConfigError(fmt.Sprintf("search.relevance_floor must be non-negative, got %g", s.RelevanceFloor), nil)
	}
	if s.HighlightThreshold < -1 || s.HighlightThreshold > 1 {
		return lexerrors.ConfigError(fmt.Sprintf("search.highlight_threshold must be between -1 and 1, got %g", s.HighlightThreshold), nil)
	}
	if s.DefaultK < 1 || s.MaxK < 1 || s.DefaultK > s.MaxK {
		return lexerrors.ConfigError(fmt.Sprintf("search.default_k (%d) must be between 1 and search.max_k (%d)", s.DefaultK, s.MaxK), nil)
	}
	if s.SnippetLength < 1 {
		return lexerrors.ConfigError(fmt.Sprintf("search.snippet_length must be positive, got %d", s.SnippetLength), nil)
	}
	if err := oneOf("search.sparse_backend", s.SparseBackend, "memory", "sqlite", "bleve"); err != nil {
		return err
	}
	if err := oneOf("search.sparse_normalization", s.SparseNormalization, "none", "max"); err != nil {
		return err
	}
	if err := oneOf("search.dense_backend", s.DenseBackend, "flat", "hnsw"); err != nil {
		return err
	}
	if _, err := time.ParseDuration(s.Timeout); err != nil {
		return lexerrors.ConfigError(fmt.Sprintf("search.timeout is not a duration: %q", s.Timeout), err)
	}
	if s.MarkOpen == "" || s.MarkClose == "" {
		return lexerrors.ConfigError("search.mark_open and search.mark_close must not be empty", nil)
	}

	if err := oneOf("embeddings.provider", c.Embeddings.Provider, "static", "ollama", "openai"); err != nil {
		return err
	}
	if c.Embeddings.BatchSize < 1 {
		return lexerrors.ConfigError(fmt.Sprintf("embeddings.batch_size must be positive, got %d", c.Embeddings.BatchSize), nil)
	}
	if c.Embeddings.CacheSize < 0 {
		return lexerrors.ConfigError(fmt.Sprintf("embeddings.cache_size must be non-negative, got %d", c.Embeddings.CacheSize), nil)
	}

	if err := oneOf("server.log_level", c.Server.LogLevel, "debug", "info", "warn", "error"); err != nil {
		return err
	}
	if _, err := time.ParseDuration(c.Server.WatchDebounce); err != nil {
		return lexerrors.ConfigError(fmt.Sprintf("server.watch_debounce is not a duration: %q", c.Server.WatchDebounce), err)
	}
	return nil
}

// SearchTimeout returns the parsed search timeout.
func (c *Config) SearchTimeout() time.Duration {
	d, err := time.ParseDuration(c.Search.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// WatchDebounce returns the parsed watcher debounce.
func (c *Config) WatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Server.WatchDebounce)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// resolvePaths makes relative corpus and data paths absolute against dir.
func (c *Config) resolvePaths(dir string) {
	if dir == "" {
		return
	}
	if !filepath.IsAbs(c.Corpus.Path) {
		c.Corpus.Path = filepath.Join(dir, c.Corpus.Path)
	}
	if !filepath.IsAbs(c.Storage.DataDir) {
		c.Storage.DataDir = filepath.Join(dir, c.Storage.DataDir)
	}
}

// WriteYAML writes the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func oneOf(field, value string, allowed ...string) error {
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return nil
		}
	}
	return lexerrors.ConfigError(
		fmt.Sprintf("%s must be one of %s, got %q", field, strings.Join(allowed, ", "), value), nil)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
