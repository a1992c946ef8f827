// Package config loads and validates GuideMCP configuration.
//
// Configuration is YAML with environment variable overrides. Each guideline
// corpus family is declared here; the engine itself is family-agnostic and
// everything family-specific (upstream URL, grammar, namespace) is
// configuration, not code.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	guideerr "github.com/Aman-CERP/guidemcp/internal/errors"
)

// Known grammar names. Each maps to a guideline.Grammar implementation.
const (
	GrammarCppCore  = "cppcore"
	GrammarRustAPI  = "rustapi"
	GrammarNodeBest = "nodebest"
)

// Duration wraps time.Duration so config files can say "30s" or "2m".
type Duration time.Duration

// UnmarshalYAML parses Go duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration in the same string form it is read in.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the complete GuideMCP configuration.
type Config struct {
	Version    int              `yaml:"version"`
	DataDir    string           `yaml:"data_dir"`
	Server     ServerConfig     `yaml:"server"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Update     UpdateConfig     `yaml:"update"`
	Search     SearchConfig     `yaml:"search"`
	Families   []FamilyConfig   `yaml:"families"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport"` // only "stdio" is supported
	LogLevel  string `yaml:"log_level"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider selects the backend: "ollama" (default) or "static"
	// (deterministic offline embeddings, mainly for tests and CI).
	Provider string `yaml:"provider"`

	// Model is the embedding model name (default: nomic-embed-text).
	Model string `yaml:"model"`

	// Dimensions is the embedding dimension; 0 means autodetect.
	Dimensions int `yaml:"dimensions"`

	// BatchSize is the number of texts per embedding request.
	BatchSize int `yaml:"batch_size"`

	// Workers bounds concurrent embedding batches during indexing.
	Workers int `yaml:"workers"`

	// OllamaHost is the Ollama API endpoint.
	OllamaHost string `yaml:"ollama_host"`

	// Timeout bounds a single embedding request.
	Timeout Duration `yaml:"timeout"`

	// CacheSize is the LRU size for memoized query embeddings.
	CacheSize int `yaml:"cache_size"`
}

// UpdateConfig configures the update pipeline.
type UpdateConfig struct {
	// SyncTimeout bounds a single git sync (clone or fetch).
	SyncTimeout Duration `yaml:"sync_timeout"`

	// BuildTimeout bounds a full parse+embed+index rebuild.
	BuildTimeout Duration `yaml:"build_timeout"`
}

// SearchConfig configures the search read path.
type SearchConfig struct {
	// DefaultLimit is used when a request does not specify one.
	DefaultLimit int `yaml:"default_limit"`

	// MaxLimit clamps requested limits; requests above it are not rejected.
	MaxLimit int `yaml:"max_limit"`

	// SummaryLength is the maximum summary excerpt length in runes.
	SummaryLength int `yaml:"summary_length"`

	// CacheSize is the LRU size for the advisory search-result cache.
	// 0 disables the cache; correctness never depends on it.
	CacheSize int `yaml:"cache_size"`
}

// FamilyConfig declares one guideline corpus family.
type FamilyConfig struct {
	// Key is the stable family identifier, e.g. "cpp", "rust-api", "nodejs".
	Key string `yaml:"key"`

	// Name is the human-readable family name.
	Name string `yaml:"name"`

	// Upstream is the git URL of the corpus repository.
	Upstream string `yaml:"upstream"`

	// Grammar selects the parser strategy (cppcore, rustapi, nodebest).
	Grammar string `yaml:"grammar"`

	// Checkout overrides the local clone path.
	// Defaults to <data_dir>/repos/<key>.
	Checkout string `yaml:"checkout"`
}

// CheckoutPath returns the local clone path for the family.
func (f FamilyConfig) CheckoutPath(dataDir string) string {
	if f.Checkout != "" {
		return f.Checkout
	}
	return filepath.Join(dataDir, "repos", f.Key)
}

// IndexDir returns the per-family index directory under the data dir.
func (f FamilyConfig) IndexDir(dataDir string) string {
	return filepath.Join(dataDir, "index", f.Key)
}

// Default returns the default configuration with the three built-in
// families.
func Default() *Config {
	return &Config{
		Version: 1,
		DataDir: defaultDataDir(),
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "ollama",
			Model:      "nomic-embed-text",
			BatchSize:  16,
			Workers:    4,
			OllamaHost: "http://localhost:11434",
			Timeout:    Duration(60 * time.Second),
			CacheSize:  1000,
		},
		Update: UpdateConfig{
			SyncTimeout:  Duration(2 * time.Minute),
			BuildTimeout: Duration(20 * time.Minute),
		},
		Search: SearchConfig{
			DefaultLimit:  10,
			MaxLimit:      50,
			SummaryLength: 300,
			CacheSize:     256,
		},
		Families: []FamilyConfig{
			{
				Key:      "cpp",
				Name:     "C++ Core Guidelines",
				Upstream: "https://github.com/isocpp/CppCoreGuidelines.git",
				Grammar:  GrammarCppCore,
			},
			{
				Key:      "rust-api",
				Name:     "Rust API Guidelines",
				Upstream: "https://github.com/rust-lang/api-guidelines.git",
				Grammar:  GrammarRustAPI,
			},
			{
				Key:      "nodejs",
				Name:     "Node.js Best Practices",
				Upstream: "https://github.com/goldbergyoni/nodebestpractices.git",
				Grammar:  GrammarNodeBest,
			},
		},
	}
}

// Load reads configuration from path. An empty path tries the default
// locations (./guidemcp.yaml, ~/.config/guidemcp/config.yaml) and falls
// back to defaults when no file exists. Environment overrides are applied
// last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, guideerr.New(guideerr.ErrCodeConfigNotFound,
				fmt.Sprintf("read config %s: %v", path, err), err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, guideerr.ConfigError(
				fmt.Sprintf("parse config %s: %v", path, err), err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return guideerr.ConfigError("data_dir must not be empty", nil)
	}
	if c.Server.Transport != "stdio" {
		return guideerr.ConfigError(
			fmt.Sprintf("unsupported transport %q (supported: stdio)", c.Server.Transport), nil)
	}
	if len(c.Families) == 0 {
		return guideerr.ConfigError("at least one family must be configured", nil)
	}

	seen := make(map[string]struct{}, len(c.Families))
	for _, f := range c.Families {
		if f.Key == "" {
			return guideerr.ConfigError("family key must not be empty", nil)
		}
		if _, dup := seen[f.Key]; dup {
			return guideerr.ConfigError(fmt.Sprintf("duplicate family key %q", f.Key), nil)
		}
		seen[f.Key] = struct{}{}

		if f.Upstream == "" {
			return guideerr.ConfigError(fmt.Sprintf("family %q: upstream must not be empty", f.Key), nil)
		}
		switch f.Grammar {
		case GrammarCppCore, GrammarRustAPI, GrammarNodeBest:
		default:
			return guideerr.ConfigError(
				fmt.Sprintf("family %q: unknown grammar %q", f.Key, f.Grammar), nil)
		}
	}

	if c.Search.MaxLimit <= 0 || c.Search.DefaultLimit <= 0 {
		return guideerr.ConfigError("search limits must be positive", nil)
	}
	if c.Search.DefaultLimit > c.Search.MaxLimit {
		return guideerr.ConfigError("search default_limit must not exceed max_limit", nil)
	}
	return nil
}

// Family returns the family with the given key.
func (c *Config) Family(key string) (FamilyConfig, error) {
	for _, f := range c.Families {
		if f.Key == key {
			return f, nil
		}
	}
	return FamilyConfig{}, guideerr.New(guideerr.ErrCodeUnknownFamily,
		fmt.Sprintf("unknown family %q", key), nil)
}

// applyEnvOverrides applies GUIDEMCP_* environment variables on top of the
// loaded configuration. Env wins over file, file wins over defaults.
func applyEnvOverrides(c *Config) {
	if v := os.Getenv("GUIDEMCP_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("GUIDEMCP_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("GUIDEMCP_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("GUIDEMCP_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("GUIDEMCP_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}
	if v := os.Getenv("GUIDEMCP_EMBEDDINGS_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Embeddings.Dimensions = n
		}
	}
}

// findConfigFile checks the default config locations.
func findConfigFile() string {
	candidates := []string{"guidemcp.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".config", "guidemcp", "config.yaml"))
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "guidemcp")
	}
	return filepath.Join(home, ".guidemcp")
}
