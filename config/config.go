// Package config loads the YAML configuration file.
package config

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/poiesic/scholarly/ai"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

// APIKeyEnv overrides web_search.api_key when set.
const APIKeyEnv = "TAVILY_API_KEY"

// Environment overrides for the storm section.
const (
	StormURLEnv  = "STORM_SERVER_URL"
	OpenAIKeyEnv = "OPENAI_API_KEY"
)

// Store backends.
const (
	StoreBadger = "badger"
	StoreSQLite = "sqlite"
)

var (
	// ErrInvalidStore is returned for an unknown store backend.
	ErrInvalidStore = errors.New("store must be badger or sqlite")
	// ErrAgentIDRequired is returned when agent_id is empty.
	ErrAgentIDRequired = errors.New("agent_id is required")
	// ErrAPIKeyRequired is returned when web search is enabled without a key.
	ErrAPIKeyRequired = errors.New("web_search is enabled but has no api_key")
	// ErrStormIncomplete is returned when storm is enabled without its
	// server URL or keys.
	ErrStormIncomplete = errors.New("storm needs base_url, openai_api_key and web_search.api_key")
)

// SourceConfig configures one ingestion source.
type SourceConfig struct {
	Enabled       bool     `yaml:"enabled"`
	BaseURL       string   `yaml:"base_url,omitempty"`
	APIKey        string   `yaml:"api_key,omitempty"`
	Categories    []string `yaml:"categories"`
	MaxResults    int      `yaml:"max_results_per_category"`
	CheckInterval string   `yaml:"check_interval"`
	MinDelay      string   `yaml:"min_delay"`
	RetryAttempts int      `yaml:"retry_attempts"`
}

// Interval returns the parsed check_interval.
func (s *SourceConfig) Interval() time.Duration {
	d, _ := time.ParseDuration(s.CheckInterval)
	return d
}

// Delay returns the parsed min_delay.
func (s *SourceConfig) Delay() time.Duration {
	d, _ := time.ParseDuration(s.MinDelay)
	return d
}

// StormConfig configures the research report server. Its retriever uses
// the web_search API key.
type StormConfig struct {
	Enabled      bool   `yaml:"enabled"`
	BaseURL      string `yaml:"base_url"`
	OpenAIAPIKey string `yaml:"openai_api_key"`
}

// AIConfig enables the optional embedding and summarization services.
type AIConfig struct {
	Enabled   bool `yaml:"enabled"`
	ai.Config `yaml:",inline"`
}

// Config is the root of the configuration file.
type Config struct {
	AgentID   string       `yaml:"agent_id"`
	DataDir   string       `yaml:"data_dir"`
	Store     string       `yaml:"store"`
	Arxiv     SourceConfig `yaml:"arxiv"`
	WebSearch SourceConfig `yaml:"web_search"`
	Storm     StormConfig  `yaml:"storm"`
	AI        AIConfig     `yaml:"ai"`
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/scholarly/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "scholarly", "config.yaml")
}

// DefaultDataDir returns $XDG_DATA_HOME/scholarly.
func DefaultDataDir() string {
	return filepath.Join(xdg.DataHome, "scholarly")
}

// StorePath returns where the configured backend keeps its files.
func (c *Config) StorePath() string {
	if c.Store == StoreSQLite {
		return filepath.Join(c.DataDir, "scholarly.db")
	}
	return filepath.Join(c.DataDir, "badger")
}

// Default returns the embedded default configuration.
func Default() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	cfg.resolve()
	return cfg, nil
}

// Load reads the file at path, falling back to DefaultConfigPath when path is
// empty. A missing file yields the defaults, which are also written to path
// so they can be edited.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		cfg, err := Default()
		if err != nil {
			return nil, err
		}
		// Non-fatal: the embedded defaults still apply.
		_ = writeDefaults(path)
		return cfg, cfg.Validate()
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// parse decodes data over the defaults so omitted keys keep their default
// values.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		AgentID: "scholarly",
		Store:   StoreBadger,
		Arxiv: SourceConfig{
			Enabled:       true,
			Categories:    []string{"cs.AI", "cs.LG"},
			MaxResults:    5,
			CheckInterval: "6h",
			MinDelay:      "3s",
			RetryAttempts: 3,
		},
		WebSearch: SourceConfig{
			Categories:    []string{"ai", "nlp"},
			MaxResults:    3,
			CheckInterval: "5h",
			MinDelay:      "1s",
			RetryAttempts: 3,
		},
		AI: AIConfig{Config: *ai.DefaultConfig()},
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolve fills values that depend on the environment.
func (c *Config) resolve() {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	if key := os.Getenv(APIKeyEnv); key != "" {
		c.WebSearch.APIKey = key
	}
	if url := os.Getenv(StormURLEnv); url != "" {
		c.Storm.BaseURL = url
	}
	if key := os.Getenv(OpenAIKeyEnv); key != "" {
		c.Storm.OpenAIAPIKey = key
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.AgentID == "" {
		return ErrAgentIDRequired
	}
	if c.Store != StoreBadger && c.Store != StoreSQLite {
		return fmt.Errorf("%w, got %q", ErrInvalidStore, c.Store)
	}
	if err := c.Arxiv.validate("arxiv"); err != nil {
		return err
	}
	if err := c.WebSearch.validate("web_search"); err != nil {
		return err
	}
	if c.WebSearch.Enabled && c.WebSearch.APIKey == "" {
		return ErrAPIKeyRequired
	}
	if c.Storm.Enabled && (c.Storm.BaseURL == "" || c.Storm.OpenAIAPIKey == "" || c.WebSearch.APIKey == "") {
		return ErrStormIncomplete
	}
	if c.AI.Enabled {
		if err := c.AI.Config.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (s *SourceConfig) validate(name string) error {
	if !s.Enabled {
		return nil
	}
	if len(s.Categories) == 0 {
		return fmt.Errorf("%s: at least one category is required", name)
	}
	if s.MaxResults <= 0 {
		return fmt.Errorf("%s: max_results_per_category must be positive, got %d", name, s.MaxResults)
	}
	interval, err := time.ParseDuration(s.CheckInterval)
	if err != nil {
		return fmt.Errorf("%s: check_interval: %w", name, err)
	}
	delay, err := time.ParseDuration(s.MinDelay)
	if err != nil {
		return fmt.Errorf("%s: min_delay: %w", name, err)
	}
	if interval <= 0 {
		return fmt.Errorf("%s: check_interval must be positive", name)
	}
	if delay < 0 {
		return fmt.Errorf("%s: min_delay must not be negative", name)
	}
	if interval < delay {
		return fmt.Errorf("%s: check_interval %s is shorter than min_delay %s", name, interval, delay)
	}
	return nil
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}
