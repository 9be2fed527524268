// Package config handles pipeline configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigFile is the default pipeline config file name.
	ConfigFile = "mlsp.yml"

	// Data file names under the data directory.
	StateFile    = "paper_state.json"
	DBFile       = "papers.db"
	SeedsFile    = "seed_papers.json"
	ManifestFile = "manifest.json"
)

// S2Config configures the Semantic Scholar provider.
type S2Config struct {
	BaseURL   string  `yaml:"base_url,omitempty"`
	RateLimit float64 `yaml:"rate_limit"` // requests per second
}

// LLMConfig configures the classification provider. Any OpenAI-compatible
// chat-completions endpoint works; the base URL selects the vendor.
type LLMConfig struct {
	BaseURL   string  `yaml:"base_url,omitempty"`
	Model     string  `yaml:"model"`
	RateLimit float64 `yaml:"rate_limit"`
}

// RetryConfig bounds per-request retries within a stage.
type RetryConfig struct {
	MaxAttempts     int `yaml:"max_attempts"`
	BackoffSeconds  int `yaml:"backoff_seconds"`
	CooldownSeconds int `yaml:"cooldown_seconds"` // wait after a 429 before resuming
}

// ExpansionConfig bounds citation-graph expansion.
type ExpansionConfig struct {
	MaxDepth      int `yaml:"max_depth"`      // max hops from a seed paper
	MaxCitations  int `yaml:"max_citations"`  // citing papers fetched per paper
	MaxReferences int `yaml:"max_references"` // referenced papers fetched per paper
}

// DiscoveryConfig controls the periodic re-check for new citations.
type DiscoveryConfig struct {
	StalenessDays    int `yaml:"staleness_days"`     // re-check papers not checked in N days
	RecentYearWindow int `yaml:"recent_year_window"` // admit citing papers published within N years
}

// Config is the full pipeline configuration, loaded from mlsp.yml.
type Config struct {
	DataDir     string          `yaml:"data_dir"`
	Concurrency int             `yaml:"concurrency"` // provider requests in flight per stage
	S2          S2Config        `yaml:"s2"`
	LLM         LLMConfig       `yaml:"llm"`
	Retry       RetryConfig     `yaml:"retry"`
	Expansion   ExpansionConfig `yaml:"expansion"`
	Discovery   DiscoveryConfig `yaml:"discovery"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		DataDir:     "data",
		Concurrency: 4,
		S2:          S2Config{RateLimit: 1.0},
		LLM:         LLMConfig{Model: "llama-3.3-70b", RateLimit: 1.0},
		Retry:       RetryConfig{MaxAttempts: 3, BackoffSeconds: 2, CooldownSeconds: 60},
		Expansion:   ExpansionConfig{MaxDepth: 2, MaxCitations: 100, MaxReferences: 50},
		Discovery:   DiscoveryConfig{StalenessDays: 7, RecentYearWindow: 2},
	}
}

// Load reads the config file at path, filling unset values with defaults.
// A missing file is not an error: the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive")
	}
	if c.S2.RateLimit <= 0 || c.LLM.RateLimit <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	if c.Expansion.MaxDepth < 1 {
		return fmt.Errorf("expansion max_depth must be at least 1")
	}
	if c.Expansion.MaxCitations <= 0 || c.Expansion.MaxReferences <= 0 {
		return fmt.Errorf("expansion caps must be positive")
	}
	if c.Discovery.StalenessDays <= 0 {
		return fmt.Errorf("discovery staleness_days must be positive")
	}
	return nil
}

// StatePath returns the path to the paper state snapshot.
func (c *Config) StatePath() string {
	return filepath.Join(c.DataDir, StateFile)
}

// DBPath returns the path to the derived SQLite query cache.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, DBFile)
}

// SeedsPath returns the path to the curated seed paper list.
func (c *Config) SeedsPath() string {
	return filepath.Join(c.DataDir, SeedsFile)
}

// ManifestPath returns the path to the exported manifest file.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.DataDir, ManifestFile)
}

// S2APIKey returns the Semantic Scholar API key from the environment, if set.
func S2APIKey() string {
	return os.Getenv("S2_API_KEY")
}

// LLMAPIKey returns the classification provider API key from the environment.
func LLMAPIKey() string {
	return os.Getenv("LLM_API_KEY")
}
