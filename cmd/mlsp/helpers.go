package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/biecho/mlsec-papers/internal/config"
	"github.com/biecho/mlsec-papers/internal/llm"
	"github.com/biecho/mlsec-papers/internal/pipeline"
	"github.com/biecho/mlsec-papers/internal/s2"
	"github.com/biecho/mlsec-papers/internal/state"
)

// batchLimit is shared by all stage commands.
var batchLimit int

// stageContext returns a context cancelled by SIGINT/SIGTERM, so a batch can
// be stopped mid-run and resumed later.
func stageContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// mustLoadConfig loads configuration, exits on error.
func mustLoadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// mustLoadState loads the paper state snapshot, exits on error. A corrupt
// snapshot aborts without touching the on-disk file.
func mustLoadState(cfg *config.Config) *state.Store {
	store, err := state.Load(cfg.StatePath())
	if err != nil {
		if errors.Is(err, state.ErrCorruptState) {
			exitWithError(ExitStateError, "%v", err)
		}
		exitWithError(ExitStateError, "loading state: %v", err)
	}
	return store
}

// newS2Client builds the Semantic Scholar client from config and environment.
func newS2Client(cfg *config.Config) *s2.Client {
	opts := []s2.ClientOption{
		s2.WithRateLimit(cfg.S2.RateLimit),
	}
	if key := config.S2APIKey(); key != "" {
		opts = append(opts, s2.WithAPIKey(key))
	}
	if cfg.S2.BaseURL != "" {
		opts = append(opts, s2.WithBaseURL(cfg.S2.BaseURL))
	}
	return s2.NewClient(opts...)
}

// mustNewClassifier builds the classification provider, exits when the API
// key is missing.
func mustNewClassifier(cfg *config.Config) *llm.Classifier {
	c, err := llm.NewClassifier(llm.Options{
		APIKey:    config.LLMAPIKey(),
		BaseURL:   cfg.LLM.BaseURL,
		Model:     cfg.LLM.Model,
		RateLimit: cfg.LLM.RateLimit,
	})
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return c
}

// fetchAttemptTTL derives the re-try window for no-abstract papers from the
// discovery staleness setting: a paper without an abstract is re-tried on the
// same cadence as citation re-checks.
func fetchAttemptTTL(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Discovery.StalenessDays) * 24 * time.Hour
}

// newDiscoverer wires the discovery stage from config.
func newDiscoverer(cfg *config.Config, store *state.Store, graph pipeline.GraphProvider) *pipeline.Discoverer {
	return &pipeline.Discoverer{
		Store:            store,
		Graph:            graph,
		Retry:            cfg.Retry,
		Concurrency:      cfg.Concurrency,
		Staleness:        time.Duration(cfg.Discovery.StalenessDays) * 24 * time.Hour,
		MaxCitations:     cfg.Expansion.MaxCitations,
		MaxDepth:         cfg.Expansion.MaxDepth,
		RecentYearWindow: cfg.Discovery.RecentYearWindow,
	}
}
