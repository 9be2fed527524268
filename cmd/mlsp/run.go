package main

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/biecho/mlsec-papers/internal/export"
	"github.com/biecho/mlsec-papers/internal/pipeline"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline",
	Long: `Run the pipeline stages in order: init, fetch, classify, expand,
export. Each stage pulls its own batch from the shared state, so the
stages compose without any cross-stage coordination.

Examples:
  mlsp run
  mlsp run --limit 50`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().IntVarP(&batchLimit, "limit", "n", 0, "Maximum papers per stage (0 = all)")
}

// RunSummary aggregates per-stage results for the full pipeline run.
type RunSummary struct {
	Init     *pipeline.InitResult     `json:"init,omitempty"`
	Fetch    *pipeline.FetchResult    `json:"fetch,omitempty"`
	Classify *pipeline.ClassifyResult `json:"classify,omitempty"`
	Expand   *pipeline.ExpandResult   `json:"expand,omitempty"`
	Export   *export.Manifest         `json:"export,omitempty"`
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	store := mustLoadState(cfg)

	ctx, cancel := stageContext()
	defer cancel()

	summary := RunSummary{}
	s2c := newS2Client(cfg)

	if seeds, err := pipeline.LoadSeeds(cfg.SeedsPath()); err == nil {
		res, err := pipeline.InitSeeds(store, seeds)
		if err != nil {
			exitWithError(ExitStateError, "init: %v", err)
		}
		summary.Init = &res
	} else {
		logrus.Warnf("run: no seed file, skipping init: %v", err)
	}

	fetcher := &pipeline.Fetcher{
		Store:       store,
		Provider:    s2c,
		Retry:       cfg.Retry,
		Concurrency: cfg.Concurrency,
		AttemptTTL:  fetchAttemptTTL(cfg),
	}
	if res, err := fetcher.Run(ctx, batchLimit); err == nil {
		summary.Fetch = &res
	} else if !errors.Is(err, context.Canceled) {
		exitWithError(ExitStateError, "fetch: %v", err)
	}

	classifier := &pipeline.Classifier{
		Store:       store,
		Provider:    mustNewClassifier(cfg),
		Retry:       cfg.Retry,
		Concurrency: cfg.Concurrency,
	}
	if res, err := classifier.Run(ctx, batchLimit); err == nil {
		summary.Classify = &res
	} else if !errors.Is(err, context.Canceled) {
		exitWithError(ExitStateError, "classify: %v", err)
	}

	expander := &pipeline.Expander{
		Store:         store,
		Graph:         s2c,
		Retry:         cfg.Retry,
		Concurrency:   cfg.Concurrency,
		MaxDepth:      cfg.Expansion.MaxDepth,
		MaxCitations:  cfg.Expansion.MaxCitations,
		MaxReferences: cfg.Expansion.MaxReferences,
	}
	if res, err := expander.Run(ctx, batchLimit); err == nil {
		summary.Expand = &res
	} else if !errors.Is(err, context.Canceled) {
		exitWithError(ExitStateError, "expand: %v", err)
	}

	if ctx.Err() == nil {
		manifest, err := export.Run(store, cfg.DataDir)
		if err != nil {
			exitWithError(ExitStateError, "export: %v", err)
		}
		summary.Export = manifest
	}

	if humanOutput {
		md := store.Metadata()
		outputHuman("Pipeline complete. Total papers: %d\n", md.TotalPapers)
		for status, count := range md.ByStatus {
			outputHuman("  %s: %d\n", status, count)
		}
		return nil
	}
	return outputJSON(summary)
}
