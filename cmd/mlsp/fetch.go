package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/biecho/mlsec-papers/internal/pipeline"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch metadata for pending papers",
	Long: `Resolve pending papers into full bibliographic records.

Looks each paper up by identifier, falling back to a title search. Papers
whose lookup yields no abstract stay pending and are retried on a later
run. Interrupting the batch is safe: finished papers keep their new
status, unfinished papers stay pending.

Examples:
  mlsp fetch
  mlsp fetch --limit 50`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.Flags().IntVarP(&batchLimit, "limit", "n", 0, "Maximum papers to process (0 = all)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	store := mustLoadState(cfg)

	ctx, cancel := stageContext()
	defer cancel()

	fetcher := &pipeline.Fetcher{
		Store:       store,
		Provider:    newS2Client(cfg),
		Retry:       cfg.Retry,
		Concurrency: cfg.Concurrency,
		AttemptTTL:  fetchAttemptTTL(cfg),
	}

	res, err := fetcher.Run(ctx, batchLimit)
	if err != nil && !errors.Is(err, context.Canceled) {
		exitWithError(ExitStateError, "fetch: %v", err)
	}

	if humanOutput {
		outputHuman("Processed: %d\nFetched: %d\nNo abstract: %d\nNot found: %d\nFailed: %d\n",
			res.Processed, res.Fetched, res.NoAbstract, res.NotFound, res.Failed)
		return nil
	}
	return outputJSON(res)
}
