package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/biecho/mlsec-papers/internal/pipeline"
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify fetched papers into security categories",
	Long: `Submit fetched papers to the classification model.

Each paper is assigned one OWASP ML Security Top 10 category, or NONE for
papers outside the collection's scope. NONE discards the paper; the record
is kept for dedup so the paper is never re-admitted.

Requires LLM_API_KEY in the environment or a .env file.

Examples:
  mlsp classify
  mlsp classify --limit 100`,
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	classifyCmd.Flags().IntVarP(&batchLimit, "limit", "n", 0, "Maximum papers to process (0 = all)")
}

func runClassify(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	store := mustLoadState(cfg)

	ctx, cancel := stageContext()
	defer cancel()

	classifier := &pipeline.Classifier{
		Store:       store,
		Provider:    mustNewClassifier(cfg),
		Retry:       cfg.Retry,
		Concurrency: cfg.Concurrency,
	}

	res, err := classifier.Run(ctx, batchLimit)
	if err != nil && !errors.Is(err, context.Canceled) {
		exitWithError(ExitStateError, "classify: %v", err)
	}

	if humanOutput {
		outputHuman("Processed: %d\nClassified: %d\nDiscarded: %d\nFailed: %d\n",
			res.Processed, res.Classified, res.Discarded, res.Failed)
		return nil
	}
	return outputJSON(res)
}
