package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/biecho/mlsec-papers/internal/pipeline"
)

var expandCmd = &cobra.Command{
	Use:   "expand",
	Short: "Expand the graph via citations and references",
	Long: `Walk outward from classified papers.

For each classified paper, fetch the papers that cite it and the papers it
references, admit new identifiers as pending, and mark the paper expanded.
Expansion stops at the configured depth from the seed set; papers beyond
the bound are never admitted.

Examples:
  mlsp expand
  mlsp expand --limit 20`,
	RunE: runExpand,
}

func init() {
	rootCmd.AddCommand(expandCmd)
	expandCmd.Flags().IntVarP(&batchLimit, "limit", "n", 0, "Maximum papers to process (0 = all)")
}

func runExpand(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	store := mustLoadState(cfg)

	ctx, cancel := stageContext()
	defer cancel()

	expander := &pipeline.Expander{
		Store:         store,
		Graph:         newS2Client(cfg),
		Retry:         cfg.Retry,
		Concurrency:   cfg.Concurrency,
		MaxDepth:      cfg.Expansion.MaxDepth,
		MaxCitations:  cfg.Expansion.MaxCitations,
		MaxReferences: cfg.Expansion.MaxReferences,
	}

	res, err := expander.Run(ctx, batchLimit)
	if err != nil && !errors.Is(err, context.Canceled) {
		exitWithError(ExitStateError, "expand: %v", err)
	}

	if humanOutput {
		outputHuman("Processed: %d\nExpanded: %d\nCitations added: %d\nReferences added: %d\nFailed: %d\n",
			res.Processed, res.Expanded, res.CitationsAdded, res.ReferencesAdded, res.Failed)
		return nil
	}
	return outputJSON(res)
}
