package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find new papers citing the processed pool",
	Long: `Re-check processed papers for citations received since the last check.

Papers whose citation check is older than the configured staleness window
are re-queried; newly published citing papers enter the frontier as
pending. The checked paper itself is never re-expanded and its status
never changes; only the check timestamp moves.

Intended to run daily from cron.

Examples:
  mlsp discover
  mlsp discover --limit 200`,
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)
	discoverCmd.Flags().IntVarP(&batchLimit, "limit", "n", 0, "Maximum papers to check (0 = all)")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	store := mustLoadState(cfg)

	ctx, cancel := stageContext()
	defer cancel()

	discoverer := newDiscoverer(cfg, store, newS2Client(cfg))

	res, err := discoverer.Run(ctx, batchLimit)
	if err != nil && !errors.Is(err, context.Canceled) {
		exitWithError(ExitStateError, "discover: %v", err)
	}

	if humanOutput {
		outputHuman("Checked: %d\nNew papers: %d\nFailed: %d\n",
			res.Checked, res.NewPapers, res.Failed)
		return nil
	}
	return outputJSON(res)
}
