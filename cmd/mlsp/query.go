package main

import (
	"github.com/spf13/cobra"

	"github.com/biecho/mlsec-papers/internal/state"
)

var queryCmd = &cobra.Command{
	Use:   "query <sql>",
	Short: "Run SQL against the query cache",
	Long: `Run an ad-hoc SQL query against the derived SQLite cache.

Run 'mlsp sync' first if the state has changed since the last sync.

Examples:
  mlsp query "SELECT classification, COUNT(*) FROM papers GROUP BY classification"
  mlsp query "SELECT title, year FROM papers WHERE status = 'pending' LIMIT 10"`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()

	if humanOutput {
		if stale, err := state.NeedsSync(cfg.StatePath(), cfg.DBPath()); err == nil && stale {
			outputHuman("warning: cache is stale, run 'mlsp sync'\n")
		}
	}

	rows, err := state.QueryDB(cfg.DBPath(), args[0])
	if err != nil {
		exitWithError(ExitError, "query: %v", err)
	}

	if humanOutput {
		for _, row := range rows {
			outputHuman("%v\n", row)
		}
		outputHuman("Rows: %d\n", len(rows))
		return nil
	}
	return outputJSON(rows)
}
