package main

import (
	"github.com/spf13/cobra"

	"github.com/biecho/mlsec-papers/internal/state"
)

var syncForce bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Rebuild the SQLite query cache from the state",
	Long: `Rebuild the derived SQLite database from the paper state snapshot.

The database is a query cache only. The JSON snapshot stays the source of
truth. The cache records the snapshot hash it was built from, so an
up-to-date cache is skipped unless --force is given.

Examples:
  mlsp sync
  mlsp sync --force`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().BoolVar(&syncForce, "force", false, "Rebuild even if the cache is current")
}

// SyncResponse is the JSON output of the sync command.
type SyncResponse struct {
	Status  string `json:"status"`
	Records int    `json:"records,omitempty"`
	DBPath  string `json:"db_path"`
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()

	if !syncForce {
		stale, err := state.NeedsSync(cfg.StatePath(), cfg.DBPath())
		if err == nil && !stale {
			resp := SyncResponse{Status: "up-to-date", DBPath: cfg.DBPath()}
			if humanOutput {
				outputHuman("Cache is up to date: %s\n", cfg.DBPath())
				return nil
			}
			return outputJSON(resp)
		}
	}

	store := mustLoadState(cfg)

	n, err := store.Sync(cfg.DBPath())
	if err != nil {
		exitWithError(ExitStateError, "syncing: %v", err)
	}

	if humanOutput {
		outputHuman("Synced %d papers to %s\n", n, cfg.DBPath())
		return nil
	}
	return outputJSON(SyncResponse{Status: "synced", Records: n, DBPath: cfg.DBPath()})
}
