package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/biecho/mlsec-papers/internal/pipeline"
)

var (
	initSeedsPath string
	initReset     bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Load seed papers into the state",
	Long: `Load the curated seed paper list into the paper state.

Seeds already present are left untouched, so re-running init after adding
new entries to the seed file admits only the new papers.

Examples:
  mlsp init
  mlsp init --seeds data/seed_papers.json
  mlsp init --reset`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initSeedsPath, "seeds", "", "Seed list file (default: <data_dir>/seed_papers.json)")
	initCmd.Flags().BoolVar(&initReset, "reset", false, "Delete existing state before loading seeds")
}

func runInit(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()

	if initReset {
		if err := os.Remove(cfg.StatePath()); err != nil && !os.IsNotExist(err) {
			exitWithError(ExitStateError, "resetting state: %v", err)
		}
	}

	store := mustLoadState(cfg)

	seedsPath := initSeedsPath
	if seedsPath == "" {
		seedsPath = cfg.SeedsPath()
	}

	seeds, err := pipeline.LoadSeeds(seedsPath)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	res, err := pipeline.InitSeeds(store, seeds)
	if err != nil {
		exitWithError(ExitStateError, "initializing seeds: %v", err)
	}

	if humanOutput {
		outputHuman("Seeds loaded: %d\nAdded: %d (%d with abstracts)\nTotal in state: %d\n",
			res.Loaded, res.Added, res.WithAbstract, store.Len())
		return nil
	}
	return outputJSON(res)
}
