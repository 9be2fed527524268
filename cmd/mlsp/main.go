// Package main provides the mlsp CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

// configPath is the pipeline config file location
var configPath string

// verbose enables debug logging
var verbose bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mlsp",
	Short: "ML-security paper discovery pipeline",
	Long: `mlsp discovers and classifies academic papers on ML security attacks.

Starting from a curated seed set, it walks the citation graph outward,
fetches bibliographic metadata, classifies each paper into an OWASP ML
Security Top 10 category, and exports per-category snapshot files for
the website.

Pipeline stages (each a batch job over the shared paper state):
  init      load seed papers
  fetch     resolve metadata for pending papers
  classify  assign security categories
  expand    walk citations and references of classified papers
  discover  re-check processed papers for new citations
  export    write per-category files and the manifest

State lives in a single JSON snapshot; every stage is idempotent and
safe to interrupt and re-run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	},
}

func init() {
	// Load .env file if present (for S2_API_KEY / LLM_API_KEY)
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "mlsp.yml", "Path to pipeline config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.Version = Version
}
