package main

import (
	"github.com/spf13/cobra"

	"github.com/biecho/mlsec-papers/internal/export"
)

var exportOutDir string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write per-category files and the manifest",
	Long: `Export classified papers to one snapshot file per category plus a
manifest with aggregate counts. Files are written atomically so the
website never reads a partial file.

Examples:
  mlsp export
  mlsp export --out site/data`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportOutDir, "out", "", "Output directory (default: data_dir)")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	store := mustLoadState(cfg)

	outDir := exportOutDir
	if outDir == "" {
		outDir = cfg.DataDir
	}

	manifest, err := export.Run(store, outDir)
	if err != nil {
		exitWithError(ExitStateError, "export: %v", err)
	}

	if humanOutput {
		outputHuman("Exported %d papers across %d categories\nManifest: %s/manifest.json\n",
			manifest.TotalClassified, len(manifest.Categories), outDir)
		return nil
	}
	return outputJSON(manifest)
}
