package main

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/biecho/mlsec-papers/internal/category"
	"github.com/biecho/mlsec-papers/internal/state"
)

var (
	statsStatus   string
	statsCategory string
	statsLimit    int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show pipeline statistics",
	Long: `Show aggregate counts from the paper state, or list papers filtered
by status or category.

Examples:
  mlsp stats
  mlsp stats --status pending
  mlsp stats --category ML04 --limit 20`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringVar(&statsStatus, "status", "", "List papers with this status")
	statsCmd.Flags().StringVar(&statsCategory, "category", "", "List papers with this category")
	statsCmd.Flags().IntVarP(&statsLimit, "limit", "n", 10, "Maximum papers to list")
}

// PaperSummary is one row of a paper listing.
type PaperSummary struct {
	PaperID        string            `json:"paper_id"`
	Title          string            `json:"title"`
	Year           int               `json:"year,omitempty"`
	Status         state.Status      `json:"status"`
	Classification category.Category `json:"classification,omitempty"`
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	store := mustLoadState(cfg)

	switch {
	case statsStatus != "":
		papers := store.Query(state.Status(statsStatus), statsLimit)
		return outputPaperList(papers)
	case statsCategory != "":
		cat := category.Category(statsCategory)
		if !cat.Valid() {
			exitWithError(ExitError, "unknown category %q", statsCategory)
		}
		papers := store.QueryClassified(cat, statsLimit)
		return outputPaperList(papers)
	}

	md := store.Metadata()
	if !humanOutput {
		return outputJSON(md)
	}

	outputHuman("Total papers: %d\n\nBy status:\n", md.TotalPapers)
	for _, status := range sortedStatusKeys(md.ByStatus) {
		outputHuman("  %s: %d\n", status, md.ByStatus[status])
	}
	outputHuman("\nBy category:\n")
	for _, cat := range sortedCategoryKeys(md.ByCategory) {
		outputHuman("  %s: %d\n", cat, md.ByCategory[cat])
	}
	return nil
}

func outputPaperList(papers []state.Paper) error {
	if humanOutput {
		for _, p := range papers {
			outputHuman("  [%s] %s\n", p.Status, truncate(p.Title, 70))
		}
		outputHuman("Total: %d\n", len(papers))
		return nil
	}

	out := make([]PaperSummary, 0, len(papers))
	for _, p := range papers {
		out = append(out, PaperSummary{
			PaperID:        p.ID,
			Title:          p.Title,
			Year:           p.Year,
			Status:         p.Status,
			Classification: p.Classification,
		})
	}
	return outputJSON(out)
}

func sortedStatusKeys(m map[state.Status]int) []state.Status {
	keys := make([]state.Status, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func sortedCategoryKeys(m map[category.Category]int) []category.Category {
	keys := make([]category.Category, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
