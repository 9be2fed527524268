// Package export writes the per-category snapshot files and the manifest
// consumed by the display layer. Every file is written atomically (temp file
// + rename) so a reader never observes a partial write.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/biecho/mlsec-papers/internal/category"
	"github.com/biecho/mlsec-papers/internal/state"
)

// Paper is the record subset exposed to the display layer.
type Paper struct {
	PaperID    string              `json:"paper_id"`
	Title      string              `json:"title"`
	Abstract   string              `json:"abstract,omitempty"`
	Year       int                 `json:"year,omitempty"`
	Venue      string              `json:"venue,omitempty"`
	Authors    []string            `json:"authors,omitempty"`
	URL        string              `json:"url,omitempty"`
	Confidence category.Confidence `json:"classification_confidence,omitempty"`
}

// CategoryFile is one per-category snapshot file.
type CategoryFile struct {
	OwaspID   category.Category `json:"owasp_id"`
	OwaspName string            `json:"owasp_name"`
	Total     int               `json:"total"`
	Updated   string            `json:"updated"`
	Papers    []Paper           `json:"papers"`
}

// ManifestCategory is one entry in the manifest's category index.
type ManifestCategory struct {
	OwaspID   category.Category `json:"owasp_id"`
	OwaspName string            `json:"owasp_name"`
	Total     int               `json:"total"`
	File      string            `json:"file"`
}

// Manifest summarizes the export so the display layer can build navigation
// without scanning every category file.
type Manifest struct {
	Updated         string             `json:"updated"`
	TotalPapers     int                `json:"total_papers"`
	TotalClassified int                `json:"total_classified"`
	TotalDiscarded  int                `json:"total_discarded"`
	Categories      []ManifestCategory `json:"categories"`
	PipelineStats   PipelineStats      `json:"pipeline_stats"`
}

// PipelineStats mirrors the store's derived metadata.
type PipelineStats struct {
	ByStatus   map[state.Status]int      `json:"by_status"`
	ByCategory map[category.Category]int `json:"by_category"`
}

// Run exports all categories plus the manifest into outDir.
func Run(store *state.Store, outDir string) (*Manifest, error) {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	md := store.Metadata()
	manifest := &Manifest{
		Updated:        time.Now().Format("2006-01-02"),
		TotalPapers:    md.TotalPapers,
		TotalDiscarded: md.ByStatus[state.StatusDiscarded],
		PipelineStats: PipelineStats{
			ByStatus:   md.ByStatus,
			ByCategory: md.ByCategory,
		},
	}

	for _, cat := range category.All() {
		papers := store.QueryClassified(cat, 0)
		file := CategoryFileName(cat)

		cf := CategoryFile{
			OwaspID:   cat,
			OwaspName: cat.Name(),
			Total:     len(papers),
			Updated:   manifest.Updated,
			Papers:    make([]Paper, 0, len(papers)),
		}
		for i := range papers {
			cf.Papers = append(cf.Papers, exportPaper(&papers[i]))
		}

		if err := writeJSONAtomic(filepath.Join(outDir, file), cf); err != nil {
			return nil, fmt.Errorf("exporting %s: %w", cat, err)
		}

		manifest.TotalClassified += len(papers)
		manifest.Categories = append(manifest.Categories, ManifestCategory{
			OwaspID:   cat,
			OwaspName: cat.Name(),
			Total:     len(papers),
			File:      file,
		})
		logrus.Debugf("export: %s: %d papers", cat, len(papers))
	}

	if err := writeJSONAtomic(filepath.Join(outDir, "manifest.json"), manifest); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}

	logrus.Infof("export: %d papers across %d categories", manifest.TotalClassified, len(manifest.Categories))
	return manifest, nil
}

// CategoryFileName returns the snapshot file name for a category.
func CategoryFileName(cat category.Category) string {
	return strings.ToLower(string(cat)) + "_papers.json"
}

func exportPaper(p *state.Paper) Paper {
	id := p.ID
	if p.S2PaperID != "" {
		id = p.S2PaperID
	}
	return Paper{
		PaperID:    id,
		Title:      p.Title,
		Abstract:   p.Abstract,
		Year:       p.Year,
		Venue:      p.Venue,
		Authors:    p.Authors,
		URL:        p.URL,
		Confidence: p.Confidence,
	}
}

// writeJSONAtomic writes v as indented JSON via temp file + rename.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-export-*.json")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming: %w", err)
	}

	success = true
	return nil
}
