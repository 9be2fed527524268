package pipeline

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/biecho/mlsec-papers/internal/state"
)

// SeedPaper is one entry in the curated seed list. Entries carrying an
// abstract (pre-fetched metadata) are admitted directly as fetched; the rest
// start pending and go through the metadata fetcher like any discovered
// paper.
type SeedPaper struct {
	PaperID  string   `json:"paper_id,omitempty"`
	Title    string   `json:"title"`
	Abstract string   `json:"abstract,omitempty"`
	Year     int      `json:"year,omitempty"`
	Venue    string   `json:"venue,omitempty"`
	Authors  []string `json:"authors,omitempty"`
	URL      string   `json:"url,omitempty"`
}

// InitResult summarizes a seed load.
type InitResult struct {
	Loaded       int `json:"loaded"`
	Added        int `json:"added"`
	WithAbstract int `json:"with_abstract"`
}

// LoadSeeds reads a seed list file.
func LoadSeeds(path string) ([]SeedPaper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seeds: %w", err)
	}

	var seeds []SeedPaper
	if err := json.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("parsing seeds %s: %w", path, err)
	}
	return seeds, nil
}

// InitSeeds admits seed papers into the store. Re-running is idempotent:
// seeds already present are untouched. Seeds with an abstract are created
// pending and immediately advanced to fetched through the normal transition,
// so the lifecycle stays monotonic.
func InitSeeds(store *state.Store, seeds []SeedPaper) (InitResult, error) {
	res := InitResult{Loaded: len(seeds)}

	for i := range seeds {
		seed := &seeds[i]
		if seed.Title == "" {
			logrus.Warnf("init: seed %d has no title, skipping", i+1)
			continue
		}

		id := seed.PaperID
		if id == "" {
			id = SyntheticSeedID(seed.Title)
		}

		inserted := store.UpsertDiscovered(id, state.SourceSeed, "", state.PaperMeta{
			Title:    seed.Title,
			Abstract: seed.Abstract,
			Year:     seed.Year,
			Venue:    seed.Venue,
			Authors:  seed.Authors,
			URL:      seed.URL,
		})
		if !inserted {
			continue
		}
		res.Added++

		if seed.Abstract != "" {
			if err := store.Transition(id, state.StatusFetched, state.Update{}); err != nil {
				return res, fmt.Errorf("admitting seed %q: %w", seed.Title, err)
			}
			res.WithAbstract++
		}
	}

	if err := store.Save(); err != nil {
		return res, err
	}

	logrus.Infof("init: %d seeds loaded, %d added (%d with abstracts)",
		res.Loaded, res.Added, res.WithAbstract)
	return res, nil
}

// SyntheticSeedID derives a stable placeholder identifier from a seed title,
// used until the metadata fetcher resolves the real provider id.
func SyntheticSeedID(title string) string {
	h := fnv.New32a()
	h.Write([]byte(normalizeTitle(title)))
	return fmt.Sprintf("seed_%08x", h.Sum32())
}

func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}
