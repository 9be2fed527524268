package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/biecho/mlsec-papers/internal/state"
)

func TestLoadSeeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed_papers.json")
	content := `[
		{"paper_id": "abc123", "title": "With Id", "abstract": "Full record.", "year": 2014},
		{"title": "Title Only"}
	]`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	seeds, err := LoadSeeds(path)
	if err != nil {
		t.Fatalf("LoadSeeds() error = %v", err)
	}
	if len(seeds) != 2 {
		t.Fatalf("got %d seeds, want 2", len(seeds))
	}
	if seeds[0].PaperID != "abc123" || seeds[1].PaperID != "" {
		t.Errorf("seeds = %+v", seeds)
	}
}

func TestLoadSeedsMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed_papers.json")
	if err := os.WriteFile(path, []byte("{not a list"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSeeds(path); err == nil {
		t.Error("LoadSeeds() error = nil for malformed file")
	}
}

func TestInitSeeds(t *testing.T) {
	store := newStore(t)
	seeds := []SeedPaper{
		{PaperID: "abc123", Title: "With Abstract", Abstract: "Pre-fetched metadata."},
		{Title: "Title Only Seed"},
		{Abstract: "No title, skipped."},
	}

	res, err := InitSeeds(store, seeds)
	if err != nil {
		t.Fatalf("InitSeeds() error = %v", err)
	}
	if res.Loaded != 3 || res.Added != 2 || res.WithAbstract != 1 {
		t.Errorf("result = %+v", res)
	}

	// Pre-fetched seeds skip the metadata fetch stage.
	p, _ := store.Get("abc123")
	if p.Status != state.StatusFetched {
		t.Errorf("abc123 status = %s, want fetched", p.Status)
	}
	if p.Source != state.SourceSeed {
		t.Errorf("abc123 source = %s", p.Source)
	}

	// Title-only seeds get a synthetic id and wait for the fetcher.
	id := SyntheticSeedID("Title Only Seed")
	q, ok := store.Get(id)
	if !ok {
		t.Fatalf("synthetic seed %s not found", id)
	}
	if q.Status != state.StatusPending {
		t.Errorf("%s status = %s, want pending", id, q.Status)
	}
	if !q.IsSeedPlaceholder() {
		t.Error("IsSeedPlaceholder() = false for synthetic seed")
	}
}

func TestInitSeedsIdempotent(t *testing.T) {
	store := newStore(t)
	seeds := []SeedPaper{{PaperID: "abc123", Title: "T", Abstract: "A"}}

	if _, err := InitSeeds(store, seeds); err != nil {
		t.Fatal(err)
	}

	// Re-running after the paper has moved on must not reset it.
	err := store.Transition("abc123", state.StatusClassified, state.Update{
		Classification: "ML01", Confidence: "HIGH",
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := InitSeeds(store, seeds)
	if err != nil {
		t.Fatalf("second InitSeeds() error = %v", err)
	}
	if res.Added != 0 {
		t.Errorf("Added = %d on re-run, want 0", res.Added)
	}

	p, _ := store.Get("abc123")
	if p.Status != state.StatusClassified {
		t.Errorf("Status = %s, re-run reset the paper", p.Status)
	}
}

func TestSyntheticSeedID(t *testing.T) {
	a := SyntheticSeedID("Intriguing Properties of Neural Networks")
	b := SyntheticSeedID("  intriguing   properties of neural networks ")
	if a != b {
		t.Errorf("ids differ under case and whitespace: %s vs %s", a, b)
	}
	if len(a) != len("seed_")+8 {
		t.Errorf("id = %s, want seed_ plus 8 hex digits", a)
	}
	if c := SyntheticSeedID("A Different Title"); c == a {
		t.Errorf("distinct titles collided: %s", c)
	}
}
