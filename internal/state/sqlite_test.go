package state

import (
	"path/filepath"
	"testing"

	"github.com/biecho/mlsec-papers/internal/category"
)

func TestSyncAndQueryDB(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(filepath.Join(dir, "paper_state.json"))
	if err != nil {
		t.Fatal(err)
	}

	s.UpsertDiscovered("p1", SourceSeed, "", PaperMeta{
		Title:   "Paper One",
		Year:    2023,
		Authors: []string{"Alice", "Bob"},
	})
	advance(t, s, "p1", StatusClassified)
	s.UpsertDiscovered("p2", SourceCitation, "p1", PaperMeta{Title: "Paper Two"})
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	dbPath := filepath.Join(dir, "papers.db")
	n, err := s.Sync(dbPath)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Sync() = %d rows, want 2", n)
	}

	rows, err := QueryDB(dbPath, "SELECT paper_id, status, classification, authors FROM papers ORDER BY seq")
	if err != nil {
		t.Fatalf("QueryDB() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("QueryDB() returned %d rows, want 2", len(rows))
	}
	if rows[0]["paper_id"] != "p1" || rows[1]["paper_id"] != "p2" {
		t.Errorf("row order = %v, %v", rows[0]["paper_id"], rows[1]["paper_id"])
	}
	if rows[0]["status"] != string(StatusClassified) {
		t.Errorf("p1 status = %v", rows[0]["status"])
	}
	if rows[0]["classification"] != string(category.ML01) {
		t.Errorf("p1 classification = %v", rows[0]["classification"])
	}
	if rows[0]["authors"] != "Alice; Bob" {
		t.Errorf("p1 authors = %v", rows[0]["authors"])
	}
	if rows[1]["classification"] != nil {
		t.Errorf("p2 classification = %v, want NULL", rows[1]["classification"])
	}
}

func TestSyncIsRebuild(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(filepath.Join(dir, "paper_state.json"))
	if err != nil {
		t.Fatal(err)
	}
	dbPath := filepath.Join(dir, "papers.db")

	s.UpsertDiscovered("p1", SourceSeed, "", PaperMeta{Title: "T"})
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Sync(dbPath); err != nil {
		t.Fatal(err)
	}

	// A second sync replaces rows instead of accumulating them.
	s.UpsertDiscovered("p2", SourceSeed, "", PaperMeta{Title: "T"})
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}
	n, err := s.Sync(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Sync() = %d rows, want 2", n)
	}

	rows, err := QueryDB(dbPath, "SELECT COUNT(*) AS n FROM papers")
	if err != nil {
		t.Fatal(err)
	}
	if rows[0]["n"] != int64(2) {
		t.Errorf("row count = %v, want 2", rows[0]["n"])
	}
}

func TestNeedsSync(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "paper_state.json")
	dbPath := filepath.Join(dir, "papers.db")

	s, err := Load(statePath)
	if err != nil {
		t.Fatal(err)
	}
	s.UpsertDiscovered("p1", SourceSeed, "", PaperMeta{Title: "T"})
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	// No cache yet.
	stale, err := NeedsSync(statePath, dbPath)
	if err != nil {
		t.Fatalf("NeedsSync() error = %v", err)
	}
	if !stale {
		t.Error("NeedsSync() = false with no cache")
	}

	if _, err := s.Sync(dbPath); err != nil {
		t.Fatal(err)
	}
	stale, err = NeedsSync(statePath, dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if stale {
		t.Error("NeedsSync() = true immediately after sync")
	}

	// Any snapshot change invalidates the cache.
	s.UpsertDiscovered("p2", SourceSeed, "", PaperMeta{Title: "T"})
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}
	stale, err = NeedsSync(statePath, dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if !stale {
		t.Error("NeedsSync() = false after snapshot changed")
	}
}
