package state

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// The SQLite database is a derived, rebuildable query cache over the JSON
// snapshot. The snapshot stays the source of truth; the cache records the
// snapshot hash it was built from so staleness is detectable.

const papersDDL = `CREATE TABLE IF NOT EXISTS papers (
  paper_id TEXT PRIMARY KEY,
  seq INTEGER,
  title TEXT,
  abstract TEXT,
  year INTEGER,
  venue TEXT,
  authors TEXT,
  url TEXT,
  source TEXT,
  source_paper_id TEXT,
  status TEXT,
  classification TEXT,
  classification_confidence TEXT,
  added_at TEXT,
  fetched_at TEXT,
  classified_at TEXT,
  expanded_at TEXT,
  citations_checked_at TEXT
)`

const metaDDL = `CREATE TABLE IF NOT EXISTS _meta (
  key TEXT PRIMARY KEY,
  value TEXT
)`

var paperIndexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_papers_status ON papers(status)",
	"CREATE INDEX IF NOT EXISTS idx_papers_classification ON papers(classification)",
	"CREATE INDEX IF NOT EXISTS idx_papers_year ON papers(year)",
}

// OpenDB opens the query cache database.
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	return db, nil
}

// ComputeStateHash hashes the snapshot file; a missing file hashes as empty.
func ComputeStateHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			h := sha256.Sum256(nil)
			return hex.EncodeToString(h[:]), nil
		}
		return "", fmt.Errorf("opening state file: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("reading state file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// NeedsSync reports whether the cache at dbPath is stale relative to the
// snapshot at statePath.
func NeedsSync(statePath, dbPath string) (bool, error) {
	current, err := ComputeStateHash(statePath)
	if err != nil {
		return true, err
	}

	db, err := OpenDB(dbPath)
	if err != nil {
		return true, err
	}
	defer db.Close()

	stored, err := storedHash(db)
	if err != nil {
		return true, nil // no meta table yet
	}
	return current != stored, nil
}

// Sync rebuilds the cache at dbPath from the store's current records and
// stamps it with the snapshot hash. Returns the number of rows written.
func (s *Store) Sync(dbPath string) (int, error) {
	hash, err := ComputeStateHash(s.path)
	if err != nil {
		return 0, err
	}

	db, err := OpenDB(dbPath)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	if _, err := db.Exec(papersDDL); err != nil {
		return 0, fmt.Errorf("creating papers table: %w", err)
	}
	for _, ddl := range paperIndexes {
		if _, err := db.Exec(ddl); err != nil {
			return 0, fmt.Errorf("creating index: %w", err)
		}
	}
	if _, err := db.Exec(metaDDL); err != nil {
		return 0, fmt.Errorf("creating meta table: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM papers"); err != nil {
		return 0, fmt.Errorf("clearing papers table: %w", err)
	}

	papers := s.collect(0, func(*Paper) bool { return true })
	for _, p := range papers {
		if err := insertPaper(tx, &p); err != nil {
			return 0, fmt.Errorf("inserting paper %s: %w", p.ID, err)
		}
	}

	if _, err := tx.Exec(
		"INSERT INTO _meta (key, value) VALUES ('state_hash', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		hash,
	); err != nil {
		return 0, fmt.Errorf("storing state hash: %w", err)
	}
	if _, err := tx.Exec(
		"INSERT INTO _meta (key, value) VALUES ('synced_at', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return 0, fmt.Errorf("storing sync time: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	return len(papers), nil
}

func insertPaper(tx *sql.Tx, p *Paper) error {
	_, err := tx.Exec(
		`INSERT INTO papers (paper_id, seq, title, abstract, year, venue, authors, url,
		   source, source_paper_id, status, classification, classification_confidence,
		   added_at, fetched_at, classified_at, expanded_at, citations_checked_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Seq, p.Title, nullString(p.Abstract), nullInt(p.Year), nullString(p.Venue),
		strings.Join(p.Authors, "; "), nullString(p.URL),
		string(p.Source), nullString(p.SourcePaperID), string(p.Status),
		nullString(string(p.Classification)), nullString(string(p.Confidence)),
		p.AddedAt.UTC().Format(time.RFC3339), timeString(p.FetchedAt),
		timeString(p.ClassifiedAt), timeString(p.ExpandedAt), timeString(p.CitationsCheckedAt),
	)
	return err
}

func storedHash(db *sql.DB) (string, error) {
	var hash string
	err := db.QueryRow("SELECT value FROM _meta WHERE key = 'state_hash'").Scan(&hash)
	return hash, err
}

// QueryDB runs an ad-hoc SQL query against the cache and returns the rows as
// column-name keyed maps.
func QueryDB(dbPath, query string) ([]map[string]any, error) {
	db, err := OpenDB(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

func timeString(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
