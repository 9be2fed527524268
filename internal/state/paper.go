// Package state implements the paper store: the single source of truth for
// every paper the pipeline has discovered, with an enforced per-paper
// lifecycle and an atomically written JSON snapshot on disk.
package state

import (
	"errors"
	"fmt"
	"time"

	"github.com/biecho/mlsec-papers/internal/category"
)

// Status is a paper's position in the pipeline lifecycle.
type Status string

const (
	StatusPending    Status = "pending"    // discovered, metadata not yet fetched
	StatusFetched    Status = "fetched"    // bibliographic record complete, awaiting classification
	StatusClassified Status = "classified" // assigned an attack category, awaiting expansion
	StatusExpanded   Status = "expanded"   // citations and references walked
	StatusDiscarded  Status = "discarded"  // classified NONE; kept for dedup and provenance
)

// Source records how a paper first entered the store.
type Source string

const (
	SourceSeed      Source = "seed"
	SourceCitation  Source = "citation"
	SourceReference Source = "reference"
)

// transitions is the status graph. Any edge not listed here is rejected.
var transitions = map[Status][]Status{
	StatusPending:    {StatusFetched},
	StatusFetched:    {StatusClassified, StatusDiscarded},
	StatusClassified: {StatusExpanded},
}

// Errors returned by the store.
var (
	// ErrInvalidTransition indicates a stage attempted a status edge the
	// lifecycle graph does not permit. This is a programming-contract
	// violation: stages filter their input by status, so it should never
	// occur in a correct run.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrPaperNotFound indicates an unknown paper identifier.
	ErrPaperNotFound = errors.New("paper not found in store")

	// ErrCorruptState indicates the on-disk snapshot could not be parsed.
	// Fatal at load time; the snapshot is left untouched.
	ErrCorruptState = errors.New("corrupt state file")
)

// Paper is one record in the store, keyed by its stable external identifier.
// Seed papers that arrive without a provider identifier get a synthetic
// "seed_" id; the resolved provider id is kept in S2PaperID once known.
type Paper struct {
	ID       string   `json:"paper_id"`
	Seq      int64    `json:"seq"` // insertion counter; gives stable query order
	Title    string   `json:"title"`
	Abstract string   `json:"abstract,omitempty"`
	Year     int      `json:"year,omitempty"`
	Venue    string   `json:"venue,omitempty"`
	Authors  []string `json:"authors,omitempty"`
	URL      string   `json:"url,omitempty"`

	Source        Source `json:"source"`
	SourcePaperID string `json:"source_paper_id,omitempty"`
	S2PaperID     string `json:"s2_paper_id,omitempty"`

	Status         Status              `json:"status"`
	Classification category.Category   `json:"classification,omitempty"`
	Confidence     category.Confidence `json:"classification_confidence,omitempty"`

	AddedAt            time.Time  `json:"added_at"`
	FetchedAt          *time.Time `json:"fetched_at,omitempty"`
	ClassifiedAt       *time.Time `json:"classified_at,omitempty"`
	ExpandedAt         *time.Time `json:"expanded_at,omitempty"`
	CitationsCheckedAt *time.Time `json:"citations_checked_at,omitempty"`
	FetchAttemptedAt   *time.Time `json:"fetch_attempted_at,omitempty"`
}

// GraphID returns the identifier to use against the citation-graph provider:
// the resolved provider id when present, otherwise the store id.
func (p *Paper) GraphID() string {
	if p.S2PaperID != "" {
		return p.S2PaperID
	}
	return p.ID
}

// IsSeedPlaceholder reports whether the paper has only a synthetic seed id
// and cannot be queried against the graph provider.
func (p *Paper) IsSeedPlaceholder() bool {
	return isSyntheticID(p.GraphID())
}

// Terminal reports whether no further status transition is possible.
func (p *Paper) Terminal() bool {
	return p.Status == StatusExpanded || p.Status == StatusDiscarded
}

func isSyntheticID(id string) bool {
	return len(id) > 5 && id[:5] == "seed_"
}

// canTransition reports whether the edge from → to is in the status graph.
func canTransition(from, to Status) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// clone returns a deep copy of the paper; timestamps are copied by value.
func (p *Paper) clone() Paper {
	cp := *p
	if p.Authors != nil {
		cp.Authors = append([]string(nil), p.Authors...)
	}
	cp.FetchedAt = cloneTime(p.FetchedAt)
	cp.ClassifiedAt = cloneTime(p.ClassifiedAt)
	cp.ExpandedAt = cloneTime(p.ExpandedAt)
	cp.CitationsCheckedAt = cloneTime(p.CitationsCheckedAt)
	cp.FetchAttemptedAt = cloneTime(p.FetchAttemptedAt)
	return cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// invalidTransitionError builds the error for a rejected edge.
func invalidTransitionError(id string, from, to Status) error {
	return fmt.Errorf("%w: paper %s: %s -> %s", ErrInvalidTransition, id, from, to)
}
