package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/biecho/mlsec-papers/internal/category"
)

// Metadata is the derived aggregate over the paper map. It is recomputed on
// every save, never hand-maintained.
type Metadata struct {
	TotalPapers int                       `json:"total_papers"`
	ByStatus    map[Status]int            `json:"by_status"`
	ByCategory  map[category.Category]int `json:"by_category"`
	LastUpdated time.Time                 `json:"last_updated"`
}

// snapshot is the on-disk layout of the state file.
type snapshot struct {
	Papers   map[string]*Paper `json:"papers"`
	Metadata Metadata          `json:"metadata"`
}

// Store is the durable mapping from paper id to paper record. All mutation
// goes through UpsertDiscovered, Transition, and the Mark* field stamps; the
// internal lock serializes concurrent callers so that at most one insert wins
// for a given id and transitions are all-or-nothing.
type Store struct {
	path string

	mu      sync.Mutex
	papers  map[string]*Paper
	order   []string // ids in seq order
	nextSeq int64
	now     func() time.Time
}

// PaperMeta carries bibliographic fields supplied at discovery or fetch time.
type PaperMeta struct {
	Title    string
	Abstract string
	Year     int
	Venue    string
	Authors  []string
	URL      string
}

// Update carries the fields merged into a record by Transition.
type Update struct {
	Meta           *PaperMeta
	Classification category.Category
	Confidence     category.Confidence
	S2PaperID      string
}

// Load reads the snapshot at path. A missing file yields an empty store; a
// malformed file is ErrCorruptState and the file is left untouched.
func Load(path string) (*Store, error) {
	s := &Store{
		path:    path,
		papers:  make(map[string]*Paper),
		nextSeq: 1,
		now:     time.Now,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading state: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptState, path, err)
	}

	for id, p := range snap.Papers {
		if p.ID == "" {
			p.ID = id
		}
		s.papers[id] = p
		if p.Seq >= s.nextSeq {
			s.nextSeq = p.Seq + 1
		}
	}

	s.order = make([]string, 0, len(s.papers))
	for id := range s.papers {
		s.order = append(s.order, id)
	}
	sort.Slice(s.order, func(i, j int) bool {
		return s.papers[s.order[i]].Seq < s.papers[s.order[j]].Seq
	})

	return s, nil
}

// Save writes the full snapshot atomically (temp file + rename), so a crash
// mid-write never exposes a half-written state file.
func (s *Store) Save() error {
	s.mu.Lock()
	snap := snapshot{
		Papers:   make(map[string]*Paper, len(s.papers)),
		Metadata: s.metadataLocked(),
	}
	for id, p := range s.papers {
		cp := p.clone()
		snap.Papers[id] = &cp
	}
	s.mu.Unlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-state-*.json")
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
		return fmt.Errorf("writing state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("renaming state file: %w", err)
	}

	success = true
	return nil
}

// Path returns the snapshot file path.
func (s *Store) Path() string {
	return s.path
}

// UpsertDiscovered inserts a new pending record with the given provenance, or
// does nothing if the id is already known. The first successful insert is
// authoritative: re-discovery never overwrites source or source_paper_id.
// Returns true when an insert occurred.
func (s *Store) UpsertDiscovered(id string, src Source, sourcePaperID string, meta PaperMeta) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.papers[id]; exists {
		return false
	}

	p := &Paper{
		ID:            id,
		Seq:           s.nextSeq,
		Title:         meta.Title,
		Abstract:      meta.Abstract,
		Year:          meta.Year,
		Venue:         meta.Venue,
		Authors:       append([]string(nil), meta.Authors...),
		URL:           meta.URL,
		Source:        src,
		SourcePaperID: sourcePaperID,
		Status:        StatusPending,
		AddedAt:       s.now(),
	}
	s.nextSeq++
	s.papers[id] = p
	s.order = append(s.order, id)
	return true
}

// Transition validates the edge to target against the status graph and, if
// permitted, atomically updates status, stamps the corresponding timestamp,
// and merges the supplied fields. The record is untouched on rejection.
func (s *Store) Transition(id string, target Status, u Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.papers[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPaperNotFound, id)
	}
	if !canTransition(p.Status, target) {
		return invalidTransitionError(id, p.Status, target)
	}

	switch target {
	case StatusClassified:
		if u.Classification == "" || u.Classification == category.None || !u.Classification.Valid() {
			return fmt.Errorf("transition to classified: paper %s: invalid category %q", id, u.Classification)
		}
	case StatusDiscarded:
		if u.Classification != category.None {
			return fmt.Errorf("transition to discarded: paper %s: classification must be NONE, got %q", id, u.Classification)
		}
	}

	now := s.now()
	p.Status = target
	switch target {
	case StatusFetched:
		p.FetchedAt = &now
	case StatusClassified, StatusDiscarded:
		p.ClassifiedAt = &now
	case StatusExpanded:
		p.ExpandedAt = &now
	}

	if u.Meta != nil {
		mergeMeta(p, u.Meta)
	}
	if u.Classification != "" {
		p.Classification = u.Classification
	}
	if u.Confidence != "" {
		p.Confidence = u.Confidence
	}
	if u.S2PaperID != "" {
		p.S2PaperID = u.S2PaperID
	}
	return nil
}

// mergeMeta fills record fields from fetched metadata. Empty provider values
// never clobber existing ones.
func mergeMeta(p *Paper, m *PaperMeta) {
	if m.Title != "" {
		p.Title = m.Title
	}
	if m.Abstract != "" {
		p.Abstract = m.Abstract
	}
	if m.Year != 0 {
		p.Year = m.Year
	}
	if m.Venue != "" {
		p.Venue = m.Venue
	}
	if len(m.Authors) > 0 {
		p.Authors = append([]string(nil), m.Authors...)
	}
	if m.URL != "" {
		p.URL = m.URL
	}
}

// MarkFetchAttempted stamps fetch_attempted_at without a status change, so
// the fetcher can avoid immediately re-trying papers with no abstract.
func (s *Store) MarkFetchAttempted(id string) error {
	return s.stamp(id, func(p *Paper, now time.Time) { p.FetchAttemptedAt = &now })
}

// MergeFetched records metadata learned from a lookup that did not yield an
// abstract: the record keeps whatever fields came back (and the resolved
// provider id) but stays in its current status. Field update, not a
// transition.
func (s *Store) MergeFetched(id string, meta PaperMeta, s2PaperID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.papers[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPaperNotFound, id)
	}
	mergeMeta(p, &meta)
	if s2PaperID != "" {
		p.S2PaperID = s2PaperID
	}
	return nil
}

// MarkCitationsChecked stamps citations_checked_at without a status change.
func (s *Store) MarkCitationsChecked(id string) error {
	return s.stamp(id, func(p *Paper, now time.Time) { p.CitationsCheckedAt = &now })
}

func (s *Store) stamp(id string, fn func(*Paper, time.Time)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.papers[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPaperNotFound, id)
	}
	fn(p, s.now())
	return nil
}

// Get returns a copy of the record for id.
func (s *Store) Get(id string) (Paper, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.papers[id]
	if !ok {
		return Paper{}, false
	}
	return p.clone(), true
}

// Has reports whether id is known to the store.
func (s *Store) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.papers[id]
	return ok
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.papers)
}

// Query returns copies of the records with the given status, in insertion
// order, truncated to limit (limit <= 0 means no truncation). Re-running the
// same query restarts the sequence from the beginning.
func (s *Store) Query(status Status, limit int) []Paper {
	return s.collect(limit, func(p *Paper) bool { return p.Status == status })
}

// QueryForDiscovery returns classified or expanded papers whose
// citations_checked_at is null or before cutoff, in insertion order.
func (s *Store) QueryForDiscovery(cutoff time.Time, limit int) []Paper {
	return s.collect(limit, func(p *Paper) bool {
		if p.Status != StatusClassified && p.Status != StatusExpanded {
			return false
		}
		return p.CitationsCheckedAt == nil || p.CitationsCheckedAt.Before(cutoff)
	})
}

// QueryClassified returns papers that carry a category (classified or
// expanded), optionally filtered to one category. cat == "" means all.
func (s *Store) QueryClassified(cat category.Category, limit int) []Paper {
	return s.collect(limit, func(p *Paper) bool {
		if p.Status != StatusClassified && p.Status != StatusExpanded {
			return false
		}
		return cat == "" || p.Classification == cat
	})
}

func (s *Store) collect(limit int, match func(*Paper) bool) []Paper {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Paper
	for _, id := range s.order {
		p := s.papers[id]
		if !match(p) {
			continue
		}
		out = append(out, p.clone())
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Depth returns the number of hops from id to its seed ancestor, computed by
// walking the source_paper_id chain. Seeds are depth 0. A broken or cyclic
// chain terminates the walk at the last resolvable record.
func (s *Store) Depth(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.depthLocked(id)
}

func (s *Store) depthLocked(id string) int {
	depth := 0
	seen := map[string]bool{}
	cur := id
	for {
		p, ok := s.papers[cur]
		if !ok || p.SourcePaperID == "" || seen[cur] {
			return depth
		}
		seen[cur] = true
		cur = p.SourcePaperID
		depth++
	}
}

// Metadata recomputes the aggregate counters from the paper map.
func (s *Store) Metadata() Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metadataLocked()
}

func (s *Store) metadataLocked() Metadata {
	md := Metadata{
		TotalPapers: len(s.papers),
		ByStatus:    make(map[Status]int),
		ByCategory:  make(map[category.Category]int),
		LastUpdated: s.now(),
	}
	for _, p := range s.papers {
		md.ByStatus[p.Status]++
		if p.Classification != "" {
			md.ByCategory[p.Classification]++
		}
	}
	return md
}
