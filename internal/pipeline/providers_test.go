package pipeline

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/biecho/mlsec-papers/internal/config"
	"github.com/biecho/mlsec-papers/internal/llm"
	"github.com/biecho/mlsec-papers/internal/s2"
	"github.com/biecho/mlsec-papers/internal/state"
)

// fastRetry keeps test failures from sleeping.
var fastRetry = config.RetryConfig{MaxAttempts: 1}

func newStore(t *testing.T) *state.Store {
	t.Helper()
	s, err := state.Load(filepath.Join(t.TempDir(), "paper_state.json"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// fakeMetadata implements MetadataProvider with injectable behavior.
type fakeMetadata struct {
	mu          sync.Mutex
	getCalls    []string
	searchCalls []string

	getFn    func(paperID string) (*s2.Paper, error)
	searchFn func(title string) (*s2.Paper, error)
}

func (f *fakeMetadata) GetPaper(_ context.Context, paperID string) (*s2.Paper, error) {
	f.mu.Lock()
	f.getCalls = append(f.getCalls, paperID)
	f.mu.Unlock()
	if f.getFn == nil {
		return nil, s2.ErrNotFound
	}
	return f.getFn(paperID)
}

func (f *fakeMetadata) SearchPaper(_ context.Context, title string) (*s2.Paper, error) {
	f.mu.Lock()
	f.searchCalls = append(f.searchCalls, title)
	f.mu.Unlock()
	if f.searchFn == nil {
		return nil, s2.ErrNotFound
	}
	return f.searchFn(title)
}

// fakeGraph implements GraphProvider with injectable behavior.
type fakeGraph struct {
	mu            sync.Mutex
	citationCalls []string

	citationsFn  func(paperID string) ([]s2.Paper, error)
	referencesFn func(paperID string) ([]s2.Paper, error)
}

func (f *fakeGraph) GetCitations(_ context.Context, paperID string, _ int) ([]s2.Paper, error) {
	f.mu.Lock()
	f.citationCalls = append(f.citationCalls, paperID)
	f.mu.Unlock()
	if f.citationsFn == nil {
		return nil, nil
	}
	return f.citationsFn(paperID)
}

func (f *fakeGraph) GetReferences(_ context.Context, paperID string, _ int) ([]s2.Paper, error) {
	if f.referencesFn == nil {
		return nil, nil
	}
	return f.referencesFn(paperID)
}

// fakeLLM implements PaperClassifier with injectable behavior.
type fakeLLM struct {
	classifyFn func(title, abstract string) (llm.Result, error)
}

func (f *fakeLLM) Classify(_ context.Context, title, abstract string) (llm.Result, error) {
	return f.classifyFn(title, abstract)
}

// addClassified seeds the store with a paper already advanced to classified.
func addClassified(t *testing.T, s *state.Store, id, parentID string) {
	t.Helper()
	src := state.SourceSeed
	if parentID != "" {
		src = state.SourceCitation
	}
	s.UpsertDiscovered(id, src, parentID, state.PaperMeta{Title: "Paper " + id, Abstract: "A"})
	if err := s.Transition(id, state.StatusFetched, state.Update{}); err != nil {
		t.Fatal(err)
	}
	err := s.Transition(id, state.StatusClassified, state.Update{Classification: "ML01", Confidence: "HIGH"})
	if err != nil {
		t.Fatal(err)
	}
}
