package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/biecho/mlsec-papers/internal/s2"
	"github.com/biecho/mlsec-papers/internal/state"
)

func TestExpandAdmitsCitationsAndReferences(t *testing.T) {
	store := newStore(t)
	addClassified(t, store, "root", "")

	graph := &fakeGraph{
		citationsFn: func(paperID string) ([]s2.Paper, error) {
			return []s2.Paper{
				{PaperID: "cit1", Title: "Citing One"},
				{PaperID: "cit2", Title: "Citing Two"},
			}, nil
		},
		referencesFn: func(paperID string) ([]s2.Paper, error) {
			return []s2.Paper{{PaperID: "ref1", Title: "Reference One"}}, nil
		},
	}

	e := &Expander{
		Store: store, Graph: graph, Retry: fastRetry,
		MaxDepth: 2, MaxCitations: 100, MaxReferences: 50,
	}
	res, err := e.Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Expanded != 1 || res.CitationsAdded != 2 || res.ReferencesAdded != 1 {
		t.Errorf("result = %+v", res)
	}

	root, _ := store.Get("root")
	if root.Status != state.StatusExpanded {
		t.Errorf("root status = %s, want expanded", root.Status)
	}

	cit, ok := store.Get("cit1")
	if !ok {
		t.Fatal("cit1 not admitted")
	}
	if cit.Status != state.StatusPending {
		t.Errorf("cit1 status = %s, want pending", cit.Status)
	}
	if cit.Source != state.SourceCitation || cit.SourcePaperID != "root" {
		t.Errorf("cit1 provenance = %s/%q", cit.Source, cit.SourcePaperID)
	}

	ref, _ := store.Get("ref1")
	if ref.Source != state.SourceReference {
		t.Errorf("ref1 source = %s, want reference", ref.Source)
	}
	if store.Depth("cit1") != 1 {
		t.Errorf("Depth(cit1) = %d, want 1", store.Depth("cit1"))
	}
}

func TestExpandSkipsKnownPapers(t *testing.T) {
	store := newStore(t)
	addClassified(t, store, "root", "")
	store.UpsertDiscovered("known", state.SourceSeed, "", state.PaperMeta{Title: "Already Here"})

	graph := &fakeGraph{
		citationsFn: func(paperID string) ([]s2.Paper, error) {
			return []s2.Paper{
				{PaperID: "known", Title: "Different Title"},
				{PaperID: "fresh", Title: "New One"},
			}, nil
		},
	}

	e := &Expander{
		Store: store, Graph: graph, Retry: fastRetry,
		MaxDepth: 2, MaxCitations: 100, MaxReferences: 50,
	}
	res, err := e.Run(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.CitationsAdded != 1 {
		t.Errorf("CitationsAdded = %d, want 1", res.CitationsAdded)
	}

	known, _ := store.Get("known")
	if known.Title != "Already Here" || known.Source != state.SourceSeed {
		t.Errorf("known record mutated: %+v", known)
	}
}

func TestExpandEnforcesCaps(t *testing.T) {
	store := newStore(t)
	addClassified(t, store, "root", "")

	graph := &fakeGraph{
		citationsFn: func(paperID string) ([]s2.Paper, error) {
			var out []s2.Paper
			for i := 0; i < 10; i++ {
				out = append(out, s2.Paper{PaperID: fmt.Sprintf("cit%d", i), Title: "C"})
			}
			return out, nil
		},
		referencesFn: func(paperID string) ([]s2.Paper, error) {
			var out []s2.Paper
			for i := 0; i < 10; i++ {
				out = append(out, s2.Paper{PaperID: fmt.Sprintf("ref%d", i), Title: "R"})
			}
			return out, nil
		},
	}

	e := &Expander{
		Store: store, Graph: graph, Retry: fastRetry,
		MaxDepth: 2, MaxCitations: 3, MaxReferences: 2,
	}
	res, err := e.Run(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.CitationsAdded != 3 || res.ReferencesAdded != 2 {
		t.Errorf("result = %+v, caps not enforced", res)
	}
}

func TestExpandDepthBound(t *testing.T) {
	store := newStore(t)
	// Chain: seed (depth 0) -> mid (depth 1) -> leaf (depth 2), MaxDepth 2.
	store.UpsertDiscovered("seed", state.SourceSeed, "", state.PaperMeta{Title: "S"})
	addClassified(t, store, "mid", "seed")
	addClassified(t, store, "leaf", "mid")

	graph := &fakeGraph{
		citationsFn: func(paperID string) ([]s2.Paper, error) {
			return []s2.Paper{{PaperID: "child-of-" + paperID, Title: "C"}}, nil
		},
	}

	e := &Expander{
		Store: store, Graph: graph, Retry: fastRetry,
		MaxDepth: 2, MaxCitations: 100, MaxReferences: 50,
	}
	res, err := e.Run(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}

	// Only mid is expandable: leaf sits at the depth bound.
	if res.Processed != 1 {
		t.Errorf("Processed = %d, want 1", res.Processed)
	}
	leaf, _ := store.Get("leaf")
	if leaf.Status != state.StatusClassified {
		t.Errorf("leaf status = %s, want classified", leaf.Status)
	}
	if store.Has("child-of-leaf") {
		t.Error("paper beyond the depth bound was admitted")
	}
	child, ok := store.Get("child-of-mid")
	if !ok {
		t.Fatal("child-of-mid not admitted")
	}
	if store.Depth(child.ID) != 2 {
		t.Errorf("Depth(child-of-mid) = %d, want 2", store.Depth(child.ID))
	}
}

func TestExpandProviderFailureLeavesClassified(t *testing.T) {
	store := newStore(t)
	addClassified(t, store, "root", "")

	graph := &fakeGraph{
		citationsFn: func(paperID string) ([]s2.Paper, error) {
			return nil, errors.New("connection reset")
		},
	}

	e := &Expander{
		Store: store, Graph: graph, Retry: fastRetry,
		MaxDepth: 2, MaxCitations: 100, MaxReferences: 50,
	}
	res, err := e.Run(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Failed != 1 || res.Expanded != 0 {
		t.Errorf("result = %+v", res)
	}

	p, _ := store.Get("root")
	if p.Status != state.StatusClassified {
		t.Errorf("Status = %s, failed paper should stay classified", p.Status)
	}
}

func TestExpandToleratesNotFound(t *testing.T) {
	store := newStore(t)
	addClassified(t, store, "root", "")

	graph := &fakeGraph{
		citationsFn: func(paperID string) ([]s2.Paper, error) {
			return nil, s2.ErrNotFound
		},
		referencesFn: func(paperID string) ([]s2.Paper, error) {
			return nil, s2.ErrNotFound
		},
	}

	e := &Expander{
		Store: store, Graph: graph, Retry: fastRetry,
		MaxDepth: 2, MaxCitations: 100, MaxReferences: 50,
	}
	res, err := e.Run(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Expanded != 1 {
		t.Errorf("result = %+v, missing edge sets should expand cleanly", res)
	}
}

func TestExpandSkipsSeedPlaceholders(t *testing.T) {
	store := newStore(t)
	addClassified(t, store, "seed_a1b2c3d4", "")

	graph := &fakeGraph{}
	e := &Expander{
		Store: store, Graph: graph, Retry: fastRetry,
		MaxDepth: 2, MaxCitations: 100, MaxReferences: 50,
	}
	res, err := e.Run(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 0 {
		t.Errorf("Processed = %d, synthetic ids cannot be expanded", res.Processed)
	}
	if len(graph.citationCalls) != 0 {
		t.Errorf("provider called for synthetic id: %v", graph.citationCalls)
	}
}
