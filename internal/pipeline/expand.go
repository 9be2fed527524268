package pipeline

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/biecho/mlsec-papers/internal/config"
	"github.com/biecho/mlsec-papers/internal/s2"
	"github.com/biecho/mlsec-papers/internal/state"
)

// Expander walks outward from classified papers: citing papers and
// referenced papers enter the store as pending, then the paper itself is
// marked expanded. New papers beyond MaxDepth hops from a seed are pruned
// before insertion.
type Expander struct {
	Store       *state.Store
	Graph       GraphProvider
	Retry       config.RetryConfig
	Concurrency int

	MaxDepth      int
	MaxCitations  int
	MaxReferences int
}

// ExpandResult summarizes one expansion batch.
type ExpandResult struct {
	Processed       int `json:"processed"`
	Expanded        int `json:"expanded"`
	CitationsAdded  int `json:"citations_added"`
	ReferencesAdded int `json:"references_added"`
	Failed          int `json:"failed"`
}

// Run expands up to limit classified papers (limit <= 0 means all). Papers
// already at the depth bound are left classified: their children would all be
// pruned, so the provider calls are not worth spending.
func (e *Expander) Run(ctx context.Context, limit int) (ExpandResult, error) {
	batch := e.eligible(limit)
	logrus.Infof("expand: %d papers in batch", len(batch))

	var (
		mu    sync.Mutex
		res   ExpandResult
		tally int
	)

	g, ctx := errgroup.WithContext(ctx)
	if e.Concurrency > 0 {
		g.SetLimit(e.Concurrency)
	} else {
		g.SetLimit(1)
	}

	for _, paper := range batch {
		p := paper
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			cits, refs, ok := e.expandOne(ctx, &p)

			mu.Lock()
			res.Processed++
			if ok {
				res.Expanded++
				res.CitationsAdded += cits
				res.ReferencesAdded += refs
			} else {
				res.Failed++
			}
			tally++
			checkpoint := tally%(checkpointEvery/5+1) == 0
			mu.Unlock()

			if checkpoint {
				_ = e.Store.Save()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		_ = e.Store.Save()
		return res, err
	}
	if err := e.Store.Save(); err != nil {
		return res, err
	}

	logrus.Infof("expand: done (%d expanded, +%d citations, +%d references, %d failed)",
		res.Expanded, res.CitationsAdded, res.ReferencesAdded, res.Failed)
	return res, nil
}

// expandOne fetches both edge sets for one paper and admits new identifiers.
// A provider failure on either set leaves the paper classified for the next
// run; nothing is half-expanded because upserts are idempotent.
func (e *Expander) expandOne(ctx context.Context, p *state.Paper) (citationsAdded, referencesAdded int, ok bool) {
	graphID := p.GraphID()

	var citations, references []s2.Paper
	err := withRetry(ctx, e.Retry, "citations "+p.ID, func() error {
		var err error
		citations, err = e.Graph.GetCitations(ctx, graphID, e.MaxCitations)
		if s2.IsNotFound(err) {
			citations = nil
			return nil
		}
		return err
	})
	if err != nil {
		logrus.Warnf("expand %s: fetching citations: %v", p.ID, err)
		return 0, 0, false
	}

	err = withRetry(ctx, e.Retry, "references "+p.ID, func() error {
		var err error
		references, err = e.Graph.GetReferences(ctx, graphID, e.MaxReferences)
		if s2.IsNotFound(err) {
			references = nil
			return nil
		}
		return err
	})
	if err != nil {
		logrus.Warnf("expand %s: fetching references: %v", p.ID, err)
		return 0, 0, false
	}

	if len(citations) > e.MaxCitations {
		citations = citations[:e.MaxCitations]
	}
	if len(references) > e.MaxReferences {
		references = references[:e.MaxReferences]
	}

	childDepth := e.Store.Depth(p.ID) + 1
	for i := range citations {
		if e.admit(&citations[i], state.SourceCitation, p.ID, childDepth) {
			citationsAdded++
		}
	}
	for i := range references {
		if e.admit(&references[i], state.SourceReference, p.ID, childDepth) {
			referencesAdded++
		}
	}

	if err := e.Store.Transition(p.ID, state.StatusExpanded, state.Update{}); err != nil {
		logrus.Warnf("expand %s: %v", p.ID, err)
		return citationsAdded, referencesAdded, false
	}
	return citationsAdded, referencesAdded, true
}

// admit inserts a newly discovered paper unless it would exceed the depth
// bound. Already-known identifiers are left untouched.
func (e *Expander) admit(sp *s2.Paper, src state.Source, parentID string, depth int) bool {
	if sp.PaperID == "" || depth > e.MaxDepth {
		return false
	}
	return e.Store.UpsertDiscovered(sp.PaperID, src, parentID, state.PaperMeta{
		Title:    sp.Title,
		Abstract: sp.Abstract,
		Year:     sp.Year,
		Venue:    sp.Venue,
		Authors:  sp.AuthorNames(),
		URL:      sp.URL,
	})
}

// eligible returns classified papers inside the depth bound that can be
// queried against the graph provider.
func (e *Expander) eligible(limit int) []state.Paper {
	classified := e.Store.Query(state.StatusClassified, 0)

	var batch []state.Paper
	for _, p := range classified {
		if p.IsSeedPlaceholder() {
			continue
		}
		if e.Store.Depth(p.ID) >= e.MaxDepth {
			continue
		}
		batch = append(batch, p)
		if limit > 0 && len(batch) >= limit {
			break
		}
	}
	return batch
}
