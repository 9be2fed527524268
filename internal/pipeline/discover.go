package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/biecho/mlsec-papers/internal/config"
	"github.com/biecho/mlsec-papers/internal/s2"
	"github.com/biecho/mlsec-papers/internal/state"
)

// Discoverer periodically re-checks citations of processed papers to catch
// papers published since the last check. It only extends the frontier:
// references are never re-fetched (they do not change) and the checked
// paper's own status never moves.
type Discoverer struct {
	Store       *state.Store
	Graph       GraphProvider
	Retry       config.RetryConfig
	Concurrency int

	Staleness    time.Duration // re-check papers not checked within this window
	MaxCitations int
	MaxDepth     int

	// RecentYearWindow admits only citing papers published within the last
	// N years; 0 disables the filter. New citations of long-settled papers
	// are dominated by surveys, which the recency filter screens out.
	RecentYearWindow int

	now func() time.Time
}

// DiscoverResult summarizes one discovery batch.
type DiscoverResult struct {
	Checked   int `json:"checked"`
	NewPapers int `json:"new_papers"`
	Failed    int `json:"failed"`
}

// Run checks up to limit stale papers (limit <= 0 means all).
func (d *Discoverer) Run(ctx context.Context, limit int) (DiscoverResult, error) {
	cutoff := d.clock()().Add(-d.Staleness)
	batch := d.eligible(cutoff, limit)
	logrus.Infof("discover: %d papers due for a citation check", len(batch))

	var (
		mu    sync.Mutex
		res   DiscoverResult
		tally int
	)

	g, ctx := errgroup.WithContext(ctx)
	if d.Concurrency > 0 {
		g.SetLimit(d.Concurrency)
	} else {
		g.SetLimit(1)
	}

	for _, paper := range batch {
		p := paper
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			added, ok := d.checkOne(ctx, &p)

			mu.Lock()
			if ok {
				res.Checked++
				res.NewPapers += added
			} else {
				res.Failed++
			}
			tally++
			checkpoint := tally%checkpointEvery == 0
			mu.Unlock()

			if checkpoint {
				_ = d.Store.Save()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		_ = d.Store.Save()
		return res, err
	}
	if err := d.Store.Save(); err != nil {
		return res, err
	}

	logrus.Infof("discover: done (%d checked, %d new papers)", res.Checked, res.NewPapers)
	return res, nil
}

// checkOne re-queries the citing set for one paper and stamps the check time
// whether or not anything new turned up.
func (d *Discoverer) checkOne(ctx context.Context, p *state.Paper) (added int, ok bool) {
	var citations []s2.Paper
	err := withRetry(ctx, d.Retry, "discover "+p.ID, func() error {
		var err error
		citations, err = d.Graph.GetCitations(ctx, p.GraphID(), d.MaxCitations)
		if s2.IsNotFound(err) {
			citations = nil
			return nil
		}
		return err
	})
	if err != nil {
		logrus.Warnf("discover %s: %v", p.ID, err)
		return 0, false
	}

	if len(citations) > d.MaxCitations {
		citations = citations[:d.MaxCitations]
	}

	childDepth := d.Store.Depth(p.ID) + 1
	minYear := 0
	if d.RecentYearWindow > 0 {
		minYear = d.clock()().Year() - d.RecentYearWindow
	}

	for i := range citations {
		sp := &citations[i]
		if sp.PaperID == "" || d.Store.Has(sp.PaperID) {
			continue
		}
		if minYear > 0 && (sp.Year == 0 || sp.Year < minYear) {
			continue
		}
		if childDepth > d.MaxDepth {
			continue
		}
		inserted := d.Store.UpsertDiscovered(sp.PaperID, state.SourceCitation, p.ID, state.PaperMeta{
			Title:    sp.Title,
			Abstract: sp.Abstract,
			Year:     sp.Year,
			Venue:    sp.Venue,
			Authors:  sp.AuthorNames(),
			URL:      sp.URL,
		})
		if inserted {
			added++
		}
	}

	if err := d.Store.MarkCitationsChecked(p.ID); err != nil {
		logrus.Warnf("discover %s: stamping check time: %v", p.ID, err)
		return added, false
	}
	return added, true
}

// eligible returns classified and expanded papers whose last citation check
// is missing or older than cutoff, excluding seed placeholders that have no
// graph identifier to query.
func (d *Discoverer) eligible(cutoff time.Time, limit int) []state.Paper {
	due := d.Store.QueryForDiscovery(cutoff, 0)

	var batch []state.Paper
	for _, p := range due {
		if p.IsSeedPlaceholder() {
			continue
		}
		batch = append(batch, p)
		if limit > 0 && len(batch) >= limit {
			break
		}
	}
	return batch
}

func (d *Discoverer) clock() func() time.Time {
	if d.now != nil {
		return d.now
	}
	return time.Now
}
