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

// Fetcher resolves pending papers into full bibliographic records: lookup by
// identifier first, title search as fallback. Papers that come back without
// an abstract stay pending (there is nothing to classify yet) but get their
// attempt stamped so the next run does not immediately re-try them.
type Fetcher struct {
	Store       *state.Store
	Provider    MetadataProvider
	Retry       config.RetryConfig
	Concurrency int

	// AttemptTTL skips pending papers whose last lookup attempt is more
	// recent than this. Zero disables the filter.
	AttemptTTL time.Duration
}

// FetchResult summarizes one fetch batch.
type FetchResult struct {
	Processed  int `json:"processed"`
	Fetched    int `json:"fetched"`
	NoAbstract int `json:"no_abstract"`
	NotFound   int `json:"not_found"`
	Failed     int `json:"failed"`
}

// Run processes up to limit pending papers (limit <= 0 means all). Per-paper
// failures are logged and skipped; only cancellation and snapshot-write
// failures propagate.
func (f *Fetcher) Run(ctx context.Context, limit int) (FetchResult, error) {
	batch := f.eligible(limit)
	logrus.Infof("fetch: %d pending papers in batch", len(batch))

	var (
		mu     sync.Mutex
		res    FetchResult
		tally  int
		saveErr error
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency())

	for _, paper := range batch {
		p := paper
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			outcome := f.fetchOne(ctx, &p)

			mu.Lock()
			res.Processed++
			switch outcome {
			case fetchOK:
				res.Fetched++
			case fetchNoAbstract:
				res.NoAbstract++
			case fetchNotFound:
				res.NotFound++
			case fetchFailed:
				res.Failed++
			}
			tally++
			checkpoint := tally%checkpointEvery == 0
			mu.Unlock()

			if checkpoint {
				if err := f.Store.Save(); err != nil {
					mu.Lock()
					saveErr = err
					mu.Unlock()
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// Cancelled mid-batch: persist what finished; unfinished papers
		// keep their prior status.
		_ = f.Store.Save()
		return res, err
	}
	if saveErr != nil {
		return res, saveErr
	}
	if err := f.Store.Save(); err != nil {
		return res, err
	}

	logrus.Infof("fetch: done (%d fetched, %d without abstract, %d not found, %d failed)",
		res.Fetched, res.NoAbstract, res.NotFound, res.Failed)
	return res, nil
}

type fetchOutcome int

const (
	fetchOK fetchOutcome = iota
	fetchNoAbstract
	fetchNotFound
	fetchFailed
)

func (f *Fetcher) fetchOne(ctx context.Context, p *state.Paper) fetchOutcome {
	result, err := f.lookup(ctx, p)
	if err != nil {
		if s2.IsNotFound(err) {
			// Absence of metadata is not evidence of irrelevance: the
			// paper stays pending for future runs.
			_ = f.Store.MarkFetchAttempted(p.ID)
			return fetchNotFound
		}
		logrus.Warnf("fetch %s: %v", p.ID, err)
		return fetchFailed
	}

	meta := state.PaperMeta{
		Title:    result.Title,
		Abstract: result.Abstract,
		Year:     result.Year,
		Venue:    result.Venue,
		Authors:  result.AuthorNames(),
		URL:      result.URL,
	}

	if result.Abstract == "" {
		// Lookup succeeded but there is nothing to classify; keep the
		// partial record and note the attempt.
		if err := f.Store.MergeFetched(p.ID, meta, result.PaperID); err != nil {
			logrus.Warnf("fetch %s: merging metadata: %v", p.ID, err)
			return fetchFailed
		}
		_ = f.Store.MarkFetchAttempted(p.ID)
		return fetchNoAbstract
	}

	err = f.Store.Transition(p.ID, state.StatusFetched, state.Update{
		Meta:      &meta,
		S2PaperID: result.PaperID,
	})
	if err != nil {
		logrus.Warnf("fetch %s: %v", p.ID, err)
		return fetchFailed
	}
	return fetchOK
}

// lookup tries the identifier first, then falls back to a title search.
// Synthetic seed ids go straight to search.
func (f *Fetcher) lookup(ctx context.Context, p *state.Paper) (*s2.Paper, error) {
	var result *s2.Paper

	if !p.IsSeedPlaceholder() {
		err := withRetry(ctx, f.Retry, "fetch "+p.ID, func() error {
			var e error
			result, e = f.Provider.GetPaper(ctx, p.GraphID())
			return e
		})
		if err == nil {
			return result, nil
		}
		if !s2.IsNotFound(err) {
			return nil, err
		}
	}

	if p.Title == "" {
		return nil, s2.ErrNotFound
	}
	err := withRetry(ctx, f.Retry, "search "+p.ID, func() error {
		var e error
		result, e = f.Provider.SearchPaper(ctx, p.Title)
		return e
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// eligible returns the pending papers to process, oldest first, excluding
// papers attempted within AttemptTTL.
func (f *Fetcher) eligible(limit int) []state.Paper {
	pending := f.Store.Query(state.StatusPending, 0)

	var batch []state.Paper
	cutoff := time.Now().Add(-f.AttemptTTL)
	for _, p := range pending {
		if f.AttemptTTL > 0 && p.FetchAttemptedAt != nil && p.FetchAttemptedAt.After(cutoff) {
			continue
		}
		batch = append(batch, p)
		if limit > 0 && len(batch) >= limit {
			break
		}
	}
	return batch
}

func (f *Fetcher) concurrency() int {
	if f.Concurrency > 0 {
		return f.Concurrency
	}
	return 1
}
