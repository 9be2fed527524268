package pipeline

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/biecho/mlsec-papers/internal/category"
	"github.com/biecho/mlsec-papers/internal/config"
	"github.com/biecho/mlsec-papers/internal/state"
)

// Classifier assigns a security category to fetched papers. A NONE result
// discards the paper; everything else advances it to classified.
type Classifier struct {
	Store       *state.Store
	Provider    PaperClassifier
	Retry       config.RetryConfig
	Concurrency int
}

// ClassifyResult summarizes one classification batch.
type ClassifyResult struct {
	Processed  int `json:"processed"`
	Classified int `json:"classified"`
	Discarded  int `json:"discarded"`
	Failed     int `json:"failed"`
}

// Run classifies up to limit fetched papers (limit <= 0 means all).
func (c *Classifier) Run(ctx context.Context, limit int) (ClassifyResult, error) {
	batch := c.Store.Query(state.StatusFetched, limit)
	logrus.Infof("classify: %d papers in batch", len(batch))

	var (
		mu    sync.Mutex
		res   ClassifyResult
		tally int
	)

	g, ctx := errgroup.WithContext(ctx)
	if c.Concurrency > 0 {
		g.SetLimit(c.Concurrency)
	} else {
		g.SetLimit(1)
	}

	for _, paper := range batch {
		p := paper
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			result := c.classifyOne(ctx, &p)

			mu.Lock()
			res.Processed++
			switch result {
			case category.None:
				res.Discarded++
			case "":
				res.Failed++
			default:
				res.Classified++
			}
			tally++
			checkpoint := tally%checkpointEvery == 0
			mu.Unlock()

			if checkpoint {
				_ = c.Store.Save()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		_ = c.Store.Save()
		return res, err
	}
	if err := c.Store.Save(); err != nil {
		return res, err
	}

	logrus.Infof("classify: done (%d classified, %d discarded, %d failed)",
		res.Classified, res.Discarded, res.Failed)
	return res, nil
}

// classifyOne returns the assigned category, or "" on failure.
func (c *Classifier) classifyOne(ctx context.Context, p *state.Paper) category.Category {
	var result struct {
		cat  category.Category
		conf category.Confidence
	}

	err := withRetry(ctx, c.Retry, "classify "+p.ID, func() error {
		r, e := c.Provider.Classify(ctx, p.Title, p.Abstract)
		if e != nil {
			return e
		}
		result.cat, result.conf = r.Category, r.Confidence
		return nil
	})
	if err != nil {
		logrus.Warnf("classify %s: %v", p.ID, err)
		return ""
	}

	update := state.Update{Classification: result.cat, Confidence: result.conf}
	target := state.StatusClassified
	if result.cat == category.None {
		target = state.StatusDiscarded
	}

	if err := c.Store.Transition(p.ID, target, update); err != nil {
		logrus.Warnf("classify %s: %v", p.ID, err)
		return ""
	}
	return result.cat
}
