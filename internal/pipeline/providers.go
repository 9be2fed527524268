// Package pipeline implements the batch stages that move papers through the
// store lifecycle: seed init, metadata fetch, classification, citation-graph
// expansion, and periodic discovery of new citations.
package pipeline

import (
	"context"

	"github.com/biecho/mlsec-papers/internal/llm"
	"github.com/biecho/mlsec-papers/internal/s2"
)

// MetadataProvider resolves identifiers or titles into bibliographic records.
// *s2.Client satisfies it.
type MetadataProvider interface {
	GetPaper(ctx context.Context, paperID string) (*s2.Paper, error)
	SearchPaper(ctx context.Context, title string) (*s2.Paper, error)
}

// GraphProvider serves the citation graph. *s2.Client satisfies it.
type GraphProvider interface {
	GetCitations(ctx context.Context, paperID string, limit int) ([]s2.Paper, error)
	GetReferences(ctx context.Context, paperID string, limit int) ([]s2.Paper, error)
}

// PaperClassifier assigns a category to a paper. *llm.Classifier satisfies it.
type PaperClassifier interface {
	Classify(ctx context.Context, title, abstract string) (llm.Result, error)
}
