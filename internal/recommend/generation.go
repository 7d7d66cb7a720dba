package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hyperjump/kaimono/internal/catalog"
	"github.com/hyperjump/kaimono/internal/featurizer"
	"github.com/hyperjump/kaimono/internal/models"
	"github.com/hyperjump/kaimono/internal/vector"
)

// Generation is one complete model: the snapshot it was trained on, the fitted
// vectorizer, the per-product vectors and the index over them. It is never modified after BuildGeneration returns.
type Generation struct {
	ID         string
	Snapshot   *catalog.Snapshot
	Vectorizer *featurizer.Vectorizer
	Vectors    []featurizer.SparseVector
	Index      vector.VectorIndex
	TrainedAt  time.Time
	Duration   time.Duration
}

// BuildOptions configures BuildGeneration.
type BuildOptions struct {
	Featurizer   featurizer.Options
	IndexType    string
	IndexWorkers int
}

// BuildGeneration trains a generation from products in catalog order.
func BuildGeneration(ctx context.Context, products []*models.Product, opts BuildOptions) (*Generation, error) {
	start := time.Now()
	snapshot := catalog.NewSnapshot(products)
	if snapshot.Len() == 0 {
		return nil, featurizer.ErrEmptyCorpus
	}

	vectorizer := featurizer.NewVectorizer(opts.Featurizer)
	vectors, err := vectorizer.FitTransform(ctx, snapshot.Corpus())
	if err != nil {
		return nil, fmt.Errorf("fit featurizer: %w", err)
	}

	index, err := vector.NewVectorIndex(opts.IndexType, opts.IndexWorkers)
	if err != nil {
		return nil, err
	}
	if err := index.Build(ctx, vectors, vectorizer.Dimensions()); err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}

	return &Generation{
		ID:         uuid.NewString(),
		Snapshot:   snapshot,
		Vectorizer: vectorizer,
		Vectors:    vectors,
		Index:      index,
		TrainedAt:  time.Now(),
		Duration:   time.Since(start),
	}, nil
}
