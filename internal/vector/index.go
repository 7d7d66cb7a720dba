// Package vector provides cosine nearest-neighbour indexes over sparse vectors.
package vector

import (
	"context"
	"errors"

	"github.com/hyperjump/kaimono/internal/featurizer"
)

var (
	// ErrEmptyIndex is returned when searching an index that holds no vectors.
	ErrEmptyIndex = errors.New("vector: index is empty")
	// ErrDimensionMismatch is returned when a query references a dimension the index does not have.
	ErrDimensionMismatch = errors.New("vector: dimension mismatch")
)

// VectorIndex answers k-nearest-neighbour queries by cosine distance.
type VectorIndex interface {
	// Build replaces the index contents. Row i of vectors is reported as Neighbor.Index i.
	Build(ctx context.Context, vectors []featurizer.SparseVector, dimensions int) error
	// Search returns up to k neighbours ordered by ascending distance, ties by ascending index.
	Search(ctx context.Context, query featurizer.SparseVector, k int) ([]Neighbor, error)
	Size() int
	Dimensions() int
	Type() string
	Close() error
}

// Neighbor is a single search hit. Distance is 1 minus cosine similarity.
type Neighbor struct {
	Index    int
	Distance float64
}
