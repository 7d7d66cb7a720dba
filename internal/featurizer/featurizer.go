// Package featurizer turns product text into TF-IDF sparse vectors.
package featurizer

import (
	"context"
	"errors"
)

var (
	// ErrEmptyCorpus is returned when fitting on zero documents.
	ErrEmptyCorpus = errors.New("featurizer: empty corpus")
	// ErrDegenerateCorpus is returned when no document yields a usable term.
	ErrDegenerateCorpus = errors.New("featurizer: corpus produced an empty vocabulary")
	// ErrNotFitted is returned when transforming with a vectorizer that has not been fitted.
	ErrNotFitted = errors.New("featurizer: vectorizer not fitted")
	// ErrAlreadyFitted is returned when Fit is called twice on the same vectorizer.
	ErrAlreadyFitted = errors.New("featurizer: vectorizer already fitted")
)

// Featurizer maps documents into a fixed vocabulary space.
type Featurizer interface {
	FitTransform(ctx context.Context, corpus []string) ([]SparseVector, error)
	Transform(doc string) (SparseVector, error)
	TransformAll(ctx context.Context, docs []string) ([]SparseVector, error)
	Dimensions() int
}
