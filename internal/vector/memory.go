package vector

import (
	"context"
	"sync"

	"github.com/hyperjump/kaimono/internal/featurizer"
)

// MemoryIndex is a brute-force index scanned by the calling goroutine.
type MemoryIndex struct {
	rows rows
	mu   sync.RWMutex
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string {
	return string(IndexTypeMemory)
}

// Build replaces the index contents with vectors.
func (m *MemoryIndex) Build(ctx context.Context, vectors []featurizer.SparseVector, dimensions int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r, err := newRows(vectors, dimensions)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.rows = r
	m.mu.Unlock()
	return nil
}

// Search returns the k rows closest to query.
func (m *MemoryIndex) Search(ctx context.Context, q featurizer.SparseVector, k int) ([]Neighbor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := len(m.rows.vectors)
	if n == 0 {
		return nil, ErrEmptyIndex
	}
	qv, err := newQuery(q, m.rows.dimensions)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all := make([]Neighbor, n)
	m.rows.distances(qv, 0, n, all)
	sortNeighbors(all)
	return all[:min(k, n)], nil
}

// Size returns the number of indexed vectors.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rows.vectors)
}

// Dimensions returns the vector space dimension the index was built with.
func (m *MemoryIndex) Dimensions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rows.dimensions
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
