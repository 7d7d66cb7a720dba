package vector

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/hyperjump/kaimono/internal/featurizer"
)

// ParallelIndex is a brute-force index whose scan is split into shards run concurrently.
type ParallelIndex struct {
	rows    rows
	workers int
	mu      sync.RWMutex
}

// NewParallelIndex creates an empty sharded index. workers <= 0 means GOMAXPROCS.
func NewParallelIndex(workers int) *ParallelIndex {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &ParallelIndex{workers: workers}
}

// Type returns the index type identifier.
func (p *ParallelIndex) Type() string {
	return string(IndexTypeParallel)
}

// Build replaces the index contents with vectors.
func (p *ParallelIndex) Build(ctx context.Context, vectors []featurizer.SparseVector, dimensions int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r, err := newRows(vectors, dimensions)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.rows = r
	p.mu.Unlock()
	return nil
}

// Search scans shards concurrently, keeps each shard's best k and merges them.
func (p *ParallelIndex) Search(ctx context.Context, q featurizer.SparseVector, k int) ([]Neighbor, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := len(p.rows.vectors)
	if n == 0 {
		return nil, ErrEmptyIndex
	}
	qv, err := newQuery(q, p.rows.dimensions)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	k = min(k, n)

	workers := min(p.workers, n)
	shard := (n + workers - 1) / workers
	shards := make([][]Neighbor, (n+shard-1)/shard)

	g, gctx := errgroup.WithContext(ctx)
	for s := range shards {
		lo := s * shard
		hi := min(lo+shard, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			part := make([]Neighbor, hi-lo)
			p.rows.distances(qv, lo, hi, part)
			sortNeighbors(part)
			shards[s] = part[:min(k, len(part))]
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make([]Neighbor, 0, k*len(shards))
	for _, part := range shards {
		merged = append(merged, part...)
	}
	sortNeighbors(merged)
	return merged[:k], nil
}

// Size returns the number of indexed vectors.
func (p *ParallelIndex) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rows.vectors)
}

// Dimensions returns the vector space dimension the index was built with.
func (p *ParallelIndex) Dimensions() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.rows.dimensions
}

// Close is a no-op for ParallelIndex.
func (p *ParallelIndex) Close() error {
	return nil
}
