package vector

import "fmt"

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeMemory scans every vector on the calling goroutine.
	IndexTypeMemory IndexType = "memory"
	// IndexTypeParallel splits the scan into shards searched concurrently. Suited to large catalogs.
	IndexTypeParallel IndexType = "parallel"
)

// NewVectorIndex creates an index of the given type. Supported types: "memory" (default), "parallel".
// workers only applies to the parallel index.
func NewVectorIndex(indexType string, workers int) (VectorIndex, error) {
	switch IndexType(indexType) {
	case IndexTypeMemory, "":
		return NewMemoryIndex(), nil
	case IndexTypeParallel:
		return NewParallelIndex(workers), nil
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: memory, parallel)", indexType)
	}
}
