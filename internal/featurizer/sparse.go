package featurizer

import (
	"math"
	"sort"
)

// SparseVector is a vector in vocabulary space holding only non-zero weights.
// Indices are strictly increasing.
type SparseVector struct {
	Indices []int
	Values  []float64
}

// Nnz returns the number of non-zero entries.
func (v SparseVector) Nnz() int {
	return len(v.Indices)
}

// Norm returns the L2 norm.
func (v SparseVector) Norm() float64 {
	var sum float64
	for _, x := range v.Values {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Dot returns the inner product with a dense vector.
func (v SparseVector) Dot(dense []float64) float64 {
	var sum float64
	for i, idx := range v.Indices {
		if idx < len(dense) {
			sum += v.Values[i] * dense[idx]
		}
	}
	return sum
}

// DotSparse returns the inner product with another sparse vector.
func (v SparseVector) DotSparse(o SparseVector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(v.Indices) && j < len(o.Indices) {
		switch {
		case v.Indices[i] == o.Indices[j]:
			sum += v.Values[i] * o.Values[j]
			i++
			j++
		case v.Indices[i] < o.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

// Dense expands v into a dense slice of length dim.
func (v SparseVector) Dense(dim int) []float64 {
	dense := make([]float64, dim)
	for i, idx := range v.Indices {
		if idx < dim {
			dense[idx] = v.Values[i]
		}
	}
	return dense
}

// Mean returns the element-wise mean of vectors. The mean of no vectors is the zero vector.
func Mean(vectors []SparseVector) SparseVector {
	if len(vectors) == 0 {
		return SparseVector{}
	}
	sums := make(map[int]float64)
	for _, v := range vectors {
		for i, idx := range v.Indices {
			sums[idx] += v.Values[i]
		}
	}
	n := float64(len(vectors))
	out := SparseVector{
		Indices: make([]int, 0, len(sums)),
		Values:  make([]float64, 0, len(sums)),
	}
	for idx := range sums {
		out.Indices = append(out.Indices, idx)
	}
	sort.Ints(out.Indices)
	for _, idx := range out.Indices {
		out.Values = append(out.Values, sums[idx]/n)
	}
	return out
}

// fromCounts builds a sparse vector from index counts.
func fromCounts(counts map[int]float64) SparseVector {
	v := SparseVector{
		Indices: make([]int, 0, len(counts)),
		Values:  make([]float64, 0, len(counts)),
	}
	for idx := range counts {
		v.Indices = append(v.Indices, idx)
	}
	sort.Ints(v.Indices)
	for _, idx := range v.Indices {
		v.Values = append(v.Values, counts[idx])
	}
	return v
}
