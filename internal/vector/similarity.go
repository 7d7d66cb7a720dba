package vector

import (
	"sort"

	"github.com/hyperjump/kaimono/internal/featurizer"
)

// cosineDistance is 1 minus dot/(na*nb). A zero vector has distance 1 to everything.
func cosineDistance(dot, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(na*nb)
}

// rows holds built vectors with precomputed norms.
type rows struct {
	vectors    []featurizer.SparseVector
	norms      []float64
	dimensions int
}

func newRows(vectors []featurizer.SparseVector, dimensions int) (rows, error) {
	r := rows{
		vectors:    make([]featurizer.SparseVector, len(vectors)),
		norms:      make([]float64, len(vectors)),
		dimensions: dimensions,
	}
	for i, v := range vectors {
		if err := checkDimensions(v, dimensions); err != nil {
			return rows{}, err
		}
		r.vectors[i] = v
		r.norms[i] = v.Norm()
	}
	return r, nil
}

func checkDimensions(v featurizer.SparseVector, dimensions int) error {
	if n := len(v.Indices); n > 0 && v.Indices[n-1] >= dimensions {
		return ErrDimensionMismatch
	}
	return nil
}

// query is a search vector expanded for fast dot products against rows.
type query struct {
	dense []float64
	norm  float64
}

func newQuery(v featurizer.SparseVector, dimensions int) (query, error) {
	if err := checkDimensions(v, dimensions); err != nil {
		return query{}, err
	}
	return query{dense: v.Dense(dimensions), norm: v.Norm()}, nil
}

// distances fills out[i-lo] with the cosine distance of row i for i in [lo, hi).
func (r rows) distances(q query, lo, hi int, out []Neighbor) {
	for i := lo; i < hi; i++ {
		d := cosineDistance(r.vectors[i].Dot(q.dense), q.norm, r.norms[i])
		out[i-lo] = Neighbor{Index: i, Distance: d}
	}
}

func sortNeighbors(ns []Neighbor) {
	sort.Slice(ns, func(i, j int) bool {
		if ns[i].Distance != ns[j].Distance {
			return ns[i].Distance < ns[j].Distance
		}
		return ns[i].Index < ns[j].Index
	})
}
