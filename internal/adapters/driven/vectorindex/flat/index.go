package flat

import (
	"fmt"
	"math"
	"sort"

	"github.com/viant/vec/search"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Index is an in-memory exhaustive index. It is not safe for concurrent
// mutation; concurrent searches without writers are safe.
type Index struct {
	dim  int
	rows [][]float32
}

// New creates an empty index for vectors of size dim.
func New(dim int) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("flat: invalid dimension %d", dim)
	}
	return &Index{dim: dim}, nil
}

// Dimensions returns the vector size.
func (i *Index) Dimensions() int {
	return i.dim
}

// Len returns the number of rows.
func (i *Index) Len() int {
	return len(i.rows)
}

// Add appends vectors in order. Either all vectors are added or none.
func (i *Index) Add(vectors [][]float32) error {
	for j, v := range vectors {
		if len(v) != i.dim {
			return fmt.Errorf("flat: vector %d has dimension %d, want %d", j, len(v), i.dim)
		}
	}
	for _, v := range vectors {
		row := make([]float32, i.dim)
		copy(row, v)
		i.rows = append(i.rows, row)
	}
	return nil
}

// Search returns up to k rows nearest to query by squared L2 distance,
// ascending. Ties keep row order.
func (i *Index) Search(query []float32, k int) ([]driven.VectorHit, error) {
	if len(query) != i.dim {
		return nil, fmt.Errorf("flat: query dimension %d, want %d: %w", len(query), i.dim, domain.ErrInvalidInput)
	}
	if k <= 0 || len(i.rows) == 0 {
		return nil, nil
	}

	hits := make([]driven.VectorHit, len(i.rows))
	for row, v := range i.rows {
		d := float64(search.Float32s(v).EuclideanDistance(query))
		hits[row] = driven.VectorHit{Row: row, Distance: d * d}
	}
	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Distance < hits[b].Distance
	})

	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Vector returns a copy of the vector at row.
func (i *Index) Vector(row int) ([]float32, bool) {
	if row < 0 || row >= len(i.rows) {
		return nil, false
	}
	out := make([]float32, i.dim)
	copy(out, i.rows[row])
	return out, true
}

func finite(v []float32) bool {
	for _, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return false
		}
	}
	return true
}
