package driven

// VectorIndex is an exhaustive nearest-neighbour index over a dense,
// ordered list of vectors. Row i holds the i-th added vector; there is no
// removal, so rows can only be replaced by building a new index.
// Implementations are not safe for concurrent mutation.
type VectorIndex interface {
	// Dimensions returns the fixed vector size.
	Dimensions() int

	// Len returns the number of stored rows.
	Len() int

	// Add appends vectors in order. All vectors must have Dimensions entries.
	Add(vectors [][]float32) error

	// Search returns up to k rows nearest to query, ascending by distance.
	Search(query []float32, k int) ([]VectorHit, error)

	// MarshalBinary encodes the index into its persisted form.
	MarshalBinary() ([]byte, error)
}

// VectorHit is one search result.
type VectorHit struct {
	// Row is the position of the matched vector.
	Row int

	// Distance is the squared L2 distance to the query.
	Distance float64
}

// VectorIndexFactory creates empty indexes and decodes persisted ones.
type VectorIndexFactory interface {
	// New returns an empty index of the given dimension.
	New(dim int) (VectorIndex, error)

	// Load decodes a persisted index.
	// Returns an error wrapping domain.ErrIndexCorrupt when the data is invalid.
	Load(data []byte) (VectorIndex, error)
}
