package domain

// Grounding classifies a retrieval outcome.
type Grounding int

const (
	// Ungrounded means no stored chunk is relevant to the question.
	Ungrounded Grounding = iota

	// Grounded means at least the nearest chunk passed the relevance threshold.
	Grounded
)

// String returns the string representation.
func (g Grounding) String() string {
	if g == Grounded {
		return "grounded"
	}
	return "ungrounded"
}

// Passage is a chunk selected by retrieval together with its distance.
type Passage struct {
	// Chunk is the retrieved chunk.
	Chunk Chunk

	// Distance is the squared L2 distance to the query embedding.
	Distance float64
}

// Retrieval is the result of the retrieval policy for one question.
type Retrieval struct {
	// Grounding is the classification.
	Grounding Grounding

	// Passages are the surviving hits, nearest first.
	// Empty when Ungrounded.
	Passages []Passage

	// Context is the passage text joined by blank lines, nearest first.
	Context string

	// Reason explains an ungrounded outcome (e.g. "no index").
	Reason string
}

// IsGrounded reports whether the retrieval produced usable context.
func (r Retrieval) IsGrounded() bool {
	return r.Grounding == Grounded
}

// Prepared is a question ready for generation.
type Prepared struct {
	// Retrieval is the retrieval outcome.
	Retrieval Retrieval

	// Prompt is the assembled prompt text.
	Prompt string
}
