package vector

import "fmt"

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeLSH uses multi-table random-hyperplane hashing. Sub-linear
	// queries with tunable recall; the default.
	IndexTypeLSH IndexType = "lsh"
	// IndexTypeMemory uses in-memory brute-force search. Exact, but every
	// query scans all vectors. Good for small vocabularies (<10k words).
	IndexTypeMemory IndexType = "memory"
)

// IndexOptions selects and parameterizes an index.
type IndexOptions struct {
	Type string
	LSH  LSHOptions
}

// NewVectorIndex creates an empty index of the requested type over vectors.
// Supported types: "lsh" (default), "memory".
func NewVectorIndex(opts IndexOptions, vectors Vectors) (VectorIndex, error) {
	switch IndexType(opts.Type) {
	case IndexTypeLSH, "":
		return NewLSHIndex(vectors, opts.LSH)
	case IndexTypeMemory:
		return NewMemoryIndex(vectors)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: lsh, memory)", opts.Type)
	}
}
