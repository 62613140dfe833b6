package vector

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// MemoryIndex is an exact brute-force index: Nearest scores every inserted id.
// Suitable for tests, recall baselines and small vocabularies.
type MemoryIndex struct {
	vectors  Vectors
	ids      []int
	inserted *bitset.BitSet
}

// NewMemoryIndex creates a brute-force index over vectors.
func NewMemoryIndex(vectors Vectors) (*MemoryIndex, error) {
	if vectors.Dimension() <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{
		vectors:  vectors,
		ids:      make([]int, 0, vectors.Count()),
		inserted: bitset.New(uint(vectors.Count())),
	}, nil
}

// Type returns the index type identifier.
func (m *MemoryIndex) Type() string {
	return string(IndexTypeMemory)
}

// Insert records id as searchable.
func (m *MemoryIndex) Insert(id int, vec []float32) error {
	if len(vec) != m.vectors.Dimension() {
		return &BuildError{ID: id, Err: fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vec), m.vectors.Dimension())}
	}
	if id < 0 {
		return &BuildError{ID: id, Err: fmt.Errorf("negative id")}
	}
	if m.inserted.Test(uint(id)) {
		return &BuildError{ID: id, Err: ErrDuplicateID}
	}
	m.inserted.Set(uint(id))
	m.ids = append(m.ids, id)
	return nil
}

// Nearest scores every inserted id against query.
func (m *MemoryIndex) Nearest(query []float32, k int) ([]Candidate, error) {
	if len(query) != m.vectors.Dimension() {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(query), m.vectors.Dimension())
	}
	if k <= 0 || len(m.ids) == 0 {
		return nil, nil
	}
	return rank(m.ids, query, m.vectors, k), nil
}

// Size returns the number of inserted ids.
func (m *MemoryIndex) Size() int {
	return len(m.ids)
}

// Stats reports the index type and size.
func (m *MemoryIndex) Stats() Stats {
	return Stats{Type: m.Type(), Size: len(m.ids)}
}
