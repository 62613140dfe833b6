// Package vector provides approximate nearest-neighbor indices over the
// embedding store and a factory for creating them.
package vector

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrDuplicateID is returned when an id is inserted twice.
	ErrDuplicateID = errors.New("id already inserted")
	// ErrDimensionMismatch is returned when a vector length differs from the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// VectorIndex is a similarity search structure over ids. Indices store ids
// only and resolve vectors through the Vectors they were created with.
// After Build returns, Nearest is safe for concurrent use.
type VectorIndex interface {
	// Insert adds id, whose vector is vec. vec must be unit length.
	Insert(id int, vec []float32) error
	// Nearest returns at most k candidates ordered by ascending cosine
	// distance, ties broken by ascending id.
	Nearest(query []float32, k int) ([]Candidate, error)
	// Size returns the number of inserted ids.
	Size() int
	// Type returns the index type identifier.
	Type() string
	// Stats describes the index structure.
	Stats() Stats
}

// Stats describes an index for status reporting. Hashing fields are zero
// for indices that do not hash.
type Stats struct {
	Type          string `json:"type"`
	Size          int    `json:"size"`
	Tables        int    `json:"tables,omitempty"`
	Planes        int    `json:"planes,omitempty"`
	Buckets       int    `json:"buckets,omitempty"`
	LargestBucket int    `json:"largest_bucket,omitempty"`
	Seed          uint64 `json:"seed,omitempty"`
}

// Vectors is the read-only vector storage an index is built alongside.
type Vectors interface {
	Dimension() int
	Count() int
	VectorByID(id int) []float32
}

// Candidate is a single nearest-neighbor hit.
type Candidate struct {
	ID       int
	Distance float32
}

// BuildError reports a contract violation while inserting into an index.
type BuildError struct {
	ID  int
	Err error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("index build: id %d: %v", e.ID, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// optimizer is implemented by indices that compact their buckets once all ids are in.
type optimizer interface {
	optimize()
}

// Build inserts every vector of vectors into idx in id order.
func Build(idx VectorIndex, vectors Vectors) error {
	n := vectors.Count()
	for id := 0; id < n; id++ {
		if err := idx.Insert(id, vectors.VectorByID(id)); err != nil {
			return err
		}
	}
	if o, ok := idx.(optimizer); ok {
		o.optimize()
	}
	return nil
}

// rank scores ids against query, sorts them and keeps the first k.
func rank(ids []int, query []float32, vectors Vectors, k int) []Candidate {
	out := make([]Candidate, len(ids))
	for i, id := range ids {
		out[i] = Candidate{ID: id, Distance: CosineDistance(query, vectors.VectorByID(id))}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].ID < out[j].ID
	})
	if k < len(out) {
		out = out[:k]
	}
	return out
}
