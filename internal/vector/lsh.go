package vector

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/RoaringBitmap/roaring"
	"github.com/bits-and-blooms/bitset"
)

// MaxPlanes is the largest number of hyperplanes per table; signatures are uint64.
const MaxPlanes = 64

// LSHOptions configures a random-hyperplane index.
type LSHOptions struct {
	Tables int    // L, independent hash tables
	Planes int    // P, hyperplanes (signature bits) per table
	Seed   uint64 // seeds hyperplane sampling; same seed, same index
}

// lshTable partitions the space by the sign pattern of P hyperplanes.
type lshTable struct {
	planes  [][]float32
	buckets map[uint64]*roaring.Bitmap
}

// LSHIndex is a multi-table random-hyperplane locality-sensitive hash.
// Vectors whose signatures match in at least one table become candidates
// and are reranked by exact cosine distance.
type LSHIndex struct {
	vectors  Vectors
	dim      int
	opts     LSHOptions
	tables   []lshTable
	inserted *bitset.BitSet
	size     int
}

// NewLSHIndex draws the hyperplanes for every table. Nothing is inserted yet.
func NewLSHIndex(vectors Vectors, opts LSHOptions) (*LSHIndex, error) {
	dim := vectors.Dimension()
	if dim <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if opts.Tables < 1 {
		return nil, fmt.Errorf("tables must be at least 1, got %d", opts.Tables)
	}
	if opts.Planes < 1 || opts.Planes > MaxPlanes {
		return nil, fmt.Errorf("planes must be in [1, %d], got %d", MaxPlanes, opts.Planes)
	}
	if uint64(vectors.Count()) > math.MaxUint32 {
		return nil, fmt.Errorf("too many vectors for 32-bit bucket ids: %d", vectors.Count())
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	tables := make([]lshTable, opts.Tables)
	for t := range tables {
		planes := make([][]float32, opts.Planes)
		for p := range planes {
			planes[p] = randomUnitVector(rng, dim)
		}
		tables[t] = lshTable{planes: planes, buckets: make(map[uint64]*roaring.Bitmap)}
	}
	return &LSHIndex{
		vectors:  vectors,
		dim:      dim,
		opts:     opts,
		tables:   tables,
		inserted: bitset.New(uint(vectors.Count())),
	}, nil
}

// randomUnitVector samples a direction uniformly on the unit sphere.
func randomUnitVector(rng *rand.Rand, dim int) []float32 {
	v := make([]float32, dim)
	for {
		var norm float64
		for i := range v {
			x := rng.NormFloat64()
			v[i] = float32(x)
			norm += x * x
		}
		if norm > 0 {
			scale := 1 / math.Sqrt(norm)
			for i := range v {
				v[i] = float32(float64(v[i]) * scale)
			}
			return v
		}
	}
}

// signature returns the P-bit sign pattern of vec against the table's planes.
// Bit j is set when vec·plane_j >= 0.
func (t *lshTable) signature(vec []float32) uint64 {
	var sig uint64
	for j, plane := range t.planes {
		var dot float32
		for i, x := range plane {
			dot += x * vec[i]
		}
		if dot >= 0 {
			sig |= 1 << uint(j)
		}
	}
	return sig
}

// Type returns the index type identifier.
func (l *LSHIndex) Type() string {
	return string(IndexTypeLSH)
}

// Insert hashes vec into one bucket per table under id.
func (l *LSHIndex) Insert(id int, vec []float32) error {
	if len(vec) != l.dim {
		return &BuildError{ID: id, Err: fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vec), l.dim)}
	}
	if id < 0 || uint64(id) > math.MaxUint32 {
		return &BuildError{ID: id, Err: fmt.Errorf("id out of range")}
	}
	if l.inserted.Test(uint(id)) {
		return &BuildError{ID: id, Err: ErrDuplicateID}
	}
	l.inserted.Set(uint(id))
	for t := range l.tables {
		table := &l.tables[t]
		sig := table.signature(vec)
		bucket, ok := table.buckets[sig]
		if !ok {
			bucket = roaring.New()
			table.buckets[sig] = bucket
		}
		bucket.Add(uint32(id))
	}
	l.size++
	return nil
}

func (l *LSHIndex) optimize() {
	for t := range l.tables {
		for _, bucket := range l.tables[t].buckets {
			bucket.RunOptimize()
		}
	}
}

// Nearest unions the exact-signature bucket of every table, then ranks the
// candidates by exact cosine distance. Fewer than k results are returned when
// the buckets hold fewer candidates.
func (l *LSHIndex) Nearest(query []float32, k int) ([]Candidate, error) {
	if len(query) != l.dim {
		return nil, fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(query), l.dim)
	}
	if k <= 0 || l.size == 0 {
		return nil, nil
	}
	matched := make([]*roaring.Bitmap, 0, len(l.tables))
	for t := range l.tables {
		if bucket, ok := l.tables[t].buckets[l.tables[t].signature(query)]; ok {
			matched = append(matched, bucket)
		}
	}
	if len(matched) == 0 {
		return nil, nil
	}
	union := roaring.FastOr(matched...)
	ids := make([]int, 0, union.GetCardinality())
	it := union.Iterator()
	for it.HasNext() {
		ids = append(ids, int(it.Next()))
	}
	return rank(ids, query, l.vectors, k), nil
}

// Size returns the number of inserted ids.
func (l *LSHIndex) Size() int {
	return l.size
}

// Stats reports table geometry and bucket occupancy.
func (l *LSHIndex) Stats() Stats {
	s := Stats{
		Type:   l.Type(),
		Size:   l.size,
		Tables: len(l.tables),
		Planes: l.opts.Planes,
		Seed:   l.opts.Seed,
	}
	for t := range l.tables {
		s.Buckets += len(l.tables[t].buckets)
		for _, bucket := range l.tables[t].buckets {
			s.LargestBucket = max(s.LargestBucket, int(bucket.GetCardinality()))
		}
	}
	return s
}

// bucketIDs returns the sorted ids sharing table t's bucket with vec. Used by tests.
func (l *LSHIndex) bucketIDs(t int, vec []float32) []int {
	bucket, ok := l.tables[t].buckets[l.tables[t].signature(vec)]
	if !ok {
		return nil
	}
	out := make([]int, 0, bucket.GetCardinality())
	for _, id := range bucket.ToArray() {
		out = append(out, int(id))
	}
	slices.Sort(out)
	return out
}
