package vector

import (
	"math/rand/v2"

	"github.com/hyperjump/wordvec/pkg/utils"
)

// testVectors is a minimal Vectors implementation holding normalized copies.
type testVectors struct {
	dim  int
	data [][]float32
}

func newTestVectors(dim int, vecs [][]float32) *testVectors {
	tv := &testVectors{dim: dim, data: make([][]float32, len(vecs))}
	for i, v := range vecs {
		c := append([]float32(nil), v...)
		utils.NormalizeL2(c)
		tv.data[i] = c
	}
	return tv
}

func randomTestVectors(n, dim int, seed uint64) *testVectors {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	vecs := make([][]float32, n)
	for i := range vecs {
		v := make([]float32, dim)
		for j := range v {
			v[j] = float32(rng.NormFloat64())
		}
		vecs[i] = v
	}
	return newTestVectors(dim, vecs)
}

func (tv *testVectors) Dimension() int              { return tv.dim }
func (tv *testVectors) Count() int                  { return len(tv.data) }
func (tv *testVectors) VectorByID(id int) []float32 { return tv.data[id] }

// bruteForce returns the exact top-k over all vectors using the same ordering rules.
func bruteForce(tv *testVectors, query []float32, k int) []Candidate {
	ids := make([]int, tv.Count())
	for i := range ids {
		ids[i] = i
	}
	return rank(ids, query, tv, k)
}
