package benchmark

import (
	"bytes"
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/hyperjump/wordvec/internal/ingest"
	"github.com/hyperjump/wordvec/internal/store"
	"github.com/hyperjump/wordvec/internal/vector"
)

const (
	benchWords = 20000
	benchDim   = 100
)

func benchRecords() []ingest.Record {
	rng := rand.New(rand.NewPCG(1, 2))
	records := make([]ingest.Record, benchWords)
	for i := range records {
		vec := make([]float32, benchDim)
		for j := range vec {
			vec[j] = float32(rng.NormFloat64())
		}
		records[i] = ingest.Record{Word: "w" + strconv.Itoa(i), Vector: vec}
	}
	return records
}

func benchStore(b *testing.B) *store.Store {
	b.Helper()
	st, err := store.Build(ingest.NewSliceSource(benchDim, benchRecords()))
	if err != nil {
		b.Fatal(err)
	}
	return st
}

func benchIndex(b *testing.B, st *store.Store, opts vector.IndexOptions) vector.VectorIndex {
	b.Helper()
	idx, err := vector.NewVectorIndex(opts, st)
	if err != nil {
		b.Fatal(err)
	}
	if err := vector.Build(idx, st); err != nil {
		b.Fatal(err)
	}
	return idx
}

func BenchmarkLSHIndexNearest(b *testing.B) {
	st := benchStore(b)
	idx := benchIndex(b, st, vector.IndexOptions{Type: "lsh", LSH: vector.LSHOptions{Tables: 16, Planes: 12, Seed: 1}})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Nearest(st.VectorByID(i%st.Count()), 128)
	}
}

func BenchmarkMemoryIndexNearest(b *testing.B) {
	st := benchStore(b)
	idx := benchIndex(b, st, vector.IndexOptions{Type: "memory"})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = idx.Nearest(st.VectorByID(i%st.Count()), 128)
	}
}

func BenchmarkLSHIndexBuild(b *testing.B) {
	st := benchStore(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		benchIndex(b, st, vector.IndexOptions{Type: "lsh", LSH: vector.LSHOptions{Tables: 16, Planes: 12, Seed: uint64(i)}})
	}
}

func BenchmarkBinaryIngest(b *testing.B) {
	var buf bytes.Buffer
	if err := ingest.WriteBinary(&buf, ingest.NewSliceSource(benchDim, benchRecords())); err != nil {
		b.Fatal(err)
	}
	data := buf.Bytes()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		src, err := ingest.NewBinaryReader(bytes.NewReader(data))
		if err != nil {
			b.Fatal(err)
		}
		if _, err := store.Build(src); err != nil {
			b.Fatal(err)
		}
	}
}
