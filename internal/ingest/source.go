// Package ingest reads word embedding dumps into (word, vector) records.
//
// Readers are single pass: Read returns records in file order and io.EOF
// once the stream is exhausted. Supported formats are the word2vec binary
// and text layouts and a SQLite table of little-endian float32 blobs.
package ingest

import "io"

// Record is one raw, unnormalized embedding.
type Record struct {
	Word   string
	Vector []float32
}

// Source is a lazy, non-restartable sequence of records.
type Source interface {
	// Dimension returns the vector length declared by the source header.
	Dimension() int
	// Len returns the declared vocabulary size. It is a hint, not a guarantee.
	Len() int
	// Read returns the next record, or io.EOF when no records remain.
	// The returned Vector may be reused by the following Read.
	Read() (*Record, error)
	Close() error
}

// Limit returns a Source that stops after n records even if the
// underlying source has more. n <= 0 means no limit.
func Limit(src Source, n int) Source {
	if n <= 0 {
		return src
	}
	return &limitedSource{Source: src, limit: n, remaining: n}
}

type limitedSource struct {
	Source
	limit     int
	remaining int
}

// Len stays fixed while records are read.
func (l *limitedSource) Len() int {
	return min(l.Source.Len(), l.limit)
}

func (l *limitedSource) Read() (*Record, error) {
	if l.remaining <= 0 {
		return nil, io.EOF
	}
	rec, err := l.Source.Read()
	if err != nil {
		return nil, err
	}
	l.remaining--
	return rec, nil
}

// SliceSource serves records from memory. Used by the convert command and tests.
type SliceSource struct {
	dim     int
	records []Record
	next    int
}

// NewSliceSource returns a Source over records with the given dimension.
// Records are not validated here; consumers check vector lengths.
func NewSliceSource(dim int, records []Record) *SliceSource {
	return &SliceSource{dim: dim, records: records}
}

// Dimension returns the declared dimension.
func (s *SliceSource) Dimension() int { return s.dim }

// Len returns the number of records.
func (s *SliceSource) Len() int { return len(s.records) }

// Read returns the next record.
func (s *SliceSource) Read() (*Record, error) {
	if s.next >= len(s.records) {
		return nil, io.EOF
	}
	rec := &s.records[s.next]
	s.next++
	return rec, nil
}

// Close is a no-op.
func (s *SliceSource) Close() error { return nil }

// ReadAll drains src into memory, copying each vector.
func ReadAll(src Source) ([]Record, error) {
	out := make([]Record, 0, src.Len())
	for {
		rec, err := src.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, Record{Word: rec.Word, Vector: append([]float32(nil), rec.Vector...)})
	}
}
