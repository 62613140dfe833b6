// Package store holds the immutable set of normalized word embeddings.
package store

import (
	"errors"
	"fmt"
	"io"

	"github.com/hyperjump/wordvec/internal/ingest"
	"github.com/hyperjump/wordvec/pkg/utils"
	"go.uber.org/zap"
)

// ZeroNormPolicy decides what happens to a record whose vector has norm zero,
// which cannot be scaled to unit length.
type ZeroNormPolicy string

const (
	// ZeroNormReject fails the build with a ParseError.
	ZeroNormReject ZeroNormPolicy = "reject"
	// ZeroNormKeep stores the zero vector unnormalized. Its cosine distance to
	// every other vector is 1.
	ZeroNormKeep ZeroNormPolicy = "keep"
)

// ParseZeroNormPolicy validates a configured policy name. Empty means reject.
func ParseZeroNormPolicy(s string) (ZeroNormPolicy, error) {
	switch p := ZeroNormPolicy(s); p {
	case "", ZeroNormReject:
		return ZeroNormReject, nil
	case ZeroNormKeep:
		return p, nil
	default:
		return "", fmt.Errorf("unknown zero norm policy: %s (supported: reject, keep)", s)
	}
}

const (
	progressEvery = 100000
	// maxPreallocRecords caps how much a declared vocabulary size may reserve up front.
	maxPreallocRecords = 1 << 20
)

// Store owns dense, id-addressed embeddings. Ids are assigned in ingestion
// order starting at 0. A Store is immutable once Build returns and is safe
// for concurrent readers.
type Store struct {
	dim        int
	data       []float32
	words      []string
	ids        map[string]int
	duplicates int
	zeros      int
}

type buildOptions struct {
	zeroNorm ZeroNormPolicy
	logger   *zap.Logger
}

// Option configures Build.
type Option func(*buildOptions)

// WithZeroNormPolicy sets how zero-norm vectors are handled (default reject).
func WithZeroNormPolicy(p ZeroNormPolicy) Option {
	return func(o *buildOptions) { o.zeroNorm = p }
}

// WithLogger sets a logger for build progress and summary.
func WithLogger(l *zap.Logger) Option {
	return func(o *buildOptions) { o.logger = l }
}

// Build drains src, normalizes every vector to unit L2 norm and returns the
// resulting store. When a word repeats, the later id wins the word lookup but
// both vectors stay addressable by id.
func Build(src ingest.Source, opts ...Option) (*Store, error) {
	o := buildOptions{zeroNorm: ZeroNormReject, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	dim := src.Dimension()
	if dim <= 0 {
		return nil, fmt.Errorf("invalid dimension %d", dim)
	}
	hint := min(src.Len(), maxPreallocRecords)
	s := &Store{
		dim:   dim,
		data:  make([]float32, 0, hint*dim),
		words: make([]string, 0, hint),
		ids:   make(map[string]int, hint),
	}

	for {
		rec, err := src.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		id := len(s.words)
		if len(rec.Vector) != dim {
			return nil, &ingest.ParseError{
				Record: id,
				Msg:    fmt.Sprintf("word %q has %d components, store dimension is %d", rec.Word, len(rec.Vector), dim),
			}
		}
		if rec.Word == "" {
			return nil, &ingest.ParseError{Record: id, Msg: "empty word"}
		}

		start := len(s.data)
		s.data = append(s.data, rec.Vector...)
		if norm := utils.NormalizeL2(s.data[start:]); norm == 0 {
			if o.zeroNorm != ZeroNormKeep {
				return nil, &ingest.ParseError{Record: id, Msg: fmt.Sprintf("zero-norm vector for word %q", rec.Word)}
			}
			s.zeros++
		}

		if _, ok := s.ids[rec.Word]; ok {
			s.duplicates++
		}
		s.ids[rec.Word] = id
		s.words = append(s.words, rec.Word)

		if (id+1)%progressEvery == 0 {
			o.logger.Debug("ingesting embeddings", zap.Int("records", id+1))
		}
	}

	if s.duplicates > 0 {
		o.logger.Warn("duplicate words in source; later occurrences win lookups",
			zap.Int("duplicates", s.duplicates))
	}
	if s.zeros > 0 {
		o.logger.Warn("zero-norm vectors stored unnormalized", zap.Int("count", s.zeros))
	}
	o.logger.Info("embedding store built",
		zap.Int("words", len(s.words)),
		zap.Int("dimension", dim))
	return s, nil
}

// Dimension returns the vector length D.
func (s *Store) Dimension() int { return s.dim }

// Count returns the number of stored embeddings N, including shadowed duplicates.
func (s *Store) Count() int { return len(s.words) }

// Duplicates returns how many records repeated an earlier word.
func (s *Store) Duplicates() int { return s.duplicates }

// ZeroVectors returns how many zero-norm vectors were kept.
func (s *Store) ZeroVectors() int { return s.zeros }

// ID returns the id that word resolves to.
func (s *Store) ID(word string) (int, bool) {
	id, ok := s.ids[word]
	return id, ok
}

// Vector returns the stored unit vector for word. The slice aliases the
// store and must not be mutated.
func (s *Store) Vector(word string) ([]float32, bool) {
	id, ok := s.ids[word]
	if !ok {
		return nil, false
	}
	return s.VectorByID(id), true
}

// VectorByID returns the stored vector for id. It panics if id is out of range.
func (s *Store) VectorByID(id int) []float32 {
	off := id * s.dim
	return s.data[off : off+s.dim : off+s.dim]
}

// Word returns the word stored under id. It panics if id is out of range.
func (s *Store) Word(id int) string { return s.words[id] }

// Words returns each distinct word once, ordered by the id it resolves to.
func (s *Store) Words() []string {
	out := make([]string, 0, len(s.ids))
	for id, w := range s.words {
		if s.ids[w] == id {
			out = append(out, w)
		}
	}
	return out
}
