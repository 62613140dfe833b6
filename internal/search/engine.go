// Package search answers word and vector similarity queries over the
// embedding store and its nearest-neighbor index.
package search

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hyperjump/wordvec/internal/config"
	"github.com/hyperjump/wordvec/internal/models"
	"github.com/hyperjump/wordvec/internal/vector"
	"github.com/hyperjump/wordvec/pkg/utils"
)

var (
	// ErrNotFound is returned when a word is not in the vocabulary.
	ErrNotFound = errors.New("word not found")
	// ErrDimensionMismatch is returned when a query vector has the wrong length.
	ErrDimensionMismatch = errors.New("query dimension mismatch")
)

// Store is the read-only embedding storage the engine queries.
type Store interface {
	Vector(word string) ([]float32, bool)
	Word(id int) string
	Dimension() int
	Count() int
}

// Engine runs similarity queries. It holds only immutable references and
// is safe for concurrent use.
type Engine struct {
	store        Store
	index        vector.VectorIndex
	defaultCount int
	maxCount     int
}

// NewEngine creates a query engine with the given dependencies.
// A nil cfg uses the default count policy.
func NewEngine(store Store, index vector.VectorIndex, cfg *config.SearchConfig) *Engine {
	e := &Engine{
		store:        store,
		index:        index,
		defaultCount: config.DefaultCount,
		maxCount:     config.MaxCount,
	}
	if cfg != nil {
		if cfg.MaxCount > 0 {
			e.maxCount = cfg.MaxCount
		}
		if cfg.DefaultCount > 0 {
			e.defaultCount = min(cfg.DefaultCount, e.maxCount)
		}
	}
	return e
}

// Vector returns the stored unit vector of word. The slice must not be modified.
func (e *Engine) Vector(word string) ([]float32, error) {
	vec, ok := e.store.Vector(word)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, word)
	}
	return vec, nil
}

// QueryByWord returns the nearest neighbors of word's vector. The word
// itself is normally the first result at distance zero.
func (e *Engine) QueryByWord(word string, k int) ([]models.QueryResult, error) {
	vec, ok := e.store.Vector(word)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, word)
	}
	return e.nearest(vec, k)
}

// QueryByVector returns the nearest neighbors of a raw vector. vec is
// copied and scaled to unit length; a zero vector is queried as is.
func (e *Engine) QueryByVector(vec []float32, k int) ([]models.QueryResult, error) {
	if len(vec) != e.store.Dimension() {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), e.store.Dimension())
	}
	q := make([]float32, len(vec))
	copy(q, vec)
	utils.NormalizeL2(q)
	return e.nearest(q, k)
}

func (e *Engine) nearest(query []float32, k int) ([]models.QueryResult, error) {
	candidates, err := e.index.Nearest(query, e.ResolveCount(k))
	if err != nil {
		if errors.Is(err, vector.ErrDimensionMismatch) {
			return nil, fmt.Errorf("%w: %v", ErrDimensionMismatch, err)
		}
		return nil, fmt.Errorf("nearest neighbor search failed: %w", err)
	}
	results := make([]models.QueryResult, len(candidates))
	for i, c := range candidates {
		results[i] = models.QueryResult{Distance: c.Distance, Word: e.store.Word(c.ID)}
	}
	return results, nil
}

// ResolveCount applies the count policy to a requested k: the default when
// k is absent (k <= 0), the maximum when k exceeds it.
func (e *Engine) ResolveCount(k int) int {
	if k <= 0 {
		return e.defaultCount
	}
	return min(k, e.maxCount)
}

// ParseCount applies the count policy to a raw count parameter. Empty or
// non-numeric input (including negative numbers) yields the default, "0"
// yields 1, and values above the maximum are clamped.
func (e *Engine) ParseCount(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return e.defaultCount
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return e.maxCount
		}
		return e.defaultCount
	}
	if n == 0 {
		return 1
	}
	if n > uint64(e.maxCount) {
		return e.maxCount
	}
	return int(n)
}

// Dimension returns the embedding dimension.
func (e *Engine) Dimension() int { return e.store.Dimension() }

// Count returns the number of stored embeddings.
func (e *Engine) Count() int { return e.store.Count() }

// IndexStats describes the underlying index.
func (e *Engine) IndexStats() vector.Stats { return e.index.Stats() }
