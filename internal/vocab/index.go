// Package vocab suggests vocabulary words that are close in spelling to an
// unknown query word.
package vocab

import (
	"context"
	"fmt"
	"sort"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"
)

const (
	wordField = "word"
	batchSize = 10000
	// bleve rejects fuzzy queries above this edit distance
	maxFuzziness = 2
	// hits fetched per suggestion before reranking
	overfetch = 4
	minFetch  = 50
)

// Index is an in-memory Bleve index over the vocabulary. Safe for concurrent use.
type Index struct {
	index       bleve.Index
	maxDistance int
	size        int
}

type options struct {
	maxDistance int
	logger      *zap.Logger
}

// Option configures an Index.
type Option func(*options)

// WithMaxDistance sets the fuzzy-match edit distance, capped at 2.
func WithMaxDistance(d int) Option {
	return func(o *options) {
		if d > 0 {
			o.maxDistance = min(d, maxFuzziness)
		}
	}
}

// WithLogger sets the logger used while building.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// NewIndex builds a memory-only index of words. Repeated words are indexed once.
func NewIndex(words []string, opts ...Option) (*Index, error) {
	o := options{maxDistance: maxFuzziness, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	docMapping.Dynamic = false
	wordMapping := bleve.NewKeywordFieldMapping()
	wordMapping.Store = false
	wordMapping.IncludeInAll = false
	wordMapping.IncludeTermVectors = false
	docMapping.AddFieldMappingsAt(wordField, wordMapping)
	im.DefaultMapping = docMapping
	im.DefaultAnalyzer = keyword.Name

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create vocabulary index: %w", err)
	}

	seen := make(map[string]struct{}, len(words))
	batch := index.NewBatch()
	for _, w := range words {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		if err := batch.Index(w, map[string]interface{}{wordField: w}); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("failed to index word %q: %w", w, err)
		}
		if batch.Size() >= batchSize {
			if err := index.Batch(batch); err != nil {
				_ = index.Close()
				return nil, fmt.Errorf("failed to index vocabulary batch: %w", err)
			}
			batch.Reset()
			o.logger.Debug("vocabulary indexing", zap.Int("words", len(seen)))
		}
	}
	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("failed to index vocabulary batch: %w", err)
		}
	}

	return &Index{index: index, maxDistance: o.maxDistance, size: len(seen)}, nil
}

// Size returns the number of distinct indexed words.
func (x *Index) Size() int { return x.size }

// Suggest returns up to limit vocabulary words within the fuzzy edit
// distance of word or starting with it, closest first, ties by word.
// A word that is itself in the vocabulary is returned first.
func (x *Index) Suggest(ctx context.Context, word string, limit int) ([]string, error) {
	if word == "" || limit <= 0 {
		return []string{}, nil
	}

	fuzzy := bleve.NewFuzzyQuery(word)
	fuzzy.SetField(wordField)
	fuzzy.SetFuzziness(x.maxDistance)
	prefix := bleve.NewPrefixQuery(word)
	prefix.SetField(wordField)
	q := bleve.NewDisjunctionQuery([]blevequery.Query{fuzzy, prefix}...)

	req := bleve.NewSearchRequestOptions(q, max(limit*overfetch, minFetch), 0, false)
	res, err := x.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vocabulary search failed: %w", err)
	}

	type scored struct {
		word     string
		distance int
	}
	hits := make([]scored, 0, len(res.Hits))
	for _, hit := range res.Hits {
		hits = append(hits, scored{word: hit.ID, distance: LevenshteinDistance(word, hit.ID)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].distance != hits[j].distance {
			return hits[i].distance < hits[j].distance
		}
		return hits[i].word < hits[j].word
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.word
	}
	return out, nil
}

// Close releases the index.
func (x *Index) Close() error {
	return x.index.Close()
}
