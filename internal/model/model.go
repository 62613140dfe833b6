// Package model loads the embedding store, its nearest-neighbor index and
// the vocabulary index once at startup and holds them for the life of the
// process.
package model

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/wordvec/internal/config"
	"github.com/hyperjump/wordvec/internal/ingest"
	"github.com/hyperjump/wordvec/internal/search"
	"github.com/hyperjump/wordvec/internal/store"
	"github.com/hyperjump/wordvec/internal/vector"
	"github.com/hyperjump/wordvec/internal/vocab"
	"go.uber.org/zap"
)

// Info describes how a model was built.
type Info struct {
	BuildID     string
	Source      string
	Format      string
	Compressed  bool
	SourceBytes int64
	Seed        uint64
	Words       int
	Dimension   int
	Duplicates  int
	ZeroVectors int
	LoadedAt    time.Time
	IngestTime  time.Duration
	IndexTime   time.Duration
	LoadTime    time.Duration
}

// Model is the immutable, process-wide set of loaded components. Vocab is
// nil when suggestions are disabled.
type Model struct {
	Store  *store.Store
	Index  vector.VectorIndex
	Engine *search.Engine
	Vocab  *vocab.Index

	info  Info
	stale atomic.Bool
}

// Load ingests the configured embedding file and builds the store, the
// index and, when enabled, the vocabulary index. Any error aborts the load.
func Load(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Model, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	start := time.Now()

	format, err := ingest.ParseFormat(cfg.Vectors.Format)
	if err != nil {
		return nil, err
	}
	compressed := cfg.Vectors.Compressed
	if format == ingest.FormatAuto {
		var gz bool
		format, gz = ingest.DetectFormat(cfg.Vectors.Path)
		compressed = compressed || gz
	}
	policy, err := store.ParseZeroNormPolicy(cfg.Vectors.ZeroNorm)
	if err != nil {
		return nil, err
	}

	logger.Info("loading embeddings",
		zap.String("path", cfg.Vectors.Path),
		zap.String("format", string(format)),
		zap.Bool("compressed", compressed),
		zap.Int("limit", cfg.Vectors.Limit),
	)
	src, err := ingest.Open(ctx, cfg.Vectors.Path, ingest.Options{Format: format, Compressed: compressed})
	if err != nil {
		return nil, fmt.Errorf("failed to open embeddings: %w", err)
	}
	defer src.Close()

	st, err := store.Build(ingest.Limit(src, cfg.Vectors.Limit),
		store.WithZeroNormPolicy(policy),
		store.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build store: %w", err)
	}
	ingestTime := time.Since(start)

	seed := drawSeed(cfg.Index.Seed)
	if cfg.Index.Seed == nil {
		logger.Info("index seed drawn at random; set index.seed to reproduce", zap.Uint64("seed", seed))
	}
	indexStart := time.Now()
	idx, err := vector.NewVectorIndex(vector.IndexOptions{
		Type: cfg.Index.Type,
		LSH: vector.LSHOptions{
			Tables: cfg.Index.Tables,
			Planes: cfg.Index.Planes,
			Seed:   seed,
		},
	}, st)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	if err := vector.Build(idx, st); err != nil {
		return nil, fmt.Errorf("failed to build index: %w", err)
	}
	indexTime := time.Since(indexStart)
	stats := idx.Stats()
	logger.Info("index built",
		zap.String("type", stats.Type),
		zap.Int("size", stats.Size),
		zap.Int("buckets", stats.Buckets),
		zap.Int("largest_bucket", stats.LargestBucket),
		zap.Duration("elapsed", indexTime),
	)

	var vocabIndex *vocab.Index
	if cfg.Suggest.Enabled {
		vocabIndex, err = vocab.NewIndex(st.Words(),
			vocab.WithMaxDistance(cfg.Suggest.MaxDistance),
			vocab.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to build vocabulary index: %w", err)
		}
	}

	var sourceBytes int64
	if fi, err := os.Stat(cfg.Vectors.Path); err == nil {
		sourceBytes = fi.Size()
	}

	m := &Model{
		Store:  st,
		Index:  idx,
		Engine: search.NewEngine(st, idx, &cfg.Search),
		Vocab:  vocabIndex,
		info: Info{
			BuildID:     uuid.NewString(),
			Source:      cfg.Vectors.Path,
			Format:      string(format),
			Compressed:  compressed,
			SourceBytes: sourceBytes,
			Seed:        seed,
			Words:       st.Count(),
			Dimension:   st.Dimension(),
			Duplicates:  st.Duplicates(),
			ZeroVectors: st.ZeroVectors(),
			LoadedAt:    time.Now(),
			IngestTime:  ingestTime,
			IndexTime:   indexTime,
			LoadTime:    time.Since(start),
		},
	}
	logger.Info("model loaded",
		zap.String("build_id", m.info.BuildID),
		zap.Int("words", m.info.Words),
		zap.Int("dimension", m.info.Dimension),
		zap.Duration("elapsed", m.info.LoadTime),
	)
	return m, nil
}

func drawSeed(configured *uint64) uint64 {
	if configured != nil {
		return *configured
	}
	return rand.Uint64()
}

// Info returns build metadata.
func (m *Model) Info() Info { return m.info }

// MarkStale records that the embedding file changed since load.
func (m *Model) MarkStale() { m.stale.Store(true) }

// Stale reports whether the embedding file changed since load.
func (m *Model) Stale() bool { return m.stale.Load() }

// Close releases the vocabulary index.
func (m *Model) Close() error {
	if m.Vocab != nil {
		return m.Vocab.Close()
	}
	return nil
}
