package model

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/wordvec/internal/config"
	"github.com/hyperjump/wordvec/internal/ingest"
	"go.uber.org/zap"
)

func writeFruitFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	src := ingest.NewSliceSource(2, []ingest.Record{
		{Word: "apple", Vector: []float32{1, 0}},
		{Word: "orange", Vector: []float32{0.9, 0.1}},
		{Word: "banana", Vector: []float32{-1, 0}},
	})
	if err := ingest.WriteBinary(f, src); err != nil {
		t.Fatal(err)
	}
	return path
}

func testConfig(path string) *config.Config {
	seed := uint64(42)
	cfg := &config.Config{
		Vectors: config.VectorsConfig{Path: path},
		Index:   config.IndexConfig{Tables: 8, Planes: 4, Seed: &seed},
	}
	config.ApplyDefaults(cfg)
	return cfg
}

func TestLoad(t *testing.T) {
	cfg := testConfig(writeFruitFile(t, "fruit.bin"))
	m, err := Load(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer m.Close()

	info := m.Info()
	if info.Words != 3 || info.Dimension != 2 {
		t.Errorf("unexpected info: %+v", info)
	}
	if info.Format != "binary" || info.Seed != 42 || info.BuildID == "" {
		t.Errorf("unexpected info: %+v", info)
	}
	if m.Vocab != nil {
		t.Error("vocabulary index should be nil when suggestions are disabled")
	}
	results, err := m.Engine.QueryByWord("apple", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].Word != "apple" || results[1].Word != "orange" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestLoad_LimitAndSuggestions(t *testing.T) {
	cfg := testConfig(writeFruitFile(t, "fruit.bin"))
	cfg.Vectors.Limit = 2
	cfg.Suggest.Enabled = true
	m, err := Load(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer m.Close()

	if m.Store.Count() != 2 {
		t.Errorf("limit ignored: %d words", m.Store.Count())
	}
	if _, ok := m.Store.Vector("banana"); ok {
		t.Error("banana is past the limit")
	}
	got, err := m.Vocab.Suggest(context.Background(), "aple", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "apple" {
		t.Errorf("unexpected suggestions: %v", got)
	}
}

func TestLoad_RandomSeedIsRecorded(t *testing.T) {
	cfg := testConfig(writeFruitFile(t, "fruit.bin"))
	cfg.Index.Seed = nil
	m, err := Load(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	if m.Index.Stats().Seed != m.Info().Seed {
		t.Errorf("index seed %d differs from recorded seed %d", m.Index.Stats().Seed, m.Info().Seed)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.bin")
	if err := os.WriteFile(bad, []byte("three 2\n"), 0600); err != nil {
		t.Fatal(err)
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(context.Background(), testConfig(filepath.Join(dir, "missing.bin")), zap.NewNop())
		var ioErr *ingest.IOError
		if !errors.As(err, &ioErr) {
			t.Errorf("expected IOError, got %v", err)
		}
	})
	t.Run("malformed header", func(t *testing.T) {
		_, err := Load(context.Background(), testConfig(bad), zap.NewNop())
		var parseErr *ingest.ParseError
		if !errors.As(err, &parseErr) {
			t.Errorf("expected ParseError, got %v", err)
		}
	})
	t.Run("unknown index type", func(t *testing.T) {
		cfg := testConfig(writeFruitFile(t, "fruit.bin"))
		cfg.Index.Type = "hnsw"
		if _, err := Load(context.Background(), cfg, zap.NewNop()); err == nil {
			t.Error("expected error for unknown index type")
		}
	})
	t.Run("unknown zero norm policy", func(t *testing.T) {
		cfg := testConfig(writeFruitFile(t, "fruit.bin"))
		cfg.Vectors.ZeroNorm = "drop"
		if _, err := Load(context.Background(), cfg, zap.NewNop()); err == nil {
			t.Error("expected error for unknown policy")
		}
	})
}

func TestModel_Stale(t *testing.T) {
	cfg := testConfig(writeFruitFile(t, "fruit.bin"))
	m, err := Load(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	if m.Stale() {
		t.Error("fresh model should not be stale")
	}
	m.MarkStale()
	if !m.Stale() {
		t.Error("model should be stale after MarkStale")
	}
}
