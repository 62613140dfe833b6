package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hyperjump/wordvec/internal/config"
	"github.com/hyperjump/wordvec/internal/ingest"
	"github.com/hyperjump/wordvec/internal/model"
	"github.com/hyperjump/wordvec/internal/models"
	"go.uber.org/zap"
)

func newTestModel(t *testing.T, suggest bool) *model.Model {
	t.Helper()
	return newModelFromRecords(t, suggest, []ingest.Record{
		{Word: "apple", Vector: []float32{1, 0}},
		{Word: "orange", Vector: []float32{0.9, 0.1}},
		{Word: "banana", Vector: []float32{-1, 0}},
		{Word: "AC/DC", Vector: []float32{0, 1}},
	})
}

func newModelFromRecords(t *testing.T, suggest bool, records []ingest.Record) *model.Model {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fruit.bin")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	src := ingest.NewSliceSource(len(records[0].Vector), records)
	if err := ingest.WriteBinary(f, src); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	seed := uint64(7)
	cfg := &config.Config{
		Vectors: config.VectorsConfig{Path: path},
		Index:   config.IndexConfig{Type: "memory", Seed: &seed},
		Suggest: config.SuggestConfig{Enabled: suggest},
	}
	config.ApplyDefaults(cfg)
	m, err := model.Load(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func newTestServer(t *testing.T, suggest bool) *Server {
	t.Helper()
	return NewServer(newTestModel(t, suggest),
		&config.ServerConfig{Port: 3000, CacheSize: 16},
		&config.SuggestConfig{Enabled: suggest, DefaultCount: 5},
		zap.NewNop())
}

func do(t *testing.T, h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, target, bytes.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestHandleGetVector(t *testing.T) {
	h := newTestServer(t, false).Handler()

	w := do(t, h, http.MethodGet, "/get_vector/banana", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	resp := decode[models.VectorResponse](t, w)
	if resp.Word != "banana" || len(resp.Vector) != 2 || resp.Vector[0] != -1 {
		t.Errorf("unexpected body: %+v", resp)
	}

	w = do(t, h, http.MethodGet, "/get_vector/cherry", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown word: got %d, want 404", w.Code)
	}
}

func TestHandleGetVector_EscapedWord(t *testing.T) {
	h := newTestServer(t, false).Handler()
	w := do(t, h, http.MethodGet, "/get_vector/AC%2FDC", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d: %s", w.Code, w.Body.String())
	}
	if resp := decode[models.VectorResponse](t, w); resp.Word != "AC/DC" {
		t.Errorf("word = %q", resp.Word)
	}
}

func TestHandleGetVector_PercentInWord(t *testing.T) {
	m := newModelFromRecords(t, false, []ingest.Record{
		{Word: "a%41", Vector: []float32{1, 0}},
		{Word: "aA", Vector: []float32{0, 1}},
	})
	h := NewServer(m, &config.ServerConfig{Port: 3000}, nil, zap.NewNop()).Handler()

	tests := []struct {
		target string
		want   string
	}{
		{"/get_vector/a%2541", "a%41"},
		{"/get_vector/aA", "aA"},
		{"/get_vector/a%41", "aA"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			w := do(t, h, http.MethodGet, tt.target, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status: got %d: %s", w.Code, w.Body.String())
			}
			if resp := decode[models.VectorResponse](t, w); resp.Word != tt.want {
				t.Errorf("word = %q, want %q", resp.Word, tt.want)
			}
		})
	}
}

func TestHandleGetSimilar(t *testing.T) {
	h := newTestServer(t, false).Handler()

	tests := []struct {
		name      string
		target    string
		wantCount int
		wantFirst string
	}{
		{"default count returns whole vocabulary", "/get_similar/apple", 4, "apple"},
		{"explicit count", "/get_similar/apple?count=2", 2, "apple"},
		{"zero count means one", "/get_similar/apple?count=0", 1, "apple"},
		{"negative count means default", "/get_similar/apple?count=-4", 4, "apple"},
		{"garbage count means default", "/get_similar/apple?count=lots", 4, "apple"},
		{"huge count is clamped", "/get_similar/orange?count=100000", 4, "orange"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodGet, tt.target, nil)
			if w.Code != http.StatusOK {
				t.Fatalf("status: got %d", w.Code)
			}
			resp := decode[models.SimilarResponse](t, w)
			if resp.Count != tt.wantCount || len(resp.Results) != tt.wantCount {
				t.Errorf("count: got %d (%d results), want %d", resp.Count, len(resp.Results), tt.wantCount)
			}
			if resp.Results[0].Word != tt.wantFirst {
				t.Errorf("first: got %q, want %q", resp.Results[0].Word, tt.wantFirst)
			}
			for i := 1; i < len(resp.Results); i++ {
				if resp.Results[i].Distance < resp.Results[i-1].Distance {
					t.Errorf("results not ascending: %+v", resp.Results)
				}
			}
		})
	}
}

func TestHandleGetSimilar_FruitOrder(t *testing.T) {
	h := newTestServer(t, false).Handler()
	resp := decode[models.SimilarResponse](t, do(t, h, http.MethodGet, "/get_similar/apple?count=3", nil))
	got := []string{resp.Results[0].Word, resp.Results[1].Word, resp.Results[2].Word}
	want := []string{"apple", "orange", "AC/DC"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order: got %v, want %v", got, want)
		}
	}
}

func TestHandleGetSimilar_CachedResultsMatch(t *testing.T) {
	srv := newTestServer(t, false)
	h := srv.Handler()
	first := do(t, h, http.MethodGet, "/get_similar/orange?count=3", nil).Body.String()
	if srv.cache.Len() != 1 {
		t.Fatalf("expected one cached entry, got %d", srv.cache.Len())
	}
	second := do(t, h, http.MethodGet, "/get_similar/orange?count=3", nil).Body.String()
	if first != second {
		t.Errorf("cached response differs:\n%s\n%s", first, second)
	}
}

func TestHandleGetSimilar_NotFound(t *testing.T) {
	h := newTestServer(t, false).Handler()
	w := do(t, h, http.MethodGet, "/get_similar/cherry", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", w.Code)
	}
	resp := decode[models.ErrorResponse](t, w)
	if resp.Error == "" || len(resp.Suggestions) != 0 {
		t.Errorf("unexpected body: %+v", resp)
	}
}

func TestHandleGetSimilar_NotFoundWithSuggestions(t *testing.T) {
	h := newTestServer(t, true).Handler()
	w := do(t, h, http.MethodGet, "/get_similar/aple", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want 404", w.Code)
	}
	resp := decode[models.ErrorResponse](t, w)
	if len(resp.Suggestions) == 0 || resp.Suggestions[0] != "apple" {
		t.Errorf("expected apple suggestion, got %+v", resp)
	}
}

func TestHandleSimilarByVector(t *testing.T) {
	h := newTestServer(t, false).Handler()

	w := do(t, h, http.MethodPost, "/get_similar", []byte(`{"vector":[-3,0],"count":1}`))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d: %s", w.Code, w.Body.String())
	}
	resp := decode[models.SimilarResponse](t, w)
	if len(resp.Results) != 1 || resp.Results[0].Word != "banana" {
		t.Errorf("unexpected results: %+v", resp)
	}

	tests := []struct {
		name string
		body string
	}{
		{"dimension mismatch", `{"vector":[1,0,0]}`},
		{"empty vector", `{"vector":[]}`},
		{"malformed body", `{"vector":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/get_similar", []byte(tt.body))
			if w.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want 400", w.Code)
			}
		})
	}
}

func TestHandleSuggest(t *testing.T) {
	h := newTestServer(t, true).Handler()
	w := do(t, h, http.MethodGet, "/suggest/orang?count=3", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	resp := decode[models.SuggestResponse](t, w)
	if resp.Word != "orang" || len(resp.Suggestions) == 0 || resp.Suggestions[0] != "orange" {
		t.Errorf("unexpected body: %+v", resp)
	}
}

func TestHandleSuggest_Disabled(t *testing.T) {
	h := newTestServer(t, false).Handler()
	if w := do(t, h, http.MethodGet, "/suggest/orang", nil); w.Code != http.StatusNotImplemented {
		t.Errorf("status: got %d, want 501", w.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	srv := newTestServer(t, false)
	srv.model.MarkStale()
	w := do(t, srv.Handler(), http.MethodGet, "/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	resp := decode[models.StatusResponse](t, w)
	if resp.Words != 4 || resp.Dimension != 2 || resp.Index.Type != "memory" || resp.Index.Size != 4 {
		t.Errorf("unexpected status: %+v", resp)
	}
	if !resp.Stale || resp.BuildID == "" || resp.Format != "binary" {
		t.Errorf("unexpected status: %+v", resp)
	}
}

func TestHandleHealth(t *testing.T) {
	h := NewServer(nil, &config.ServerConfig{}, nil, nil).Handler()
	w := do(t, h, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("health: %d %s", w.Code, w.Body.String())
	}
}

func TestHandlers_NoModel(t *testing.T) {
	h := NewServer(nil, &config.ServerConfig{}, nil, zap.NewNop()).Handler()
	for _, target := range []string{"/get_vector/apple", "/get_similar/apple", "/status", "/suggest/apple"} {
		if w := do(t, h, http.MethodGet, target, nil); w.Code != http.StatusInternalServerError {
			t.Errorf("%s: got %d, want 500", target, w.Code)
		}
	}
}

func TestHandlers_Concurrent(t *testing.T) {
	h := newTestServer(t, false).Handler()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				w := do(t, h, http.MethodGet, "/get_similar/banana?count=2", nil)
				if w.Code != http.StatusOK {
					t.Errorf("status: got %d", w.Code)
					return
				}
			}
		}()
	}
	wg.Wait()
}
