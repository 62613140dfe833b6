package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/wordvec/internal/models"
	"github.com/hyperjump/wordvec/internal/search"
	"go.uber.org/zap"
)

const (
	maxBodyBytes       = 4 << 20
	maxSuggestionCount = 100
)

func (s *Server) handleGetVector(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w) {
		return
	}
	word := wordParam(r)
	vec, err := s.model.Engine.Vector(word)
	if err != nil {
		s.respondQueryError(r.Context(), w, word, err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.VectorResponse{Word: word, Vector: vec})
}

func (s *Server) handleGetSimilar(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w) {
		return
	}
	word := wordParam(r)
	count := s.model.Engine.ParseCount(r.URL.Query().Get("count"))
	s.logger.Debug("similar request", zap.String("word", word), zap.Int("count", count))

	key := cacheKey(word, count)
	results, ok := s.cache.Get(key)
	if !ok {
		var err error
		results, err = s.model.Engine.QueryByWord(word, count)
		if err != nil {
			s.respondQueryError(r.Context(), w, word, err)
			return
		}
		s.cache.Set(key, results)
	}
	s.respondJSON(w, http.StatusOK, models.SimilarResponse{Word: word, Count: len(results), Results: results})
}

func (s *Server) handleSimilarByVector(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w) {
		return
	}
	var req models.SimilarRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	results, err := s.model.Engine.QueryByVector(req.Vector, s.model.Engine.ResolveCount(req.Count))
	if err != nil {
		s.respondQueryError(r.Context(), w, "", err)
		return
	}
	s.respondJSON(w, http.StatusOK, models.SimilarResponse{Count: len(results), Results: results})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w) {
		return
	}
	if s.model.Vocab == nil {
		s.respondError(w, http.StatusNotImplemented, "suggestions are disabled")
		return
	}
	word := wordParam(r)
	limit := s.suggest.DefaultCount
	if raw := r.URL.Query().Get("count"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = min(n, maxSuggestionCount)
		}
	}
	suggestions, err := s.model.Vocab.Suggest(r.Context(), word, limit)
	if err != nil {
		s.logger.Error("suggest failed", zap.String("word", word), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, models.SuggestResponse{Word: word, Suggestions: suggestions})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !s.ready(w) {
		return
	}
	info := s.model.Info()
	stats := s.model.Engine.IndexStats()
	s.respondJSON(w, http.StatusOK, models.StatusResponse{
		BuildID:     info.BuildID,
		Source:      info.Source,
		Format:      info.Format,
		SourceBytes: info.SourceBytes,
		Words:       info.Words,
		Dimension:   info.Dimension,
		Duplicates:  info.Duplicates,
		ZeroVectors: info.ZeroVectors,
		Index: models.IndexStatus{
			Type:          stats.Type,
			Size:          stats.Size,
			Tables:        stats.Tables,
			Planes:        stats.Planes,
			Buckets:       stats.Buckets,
			LargestBucket: stats.LargestBucket,
			Seed:          stats.Seed,
		},
		Suggestions:   s.model.Vocab != nil,
		LoadedAt:      info.LoadedAt,
		LoadTimeMs:    info.LoadTime.Milliseconds(),
		Stale:         s.model.Stale(),
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ready writes a 500 and reports false when no model is loaded.
func (s *Server) ready(w http.ResponseWriter) bool {
	if s.model == nil {
		s.respondError(w, http.StatusInternalServerError, "no model loaded")
		return false
	}
	return true
}

// wordParam returns the decoded {word} segment. chi matches on RawPath when
// the request has one, so only then is the segment still escaped.
func wordParam(r *http.Request) string {
	raw := chi.URLParam(r, "word")
	if r.URL.RawPath == "" {
		return raw
	}
	if word, err := url.PathUnescape(raw); err == nil {
		return word
	}
	return raw
}

// respondQueryError maps engine errors to HTTP statuses. Unknown words get
// spelling suggestions when the vocabulary index is available.
func (s *Server) respondQueryError(ctx context.Context, w http.ResponseWriter, word string, err error) {
	switch {
	case errors.Is(err, search.ErrNotFound):
		resp := models.ErrorResponse{Error: err.Error()}
		if s.model.Vocab != nil {
			suggestions, sErr := s.model.Vocab.Suggest(ctx, word, s.suggest.DefaultCount)
			if sErr != nil {
				s.logger.Warn("suggest failed", zap.String("word", word), zap.Error(sErr))
			}
			resp.Suggestions = suggestions
		}
		s.respondJSON(w, http.StatusNotFound, resp)
	case errors.Is(err, search.ErrDimensionMismatch):
		s.respondError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("query failed", zap.String("word", word), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Debug("write response failed", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, models.ErrorResponse{Error: message})
}
