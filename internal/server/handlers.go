package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/bookrec/internal/catalog"
	"github.com/hyperjump/bookrec/internal/metrics"
	"github.com/hyperjump/bookrec/internal/models"
	"github.com/hyperjump/bookrec/internal/recommend"
	"go.uber.org/zap"
)

// recommendationRequest mirrors models.RecommendationQuery. A nil Limit means the field was omitted.
type recommendationRequest struct {
	Domain  string   `json:"domain"`
	Modules []string `json:"modules"`
	Limit   *int     `json:"limit"`
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	var req recommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ObserveRecommendation(metrics.OutcomeInvalid, 0)
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Limit == nil {
		metrics.ObserveRecommendation(metrics.OutcomeInvalid, 0)
		qe := &models.QueryError{Field: "limit", Reason: "is required"}
		s.logger.Warn("recommendation query rejected", zap.String("field", qe.Field), zap.String("reason", qe.Reason))
		s.respondJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": qe.Error(), "field": qe.Field})
		return
	}
	query := models.RecommendationQuery{
		Domain:  req.Domain,
		Modules: req.Modules,
		Limit:   *req.Limit,
	}
	s.logger.Debug("recommendation request",
		zap.String("domain", query.Domain),
		zap.Int("modules", len(query.Modules)),
		zap.Int("limit", query.Limit))

	start := time.Now()
	resp, err := s.ranker.Recommend(r.Context(), &query)
	elapsed := time.Since(start)
	if err != nil {
		var qe *models.QueryError
		switch {
		case errors.As(err, &qe):
			metrics.ObserveRecommendation(metrics.OutcomeInvalid, 0)
			s.logger.Warn("recommendation query rejected", zap.String("field", qe.Field), zap.String("reason", qe.Reason))
			s.respondJSON(w, http.StatusBadRequest, map[string]string{"error": qe.Error(), "field": qe.Field})
		case errors.Is(err, recommend.ErrModelUnavailable):
			metrics.ObserveRecommendation(metrics.OutcomeUnavailable, 0)
			s.respondError(w, http.StatusServiceUnavailable, "model not loaded")
		default:
			metrics.ObserveRecommendation(metrics.OutcomeError, 0)
			s.logger.Error("recommendation failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	metrics.ObserveRecommendation(metrics.OutcomeOK, elapsed)
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if m := s.holder.Current(); m != nil {
		if book, ok := m.Lookup(id); ok {
			s.respondJSON(w, http.StatusOK, book)
			return
		}
	}
	if s.catalog == nil {
		if s.holder.Current() == nil {
			s.respondError(w, http.StatusServiceUnavailable, "model not loaded")
			return
		}
		s.respondError(w, http.StatusNotFound, "book not found")
		return
	}
	book, err := s.catalog.GetBook(r.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "book not found")
		return
	}
	if err != nil {
		s.logger.Error("get book failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, book)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"model_loaded": s.holder.Current() != nil,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{}

	modelInfo := map[string]interface{}{"loaded": false}
	if snap, ok := s.holder.Snapshot(); ok {
		modelInfo["loaded"] = true
		modelInfo["items"] = snap.Model.Size()
		modelInfo["vocabulary_size"] = snap.Model.VocabularySize()
		modelInfo["source"] = snap.Source
		modelInfo["loaded_at"] = snap.LoadedAt.UTC().Format(time.RFC3339)
	}
	resp["model"] = modelInfo

	if s.catalog != nil {
		count, err := s.catalog.CountBooks(r.Context())
		if err != nil {
			s.logger.Error("status: count books failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["catalog_books"] = count
	}

	resp["config"] = map[string]interface{}{
		"max_limit":     s.config.Recommend.MaxLimit,
		"default_limit": s.config.Recommend.DefaultLimit,
		"model_path":    s.config.Model.Path,
		"model_url":     s.config.Model.URL,
		"database_path": s.config.Catalog.DatabasePath,
	}
	if diskBytes, err := catalog.DiskUsageBytes(s.config.Model.Path, s.config.Catalog.DatabasePath); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
