package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/terra-clan/practice-engine/internal/generator"
	"github.com/terra-clan/practice-engine/internal/models"
	"github.com/terra-clan/practice-engine/internal/practice"
	"github.com/terra-clan/practice-engine/internal/storage"
)

const maxBodyBytes = 4 << 20

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// respondServiceError maps service errors to status codes
func respondServiceError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, practice.ErrItemNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, practice.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, generator.ErrTimeout):
		slog.Warn("generator timed out", "action", action, "error", err)
		respondError(w, http.StatusGatewayTimeout, "generator_timeout", "generation timed out")
	case errors.Is(err, practice.ErrGeneration):
		slog.Warn("generation failed", "action", action, "error", err)
		respondError(w, http.StatusBadGateway, "generation_failed", err.Error())
	case errors.Is(err, storage.ErrConflict):
		respondError(w, http.StatusConflict, "conflict", "record was modified concurrently, retry")
	default:
		slog.Error("request failed", "action", action, "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to "+action)
	}
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.repo.Ping(r.Context()); err != nil {
		slog.Warn("record store not ready", "error", err)
		respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// Question handlers

func (s *Server) handleListSession(w http.ResponseWriter, r *http.Request) {
	var cfg models.SessionConfig
	if !decodeJSON(w, r, &cfg) {
		return
	}

	session, err := s.service.ListSession(r.Context(), cfg)
	if err != nil {
		respondServiceError(w, err, "list questions")
		return
	}

	respondJSON(w, http.StatusOK, session)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.service.Catalog())
}

func (s *Server) handleLoadRecords(w http.ResponseWriter, r *http.Request) {
	var req models.LoadRecordsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	recs, err := s.service.LoadRecords(r.Context(), req.IDs)
	if err != nil {
		respondServiceError(w, err, "load records")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"records": recs})
}

func (s *Server) handleCache(w http.ResponseWriter, r *http.Request) {
	var req models.CacheRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	rec, err := s.service.CacheGenerationResult(r.Context(), req.Question, req.Result)
	if err != nil {
		respondServiceError(w, err, "cache result")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"record": rec})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req models.EvaluateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := s.service.SubmitAnswer(r.Context(), req.Question, req.Answer, req.Language, req.Mode)
	if err != nil {
		respondServiceError(w, err, "evaluate answer")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Generation handlers

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := s.service.Generate(r.Context(), req)
	if err != nil {
		respondServiceError(w, err, "generate content")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePrefetch(w http.ResponseWriter, r *http.Request) {
	var cfg models.SessionConfig
	if !decodeJSON(w, r, &cfg) {
		return
	}

	resp, err := s.service.Prefetch(r.Context(), cfg)
	if err != nil {
		respondServiceError(w, err, "start prefetch")
		return
	}

	respondJSON(w, http.StatusAccepted, resp)
}
