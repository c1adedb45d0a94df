package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
	"github.com/ClaireAgaba/informal-system-sub000/internal/registration"
)

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
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
	writeError(w, status, &apiError{Code: code, Message: message})
}

func writeError(w http.ResponseWriter, status int, e *apiError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(apiResponse{Success: false, Error: e}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// errorStatus maps a service error to its HTTP status and error body.
// Unrecognised errors are internal.
func errorStatus(err error) (int, *apiError) {
	body := &apiError{Message: err.Error()}
	if reason, ok := models.ReasonOf(err); ok {
		body.Reason = string(reason)
	}

	switch {
	case errors.Is(err, registration.ErrCandidateNotFound),
		errors.Is(err, registration.ErrSeriesNotFound),
		errors.Is(err, registration.ErrEnrollmentNotFound),
		errors.Is(err, registration.ErrOccupationNotFound):
		body.Code = "not_found"
		return http.StatusNotFound, body
	case errors.Is(err, registration.ErrAlreadyEnrolled):
		body.Code = "already_enrolled"
		return http.StatusConflict, body
	case errors.Is(err, registration.ErrDuplicateRegNo):
		body.Code = "duplicate_reg_no"
		return http.StatusConflict, body
	case errors.Is(err, registration.ErrInvalidInput):
		body.Code = "validation_error"
		return http.StatusBadRequest, body
	case errors.Is(err, registration.ErrHeterogeneousTarget):
		body.Code = "heterogeneous_target"
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, registration.ErrEmptyTarget):
		body.Code = "empty_target"
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, models.ErrStaleCatalogData):
		body.Code = "stale_catalog_data"
		return http.StatusConflict, body
	case errors.Is(err, models.ErrBulkTargetAmbiguous):
		body.Code = "bulk_target_ambiguous"
		return http.StatusConflict, body
	case errors.Is(err, models.ErrCompositionInvalid):
		body.Code = "composition_invalid"
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, models.ErrMarkOutOfRange):
		body.Code = "mark_out_of_range"
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, models.ErrFeeUnresolved):
		body.Code = "fee_unresolved"
		return http.StatusUnprocessableEntity, body
	case errors.Is(err, models.ErrZeroFee):
		body.Code = "zero_fee"
		return http.StatusUnprocessableEntity, body
	}

	body.Code = "internal_error"
	body.Message = "internal server error"
	return http.StatusInternalServerError, body
}

// respondServiceError writes err as an API error. op names the failed
// operation in logs.
func respondServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, body := errorStatus(err)
	switch {
	case status >= 500:
		slog.Error("failed to "+op, "error", err, "path", r.URL.Path)
	case errors.Is(err, models.ErrZeroFee):
		slog.Warn("zero fee computed, catalog fees need review", "error", err, "path", r.URL.Path)
	}
	writeError(w, status, body)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, defaultValue int) int {
	if s := r.URL.Query().Get(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return defaultValue
}

// hideMarks strips mark values the caller may not see. Grades and verdicts stay.
func hideMarks(ctx context.Context, results []*models.GradedResult) []*models.GradedResult {
	if MarksVisible(ctx) {
		return results
	}
	for _, res := range results {
		res.Mark = nil
	}
	return results
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.checks == nil {
		if err := s.service.Ping(r.Context()); err != nil {
			slog.Warn("readiness check failed", "error", err)
			respondError(w, http.StatusServiceUnavailable, "not_ready", "service not ready")
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}

	results := s.checks.CheckAll(r.Context())
	checks := make(map[string]string, len(results))
	var failing []string
	for name, err := range results {
		if err != nil {
			slog.Warn("readiness check failed", "check", name, "error", err)
			checks[name] = err.Error()
			failing = append(failing, name)
			continue
		}
		checks[name] = "ok"
	}

	if len(failing) > 0 {
		sort.Strings(failing)
		respondError(w, http.StatusServiceUnavailable, "not_ready",
			"unavailable: "+strings.Join(failing, ", "))
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"checks": checks,
	})
}
