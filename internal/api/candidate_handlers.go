package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
)

func filtersFromQuery(r *http.Request) models.CandidateFilters {
	q := r.URL.Query()
	return models.CandidateFilters{
		Search:               q.Get("search"),
		OccupationID:         q.Get("occupation_id"),
		CenterID:             q.Get("center_id"),
		RegistrationCategory: models.RegistrationCategory(q.Get("registration_category")),
		SeriesID:             q.Get("assessment_series"),
	}
}

func (s *Server) handleCreateCandidate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCandidateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := s.service.CreateCandidate(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, "create candidate", err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

func (s *Server) handleListCandidates(w http.ResponseWriter, r *http.Request) {
	page, err := s.service.ListCandidates(r.Context(), filtersFromQuery(r),
		queryInt(r, "page", 1), queryInt(r, "page_size", 0))
	if err != nil {
		respondServiceError(w, r, "list candidates", err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetCandidate(w http.ResponseWriter, r *http.Request) {
	c, err := s.service.GetCandidate(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, "get candidate", err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// Enrollment handlers

func (s *Server) handleEnrollmentOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := s.service.Options(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, "get enrollment options", err)
		return
	}
	respondJSON(w, http.StatusOK, opts)
}

func (s *Server) handleFeeQuote(w http.ResponseWriter, r *http.Request) {
	var req models.FeeQuoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CandidateCount < 0 {
		respondError(w, http.StatusBadRequest, "validation_error", "candidate_count must not be negative")
		return
	}

	quote, err := s.service.Quote(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondServiceError(w, r, "quote fee", err)
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request) {
	var req models.EnrollRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SeriesID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "assessment_series is required")
		return
	}

	e, err := s.service.Enroll(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondServiceError(w, r, "enroll candidate", err)
		return
	}
	respondJSON(w, http.StatusCreated, e)
}

func (s *Server) handleListEnrollments(w http.ResponseWriter, r *http.Request) {
	enrollments, err := s.service.Enrollments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, "list enrollments", err)
		return
	}
	if enrollments == nil {
		enrollments = []*models.Enrollment{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"enrollments": enrollments,
		"total":       len(enrollments),
	})
}

// Bulk handlers

func (s *Server) handleBulkSelection(w http.ResponseWriter, r *http.Request) {
	var req models.BulkSelectionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	sel, err := s.service.BulkSelection(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, "resolve bulk selection", err)
		return
	}
	respondJSON(w, http.StatusOK, sel)
}

func (s *Server) handleBulkEnroll(w http.ResponseWriter, r *http.Request) {
	var req models.BulkEnrollRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.SeriesID == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "assessment_series is required")
		return
	}

	res, err := s.service.BulkEnroll(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, "bulk enroll", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleBulkChangeCenter(w http.ResponseWriter, r *http.Request) {
	var req models.ChangeCenterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := s.service.ChangeCenter(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, "change center", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleBulkChangeSeries(w http.ResponseWriter, r *http.Request) {
	var req models.ChangeSeriesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := s.service.ChangeSeries(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, "change series", err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
