package api

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ClaireAgaba/informal-system-sub000/internal/marksheet"
	"github.com/ClaireAgaba/informal-system-sub000/internal/models"
)

func (s *Server) handleGetResults(w http.ResponseWriter, r *http.Request) {
	results, err := s.service.Results(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, "get results", err)
		return
	}
	respondResults(w, r, http.StatusOK, results)
}

func (s *Server) handleAddResults(w http.ResponseWriter, r *http.Request) {
	s.recordResults(w, r, false)
}

func (s *Server) handleUpdateResults(w http.ResponseWriter, r *http.Request) {
	s.recordResults(w, r, true)
}

func (s *Server) recordResults(w http.ResponseWriter, r *http.Request, replace bool) {
	var req models.ResultsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if len(req.Results) == 0 {
		respondError(w, http.StatusBadRequest, "validation_error", "results must not be empty")
		return
	}

	results, err := s.service.RecordResults(r.Context(), chi.URLParam(r, "id"), req, replace)
	if err != nil {
		respondServiceError(w, r, "record results", err)
		return
	}

	status := http.StatusOK
	if !replace {
		status = http.StatusCreated
	}
	respondResults(w, r, status, results)
}

func respondResults(w http.ResponseWriter, r *http.Request, status int, results []*models.GradedResult) {
	if results == nil {
		results = []*models.GradedResult{}
	}
	results = hideMarks(r.Context(), results)
	respondJSON(w, status, map[string]interface{}{
		"results": results,
		"total":   len(results),
	})
}

func (s *Server) handleClearEnrollment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.service.ClearEnrollment(r.Context(), id); err != nil {
		respondServiceError(w, r, "clear enrollment", err)
		return
	}

	slog.Info("enrollment data cleared", "enrollment_id", id, "client", actor(r.Context()))
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "enrollment and results deleted",
	})
}

func (s *Server) handleMarksheet(w http.ResponseWriter, r *http.Request) {
	series, rows, err := s.service.Marksheet(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, "build marksheet", err)
		return
	}

	showMarks := MarksVisible(r.Context())
	respondMarksheet(w, r, series, func(out io.Writer) error {
		return marksheet.Write(out, series, rows, showMarks)
	})
}

// respondMarksheet renders the workbook fully before any header is sent so a
// failed render still gets a JSON error response.
func respondMarksheet(w http.ResponseWriter, r *http.Request, series *models.AssessmentSeries, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		respondServiceError(w, r, "write marksheet", err)
		return
	}

	fileName := fmt.Sprintf("marksheet_%s_%s.xlsx", series.ID, time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", marksheet.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+fileName)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("failed to send marksheet", "error", err, "series_id", series.ID)
	}
}
