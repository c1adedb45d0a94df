package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Catalog handlers: read-only occupations and assessment series

func (s *Server) handleListOccupations(w http.ResponseWriter, r *http.Request) {
	occupations, err := s.service.ListOccupations(r.Context())
	if err != nil {
		respondServiceError(w, r, "list occupations", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"occupations": occupations,
		"total":       len(occupations),
	})
}

func (s *Server) handleGetOccupation(w http.ResponseWriter, r *http.Request) {
	occ, err := s.service.GetOccupation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, "get occupation", err)
		return
	}
	respondJSON(w, http.StatusOK, occ)
}

func (s *Server) handleListSeries(w http.ResponseWriter, r *http.Request) {
	series, err := s.service.ListSeries(r.Context())
	if err != nil {
		respondServiceError(w, r, "list series", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"series": series,
		"total":  len(series),
	})
}
