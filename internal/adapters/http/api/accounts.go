package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// handleGetScore handles GET /accounts/{id}/score.
func (s *Server) handleGetScore(w http.ResponseWriter, r *http.Request) {
	sum, err := s.deps.Score(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// handleGetAwards handles GET /accounts/{id}/awards.
func (s *Server) handleGetAwards(w http.ResponseWriter, r *http.Request) {
	awards, err := s.deps.Awards(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, awards)
}

// handleGetRank handles GET /accounts/{id}/rank.
func (s *Server) handleGetRank(w http.ResponseWriter, r *http.Request) {
	entry, err := s.deps.Rank(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// handleGetScoreboard handles GET /scoreboard?limit=N.
func (s *Server) handleGetScoreboard(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "bad_request", ErrInvalidLimit)
		return
	}
	entries, err := s.deps.TopN(r.Context(), n)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
