package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/okian/forfeit/internal/domain/challenge"
)

// handleCreateChallenge handles POST /challenges.
func (s *Server) handleCreateChallenge(w http.ResponseWriter, r *http.Request) {
	var c challenge.Challenge
	if err := s.decode(w, r, &c); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	view, err := s.deps.CreateChallenge(r.Context(), c)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// handleListChallenges handles GET /challenges.
func (s *Server) handleListChallenges(w http.ResponseWriter, r *http.Request) {
	views, err := s.deps.Challenges(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// handleGetChallenge handles GET /challenges/{id}.
func (s *Server) handleGetChallenge(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.Challenge(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
