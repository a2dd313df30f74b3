package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/forfeit/internal/app"
)

// idempotencyHeader may carry the request id instead of the body.
const idempotencyHeader = "Idempotency-Key"

// attemptRequest mirrors the OpenAPI schema for POST /challenges/{id}/attempts.
type attemptRequest struct {
	AccountID  string `json:"account_id"`
	TeamID     string `json:"team_id,omitempty"`
	Submission string `json:"submission"`
	RequestID  string `json:"request_id,omitempty"`
}

// handlePostAttempt handles POST /challenges/{id}/attempts. Incorrect answers
// are a normal outcome and return 200 like correct ones.
func (s *Server) handlePostAttempt(w http.ResponseWriter, r *http.Request) {
	var req attemptRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if req.RequestID == "" {
		req.RequestID = r.Header.Get(idempotencyHeader)
	}

	res, err := s.deps.Attempt(r.Context(), service.AttemptRequest{
		ChallengeID: chi.URLParam(r, "id"),
		AccountID:   req.AccountID,
		TeamID:      req.TeamID,
		Submission:  req.Submission,
		RequestID:   req.RequestID,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
