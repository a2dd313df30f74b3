// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	service "github.com/okian/forfeit/internal/app"
	"github.com/okian/forfeit/internal/domain/challenge"
	"github.com/okian/forfeit/internal/domain/model"
	"github.com/okian/forfeit/internal/domain/registry"
	"github.com/okian/forfeit/internal/domain/types"
	"github.com/okian/forfeit/pkg/logger"
)

const (
	defaultMaxBodyBytes   = 64 << 10
	defaultRequestTimeout = 30 * time.Second
)

// Dependencies required by HTTP handlers. *service.Service satisfies it.
type Dependencies interface {
	Attempt(ctx context.Context, req service.AttemptRequest) (service.AttemptResult, error)

	CreateChallenge(ctx context.Context, c challenge.Challenge) (registry.View, error)
	Challenge(ctx context.Context, id string) (registry.View, error)
	Challenges(ctx context.Context) ([]registry.View, error)

	Score(ctx context.Context, accountID string) (types.ScoreSummary, error)
	Awards(ctx context.Context, accountID string) ([]model.Award, error)
	TopN(ctx context.Context, n int) ([]Entry, error)
	Rank(ctx context.Context, accountID string) (Entry, error)

	GetStats() map[string]any
	Ready(ctx context.Context) error
}

// Entry mirrors the read shape returned by scoreboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	deps           Dependencies
	logger         logger.Logger
	corsOrigins    []string
	maxBodyBytes   int64
	requestTimeout time.Duration
	mounts         []func(chi.Router)
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets the logger used for unexpected handler errors.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCORSOrigins enables CORS for the given origins.
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithMaxBodyBytes limits request body size.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// WithRequestTimeout bounds each request's context.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithMount registers extra routes, such as the API docs, on the root router.
func WithMount(fn func(chi.Router)) Option {
	return func(s *Server) {
		if fn != nil {
			s.mounts = append(s.mounts, fn)
		}
	}
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:           deps,
		logger:         logger.Named("http"),
		maxBodyBytes:   defaultMaxBodyBytes,
		requestTimeout: defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router.
//
//	GET  /healthz                      Prometheus metrics
//	GET  /readyz                       readiness
//	GET  /stats                        service statistics
//	POST /challenges                   create or replace a challenge
//	GET  /challenges                   list visible challenges
//	GET  /challenges/{id}              read one challenge
//	POST /challenges/{id}/attempts     submit an answer
//	GET  /accounts/{id}/score          committed score
//	GET  /accounts/{id}/awards         ledger entries
//	GET  /accounts/{id}/rank           scoreboard position
//	GET  /scoreboard?limit=N           top N
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(s.requestTimeout))
	if len(s.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Idempotency-Key"},
			ExposedHeaders: []string{"Content-Length"},
			MaxAge:         300,
		}))
	}
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/stats", s.handleStats)

	r.Route("/challenges", func(r chi.Router) {
		r.Post("/", s.handleCreateChallenge)
		r.Get("/", s.handleListChallenges)
		r.Get("/{id}", s.handleGetChallenge)
		r.Post("/{id}/attempts", s.handlePostAttempt)
	})

	r.Route("/accounts/{id}", func(r chi.Router) {
		r.Get("/score", s.handleGetScore)
		r.Get("/awards", s.handleGetAwards)
		r.Get("/rank", s.handleGetRank)
	})

	r.Get("/scoreboard", s.handleGetScoreboard)

	for _, mount := range s.mounts {
		mount(r)
	}
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service sentinels onto status codes.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrMissingSubmission),
		errors.Is(err, service.ErrAccountRequired),
		errors.Is(err, service.ErrInvalidLimit):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, service.ErrInvalidChallenge):
		writeError(w, http.StatusBadRequest, "invalid_challenge", err)
	case errors.Is(err, service.ErrChallengeNotFound),
		errors.Is(err, service.ErrUnknownChallengeType),
		errors.Is(err, service.ErrAccountNotRanked):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrConcurrencyConflict):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "conflict", err)
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, service.ErrStoreUnavailable):
		writeError(w, http.StatusServiceUnavailable, "not_ready", err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "timeout", err)
	default:
		s.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(ErrBadRequest, err)
	}
	return nil
}
