// Package service runs the attempt workflow and the scoreboard on top of the
// repository. It implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/okian/forfeit/internal/adapters/mq/queue"
	"github.com/okian/forfeit/internal/adapters/mq/worker"
	"github.com/okian/forfeit/internal/adapters/repository"
	"github.com/okian/forfeit/internal/domain/challenge"
	"github.com/okian/forfeit/internal/domain/dedupe"
	"github.com/okian/forfeit/internal/domain/evaluator"
	"github.com/okian/forfeit/internal/domain/model"
	"github.com/okian/forfeit/internal/domain/penalty"
	"github.com/okian/forfeit/internal/domain/registry"
	"github.com/okian/forfeit/internal/domain/types"
	"github.com/okian/forfeit/pkg/logger"
	"github.com/okian/forfeit/pkg/metrics"
)

const (
	messageAlreadySolved = "You already solved this"
	messageDuplicate     = "Request already processed"
	retryBackoff         = 10 * time.Millisecond
)

// Status is the outcome class of an attempt.
type Status string

const (
	StatusCorrect       Status = "correct"
	StatusIncorrect     Status = "incorrect"
	StatusAlreadySolved Status = "already_solved"
	StatusDuplicate     Status = "duplicate"
)

// AttemptRequest is one submission.
type AttemptRequest struct {
	ChallengeID string
	AccountID   string
	TeamID      string
	Submission  string
	// RequestID is an optional client idempotency key.
	RequestID string
}

// AttemptResult is returned to the submitter.
type AttemptResult struct {
	Status  Status           `json:"status"`
	Message string           `json:"message"`
	Penalty *penalty.Outcome `json:"penalty,omitempty"`
}

// Store is the persistence the service needs.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx *repository.Tx) error) error
	PutChallenge(ctx context.Context, c *challenge.Challenge) error
	Challenge(ctx context.Context, id string) (*challenge.Challenge, error)
	Challenges(ctx context.Context) ([]*challenge.Challenge, error)
	Score(ctx context.Context, accountID string) (types.ScoreSummary, error)
	Scores(ctx context.Context) ([]types.ScoreSummary, error)
	Awards(ctx context.Context, accountID string) ([]model.Award, error)
	Ping(ctx context.Context) error
	Driver() string
}

// Service implements the API dependencies for the penalty engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      Store
	registry   *registry.Registry
	deduper    dedupe.Deduper
	standings  repository.Standings
	scoreQueue *queue.InMemoryQueue
	workerPool *worker.Pool

	// Configuration
	workerCount         int
	queueSize           int
	dedupeSize          int
	dedupeTTL           time.Duration
	txRetries           int
	maxSubmissionLength int
	maxScoreboardLimit  int
	now                 func() time.Time

	started bool
	logger  logger.Logger
}

// New constructs a Service over store. The challenge type registry is built
// here and never changes afterwards.
func New(store Store, opts ...Option) (*Service, error) {
	s := &Service{
		store:               store,
		workerCount:         runtime.NumCPU(),
		queueSize:           10_000,
		dedupeSize:          100_000,
		txRetries:           3,
		maxSubmissionLength: 4096,
		maxScoreboardLimit:  100,
		now:                 time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	assessor := penalty.NewAssessor(
		penalty.WithLogger(s.logger.Named("penalty")),
		penalty.WithClock(s.now),
	)
	reg, err := registry.Default(evaluator.NewFlagEvaluator(), assessor, registry.WithClock(s.now))
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}
	s.registry = reg
	s.deduper = dedupe.NewRequestLog(dedupe.WithMaxSize(s.dedupeSize), dedupe.WithTTL(s.dedupeTTL))
	s.standings = repository.NewTreapStandings()
	return s, nil
}

// Start rebuilds the standings from the store and starts the score workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting penalty service...")

	scores, err := s.store.Scores(ctx)
	if err != nil {
		return fmt.Errorf("rebuild standings: %w", err)
	}
	s.standings.Reset(ctx, scores)

	s.scoreQueue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.workerPool = worker.NewPool(s.workerCount, s.scoreQueue, s.store, s.standings)
	s.workerPool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.logger.Info(ctx, "penalty service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("accounts", len(scores)),
		logger.String("driver", s.store.Driver()),
	)
	return nil
}

// Stop drains the score workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.logger.Info(ctx, "stopping penalty service...")

	err := s.workerPool.Shutdown(ctx)
	s.started = false
	s.logger.Info(ctx, "penalty service stopped")
	return err
}

// Ready reports whether the workers are running and the store answers.
func (s *Service) Ready(ctx context.Context) error {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Attempt judges a submission and records it, charging a penalty when the
// challenge type calls for one. The submission log entry and any penalty are
// committed together or not at all.
func (s *Service) Attempt(ctx context.Context, req AttemptRequest) (AttemptResult, error) {
	start := time.Now()
	defer func() {
		metrics.RecordAttemptLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	req.AccountID = strings.TrimSpace(req.AccountID)
	req.ChallengeID = strings.TrimSpace(req.ChallengeID)
	if req.AccountID == "" {
		return AttemptResult{}, ErrAccountRequired
	}
	provided := model.NormalizeProvided(req.Submission)
	if provided == "" {
		return AttemptResult{}, ErrMissingSubmission
	}
	if len(provided) > s.maxSubmissionLength {
		return AttemptResult{}, fmt.Errorf("%w: longer than %d bytes", ErrMissingSubmission, s.maxSubmissionLength)
	}
	req.Submission = provided

	if req.RequestID != "" && !s.deduper.Claim(ctx, req.AccountID, req.RequestID) {
		metrics.RecordDuplicateRequest()
		metrics.RecordAttempt(string(StatusDuplicate))
		s.logger.Debug(ctx, "duplicate request skipped",
			logger.String("account", req.AccountID),
			logger.String("request_id", req.RequestID),
		)
		return AttemptResult{Status: StatusDuplicate, Message: messageDuplicate}, nil
	}

	res, err := s.attemptWithRetry(ctx, req)
	if err != nil {
		if req.RequestID != "" {
			s.deduper.Release(ctx, req.AccountID, req.RequestID)
		}
		metrics.RecordAttempt("error")
		return AttemptResult{}, err
	}

	metrics.RecordAttempt(string(res.Status))
	if res.Status != StatusAlreadySolved {
		s.refresh(ctx, req.AccountID)
	}
	return res, nil
}

func (s *Service) attemptWithRetry(ctx context.Context, req AttemptRequest) (AttemptResult, error) {
	for try := 0; ; try++ {
		res, err := s.attemptOnce(ctx, req)
		if !errors.Is(err, ErrConcurrencyConflict) {
			return res, err
		}

		metrics.RecordTxConflict()
		if try >= s.txRetries {
			s.logger.Warn(ctx, "attempt conflicted, giving up",
				logger.String("account", req.AccountID),
				logger.String("challenge", req.ChallengeID),
				logger.Int("tries", try+1),
			)
			return AttemptResult{}, err
		}

		metrics.RecordTxRetry()
		select {
		case <-ctx.Done():
			return AttemptResult{}, fmt.Errorf("retry attempt: %w", ctx.Err())
		case <-time.After(time.Duration(try+1) * retryBackoff):
		}
	}
}

func (s *Service) attemptOnce(ctx context.Context, req AttemptRequest) (AttemptResult, error) {
	var res AttemptResult
	err := s.store.WithTx(ctx, func(ctx context.Context, tx *repository.Tx) error {
		if err := tx.Lock(ctx, req.AccountID, req.ChallengeID); err != nil {
			return err
		}

		c, err := tx.Challenge(ctx, req.ChallengeID)
		if err != nil {
			return s.challengeErr(req.ChallengeID, err)
		}
		if c.State == challenge.StateHidden {
			return fmt.Errorf("%w: %s", ErrChallengeNotFound, req.ChallengeID)
		}
		h, err := s.registry.Handler(c.Type)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrUnknownChallengeType, err)
		}

		solved, err := tx.Solved(ctx, req.AccountID, c.ID)
		if err != nil {
			return err
		}
		if solved {
			res = AttemptResult{Status: StatusAlreadySolved, Message: messageAlreadySolved}
			return nil
		}

		sub := registry.Submission{
			AccountID: req.AccountID,
			TeamID:    req.TeamID,
			Challenge: c,
			Provided:  req.Submission,
		}
		v, err := h.Attempt(ctx, tx, sub)
		if err != nil {
			return fmt.Errorf("judge %s: %w", c.ID, err)
		}
		if v.Correct {
			if err := h.Solve(ctx, tx, sub); err != nil {
				return err
			}
			res = AttemptResult{Status: StatusCorrect, Message: v.Message}
		} else {
			if err := h.Fail(ctx, tx, sub); err != nil {
				return err
			}
			res = AttemptResult{Status: StatusIncorrect, Message: v.Message, Penalty: v.Penalty}
		}

		s.logger.Info(ctx, "attempt recorded",
			logger.String("account", req.AccountID),
			logger.String("challenge", c.ID),
			logger.String("status", string(res.Status)),
		)
		return nil
	})
	if err != nil {
		return AttemptResult{}, err
	}
	return res, nil
}

// refresh schedules a standings update. Failures only delay the scoreboard.
func (s *Service) refresh(ctx context.Context, accountID string) {
	s.mu.RLock()
	q := s.scoreQueue
	started := s.started
	s.mu.RUnlock()
	if !started {
		return
	}
	if err := q.Enqueue(ctx, model.ScoreEvent{AccountID: accountID, At: s.now()}); err != nil {
		s.logger.Warn(ctx, "score refresh dropped", logger.String("account", accountID), logger.Error(err))
	}
}

func (s *Service) challengeErr(id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrChallengeNotFound, id)
	}
	return err
}

// CreateChallenge validates and stores a challenge, replacing any with the
// same id, and returns its read projection.
func (s *Service) CreateChallenge(ctx context.Context, c challenge.Challenge) (registry.View, error) {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return registry.View{}, err
	}
	h, err := s.registry.Handler(c.Type)
	if err != nil {
		return registry.View{}, fmt.Errorf("%w: %w", ErrInvalidChallenge, err)
	}
	if err := s.store.PutChallenge(ctx, &c); err != nil {
		return registry.View{}, err
	}
	s.logger.Info(ctx, "challenge stored",
		logger.String("challenge", c.ID),
		logger.String("type", string(c.Type)),
		logger.Int64("penalty", c.Penalty),
		logger.Int64("cumulative_cap", c.CumulativeCap),
	)
	return h.Read(&c), nil
}

// Challenge returns the read projection of a visible challenge.
func (s *Service) Challenge(ctx context.Context, id string) (registry.View, error) {
	c, err := s.store.Challenge(ctx, id)
	if err != nil {
		return registry.View{}, s.challengeErr(id, err)
	}
	if c.State == challenge.StateHidden {
		return registry.View{}, fmt.Errorf("%w: %s", ErrChallengeNotFound, id)
	}
	h, err := s.registry.Handler(c.Type)
	if err != nil {
		return registry.View{}, fmt.Errorf("%w: %w", ErrUnknownChallengeType, err)
	}
	return h.Read(c), nil
}

// Challenges returns the projections of every visible challenge.
func (s *Service) Challenges(ctx context.Context) ([]registry.View, error) {
	all, err := s.store.Challenges(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]registry.View, 0, len(all))
	for _, c := range all {
		if c.State == challenge.StateHidden {
			continue
		}
		h, err := s.registry.Handler(c.Type)
		if err != nil {
			s.logger.Warn(ctx, "skipping challenge with unknown type", logger.String("challenge", c.ID))
			continue
		}
		out = append(out, h.Read(c))
	}
	return out, nil
}

// Score returns the account's committed score.
func (s *Service) Score(ctx context.Context, accountID string) (types.ScoreSummary, error) {
	return s.store.Score(ctx, accountID)
}

// Awards returns the account's ledger entries.
func (s *Service) Awards(ctx context.Context, accountID string) ([]model.Award, error) {
	return s.store.Awards(ctx, accountID)
}

// TopN returns the first n scoreboard entries; n is capped at the configured limit.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Entry, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	return s.standings.TopN(ctx, min(n, s.maxScoreboardLimit))
}

// Rank returns the account's scoreboard position.
func (s *Service) Rank(ctx context.Context, accountID string) (types.Entry, error) {
	return s.standings.Rank(ctx, accountID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":        s.started,
		"driver":         s.store.Driver(),
		"workerCount":    s.workerCount,
		"queueSize":      s.queueSize,
		"dedupeSize":     s.dedupeSize,
		"dedupeEntries":  s.deduper.Size(),
		"txRetries":      s.txRetries,
		"challengeTypes": s.registry.Types(),
		"accounts":       s.standings.Count(ctx),
	}
	if s.started {
		queueLen := s.scoreQueue.Len(ctx)
		stats["queueLength"] = queueLen
		metrics.UpdateQueueSize(queueLen)
	}
	return stats
}
