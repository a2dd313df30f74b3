package repository

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/okian/forfeit/internal/domain/types"
	"github.com/okian/forfeit/pkg/metrics"
)

// Standings is the in-memory scoreboard.
type Standings interface {
	// Set records the account's current total. Scores may go down.
	// Returns true if the stored score changed.
	Set(ctx context.Context, accountID string, score int64) bool
	// Reset replaces every entry.
	Reset(ctx context.Context, scores []types.ScoreSummary)
	// Rank returns the account's rank and score, or ErrNotFound.
	Rank(ctx context.Context, accountID string) (types.Entry, error)
	// TopN returns the first n entries, best first.
	TopN(ctx context.Context, n int) ([]types.Entry, error)
	Count(ctx context.Context) int
}

// Treap ordered by score desc, then account id asc; in-order traversal walks
// the scoreboard from first place down. Subtree sizes give O(log n) ranks.

type node struct {
	id    string
	score int64
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// before reports whether (aScore, aID) is placed ahead of (bScore, bID).
func before(aScore int64, aID string, bScore int64, bID string) bool {
	if aScore != bScore {
		return aScore > bScore
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, score int64, prio uint64) *node {
	if n == nil {
		return &node{id: id, score: score, prio: prio, size: 1}
	}
	if before(score, id, n.score, n.id) {
		n.left = insert(n.left, id, score, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, score, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func remove(n *node, id string, score int64) *node {
	if n == nil {
		return nil
	}
	switch {
	case score == n.score && id == n.id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = remove(n.right, id, score)
		} else {
			n = rotateLeft(n)
			n.left = remove(n.left, id, score)
		}
	case before(score, id, n.score, n.id):
		n.left = remove(n.left, id, score)
	default:
		n.right = remove(n.right, id, score)
	}
	fix(n)
	return n
}

// countAbove counts entries with a strictly higher score.
func countAbove(n *node, score int64) int {
	count := 0
	for n != nil {
		if n.score > score {
			count += 1 + nsize(n.left)
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// collect appends up to limit entries in scoreboard order.
func collect(n *node, limit int, out *[]types.Entry) {
	if n == nil || len(*out) >= limit {
		return
	}
	collect(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, types.Entry{AccountID: n.id, Score: n.score})
	}
	collect(n.right, limit, out)
}

// TreapStandings implements Standings with competition ranking: tied accounts
// share a rank and the next rank skips accordingly (1, 2, 2, 4).
type TreapStandings struct {
	mu   sync.RWMutex
	root *node
	byID map[string]int64
}

// NewTreapStandings creates an empty scoreboard.
func NewTreapStandings() *TreapStandings {
	return &TreapStandings{byID: make(map[string]int64)}
}

// Set implements Standings.
func (s *TreapStandings) Set(_ context.Context, accountID string, score int64) bool {
	s.mu.Lock()
	old, ok := s.byID[accountID]
	if ok && old == score {
		s.mu.Unlock()
		return false
	}
	if ok {
		s.root = remove(s.root, accountID, old)
	}
	s.byID[accountID] = score
	s.root = insert(s.root, accountID, score, rand.Uint64())
	count := len(s.byID)
	s.mu.Unlock()

	if !ok {
		metrics.UpdateStandingsAccounts(count)
	}
	return true
}

// Reset implements Standings.
func (s *TreapStandings) Reset(_ context.Context, scores []types.ScoreSummary) {
	var root *node
	byID := make(map[string]int64, len(scores))
	for _, sc := range scores {
		if old, ok := byID[sc.AccountID]; ok {
			root = remove(root, sc.AccountID, old)
		}
		byID[sc.AccountID] = sc.Total
		root = insert(root, sc.AccountID, sc.Total, rand.Uint64())
	}

	s.mu.Lock()
	s.root = root
	s.byID = byID
	s.mu.Unlock()
	metrics.UpdateStandingsAccounts(len(byID))
}

// Rank implements Standings.
func (s *TreapStandings) Rank(_ context.Context, accountID string) (types.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	score, ok := s.byID[accountID]
	if !ok {
		metrics.RecordErrorByComponent("standings", "not_found")
		return types.Entry{}, ErrNotFound
	}
	return types.Entry{
		Rank:      1 + countAbove(s.root, score),
		AccountID: accountID,
		Score:     score,
	}, nil
}

// TopN implements Standings.
func (s *TreapStandings) TopN(_ context.Context, n int) ([]types.Entry, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("standings", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	out := make([]types.Entry, 0, min(n, len(s.byID)))
	collect(s.root, n, &out)
	s.mu.RUnlock()

	for i := range out {
		if i > 0 && out[i].Score == out[i-1].Score {
			out[i].Rank = out[i-1].Rank
		} else {
			out[i].Rank = i + 1
		}
	}
	return out, nil
}

// Count implements Standings.
func (s *TreapStandings) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
