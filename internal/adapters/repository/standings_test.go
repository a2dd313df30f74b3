package repository

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"testing"

	"github.com/okian/forfeit/internal/domain/types"
)

func TestTreapStandings_BasicOperations(t *testing.T) {
	ctx := context.Background()
	s := NewTreapStandings()

	if n := s.Count(ctx); n != 0 {
		t.Errorf("expected count 0, got %d", n)
	}
	if !s.Set(ctx, "acct-1", 70) {
		t.Error("expected first set to change the standings")
	}
	if s.Set(ctx, "acct-1", 70) {
		t.Error("expected identical set to be a no-op")
	}

	e, err := s.Rank(ctx, "acct-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Rank != 1 || e.Score != 70 {
		t.Errorf("unexpected entry %+v", e)
	}

	if _, err := s.Rank(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.TopN(ctx, 0); !errors.Is(err, ErrInvalidLimit) {
		t.Errorf("expected ErrInvalidLimit, got %v", err)
	}
}

func TestTreapStandings_ScoresCanDrop(t *testing.T) {
	ctx := context.Background()
	s := NewTreapStandings()
	s.Set(ctx, "acct-1", 100)
	s.Set(ctx, "acct-2", 90)

	// a penalty drops acct-1 below acct-2
	s.Set(ctx, "acct-1", 80)

	top, err := s.TopN(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []types.Entry{
		{Rank: 1, AccountID: "acct-2", Score: 90},
		{Rank: 2, AccountID: "acct-1", Score: 80},
	}
	if fmt.Sprint(top) != fmt.Sprint(want) {
		t.Errorf("got %v, want %v", top, want)
	}
	if s.Count(ctx) != 2 {
		t.Errorf("expected 2 accounts, got %d", s.Count(ctx))
	}
}

func TestTreapStandings_CompetitionRanking(t *testing.T) {
	ctx := context.Background()
	s := NewTreapStandings()
	s.Set(ctx, "d", 50)
	s.Set(ctx, "b", 80)
	s.Set(ctx, "a", 100)
	s.Set(ctx, "c", 80)
	s.Set(ctx, "e", -10)

	top, err := s.TopN(ctx, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantIDs := []string{"a", "b", "c", "d", "e"}
	wantRanks := []int{1, 2, 2, 4, 5}
	for i, e := range top {
		if e.AccountID != wantIDs[i] || e.Rank != wantRanks[i] {
			t.Errorf("position %d: got %+v, want id %s rank %d", i, e, wantIDs[i], wantRanks[i])
		}
	}

	for i, id := range wantIDs {
		e, err := s.Rank(ctx, id)
		if err != nil {
			t.Fatalf("rank %s: %v", id, err)
		}
		if e.Rank != wantRanks[i] {
			t.Errorf("rank %s: got %d, want %d", id, e.Rank, wantRanks[i])
		}
	}

	top, _ = s.TopN(ctx, 2)
	if len(top) != 2 || top[1].AccountID != "b" {
		t.Errorf("unexpected truncated top: %v", top)
	}
}

func TestTreapStandings_Reset(t *testing.T) {
	ctx := context.Background()
	s := NewTreapStandings()
	s.Set(ctx, "stale", 1000)

	s.Reset(ctx, []types.ScoreSummary{
		{AccountID: "acct-1", Total: 70},
		{AccountID: "acct-2", Total: 0},
	})

	if _, err := s.Rank(ctx, "stale"); !errors.Is(err, ErrNotFound) {
		t.Error("reset should drop accounts that are no longer present")
	}
	e, err := s.Rank(ctx, "acct-2")
	if err != nil || e.Rank != 2 {
		t.Errorf("unexpected rank for acct-2: %+v, %v", e, err)
	}
}

func TestTreapStandings_MatchesSortedOrder(t *testing.T) {
	ctx := context.Background()
	s := NewTreapStandings()
	rng := rand.New(rand.NewPCG(1, 2))

	scores := make(map[string]int64)
	for i := 0; i < 2000; i++ {
		id := fmt.Sprintf("acct-%03d", rng.IntN(300))
		score := rng.Int64N(200) - 50
		scores[id] = score
		s.Set(ctx, id, score)
	}

	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j]
	})

	top, err := s.TopN(ctx, len(ids))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(top) != len(ids) {
		t.Fatalf("expected %d entries, got %d", len(ids), len(top))
	}
	for i, e := range top {
		if e.AccountID != ids[i] {
			t.Fatalf("position %d: got %s, want %s", i, e.AccountID, ids[i])
		}
		r, _ := s.Rank(ctx, e.AccountID)
		if r.Rank != e.Rank {
			t.Fatalf("rank mismatch for %s: TopN %d, Rank %d", e.AccountID, e.Rank, r.Rank)
		}
	}
}

func TestTreapStandings_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewTreapStandings()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := fmt.Sprintf("acct-%d-%d", g, i%20)
				s.Set(ctx, id, int64(i))
				_, _ = s.TopN(ctx, 10)
				_, _ = s.Rank(ctx, id)
			}
		}(g)
	}
	wg.Wait()

	if n := s.Count(ctx); n != 160 {
		t.Errorf("expected 160 accounts, got %d", n)
	}
}
