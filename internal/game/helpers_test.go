package game

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"three-truths/internal/config"
	"three-truths/internal/db"
	"three-truths/internal/headlines"
	"three-truths/internal/store"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.RoundDurationSeconds = 60
	return cfg
}

func testBatches() []headlines.Batch {
	return []headlines.Batch{
		{
			ID: "test-batch-1",
			Headlines: [4]headlines.Headline{
				{Title: "True A", URL: "https://example.com/a"},
				{Title: "True B", URL: "https://example.com/b"},
				{Title: "True C", URL: "https://example.com/c"},
				{Title: "The Lie", IsLie: true},
			},
		},
		{
			ID: "test-batch-2",
			Headlines: [4]headlines.Headline{
				{Title: "True D", URL: "https://example.com/d"},
				{Title: "The Other Lie", IsLie: true},
				{Title: "True E", URL: "https://example.com/e"},
				{Title: "True F", URL: "https://example.com/f"},
			},
		},
	}
}

func newTestClient(t *testing.T, opts ...Option) (*Client, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	supply := headlines.NewStaticSupply(testBatches())
	return New(st, supply, testConfig(), opts...), st
}

// startedSession creates a session with two joined players and moves
// it into play.
func startedSession(t *testing.T, client *Client) (db.GameSession, db.Player, db.Player) {
	t.Helper()
	ctx := context.Background()
	session, err := client.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	ada, err := client.JoinSession(ctx, session.ID, uuid.Nil, "Ada")
	if err != nil {
		t.Fatalf("join Ada: %v", err)
	}
	ben, err := client.JoinSession(ctx, session.ID, uuid.Nil, "Ben")
	if err != nil {
		t.Fatalf("join Ben: %v", err)
	}
	session, err = client.StartSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	return session, ada, ben
}

// countingSupply counts NextBatch calls.
type countingSupply struct {
	inner headlines.Supply
	calls int
}

func (s *countingSupply) NextBatch(ctx context.Context, exclude map[string]struct{}) (headlines.Batch, error) {
	s.calls++
	return s.inner.NextBatch(ctx, exclude)
}

// malformedSupply returns a batch with no lie marked.
type malformedSupply struct{}

func (malformedSupply) NextBatch(context.Context, map[string]struct{}) (headlines.Batch, error) {
	return headlines.Batch{
		ID: "no-lie",
		Headlines: [4]headlines.Headline{
			{Title: "True A"}, {Title: "True B"}, {Title: "True C"}, {Title: "True D"},
		},
	}, nil
}

// conflictedStore forces InsertRound to lose every race while the
// winning row stays invisible, simulating store visibility lag.
type conflictedStore struct {
	store.Store
	inserts int
}

func (s *conflictedStore) InsertRound(context.Context, db.GameRound) (db.GameRound, error) {
	s.inserts++
	return db.GameRound{}, store.ErrConflict
}

func (s *conflictedStore) LatestRound(context.Context, uuid.UUID) (db.GameRound, error) {
	return db.GameRound{}, store.ErrNotFound
}

// laggedStore hides existing rounds for the first missedReads
// LatestRound calls, simulating store visibility lag after a
// conflicting insert.
type laggedStore struct {
	store.Store
	missedReads int
}

func (s *laggedStore) LatestRound(ctx context.Context, sessionID uuid.UUID) (db.GameRound, error) {
	if s.missedReads > 0 {
		s.missedReads--
		return db.GameRound{}, store.ErrNotFound
	}
	return s.Store.LatestRound(ctx, sessionID)
}

// racingStore makes the resolver's existence check report no guess
// while letting a real vote land before the follow-up insert, so the
// insert hits the uniqueness conflict.
type racingStore struct {
	store.Store
	onMiss func()
	raced  bool
}

func (s *racingStore) GetGuess(ctx context.Context, roundID, playerID uuid.UUID) (db.PlayerGuess, error) {
	if !s.raced {
		s.raced = true
		if s.onMiss != nil {
			s.onMiss()
		}
		return db.PlayerGuess{}, store.ErrNotFound
	}
	return s.Store.GetGuess(ctx, roundID, playerID)
}

func fastRetry(attempts int) RetryPolicy {
	return LinearRetryPolicy(attempts, time.Millisecond)
}
