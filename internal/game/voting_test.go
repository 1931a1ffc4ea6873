package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

func TestSubmitVoteUpsertsLatest(t *testing.T) {
	client, st := newTestClient(t)
	session, ada, _ := startedSession(t, client)
	ctx := context.Background()
	round, err := client.EnsureRound(ctx, session.ID)
	if err != nil {
		t.Fatalf("ensure round: %v", err)
	}

	first, err := client.SubmitVote(ctx, round.ID, ada.ID, round.CorrectAnswer)
	if err != nil {
		t.Fatalf("first vote: %v", err)
	}
	if !first.IsCorrect {
		t.Fatalf("vote on correct answer marked incorrect")
	}

	changed, err := client.SubmitVote(ctx, round.ID, ada.ID, wrongPosition(round))
	if err != nil {
		t.Fatalf("changed vote: %v", err)
	}
	if changed.IsCorrect {
		t.Fatalf("vote on wrong answer marked correct")
	}

	guesses, err := st.ListGuesses(ctx, round.ID)
	if err != nil {
		t.Fatalf("list guesses: %v", err)
	}
	if len(guesses) != 1 {
		t.Fatalf("expected one guess row, got %d", len(guesses))
	}
	if guesses[0].Guess != wrongPosition(round) {
		t.Fatalf("stored guess %d, want %d", guesses[0].Guess, wrongPosition(round))
	}
}

func TestSubmitVoteConcurrentSamePlayer(t *testing.T) {
	client, st := newTestClient(t)
	session, ada, _ := startedSession(t, client)
	ctx := context.Background()
	round, err := client.EnsureRound(ctx, session.ID)
	if err != nil {
		t.Fatalf("ensure round: %v", err)
	}

	var wg sync.WaitGroup
	for position := 1; position <= 4; position++ {
		wg.Add(1)
		go func(position int) {
			defer wg.Done()
			if _, err := client.SubmitVote(ctx, round.ID, ada.ID, position); err != nil {
				t.Errorf("vote %d: %v", position, err)
			}
		}(position)
	}
	wg.Wait()

	guesses, err := st.ListGuesses(ctx, round.ID)
	if err != nil {
		t.Fatalf("list guesses: %v", err)
	}
	if len(guesses) != 1 {
		t.Fatalf("expected one guess row after concurrent votes, got %d", len(guesses))
	}
	if guesses[0].Guess < 1 || guesses[0].Guess > 4 {
		t.Fatalf("stored guess out of range: %d", guesses[0].Guess)
	}
}

func TestSubmitVoteInvalidPosition(t *testing.T) {
	client, _ := newTestClient(t)
	session, ada, _ := startedSession(t, client)
	ctx := context.Background()
	round, err := client.EnsureRound(ctx, session.ID)
	if err != nil {
		t.Fatalf("ensure round: %v", err)
	}
	for _, position := range []int{0, 5, -1} {
		if _, err := client.SubmitVote(ctx, round.ID, ada.ID, position); !errors.Is(err, ErrInvalidPosition) {
			t.Fatalf("position %d: expected ErrInvalidPosition, got %v", position, err)
		}
	}
}

func TestSubmitVoteAfterDeadline(t *testing.T) {
	clock := clockwork.NewFakeClock()
	client, _ := newTestClient(t, WithClock(clock))
	session, ada, _ := startedSession(t, client)
	ctx := context.Background()
	round, err := client.EnsureRound(ctx, session.ID)
	if err != nil {
		t.Fatalf("ensure round: %v", err)
	}

	clock.Advance(61 * time.Second)
	if _, err := client.SubmitVote(ctx, round.ID, ada.ID, 1); !errors.Is(err, ErrRoundClosed) {
		t.Fatalf("expected ErrRoundClosed, got %v", err)
	}
}

func TestResolveNonVoters(t *testing.T) {
	client, _ := newTestClient(t)
	session, ada, ben := startedSession(t, client)
	ctx := context.Background()
	round, err := client.EnsureRound(ctx, session.ID)
	if err != nil {
		t.Fatalf("ensure round: %v", err)
	}

	if _, err := client.SubmitVote(ctx, round.ID, ada.ID, round.CorrectAnswer); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := client.ResolveNonVoters(ctx, round.ID, []uuid.UUID{ada.ID, ben.ID}); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	adaResult, err := client.GetPlayerResult(ctx, round.ID, ada.ID)
	if err != nil {
		t.Fatalf("ada result: %v", err)
	}
	if !adaResult.Voted || !adaResult.IsCorrect {
		t.Fatalf("ada's real vote was downgraded: %+v", adaResult)
	}
	benResult, err := client.GetPlayerResult(ctx, round.ID, ben.ID)
	if err != nil {
		t.Fatalf("ben result: %v", err)
	}
	if benResult.Voted || benResult.IsCorrect || benResult.Guess != 0 {
		t.Fatalf("expected recorded non-vote for ben, got %+v", benResult)
	}
}

func TestResolveNonVotersRaceKeepsRealVote(t *testing.T) {
	client, st := newTestClient(t)
	session, ada, _ := startedSession(t, client)
	ctx := context.Background()
	round, err := client.EnsureRound(ctx, session.ID)
	if err != nil {
		t.Fatalf("ensure round: %v", err)
	}

	// The vote lands between the resolver's existence check and its
	// insert: the insert conflicts and the real vote must survive.
	raced := &racingStore{Store: st, onMiss: func() {
		if _, err := client.SubmitVote(ctx, round.ID, ada.ID, round.CorrectAnswer); err != nil {
			t.Errorf("racing vote: %v", err)
		}
	}}
	resolver := New(raced, nil, testConfig())
	if err := resolver.ResolveNonVoters(ctx, round.ID, []uuid.UUID{ada.ID}); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	result, err := client.GetPlayerResult(ctx, round.ID, ada.ID)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if !result.Voted || result.Guess != round.CorrectAnswer {
		t.Fatalf("real vote downgraded to non-vote: %+v", result)
	}
}

func TestResolveNonVotersIdempotent(t *testing.T) {
	client, st := newTestClient(t)
	session, ada, ben := startedSession(t, client)
	ctx := context.Background()
	round, err := client.EnsureRound(ctx, session.ID)
	if err != nil {
		t.Fatalf("ensure round: %v", err)
	}

	ids := []uuid.UUID{ada.ID, ben.ID}
	// Every client fires its own close sequence; running the
	// resolution repeatedly must not add rows.
	for i := 0; i < 3; i++ {
		if err := client.ResolveNonVoters(ctx, round.ID, ids); err != nil {
			t.Fatalf("resolve %d: %v", i, err)
		}
	}
	guesses, err := st.ListGuesses(ctx, round.ID)
	if err != nil {
		t.Fatalf("list guesses: %v", err)
	}
	if len(guesses) != 2 {
		t.Fatalf("expected 2 guess rows, got %d", len(guesses))
	}
}

func TestTallyConsistency(t *testing.T) {
	client, st := newTestClient(t)
	session, ada, ben := startedSession(t, client)
	ctx := context.Background()
	cam, err := client.JoinSession(ctx, session.ID, uuid.Nil, "Cam")
	if err != nil {
		t.Fatalf("join Cam: %v", err)
	}
	round, err := client.EnsureRound(ctx, session.ID)
	if err != nil {
		t.Fatalf("ensure round: %v", err)
	}

	if _, err := client.SubmitVote(ctx, round.ID, ada.ID, round.CorrectAnswer); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if _, err := client.SubmitVote(ctx, round.ID, ben.ID, round.CorrectAnswer); err != nil {
		t.Fatalf("vote: %v", err)
	}
	if err := client.ResolveNonVoters(ctx, round.ID, []uuid.UUID{ada.ID, ben.ID, cam.ID}); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	tally, err := client.GetTally(ctx, round.ID)
	if err != nil {
		t.Fatalf("tally: %v", err)
	}
	guesses, err := st.ListGuesses(ctx, round.ID)
	if err != nil {
		t.Fatalf("list guesses: %v", err)
	}
	if tally.Total() != len(guesses) {
		t.Fatalf("tally total %d != guess rows %d", tally.Total(), len(guesses))
	}
	if tally.Counts[round.CorrectAnswer] != 2 {
		t.Fatalf("expected 2 votes on the lie, got %d", tally.Counts[round.CorrectAnswer])
	}
	if tally.NonVoterCount != 1 {
		t.Fatalf("expected 1 non-voter, got %d", tally.NonVoterCount)
	}
}

func wrongPosition(round Round) int {
	if round.CorrectAnswer == 1 {
		return 2
	}
	return 1
}
