package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"three-truths/internal/db"
	"three-truths/internal/store"
)

// SubmitVote records or changes a player's vote while the round is
// open. The latest write wins; voting repeatedly is not an error.
func (c *Client) SubmitVote(ctx context.Context, roundID, playerID uuid.UUID, position int) (PlayerResult, error) {
	if position < 1 || position > 4 {
		return PlayerResult{}, ErrInvalidPosition
	}
	record, err := c.store.GetRound(ctx, roundID)
	if err != nil {
		return PlayerResult{}, fmt.Errorf("fetch round: %w", err)
	}
	now := c.clock.Now().UTC()
	if record.EndedAt != nil || Remaining(record.StartedAt, c.cfg.RoundDurationSeconds, now) == 0 {
		return PlayerResult{}, ErrRoundClosed
	}

	guess := db.PlayerGuess{
		GameRoundID: roundID,
		PlayerID:    playerID,
		Guess:       position,
		IsCorrect:   position == record.CorrectAnswer,
		GuessedAt:   now,
	}
	saved, err := c.store.UpsertGuess(ctx, guess)
	if err != nil {
		return PlayerResult{}, fmt.Errorf("save vote: %w", err)
	}
	c.recordEvent(ctx, "vote_cast", &record.GameSessionID, &roundID, &playerID, EventPayload{
		RoundID:  roundID.String(),
		PlayerID: playerID.String(),
		Position: saved.Guess,
		Correct:  saved.IsCorrect,
	})
	return PlayerResult{PlayerID: playerID, Guess: saved.Guess, IsCorrect: saved.IsCorrect, Voted: true}, nil
}

// ResolveNonVoters records {guess: 0, incorrect} for every listed
// player without a guess row, then stamps the round's end. A real
// vote landing in the same instant wins the race: the conflicting
// insert is discarded and the stored vote kept. A vote is never
// downgraded to a non-vote.
func (c *Client) ResolveNonVoters(ctx context.Context, roundID uuid.UUID, playerIDs []uuid.UUID) error {
	now := c.clock.Now().UTC()
	resolved := 0
	for _, playerID := range playerIDs {
		_, err := c.store.GetGuess(ctx, roundID, playerID)
		if err == nil {
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("fetch guess: %w", err)
		}
		_, err = c.store.InsertGuess(ctx, db.PlayerGuess{
			GameRoundID: roundID,
			PlayerID:    playerID,
			Guess:       0,
			IsCorrect:   false,
			GuessedAt:   now,
		})
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				// The player voted while the deadline fired; their
				// row stands.
				continue
			}
			return fmt.Errorf("record non-vote: %w", err)
		}
		resolved++
	}
	if err := c.store.EndRound(ctx, roundID, now); err != nil {
		return err
	}
	c.recordEvent(ctx, "round_resolved", nil, &roundID, nil, EventPayload{
		RoundID:   roundID.String(),
		NonVoters: resolved,
	})
	return nil
}

// GetTally re-derives the vote counts from the full guess row set.
// Never patched incrementally, so a stale trigger converges to the
// same answer as a fresh one.
func (c *Client) GetTally(ctx context.Context, roundID uuid.UUID) (Tally, error) {
	guesses, err := c.store.ListGuesses(ctx, roundID)
	if err != nil {
		return Tally{}, fmt.Errorf("list guesses: %w", err)
	}
	tally := Tally{Counts: make(map[int]int)}
	for _, guess := range guesses {
		if guess.Guess == 0 {
			tally.NonVoterCount++
			continue
		}
		tally.Counts[guess.Guess]++
	}
	return tally, nil
}

// GetPlayerResult reads a player's stored outcome for the reveal.
func (c *Client) GetPlayerResult(ctx context.Context, roundID, playerID uuid.UUID) (PlayerResult, error) {
	guess, err := c.store.GetGuess(ctx, roundID, playerID)
	if errors.Is(err, store.ErrNotFound) {
		return PlayerResult{PlayerID: playerID}, nil
	}
	if err != nil {
		return PlayerResult{}, fmt.Errorf("fetch guess: %w", err)
	}
	return PlayerResult{
		PlayerID:  playerID,
		Guess:     guess.Guess,
		IsCorrect: guess.IsCorrect,
		Voted:     guess.Guess != 0,
	}, nil
}
