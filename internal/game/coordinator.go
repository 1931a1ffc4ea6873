package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"three-truths/internal/db"
	"three-truths/internal/headlines"
	"three-truths/internal/store"
)

// EnsureRound returns the session's round, creating it if absent.
// Every connected client independently checks-and-creates on page
// load, so any number of callers may race; the (session,
// round_number) uniqueness constraint arbitrates, and losers adopt
// the winner's row. Afterward exactly one round exists and every
// caller holds the same row.
func (c *Client) EnsureRound(ctx context.Context, sessionID uuid.UUID) (Round, error) {
	record, err := c.store.LatestRound(ctx, sessionID)
	if err == nil {
		return roundFromRecord(record), nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return Round{}, fmt.Errorf("fetch round: %w", err)
	}

	used, err := c.store.UsedBatchIDs(ctx)
	if err != nil {
		return Round{}, fmt.Errorf("fetch used batches: %w", err)
	}
	exclude := make(map[string]struct{}, len(used))
	for _, id := range used {
		exclude[id] = struct{}{}
	}
	batch, err := c.supply.NextBatch(ctx, exclude)
	if err != nil {
		return Round{}, fmt.Errorf("headline supply: %w", err)
	}
	if batch.Lie() < 0 {
		return Round{}, fmt.Errorf("headline batch %s has no lie marked", batch.ID)
	}

	candidate := c.buildRound(sessionID, batch)
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		created, insertErr := c.store.InsertRound(ctx, candidate)
		if insertErr == nil {
			c.recordEvent(ctx, "round_created", &sessionID, &created.ID, nil, EventPayload{
				SessionID: sessionID.String(),
				RoundID:   created.ID.String(),
				BatchID:   created.BatchID,
			})
			return roundFromRecord(created), nil
		}
		if !errors.Is(insertErr, store.ErrConflict) {
			return Round{}, fmt.Errorf("insert round: %w", insertErr)
		}

		// Another client won the race. Back off before re-reading:
		// the winning row may not be visible yet.
		if err := c.retry.sleep(ctx, c.clock, attempt); err != nil {
			return Round{}, err
		}
		record, err = c.store.LatestRound(ctx, sessionID)
		if err == nil {
			c.log.Debug().
				Str("session_id", sessionID.String()).
				Str("round_id", record.ID.String()).
				Msg("adopted round created by another client")
			return roundFromRecord(record), nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return Round{}, fmt.Errorf("fetch round: %w", err)
		}
	}
	return Round{}, ErrRoundCreation
}

// buildRound shuffles the batch so the lie lands on a uniform slot,
// then records that slot as the correct answer.
func (c *Client) buildRound(sessionID uuid.UUID, batch headlines.Batch) db.GameRound {
	order := rand.Perm(4)
	var shuffled [4]headlines.Headline
	for i, from := range order {
		shuffled[i] = batch.Headlines[from]
	}
	liePosition := 0
	for i, h := range shuffled {
		if h.IsLie {
			liePosition = i + 1
			break
		}
	}
	return db.GameRound{
		GameSessionID: sessionID,
		RoundNumber:   1,
		BatchID:       batch.ID,
		Title1:        shuffled[0].Title,
		URL1:          shuffled[0].URL,
		Title2:        shuffled[1].Title,
		URL2:          shuffled[1].URL,
		Title3:        shuffled[2].Title,
		URL3:          shuffled[2].URL,
		Title4:        shuffled[3].Title,
		URL4:          shuffled[3].URL,
		CorrectAnswer: liePosition,
		StartedAt:     c.clock.Now().UTC(),
	}
}
