package game

import (
	"context"
	"time"

	"github.com/google/uuid"

	"three-truths/internal/store"
)

// watch re-derives state whenever the change feed fires or the poll
// interval elapses, whichever comes first. The poll is a required
// fallback: the push channel may silently drop, and both paths feed
// the same idempotent refresh, so they converge. Bursts of
// notifications collapse into one pending kick.
func (c *Client) watch(ctx context.Context, subscribe func(kick func()) (cancel func()), refresh func(context.Context) error) {
	kick := make(chan struct{}, 1)
	cancel := subscribe(func() {
		select {
		case kick <- struct{}{}:
		default:
		}
	})
	defer cancel()

	interval := time.Duration(c.cfg.PollIntervalMillis) * time.Millisecond
	for {
		if err := refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			// Transient read failure: absorbed, retried next tick.
			c.log.Warn().Err(err).Msg("state refresh failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-kick:
		case <-c.clock.After(interval):
		}
	}
}

// WatchLobby streams lobby snapshots to fn until ctx is done: every
// participant join and the lobby -> playing transition. Blocks; run
// on its own goroutine.
func (c *Client) WatchLobby(ctx context.Context, sessionID uuid.UUID, fn func(LobbyState)) {
	subscribe := func(kick func()) func() {
		cancelParticipants := c.store.Subscribe(store.TableParticipants, store.Filter{SessionID: sessionID}, func(store.Change) { kick() })
		cancelSessions := c.store.Subscribe(store.TableSessions, store.Filter{SessionID: sessionID}, func(store.Change) { kick() })
		return func() {
			cancelParticipants()
			cancelSessions()
		}
	}
	c.watch(ctx, subscribe, func(ctx context.Context) error {
		state, err := c.Lobby(ctx, sessionID)
		if err != nil {
			return err
		}
		fn(state)
		return nil
	})
}

// WatchVotes streams re-derived tallies to fn on every guess change.
// Blocks; run on its own goroutine.
func (c *Client) WatchVotes(ctx context.Context, roundID uuid.UUID, fn func(Tally)) {
	subscribe := func(kick func()) func() {
		return c.store.Subscribe(store.TableGuesses, store.Filter{RoundID: roundID}, func(store.Change) { kick() })
	}
	c.watch(ctx, subscribe, func(ctx context.Context) error {
		tally, err := c.GetTally(ctx, roundID)
		if err != nil {
			return err
		}
		fn(tally)
		return nil
	})
}
