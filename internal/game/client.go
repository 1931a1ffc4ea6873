// Package game owns the round synchronization and voting state
// machine. Clients in different processes coordinate exclusively
// through the store's uniqueness constraints and change feed; there
// is no authoritative server process.
package game

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"three-truths/internal/config"
	"three-truths/internal/db"
	"three-truths/internal/headlines"
	"three-truths/internal/store"
)

// Client is one participant's view of the game. Its local state is a
// read-through cache; every answer it gives is reconcilable by
// re-querying the store.
type Client struct {
	store  store.Store
	supply headlines.Supply
	cfg    config.Config
	clock  clockwork.Clock
	log    zerolog.Logger
	retry  RetryPolicy
}

type Option func(*Client)

func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) { c.retry = policy }
}

func New(st store.Store, supply headlines.Supply, cfg config.Config, opts ...Option) *Client {
	c := &Client{
		store:  st,
		supply: supply,
		cfg:    cfg,
		clock:  clockwork.NewRealClock(),
		log:    zerolog.Nop(),
		retry:  LinearRetryPolicy(cfg.RetryMaxAttempts, time.Duration(cfg.RetryBackoffMillis)*time.Millisecond),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EventPayload is the JSON body of an audit row.
type EventPayload struct {
	SessionID string `json:"session_id,omitempty"`
	RoundID   string `json:"round_id,omitempty"`
	PlayerID  string `json:"player_id,omitempty"`
	Player    string `json:"player,omitempty"`
	Status    string `json:"status,omitempty"`
	BatchID   string `json:"batch_id,omitempty"`
	Position  int    `json:"position,omitempty"`
	Correct   bool   `json:"correct,omitempty"`
	NonVoters int    `json:"non_voters,omitempty"`
}

// recordEvent appends an audit row. Failures are logged, never
// propagated.
func (c *Client) recordEvent(ctx context.Context, eventType string, sessionID, roundID, playerID *uuid.UUID, payload EventPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		c.log.Warn().Err(err).Str("type", eventType).Msg("event payload marshal failed")
		return
	}
	event := db.Event{
		GameSessionID: sessionID,
		GameRoundID:   roundID,
		PlayerID:      playerID,
		Type:          eventType,
		Payload:       body,
		CreatedAt:     c.clock.Now().UTC(),
	}
	if err := c.store.RecordEvent(ctx, event); err != nil {
		c.log.Warn().Err(err).Str("type", eventType).Msg("event record failed")
	}
}
