// Package store is the persistence boundary for game state. All
// cross-client coordination happens through a Store: uniqueness
// constraints signal write races via ErrConflict, and change
// subscriptions fan out committed rows to interested clients.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"three-truths/internal/db"
)

var (
	// ErrConflict reports a unique-constraint violation on insert.
	// Callers recover by re-reading and adopting the winning row.
	ErrConflict = errors.New("store: unique constraint conflict")

	// ErrNotFound reports a missing row on a point lookup.
	ErrNotFound = errors.New("store: not found")

	// ErrInvalidTransition reports a session status update whose
	// precondition no longer holds. Status is monotonic:
	// lobby -> playing -> completed, never backward.
	ErrInvalidTransition = errors.New("store: invalid session transition")
)

// Table names used for change subscriptions.
const (
	TableSessions     = "game_sessions"
	TableParticipants = "game_participants"
	TableRounds       = "game_rounds"
	TableGuesses      = "player_guesses"
)

// Change event types.
const (
	ChangeInsert = "INSERT"
	ChangeUpdate = "UPDATE"
)

// Change carries the post-change row for a committed write.
type Change struct {
	Table string
	Type  string
	Row   any
}

// Filter scopes a subscription to rows belonging to one session or
// round. The zero value matches every row in the table.
type Filter struct {
	SessionID uuid.UUID
	RoundID   uuid.UUID
}

// Store is the durable record interface consumed by the game layer.
// Implementations must guarantee atomicity of single inserts/updates
// but no cross-row transactions; callers tolerate visibility lag
// between a conflicting insert and the subsequent re-read.
type Store interface {
	CreatePlayer(ctx context.Context, name string) (db.Player, error)
	GetPlayer(ctx context.Context, id uuid.UUID) (db.Player, error)
	ListPlayers(ctx context.Context) ([]db.Player, error)

	CreateSession(ctx context.Context) (db.GameSession, error)
	GetSession(ctx context.Context, id uuid.UUID) (db.GameSession, error)
	// TransitionSession updates status from -> to, stamping startedAt
	// or completedAt as appropriate. Returns ErrInvalidTransition if
	// the session is no longer in the from status.
	TransitionSession(ctx context.Context, id uuid.UUID, from, to string, at time.Time) (db.GameSession, error)

	// AddParticipant inserts a join record, returning ErrConflict if
	// the player already joined the session.
	AddParticipant(ctx context.Context, sessionID, playerID uuid.UUID) (db.GameParticipant, error)
	ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]db.GameParticipant, error)

	// InsertRound inserts a round row, returning ErrConflict if a
	// round with the same (session, round_number) already exists.
	InsertRound(ctx context.Context, round db.GameRound) (db.GameRound, error)
	// LatestRound returns the highest-numbered round of a session,
	// or ErrNotFound if none exists yet.
	LatestRound(ctx context.Context, sessionID uuid.UUID) (db.GameRound, error)
	GetRound(ctx context.Context, id uuid.UUID) (db.GameRound, error)
	// UsedBatchIDs returns the batch ids of every persisted round,
	// across all sessions.
	UsedBatchIDs(ctx context.Context) ([]string, error)
	// EndRound stamps ended_at once; later calls are no-ops.
	EndRound(ctx context.Context, roundID uuid.UUID, at time.Time) error

	// InsertGuess inserts a guess row, returning ErrConflict if the
	// player already has one for the round.
	InsertGuess(ctx context.Context, guess db.PlayerGuess) (db.PlayerGuess, error)
	// UpsertGuess inserts a guess row or, on conflict, overwrites the
	// existing row's guess, is_correct and guessed_at.
	UpsertGuess(ctx context.Context, guess db.PlayerGuess) (db.PlayerGuess, error)
	GetGuess(ctx context.Context, roundID, playerID uuid.UUID) (db.PlayerGuess, error)
	ListGuesses(ctx context.Context, roundID uuid.UUID) ([]db.PlayerGuess, error)
	ListAllGuesses(ctx context.Context) ([]db.PlayerGuess, error)

	// RecordEvent appends an audit row. Best-effort: callers log and
	// continue on failure.
	RecordEvent(ctx context.Context, event db.Event) error

	// Subscribe registers fn for committed changes to table matching
	// filter. fn runs on its own goroutine; arrival order across
	// changes is not guaranteed. Delivery is in-process only: writes
	// from other processes sharing the same database reach a
	// subscriber through its poll fallback, not this feed. The
	// returned func cancels the subscription.
	Subscribe(table string, filter Filter, fn func(Change)) (cancel func())
}
