package game

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"three-truths/internal/db"
	"three-truths/internal/store"
)

// CreateSession opens a new lobby.
func (c *Client) CreateSession(ctx context.Context) (db.GameSession, error) {
	session, err := c.store.CreateSession(ctx)
	if err != nil {
		return db.GameSession{}, err
	}
	c.recordEvent(ctx, "session_created", &session.ID, nil, nil, EventPayload{
		SessionID: session.ID.String(),
		Status:    session.Status,
	})
	return session, nil
}

// ListPlayers returns every known player, for the pick-an-existing-
// name join flow.
func (c *Client) ListPlayers(ctx context.Context) ([]db.Player, error) {
	return c.store.ListPlayers(ctx)
}

// JoinSession adds a player to a session, creating the player row
// first when joining under a new name. A duplicate join resolves to
// already-joined, not an error.
func (c *Client) JoinSession(ctx context.Context, sessionID, playerID uuid.UUID, playerName string) (db.Player, error) {
	if _, err := c.store.GetSession(ctx, sessionID); err != nil {
		return db.Player{}, fmt.Errorf("fetch session: %w", err)
	}

	var player db.Player
	var err error
	if playerID != uuid.Nil {
		player, err = c.store.GetPlayer(ctx, playerID)
		if err != nil {
			return db.Player{}, fmt.Errorf("fetch player: %w", err)
		}
	} else {
		name := strings.TrimSpace(playerName)
		if name == "" {
			return db.Player{}, errors.New("game: player name is empty")
		}
		player, err = c.store.CreatePlayer(ctx, name)
		if err != nil {
			return db.Player{}, err
		}
	}

	_, err = c.store.AddParticipant(ctx, sessionID, player.ID)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return player, nil
		}
		return db.Player{}, err
	}
	c.recordEvent(ctx, "player_joined", &sessionID, nil, &player.ID, EventPayload{
		SessionID: sessionID.String(),
		PlayerID:  player.ID.String(),
		Player:    player.Name,
	})
	return player, nil
}

// StartSession moves a lobby into play. Host-only by convention; the
// effect reaches every player through the session change feed. There
// is no path back to lobby.
func (c *Client) StartSession(ctx context.Context, sessionID uuid.UUID) (db.GameSession, error) {
	participants, err := c.store.ListParticipants(ctx, sessionID)
	if err != nil {
		return db.GameSession{}, fmt.Errorf("list participants: %w", err)
	}
	if len(participants) < c.cfg.MinPlayers {
		return db.GameSession{}, ErrNotEnoughPlayers
	}

	session, err := c.store.TransitionSession(ctx, sessionID, db.StatusLobby, db.StatusPlaying, c.clock.Now().UTC())
	if err != nil {
		if errors.Is(err, store.ErrInvalidTransition) {
			return db.GameSession{}, ErrAlreadyStarted
		}
		return db.GameSession{}, err
	}
	c.recordEvent(ctx, "session_started", &sessionID, nil, nil, EventPayload{
		SessionID: sessionID.String(),
		Status:    session.Status,
	})
	return session, nil
}

// Lobby snapshots a session and its participants.
func (c *Client) Lobby(ctx context.Context, sessionID uuid.UUID) (LobbyState, error) {
	session, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return LobbyState{}, fmt.Errorf("fetch session: %w", err)
	}
	participants, err := c.store.ListParticipants(ctx, sessionID)
	if err != nil {
		return LobbyState{}, fmt.Errorf("list participants: %w", err)
	}
	return LobbyState{Session: session, Participants: participants}, nil
}

// ParticipantPlayerIDs lists the player ids joined to a session, the
// input for non-voter resolution at the deadline.
func (c *Client) ParticipantPlayerIDs(ctx context.Context, sessionID uuid.UUID) ([]uuid.UUID, error) {
	participants, err := c.store.ListParticipants(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(participants))
	for _, participant := range participants {
		ids = append(ids, participant.PlayerID)
	}
	return ids, nil
}
