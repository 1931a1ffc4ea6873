package game

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"three-truths/internal/db"
)

func TestCreateSessionStartsInLobby(t *testing.T) {
	client, _ := newTestClient(t)
	session, err := client.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.Status != db.StatusLobby {
		t.Fatalf("new session status %q, want %q", session.Status, db.StatusLobby)
	}
	if session.StartedAt != nil {
		t.Fatalf("new session already has started_at")
	}
}

func TestJoinSessionDuplicateIsAlreadyJoined(t *testing.T) {
	client, st := newTestClient(t)
	ctx := context.Background()
	session, err := client.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	ada, err := client.JoinSession(ctx, session.ID, uuid.Nil, "Ada")
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	again, err := client.JoinSession(ctx, session.ID, ada.ID, "")
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if again.ID != ada.ID {
		t.Fatalf("rejoin returned player %s, want %s", again.ID, ada.ID)
	}
	participants, err := st.ListParticipants(ctx, session.ID)
	if err != nil {
		t.Fatalf("list participants: %v", err)
	}
	if len(participants) != 1 {
		t.Fatalf("expected one participant row, got %d", len(participants))
	}
}

func TestJoinSessionExistingPlayer(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()
	first, err := client.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	ada, err := client.JoinSession(ctx, first.ID, uuid.Nil, "Ada")
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	// Same player joins a second game by id; no new player row.
	second, err := client.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create second session: %v", err)
	}
	joined, err := client.JoinSession(ctx, second.ID, ada.ID, "")
	if err != nil {
		t.Fatalf("join second: %v", err)
	}
	if joined.ID != ada.ID {
		t.Fatalf("joined as %s, want %s", joined.ID, ada.ID)
	}
	players, err := client.ListPlayers(ctx)
	if err != nil {
		t.Fatalf("list players: %v", err)
	}
	if len(players) != 1 {
		t.Fatalf("expected one player row, got %d", len(players))
	}
}

func TestJoinSessionEmptyName(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()
	session, err := client.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := client.JoinSession(ctx, session.ID, uuid.Nil, "   "); err == nil {
		t.Fatalf("expected error for blank name")
	}
}

func TestStartSessionNeedsTwoPlayers(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()
	session, err := client.CreateSession(ctx)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if _, err := client.JoinSession(ctx, session.ID, uuid.Nil, "Ada"); err != nil {
		t.Fatalf("join: %v", err)
	}

	_, err = client.StartSession(ctx, session.ID)
	if !errors.Is(err, ErrNotEnoughPlayers) {
		t.Fatalf("expected ErrNotEnoughPlayers, got %v", err)
	}
	// The rejection must not have touched the store.
	state, err := client.Lobby(ctx, session.ID)
	if err != nil {
		t.Fatalf("lobby: %v", err)
	}
	if state.Session.Status != db.StatusLobby {
		t.Fatalf("session left lobby on a rejected start: %q", state.Session.Status)
	}
}

func TestStartSessionTransitionsOnce(t *testing.T) {
	client, _ := newTestClient(t)
	session, _, _ := startedSession(t, client)
	if session.Status != db.StatusPlaying {
		t.Fatalf("status %q after start, want %q", session.Status, db.StatusPlaying)
	}
	if session.StartedAt == nil {
		t.Fatalf("started_at not stamped")
	}

	_, err := client.StartSession(context.Background(), session.ID)
	if !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second start: expected ErrAlreadyStarted, got %v", err)
	}
}
