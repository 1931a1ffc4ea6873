package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"three-truths/internal/db"
)

// MemoryStore implements Store with mutex-guarded maps. It enforces
// the same uniqueness constraints as the schema and is used by tests
// and the simulator, where racing goroutines stand in for racing
// browser clients.
type MemoryStore struct {
	mu           sync.Mutex
	players      map[uuid.UUID]db.Player
	sessions     map[uuid.UUID]db.GameSession
	participants map[uuid.UUID]db.GameParticipant
	rounds       map[uuid.UUID]db.GameRound
	guesses      map[uuid.UUID]db.PlayerGuess
	events       []db.Event
	broker       *broker
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		players:      make(map[uuid.UUID]db.Player),
		sessions:     make(map[uuid.UUID]db.GameSession),
		participants: make(map[uuid.UUID]db.GameParticipant),
		rounds:       make(map[uuid.UUID]db.GameRound),
		guesses:      make(map[uuid.UUID]db.PlayerGuess),
		broker:       newBroker(),
	}
}

func (m *MemoryStore) CreatePlayer(_ context.Context, name string) (db.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record := db.Player{ID: uuid.New(), Name: name, CreatedAt: time.Now().UTC()}
	m.players[record.ID] = record
	return record, nil
}

func (m *MemoryStore) GetPlayer(_ context.Context, id uuid.UUID) (db.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.players[id]
	if !ok {
		return db.Player{}, ErrNotFound
	}
	return record, nil
}

func (m *MemoryStore) ListPlayers(_ context.Context) ([]db.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]db.Player, 0, len(m.players))
	for _, record := range m.players {
		list = append(list, record)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, nil
}

func (m *MemoryStore) CreateSession(_ context.Context) (db.GameSession, error) {
	m.mu.Lock()
	record := db.GameSession{ID: uuid.New(), Status: db.StatusLobby, CreatedAt: time.Now().UTC()}
	m.sessions[record.ID] = record
	m.mu.Unlock()
	m.broker.publish(Change{Table: TableSessions, Type: ChangeInsert, Row: record})
	return record, nil
}

func (m *MemoryStore) GetSession(_ context.Context, id uuid.UUID) (db.GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.sessions[id]
	if !ok {
		return db.GameSession{}, ErrNotFound
	}
	return record, nil
}

func (m *MemoryStore) TransitionSession(_ context.Context, id uuid.UUID, from, to string, at time.Time) (db.GameSession, error) {
	m.mu.Lock()
	record, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return db.GameSession{}, ErrNotFound
	}
	if record.Status != from {
		m.mu.Unlock()
		return db.GameSession{}, ErrInvalidTransition
	}
	record.Status = to
	switch to {
	case db.StatusPlaying:
		record.StartedAt = &at
	case db.StatusCompleted:
		record.CompletedAt = &at
	}
	m.sessions[id] = record
	m.mu.Unlock()
	m.broker.publish(Change{Table: TableSessions, Type: ChangeUpdate, Row: record})
	return record, nil
}

func (m *MemoryStore) AddParticipant(_ context.Context, sessionID, playerID uuid.UUID) (db.GameParticipant, error) {
	m.mu.Lock()
	for _, existing := range m.participants {
		if existing.GameSessionID == sessionID && existing.PlayerID == playerID {
			m.mu.Unlock()
			return db.GameParticipant{}, ErrConflict
		}
	}
	record := db.GameParticipant{
		ID:            uuid.New(),
		GameSessionID: sessionID,
		PlayerID:      playerID,
		JoinedAt:      time.Now().UTC(),
	}
	m.participants[record.ID] = record
	m.mu.Unlock()
	m.broker.publish(Change{Table: TableParticipants, Type: ChangeInsert, Row: record})
	return record, nil
}

func (m *MemoryStore) ListParticipants(_ context.Context, sessionID uuid.UUID) ([]db.GameParticipant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]db.GameParticipant, 0)
	for _, record := range m.participants {
		if record.GameSessionID == sessionID {
			list = append(list, record)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].JoinedAt.Before(list[j].JoinedAt) })
	return list, nil
}

func (m *MemoryStore) InsertRound(_ context.Context, round db.GameRound) (db.GameRound, error) {
	m.mu.Lock()
	for _, existing := range m.rounds {
		if existing.GameSessionID == round.GameSessionID && existing.RoundNumber == round.RoundNumber {
			m.mu.Unlock()
			return db.GameRound{}, ErrConflict
		}
	}
	if round.ID == uuid.Nil {
		round.ID = uuid.New()
	}
	m.rounds[round.ID] = round
	m.mu.Unlock()
	m.broker.publish(Change{Table: TableRounds, Type: ChangeInsert, Row: round})
	return round, nil
}

func (m *MemoryStore) LatestRound(_ context.Context, sessionID uuid.UUID) (db.GameRound, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest db.GameRound
	found := false
	for _, record := range m.rounds {
		if record.GameSessionID != sessionID {
			continue
		}
		if !found || record.RoundNumber > latest.RoundNumber {
			latest = record
			found = true
		}
	}
	if !found {
		return db.GameRound{}, ErrNotFound
	}
	return latest, nil
}

func (m *MemoryStore) GetRound(_ context.Context, id uuid.UUID) (db.GameRound, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.rounds[id]
	if !ok {
		return db.GameRound{}, ErrNotFound
	}
	return record, nil
}

func (m *MemoryStore) UsedBatchIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for _, record := range m.rounds {
		if record.BatchID == "" {
			continue
		}
		if _, ok := seen[record.BatchID]; ok {
			continue
		}
		seen[record.BatchID] = struct{}{}
		ids = append(ids, record.BatchID)
	}
	return ids, nil
}

func (m *MemoryStore) EndRound(_ context.Context, roundID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.rounds[roundID]
	if !ok {
		return ErrNotFound
	}
	if record.EndedAt == nil {
		record.EndedAt = &at
		m.rounds[roundID] = record
	}
	return nil
}

func (m *MemoryStore) InsertGuess(_ context.Context, guess db.PlayerGuess) (db.PlayerGuess, error) {
	m.mu.Lock()
	for _, existing := range m.guesses {
		if existing.GameRoundID == guess.GameRoundID && existing.PlayerID == guess.PlayerID {
			m.mu.Unlock()
			return db.PlayerGuess{}, ErrConflict
		}
	}
	if guess.ID == uuid.Nil {
		guess.ID = uuid.New()
	}
	m.guesses[guess.ID] = guess
	m.mu.Unlock()
	m.broker.publish(Change{Table: TableGuesses, Type: ChangeInsert, Row: guess})
	return guess, nil
}

func (m *MemoryStore) UpsertGuess(_ context.Context, guess db.PlayerGuess) (db.PlayerGuess, error) {
	m.mu.Lock()
	for id, existing := range m.guesses {
		if existing.GameRoundID == guess.GameRoundID && existing.PlayerID == guess.PlayerID {
			existing.Guess = guess.Guess
			existing.IsCorrect = guess.IsCorrect
			existing.GuessedAt = guess.GuessedAt
			m.guesses[id] = existing
			m.mu.Unlock()
			m.broker.publish(Change{Table: TableGuesses, Type: ChangeUpdate, Row: existing})
			return existing, nil
		}
	}
	if guess.ID == uuid.Nil {
		guess.ID = uuid.New()
	}
	m.guesses[guess.ID] = guess
	m.mu.Unlock()
	m.broker.publish(Change{Table: TableGuesses, Type: ChangeInsert, Row: guess})
	return guess, nil
}

func (m *MemoryStore) GetGuess(_ context.Context, roundID, playerID uuid.UUID) (db.PlayerGuess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, record := range m.guesses {
		if record.GameRoundID == roundID && record.PlayerID == playerID {
			return record, nil
		}
	}
	return db.PlayerGuess{}, ErrNotFound
}

func (m *MemoryStore) ListGuesses(_ context.Context, roundID uuid.UUID) ([]db.PlayerGuess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]db.PlayerGuess, 0)
	for _, record := range m.guesses {
		if record.GameRoundID == roundID {
			list = append(list, record)
		}
	}
	return list, nil
}

func (m *MemoryStore) ListAllGuesses(_ context.Context) ([]db.PlayerGuess, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]db.PlayerGuess, 0, len(m.guesses))
	for _, record := range m.guesses {
		list = append(list, record)
	}
	return list, nil
}

func (m *MemoryStore) RecordEvent(_ context.Context, event db.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of the audit log, oldest first.
func (m *MemoryStore) Events() []db.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]db.Event, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MemoryStore) Subscribe(table string, filter Filter, fn func(Change)) func() {
	return m.broker.subscribe(table, filter, fn)
}
