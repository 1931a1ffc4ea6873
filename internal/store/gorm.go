package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"gorm.io/gorm"

	"three-truths/internal/db"
)

// GormStore implements Store over a relational database. Uniqueness
// constraints in the schema provide the conflict signal; the broker
// stands in for the backend's change feed.
type GormStore struct {
	conn   *gorm.DB
	broker *broker
}

func NewGormStore(conn *gorm.DB) *GormStore {
	return &GormStore{conn: conn, broker: newBroker()}
}

func (g *GormStore) CreatePlayer(ctx context.Context, name string) (db.Player, error) {
	record := db.Player{Name: name, CreatedAt: time.Now().UTC()}
	if err := g.conn.WithContext(ctx).Create(&record).Error; err != nil {
		return db.Player{}, fmt.Errorf("create player: %w", err)
	}
	return record, nil
}

func (g *GormStore) GetPlayer(ctx context.Context, id uuid.UUID) (db.Player, error) {
	var record db.Player
	if err := g.conn.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return db.Player{}, translateLookup(err)
	}
	return record, nil
}

func (g *GormStore) ListPlayers(ctx context.Context) ([]db.Player, error) {
	var records []db.Player
	if err := g.conn.WithContext(ctx).Order("name").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return records, nil
}

func (g *GormStore) CreateSession(ctx context.Context) (db.GameSession, error) {
	record := db.GameSession{Status: db.StatusLobby, CreatedAt: time.Now().UTC()}
	if err := g.conn.WithContext(ctx).Create(&record).Error; err != nil {
		return db.GameSession{}, fmt.Errorf("create session: %w", err)
	}
	g.broker.publish(Change{Table: TableSessions, Type: ChangeInsert, Row: record})
	return record, nil
}

func (g *GormStore) GetSession(ctx context.Context, id uuid.UUID) (db.GameSession, error) {
	var record db.GameSession
	if err := g.conn.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return db.GameSession{}, translateLookup(err)
	}
	return record, nil
}

func (g *GormStore) TransitionSession(ctx context.Context, id uuid.UUID, from, to string, at time.Time) (db.GameSession, error) {
	updates := map[string]any{"status": to}
	switch to {
	case db.StatusPlaying:
		updates["started_at"] = at
	case db.StatusCompleted:
		updates["completed_at"] = at
	}
	result := g.conn.WithContext(ctx).Model(&db.GameSession{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return db.GameSession{}, fmt.Errorf("transition session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return db.GameSession{}, ErrInvalidTransition
	}
	record, err := g.GetSession(ctx, id)
	if err != nil {
		return db.GameSession{}, err
	}
	g.broker.publish(Change{Table: TableSessions, Type: ChangeUpdate, Row: record})
	return record, nil
}

func (g *GormStore) AddParticipant(ctx context.Context, sessionID, playerID uuid.UUID) (db.GameParticipant, error) {
	record := db.GameParticipant{
		GameSessionID: sessionID,
		PlayerID:      playerID,
		JoinedAt:      time.Now().UTC(),
	}
	if err := g.conn.WithContext(ctx).Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return db.GameParticipant{}, ErrConflict
		}
		return db.GameParticipant{}, fmt.Errorf("add participant: %w", err)
	}
	g.broker.publish(Change{Table: TableParticipants, Type: ChangeInsert, Row: record})
	return record, nil
}

func (g *GormStore) ListParticipants(ctx context.Context, sessionID uuid.UUID) ([]db.GameParticipant, error) {
	var records []db.GameParticipant
	err := g.conn.WithContext(ctx).
		Where("game_session_id = ?", sessionID).
		Order("joined_at").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return records, nil
}

func (g *GormStore) InsertRound(ctx context.Context, round db.GameRound) (db.GameRound, error) {
	if err := g.conn.WithContext(ctx).Create(&round).Error; err != nil {
		if isUniqueViolation(err) {
			return db.GameRound{}, ErrConflict
		}
		return db.GameRound{}, fmt.Errorf("insert round: %w", err)
	}
	g.broker.publish(Change{Table: TableRounds, Type: ChangeInsert, Row: round})
	return round, nil
}

func (g *GormStore) LatestRound(ctx context.Context, sessionID uuid.UUID) (db.GameRound, error) {
	var record db.GameRound
	err := g.conn.WithContext(ctx).
		Where("game_session_id = ?", sessionID).
		Order("round_number DESC").
		First(&record).Error
	if err != nil {
		return db.GameRound{}, translateLookup(err)
	}
	return record, nil
}

func (g *GormStore) GetRound(ctx context.Context, id uuid.UUID) (db.GameRound, error) {
	var record db.GameRound
	if err := g.conn.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return db.GameRound{}, translateLookup(err)
	}
	return record, nil
}

func (g *GormStore) UsedBatchIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := g.conn.WithContext(ctx).Model(&db.GameRound{}).
		Where("batch_id <> ''").
		Distinct().
		Pluck("batch_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("used batch ids: %w", err)
	}
	return ids, nil
}

func (g *GormStore) EndRound(ctx context.Context, roundID uuid.UUID, at time.Time) error {
	err := g.conn.WithContext(ctx).Model(&db.GameRound{}).
		Where("id = ? AND ended_at IS NULL", roundID).
		Update("ended_at", at).Error
	if err != nil {
		return fmt.Errorf("end round: %w", err)
	}
	return nil
}

func (g *GormStore) InsertGuess(ctx context.Context, guess db.PlayerGuess) (db.PlayerGuess, error) {
	if err := g.conn.WithContext(ctx).Create(&guess).Error; err != nil {
		if isUniqueViolation(err) {
			return db.PlayerGuess{}, ErrConflict
		}
		return db.PlayerGuess{}, fmt.Errorf("insert guess: %w", err)
	}
	g.broker.publish(Change{Table: TableGuesses, Type: ChangeInsert, Row: guess})
	return guess, nil
}

func (g *GormStore) UpsertGuess(ctx context.Context, guess db.PlayerGuess) (db.PlayerGuess, error) {
	inserted, err := g.InsertGuess(ctx, guess)
	if err == nil {
		return inserted, nil
	}
	if !errors.Is(err, ErrConflict) {
		return db.PlayerGuess{}, err
	}
	// Another row won the insert; overwrite it in place. Backend
	// upsert keywords are avoided so both drivers behave identically.
	update := g.conn.WithContext(ctx).Model(&db.PlayerGuess{}).
		Where("game_round_id = ? AND player_id = ?", guess.GameRoundID, guess.PlayerID).
		Updates(map[string]any{
			"guess":      guess.Guess,
			"is_correct": guess.IsCorrect,
			"guessed_at": guess.GuessedAt,
		})
	if update.Error != nil {
		return db.PlayerGuess{}, fmt.Errorf("upsert guess: %w", update.Error)
	}
	record, err := g.GetGuess(ctx, guess.GameRoundID, guess.PlayerID)
	if err != nil {
		return db.PlayerGuess{}, err
	}
	g.broker.publish(Change{Table: TableGuesses, Type: ChangeUpdate, Row: record})
	return record, nil
}

func (g *GormStore) GetGuess(ctx context.Context, roundID, playerID uuid.UUID) (db.PlayerGuess, error) {
	var record db.PlayerGuess
	err := g.conn.WithContext(ctx).
		Where("game_round_id = ? AND player_id = ?", roundID, playerID).
		First(&record).Error
	if err != nil {
		return db.PlayerGuess{}, translateLookup(err)
	}
	return record, nil
}

func (g *GormStore) ListGuesses(ctx context.Context, roundID uuid.UUID) ([]db.PlayerGuess, error) {
	var records []db.PlayerGuess
	err := g.conn.WithContext(ctx).
		Where("game_round_id = ?", roundID).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list guesses: %w", err)
	}
	return records, nil
}

func (g *GormStore) ListAllGuesses(ctx context.Context) ([]db.PlayerGuess, error) {
	var records []db.PlayerGuess
	if err := g.conn.WithContext(ctx).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list all guesses: %w", err)
	}
	return records, nil
}

func (g *GormStore) RecordEvent(ctx context.Context, event db.Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if err := g.conn.WithContext(ctx).Create(&event).Error; err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	return nil
}

func (g *GormStore) Subscribe(table string, filter Filter, fn func(Change)) func() {
	return g.broker.subscribe(table, filter, fn)
}

func translateLookup(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
