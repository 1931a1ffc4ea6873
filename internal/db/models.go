package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Session status values. Transitions are one-way:
// lobby -> playing -> completed.
const (
	StatusLobby     = "lobby"
	StatusPlaying   = "playing"
	StatusCompleted = "completed"
)

type Player struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:64;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

type GameSession struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Status      string    `gorm:"size:32;not null"`
	CreatedAt   time.Time `gorm:"not null"`
	StartedAt   *time.Time
	CompletedAt *time.Time
}

type GameParticipant struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	GameSessionID uuid.UUID `gorm:"type:uuid;index;not null;uniqueIndex:idx_participants_session_player"`
	PlayerID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_participants_session_player"`
	JoinedAt      time.Time `gorm:"not null"`
}

// GameRound holds the four headline slots shown to every player.
// CorrectAnswer is the 1-based slot of the fabricated headline.
type GameRound struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	GameSessionID uuid.UUID `gorm:"type:uuid;index;not null;uniqueIndex:idx_rounds_session_number"`
	RoundNumber   int       `gorm:"not null;uniqueIndex:idx_rounds_session_number"`
	BatchID       string    `gorm:"size:64;not null;default:''"`
	Title1        string    `gorm:"size:280;not null"`
	URL1          string    `gorm:"size:512;not null;default:''"`
	Title2        string    `gorm:"size:280;not null"`
	URL2          string    `gorm:"size:512;not null;default:''"`
	Title3        string    `gorm:"size:280;not null"`
	URL3          string    `gorm:"size:512;not null;default:''"`
	Title4        string    `gorm:"size:280;not null"`
	URL4          string    `gorm:"size:512;not null;default:''"`
	CorrectAnswer int       `gorm:"not null"`
	StartedAt     time.Time `gorm:"not null"`
	EndedAt       *time.Time
}

// PlayerGuess records one vote per (round, player). Guess is a slot
// 1-4, or 0 when the deadline passed without a vote.
type PlayerGuess struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	GameRoundID uuid.UUID `gorm:"type:uuid;index;not null;uniqueIndex:idx_guesses_round_player"`
	PlayerID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_guesses_round_player"`
	Guess       int       `gorm:"not null"`
	IsCorrect   bool      `gorm:"not null"`
	GuessedAt   time.Time `gorm:"not null"`
}

type Event struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	GameSessionID *uuid.UUID `gorm:"type:uuid;index"`
	GameRoundID   *uuid.UUID `gorm:"type:uuid;index"`
	PlayerID      *uuid.UUID `gorm:"type:uuid;index"`
	Type          string     `gorm:"size:64;not null"`
	Payload       datatypes.JSON
	CreatedAt     time.Time `gorm:"not null"`
}

func (p *Player) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (s *GameSession) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (p *GameParticipant) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (r *GameRound) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (g *PlayerGuess) BeforeCreate(*gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

func (e *Event) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
