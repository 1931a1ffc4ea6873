package game

import (
	"time"

	"github.com/google/uuid"

	"three-truths/internal/db"
)

// HeadlineSlot is one of the four positions shown to every player.
type HeadlineSlot struct {
	Position int
	Title    string
	URL      string
}

// Round is the game-layer view of a persisted round. Every client
// derives its display from the same stored row, so all players see
// the identical four headlines in the identical order.
type Round struct {
	ID            uuid.UUID
	SessionID     uuid.UUID
	Number        int
	BatchID       string
	Slots         [4]HeadlineSlot
	CorrectAnswer int
	StartedAt     time.Time
	EndedAt       *time.Time
}

// Tally aggregates the guess rows of a round. A guess of 0 counts
// toward NonVoterCount only.
type Tally struct {
	Counts        map[int]int
	NonVoterCount int
}

// Total is the number of guess rows the tally was derived from.
func (t Tally) Total() int {
	total := t.NonVoterCount
	for _, count := range t.Counts {
		total += count
	}
	return total
}

// PlayerResult is one player's outcome at reveal time.
type PlayerResult struct {
	PlayerID  uuid.UUID
	Guess     int
	IsCorrect bool
	Voted     bool
}

// PlayerStat is a cross-game accuracy row for the dashboard.
type PlayerStat struct {
	PlayerID       uuid.UUID
	Name           string
	TotalGuesses   int
	CorrectGuesses int
	Accuracy       float64
}

// LobbyState is a snapshot of a session and its participants.
type LobbyState struct {
	Session      db.GameSession
	Participants []db.GameParticipant
}

func roundFromRecord(record db.GameRound) Round {
	round := Round{
		ID:            record.ID,
		SessionID:     record.GameSessionID,
		Number:        record.RoundNumber,
		BatchID:       record.BatchID,
		CorrectAnswer: record.CorrectAnswer,
		StartedAt:     record.StartedAt,
		EndedAt:       record.EndedAt,
	}
	titles := [4]string{record.Title1, record.Title2, record.Title3, record.Title4}
	urls := [4]string{record.URL1, record.URL2, record.URL3, record.URL4}
	for i := 0; i < 4; i++ {
		round.Slots[i] = HeadlineSlot{Position: i + 1, Title: titles[i], URL: urls[i]}
	}
	return round
}
