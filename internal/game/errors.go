package game

import "errors"

var (
	// ErrRoundCreation reports that the insert/re-read retry loop ran
	// out of attempts without either creating a round or observing the
	// winner's. Surfaced to the user; retrying is a manual action.
	ErrRoundCreation = errors.New("game: round creation failed after retries")

	// ErrNotEnoughPlayers rejects a start request below the minimum
	// player count. No store mutation is attempted.
	ErrNotEnoughPlayers = errors.New("game: not enough players to start")

	// ErrAlreadyStarted rejects a start request for a session that
	// already left the lobby.
	ErrAlreadyStarted = errors.New("game: session already started")

	// ErrRoundClosed rejects a vote after the round deadline.
	ErrRoundClosed = errors.New("game: round is closed")

	// ErrInvalidPosition rejects a vote outside slots 1-4.
	ErrInvalidPosition = errors.New("game: vote position must be between 1 and 4")
)
