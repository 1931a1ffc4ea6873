package game

import (
	"context"
	"sort"

	"github.com/google/uuid"
)

// OverallStats aggregates per-player accuracy across every game ever
// played, sorted best first. Deadline non-votes count as incorrect
// guesses, same as they score in a round.
func (c *Client) OverallStats(ctx context.Context) ([]PlayerStat, error) {
	guesses, err := c.store.ListAllGuesses(ctx)
	if err != nil {
		return nil, err
	}
	players, err := c.store.ListPlayers(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(players))
	for _, player := range players {
		names[player.ID] = player.Name
	}

	byPlayer := make(map[uuid.UUID]*PlayerStat)
	for _, guess := range guesses {
		stat, ok := byPlayer[guess.PlayerID]
		if !ok {
			stat = &PlayerStat{PlayerID: guess.PlayerID, Name: names[guess.PlayerID]}
			byPlayer[guess.PlayerID] = stat
		}
		stat.TotalGuesses++
		if guess.IsCorrect {
			stat.CorrectGuesses++
		}
	}

	stats := make([]PlayerStat, 0, len(byPlayer))
	for _, stat := range byPlayer {
		if stat.TotalGuesses > 0 {
			stat.Accuracy = float64(stat.CorrectGuesses) / float64(stat.TotalGuesses) * 100
		}
		stats = append(stats, *stat)
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Accuracy != stats[j].Accuracy {
			return stats[i].Accuracy > stats[j].Accuracy
		}
		return stats[i].Name < stats[j].Name
	})
	return stats, nil
}
