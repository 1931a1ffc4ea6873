package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"three-truths/internal/config"
	"three-truths/internal/db"
	"three-truths/internal/game"
	"three-truths/internal/headlines"
	"three-truths/internal/store"
)

// newSimulateCmd runs one scripted game end to end: a lobby, three
// players, racing round creation, votes, the deadline, and the
// reveal. Useful for exercising the coordination paths without a
// browser in sight.
func newSimulateCmd(v *viper.Viper) *cobra.Command {
	var (
		sqlitePath string
		duration   int
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play one scripted game against a local store",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulation(cmd.Context(), sqlitePath, duration, verbose)
		},
	}

	fs := cmd.Flags()
	fs.StringVar(&sqlitePath, "sqlite", "", "SQLite database path (default: in-memory store)")
	fs.IntVar(&duration, "round-seconds", 5, "round duration in seconds")
	fs.BoolVar(&verbose, "verbose", false, "debug logging")
	return cmd
}

func runSimulation(ctx context.Context, sqlitePath string, duration int, verbose bool) error {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if !verbose {
		log = log.Level(zerolog.InfoLevel)
	}

	var st store.Store
	if sqlitePath != "" {
		conn, err := db.OpenSQLite(sqlitePath)
		if err != nil {
			return err
		}
		if err := db.Migrate(conn); err != nil {
			return err
		}
		st = store.NewGormStore(conn)
	} else {
		st = store.NewMemoryStore()
	}

	cfg := config.Load()
	cfg.RoundDurationSeconds = duration
	supply := headlines.NewStaticSupply(headlines.DefaultBatches())

	// One Client per simulated browser tab.
	host := game.New(st, supply, cfg, game.WithLogger(log.With().Str("client", "host").Logger()))
	alice := game.New(st, supply, cfg, game.WithLogger(log.With().Str("client", "alice").Logger()))
	bob := game.New(st, supply, cfg, game.WithLogger(log.With().Str("client", "bob").Logger()))

	session, err := host.CreateSession(ctx)
	if err != nil {
		return err
	}
	log.Info().Str("session_id", session.ID.String()).Msg("session created")

	hostPlayer, err := host.JoinSession(ctx, session.ID, uuid.Nil, "Host")
	if err != nil {
		return err
	}
	alicePlayer, err := alice.JoinSession(ctx, session.ID, uuid.Nil, "Alice")
	if err != nil {
		return err
	}
	bobPlayer, err := bob.JoinSession(ctx, session.ID, uuid.Nil, "Bob")
	if err != nil {
		return err
	}

	if _, err := host.StartSession(ctx, session.ID); err != nil {
		return err
	}
	log.Info().Msg("session started")

	// All three tabs race to create the round.
	clients := []*game.Client{host, alice, bob}
	rounds := make([]game.Round, len(clients))
	var wg sync.WaitGroup
	errs := make([]error, len(clients))
	for i, client := range clients {
		wg.Add(1)
		go func(i int, client *game.Client) {
			defer wg.Done()
			rounds[i], errs[i] = client.EnsureRound(ctx, session.ID)
		}(i, client)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	round := rounds[0]
	for _, other := range rounds[1:] {
		if other.ID != round.ID {
			return fmt.Errorf("clients observed different rounds: %s vs %s", round.ID, other.ID)
		}
	}
	log.Info().Str("round_id", round.ID.String()).Msg("all clients agree on the round")
	for _, slot := range round.Slots {
		fmt.Printf("  %d. %s\n", slot.Position, slot.Title)
	}

	// Host and Alice vote; Bob never does.
	if _, err := host.SubmitVote(ctx, round.ID, hostPlayer.ID, round.CorrectAnswer); err != nil {
		return err
	}
	if _, err := alice.SubmitVote(ctx, round.ID, alicePlayer.ID, wrongAnswer(round)); err != nil {
		return err
	}

	// Each client's own timer fires its close sequence; non-voter
	// resolution is conflict-safe so running it three times is fine.
	timer := host.NewRoundTimer(round)
	done := make(chan struct{})
	go timer.Watch(ctx, func(remaining int) {
		log.Info().Int("remaining", remaining).Msg("tick")
	}, func() { close(done) })
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(duration+10) * time.Second):
		return fmt.Errorf("timer never expired")
	}

	playerIDs, err := host.ParticipantPlayerIDs(ctx, session.ID)
	if err != nil {
		return err
	}
	if err := host.ResolveNonVoters(ctx, round.ID, playerIDs); err != nil {
		return err
	}

	tally, err := host.GetTally(ctx, round.ID)
	if err != nil {
		return err
	}
	fmt.Printf("\nThe lie was headline %d.\n", round.CorrectAnswer)
	for position := 1; position <= 4; position++ {
		fmt.Printf("  headline %d: %d vote(s)\n", position, tally.Counts[position])
	}
	fmt.Printf("  did not vote: %d\n", tally.NonVoterCount)

	for _, player := range []db.Player{hostPlayer, alicePlayer, bobPlayer} {
		result, err := host.GetPlayerResult(ctx, round.ID, player.ID)
		if err != nil {
			return err
		}
		verdict := "incorrect"
		if result.IsCorrect {
			verdict = "correct"
		}
		if !result.Voted {
			verdict += " (did not vote)"
		}
		fmt.Printf("  %s: %s\n", player.Name, verdict)
	}

	stats, err := host.OverallStats(ctx)
	if err != nil {
		return err
	}
	fmt.Println("\nOverall stats:")
	for _, stat := range stats {
		fmt.Printf("  %s: %d/%d (%.0f%%)\n", stat.Name, stat.CorrectGuesses, stat.TotalGuesses, stat.Accuracy)
	}
	return nil
}

func wrongAnswer(round game.Round) int {
	if round.CorrectAnswer == 1 {
		return 2
	}
	return 1
}
