package game

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestRemaining(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name     string
		now      time.Time
		duration int
		want     int
	}{
		{"at start", start, 60, 60},
		{"one second left", start.Add(59 * time.Second), 60, 1},
		{"exactly expired", start.Add(60 * time.Second), 60, 0},
		{"past deadline", start.Add(61 * time.Second), 60, 0},
		{"sub-second elapsed floors", start.Add(1500 * time.Millisecond), 60, 59},
		{"fifteen second round", start.Add(7 * time.Second), 15, 8},
	}
	for _, tc := range cases {
		if got := Remaining(start, tc.duration, tc.now); got != tc.want {
			t.Errorf("%s: Remaining = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestRoundTimerFiresOnce(t *testing.T) {
	clock := clockwork.NewFakeClock()
	client, _ := newTestClient(t, WithClock(clock))
	session, _, _ := startedSession(t, client)
	round, err := client.EnsureRound(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("ensure round: %v", err)
	}

	timer := client.NewRoundTimer(round)
	var fired atomic.Int32
	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go timer.Watch(ctx, nil, func() {
		fired.Add(1)
		close(done)
	})

	for i := 0; i < 60; i++ {
		clock.BlockUntil(1)
		clock.Advance(time.Second)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timer never expired")
	}
	if got := fired.Load(); got != 1 {
		t.Fatalf("expired %d times, want 1", got)
	}

	// A second watch on the same timer must not fire again.
	finished := make(chan struct{})
	go func() {
		timer.Watch(ctx, nil, func() { fired.Add(1) })
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatalf("second watch did not return")
	}
	if got := fired.Load(); got != 1 {
		t.Fatalf("expiry callback ran %d times, want 1", got)
	}
}

func TestRemainingTimeUsesClientClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	client, _ := newTestClient(t, WithClock(clock))
	session, _, _ := startedSession(t, client)
	round, err := client.EnsureRound(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("ensure round: %v", err)
	}

	if got := client.RemainingTime(round); got != 60 {
		t.Fatalf("remaining at start = %d, want 60", got)
	}
	clock.Advance(25 * time.Second)
	if got := client.RemainingTime(round); got != 35 {
		t.Fatalf("remaining after 25s = %d, want 35", got)
	}
	clock.Advance(40 * time.Second)
	if got := client.RemainingTime(round); got != 0 {
		t.Fatalf("remaining after deadline = %d, want 0", got)
	}
}
