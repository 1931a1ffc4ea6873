package game

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Remaining computes the seconds left in a round from the shared
// started_at timestamp. Every client evaluates this independently
// against the same stored value, so displayed countdowns converge
// regardless of when each client started rendering.
func Remaining(startedAt time.Time, durationSeconds int, now time.Time) int {
	elapsed := int(now.Sub(startedAt).Milliseconds() / 1000)
	if remaining := durationSeconds - elapsed; remaining > 0 {
		return remaining
	}
	return 0
}

// RemainingTime is Remaining evaluated against the client's clock.
func (c *Client) RemainingTime(round Round) int {
	return Remaining(round.StartedAt, c.cfg.RoundDurationSeconds, c.clock.Now().UTC())
}

// RoundTimer drives one client's countdown for a round. The expiry
// callback runs exactly once per timer, gated by a local flag rather
// than shared state, so every client fires its own close sequence
// independently.
type RoundTimer struct {
	clock     clockwork.Clock
	startedAt time.Time
	duration  int

	mu    sync.Mutex
	fired bool
}

func (c *Client) NewRoundTimer(round Round) *RoundTimer {
	return &RoundTimer{
		clock:     c.clock,
		startedAt: round.StartedAt,
		duration:  c.cfg.RoundDurationSeconds,
	}
}

func (t *RoundTimer) Remaining() int {
	return Remaining(t.startedAt, t.duration, t.clock.Now().UTC())
}

// Watch ticks once per second until the deadline, then runs onExpire.
// Blocks until expiry or ctx cancellation; run it on its own
// goroutine. onTick may be nil.
func (t *RoundTimer) Watch(ctx context.Context, onTick func(remaining int), onExpire func()) {
	for {
		remaining := t.Remaining()
		if onTick != nil {
			onTick(remaining)
		}
		if remaining == 0 {
			t.expire(onExpire)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-t.clock.After(time.Second):
		}
	}
}

func (t *RoundTimer) expire(onExpire func()) {
	t.mu.Lock()
	alreadyFired := t.fired
	t.fired = true
	t.mu.Unlock()
	if !alreadyFired && onExpire != nil {
		onExpire()
	}
}
