package store

import (
	"sync"

	"github.com/google/uuid"

	"three-truths/internal/db"
)

// broker fans committed changes out to subscribers. Delivery is
// asynchronous and unordered; consumers re-derive state from the
// store rather than trusting arrival order.
type broker struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscription
}

type subscription struct {
	table  string
	filter Filter
	fn     func(Change)
}

func newBroker() *broker {
	return &broker{subs: make(map[int]*subscription)}
}

func (b *broker) subscribe(table string, filter Filter, fn func(Change)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = &subscription{table: table, filter: filter, fn: fn}
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

func (b *broker) publish(change Change) {
	b.mu.Lock()
	matched := make([]func(Change), 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.table != change.Table {
			continue
		}
		if !matches(sub.filter, change.Row) {
			continue
		}
		matched = append(matched, sub.fn)
	}
	b.mu.Unlock()
	for _, fn := range matched {
		go fn(change)
	}
}

func matches(filter Filter, row any) bool {
	if filter.SessionID == uuid.Nil && filter.RoundID == uuid.Nil {
		return true
	}
	switch r := row.(type) {
	case db.GameSession:
		return filter.SessionID == uuid.Nil || r.ID == filter.SessionID
	case db.GameParticipant:
		return filter.SessionID == uuid.Nil || r.GameSessionID == filter.SessionID
	case db.GameRound:
		if filter.RoundID != uuid.Nil && r.ID == filter.RoundID {
			return true
		}
		return filter.SessionID != uuid.Nil && r.GameSessionID == filter.SessionID
	case db.PlayerGuess:
		return filter.RoundID == uuid.Nil || r.GameRoundID == filter.RoundID
	default:
		return false
	}
}
