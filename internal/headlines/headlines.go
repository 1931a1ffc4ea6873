// Package headlines supplies batches of four news headlines, three
// real and one fabricated, for rounds of the game.
package headlines

import (
	"context"
	"errors"
)

// ErrExhausted reports that every batch the supply knows about has
// already been used. Not retryable: no amount of retrying produces
// more content.
var ErrExhausted = errors.New("headlines: no unused batch remains")

type Headline struct {
	Title string
	URL   string
	IsLie bool
}

// Batch is one round's worth of headlines. Exactly one entry has
// IsLie set. ID identifies the batch for cross-game dedup.
type Batch struct {
	ID        string
	Headlines [4]Headline
}

// Supply returns headline batches, skipping ids in exclude.
type Supply interface {
	NextBatch(ctx context.Context, exclude map[string]struct{}) (Batch, error)
}

// Lie returns the index of the fabricated headline, or -1 if the
// batch is malformed.
func (b Batch) Lie() int {
	for i, h := range b.Headlines {
		if h.IsLie {
			return i
		}
	}
	return -1
}
