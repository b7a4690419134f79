package store

import "context"

// StrategySourceStore keeps the source of the most recently accepted
// candidate strategy.
type StrategySourceStore interface {
	// Load returns the stored source, or ErrStrategyNotFound if nothing has
	// been stored.
	Load(ctx context.Context) ([]byte, error)

	// Save replaces the stored source. A reader never observes a partially
	// written source: it sees either the previous or the new one.
	Save(ctx context.Context, source []byte) error
}
