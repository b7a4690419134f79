package mocks

import (
	"context"
	"sync/atomic"

	"github.com/phrazzld/boxpack-api/internal/domain/placement"
)

// MockPlacer stands in for the placement executor. Without PlaceFn it runs
// the sequential strategy and reports it as version 1.
type MockPlacer struct {
	PlaceFn func(ctx context.Context, items []placement.Item, space placement.Space) (*placement.Result, error)

	Calls atomic.Int32
}

// Place records the call and returns a placement result.
func (m *MockPlacer) Place(ctx context.Context, items []placement.Item, space placement.Space) (*placement.Result, error) {
	m.Calls.Add(1)
	if m.PlaceFn != nil {
		return m.PlaceFn(ctx, items, space)
	}

	placed, err := placement.SequentialStrategy{}.Place(ctx, items, space)
	if err != nil {
		return nil, err
	}
	return &placement.Result{
		Items:           placed,
		StrategyName:    placement.SequentialName,
		StrategyVersion: 1,
	}, nil
}
