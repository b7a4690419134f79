package placement

import (
	"context"
	"errors"
	"fmt"
)

type invokeOutcome struct {
	placed []PlacedItem
	err    error
}

// Call is a strategy invocation started by Start.
type Call struct {
	strategy Strategy
	done     chan invokeOutcome
	exited   chan struct{}
}

// Start calls s.Place on its own goroutine with a copy of items and returns
// immediately. A panic in the strategy becomes ErrAlgorithm.
func Start(ctx context.Context, s Strategy, items []Item, space Space) *Call {
	c := &Call{
		strategy: s,
		done:     make(chan invokeOutcome, 1),
		exited:   make(chan struct{}),
	}
	in := cloneItems(items)

	go func() {
		defer close(c.exited)
		defer func() {
			if r := recover(); r != nil {
				c.done <- invokeOutcome{err: NewAlgorithmError(
					"invoke",
					fmt.Sprintf("strategy %q panicked", s.Name()),
					fmt.Errorf("%v", r),
				)}
			}
		}()
		placed, err := s.Place(ctx, in, space)
		c.done <- invokeOutcome{placed: placed, err: err}
	}()
	return c
}

// Wait returns the strategy's result, or fails as soon as ctx is done:
// ErrAlgorithmTimeout when its deadline passed, the context error otherwise.
// The returned slice is a copy of what the strategy produced.
func (c *Call) Wait(ctx context.Context) ([]PlacedItem, error) {
	select {
	case out := <-c.done:
		if out.err != nil {
			return nil, classify(c.strategy, out.err)
		}
		return clonePlaced(out.placed), nil
	case <-ctx.Done():
		return nil, contextFailure(ctx.Err())
	}
}

// Exited is closed once the strategy's Place has returned. After a timeout
// it may close later than Wait returns: a strategy that honors ctx stops
// shortly after, one that ignores it runs to completion.
func (c *Call) Exited() <-chan struct{} {
	return c.exited
}

// Invoke starts s and waits for it under ctx. See Start and Call.Wait.
func Invoke(ctx context.Context, s Strategy, items []Item, space Space) ([]PlacedItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, contextFailure(err)
	}
	return Start(ctx, s, items, space).Wait(ctx)
}

func classify(s Strategy, err error) error {
	var pe *PlacementError
	switch {
	case errors.As(err, &pe):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return NewTimeoutError("invoke", err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return NewAlgorithmError("invoke", fmt.Sprintf("strategy %q failed", s.Name()), err)
	}
}

func contextFailure(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError("invoke", err)
	}
	return err
}
