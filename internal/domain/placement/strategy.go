package placement

import (
	"context"
	"errors"
)

// Strategy computes positions and an order for a list of items in a space.
//
// Implementations must be deterministic and must number OrderID 1..N in the
// order they choose to place items. They should not retain the slices they
// are given.
type Strategy interface {
	Name() string
	Place(ctx context.Context, items []Item, space Space) ([]PlacedItem, error)
}

// PlaceFunc is the entry point an uploaded strategy declares.
type PlaceFunc func(items []Item, space Space) ([]PlacedItem, error)

// FuncStrategy adapts a PlaceFunc to the Strategy interface.
type FuncStrategy struct {
	name string
	fn   PlaceFunc
}

// NewFuncStrategy wraps fn under the given name.
func NewFuncStrategy(name string, fn PlaceFunc) (*FuncStrategy, error) {
	if fn == nil {
		return nil, errors.New("place function cannot be nil")
	}
	if name == "" {
		return nil, errors.New("strategy name cannot be empty")
	}
	return &FuncStrategy{name: name, fn: fn}, nil
}

// Name implements Strategy.
func (s *FuncStrategy) Name() string {
	return s.name
}

// Place implements Strategy. The context is only checked before the call;
// Invoke enforces the deadline.
func (s *FuncStrategy) Place(ctx context.Context, items []Item, space Space) ([]PlacedItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.fn(items, space)
}
