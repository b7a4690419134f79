package placement

import (
	"fmt"
	"math"
)

// Dimensions are the extents of a box along each axis. X is width, Y is
// height (the vertical axis) and Z is depth.
type Dimensions struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Volume returns X*Y*Z.
func (d Dimensions) Volume() float64 {
	return d.X * d.Y * d.Z
}

// Validate checks that every extent is a finite positive number.
func (d Dimensions) Validate() error {
	for _, v := range [3]float64{d.X, d.Y, d.Z} {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("dimensions must be positive, got %v", d)
		}
	}
	return nil
}

// Position is the minimum corner of a placed box.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Space is the bounded region items are packed into. Its origin is (0, 0, 0).
type Space struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Validate returns ErrInvalidSpace unless all three extents are positive.
func (s Space) Validate() error {
	if err := (Dimensions{X: s.X, Y: s.Y, Z: s.Z}).Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSpace, err)
	}
	return nil
}

// Item is one thing to be packed. Items carry no position or order.
type Item struct {
	Name       string     `json:"name"`
	Dimensions Dimensions `json:"dimensions"`
	FaceUp     bool       `json:"face_up"`
	Fragile    bool       `json:"fragile"`
}

// Validate checks the item's name and dimensions.
func (i Item) Validate() error {
	if i.Name == "" {
		return ErrEmptyItemName
	}
	if err := i.Dimensions.Validate(); err != nil {
		return fmt.Errorf("%w: item %q: %v", ErrInvalidItem, i.Name, err)
	}
	return nil
}

// PlacedItem is an Item with an assigned order and position. Its bounding box
// is [Position, Position+Dimensions].
type PlacedItem struct {
	OrderID    int        `json:"order_id"`
	Name       string     `json:"name"`
	Position   Position   `json:"position"`
	Dimensions Dimensions `json:"dimensions"`
	FaceUp     bool       `json:"face_up"`
	Fragile    bool       `json:"fragile"`
}

// Max returns the far corner of the item's bounding box.
func (p PlacedItem) Max() Position {
	return Position{
		X: p.Position.X + p.Dimensions.X,
		Y: p.Position.Y + p.Dimensions.Y,
		Z: p.Position.Z + p.Dimensions.Z,
	}
}

// Result is the verified output of one placement call together with the
// identity of the strategy version that produced it.
type Result struct {
	Items           []PlacedItem `json:"items"`
	StrategyName    string       `json:"strategy_name"`
	StrategyVersion uint64       `json:"strategy_version"`
}

// ValidateInput checks a space and item list before they are handed to a
// strategy. An empty item list is valid.
func ValidateInput(items []Item, space Space) error {
	if err := space.Validate(); err != nil {
		return err
	}
	for idx, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("items[%d]: %w", idx, err)
		}
	}
	return nil
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

func clonePlaced(placed []PlacedItem) []PlacedItem {
	if placed == nil {
		return nil
	}
	out := make([]PlacedItem, len(placed))
	copy(out, placed)
	return out
}
