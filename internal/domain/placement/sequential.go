package placement

import "context"

// SequentialName is the name reported by SequentialStrategy.
const SequentialName = "sequential-x"

// SequentialStrategy lays items out one after another along the x axis at
// y = 0, z = 0, in input order. It ignores FaceUp and Fragile, and it does not
// check that the row fits in the space; the executor's verifier rejects
// results that overflow.
type SequentialStrategy struct{}

// Name implements Strategy.
func (SequentialStrategy) Name() string {
	return SequentialName
}

// Place implements Strategy.
func (SequentialStrategy) Place(ctx context.Context, items []Item, _ Space) ([]PlacedItem, error) {
	placed := make([]PlacedItem, 0, len(items))
	var x float64
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		placed = append(placed, PlacedItem{
			OrderID:    i + 1,
			Name:       item.Name,
			Position:   Position{X: x},
			Dimensions: item.Dimensions,
			FaceUp:     item.FaceUp,
			Fragile:    item.Fragile,
		})
		x += item.Dimensions.X
	}
	return placed, nil
}
