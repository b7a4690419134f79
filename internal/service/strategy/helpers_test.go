package strategy

import (
	"context"
	"sync"

	"github.com/phrazzld/boxpack-api/internal/domain/placement"
	"github.com/phrazzld/boxpack-api/internal/platform/sandbox"
)

// stubStrategy lets a test supply Place behavior inline.
type stubStrategy struct {
	name    string
	PlaceFn func(ctx context.Context, items []placement.Item, space placement.Space) ([]placement.PlacedItem, error)
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Place(ctx context.Context, items []placement.Item, space placement.Space) ([]placement.PlacedItem, error) {
	return s.PlaceFn(ctx, items, space)
}

// alongAxis places items one after another along the chosen axis.
func alongAxis(name string, axis byte) *stubStrategy {
	return &stubStrategy{name: name, PlaceFn: func(_ context.Context, items []placement.Item, _ placement.Space) ([]placement.PlacedItem, error) {
		placed := make([]placement.PlacedItem, 0, len(items))
		var offset float64
		for i, it := range items {
			var pos placement.Position
			switch axis {
			case 'x':
				pos.X = offset
				offset += it.Dimensions.X
			case 'z':
				pos.Z = offset
				offset += it.Dimensions.Z
			}
			placed = append(placed, placement.PlacedItem{
				OrderID:    i + 1,
				Name:       it.Name,
				Position:   pos,
				Dimensions: it.Dimensions,
				FaceUp:     it.FaceUp,
				Fragile:    it.Fragile,
			})
		}
		return placed, nil
	}}
}

// mockLoader is a CandidateLoader with a swappable LoadFn.
type mockLoader struct {
	LoadFn func(ctx context.Context, name string, source []byte) (*placement.FuncStrategy, error)
}

func (m *mockLoader) Load(ctx context.Context, name string, _ *sandbox.Manifest, source []byte) (placement.Strategy, error) {
	s, err := m.LoadFn(ctx, name, source)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// mockSourceStore records saves in memory.
type mockSourceStore struct {
	mu     sync.Mutex
	data   []byte
	saves  int
	LoadFn func(ctx context.Context) ([]byte, error)
	SaveFn func(ctx context.Context, source []byte) error
}

func (m *mockSourceStore) Load(ctx context.Context) ([]byte, error) {
	if m.LoadFn != nil {
		return m.LoadFn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data, nil
}

func (m *mockSourceStore) Save(ctx context.Context, source []byte) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, source)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.data = append([]byte(nil), source...)
	return nil
}

var twoItems = []placement.Item{
	{Name: "A", Dimensions: placement.Dimensions{X: 3, Y: 2, Z: 2}},
	{Name: "B", Dimensions: placement.Dimensions{X: 4, Y: 2, Z: 2}},
}

var tenCube = placement.Space{X: 10, Y: 10, Z: 10}
