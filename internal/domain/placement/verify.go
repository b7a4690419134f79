package placement

import (
	"fmt"
	"math"
	"sort"
)

// Tolerance used for all floating point comparisons in Verify.
const epsilon = 1e-9

// Verify checks placed against the items and space it was computed for and
// returns a *ViolationError listing every broken invariant, or nil.
//
// It does not trust anything the strategy reports: the item count, order
// numbering, containment, pairwise overlap, fragile columns and orientation
// are all recomputed here.
func Verify(items []Item, space Space, placed []PlacedItem) error {
	var vs []Violation

	vs = append(vs, checkOrderIDs(len(items), placed)...)
	vs = append(vs, checkCorrespondence(items, placed)...)
	vs = append(vs, checkContainment(space, placed)...)
	vs = append(vs, checkOverlap(placed)...)
	vs = append(vs, checkFragile(placed)...)

	if len(vs) > 0 {
		return &ViolationError{Violations: vs}
	}
	return nil
}

func checkOrderIDs(n int, placed []PlacedItem) []Violation {
	var vs []Violation
	seen := make(map[int]bool, len(placed))
	for _, p := range placed {
		if p.OrderID < 1 || p.OrderID > n {
			vs = append(vs, Violation{
				Invariant: InvariantOrderID,
				OrderIDs:  []int{p.OrderID},
				Detail:    fmt.Sprintf("order id out of range 1..%d", n),
			})
			continue
		}
		if seen[p.OrderID] {
			vs = append(vs, Violation{
				Invariant: InvariantOrderID,
				OrderIDs:  []int{p.OrderID},
				Detail:    "order id used more than once",
			})
		}
		seen[p.OrderID] = true
	}
	for id := 1; id <= n; id++ {
		if !seen[id] {
			vs = append(vs, Violation{
				Invariant: InvariantOrderID,
				OrderIDs:  []int{id},
				Detail:    "order id missing",
			})
		}
	}
	return vs
}

// checkCorrespondence pairs every placed item with a distinct input item of
// the same name and flags whose dimensions are a permutation of the placed
// ones. FaceUp items must also keep their Y extent.
func checkCorrespondence(items []Item, placed []PlacedItem) []Violation {
	var vs []Violation
	if len(items) != len(placed) {
		vs = append(vs, Violation{
			Invariant: InvariantCorrespondence,
			Detail:    fmt.Sprintf("expected %d placed items, got %d", len(items), len(placed)),
		})
	}

	used := make([]bool, len(items))
	var deferred []PlacedItem

	// Orientation-preserving matches first so a face-up item is not paired
	// with a rotated twin when an exact one exists.
	for _, p := range placed {
		if idx := findMatch(items, used, p, true); idx >= 0 {
			used[idx] = true
			continue
		}
		deferred = append(deferred, p)
	}

	for _, p := range deferred {
		idx := findMatch(items, used, p, false)
		if idx < 0 {
			vs = append(vs, Violation{
				Invariant: InvariantCorrespondence,
				OrderIDs:  []int{p.OrderID},
				Detail:    fmt.Sprintf("no input item matches %q with dimensions %v", p.Name, p.Dimensions),
			})
			continue
		}
		used[idx] = true
		vs = append(vs, Violation{
			Invariant: InvariantFaceUp,
			OrderIDs:  []int{p.OrderID},
			Detail: fmt.Sprintf("%q must keep height %g, placed with height %g",
				p.Name, items[idx].Dimensions.Y, p.Dimensions.Y),
		})
	}
	return vs
}

func findMatch(items []Item, used []bool, p PlacedItem, orientation bool) int {
	for i, item := range items {
		if used[i] || item.Name != p.Name || item.FaceUp != p.FaceUp || item.Fragile != p.Fragile {
			continue
		}
		if !isPermutation(item.Dimensions, p.Dimensions) {
			continue
		}
		if orientation && item.FaceUp && !approxEqual(item.Dimensions.Y, p.Dimensions.Y) {
			continue
		}
		return i
	}
	return -1
}

func checkContainment(space Space, placed []PlacedItem) []Violation {
	var vs []Violation
	for _, p := range placed {
		if err := p.Dimensions.Validate(); err != nil {
			vs = append(vs, Violation{
				Invariant: InvariantContainment,
				OrderIDs:  []int{p.OrderID},
				Detail:    err.Error(),
			})
			continue
		}
		lo, hi := p.Position, p.Max()
		inside := lo.X >= -epsilon && lo.Y >= -epsilon && lo.Z >= -epsilon &&
			hi.X <= space.X+epsilon && hi.Y <= space.Y+epsilon && hi.Z <= space.Z+epsilon
		if !inside {
			vs = append(vs, Violation{
				Invariant: InvariantContainment,
				OrderIDs:  []int{p.OrderID},
				Detail:    fmt.Sprintf("box %v..%v leaves space %v", lo, hi, space),
			})
		}
	}
	return vs
}

func checkOverlap(placed []PlacedItem) []Violation {
	var vs []Violation
	for i := 0; i < len(placed); i++ {
		for j := i + 1; j < len(placed); j++ {
			a, b := placed[i], placed[j]
			if overlapX(a, b) && overlapY(a, b) && overlapZ(a, b) {
				vs = append(vs, Violation{
					Invariant: InvariantNonOverlap,
					OrderIDs:  []int{a.OrderID, b.OrderID},
					Detail:    fmt.Sprintf("%q and %q intersect", a.Name, b.Name),
				})
			}
		}
	}
	return vs
}

// checkFragile rejects any box whose footprint shares area with a fragile
// item's footprint and whose bottom is at or above the fragile item's top.
func checkFragile(placed []PlacedItem) []Violation {
	var vs []Violation
	for i, f := range placed {
		if !f.Fragile {
			continue
		}
		top := f.Max().Y
		for j, o := range placed {
			if i == j {
				continue
			}
			if overlapX(f, o) && overlapZ(f, o) && o.Position.Y >= top-epsilon {
				vs = append(vs, Violation{
					Invariant: InvariantFragile,
					OrderIDs:  []int{f.OrderID, o.OrderID},
					Detail:    fmt.Sprintf("%q is above fragile %q", o.Name, f.Name),
				})
			}
		}
	}
	return vs
}

func overlapX(a, b PlacedItem) bool {
	return overlap1D(a.Position.X, a.Dimensions.X, b.Position.X, b.Dimensions.X)
}

func overlapY(a, b PlacedItem) bool {
	return overlap1D(a.Position.Y, a.Dimensions.Y, b.Position.Y, b.Dimensions.Y)
}

func overlapZ(a, b PlacedItem) bool {
	return overlap1D(a.Position.Z, a.Dimensions.Z, b.Position.Z, b.Dimensions.Z)
}

func overlap1D(aMin, aLen, bMin, bLen float64) bool {
	return math.Min(aMin+aLen, bMin+bLen)-math.Max(aMin, bMin) > epsilon
}

func isPermutation(a, b Dimensions) bool {
	as, bs := sorted3(a), sorted3(b)
	for i := range as {
		if !approxEqual(as[i], bs[i]) {
			return false
		}
	}
	return true
}

func sorted3(d Dimensions) []float64 {
	s := []float64{d.X, d.Y, d.Z}
	sort.Float64s(s)
	return s
}

func approxEqual(a, b float64) bool {
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= epsilon*scale
}
