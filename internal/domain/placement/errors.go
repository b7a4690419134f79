package placement

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Callers match them with errors.Is; the concrete value returned
// is usually a *PlacementError carrying stage and cause.
var (
	// ErrInvalidCandidate is returned when a proposed strategy fails validation.
	// It never affects the active strategy or the stored source.
	ErrInvalidCandidate = errors.New("invalid candidate")

	// ErrAlgorithm is returned when a strategy fails or panics during a call.
	ErrAlgorithm = errors.New("algorithm error")

	// ErrAlgorithmTimeout is returned when a strategy call exceeds its time bound.
	ErrAlgorithmTimeout = errors.New("algorithm timeout")

	// ErrGeometryViolation is returned when a strategy's output breaks one of
	// the placement invariants.
	ErrGeometryViolation = errors.New("geometry violation")
)

// Input validation errors.
var (
	ErrInvalidSpace  = errors.New("invalid space")
	ErrInvalidItem   = errors.New("invalid item")
	ErrEmptyItemName = fmt.Errorf("%w: name cannot be empty", ErrInvalidItem)
)

// PlacementError describes a failure of one of the four kinds above.
type PlacementError struct {
	Kind    error  // One of ErrInvalidCandidate, ErrAlgorithm, ErrAlgorithmTimeout, ErrGeometryViolation
	Stage   string // Where it happened, e.g. "structural", "load", "smoke", "place"
	Message string
	Err     error
}

// Error implements the error interface.
func (e *PlacementError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.Stage != "" {
		b.WriteString(" (")
		b.WriteString(e.Stage)
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is reports whether target is this error's kind.
func (e *PlacementError) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the underlying cause.
func (e *PlacementError) Unwrap() error {
	return e.Err
}

// NewInvalidCandidateError builds an ErrInvalidCandidate failure for a validation stage.
func NewInvalidCandidateError(stage, message string, err error) *PlacementError {
	return &PlacementError{Kind: ErrInvalidCandidate, Stage: stage, Message: message, Err: err}
}

// NewAlgorithmError builds an ErrAlgorithm failure.
func NewAlgorithmError(stage, message string, err error) *PlacementError {
	return &PlacementError{Kind: ErrAlgorithm, Stage: stage, Message: message, Err: err}
}

// NewTimeoutError builds an ErrAlgorithmTimeout failure.
func NewTimeoutError(stage string, err error) *PlacementError {
	return &PlacementError{Kind: ErrAlgorithmTimeout, Stage: stage, Message: "strategy did not return in time", Err: err}
}

// Invariant names reported in a Violation.
const (
	InvariantContainment    = "containment"
	InvariantNonOverlap     = "non-overlap"
	InvariantFragile        = "fragile"
	InvariantOrderID        = "order-id"
	InvariantFaceUp         = "face-up"
	InvariantCorrespondence = "correspondence"
)

// Violation is one broken invariant.
type Violation struct {
	Invariant string `json:"invariant"`
	OrderIDs  []int  `json:"order_ids,omitempty"`
	Detail    string `json:"detail"`
}

func (v Violation) String() string {
	if len(v.OrderIDs) == 0 {
		return v.Invariant + ": " + v.Detail
	}
	return fmt.Sprintf("%s %v: %s", v.Invariant, v.OrderIDs, v.Detail)
}

// ViolationError is returned by Verify. It matches ErrGeometryViolation.
type ViolationError struct {
	Violations []Violation
}

// Error implements the error interface.
func (e *ViolationError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, v.String())
	}
	return ErrGeometryViolation.Error() + ": " + strings.Join(parts, "; ")
}

// Is reports true for ErrGeometryViolation.
func (e *ViolationError) Is(target error) bool {
	return target == ErrGeometryViolation
}
