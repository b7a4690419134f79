// Package placement defines the space/item model shared by every placement
// strategy, the Strategy port itself, the built-in sequential strategy and the
// verifier that checks a strategy's output against the geometric invariants.
//
// Nothing in this package touches storage or transport; it is imported by the
// strategy service, the candidate sandbox and the API layer alike.
package placement
