// Package sandbox vets and loads uploaded placement strategies.
//
// Candidates are Go source files declaring
//
//	func PlaceItems(items []model.Item, space model.Space) ([]model.PlacedItem, error)
//
// where model is the "boxpack/model" package exposed to the interpreter.
// Inspect performs the structural check on the parsed source. Loader runs the
// source in a fresh yaegi interpreter that only sees a small allowlist of
// standard library symbols, has no os, net, syscall or unsafe access, and whose
// source filesystem is a scratch directory.
//
// A loaded candidate is a *Program. Each call runs in an interpreter of its
// own and is stopped when its context is done.
package sandbox
