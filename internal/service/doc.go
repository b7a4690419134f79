// Package service contains the application use cases. It coordinates domain
// objects, the placement executor and the stores in internal/store.
//
// Services receive their dependencies through constructors and never depend
// on a concrete infrastructure implementation. Operations that write more
// than one row run through store.RunInTransaction.
//
// Subpackages:
//   - auth: JWT issuance/validation and password hashing
//   - strategy: the strategy registry, executor and candidate validator
package service
