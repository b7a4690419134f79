// Package store defines the persistence interfaces for users, tasks and the
// uploaded strategy source, together with the errors implementations return.
// Implementations live under internal/platform.
package store
