// Package domain contains the users and packing tasks the service manages.
// The geometry of a task (spaces, items and placements) lives in the
// placement subpackage so that strategies can depend on it alone.
package domain
