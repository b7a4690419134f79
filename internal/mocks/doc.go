// Package mocks provides shared hand-written mocks for tests.
//
// Each mock has a function field per interface method. A nil field falls
// back to a simple default (an in-memory map for the stores, canned values
// for the others), so a test only sets the behavior it cares about:
//
//	users := mocks.NewMockUserStore()
//	users.GetByNameFn = func(ctx context.Context, name string) (*domain.User, error) {
//	    return nil, errors.New("connection reset")
//	}
package mocks
