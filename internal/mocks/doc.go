// Package mocks provides shared mock implementations for tests.
//
// Each mock exposes a function field per interface method (for example
// RunCommandFn) that tests override to script behavior; unset fields fall
// back to a simple default. Mocks that are called from several goroutines
// guard their recorded calls with a mutex.
//
// Usage:
//
//	client := &mocks.MockHostClient{
//	    RunCommandFn: func(ctx context.Context, cmd string) (*domain.CommandResult, error) {
//	        return &domain.CommandResult{Command: cmd, Succeeded: true}, nil
//	    },
//	}
//
// When adding a new mock to this package:
//  1. Create a new file named after the interface being mocked
//  2. Implement the mock struct with function fields for each interface method
//  3. Assert the interface is satisfied with a var _ declaration
package mocks
