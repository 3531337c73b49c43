package loader

import (
	"context"
	"sync"
	"sync/atomic"
)

// Mock implementations for testing lifecycle behavior without a WASM
// runtime. Exported so downstream packages can reuse them in their tests.

// MockHandle is a ModuleHandle recording teardown calls.
type MockHandle struct {
	// Label distinguishes handles across replaces in assertions.
	Label string
	// TeardownErr is returned from Teardown when set.
	TeardownErr error

	teardowns atomic.Int32
}

// Teardown records the call and returns TeardownErr.
func (h *MockHandle) Teardown(ctx context.Context) error {
	h.teardowns.Add(1)
	return h.TeardownErr
}

// TeardownCount returns how many times Teardown ran.
func (h *MockHandle) TeardownCount() int {
	return int(h.teardowns.Load())
}

// MockRuntime is a ModuleRuntime handing out prepared handles.
type MockRuntime struct {
	mu sync.Mutex

	// InstantiateErr fails every Instantiate when set.
	InstantiateErr error
	// NextHandles is consumed front-first; when empty a fresh MockHandle
	// is returned.
	NextHandles []*MockHandle

	// Instantiated records the source locations seen, in order.
	Instantiated []string
}

// Instantiate pops the next prepared handle.
func (r *MockRuntime) Instantiate(ctx context.Context, sourceLocation string) (ModuleHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.InstantiateErr != nil {
		return nil, r.InstantiateErr
	}
	r.Instantiated = append(r.Instantiated, sourceLocation)
	if len(r.NextHandles) > 0 {
		h := r.NextHandles[0]
		r.NextHandles = r.NextHandles[1:]
		return h, nil
	}
	return &MockHandle{}, nil
}
