package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-yaml"
)

// ErrVariableNotFound is returned by strict variable reads for absent keys.
var ErrVariableNotFound = errors.New("variable not found")

// VarStore is the chat variable store plugins read and write through the
// variable capabilities. Writes are durable when a backing path is set:
// a failed flush fails the write, since the write capabilities are
// must-throw and callers rely on persisted state.
type VarStore struct {
	mu     sync.RWMutex
	values map[string]any
	path   string
}

// VarStoreOption configures a VarStore.
type VarStoreOption func(*VarStore)

// WithVarStorePath enables YAML persistence at path.
func WithVarStorePath(path string) VarStoreOption {
	return func(v *VarStore) { v.path = path }
}

// NewVarStore creates a VarStore, loading existing values from the backing
// file when one is configured and present.
func NewVarStore(opts ...VarStoreOption) (*VarStore, error) {
	v := &VarStore{values: make(map[string]any)}
	for _, opt := range opts {
		opt(v)
	}
	if v.path != "" {
		data, err := os.ReadFile(v.path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			// First run, nothing to load.
		case err != nil:
			return nil, fmt.Errorf("read variable store: %w", err)
		default:
			if err := yaml.Unmarshal(data, &v.values); err != nil {
				return nil, fmt.Errorf("decode variable store: %w", err)
			}
			if v.values == nil {
				v.values = make(map[string]any)
			}
		}
	}
	return v, nil
}

// Get returns the value for key, or nil when absent.
func (v *VarStore) Get(ctx context.Context, key string) (any, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	val, ok := v.values[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVariableNotFound, key)
	}
	return val, nil
}

// GetMany returns the values for keys; absent keys are omitted. With no
// keys it returns a copy of the whole store.
func (v *VarStore) GetMany(ctx context.Context, keys ...string) (map[string]any, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[string]any)
	if len(keys) == 0 {
		for k, val := range v.values {
			out[k] = val
		}
		return out, nil
	}
	for _, k := range keys {
		if val, ok := v.values[k]; ok {
			out[k] = val
		}
	}
	return out, nil
}

// GetJSON returns the value for key (or the whole store for an empty key)
// as raw JSON.
func (v *VarStore) GetJSON(ctx context.Context, key string) (json.RawMessage, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if key == "" {
		return json.Marshal(v.values)
	}
	val, ok := v.values[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrVariableNotFound, key)
	}
	return json.Marshal(val)
}

// Set stores value under key.
func (v *VarStore) Set(ctx context.Context, key string, value any) error {
	if key == "" {
		return errors.New("variable key must not be empty")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.values[key] = value
	return v.flushLocked()
}

// SetMany stores every entry of values. All-or-nothing against the backing
// file: the in-memory update happens first, then one flush.
func (v *VarStore) SetMany(ctx context.Context, values map[string]any) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for k, val := range values {
		if k == "" {
			return errors.New("variable key must not be empty")
		}
		v.values[k] = val
	}
	return v.flushLocked()
}

// Delete removes key. Deleting an absent key is not an error.
func (v *VarStore) Delete(ctx context.Context, key string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.values, key)
	return v.flushLocked()
}

// DeleteMany removes every key in keys.
func (v *VarStore) DeleteMany(ctx context.Context, keys []string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, k := range keys {
		delete(v.values, k)
	}
	return v.flushLocked()
}

// Len returns the number of stored variables.
func (v *VarStore) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.values)
}

func (v *VarStore) flushLocked() error {
	if v.path == "" {
		return nil
	}
	data, err := yaml.Marshal(v.values)
	if err != nil {
		return fmt.Errorf("encode variable store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(v.path), 0o755); err != nil {
		return fmt.Errorf("create variable store dir: %w", err)
	}
	if err := os.WriteFile(v.path, data, 0o600); err != nil {
		return fmt.Errorf("write variable store: %w", err)
	}
	return nil
}
