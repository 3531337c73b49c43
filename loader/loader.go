// Package loader manages the set of installed plugin instances, keyed by a
// slot ID derived from the plugin's source location. It supports install,
// atomic replace, and uninstall, serializing operations per slot so rapid
// UI toggles can never leave a slot with zero-or-two live module handles.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/smarttavern/tavern-host-sdk/eventbus"
	"github.com/smarttavern/tavern-host-sdk/hookmetrics"
)

// Events emitted on the host bus around slot transitions. EventLoaded and
// EventUnloaded are delivered after the slot lock is released, so their
// handlers may call back into the loader, including on the same slot.
// EventBeforeReplace fires while the slot is still held, between the replace
// decision and the old instance's teardown; its handlers must not load or
// unload that slot.
const (
	EventLoaded        = "plugin:loaded"
	EventUnloaded      = "plugin:unloaded"
	EventBeforeReplace = "plugin:before-replace"
)

// Instance is one installed plugin occupying a slot.
type Instance struct {
	// ID is the slot identity; stable across replaces.
	ID string
	// SourceLocation is the path the plugin was loaded from.
	SourceLocation string
	// Handle is the live module. Exactly one handle is associated with a
	// slot at any time.
	Handle ModuleHandle
}

// Loader tracks plugin instances by slot ID.
type Loader struct {
	runtime ModuleRuntime
	bus     *eventbus.Bus
	metrics *hookmetrics.Collector
	logger  *slog.Logger

	mu    sync.Mutex
	table map[string]*Instance
	locks map[string]*sync.Mutex
}

// Option configures a Loader.
type Option func(*Loader)

// WithBus sets the event bus notified on slot transitions.
func WithBus(bus *eventbus.Bus) Option {
	return func(l *Loader) { l.bus = bus }
}

// WithMetrics sets the hook metrics collector whose per-plugin counters are
// reset when a slot is replaced or unloaded.
func WithMetrics(c *hookmetrics.Collector) Option {
	return func(l *Loader) { l.metrics = c }
}

// WithLogger sets the loader's logger.
func WithLogger(lg *slog.Logger) Option {
	return func(l *Loader) { l.logger = lg }
}

// New creates a Loader over the given module runtime.
func New(runtime ModuleRuntime, opts ...Option) *Loader {
	l := &Loader{
		runtime: runtime,
		logger:  slog.Default(),
		table:   make(map[string]*Instance),
		locks:   make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadOptions carries per-load settings.
type LoadOptions struct {
	// ID overrides the slot identity derived from the source location.
	ID string
	// Replace permits swapping out an instance already holding the slot.
	// The old instance is fully torn down before the new one installs.
	Replace bool
}

// Load installs the plugin at sourceLocation into its slot. Loading into an
// occupied slot without Replace fails with ErrSlotOccupied and performs no
// teardown. With Replace, the previous instance's teardown completes (and
// the bus sees EventBeforeReplace) before the new module is constructed.
func (l *Loader) Load(ctx context.Context, sourceLocation string, opts LoadOptions) (*Instance, error) {
	id := opts.ID
	if id == "" {
		id = SlotID(sourceLocation)
	}

	lock := l.slotLock(id)
	lock.Lock()
	inst, err := l.loadLocked(ctx, id, sourceLocation, opts)
	lock.Unlock()
	if err != nil {
		return nil, err
	}

	l.logger.Info("plugin loaded", "id", id, "source", sourceLocation)
	l.emit(EventLoaded, id)
	return inst, nil
}

func (l *Loader) loadLocked(ctx context.Context, id, sourceLocation string, opts LoadOptions) (*Instance, error) {
	if existing := l.lookup(id); existing != nil {
		if !opts.Replace {
			return nil, &SlotOccupiedError{ID: id}
		}
		l.emit(EventBeforeReplace, id)
		l.teardown(ctx, existing)
		l.remove(id)
	}

	handle, err := l.runtime.Instantiate(ctx, sourceLocation)
	if err != nil {
		return nil, fmt.Errorf("load plugin %q: %w", id, err)
	}

	inst := &Instance{ID: id, SourceLocation: sourceLocation, Handle: handle}
	l.mu.Lock()
	l.table[id] = inst
	l.mu.Unlock()
	return inst, nil
}

// Unload removes the slot's instance, running its teardown path first.
// Unloading an absent slot is an idempotent no-op returning false. Teardown
// failures are logged and the slot is removed regardless: unload is
// unconditionally effective even when the plugin's cleanup is broken.
func (l *Loader) Unload(ctx context.Context, id string) bool {
	lock := l.slotLock(id)
	lock.Lock()
	inst := l.lookup(id)
	if inst == nil {
		lock.Unlock()
		return false
	}
	l.teardown(ctx, inst)
	l.remove(id)
	lock.Unlock()

	l.logger.Info("plugin unloaded", "id", id)
	l.emit(EventUnloaded, id)
	return true
}

// Has reports whether the slot currently holds an instance.
func (l *Loader) Has(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.table[id]
	return ok
}

// Get returns the instance holding the slot, if any.
func (l *Loader) Get(id string) (*Instance, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	inst, ok := l.table[id]
	return inst, ok
}

// List returns the slot IDs currently loaded, sorted.
func (l *Loader) List() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]string, 0, len(l.table))
	for id := range l.table {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// UnloadAll tears down every loaded instance, typically at host shutdown.
func (l *Loader) UnloadAll(ctx context.Context) {
	for _, id := range l.List() {
		l.Unload(ctx, id)
	}
}

// slotLock returns the mutex serializing operations on id. Locks are kept
// for the process lifetime; the set of distinct slot IDs is small.
func (l *Loader) slotLock(id string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	return m
}

func (l *Loader) lookup(id string) *Instance {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.table[id]
}

func (l *Loader) remove(id string) {
	l.mu.Lock()
	delete(l.table, id)
	l.mu.Unlock()
	if l.metrics != nil {
		l.metrics.ResetMatching(id)
	}
}

func (l *Loader) teardown(ctx context.Context, inst *Instance) {
	if err := inst.Handle.Teardown(ctx); err != nil {
		l.logger.Error("plugin teardown failed, removing slot anyway",
			"id", inst.ID,
			"error", err)
	}
}

func (l *Loader) emit(event, id string) {
	if l.bus != nil {
		l.bus.Emit(event, id)
	}
}
