package capability

import (
	"log/slog"
	"sort"
	"sync"
)

// Registry maps capability names to their active implementations. At most
// one implementation is active per name. Registering over a protected entry
// reports failure instead of overwriting; it never panics.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Capability
	binder  RealmBinder
	logger  *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithBinder sets the realm binder notified on every successful
// registration and unregistration.
func WithBinder(b RealmBinder) RegistryOption {
	return func(r *Registry) { r.binder = b }
}

// WithLogger sets the logger used for registration diagnostics.
func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		entries: make(map[string]Capability),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterOptions carries per-registration settings.
type RegisterOptions struct {
	// Override marks the entry as replaceable by later registrations.
	// The flag is sticky to the first registration of a name: once a name
	// is registered with Override=false, later Register calls for it fail
	// regardless of their own options.
	Override bool
}

// DefaultRegisterOptions allows later overrides, matching the builtin
// capability surface which plugins are permitted to wrap.
func DefaultRegisterOptions() RegisterOptions {
	return RegisterOptions{Override: true}
}

// Register installs cap under its name. It returns false, leaving the
// existing entry untouched, when the name is already held by a protected
// registration.
func (r *Registry) Register(c Capability, opts RegisterOptions) bool {
	if c.Name == "" || c.Impl == nil {
		return false
	}

	r.mu.Lock()
	existing, exists := r.entries[c.Name]
	if exists && !existing.overridable {
		r.mu.Unlock()
		r.logger.Debug("capability: registration refused, name is protected",
			"capability", c.Name)
		return false
	}
	c.overridable = opts.Override
	r.entries[c.Name] = c
	binder := r.binder
	r.mu.Unlock()

	if binder != nil {
		binder.Bind(c.Name, c.Impl)
	}
	return true
}

// RegisterBatch applies Register to every capability and returns how many
// succeeded. One failed registration does not block the others.
func (r *Registry) RegisterBatch(caps []Capability, opts RegisterOptions) int {
	count := 0
	for _, c := range caps {
		if r.Register(c, opts) {
			count++
		}
	}
	return count
}

// Unregister removes the named entry, reporting whether anything was removed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	_, exists := r.entries[name]
	if exists {
		delete(r.entries, name)
	}
	binder := r.binder
	r.mu.Unlock()

	if exists && binder != nil {
		binder.Unbind(name)
	}
	return exists
}

// Get returns the active entry for name.
func (r *Registry) Get(name string) (Capability, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.entries[name]
	return c, ok
}

// List returns a sorted snapshot of currently registered names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
