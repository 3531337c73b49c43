package entities

import (
	"fmt"
	"time"
)

// LockfileVersion is the current lockfile schema version.
const LockfileVersion = 1

// Lockfile pins plugin versions and digests for reproducible loads.
// Every entry must carry a digest.
type Lockfile struct {
	Version   int
	Generated time.Time
	Plugins   map[string]PluginLock
}

// PluginLock pins one plugin: what was requested, what it resolved to, and
// the module digest observed at fetch time.
type PluginLock struct {
	Requested string
	Resolved  string
	Source    string
	Digest    string
	Fetched   time.Time
}

// NewLockfile creates an empty lockfile at the current schema version.
func NewLockfile() *Lockfile {
	return &Lockfile{
		Version:   LockfileVersion,
		Generated: time.Now().UTC(),
		Plugins:   make(map[string]PluginLock),
	}
}

// AddPlugin records a lock entry. An entry without a digest is rejected.
func (l *Lockfile) AddPlugin(name string, lock PluginLock) error {
	if lock.Digest == "" {
		return fmt.Errorf("plugin %q: digest is required", name)
	}
	if l.Plugins == nil {
		l.Plugins = make(map[string]PluginLock)
	}
	l.Plugins[name] = lock
	return nil
}

// GetPlugin returns the lock entry for name, or nil.
func (l *Lockfile) GetPlugin(name string) *PluginLock {
	if lock, ok := l.Plugins[name]; ok {
		return &lock
	}
	return nil
}

// PluginCount returns the number of locked plugins.
func (l *Lockfile) PluginCount() int {
	return len(l.Plugins)
}

// Validate checks lockfile invariants.
func (l *Lockfile) Validate() error {
	if l.PluginCount() > 0 && l.Generated.IsZero() {
		return fmt.Errorf("generated timestamp is required")
	}
	for name, lock := range l.Plugins {
		if lock.Digest == "" {
			return fmt.Errorf("plugin %q: digest is required", name)
		}
	}
	return nil
}
