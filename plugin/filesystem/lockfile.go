package filesystem

import (
	"time"

	"github.com/smarttavern/tavern-host-sdk/plugin/entities"
)

// Lockfile is the on-disk YAML shape of a lockfile.
type Lockfile struct {
	Generated time.Time             `yaml:"generated"`
	Plugins   map[string]PluginLock `yaml:"plugins"`
	Version   int                   `yaml:"lockfile_version"`
}

// PluginLock is the on-disk shape of one pinned plugin.
type PluginLock struct {
	Fetched   time.Time `yaml:"fetched,omitempty"`
	Requested string    `yaml:"requested"`
	Resolved  string    `yaml:"resolved"`
	Source    string    `yaml:"source"`
	Digest    string    `yaml:"digest"`
}

// ToEntity converts the YAML shape to a domain lockfile.
func (l *Lockfile) ToEntity() *entities.Lockfile {
	entity := &entities.Lockfile{
		Generated: l.Generated,
		Version:   l.Version,
		Plugins:   make(map[string]entities.PluginLock, len(l.Plugins)),
	}

	for name, lock := range l.Plugins {
		entity.Plugins[name] = entities.PluginLock{
			Fetched:   lock.Fetched,
			Requested: lock.Requested,
			Resolved:  lock.Resolved,
			Source:    lock.Source,
			Digest:    lock.Digest,
		}
	}

	return entity
}

// FromEntity converts a domain lockfile to its YAML shape.
func FromEntity(entity *entities.Lockfile) *Lockfile {
	if entity == nil {
		return nil
	}

	l := &Lockfile{
		Generated: entity.Generated,
		Version:   entity.Version,
		Plugins:   make(map[string]PluginLock, len(entity.Plugins)),
	}

	for name, lock := range entity.Plugins {
		l.Plugins[name] = PluginLock{
			Fetched:   lock.Fetched,
			Requested: lock.Requested,
			Resolved:  lock.Resolved,
			Source:    lock.Source,
			Digest:    lock.Digest,
		}
	}

	return l
}
