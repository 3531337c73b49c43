// Package grants decides which builtin capabilities a plugin may call.
// Grants are glob patterns over capability names, held per plugin, with an
// interactive gatekeeper for capabilities no pattern covers yet.
package grants

import (
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// GrantSet maps plugin slot ids to the capability patterns granted to them.
// Patterns use glob syntax; capability names never contain '/', so "*"
// grants everything and "getVariable*" grants a family.
type GrantSet struct {
	Plugins map[string][]string `yaml:"plugins"`
}

// NewGrantSet creates an empty grant set.
func NewGrantSet() *GrantSet {
	return &GrantSet{Plugins: make(map[string][]string)}
}

// Allows reports whether the plugin has a pattern covering the capability.
// Malformed patterns never match.
func (g *GrantSet) Allows(plugin, capability string) bool {
	if g == nil {
		return false
	}
	for _, pattern := range g.Plugins[plugin] {
		if ok, err := doublestar.Match(pattern, capability); err == nil && ok {
			return true
		}
	}
	return false
}

// Add records a pattern for the plugin.
func (g *GrantSet) Add(plugin, pattern string) {
	if g.Plugins == nil {
		g.Plugins = make(map[string][]string)
	}
	g.Plugins[plugin] = append(g.Plugins[plugin], pattern)
}

// Clone returns a deep copy.
func (g *GrantSet) Clone() *GrantSet {
	out := NewGrantSet()
	if g == nil {
		return out
	}
	for plugin, patterns := range g.Plugins {
		out.Plugins[plugin] = append([]string(nil), patterns...)
	}
	return out
}

// Deduplicate removes repeated patterns and sorts each plugin's list so the
// persisted form is stable.
func (g *GrantSet) Deduplicate() {
	for plugin, patterns := range g.Plugins {
		seen := make(map[string]struct{}, len(patterns))
		out := patterns[:0]
		for _, p := range patterns {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
		sort.Strings(out)
		g.Plugins[plugin] = out
	}
}
