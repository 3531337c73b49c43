package hookmetrics

import "strings"

// Matches reports whether a pipeline strategy ID and a loader slot ID refer
// to the same plugin. The producing pipeline's naming convention is not
// guaranteed to match the loader's slot derivation, so this is a deliberate
// compatibility heuristic: compare case-insensitively with hyphens and
// underscores collapsed, and accept containment in either direction. It can
// both under- and over-match; callers must not treat it as equality.
func Matches(strategyID, pluginID string) bool {
	a := normalizeID(strategyID)
	b := normalizeID(pluginID)
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// MetricsFor filters an introspection snapshot down to the strategies that
// match the given plugin slot ID.
func MetricsFor(snap Introspection, pluginID string) map[string]map[string]HookMetric {
	out := make(map[string]map[string]HookMetric)
	for strategy, hooks := range snap.Metrics {
		if Matches(strategy, pluginID) {
			out[strategy] = hooks
		}
	}
	return out
}

// ResetMatching discards metrics for every strategy associated with the
// plugin slot ID under Matches. Exact-key Reset would leave counters behind
// whenever the pipeline's strategy naming differs from the slot derivation.
func (c *Collector) ResetMatching(pluginID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for strategy := range c.metrics {
		if Matches(strategy, pluginID) {
			delete(c.metrics, strategy)
		}
	}
}

func normalizeID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	id = strings.ReplaceAll(id, "-", "_")
	return id
}
