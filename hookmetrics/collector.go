// Package hookmetrics tracks hook-point invocation counts, latency, and
// errors per strategy, and exposes point-in-time snapshots for introspection.
package hookmetrics

import (
	"sync"
	"time"
)

// HookMetric is the accumulated state of one (strategy, hook point) pair.
type HookMetric struct {
	StrategyID  string  `json:"strategy_id"`
	HookName    string  `json:"hook_name"`
	CallCount   int64   `json:"call_count"`
	TotalTimeMs float64 `json:"total_time_ms"`
	AvgTimeMs   float64 `json:"avg_time_ms"`
	ErrorCount  int64   `json:"error_count"`
}

// Introspection is the snapshot shape served to the UI.
// Missing strategy or hook entries mean "no data", not an error.
type Introspection struct {
	Metrics map[string]map[string]HookMetric `json:"metrics"`
}

// Collector accumulates hook metrics. The execution pipeline writes through
// Record; readers only ever see copies.
type Collector struct {
	mu      sync.RWMutex
	metrics map[string]map[string]*HookMetric
}

// NewCollector creates an empty Collector.
func NewCollector() *Collector {
	return &Collector{
		metrics: make(map[string]map[string]*HookMetric),
	}
}

// Record accumulates one hook invocation for the given strategy.
func (c *Collector) Record(strategyID, hookName string, elapsed time.Duration, callErr error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	hooks, ok := c.metrics[strategyID]
	if !ok {
		hooks = make(map[string]*HookMetric)
		c.metrics[strategyID] = hooks
	}
	m, ok := hooks[hookName]
	if !ok {
		m = &HookMetric{StrategyID: strategyID, HookName: hookName}
		hooks[hookName] = m
	}

	m.CallCount++
	m.TotalTimeMs += float64(elapsed) / float64(time.Millisecond)
	m.AvgTimeMs = m.TotalTimeMs / float64(m.CallCount)
	if callErr != nil {
		m.ErrorCount++
	}
}

// FetchIntrospection returns a deep copy of the current metrics.
func (c *Collector) FetchIntrospection() Introspection {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := Introspection{Metrics: make(map[string]map[string]HookMetric, len(c.metrics))}
	for strategy, hooks := range c.metrics {
		cp := make(map[string]HookMetric, len(hooks))
		for hook, m := range hooks {
			cp[hook] = *m
		}
		out.Metrics[strategy] = cp
	}
	return out
}

// Get returns a copy of a single metric, reporting whether it exists.
func (c *Collector) Get(strategyID, hookName string) (HookMetric, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	hooks, ok := c.metrics[strategyID]
	if !ok {
		return HookMetric{}, false
	}
	m, ok := hooks[hookName]
	if !ok {
		return HookMetric{}, false
	}
	return *m, true
}

// Reset discards all accumulated metrics for a strategy.
// Used when a plugin slot is replaced so stale counters don't survive.
func (c *Collector) Reset(strategyID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.metrics, strategyID)
}
