package grants

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/smarttavern/tavern-host-sdk/abi"
	"github.com/smarttavern/tavern-host-sdk/bridge"
	"github.com/smarttavern/tavern-host-sdk/capability"
)

// Store persists grant sets between sessions.
type Store interface {
	Load() (*GrantSet, error)
	Save(*GrantSet) error
}

// Gatekeeper decides capability calls against the persisted grants, the
// session grants, and the interactive prompter, in that order. Denials are
// never persisted.
type Gatekeeper struct {
	mu        sync.Mutex
	persisted *GrantSet
	session   *GrantSet
	store     Store
	prompter  Prompter
	logger    *slog.Logger
}

// GatekeeperOption configures a Gatekeeper.
type GatekeeperOption func(*Gatekeeper)

// WithStore sets the persistence backend. Without one, "always" grants
// only last the session.
func WithStore(store Store) GatekeeperOption {
	return func(g *Gatekeeper) { g.store = store }
}

// WithPrompter sets the interactive prompter. Without one, ungranted
// capabilities are denied outright.
func WithPrompter(p Prompter) GatekeeperOption {
	return func(g *Gatekeeper) { g.prompter = p }
}

// WithLogger sets the gatekeeper's logger.
func WithLogger(l *slog.Logger) GatekeeperOption {
	return func(g *Gatekeeper) { g.logger = l }
}

// NewGatekeeper creates a gatekeeper seeded from the store, when one is
// configured. A store load failure starts from an empty grant set.
func NewGatekeeper(opts ...GatekeeperOption) *Gatekeeper {
	g := &Gatekeeper{
		persisted: NewGrantSet(),
		session:   NewGrantSet(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.store != nil {
		loaded, err := g.store.Load()
		if err != nil {
			g.logger.Warn("failed to load grant store, starting empty", "error", err)
		} else {
			g.persisted = loaded
		}
	}
	return g
}

// Grant records a session grant for the plugin.
func (g *Gatekeeper) Grant(plugin, pattern string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.session.Add(plugin, pattern)
}

// GrantAlways records a grant and persists it.
func (g *Gatekeeper) GrantAlways(plugin, pattern string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.persisted.Add(plugin, pattern)
	if g.store == nil {
		return nil
	}
	return g.store.Save(g.persisted)
}

// Check reports whether the plugin may call the capability, prompting the
// user when no grant covers it and a prompter is available.
func (g *Gatekeeper) Check(ctx context.Context, plugin, capabilityName string) (bool, error) {
	g.mu.Lock()
	allowed := g.persisted.Allows(plugin, capabilityName) || g.session.Allows(plugin, capabilityName)
	g.mu.Unlock()
	if allowed {
		return true, nil
	}

	if g.prompter == nil || !g.prompter.IsInteractive() {
		return false, nil
	}

	decision, err := g.prompter.PromptForCapability(plugin, capabilityName)
	if err != nil {
		return false, fmt.Errorf("grant prompt failed: %w", err)
	}
	switch decision {
	case GrantOnce:
		g.Grant(plugin, capabilityName)
		return true, nil
	case GrantAlways:
		if err := g.GrantAlways(plugin, capabilityName); err != nil {
			g.logger.Warn("failed to persist grant", "plugin", plugin, "capability", capabilityName, "error", err)
		}
		return true, nil
	default:
		return false, nil
	}
}

// Middleware enforces the gatekeeper on every bridged capability call.
// Calls without plugin attribution, such as host-internal ones, pass
// through.
func (g *Gatekeeper) Middleware() bridge.Middleware {
	return func(next capability.Func) capability.Func {
		return func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
			info, ok := bridge.CallInfoFrom(ctx)
			if !ok || info.Plugin == "" {
				return next(ctx, args)
			}

			allowed, err := g.Check(ctx, info.Plugin, info.Capability)
			if err != nil {
				return nil, &abi.CallError{Code: abi.ErrCodeInternal, Message: err.Error()}
			}
			if !allowed {
				g.logger.Warn("capability denied", "plugin", info.Plugin, "capability", info.Capability)
				return nil, &abi.CallError{
					Code:    abi.ErrCodeDenied,
					Message: fmt.Sprintf("capability %s denied for %s", info.Capability, info.Plugin),
				}
			}
			return next(ctx, args)
		}
	}
}
