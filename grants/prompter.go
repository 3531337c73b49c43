package grants

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
)

// Decision is the user's answer to a grant prompt.
type Decision int

const (
	// Deny refuses the capability for this call.
	Deny Decision = iota
	// GrantOnce allows the capability for the session only.
	GrantOnce
	// GrantAlways allows the capability and persists the grant.
	GrantAlways
)

// Prompter asks the user whether a plugin may use a capability.
type Prompter interface {
	PromptForCapability(plugin, capability string) (Decision, error)
	IsInteractive() bool
}

// TerminalPrompter asks grant questions in the terminal.
type TerminalPrompter struct{}

// NewTerminalPrompter creates a TerminalPrompter.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{}
}

// IsInteractive checks if we're running in an interactive terminal.
func (p *TerminalPrompter) IsInteractive() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// PromptForCapability asks the user to grant a capability.
func (p *TerminalPrompter) PromptForCapability(plugin, capability string) (Decision, error) {
	const (
		optionYes    = "Yes, grant for this session"
		optionAlways = "Always grant (save to config)"
		optionNo     = "No, deny"
	)

	var selection string
	err := huh.NewSelect[string]().
		Title("Plugin Requesting Permission").
		Description(fmt.Sprintf("%s wants to call %s", plugin, capability)).
		Options(
			huh.NewOption(optionYes, optionYes),
			huh.NewOption(optionAlways, optionAlways),
			huh.NewOption(optionNo, optionNo),
		).
		Value(&selection).
		Run()
	if err != nil {
		return Deny, err
	}

	switch selection {
	case optionYes:
		return GrantOnce, nil
	case optionAlways:
		return GrantAlways, nil
	default:
		return Deny, nil
	}
}
