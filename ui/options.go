package ui

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/smarttavern/tavern-host-sdk/abi"
)

// OptionsPrompter presents an option dialog and blocks until resolution.
type OptionsPrompter interface {
	Show(ctx context.Context, cfg abi.OptionsConfig) (abi.OptionsChoice, error)
}

const freeTextEntry = "Other (type your own)"

// TerminalOptions runs option dialogs in the terminal.
type TerminalOptions struct{}

// NewTerminalOptions creates a terminal dialog prompter.
func NewTerminalOptions() *TerminalOptions {
	return &TerminalOptions{}
}

// IsInteractive checks whether stdin is a terminal.
func (p *TerminalOptions) IsInteractive() bool {
	info, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}

// Show presents the dialog described by cfg. A user abort resolves to a
// canceled choice rather than an error; the error return is reserved for
// invalid configs and terminal failures.
func (p *TerminalOptions) Show(ctx context.Context, cfg abi.OptionsConfig) (abi.OptionsChoice, error) {
	if len(cfg.Options) == 0 && cfg.Mode != abi.OptionsAny {
		return abi.OptionsChoice{}, fmt.Errorf("option dialog has no options")
	}

	switch cfg.Mode {
	case abi.OptionsMultiple:
		return p.showMultiple(ctx, cfg)
	case abi.OptionsAny:
		return p.showAny(ctx, cfg)
	default:
		return p.showSingle(ctx, cfg)
	}
}

func (p *TerminalOptions) showSingle(ctx context.Context, cfg abi.OptionsConfig) (abi.OptionsChoice, error) {
	var selection string
	field := huh.NewSelect[string]().
		Title(title(cfg)).
		Description(cfg.Prompt).
		Options(huh.NewOptions(cfg.Options...)...).
		Value(&selection)

	if err := runField(ctx, field); err != nil {
		return resolveAbort(err)
	}
	return abi.OptionsChoice{Selected: []string{selection}}, nil
}

func (p *TerminalOptions) showMultiple(ctx context.Context, cfg abi.OptionsConfig) (abi.OptionsChoice, error) {
	var selection []string
	field := huh.NewMultiSelect[string]().
		Title(title(cfg)).
		Description(cfg.Prompt).
		Options(huh.NewOptions(cfg.Options...)...).
		Value(&selection)

	if err := runField(ctx, field); err != nil {
		return resolveAbort(err)
	}
	return abi.OptionsChoice{Selected: selection}, nil
}

func (p *TerminalOptions) showAny(ctx context.Context, cfg abi.OptionsConfig) (abi.OptionsChoice, error) {
	if len(cfg.Options) == 0 {
		return p.input(ctx, cfg)
	}

	var selection string
	entries := append(append([]string{}, cfg.Options...), freeTextEntry)
	field := huh.NewSelect[string]().
		Title(title(cfg)).
		Description(cfg.Prompt).
		Options(huh.NewOptions(entries...)...).
		Value(&selection)

	if err := runField(ctx, field); err != nil {
		return resolveAbort(err)
	}
	if selection == freeTextEntry {
		return p.input(ctx, cfg)
	}
	return abi.OptionsChoice{Selected: []string{selection}}, nil
}

func (p *TerminalOptions) input(ctx context.Context, cfg abi.OptionsConfig) (abi.OptionsChoice, error) {
	var text string
	field := huh.NewInput().
		Title(title(cfg)).
		Description(cfg.Prompt).
		Value(&text)

	if err := runField(ctx, field); err != nil {
		return resolveAbort(err)
	}
	return abi.OptionsChoice{FreeText: text}, nil
}

func runField(ctx context.Context, field huh.Field) error {
	return huh.NewForm(huh.NewGroup(field)).RunWithContext(ctx)
}

func resolveAbort(err error) (abi.OptionsChoice, error) {
	if errors.Is(err, huh.ErrUserAborted) {
		return abi.OptionsChoice{Canceled: true}, nil
	}
	return abi.OptionsChoice{}, err
}

func title(cfg abi.OptionsConfig) string {
	if cfg.Title != "" {
		return cfg.Title
	}
	return "Plugin Request"
}
