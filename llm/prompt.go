package llm

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/smarttavern/tavern-host-sdk/abi"
	"github.com/smarttavern/tavern-host-sdk/chat"
)

// Assembler builds prompts from the session state: system prompt from the
// preset, character and persona cards, matched world book lore, then the
// conversation history and the pending user input.
type Assembler struct {
	state *chat.State
}

// NewAssembler creates an assembler over state.
func NewAssembler(state *chat.State) *Assembler {
	return &Assembler{state: state}
}

// Assemble produces the message list for a completion. Empty keys in params
// fall back to the active character and persona.
func (a *Assembler) Assemble(ctx context.Context, params abi.PromptParams) ([]abi.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var system []string
	if preset, ok := a.state.Preset(params.PresetKey).(chat.Preset); ok && preset.SystemPrompt != "" {
		system = append(system, preset.SystemPrompt)
	}
	if char, ok := a.state.Character(params.CharKey); ok {
		if char.Description != "" {
			system = append(system, char.Description)
		}
		if char.Personality != "" {
			system = append(system, fmt.Sprintf("%s's personality: %s", char.Name, char.Personality))
		}
	}
	if persona, ok := a.state.Persona(params.PersonaKey); ok && persona.Description != "" {
		system = append(system, fmt.Sprintf("The user is %s: %s", persona.Name, persona.Description))
	}
	if lore := a.matchLore(params); len(lore) > 0 {
		system = append(system, lore...)
	}

	messages := make([]abi.Message, 0, len(params.Messages)+2)
	if len(system) > 0 {
		messages = append(messages, abi.Message{Role: "system", Content: strings.Join(system, "\n\n")})
	}
	messages = append(messages, params.Messages...)
	if params.UserInput != "" {
		messages = append(messages, abi.Message{Role: "user", Content: params.UserInput})
	}
	return messages, nil
}

// matchLore returns the contents of enabled world book entries whose keys
// appear in the user input or the recent history, highest priority first.
func (a *Assembler) matchLore(params abi.PromptParams) []string {
	var scan strings.Builder
	scan.WriteString(strings.ToLower(params.UserInput))
	for _, m := range params.Messages {
		scan.WriteString("\n")
		scan.WriteString(strings.ToLower(m.Content))
	}
	haystack := scan.String()

	var matched []chat.WorldBookEntry
	for _, book := range a.state.WorldBooks("") {
		for _, entry := range book.Entries {
			if !entry.Enabled {
				continue
			}
			for _, key := range entry.Keys {
				if key != "" && strings.Contains(haystack, strings.ToLower(key)) {
					matched = append(matched, entry)
					break
				}
			}
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority > matched[j].Priority
	})

	out := make([]string, 0, len(matched))
	for _, entry := range matched {
		out = append(out, entry.Content)
	}
	return out
}

// Postprocess applies the enabled prompt-side regex rules to every message.
// Rules with an unparsable pattern are skipped.
func (a *Assembler) Postprocess(ctx context.Context, messages []abi.Message) ([]abi.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rules := a.state.RegexRules("")
	out := make([]abi.Message, len(messages))
	copy(out, messages)
	for _, rule := range rules {
		if !rule.Enabled || (rule.Target != "" && rule.Target != "prompt") {
			continue
		}
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			continue
		}
		for i := range out {
			out[i].Content = re.ReplaceAllString(out[i].Content, rule.Replacement)
		}
	}
	return out, nil
}
