// Package chat holds the host-side session state the data-getter
// capabilities read: characters, personas, presets, world books, regex
// rules, chat settings, and the active LLM config.
package chat

import (
	"sync"
)

// Character is a character card.
type Character struct {
	Name         string            `json:"name"`
	AvatarPath   string            `json:"avatar_path,omitempty"`
	Description  string            `json:"description,omitempty"`
	Personality  string            `json:"personality,omitempty"`
	FirstMessage string            `json:"first_message,omitempty"`
	Extensions   map[string]any    `json:"extensions,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	Greetings    []string          `json:"greetings,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Persona is the user-side counterpart of a character.
type Persona struct {
	Name        string `json:"name"`
	AvatarPath  string `json:"avatar_path,omitempty"`
	Description string `json:"description,omitempty"`
}

// Preset is a named generation parameter set.
type Preset struct {
	Name         string         `json:"name"`
	SystemPrompt string         `json:"system_prompt,omitempty"`
	Params       map[string]any `json:"params,omitempty"`
}

// WorldBookEntry is one lore entry activated by keywords.
type WorldBookEntry struct {
	Keys     []string `json:"keys"`
	Content  string   `json:"content"`
	Enabled  bool     `json:"enabled"`
	Priority int      `json:"priority,omitempty"`
}

// WorldBook is a named collection of lore entries.
type WorldBook struct {
	Name    string           `json:"name"`
	Entries []WorldBookEntry `json:"entries"`
}

// RegexRule rewrites prompt or response text.
type RegexRule struct {
	Name        string `json:"name"`
	Pattern     string `json:"pattern"`
	Replacement string `json:"replacement"`
	Target      string `json:"target,omitempty"` // "prompt", "response", or both when empty
	Enabled     bool   `json:"enabled"`
}

// State is the mutable session state. All access is guarded; getters return
// point-in-time values suitable for handing across the realm boundary.
type State struct {
	mu sync.RWMutex

	characters map[string]Character
	personas   map[string]Persona
	presets    map[string]Preset
	worldBooks map[string]WorldBook
	regexRules map[string]RegexRule

	activeChar    string
	activePersona string

	chatSettings map[string]any
	llmConfig    map[string]any
}

// NewState creates an empty session state.
func NewState() *State {
	return &State{
		characters:   make(map[string]Character),
		personas:     make(map[string]Persona),
		presets:      make(map[string]Preset),
		worldBooks:   make(map[string]WorldBook),
		regexRules:   make(map[string]RegexRule),
		chatSettings: make(map[string]any),
		llmConfig:    make(map[string]any),
	}
}

// PutCharacter stores or replaces a character under its name.
func (s *State) PutCharacter(c Character) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.characters[c.Name] = c
}

// SetActiveCharacter marks the character the chat is currently with.
func (s *State) SetActiveCharacter(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activeChar = name
}

// Character returns the named character, or the active one for an empty key.
// The second result is false when nothing matches.
func (s *State) Character(key string) (Character, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if key == "" {
		key = s.activeChar
	}
	c, ok := s.characters[key]
	return c, ok
}

// CharAvatarPath returns the active character's avatar path.
func (s *State) CharAvatarPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.characters[s.activeChar]; ok {
		return c.AvatarPath
	}
	return ""
}

// PutPersona stores or replaces a persona under its name.
func (s *State) PutPersona(p Persona) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.personas[p.Name] = p
}

// SetActivePersona marks the persona in use.
func (s *State) SetActivePersona(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activePersona = name
}

// Persona returns the named persona, or the active one for an empty key.
func (s *State) Persona(key string) (Persona, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if key == "" {
		key = s.activePersona
	}
	p, ok := s.personas[key]
	return p, ok
}

// PersonaAvatarPath returns the active persona's avatar path.
func (s *State) PersonaAvatarPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.personas[s.activePersona]; ok {
		return p.AvatarPath
	}
	return ""
}

// PutPreset stores or replaces a preset.
func (s *State) PutPreset(p Preset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presets[p.Name] = p
}

// Preset returns the named preset; an empty key returns all presets.
func (s *State) Preset(key string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if key == "" {
		out := make([]Preset, 0, len(s.presets))
		for _, p := range s.presets {
			out = append(out, p)
		}
		return out
	}
	if p, ok := s.presets[key]; ok {
		return p
	}
	return nil
}

// PutWorldBook stores or replaces a world book.
func (s *State) PutWorldBook(w WorldBook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.worldBooks[w.Name] = w
}

// WorldBooks returns the named book as a single-element list, or all books
// for an empty key. Always a collection, matching the capability's shape.
func (s *State) WorldBooks(key string) []WorldBook {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if key != "" {
		if w, ok := s.worldBooks[key]; ok {
			return []WorldBook{w}
		}
		return []WorldBook{}
	}
	out := make([]WorldBook, 0, len(s.worldBooks))
	for _, w := range s.worldBooks {
		out = append(out, w)
	}
	return out
}

// PutRegexRule stores or replaces a regex rule.
func (s *State) PutRegexRule(r RegexRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regexRules[r.Name] = r
}

// RegexRules returns the named rule as a single-element list, or all rules
// for an empty key.
func (s *State) RegexRules(key string) []RegexRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if key != "" {
		if r, ok := s.regexRules[key]; ok {
			return []RegexRule{r}
		}
		return []RegexRule{}
	}
	out := make([]RegexRule, 0, len(s.regexRules))
	for _, r := range s.regexRules {
		out = append(out, r)
	}
	return out
}

// SetChatSettings replaces the chat settings snapshot.
func (s *State) SetChatSettings(settings map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatSettings = cloneMap(settings)
}

// ChatSettings returns a copy of the current chat settings.
func (s *State) ChatSettings() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMap(s.chatSettings)
}

// ChatSettingsField returns one chat settings field, nil when absent.
func (s *State) ChatSettingsField(key string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chatSettings[key]
}

// SetLlmConfig replaces the active LLM config snapshot.
func (s *State) SetLlmConfig(cfg map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.llmConfig = cloneMap(cfg)
}

// LlmConfig returns a copy of the active LLM config.
func (s *State) LlmConfig() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMap(s.llmConfig)
}

// LlmConfigField returns one LLM config field, nil when absent.
func (s *State) LlmConfigField(key string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.llmConfig[key]
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
