package domain

import "time"

// SlotKind distinguishes free-form values from closed choice sets.
type SlotKind string

const (
	SlotScalar     SlotKind = "scalar"
	SlotEnumerated SlotKind = "enumerated"
)

// SlotDefinition describes one piece of information an intent needs.
type SlotDefinition struct {
	Name   string   `yaml:"name" json:"name"`
	Prompt string   `yaml:"prompt" json:"prompt"`
	Kind   SlotKind `yaml:"kind" json:"kind"`

	// Choices is the closed value set for enumerated slots.
	Choices []string `yaml:"choices,omitempty" json:"choices,omitempty"`

	// Validator names a custom check registered on the host's validator registry.
	Validator string `yaml:"validator,omitempty" json:"validator,omitempty"`

	// Pattern and Transform are extraction hints consumed by the default
	// pattern extractor. Opaque to the core.
	Pattern   string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Transform string `yaml:"transform,omitempty" json:"transform,omitempty"`
}

// IntentDefinition binds a classified purpose to its slots and skill.
type IntentDefinition struct {
	Name          string   `yaml:"name" json:"name"`
	MatchHint     string   `yaml:"match_hint" json:"match_hint"`
	RequiredSlots []string `yaml:"required_slots,omitempty" json:"required_slots,omitempty"`
	Skill         string   `yaml:"skill" json:"skill"`
}

// Options holds global knobs. Model parameters are stored but never
// interpreted by the core; capability adapters decode them.
type Options struct {
	FallbackIntent  string         `yaml:"fallback_intent,omitempty" json:"fallback_intent,omitempty"`
	MaxSlotAttempts int            `yaml:"max_slot_attempts,omitempty" json:"max_slot_attempts,omitempty"`
	Model           map[string]any `yaml:"model,omitempty" json:"model,omitempty"`
}

// DefaultMaxSlotAttempts bounds how often the same slot is re-asked before
// the collection is abandoned.
const DefaultMaxSlotAttempts = 3

// DomainConfig is a swappable bundle of intents, slot schemas and skill
// bindings. It is immutable once validated and loaded.
type DomainConfig struct {
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`

	Intents []IntentDefinition `yaml:"intents" json:"intents"`

	// Slots groups slot definitions by intent name.
	Slots map[string][]SlotDefinition `yaml:"slots,omitempty" json:"slots,omitempty"`

	// PromptTemplates are opaque strings consumed only by external
	// classification/extraction capabilities.
	PromptTemplates map[string]string `yaml:"prompt_templates,omitempty" json:"prompt_templates,omitempty"`

	// Skills maps a handler name (referenced by intents) to the identifier
	// of a function registered on the host's skill registry.
	Skills map[string]string `yaml:"skills" json:"skills"`

	Options Options `yaml:"options,omitempty" json:"options,omitempty"`
}

// Intent returns the definition for name, or nil if the domain does not
// declare it.
func (c *DomainConfig) Intent(name string) *IntentDefinition {
	for i := range c.Intents {
		if c.Intents[i].Name == name {
			return &c.Intents[i]
		}
	}
	return nil
}

// SlotDefs returns the slot definitions declared for an intent, in
// declaration order. Nil when the intent declares no slots.
func (c *DomainConfig) SlotDefs(intent string) []SlotDefinition {
	return c.Slots[intent]
}

// SlotDef finds one slot definition by intent and slot name.
func (c *DomainConfig) SlotDef(intent, slot string) *SlotDefinition {
	defs := c.Slots[intent]
	for i := range defs {
		if defs[i].Name == slot {
			return &defs[i]
		}
	}
	return nil
}

// Fallback returns the configured fallback intent, defaulting to "unknown".
func (c *DomainConfig) Fallback() string {
	if c.Options.FallbackIntent != "" {
		return c.Options.FallbackIntent
	}
	return IntentUnknown
}

// MaxSlotAttempts returns the re-prompt ceiling per slot.
func (c *DomainConfig) MaxSlotAttempts() int {
	if c.Options.MaxSlotAttempts > 0 {
		return c.Options.MaxSlotAttempts
	}
	return DefaultMaxSlotAttempts
}

// ValidationResult is the structured outcome of config validation.
// Only a config with Valid == true may become active.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// RuntimeConfig pairs a validated DomainConfig with its load metadata.
type RuntimeConfig struct {
	Config     *DomainConfig
	LoadedAt   time.Time
	Validation ValidationResult
}
