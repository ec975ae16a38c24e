// Package config validates domain configurations and manages which one is
// active. Loading never throws; validation always yields a structured
// result, and only a valid config can become current.
package config

import (
	"fmt"

	"github.com/borosabel/orchestrator/pkg/domain"
	"github.com/borosabel/orchestrator/pkg/skills"
)

// Validator checks a declarative domain description before it may be
// activated. The skill registry is needed because handler references are
// the one check that crosses from data into code.
type Validator struct {
	registry *skills.Registry
}

// NewValidator creates a validator bound to the host's skill registry.
func NewValidator(registry *skills.Registry) *Validator {
	return &Validator{registry: registry}
}

// Validate runs the ordered check list and returns a structured result.
// It never panics or returns an error; everything is reported inside the
// ValidationResult.
func (v *Validator) Validate(cfg *domain.DomainConfig) domain.ValidationResult {
	var res domain.ValidationResult
	if cfg == nil {
		res.Errors = append(res.Errors, "config is nil")
		return res
	}

	// Metadata.
	if cfg.Name == "" {
		res.Errors = append(res.Errors, "metadata: name is required")
	}
	if cfg.Version == "" {
		res.Errors = append(res.Errors, "metadata: version is required")
	}

	// Intents.
	if len(cfg.Intents) == 0 {
		res.Errors = append(res.Errors, "at least one intent must be defined")
	}
	seen := make(map[string]bool, len(cfg.Intents))
	for _, it := range cfg.Intents {
		if it.Name == "" {
			res.Errors = append(res.Errors, "intent with empty name")
			continue
		}
		if seen[it.Name] {
			res.Errors = append(res.Errors, fmt.Sprintf("duplicate intent name %q", it.Name))
		}
		seen[it.Name] = true

		if it.MatchHint == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("intent %q: match hint is empty", it.Name))
		}
		if it.Skill == "" {
			res.Errors = append(res.Errors, fmt.Sprintf("intent %q: no skill handler bound", it.Name))
		}
	}

	// Slot groups must belong to a known intent (warning if orphaned).
	for intentName := range cfg.Slots {
		if !seen[intentName] {
			res.Warnings = append(res.Warnings, fmt.Sprintf("slot group %q does not match any intent", intentName))
		}
	}

	// Slot definitions.
	for intentName, defs := range cfg.Slots {
		for _, def := range defs {
			where := fmt.Sprintf("intent %q slot %q", intentName, def.Name)
			if def.Name == "" {
				res.Errors = append(res.Errors, fmt.Sprintf("intent %q: slot with empty name", intentName))
				continue
			}
			if def.Prompt == "" {
				res.Errors = append(res.Errors, where+": prompt is required")
			}
			switch def.Kind {
			case domain.SlotScalar:
			case domain.SlotEnumerated:
				if len(def.Choices) == 0 {
					res.Errors = append(res.Errors, where+": enumerated slot declares no choices")
				}
			default:
				res.Errors = append(res.Errors, fmt.Sprintf("%s: kind %q is not scalar or enumerated", where, def.Kind))
			}
		}
	}

	// Every required slot needs a definition.
	for _, it := range cfg.Intents {
		for _, name := range it.RequiredSlots {
			if cfg.SlotDef(it.Name, name) == nil {
				res.Errors = append(res.Errors, fmt.Sprintf("intent %q: required slot %q has no definition", it.Name, name))
			}
		}
	}

	// Skill handler resolution is the hard gate: the bound name must exist
	// in the skills map and the mapped reference must be registered.
	for _, it := range cfg.Intents {
		if it.Skill == "" {
			continue
		}
		ref, ok := cfg.Skills[it.Skill]
		if !ok {
			res.Errors = append(res.Errors, fmt.Sprintf("intent %q: skill handler %q missing from skills map", it.Name, it.Skill))
			continue
		}
		if v.registry != nil && !v.registry.Has(ref) {
			res.Errors = append(res.Errors, fmt.Sprintf("intent %q: skill handler %q resolves to unregistered function %q", it.Name, it.Skill, ref))
		}
	}

	// Conventional system intents are recommended, not required.
	for _, name := range []string{domain.IntentGreet, domain.IntentExit, domain.IntentUnknown} {
		if !seen[name] {
			res.Warnings = append(res.Warnings, fmt.Sprintf("system intent %q is not defined", name))
		}
	}

	res.Valid = len(res.Errors) == 0
	return res
}
