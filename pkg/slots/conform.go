package slots

import (
	"fmt"

	"github.com/borosabel/orchestrator/pkg/domain"
)

// Conform filters raw extracted fields against the slot definitions of an
// intent. Extraction degrades rather than fails: every rejection drops the
// single offending field and the rest of the map survives.
//
// Dropped: fields with no matching definition, empty values, enumerated
// values not exactly equal to a declared choice, and values rejected by a
// named custom validator.
//
// The returned Dropped list names the rejected fields with a reason, for
// operator-facing logs only.
func Conform(defs []domain.SlotDefinition, fields domain.FieldMap, validators *ValidatorRegistry) (domain.FieldMap, []string) {
	out := make(domain.FieldMap, len(fields))
	var dropped []string

	byName := make(map[string]*domain.SlotDefinition, len(defs))
	for i := range defs {
		byName[defs[i].Name] = &defs[i]
	}

	for name, value := range fields {
		def, ok := byName[name]
		if !ok {
			dropped = append(dropped, fmt.Sprintf("%s: not in slot schema", name))
			continue
		}
		if err := Check(def, value, validators); err != nil {
			dropped = append(dropped, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		out[name] = value
	}

	return out, dropped
}

// Check validates one candidate value against its slot definition.
func Check(def *domain.SlotDefinition, value domain.Value, validators *ValidatorRegistry) error {
	if domain.IsEmpty(value) {
		return fmt.Errorf("empty value")
	}

	if def.Kind == domain.SlotEnumerated {
		if !matchesChoice(def.Choices, value) {
			return fmt.Errorf("%q is not one of the declared choices", value.String())
		}
	}

	if def.Validator != "" && validators != nil {
		fn := validators.Get(def.Validator)
		if fn == nil {
			// An unresolvable validator name rejects the value; accepting
			// unvalidated input would silently widen the schema.
			return fmt.Errorf("validator %q not registered", def.Validator)
		}
		if err := fn(value); err != nil {
			return fmt.Errorf("rejected by validator %q: %v", def.Validator, err)
		}
	}

	return nil
}

// matchesChoice requires exact equality with a declared choice; values are
// never coerced toward the nearest choice.
func matchesChoice(choices []string, value domain.Value) bool {
	s := value.String()
	for _, c := range choices {
		if s == c {
			return true
		}
	}
	return false
}
