// Package slots validates candidate slot values against their definitions
// before they ever enter a field map.
package slots

import (
	"sync"

	"github.com/borosabel/orchestrator/pkg/domain"
)

// ValidatorFunc checks a candidate value for a slot. A non-nil error
// rejects the candidate; rejection drops the value from the turn, it never
// fails the turn itself.
type ValidatorFunc func(v domain.Value) error

// ValidatorRegistry resolves the validator names referenced by slot
// definitions. Like skills, validators are code the host registers at
// startup so domain configs stay serializable data.
type ValidatorRegistry struct {
	mu  sync.RWMutex
	fns map[string]ValidatorFunc
}

// NewValidatorRegistry creates an empty registry.
func NewValidatorRegistry() *ValidatorRegistry {
	return &ValidatorRegistry{
		fns: make(map[string]ValidatorFunc),
	}
}

// Register adds a validator under name, overwriting any existing one.
func (r *ValidatorRegistry) Register(name string, fn ValidatorFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fns[name] = fn
}

// Get returns the validator registered under name, or nil.
func (r *ValidatorRegistry) Get(name string) ValidatorFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fns[name]
}
