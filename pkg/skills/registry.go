// Package skills holds the lookup table from handler names to the
// functions that turn a completed field map into a reply.
package skills

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/borosabel/orchestrator/pkg/domain"
)

// Handler produces the final reply text for an intent from its field map.
type Handler func(ctx context.Context, fields domain.FieldMap) (string, error)

// Registry manages the available skill handlers.
// The host process builds it at startup; domain configs reference handlers
// by name only, keeping configs pure data.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler. An existing handler with the same name is
// overwritten.
func (r *Registry) Register(name string, fn Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = fn
}

// Has reports whether a handler is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[name]
	return ok
}

// Names returns the registered handler names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke looks up a handler by name and executes it.
// Returns domain.ErrUnknownSkill if the name is not registered; execution
// failures from the handler itself are returned as-is for the engine's
// error boundary to absorb.
func (r *Registry) Invoke(ctx context.Context, name string, fields domain.FieldMap) (string, error) {
	r.mu.RLock()
	fn, ok := r.handlers[name]
	r.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownSkill, name)
	}

	return fn(ctx, fields)
}
