package config

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/borosabel/orchestrator/internal/logging"
	"github.com/borosabel/orchestrator/pkg/domain"
)

// Manager owns the set of loaded domain configs and the "current" pointer.
// Configs are stored keyed by name regardless of validity so operators can
// inspect failed loads, but only a valid config can become current.
type Manager struct {
	validator *Validator
	logger    *slog.Logger
	clock     func() time.Time

	mu      sync.RWMutex
	configs map[string]*domain.RuntimeConfig
	current string
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) ManagerOption {
	return func(m *Manager) { m.clock = clock }
}

// NewManager creates a config manager bound to a validator.
func NewManager(validator *Validator, opts ...ManagerOption) *Manager {
	m := &Manager{
		validator: validator,
		logger:    logging.NewNop(),
		clock:     time.Now,
		configs:   make(map[string]*domain.RuntimeConfig),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load validates and stores a config. The current pointer switches to it
// only when validation passes; on failure the previously active config
// (if any) stays in effect.
func (m *Manager) Load(cfg *domain.DomainConfig) domain.ValidationResult {
	res := m.validator.Validate(cfg)

	name := ""
	if cfg != nil {
		name = cfg.Name
	}
	if name == "" {
		// Nothing addressable to store.
		m.logger.Warn("rejected unnamed domain config", "errors", len(res.Errors))
		return res
	}

	rc := &domain.RuntimeConfig{
		Config:     cfg,
		LoadedAt:   m.clock(),
		Validation: res,
	}

	m.mu.Lock()
	m.configs[name] = rc
	if res.Valid {
		m.current = name
	}
	m.mu.Unlock()

	if res.Valid {
		m.logger.Info("domain config activated", "domain", name, "version", cfg.Version, "warnings", len(res.Warnings))
	} else {
		m.logger.Warn("domain config failed validation", "domain", name, "errors", len(res.Errors))
	}
	return res
}

// SwitchTo makes a previously loaded config current. It returns false
// (never an error) if the name is unknown or the config was invalid at
// load time.
func (m *Manager) SwitchTo(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	rc, ok := m.configs[name]
	if !ok || !rc.Validation.Valid {
		return false
	}
	m.current = name
	return true
}

// Current returns the active runtime config, or nil when none is active.
func (m *Manager) Current() *domain.RuntimeConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == "" {
		return nil
	}
	return m.configs[m.current]
}

// Get returns a loaded config by name, valid or not.
func (m *Manager) Get(name string) *domain.RuntimeConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.configs[name]
}

// Names lists all loaded config names, sorted.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.configs))
	for name := range m.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
