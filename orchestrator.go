// Package orchestrator is the high-level entry point for the dialogue
// orchestration library. It wires the config manager, session store,
// skill registry and orchestration engine behind a simplified API.
package orchestrator

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/borosabel/orchestrator/internal/config"
	"github.com/borosabel/orchestrator/internal/engine"
	"github.com/borosabel/orchestrator/internal/logging"
	"github.com/borosabel/orchestrator/internal/nlu"
	"github.com/borosabel/orchestrator/internal/session"
	"github.com/borosabel/orchestrator/pkg/adapters/memory"
	"github.com/borosabel/orchestrator/pkg/domain"
	"github.com/borosabel/orchestrator/pkg/ports"
	"github.com/borosabel/orchestrator/pkg/skills"
	"github.com/borosabel/orchestrator/pkg/slots"
)

// Orchestrator bundles the constructed service graph. Build one with New,
// register skills and validators, load a domain, then process messages.
type Orchestrator struct {
	configs    *config.Manager
	sessions   *session.Store
	skills     *skills.Registry
	validators *slots.ValidatorRegistry
	engine     *engine.Engine
	logger     *slog.Logger
}

type settings struct {
	store      ports.SessionStore
	locker     ports.DistributedLocker
	classifier ports.IntentClassifier
	extractor  ports.SlotExtractor
	logger     *slog.Logger
	registerer prometheus.Registerer
	inference  session.InferenceHook
	useModel   bool
}

// Option configures the Orchestrator.
type Option func(*settings)

// WithLogger sets the logger used across all components.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithStore replaces the default in-memory session backend.
func WithStore(store ports.SessionStore) Option {
	return func(s *settings) { s.store = store }
}

// WithLocker enables distributed per-session locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(s *settings) { s.locker = locker }
}

// WithClassifier injects a custom classification capability.
func WithClassifier(c ports.IntentClassifier) Option {
	return func(s *settings) { s.classifier = c }
}

// WithExtractor injects a custom extraction capability.
func WithExtractor(e ports.SlotExtractor) Option {
	return func(s *settings) { s.extractor = e }
}

// WithModelCapabilities routes classification and extraction through the
// OpenAI-compatible endpoint described by the domain config's model
// options, instead of the built-in pattern capabilities.
func WithModelCapabilities() Option {
	return func(s *settings) { s.useModel = true }
}

// WithMetrics registers engine metrics on the given registerer.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *settings) { s.registerer = reg }
}

// WithInference replaces the passive preference inference hook.
func WithInference(hook session.InferenceHook) Option {
	return func(s *settings) { s.inference = hook }
}

// New constructs a fully wired orchestrator. Defaults: in-memory sessions,
// hint classifier, pattern extractor, no-op logger, no metrics.
func New(opts ...Option) *Orchestrator {
	s := settings{
		logger:    logging.NewNop(),
		inference: session.InferPreferences,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.store == nil {
		s.store = memory.NewStore()
	}

	registry := skills.NewRegistry()
	validators := slots.NewValidatorRegistry()
	configs := config.NewManager(config.NewValidator(registry), config.WithLogger(s.logger))

	sessionOpts := []session.Option{
		session.WithLogger(s.logger),
		session.WithInference(s.inference),
	}
	if s.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(s.locker))
	}
	sessions := session.NewStore(s.store, sessionOpts...)

	if s.useModel {
		model := nlu.NewModelClient(configs, s.logger)
		if s.classifier == nil {
			s.classifier = model
		}
		if s.extractor == nil {
			s.extractor = model
		}
	}
	if s.classifier == nil {
		s.classifier = nlu.NewHintClassifier(configs, s.logger)
	}
	if s.extractor == nil {
		s.extractor = nlu.NewPatternExtractor(configs, s.logger)
	}

	engineOpts := []engine.Option{engine.WithLogger(s.logger)}
	if s.registerer != nil {
		engineOpts = append(engineOpts, engine.WithMetrics(engine.NewMetrics(s.registerer)))
	}

	return &Orchestrator{
		configs:    configs,
		sessions:   sessions,
		skills:     registry,
		validators: validators,
		engine:     engine.New(configs, sessions, registry, validators, s.classifier, s.extractor, engineOpts...),
		logger:     s.logger,
	}
}

// Skills returns the handler registry for host registration.
func (o *Orchestrator) Skills() *skills.Registry { return o.skills }

// Validators returns the slot-validator registry for host registration.
func (o *Orchestrator) Validators() *slots.ValidatorRegistry { return o.validators }

// LoadDomain validates and stores a config, activating it when valid.
// Callers must check the result's Valid flag before relying on the switch.
func (o *Orchestrator) LoadDomain(cfg *domain.DomainConfig) domain.ValidationResult {
	return o.configs.Load(cfg)
}

// LoadDomainFile reads a YAML domain config and loads it.
func (o *Orchestrator) LoadDomainFile(path string) (domain.ValidationResult, error) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	return o.LoadDomain(cfg), nil
}

// SwitchDomain activates a previously loaded config; false if unknown or
// invalid. Existing sessions keep their own domain tag and history, but
// subsequent turns are processed against whichever domain is active
// engine-wide.
func (o *Orchestrator) SwitchDomain(name string) bool {
	return o.configs.SwitchTo(name)
}

// ActiveDomain returns the current domain name, or empty.
func (o *Orchestrator) ActiveDomain() string {
	if rc := o.configs.Current(); rc != nil {
		return rc.Config.Name
	}
	return ""
}

// DomainNames lists all loaded domains, valid or not.
func (o *Orchestrator) DomainNames() []string { return o.configs.Names() }

// ValidateDomainFile parses and validates a config without loading it.
func (o *Orchestrator) ValidateDomainFile(path string) (domain.ValidationResult, error) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	return config.NewValidator(o.skills).Validate(cfg), nil
}

// StartConversation opens a session and returns its ID.
func (o *Orchestrator) StartConversation(ctx context.Context, userID string) (string, error) {
	return o.engine.StartConversation(ctx, userID)
}

// EndConversation discards the session.
func (o *Orchestrator) EndConversation(ctx context.Context, sessionID string) {
	o.engine.EndConversation(ctx, sessionID)
}

// ProcessMessage runs one turn and returns the reply text.
func (o *Orchestrator) ProcessMessage(ctx context.Context, sessionID, text string) string {
	return o.engine.ProcessMessage(ctx, sessionID, text)
}

// ProcessMessageDetailed runs one turn and returns the diagnostic result.
func (o *Orchestrator) ProcessMessageDetailed(ctx context.Context, sessionID, text string) *domain.TurnResult {
	return o.engine.ProcessMessageDetailed(ctx, sessionID, text)
}

// ConversationSummary renders an operator-facing recap of the session.
func (o *Orchestrator) ConversationSummary(ctx context.Context, sessionID string) string {
	return o.sessions.ConversationSummary(ctx, sessionID)
}

// CleanupOldSessions evicts sessions idle longer than maxAge.
func (o *Orchestrator) CleanupOldSessions(ctx context.Context, maxAge time.Duration) int {
	return o.sessions.CleanupOldSessions(ctx, maxAge)
}

// StartJanitor runs periodic cleanup until ctx is canceled.
func (o *Orchestrator) StartJanitor(ctx context.Context, interval, maxAge time.Duration) {
	o.engine.StartJanitor(ctx, interval, maxAge)
}
