// Package engine runs the per-message pipeline: classify, extract, merge
// with session state, run the slot-collection protocol, then execute the
// bound skill or emit a follow-up prompt, recording the turn either way.
//
// The engine is the error boundary of the system. Anything that fails
// inside a turn degrades that stage's output or becomes an apologetic
// reply; nothing propagates to the caller as a crash.
package engine

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/borosabel/orchestrator/internal/config"
	"github.com/borosabel/orchestrator/internal/logging"
	"github.com/borosabel/orchestrator/internal/session"
	"github.com/borosabel/orchestrator/pkg/domain"
	"github.com/borosabel/orchestrator/pkg/ports"
	"github.com/borosabel/orchestrator/pkg/skills"
	"github.com/borosabel/orchestrator/pkg/slots"
)

// Canned replies for the failure paths. Operator detail goes to logs only.
const (
	replyNoDomain     = "I'm not set up for any conversation domain yet. Please load a domain configuration first."
	replyUnknown      = "I'm sorry, I didn't quite catch that. Could you rephrase?"
	replySkillTrouble = "Something went wrong on my end. Please try again."
	replyGaveUp       = "I couldn't get the details I need, so let's start over. How can I help?"
)

// Engine orchestrates one conversation turn at a time. All collaborators
// are injected; the engine holds no global state of its own.
type Engine struct {
	configs    *config.Manager
	sessions   *session.Store
	skills     *skills.Registry
	validators *slots.ValidatorRegistry
	classifier ports.IntentClassifier
	extractor  ports.SlotExtractor
	logger     *slog.Logger
	metrics    *Metrics
	clock      func() time.Time
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics attaches prometheus metrics.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// New wires the engine. Session store and skill registry are constructor
// dependencies rather than globals so per-session locking and handler
// registration stay at the injection boundary.
func New(
	configs *config.Manager,
	sessions *session.Store,
	registry *skills.Registry,
	validators *slots.ValidatorRegistry,
	classifier ports.IntentClassifier,
	extractor ports.SlotExtractor,
	opts ...Option,
) *Engine {
	e := &Engine{
		configs:    configs,
		sessions:   sessions,
		skills:     registry,
		validators: validators,
		classifier: classifier,
		extractor:  extractor,
		logger:     logging.NewNop(),
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartConversation creates a session tagged with the currently active
// domain and returns its ID.
func (e *Engine) StartConversation(ctx context.Context, userID string) (string, error) {
	domainName := ""
	if rc := e.configs.Current(); rc != nil {
		domainName = rc.Config.Name
	}
	sess, err := e.sessions.CreateSession(ctx, domainName, userID)
	if err != nil {
		return "", err
	}
	return sess.ID, nil
}

// EndConversation discards the session. Unknown IDs are a no-op.
func (e *Engine) EndConversation(ctx context.Context, sessionID string) {
	e.sessions.Delete(ctx, sessionID)
}

// ProcessMessage runs one turn and returns the reply text.
func (e *Engine) ProcessMessage(ctx context.Context, sessionID, text string) string {
	return e.ProcessMessageDetailed(ctx, sessionID, text).Response
}

// ProcessMessageDetailed runs one turn and returns the full diagnostic
// result. It never panics and never returns nil.
func (e *Engine) ProcessMessageDetailed(ctx context.Context, sessionID, text string) (result *domain.TurnResult) {
	started := e.clock()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("turn processing panicked", "session_id", sessionID, "panic", r)
			result = &domain.TurnResult{
				Intent:   domain.IntentUnknown,
				Response: replySkillTrouble,
			}
		}
		result.ProcessingTime = e.clock().Sub(started)
		e.metrics.observeTurn(result.Domain, result.Intent, outcomeOf(result), result.ProcessingTime.Seconds())
	}()

	result = e.process(ctx, sessionID, text)
	return result
}

// outcome labels for metrics.
func outcomeOf(r *domain.TurnResult) string {
	switch r.Response {
	case replyNoDomain, replySkillTrouble:
		return "error"
	case replyUnknown:
		return "unknown"
	default:
		return "ok"
	}
}

func (e *Engine) process(ctx context.Context, sessionID, text string) *domain.TurnResult {
	rc := e.configs.Current()
	if rc == nil {
		return &domain.TurnResult{Intent: domain.IntentUnknown, Response: replyNoDomain}
	}
	cfg := rc.Config

	// A stale or foreign session ID gets a fresh session rather than a
	// refusal; reads on unknown IDs elsewhere return empty state anyway.
	sess := e.sessions.GetSession(ctx, sessionID)
	if sess == nil {
		created, err := e.sessions.CreateSession(ctx, cfg.Name, "")
		if err == nil {
			e.logger.Debug("created session on demand", "session_id", created.ID)
			sess = created
			sessionID = created.ID
		}
	}

	var coll *domain.SlotCollection
	if sess != nil {
		coll = sess.Context.Collection
	}

	intent := e.classify(ctx, cfg, text)

	// A bare slot answer ("$30000") rarely re-classifies as the original
	// intent, so a fallback classification during an active collection is
	// treated as a continuation of that collection.
	if coll != nil && intent == cfg.Fallback() {
		intent = coll.TargetIntent
	}

	def := cfg.Intent(intent)
	if def == nil {
		response := e.unknownResponse(ctx, cfg)
		e.record(ctx, sessionID, cfg.Name, text, intent, nil, response)
		return &domain.TurnResult{Intent: intent, Response: response, Domain: cfg.Name}
	}

	merged := e.mergeSources(ctx, cfg, sess, coll, def, text)

	missing := missingOf(def.RequiredSlots, merged)

	var response string
	switch {
	case len(def.RequiredSlots) == 0:
		// Nothing to collect; straight to execution.
		response = e.invokeSkill(ctx, cfg, def, merged)

	case len(missing) == 0:
		if coll != nil && coll.TargetIntent == intent {
			e.sessions.CompleteSlotCollection(ctx, sessionID)
			e.metrics.collectionCompleted()
		}
		response = e.invokeSkill(ctx, cfg, def, merged)

	default:
		response = e.collectMore(ctx, cfg, sessionID, intent, def, coll, merged, missing)
	}

	e.record(ctx, sessionID, cfg.Name, text, intent, merged, response)
	return &domain.TurnResult{Intent: intent, Slots: merged, Response: response, Domain: cfg.Name}
}

// classify invokes the classification port, degrading any failure to the
// configured fallback intent.
func (e *Engine) classify(ctx context.Context, cfg *domain.DomainConfig, text string) string {
	intent, err := e.classifier.Classify(ctx, text)
	if err != nil {
		e.logger.Warn("classification degraded to fallback", "err", err)
		e.metrics.capabilityFailure("classify")
		return cfg.Fallback()
	}
	if intent == "" {
		return cfg.Fallback()
	}
	return intent
}

// extract invokes the extraction port and conforms the result to the slot
// schema. Failures degrade to an empty map. Intents with no declared slots
// never touch the capability.
func (e *Engine) extract(ctx context.Context, cfg *domain.DomainConfig, intent, text string) domain.FieldMap {
	defs := cfg.SlotDefs(intent)
	if len(defs) == 0 {
		return domain.FieldMap{}
	}

	raw, err := e.extractor.Extract(ctx, intent, text)
	if err != nil {
		e.logger.Warn("extraction degraded to empty fields", "intent", intent, "err", err)
		e.metrics.capabilityFailure("extract")
		return domain.FieldMap{}
	}

	conformed, dropped := slots.Conform(defs, raw, e.validators)
	for _, reason := range dropped {
		e.logger.Debug("extracted field dropped", "intent", intent, "reason", reason)
	}
	return conformed
}

// mergeSources builds the turn's resolved field map. Precedence: already
// collected slots are the base, fresh extraction overrides them, then
// passive preferences and finally prior entity mentions fill what is still
// missing.
func (e *Engine) mergeSources(ctx context.Context, cfg *domain.DomainConfig, sess *domain.Session, coll *domain.SlotCollection, def *domain.IntentDefinition, text string) domain.FieldMap {
	merged := make(domain.FieldMap)
	if coll != nil && coll.TargetIntent == def.Name {
		merged = coll.Collected.Clone()
	}

	for name, value := range e.extract(ctx, cfg, def.Name, text) {
		if !domain.IsEmpty(value) {
			merged[name] = value
		}
	}

	if sess == nil {
		return merged
	}

	for _, name := range missingOf(def.RequiredSlots, merged) {
		if value, ok := preferenceFor(sess.Preferences, name); ok {
			merged[name] = value
		}
	}

	for _, name := range missingOf(def.RequiredSlots, merged) {
		if value, ok := sess.Context.EntityMentions[name]; ok && !domain.IsEmpty(value) {
			merged[name] = value
		}
	}

	return merged
}

// preferenceFor maps passively inferred preferences onto slot names.
func preferenceFor(prefs domain.FieldMap, slot string) (domain.Value, bool) {
	if prefs == nil {
		return nil, false
	}
	switch slot {
	case "time_of_day", "preferred_time", "time":
		if v, ok := prefs[session.PrefTimeOfDay]; ok && !domain.IsEmpty(v) {
			return v, true
		}
	case "day", "weekday", "preferred_day":
		if s, ok := prefs.GetString(session.PrefDays); ok {
			day, _, _ := strings.Cut(s, ",")
			return domain.StringValue(day), true
		}
	}
	return nil, false
}

// collectMore runs the follow-up branch of the protocol: open or continue
// the collection, then ask for the first missing slot in declaration
// order. The skill does not run this turn.
func (e *Engine) collectMore(ctx context.Context, cfg *domain.DomainConfig, sessionID, intent string, def *domain.IntentDefinition, coll *domain.SlotCollection, merged domain.FieldMap, missing []string) string {
	if coll == nil || coll.TargetIntent != intent {
		if coll != nil {
			// The user changed their mind mid-collection; the old request
			// cannot continue under a different intent.
			e.logger.Debug("abandoning collection for new intent", "old", coll.TargetIntent, "new", intent)
			e.sessions.AbandonSlotCollection(ctx, sessionID)
		}
		if err := e.sessions.StartSlotCollection(ctx, sessionID, intent, def.RequiredSlots, cfg.MaxSlotAttempts()); err != nil {
			e.logger.Warn("could not start slot collection", "session_id", sessionID, "err", err)
		} else {
			e.metrics.collectionStarted()
		}
	}
	e.sessions.UpdateSlotCollection(ctx, sessionID, merged)

	first := missing[0]
	attempts := e.sessions.RecordPromptAttempt(ctx, sessionID, first)
	if attempts > cfg.MaxSlotAttempts() {
		e.logger.Info("slot collection abandoned after repeated prompts", "session_id", sessionID, "slot", first, "attempts", attempts)
		e.sessions.AbandonSlotCollection(ctx, sessionID)
		return replyGaveUp
	}

	return followUpPrompt(cfg, intent, first)
}

// followUpPrompt returns the configured phrasing for a slot, or the
// generic fallback with underscores rendered as spaces.
func followUpPrompt(cfg *domain.DomainConfig, intent, slot string) string {
	if def := cfg.SlotDef(intent, slot); def != nil && def.Prompt != "" {
		return def.Prompt
	}
	return "Could you please provide your " + strings.ReplaceAll(slot, "_", " ") + "?"
}

// invokeSkill resolves the intent's handler through the config's skills
// map and executes it. Failures become a generic retry message.
func (e *Engine) invokeSkill(ctx context.Context, cfg *domain.DomainConfig, def *domain.IntentDefinition, fields domain.FieldMap) string {
	ref, ok := cfg.Skills[def.Skill]
	if !ok {
		e.logger.Error("intent bound to unmapped skill handler", "intent", def.Name, "handler", def.Skill)
		return e.unknownResponse(ctx, cfg)
	}

	out, err := e.skills.Invoke(ctx, ref, fields)
	if err != nil {
		e.logger.Error("skill execution failed", "intent", def.Name, "handler", ref, "err", err)
		e.metrics.skillFailure()
		return replySkillTrouble
	}
	return out
}

// unknownResponse handles intents the domain does not define. The domain's
// own unknown handler wins when present and registered; otherwise a static
// apology. This path never fails.
func (e *Engine) unknownResponse(ctx context.Context, cfg *domain.DomainConfig) string {
	def := cfg.Intent(cfg.Fallback())
	if def == nil {
		return replyUnknown
	}
	ref, ok := cfg.Skills[def.Skill]
	if !ok {
		return replyUnknown
	}
	out, err := e.skills.Invoke(ctx, ref, domain.FieldMap{})
	if err != nil {
		e.logger.Warn("unknown-intent handler failed", "err", err)
		return replyUnknown
	}
	return out
}

// record appends the turn to the session history. Recording failures must
// never abort the flow; the store already guarantees that.
func (e *Engine) record(ctx context.Context, sessionID, domainName, input, intent string, fields domain.FieldMap, response string) {
	e.sessions.AddTurn(ctx, sessionID, domain.Turn{
		Timestamp: e.clock(),
		UserInput: input,
		Intent:    intent,
		Slots:     fields,
		Response:  response,
		Domain:    domainName,
	})
}

// missingOf returns required minus the non-empty keys of fields, in
// declaration order.
func missingOf(required []string, fields domain.FieldMap) []string {
	var missing []string
	for _, name := range required {
		if v, ok := fields[name]; !ok || domain.IsEmpty(v) {
			missing = append(missing, name)
		}
	}
	return missing
}

// StartJanitor launches a background loop that evicts idle sessions until
// ctx is canceled.
func (e *Engine) StartJanitor(ctx context.Context, interval, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.sessions.CleanupOldSessions(ctx, maxAge)
			}
		}
	}()
}
