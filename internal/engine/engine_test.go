package engine_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borosabel/orchestrator/internal/config"
	"github.com/borosabel/orchestrator/internal/engine"
	"github.com/borosabel/orchestrator/internal/nlu"
	"github.com/borosabel/orchestrator/internal/session"
	"github.com/borosabel/orchestrator/pkg/adapters/memory"
	"github.com/borosabel/orchestrator/pkg/domain"
	"github.com/borosabel/orchestrator/pkg/skills"
	"github.com/borosabel/orchestrator/pkg/slots"
)

// harness bundles the wired collaborators so tests can reach into any layer.
type harness struct {
	engine     *engine.Engine
	configs    *config.Manager
	sessions   *session.Store
	skills     *skills.Registry
	validators *slots.ValidatorRegistry
}

func newHarness(t *testing.T, opts ...engine.Option) *harness {
	t.Helper()

	registry := skills.NewRegistry()
	registry.Register("loan_quote", func(ctx context.Context, fields domain.FieldMap) (string, error) {
		amount, _ := fields.GetString("amount")
		purpose, _ := fields.GetString("purpose")
		return fmt.Sprintf("Great! I can offer you a $%s loan for %s. An advisor will contact you shortly.",
			groupDigits(amount), strings.ToLower(purpose)), nil
	})
	registry.Register("say_greeting", func(ctx context.Context, fields domain.FieldMap) (string, error) {
		return "Hello! How can I help you today?", nil
	})
	registry.Register("say_unknown", func(ctx context.Context, fields domain.FieldMap) (string, error) {
		return "I can help with loan inquiries. What do you need?", nil
	})
	registry.Register("schedule_callback", func(ctx context.Context, fields domain.FieldMap) (string, error) {
		tod, _ := fields.GetString("time_of_day")
		return "Sure, we will call you in the " + tod + ".", nil
	})

	validators := slots.NewValidatorRegistry()
	validators.Register("positive_amount", func(v domain.Value) error {
		n, err := strconv.ParseFloat(v.String(), 64)
		if err != nil || n <= 0 {
			return fmt.Errorf("amount must be a positive number")
		}
		return nil
	})

	configs := config.NewManager(config.NewValidator(registry))
	require.True(t, configs.Load(loanDomain()).Valid)

	sessions := session.NewStore(memory.NewStore())

	eng := engine.New(
		configs,
		sessions,
		registry,
		validators,
		nlu.NewHintClassifier(configs, nil),
		nlu.NewPatternExtractor(configs, nil),
		opts...,
	)
	return &harness{
		engine:     eng,
		configs:    configs,
		sessions:   sessions,
		skills:     registry,
		validators: validators,
	}
}

func loanDomain() *domain.DomainConfig {
	return &domain.DomainConfig{
		Name:    "banking",
		Version: "1.0",
		Intents: []domain.IntentDefinition{
			{Name: "greet", MatchHint: "hello|hi|hey", Skill: "greeting"},
			{
				Name:          "loan_inquiry",
				MatchHint:     "loan|borrow|credit|financing",
				RequiredSlots: []string{"amount", "purpose"},
				Skill:         "quote",
			},
			{
				Name:          "callback",
				MatchHint:     "call me|call back|reach me",
				RequiredSlots: []string{"time_of_day"},
				Skill:         "callback",
			},
			{Name: "unknown", MatchHint: "-", Skill: "fallback"},
		},
		Slots: map[string][]domain.SlotDefinition{
			"loan_inquiry": {
				{
					Name:      "amount",
					Prompt:    "How much would you like to borrow?",
					Kind:      domain.SlotScalar,
					Validator: "positive_amount",
					Pattern:   `\$?\s*([0-9][0-9,]+)`,
					Transform: "digits",
				},
				{
					Name:      "purpose",
					Prompt:    "What is the loan for?",
					Kind:      domain.SlotScalar,
					Pattern:   `(?i)\bfor\s+(?:(?:a|an|the)\s+)?(.+?)[\s.!?]*$`,
					Transform: "capitalize",
				},
			},
			"callback": {
				{Name: "time_of_day", Prompt: "When is a good time to call?", Kind: domain.SlotScalar},
			},
		},
		Skills: map[string]string{
			"greeting": "say_greeting",
			"quote":    "loan_quote",
			"callback": "schedule_callback",
			"fallback": "say_unknown",
		},
	}
}

func groupDigits(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func start(t *testing.T, h *harness) string {
	t.Helper()
	id, err := h.engine.StartConversation(context.Background(), "user-1")
	require.NoError(t, err)
	return id
}

func TestSingleTurnLoanInquiry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := start(t, h)

	reply := h.engine.ProcessMessage(ctx, id, "I need a $50000 loan for a car purchase")
	assert.Equal(t, "Great! I can offer you a $50,000 loan for car purchase. An advisor will contact you shortly.", reply)

	// Everything arrived in one turn, so no collection was ever opened.
	assert.Nil(t, h.sessions.Collection(ctx, id))
}

func TestMultiTurnSlotCollection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := start(t, h)

	reply := h.engine.ProcessMessage(ctx, id, "I need a loan")
	assert.Equal(t, "How much would you like to borrow?", reply)
	assert.True(t, h.sessions.IsWaitingForSlot(ctx, id, "amount"))

	reply = h.engine.ProcessMessage(ctx, id, "$30000")
	assert.Equal(t, "What is the loan for?", reply)
	assert.False(t, h.sessions.IsWaitingForSlot(ctx, id, "amount"))
	assert.True(t, h.sessions.IsWaitingForSlot(ctx, id, "purpose"))

	reply = h.engine.ProcessMessage(ctx, id, "for home purchase")
	assert.Equal(t, "Great! I can offer you a $30,000 loan for home purchase. An advisor will contact you shortly.", reply)

	assert.Nil(t, h.sessions.Collection(ctx, id))
	flow := h.sessions.Context(ctx, id).Flow
	assert.Contains(t, flow, domain.FlowSlotCollectionComplete)
}

func TestGibberishHitsUnknownHandler(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := start(t, h)

	reply := h.engine.ProcessMessage(ctx, id, "qwerty asdf zxcv")
	assert.Equal(t, "I can help with loan inquiries. What do you need?", reply)
	assert.Nil(t, h.sessions.Collection(ctx, id), "an unknown turn must not open a collection")
}

func TestNoDomainLoaded(t *testing.T) {
	registry := skills.NewRegistry()
	configs := config.NewManager(config.NewValidator(registry))
	sessions := session.NewStore(memory.NewStore())
	eng := engine.New(configs, sessions, registry, slots.NewValidatorRegistry(),
		nlu.NewHintClassifier(configs, nil), nlu.NewPatternExtractor(configs, nil))

	reply := eng.ProcessMessage(context.Background(), "any-id", "hello")
	assert.Equal(t, "I'm not set up for any conversation domain yet. Please load a domain configuration first.", reply)
}

func TestUnknownSessionIsCreatedOnDemand(t *testing.T) {
	h := newHarness(t)

	reply := h.engine.ProcessMessage(context.Background(), "never-seen-before", "hello there")
	assert.Equal(t, "Hello! How can I help you today?", reply)
}

func TestSkillFailureBecomesApology(t *testing.T) {
	h := newHarness(t)
	h.skills.Register("say_greeting", func(ctx context.Context, fields domain.FieldMap) (string, error) {
		return "", errors.New("downstream exploded")
	})
	id := start(t, h)

	reply := h.engine.ProcessMessage(context.Background(), id, "hello")
	assert.Equal(t, "Something went wrong on my end. Please try again.", reply)
}

func TestSkillPanicIsRecovered(t *testing.T) {
	h := newHarness(t)
	h.skills.Register("say_greeting", func(ctx context.Context, fields domain.FieldMap) (string, error) {
		panic("handler bug")
	})
	id := start(t, h)

	result := h.engine.ProcessMessageDetailed(context.Background(), id, "hello")
	require.NotNil(t, result)
	assert.Equal(t, "Something went wrong on my end. Please try again.", result.Response)
}

type failingClassifier struct{}

func (failingClassifier) Classify(ctx context.Context, text string) (string, error) {
	return "", errors.New("model unavailable")
}

func TestClassifierFailureDegradesToFallback(t *testing.T) {
	h := newHarness(t)
	eng := engine.New(h.configs, h.sessions, h.skills, h.validators,
		failingClassifier{}, nlu.NewPatternExtractor(h.configs, nil))

	id, err := eng.StartConversation(context.Background(), "")
	require.NoError(t, err)

	reply := eng.ProcessMessage(context.Background(), id, "hello")
	assert.Equal(t, "I can help with loan inquiries. What do you need?", reply)
}

type failingExtractor struct{}

func (failingExtractor) Extract(ctx context.Context, intent, text string) (domain.FieldMap, error) {
	return nil, errors.New("model unavailable")
}

func TestExtractorFailureDegradesToPrompt(t *testing.T) {
	h := newHarness(t)
	eng := engine.New(h.configs, h.sessions, h.skills, h.validators,
		nlu.NewHintClassifier(h.configs, nil), failingExtractor{})

	id, err := eng.StartConversation(context.Background(), "")
	require.NoError(t, err)

	// The turn survives as a follow-up prompt instead of an error.
	reply := eng.ProcessMessage(context.Background(), id, "I need a $50000 loan for a car")
	assert.Equal(t, "How much would you like to borrow?", reply)
}

func TestValidatorRejectionKeepsSlotMissing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := start(t, h)

	h.engine.ProcessMessage(ctx, id, "I need a loan")
	// The pattern matches but the validator rejects zero, so the slot stays
	// missing and the same prompt repeats.
	reply := h.engine.ProcessMessage(ctx, id, "$0000")

	assert.Equal(t, "How much would you like to borrow?", reply)
	assert.True(t, h.sessions.IsWaitingForSlot(ctx, id, "amount"))
}

func TestRepromptCeilingAbandonsCollection(t *testing.T) {
	cfg := loanDomain()
	cfg.Options.MaxSlotAttempts = 2

	h := newHarness(t)
	require.True(t, h.configs.Load(cfg).Valid)
	ctx := context.Background()
	id := start(t, h)

	assert.Equal(t, "How much would you like to borrow?", h.engine.ProcessMessage(ctx, id, "I need a loan"))
	assert.Equal(t, "How much would you like to borrow?", h.engine.ProcessMessage(ctx, id, "ehh"))
	reply := h.engine.ProcessMessage(ctx, id, "dunno")

	assert.Equal(t, "I couldn't get the details I need, so let's start over. How can I help?", reply)
	assert.Nil(t, h.sessions.Collection(ctx, id))

	// The user can immediately start over.
	assert.Equal(t, "How much would you like to borrow?", h.engine.ProcessMessage(ctx, id, "I need a loan"))
}

func TestIntentSwitchAbandonsOldCollection(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := start(t, h)

	h.engine.ProcessMessage(ctx, id, "I need a loan")
	require.Equal(t, "loan_inquiry", h.sessions.Collection(ctx, id).TargetIntent)

	reply := h.engine.ProcessMessage(ctx, id, "actually just call me back")
	assert.Equal(t, "When is a good time to call?", reply)
	require.NotNil(t, h.sessions.Collection(ctx, id))
	assert.Equal(t, "callback", h.sessions.Collection(ctx, id).TargetIntent)
}

func TestPreferenceBackfill(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := start(t, h)

	reply := h.engine.ProcessMessage(ctx, id, "call me back")
	assert.Equal(t, "When is a good time to call?", reply)

	// No slot pattern captures the answer, but passive inference stores the
	// mentioned time of day as a preference.
	h.engine.ProcessMessage(ctx, id, "make it the morning then")
	reply = h.engine.ProcessMessage(ctx, id, "please call me back")
	assert.Equal(t, "Sure, we will call you in the morning.", reply)
}

func TestEntityMentionBackfill(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := start(t, h)

	first := h.engine.ProcessMessage(ctx, id, "I need a $20000 loan for a boat")
	assert.Contains(t, first, "$20,000")

	// The amount is remembered from the earlier turn; only the purpose is new.
	reply := h.engine.ProcessMessage(ctx, id, "same loan but for a vacation")
	assert.Equal(t, "Great! I can offer you a $20,000 loan for vacation. An advisor will contact you shortly.", reply)
}

func TestDetailedResult(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	clock := func() time.Time {
		tick++
		return now.Add(time.Duration(tick) * 25 * time.Millisecond)
	}

	h := newHarness(t, engine.WithClock(clock))
	id := start(t, h)

	result := h.engine.ProcessMessageDetailed(context.Background(), id, "I need a $50000 loan for a car purchase")
	require.NotNil(t, result)
	assert.Equal(t, "loan_inquiry", result.Intent)
	assert.Equal(t, "banking", result.Domain)
	assert.Positive(t, result.ProcessingTime)

	amount, _ := result.Slots.GetString("amount")
	assert.Equal(t, "50000", amount)
	purpose, _ := result.Slots.GetString("purpose")
	assert.Equal(t, "Car purchase", purpose)
}

func TestTurnsAreRecorded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := start(t, h)

	h.engine.ProcessMessage(ctx, id, "hello")
	h.engine.ProcessMessage(ctx, id, "I need a loan")

	sess := h.sessions.GetSession(ctx, id)
	require.NotNil(t, sess)
	require.Len(t, sess.Turns, 2)
	assert.Equal(t, "greet", sess.Turns[0].Intent)
	assert.Equal(t, "loan_inquiry", sess.Turns[1].Intent)
	assert.Equal(t, "loan_inquiry", sess.Context.CurrentTopic)
}

func TestEndConversation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	id := start(t, h)

	h.engine.ProcessMessage(ctx, id, "hello")
	h.engine.EndConversation(ctx, id)
	assert.Nil(t, h.sessions.GetSession(ctx, id))
}

func TestMetricsAreRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	h := newHarness(t, engine.WithMetrics(engine.NewMetrics(reg)))
	ctx := context.Background()
	id := start(t, h)

	h.engine.ProcessMessage(ctx, id, "hello")
	h.engine.ProcessMessage(ctx, id, "I need a loan")
	h.engine.ProcessMessage(ctx, id, "$30000")
	h.engine.ProcessMessage(ctx, id, "for home purchase")

	assert.Equal(t, 4.0, sumCounter(t, reg, "dialogue_turns_total"))
	assert.Equal(t, 1.0, sumCounter(t, reg, "dialogue_slot_collections_started_total"))
	assert.Equal(t, 1.0, sumCounter(t, reg, "dialogue_slot_collections_completed_total"))
}

// sumCounter totals a counter family across all label combinations.
func sumCounter(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, m := range fam.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
