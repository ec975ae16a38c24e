package domain

import (
	"encoding/json"
	"time"
)

// Turn is one recorded exchange. Immutable once appended to a session.
type Turn struct {
	Timestamp time.Time `json:"timestamp"`
	UserInput string    `json:"user_input"`
	Intent    string    `json:"intent"`
	Slots     FieldMap  `json:"slots,omitempty"`
	Response  string    `json:"response"`
	Domain    string    `json:"domain"`
}

// SlotCollection tracks an in-progress gathering of required slots.
//
// Collected is monotonically filled: a value once set is never unset by the
// collection itself. Missing is always RequiredSlots minus the collected
// keys, recomputed after every mutation.
type SlotCollection struct {
	TargetIntent  string         `json:"target_intent"`
	RequiredSlots []string       `json:"required_slots"`
	Collected     FieldMap       `json:"collected"`
	Missing       []string       `json:"missing"`
	Attempts      map[string]int `json:"attempts,omitempty"`
	MaxAttempts   int            `json:"max_attempts"`
}

// NewSlotCollection starts tracking the given required slots.
func NewSlotCollection(intent string, required []string, maxAttempts int) *SlotCollection {
	c := &SlotCollection{
		TargetIntent:  intent,
		RequiredSlots: append([]string(nil), required...),
		Collected:     make(FieldMap),
		Attempts:      make(map[string]int),
		MaxAttempts:   maxAttempts,
	}
	c.recompute()
	return c
}

// Merge folds non-empty values into Collected and recomputes Missing.
// Empty values are dropped silently.
func (c *SlotCollection) Merge(fields FieldMap) {
	for k, v := range fields {
		if IsEmpty(v) {
			continue
		}
		c.Collected[k] = v
	}
	c.recompute()
}

// Complete reports whether every required slot has been collected.
func (c *SlotCollection) Complete() bool { return len(c.Missing) == 0 }

// recompute rebuilds Missing in required-slot declaration order.
func (c *SlotCollection) recompute() {
	missing := make([]string, 0, len(c.RequiredSlots))
	for _, name := range c.RequiredSlots {
		if v, ok := c.Collected[name]; !ok || IsEmpty(v) {
			missing = append(missing, name)
		}
	}
	c.Missing = missing
}

// Clone returns an independent copy of the collection state.
func (c *SlotCollection) Clone() *SlotCollection {
	if c == nil {
		return nil
	}
	out := &SlotCollection{
		TargetIntent:  c.TargetIntent,
		RequiredSlots: append([]string(nil), c.RequiredSlots...),
		Collected:     c.Collected.Clone(),
		Missing:       append([]string(nil), c.Missing...),
		Attempts:      make(map[string]int, len(c.Attempts)),
		MaxAttempts:   c.MaxAttempts,
	}
	for k, v := range c.Attempts {
		out.Attempts[k] = v
	}
	return out
}

// Context is the derived, per-session view recomputed incrementally on
// every turn.
type Context struct {
	// CurrentTopic is the last non-trivial intent.
	CurrentTopic  string `json:"current_topic,omitempty"`
	CurrentDomain string `json:"current_domain,omitempty"`
	LastIntent    string `json:"last_intent,omitempty"`

	// EntityMentions remembers the last-seen value per slot name across the
	// whole session, used to backfill gaps in later turns.
	EntityMentions FieldMap `json:"entity_mentions,omitempty"`

	// Flow is a bounded ring of the last MaxFlowLength intent names.
	Flow []string `json:"flow,omitempty"`

	Collection *SlotCollection `json:"collection,omitempty"`
}

// PushFlow appends an intent name and trims the ring to MaxFlowLength.
func (c *Context) PushFlow(name string) {
	c.Flow = append(c.Flow, name)
	if n := len(c.Flow); n > MaxFlowLength {
		c.Flow = c.Flow[n-MaxFlowLength:]
	}
}

// Clone returns an independent copy of the context.
func (c Context) Clone() Context {
	out := c
	out.EntityMentions = c.EntityMentions.Clone()
	out.Flow = append([]string(nil), c.Flow...)
	out.Collection = c.Collection.Clone()
	return out
}

// Session is the durable (in-memory, process-lifetime) conversational
// state for one user's ongoing interaction. Turns are append-only; the
// session is mutated only through the session store's operations.
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id,omitempty"`
	Domain       string    `json:"domain"`
	StartedAt    time.Time `json:"started_at"`
	LastActivity time.Time `json:"last_activity"`
	Turns        []Turn    `json:"turns,omitempty"`
	Context      Context   `json:"context"`
	Preferences  FieldMap  `json:"preferences,omitempty"`
}

// NewSession initializes a session with an empty history and a flow seeded
// with the session-start marker.
func NewSession(id, domainName, userID string, now time.Time) *Session {
	return &Session{
		ID:           id,
		UserID:       userID,
		Domain:       domainName,
		StartedAt:    now,
		LastActivity: now,
		Context: Context{
			CurrentDomain:  domainName,
			EntityMentions: make(FieldMap),
			Flow:           []string{FlowSessionStart},
		},
		Preferences: make(FieldMap),
	}
}

// Clone returns a deep copy, so stores can hand out snapshots without
// exposing their internal state to mutation.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Turns = make([]Turn, len(s.Turns))
	for i, t := range s.Turns {
		out.Turns[i] = t
		out.Turns[i].Slots = t.Slots.Clone()
	}
	out.Context = s.Context.Clone()
	out.Preferences = s.Preferences.Clone()
	return &out
}

// TurnResult is the extended per-message outcome exposed for diagnostics
// and UI adapters.
type TurnResult struct {
	Intent         string        `json:"intent"`
	Slots          FieldMap      `json:"slots,omitempty"`
	Response       string        `json:"response"`
	Domain         string        `json:"domain"`
	ProcessingTime time.Duration `json:"-"`
}

// MarshalJSON reports processing time in whole milliseconds on the wire.
func (r TurnResult) MarshalJSON() ([]byte, error) {
	type alias TurnResult
	return json.Marshal(struct {
		alias
		ProcessingTimeMS int64 `json:"processing_time_ms"`
	}{alias(r), r.ProcessingTime.Milliseconds()})
}
