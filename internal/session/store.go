// Package session owns all mutation of conversation state. Every operation
// runs under a per-session lock so derived context, slot-collection state
// and last-activity stamps can never go stale relative to the history.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/borosabel/orchestrator/internal/logging"
	"github.com/borosabel/orchestrator/pkg/domain"
	"github.com/borosabel/orchestrator/pkg/ports"
)

// lockEntry holds the mutex and its reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Store is the conversation session service. It layers per-session
// locking, turn recording, context derivation and the slot-collection
// protocol over a raw ports.SessionStore.
//
// Reads on unknown session IDs return zero values, never errors; the
// orchestration loop must stay defensive against stale session references.
type Store struct {
	backend ports.SessionStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker    ports.DistributedLocker
	logger    *slog.Logger
	clock     func() time.Time
	inference InferenceHook
	idgen     func() string
}

// Option configures the Store.
type Option func(*Store)

// WithLocker enables distributed locking for multi-replica deployments.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(s *Store) { s.locker = locker }
}

// WithLogger sets the store's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

// WithInference replaces the passive preference inference hook. Pass nil
// to disable inference entirely.
func WithInference(hook InferenceHook) Option {
	return func(s *Store) { s.inference = hook }
}

// WithIDGenerator overrides session ID generation, for tests.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.idgen = gen }
}

// NewStore creates a session store over the given persistence backend.
func NewStore(backend ports.SessionStore, opts ...Option) *Store {
	s := &Store{
		backend:   backend,
		locks:     make(map[string]*lockEntry),
		logger:    logging.NewNop(),
		clock:     time.Now,
		inference: InferPreferences,
		idgen:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// acquire gets or creates a lock entry and bumps its reference count.
func (s *Store) acquire(sessionID string) *lockEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		s.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release drops a reference and garbage-collects the entry at zero.
func (s *Store) release(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.locks[sessionID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(s.locks, sessionID)
	}
}

// withLock executes fn while holding the per-session lock (and the
// distributed lock, when configured).
func (s *Store) withLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := s.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		s.release(sessionID)
	}()

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, sessionID, 30*time.Second)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				s.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// update is the read-modify-write path every mutation goes through. An
// unknown session is a silent no-op so store failures never abort the
// caller's flow. LastActivity is stamped on every successful mutation.
func (s *Store) update(ctx context.Context, sessionID string, fn func(*domain.Session)) {
	err := s.withLock(ctx, sessionID, func(ctx context.Context) error {
		sess, err := s.backend.Load(ctx, sessionID)
		if err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				return nil
			}
			return err
		}
		fn(sess)
		sess.LastActivity = s.clock()
		return s.backend.Save(ctx, sess)
	})
	if err != nil {
		s.logger.Error("session update failed", "session_id", sessionID, "err", err)
	}
}

// CreateSession initializes and persists a fresh session. The context flow
// is seeded with the session-start marker.
func (s *Store) CreateSession(ctx context.Context, domainName, userID string) (*domain.Session, error) {
	id := s.idgen()
	sess := domain.NewSession(id, domainName, userID, s.clock())

	err := s.withLock(ctx, id, func(ctx context.Context) error {
		return s.backend.Save(ctx, sess)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.logger.Debug("session created", "session_id", id, "domain", domainName)
	return sess.Clone(), nil
}

// GetSession returns a snapshot of the session, or nil if unknown.
func (s *Store) GetSession(ctx context.Context, sessionID string) *domain.Session {
	var sess *domain.Session
	_ = s.withLock(ctx, sessionID, func(ctx context.Context) error {
		loaded, err := s.backend.Load(ctx, sessionID)
		if err == nil {
			sess = loaded
		}
		return nil
	})
	return sess
}

// Delete removes a session outright.
func (s *Store) Delete(ctx context.Context, sessionID string) {
	err := s.withLock(ctx, sessionID, func(ctx context.Context) error {
		return s.backend.Delete(ctx, sessionID)
	})
	if err != nil {
		s.logger.Error("session delete failed", "session_id", sessionID, "err", err)
	}
}

// AddTurn appends to the history and recomputes the derived context:
// last intent, topic (non-trivial intents only), entity mentions, the
// bounded flow ring, and passively inferred preferences.
func (s *Store) AddTurn(ctx context.Context, sessionID string, turn domain.Turn) {
	s.update(ctx, sessionID, func(sess *domain.Session) {
		sess.Turns = append(sess.Turns, turn)

		c := &sess.Context
		c.LastIntent = turn.Intent
		if !domain.TrivialIntent(turn.Intent) {
			c.CurrentTopic = turn.Intent
		}
		if turn.Domain != "" {
			c.CurrentDomain = turn.Domain
		}
		if c.EntityMentions == nil {
			c.EntityMentions = make(domain.FieldMap)
		}
		for name, value := range turn.Slots {
			if !domain.IsEmpty(value) {
				c.EntityMentions[name] = value
			}
		}
		c.PushFlow(turn.Intent)

		if s.inference != nil {
			if sess.Preferences == nil {
				sess.Preferences = make(domain.FieldMap)
			}
			s.inference(turn, sess.Preferences)
		}
	})
}

// StartSlotCollection begins tracking the required slots for an intent.
// Returns domain.ErrCollectionActive when one is already in progress; an
// unknown session is a silent no-op.
func (s *Store) StartSlotCollection(ctx context.Context, sessionID, intent string, required []string, maxAttempts int) error {
	var startErr error
	s.update(ctx, sessionID, func(sess *domain.Session) {
		if sess.Context.Collection != nil {
			startErr = domain.ErrCollectionActive
			return
		}
		sess.Context.Collection = domain.NewSlotCollection(intent, required, maxAttempts)
	})
	return startErr
}

// AbandonSlotCollection drops any in-progress collection without a
// completion marker.
func (s *Store) AbandonSlotCollection(ctx context.Context, sessionID string) {
	s.update(ctx, sessionID, func(sess *domain.Session) {
		sess.Context.Collection = nil
	})
}

// UpdateSlotCollection merges non-empty values into the collected set and
// recomputes the missing list. Empty values are dropped silently; calling
// with no active collection is a no-op.
func (s *Store) UpdateSlotCollection(ctx context.Context, sessionID string, fields domain.FieldMap) {
	s.update(ctx, sessionID, func(sess *domain.Session) {
		coll := sess.Context.Collection
		if coll == nil {
			return
		}
		coll.Merge(fields)
	})
}

// CompleteSlotCollection clears the in-progress state and appends the
// completion marker to the conversation flow.
func (s *Store) CompleteSlotCollection(ctx context.Context, sessionID string) {
	s.update(ctx, sessionID, func(sess *domain.Session) {
		if sess.Context.Collection == nil {
			return
		}
		sess.Context.Collection = nil
		sess.Context.PushFlow(domain.FlowSlotCollectionComplete)
	})
}

// RecordPromptAttempt bumps the re-prompt counter for a slot and returns
// the new count. Zero when no collection is active.
func (s *Store) RecordPromptAttempt(ctx context.Context, sessionID, slot string) int {
	var count int
	s.update(ctx, sessionID, func(sess *domain.Session) {
		coll := sess.Context.Collection
		if coll == nil {
			return
		}
		if coll.Attempts == nil {
			coll.Attempts = make(map[string]int)
		}
		coll.Attempts[slot]++
		count = coll.Attempts[slot]
	})
	return count
}

// Collection returns a snapshot of the in-progress collection, or nil.
func (s *Store) Collection(ctx context.Context, sessionID string) *domain.SlotCollection {
	sess := s.GetSession(ctx, sessionID)
	if sess == nil {
		return nil
	}
	return sess.Context.Collection
}

// IsWaitingForSlot reports whether an active collection is still missing
// the named slot.
func (s *Store) IsWaitingForSlot(ctx context.Context, sessionID, slot string) bool {
	coll := s.Collection(ctx, sessionID)
	if coll == nil {
		return false
	}
	for _, name := range coll.Missing {
		if name == slot {
			return true
		}
	}
	return false
}

// Context returns a snapshot of the derived context. Zero value for
// unknown sessions.
func (s *Store) Context(ctx context.Context, sessionID string) domain.Context {
	sess := s.GetSession(ctx, sessionID)
	if sess == nil {
		return domain.Context{}
	}
	return sess.Context
}

// Preferences returns a snapshot of the passively inferred preferences.
func (s *Store) Preferences(ctx context.Context, sessionID string) domain.FieldMap {
	sess := s.GetSession(ctx, sessionID)
	if sess == nil {
		return nil
	}
	return sess.Preferences
}

// CleanupOldSessions evicts sessions whose last activity predates the
// cutoff and returns the number evicted. Deletion happens under the same
// per-session lock as mutation, so a session mid-turn is never
// race-deleted.
func (s *Store) CleanupOldSessions(ctx context.Context, maxAge time.Duration) int {
	ids, err := s.backend.List(ctx)
	if err != nil {
		s.logger.Error("session cleanup could not list sessions", "err", err)
		return 0
	}

	cutoff := s.clock().Add(-maxAge)
	evicted := 0
	for _, id := range ids {
		err := s.withLock(ctx, id, func(ctx context.Context) error {
			sess, err := s.backend.Load(ctx, id)
			if err != nil {
				return nil // already gone
			}
			if sess.LastActivity.After(cutoff) {
				return nil
			}
			if err := s.backend.Delete(ctx, id); err != nil {
				return err
			}
			evicted++
			return nil
		})
		if err != nil {
			s.logger.Error("session cleanup failed", "session_id", id, "err", err)
		}
	}

	if evicted > 0 {
		s.logger.Info("expired sessions evicted", "count", evicted, "max_age", maxAge)
	}
	return evicted
}
