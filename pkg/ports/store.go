package ports

import (
	"context"

	"github.com/borosabel/orchestrator/pkg/domain"
)

// SessionStore is the raw persistence contract for conversation sessions.
// The session service in internal/session layers locking, context
// derivation and the slot-collection protocol on top of it.
//
// Implementations must return deep copies (or serialized round-trips) so
// callers never hold a reference that can mutate stored state directly.
type SessionStore interface {
	// Save persists the session under its ID.
	Save(ctx context.Context, session *domain.Session) error

	// Load retrieves a session by ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Session, error)

	// Delete removes the session. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
