package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker coordinates per-session access across replicas. The
// session service always serializes in-process; a locker extends that
// guarantee to multi-instance deployments.
type DistributedLocker interface {
	// Lock acquires a lock for the key (typically a session ID). It blocks
	// until acquired or the context is canceled. The returned UnlockFunc
	// MUST be called to release the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
