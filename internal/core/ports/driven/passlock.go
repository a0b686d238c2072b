package driven

import "context"

// PassLock serialises drains and rebuilds across engine processes that
// share one queue.
type PassLock interface {
	// TryAcquire takes the lock without waiting. ok is false when another
	// process holds it. release must be called once when ok is true.
	TryAcquire(ctx context.Context) (release func(), ok bool, err error)
}
