// Package lock provides a Redis-backed mutual exclusion primitive for jobs
// that must not run concurrently across instances.
package lock

import (
	"context"
	"errors"
	"time"
)

var ErrNotAcquired = errors.New("lock_not_acquired")

// Locker grants time-bounded exclusive ownership of a named resource.
type Locker interface {
	// Acquire returns a release func on success and ErrNotAcquired when the
	// lock is held elsewhere. The lock self-expires after ttl so a crashed
	// holder cannot wedge the system.
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, err error)
}
