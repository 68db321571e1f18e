// package lock serializes read-modify-write sequences on a shared key.
// the redis driver works across processes, the memory driver within one.
package lock

import (
	"context"
	"errors"
	"time"
)

const (
	DefaultTTL           = 15 * time.Second
	DefaultWait          = 5 * time.Second
	DefaultRetryInterval = 25 * time.Millisecond
)

// returned when the lock could not be taken within the wait budget
var ErrTimeout = errors.New("timed out waiting for lock")

// releases a held lock; releasing twice or after expiry is a no-op
type Unlock func(ctx context.Context) error

// defines the interface for taking a per-key mutual-exclusion lock
type Locker interface {
	Acquire(ctx context.Context, key string) (Unlock, error)
}

// tunes how long locks live and how long callers wait for them
type Options struct {
	TTL           time.Duration // held lock expires after this even if never released
	Wait          time.Duration // max time Acquire blocks before ErrTimeout
	RetryInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}

	if o.Wait <= 0 {
		o.Wait = DefaultWait
	}

	if o.RetryInterval <= 0 {
		o.RetryInterval = DefaultRetryInterval
	}

	return o
}
