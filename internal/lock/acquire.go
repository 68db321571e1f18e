package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// polls try until it succeeds, the wait budget runs out or ctx is cancelled
func acquire(ctx context.Context, opts Options, try func(ctx context.Context, token string) (bool, error)) (string, error) {
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, opts.Wait)
	defer cancel()

	ticker := time.NewTicker(opts.RetryInterval)
	defer ticker.Stop()

	for {
		ok, err := try(waitCtx, token)
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}

		if ok {
			return token, nil
		}

		select {
		case <-waitCtx.Done():
			// caller cancellation wins over our own wait budget
			if ctx.Err() != nil {
				return "", ctx.Err()
			}

			return "", ErrTimeout
		case <-ticker.C:
		}
	}
}
