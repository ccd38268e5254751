// Package retry wraps fallible operations with a capped exponential
// backoff envelope: the sleep is cancellable through ctx, and permanent
// errors (classified with Permanent) stop the loop immediately instead of
// retrying forever.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Nomadcxx/movieindexd/internal/logging"
)

const (
	initialInterval = 1 * time.Second
	maxInterval     = 10 * time.Second
	multiplier      = 2.0
)

// Op is a fallible, context-aware operation.
type Op func(ctx context.Context) error

// Permanent marks err as non-retryable: the envelope returns it immediately
// instead of sleeping and trying again. Use for programmer errors — a
// malformed watermark, an unknown process kind, a missing index mapping —
// that retrying can never fix.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// Do retries op with capped exponential backoff (1s doubling to a 10s
// ceiling) until it succeeds, it returns a Permanent error, or ctx is
// cancelled. component and label are used only for the retry log line.
func Do(ctx context.Context, logger *logging.Logger, component, label string, op Op) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initialInterval
	b.MaxInterval = maxInterval
	b.Multiplier = multiplier
	b.MaxElapsedTime = 0 // retry indefinitely

	wrapped := backoff.WithContext(b, ctx)

	attempt := 0
	notify := func(err error, wait time.Duration) {
		attempt++
		logger.Error(component, "operation failed, retrying", err,
			logging.F("label", label),
			logging.F("attempt", attempt),
			logging.F("wait", wait.String()))
	}

	err := backoff.RetryNotify(func() error {
		return op(ctx)
	}, wrapped, notify)

	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// IsPermanent reports whether err (or one wrapped by it) was marked
// non-retryable via Permanent.
func IsPermanent(err error) bool {
	var perm *backoff.PermanentError
	return errors.As(err, &perm)
}
