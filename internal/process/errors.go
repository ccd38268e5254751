package process

import "errors"

// Sentinel errors classified by the pipeline's retry policy.
var (
	// ErrMalformedWatermark is fatal to the current run: a non-timestamp
	// value sits in a watermark key. Logged with a stack trace, the lock is
	// still released, and the next sweep re-attempts.
	ErrMalformedWatermark = errors.New("malformed watermark value")

	// ErrUnknownProcessKind is fatal to the scheduler at bootstrap.
	ErrUnknownProcessKind = errors.New("unknown process kind")

	// ErrMissingIndexMapping is fatal to the scheduler at bootstrap: a
	// process kind's target index has no JSON mapping file on disk.
	ErrMissingIndexMapping = errors.New("missing index mapping")

	// ErrAnotherProcessStarted means the global run lock is held by
	// another process. Unlike the errors above, this one IS retryable —
	// the retry envelope polls until the lock is released.
	ErrAnotherProcessStarted = errors.New("another process is started")
)
