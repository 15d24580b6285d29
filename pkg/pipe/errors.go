package pipe

import "errors"

// Sentinel errors reported by pipe endpoints. Application errors attached via
// CloseWithError are propagated verbatim and are never wrapped, so they can be
// compared directly with errors.Is on the other side.
var (
	// ErrStreamClosed is returned by operations on an endpoint whose own
	// handle or side has been closed without an attached error.
	ErrStreamClosed = errors.New("stream closed")

	// ErrWriterDied is returned by reads once the liveness monitor has
	// determined that every writer handle was dropped without being closed.
	ErrWriterDied = errors.New("writer died")

	// ErrReaderDied is returned by writes once the liveness monitor has
	// determined that every reader handle was dropped without being closed.
	ErrReaderDied = errors.New("reader died")
)
