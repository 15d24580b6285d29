package pipe

import (
	"context"
	"sync/atomic"
)

// reader is the generic source-half embedded by every variant's reader
// type. It adds the per-handle closed flag on top of the core: operations
// on a closed handle fail with ErrStreamClosed regardless of the pipe's
// broader state, and closing the last open handle on the source side closes
// that side.
type reader[T any] struct {
	c      *core[T]
	id     uint64
	closed atomic.Bool
}

// Read fills p with up to len(p) buffered items, blocking while the pipe is
// empty and the sink side is open. It returns io.EOF once the sink side has
// closed without an error and the buffer has drained; an error attached via
// the sink's CloseWithError is returned verbatim instead, after any data
// buffered before the close has been delivered.
func (r *reader[T]) Read(p []T) (int, error) {
	return r.ReadContext(context.Background(), p)
}

// ReadContext is Read with cancellation. A cancelled wait returns ctx.Err()
// and leaves the pipe untouched; the pipe remains usable afterwards.
func (r *reader[T]) ReadContext(ctx context.Context, p []T) (int, error) {
	if r.closed.Load() {
		return 0, ErrStreamClosed
	}
	return r.c.read(ctx, p)
}

// Skip discards up to n items. Unlike Read it does not report end of data
// as io.EOF: once the sink closes cleanly it returns the count skipped so
// far with a nil error.
func (r *reader[T]) Skip(n int64) (int64, error) {
	return r.SkipContext(context.Background(), n)
}

// SkipContext is Skip with cancellation.
func (r *reader[T]) SkipContext(ctx context.Context, n int64) (int64, error) {
	if r.closed.Load() {
		return 0, ErrStreamClosed
	}
	return r.c.skip(ctx, n)
}

// Buffered reports how many items can be read right now without blocking:
// the current buffer occupancy. It reports 0 after the handle is closed,
// and 0 for an empty pipe even when writers are about to produce more.
func (r *reader[T]) Buffered() int {
	if r.closed.Load() {
		return 0
	}
	return r.c.buffered()
}

// Close closes this handle. Closing the last open reader closes the source
// side: subsequent writes fail with ErrStreamClosed. A Close following an
// earlier CloseWithError clears the recorded error, restoring plain
// closed-stream behavior for the writer. Close never fails and is safe to
// call multiple times.
func (r *reader[T]) Close() error {
	r.closed.Store(true)
	r.c.releaseHandle(sourceRole, r.id, nil, false)
	return nil
}

// CloseWithError closes this handle and records err for the sink side: this
// is how a consumer tells the producer "stop, something failed downstream".
// Subsequent writes fail with err, propagated verbatim. A nil err behaves
// like Close. The first recorded error wins; later CloseWithError calls do
// not replace it.
func (r *reader[T]) CloseWithError(err error) error {
	r.closed.Store(true)
	r.c.releaseHandle(sourceRole, r.id, err, true)
	return nil
}

// writer is the generic sink-half embedded by every variant's writer type.
type writer[T any] struct {
	c      *core[T]
	id     uint64
	closed atomic.Bool
}

// Write appends p to the pipe, blocking while a bounded pipe is at
// capacity. A bulk write larger than the remaining headroom is appended in
// chunks across waits rather than atomically. The count written so far is
// reported even when the write fails part-way.
func (w *writer[T]) Write(p []T) (int, error) {
	return w.WriteContext(context.Background(), p)
}

// WriteContext is Write with cancellation. A cancelled wait returns
// ctx.Err() together with the count appended before the cancellation; no
// appended item is rolled back and the pipe remains usable.
func (w *writer[T]) WriteContext(ctx context.Context, p []T) (int, error) {
	if w.closed.Load() {
		return 0, ErrStreamClosed
	}
	return w.c.write(ctx, p)
}

// Flush re-checks the pipe's validity. There is no intermediate staging
// between a write and the shared buffer, so a successful Flush moves no
// data; it fails if the reader side has closed or died.
func (w *writer[T]) Flush() error {
	if w.closed.Load() {
		return ErrStreamClosed
	}
	return w.c.flush()
}

// Close closes this handle. Closing the last open writer closes the sink
// side: once the buffer drains, reads report io.EOF. A Close following an
// earlier CloseWithError clears the recorded error. Close never fails and
// is safe to call multiple times.
func (w *writer[T]) Close() error {
	w.closed.Store(true)
	w.c.releaseHandle(sinkRole, w.id, nil, false)
	return nil
}

// CloseWithError closes this handle and records err for the source side:
// subsequent reads fail with err once the buffer has drained. A nil err
// behaves like Close. The first recorded error wins.
func (w *writer[T]) CloseWithError(err error) error {
	w.closed.Store(true)
	w.c.releaseHandle(sinkRole, w.id, err, true)
	return nil
}
