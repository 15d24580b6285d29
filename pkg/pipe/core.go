package pipe

import (
	"context"
	"io"
	"sync"
	"time"
)

// role distinguishes the two sides of a pipe. Reader handles live on the
// source side, writer handles on the sink side.
type role int

const (
	sourceRole role = iota
	sinkRole
)

func (r role) String() string {
	if r == sourceRole {
		return "source"
	}
	return "sink"
}

// core is the shared unit of truth behind every pipe variant: the buffer,
// per-side closed flags and pending errors, the liveness registries, and the
// two conditions used to park blocked producers and consumers.
//
// All mutable state is guarded by mu. The closed flags are monotonic (a side
// never reopens) and capacity is fixed at construction.
type core[T any] struct {
	mu       sync.Mutex
	notFull  sync.Cond
	notEmpty sync.Cond

	buf      buffer[T]
	capacity int // 0 means unbounded

	sourceClosed bool
	sinkClosed   bool

	// readErr is observed by read/skip: it is the error attached by the
	// sink side's CloseWithError, or ErrWriterDied after abandonment.
	// writeErr is the mirror image for the write path. A later error-free
	// close on the originating side clears the recorded error.
	readErr  error
	writeErr error

	sourceDied bool
	sinkDied   bool

	source endpoints
	sink   endpoints

	waiters   int
	monitorOn bool

	cfg settings
}

func newCore[T any](capacity int, buf buffer[T], cfg settings) *core[T] {
	c := &core[T]{buf: buf, capacity: capacity, cfg: cfg}
	c.notFull.L = &c.mu
	c.notEmpty.L = &c.mu
	c.source.init()
	c.sink.init()
	return c
}

// headroomLocked reports how many items can be appended without blocking.
func (c *core[T]) headroomLocked() int {
	if c.capacity == 0 {
		return int(^uint(0) >> 1)
	}
	return c.capacity - c.buf.Len()
}

// writeStateLocked decides whether a write may proceed. Precedence follows
// the close/error model: a propagated error wins, then a plain source close,
// then abandonment of the source side.
func (c *core[T]) writeStateLocked() error {
	switch {
	case c.writeErr != nil:
		return c.writeErr
	case c.sourceClosed:
		return ErrStreamClosed
	case c.sinkClosed:
		return ErrStreamClosed
	case c.sourceDied:
		// Mark the sink side errored so later calls fail fast without
		// re-running the liveness check.
		c.writeErr = ErrReaderDied
		return ErrReaderDied
	}
	return nil
}

// readStateLocked decides what an empty-buffer read observes. Buffered data
// is always drained before any of these surface.
func (c *core[T]) readStateLocked() error {
	switch {
	case c.readErr != nil:
		return c.readErr
	case c.sinkDied:
		c.readErr = ErrWriterDied
		return ErrWriterDied
	case c.sinkClosed:
		return io.EOF
	case c.sourceClosed:
		return ErrStreamClosed
	}
	return nil
}

// write appends items to the buffer, blocking while the buffer is at
// capacity. A bulk write that does not fully fit is appended
// partial-then-resume across waits rather than as one atomic copy; the count
// appended so far is always reported, even on error.
func (c *core[T]) write(ctx context.Context, items []T) (int, error) {
	if stop := c.watchContext(ctx); stop != nil {
		defer stop()
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for {
		if err := c.writeStateLocked(); err != nil {
			return n, err
		}
		if room := c.headroomLocked(); room > 0 && len(items) > 0 {
			take := min(room, len(items))
			for _, v := range items[:take] {
				c.buf.Add(v)
			}
			items = items[take:]
			n += take
			c.notEmpty.Broadcast()
			c.cfg.metrics.Counter(ctx, c.cfg.metricName("write_units_total"), int64(take), c.cfg.sinkLabels)
			c.cfg.metrics.Gauge(ctx, c.cfg.metricName("buffered_units"), float64(take), c.cfg.labels)
		}
		if len(items) == 0 {
			return n, nil
		}
		if err := c.waitLocked(ctx, &c.notFull, sinkRole); err != nil {
			return n, err
		}
	}
}

// read removes up to len(dst) items, blocking while the buffer is empty and
// the sink side is still open and healthy. End of data is io.EOF, not an
// error condition of the pipe.
func (c *core[T]) read(ctx context.Context, dst []T) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if stop := c.watchContext(ctx); stop != nil {
		defer stop()
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		if !c.buf.Empty() {
			n := 0
			for n < len(dst) && !c.buf.Empty() {
				dst[n] = c.buf.Next()
				n++
			}
			c.notFull.Broadcast()
			c.cfg.metrics.Counter(ctx, c.cfg.metricName("read_units_total"), int64(n), c.cfg.sourceLabels)
			c.cfg.metrics.Gauge(ctx, c.cfg.metricName("buffered_units"), -float64(n), c.cfg.labels)
			return n, nil
		}
		if err := c.readStateLocked(); err != nil {
			return 0, err
		}
		if err := c.waitLocked(ctx, &c.notEmpty, sourceRole); err != nil {
			return 0, err
		}
	}
}

// skip behaves as read but discards the data. Unlike read it reports a clean
// close as an early return of the count skipped so far, never as io.EOF.
func (c *core[T]) skip(ctx context.Context, n int64) (int64, error) {
	if n <= 0 {
		return 0, nil
	}
	if stop := c.watchContext(ctx); stop != nil {
		defer stop()
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var skipped int64
	for {
		if !c.buf.Empty() {
			dropped := 0
			for skipped < n && !c.buf.Empty() {
				c.buf.Next()
				skipped++
				dropped++
			}
			c.notFull.Broadcast()
			c.cfg.metrics.Counter(ctx, c.cfg.metricName("read_units_total"), int64(dropped), c.cfg.sourceLabels)
			c.cfg.metrics.Gauge(ctx, c.cfg.metricName("buffered_units"), -float64(dropped), c.cfg.labels)
		}
		if skipped == n {
			return skipped, nil
		}
		if err := c.readStateLocked(); err != nil {
			if err == io.EOF {
				return skipped, nil
			}
			return skipped, err
		}
		if err := c.waitLocked(ctx, &c.notEmpty, sourceRole); err != nil {
			return skipped, err
		}
	}
}

// buffered reports the current occupancy: how much a read could consume
// right now without blocking. For an empty unbounded pipe this is 0 even if
// writers are pending, since future writes cannot be predicted.
func (c *core[T]) buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Len()
}

// flush has no data to move (the buffer is the only staging area); it only
// re-checks validity so a failed counterpart is reported promptly.
func (c *core[T]) flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeStateLocked()
}

// waitLocked parks the caller on cond until woken, then re-checks the
// context. Wakeups are spurious-safe: every caller loops around its
// predicate. The liveness monitor runs while anyone is parked.
func (c *core[T]) waitLocked(ctx context.Context, cond *sync.Cond, r role) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.waiters++
	c.startMonitorLocked()
	start := time.Now()
	cond.Wait()
	c.waiters--
	c.cfg.metrics.RecordDuration(ctx, c.cfg.metricName("blocked_seconds"), time.Since(start), c.cfg.roleLabels(r))
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

// watchContext arranges for waiters to be woken when ctx is cancelled.
// Returns nil when the context can never be cancelled.
func (c *core[T]) watchContext(ctx context.Context) func() bool {
	if ctx.Done() == nil {
		return nil
	}
	return context.AfterFunc(ctx, func() {
		c.mu.Lock()
		c.wakeAllLocked()
		c.mu.Unlock()
	})
}

func (c *core[T]) wakeAllLocked() {
	c.notFull.Broadcast()
	c.notEmpty.Broadcast()
}

// releaseHandle runs the per-side close protocol for one endpoint handle.
// Closing the last open handle on a side closes that side; a close carrying
// an error records it if none is recorded yet; an error-free close clears a
// previously recorded error, restoring graceful EOF semantics.
func (c *core[T]) releaseHandle(r role, id uint64, err error, withErr bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	eps := c.endpointsLocked(r)
	if _, ok := eps.handles.Get(id); ok {
		eps.handles.Delete(id)
		eps.open--
	}

	recorded := c.recordedErrLocked(r)
	if withErr && err != nil {
		if *recorded == nil {
			*recorded = err
		}
	} else if *recorded != nil {
		*recorded = nil
	}

	if eps.open <= 0 {
		if r == sourceRole {
			c.sourceClosed = true
		} else {
			c.sinkClosed = true
		}
	}
	c.wakeAllLocked()
}

// recordedErrLocked returns the error slot written by close calls on side r:
// the source records the error seen by writes, the sink the one seen by reads.
func (c *core[T]) recordedErrLocked(r role) *error {
	if r == sourceRole {
		return &c.writeErr
	}
	return &c.readErr
}

func (c *core[T]) endpointsLocked(r role) *endpoints {
	if r == sourceRole {
		return &c.source
	}
	return &c.sink
}

func (c *core[T]) closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sourceClosed && c.sinkClosed
}
