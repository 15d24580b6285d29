package pipe

import (
	"context"
	"runtime"
	"time"
	"weak"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// endpoints tracks the handles vended for one side of a pipe. The pipe holds
// only weak references: it must never keep a client-visible endpoint alive by
// itself, since reclamation of an unclosed handle is exactly the signal the
// liveness monitor is looking for.
//
// handles contains the not-yet-closed handles in vend order; entries whose
// weak pointer has gone nil were reclaimed without a close. open counts
// handles that have not been explicitly closed, vended counts every handle
// ever created for the side.
type endpoints struct {
	handles *orderedmap.OrderedMap[uint64, weakHandle]
	nextID  uint64
	open    int
	vended  int
}

func (e *endpoints) init() {
	e.handles = orderedmap.New[uint64, weakHandle]()
}

type weakHandle interface {
	alive() bool
}

type weakRef[H any] struct {
	p weak.Pointer[H]
}

func (w weakRef[H]) alive() bool { return w.p.Value() != nil }

// registerHandle records a new endpoint handle for liveness tracking and
// arranges for reclamation without a prior Close to be detected. The cleanup
// closure captures only the core, never the handle, so the registration does
// not extend the handle's lifetime.
func registerHandle[T any, H any](c *core[T], r role, h *H) uint64 {
	c.mu.Lock()
	eps := c.endpointsLocked(r)
	eps.nextID++
	id := eps.nextID
	eps.handles.Set(id, weakRef[H]{p: weak.Make(h)})
	eps.open++
	eps.vended++
	c.mu.Unlock()

	runtime.AddCleanup(h, func(reclaimed uint64) {
		c.endpointReclaimed(r, reclaimed)
	}, id)
	return id
}

// endpointReclaimed runs when the garbage collector has reclaimed a handle.
// A handle that was closed first has already left the registry; one that is
// still registered vanished without a close, which is interpreted as its
// owning goroutine exiting abnormally.
func (c *core[T]) endpointReclaimed(r role, id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	eps := c.endpointsLocked(r)
	if _, ok := eps.handles.Get(id); !ok {
		return
	}
	eps.handles.Delete(id)
	c.checkAbandonedLocked(r)
}

// checkAbandonedLocked prunes dead registry entries and declares the side
// abandoned once every unclosed handle has been reclaimed. Best-effort and
// GC-timing dependent: this converts an indefinite block into a reported
// failure, it is not a deterministic contract.
func (c *core[T]) checkAbandonedLocked(r role) {
	eps := c.endpointsLocked(r)
	if eps.open <= 0 || eps.vended == 0 {
		return
	}
	if r == sourceRole && (c.sourceClosed || c.sourceDied) {
		return
	}
	if r == sinkRole && (c.sinkClosed || c.sinkDied) {
		return
	}
	for pair := eps.handles.Oldest(); pair != nil; {
		next := pair.Next()
		if !pair.Value.alive() {
			eps.handles.Delete(pair.Key)
		}
		pair = next
	}
	if eps.handles.Len() == 0 {
		c.markDiedLocked(r)
	}
}

func (c *core[T]) markDiedLocked(r role) {
	if r == sourceRole {
		c.sourceDied = true
	} else {
		c.sinkDied = true
	}
	c.cfg.logger.Warn("pipe counterpart abandoned",
		"pipe", c.cfg.name,
		"side", r.String(),
		"buffered", c.buf.Len(),
	)
	c.cfg.metrics.Counter(context.Background(), c.cfg.metricName("abandoned_total"), 1, c.cfg.roleLabels(r))
	c.wakeAllLocked()
}

// startMonitorLocked launches the liveness monitor if it is not already
// running. The monitor only exists while goroutines are parked in a wait;
// once the last waiter leaves it shuts itself down.
func (c *core[T]) startMonitorLocked() {
	if c.monitorOn || c.cfg.pollInterval <= 0 {
		return
	}
	c.monitorOn = true
	go c.monitor()
}

// monitor periodically re-checks both liveness registries and wakes every
// waiter so blocked calls re-evaluate their predicate, their context, and
// the closed/error state. The polling cadence is a tuning parameter, not a
// caller-visible contract.
func (c *core[T]) monitor() {
	ticker := time.NewTicker(c.cfg.pollInterval)
	defer ticker.Stop()
	for range ticker.C {
		c.mu.Lock()
		if c.waiters == 0 {
			c.monitorOn = false
			c.mu.Unlock()
			return
		}
		c.checkAbandonedLocked(sourceRole)
		c.checkAbandonedLocked(sinkRole)
		c.wakeAllLocked()
		c.mu.Unlock()
	}
}
