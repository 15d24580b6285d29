package pipe

import (
	"io"
	"sync"
	"unicode/utf8"
	"weak"
)

var _ io.RuneReader = (*RuneReader)(nil)

// RunePipe is a bounded in-process character pipe. The FIFO strategy is
// chosen from the requested capacity: a single slot for capacity 1, a fixed
// circular array up to the ring threshold, and the growable queue beyond it.
type RunePipe struct {
	c *core[rune]

	mu  sync.Mutex
	src weak.Pointer[RuneReader]
	snk weak.Pointer[RuneWriter]
}

// NewRunePipe creates a character pipe with the given capacity, counted in
// runes. A capacity below 1 is a programming error and panics.
func NewRunePipe(capacity int, opts ...Option) *RunePipe {
	if capacity < 1 {
		panic("pipe: capacity must be at least 1")
	}
	cfg := newSettings(opts)
	var buf buffer[rune]
	switch {
	case capacity == 1:
		buf = newSlotBuffer[rune]()
	case capacity <= cfg.ringThreshold:
		buf = newRingBuffer[rune](capacity)
	default:
		buf = newQueueBuffer[rune]()
	}
	return &RunePipe{c: newCore[rune](capacity, buf, cfg)}
}

// Cap returns the pipe's fixed capacity in runes.
func (p *RunePipe) Cap() int { return p.c.capacity }

// Closed reports whether both sides of the pipe have closed.
func (p *RunePipe) Closed() bool { return p.c.closed() }

// Source returns the pipe's reader endpoint (weak singleton, see
// BytePipe.Source).
func (p *RunePipe) Source() *RuneReader {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r := p.src.Value(); r != nil {
		return r
	}
	r := &RuneReader{}
	r.c = p.c
	r.id = registerHandle(p.c, sourceRole, r)
	p.src = weak.Make(r)
	return r
}

// Sink returns the pipe's writer endpoint (weak singleton).
func (p *RunePipe) Sink() *RuneWriter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if w := p.snk.Value(); w != nil {
		return w
	}
	w := &RuneWriter{}
	w.c = p.c
	w.id = registerHandle(p.c, sinkRole, w)
	p.snk = weak.Make(w)
	return w
}

// RuneReader is the consumer endpoint of a RunePipe.
type RuneReader struct {
	reader[rune]
}

// ReadRune reads a single rune, blocking while the pipe is empty. The size
// is the rune's UTF-8 encoding length, per io.RuneReader.
func (r *RuneReader) ReadRune() (rune, int, error) {
	var buf [1]rune
	if _, err := r.Read(buf[:]); err != nil {
		return 0, 0, err
	}
	return buf[0], utf8.RuneLen(buf[0]), nil
}

// RuneWriter is the producer endpoint of a RunePipe.
type RuneWriter struct {
	writer[rune]
}

// WriteRune writes a single rune, blocking while the pipe is full.
func (w *RuneWriter) WriteRune(c rune) error {
	_, err := w.Write([]rune{c})
	return err
}

// WriteString writes the runes of s and returns how many of them were
// written. The count is in runes, not bytes, so WriteString deliberately
// does not satisfy io.StringWriter.
func (w *RuneWriter) WriteString(s string) (int, error) {
	return w.Write([]rune(s))
}
