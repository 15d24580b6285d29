package pipe

import (
	"io"
	"sync"
	"weak"
)

var (
	_ io.Reader     = (*ByteReader)(nil)
	_ io.ByteReader = (*ByteReader)(nil)
	_ io.Closer     = (*ByteReader)(nil)
	_ io.Writer     = (*ByteWriter)(nil)
	_ io.ByteWriter = (*ByteWriter)(nil)
	_ io.Closer     = (*ByteWriter)(nil)
)

// BytePipe is a bounded in-process byte pipe connecting one producer
// goroutine to one consumer goroutine. Capacity is fixed at construction
// and backed by a circular array; the buffer never holds more than
// capacity bytes.
//
// Example:
//
//	p := pipe.NewBytePipe(64)
//	go func() {
//	    w := p.Sink()
//	    defer w.Close()
//	    w.Write([]byte("hello"))
//	}()
//	data, err := io.ReadAll(p.Source())
type BytePipe struct {
	c *core[byte]

	mu  sync.Mutex
	src weak.Pointer[ByteReader]
	snk weak.Pointer[ByteWriter]
}

// NewBytePipe creates a byte pipe with the given capacity. Byte pipes are
// always bounded; a capacity below 1 is a programming error and panics.
func NewBytePipe(capacity int, opts ...Option) *BytePipe {
	if capacity < 1 {
		panic("pipe: capacity must be at least 1")
	}
	cfg := newSettings(opts)
	return &BytePipe{c: newCore[byte](capacity, newRingBuffer[byte](capacity), cfg)}
}

// Cap returns the pipe's fixed capacity.
func (p *BytePipe) Cap() int { return p.c.capacity }

// Closed reports whether both sides of the pipe have closed.
func (p *BytePipe) Closed() bool { return p.c.closed() }

// Source returns the pipe's reader endpoint. Repeated calls return the same
// handle while the caller still holds it; the pipe itself only tracks the
// handle weakly, so dropping it without Close is what the liveness monitor
// detects as abandonment.
func (p *BytePipe) Source() *ByteReader {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r := p.src.Value(); r != nil {
		return r
	}
	r := &ByteReader{}
	r.c = p.c
	r.id = registerHandle(p.c, sourceRole, r)
	p.src = weak.Make(r)
	return r
}

// Sink returns the pipe's writer endpoint, with the same weak singleton
// behavior as Source.
func (p *BytePipe) Sink() *ByteWriter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if w := p.snk.Value(); w != nil {
		return w
	}
	w := &ByteWriter{}
	w.c = p.c
	w.id = registerHandle(p.c, sinkRole, w)
	p.snk = weak.Make(w)
	return w
}

// ByteReader is the consumer endpoint of a BytePipe.
type ByteReader struct {
	reader[byte]
}

// ReadByte reads a single byte, blocking while the pipe is empty.
func (r *ByteReader) ReadByte() (byte, error) {
	var buf [1]byte
	if _, err := r.Read(buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ByteWriter is the producer endpoint of a BytePipe.
type ByteWriter struct {
	writer[byte]
}

// WriteByte writes a single byte, blocking while the pipe is full.
func (w *ByteWriter) WriteByte(b byte) error {
	_, err := w.Write([]byte{b})
	return err
}
