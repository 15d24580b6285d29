package pipe

import (
	"fmt"
	"io"
	"sync"
	"weak"
)

// TextPipe is an unbounded in-process text pipe. Unlike the bounded
// variants its Sink method vends a new, independently closable writer
// handle on every call, so several producer goroutines can funnel into the
// one buffer; the source side closes only after the last writer handle has
// been closed.
//
// Writes from different handles are serialized by the pipe's lock but not
// beyond it: chunks from concurrent writers may interleave at arbitrary
// granularity. That is intentional; the variant trades cross-handle
// atomicity for throughput.
type TextPipe struct {
	c *core[rune]

	mu  sync.Mutex
	src weak.Pointer[TextReader]
}

// NewTextPipe creates an unbounded text pipe backed by the growable queue.
func NewTextPipe(opts ...Option) *TextPipe {
	cfg := newSettings(opts)
	return &TextPipe{c: newCore[rune](0, newQueueBuffer[rune](), cfg)}
}

// Closed reports whether both sides of the pipe have closed.
func (p *TextPipe) Closed() bool { return p.c.closed() }

// Source returns the pipe's reader endpoint (weak singleton).
func (p *TextPipe) Source() *TextReader {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r := p.src.Value(); r != nil {
		return r
	}
	r := &TextReader{}
	r.c = p.c
	r.id = registerHandle(p.c, sourceRole, r)
	p.src = weak.Make(r)
	return r
}

// Sink returns a new writer handle feeding the shared buffer. Every call
// creates an independent handle; the sink side of the pipe closes when the
// last of them is closed (or is detected as abandoned).
func (p *TextPipe) Sink() *TextWriter {
	w := &TextWriter{}
	w.c = p.c
	w.id = registerHandle(p.c, sinkRole, w)
	return w
}

// TextReader is the consumer endpoint of a TextPipe.
type TextReader struct {
	reader[rune]
}

// ReadRune reads a single rune, blocking while the pipe is empty.
func (r *TextReader) ReadRune() (rune, int, error) {
	var buf [1]rune
	if _, err := r.Read(buf[:]); err != nil {
		return 0, 0, err
	}
	return buf[0], len(string(buf[0])), nil
}

// ReadString reads up to max runes and returns them as a string. It blocks
// until at least one rune is available, the sink closes (io.EOF), or an
// error surfaces.
func (r *TextReader) ReadString(max int) (string, error) {
	if max <= 0 {
		return "", nil
	}
	buf := make([]rune, max)
	n, err := r.Read(buf)
	if err != nil {
		return "", err
	}
	return string(buf[:n]), nil
}

// ReadAll drains the pipe until the sink side closes, returning everything
// read. An error attached by a writer's CloseWithError is returned along
// with the data read up to that point.
func (r *TextReader) ReadAll() (string, error) {
	var out []rune
	buf := make([]rune, 256)
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err != nil {
			if err == io.EOF {
				return string(out), nil
			}
			return string(out), err
		}
	}
}

// TextWriter is one producer endpoint of a TextPipe.
type TextWriter struct {
	writer[rune]
}

// WriteRune writes a single rune.
func (w *TextWriter) WriteRune(c rune) error {
	_, err := w.Write([]rune{c})
	return err
}

// WriteString writes the runes of s and returns how many were written.
func (w *TextWriter) WriteString(s string) (int, error) {
	return w.Write([]rune(s))
}

// Append writes the textual form of v, mirroring conventional text-sink
// append behavior: a nil value appends the four-character literal "null".
func (w *TextWriter) Append(v any) error {
	s := "null"
	if v != nil {
		switch t := v.(type) {
		case string:
			s = t
		case []rune:
			s = string(t)
		case fmt.Stringer:
			s = t.String()
		default:
			s = fmt.Sprint(v)
		}
	}
	_, err := w.WriteString(s)
	return err
}
