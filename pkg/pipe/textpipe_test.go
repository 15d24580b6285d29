package pipe

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"
)

func TestTextPipeUnboundedWritesNeverBlock(t *testing.T) {
	p := NewTextPipe()
	w := p.Sink()
	defer w.Close()

	// Far beyond any bounded default, written with no reader attached.
	const total = 100_000
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < total/100; i++ {
			w.WriteString(strings.Repeat("x", 100))
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("write into an unbounded pipe blocked")
	}

	if got := p.Source().Buffered(); got != total {
		t.Errorf("Buffered() = %d, want %d", got, total)
	}
}

func TestTextPipeMultipleWriters(t *testing.T) {
	p := NewTextPipe()

	// Each writer emits its own marker rune; single-rune writes cannot be
	// torn, so per-writer counts must survive arbitrary interleaving.
	const perWriter = 500
	writers := []rune{'a', 'b', 'c'}

	for _, marker := range writers {
		w := p.Sink()
		go func(w *TextWriter, marker rune) {
			defer w.Close()
			for i := 0; i < perWriter; i++ {
				if err := w.WriteRune(marker); err != nil {
					t.Errorf("WriteRune(%q) error = %v", marker, err)
					return
				}
			}
		}(w, marker)
	}

	// The source side sees one merged stream that ends only after the last
	// writer closes.
	got, err := p.Source().ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len([]rune(got)) != perWriter*len(writers) {
		t.Fatalf("read %d runes, want %d", len([]rune(got)), perWriter*len(writers))
	}
	for _, marker := range writers {
		if n := strings.Count(got, string(marker)); n != perWriter {
			t.Errorf("marker %q appeared %d times, want %d", marker, n, perWriter)
		}
	}
}

func TestTextPipeSinkVendsIndependentHandles(t *testing.T) {
	p := NewTextPipe()
	w1 := p.Sink()
	w2 := p.Sink()
	if w1 == w2 {
		t.Fatal("Sink() returned the same handle twice")
	}

	w1.WriteString("one")
	w1.Close()

	// Closing one writer does not end the stream while another is open.
	if _, err := w2.WriteString("two"); err != nil {
		t.Fatalf("WriteString() on second handle error = %v", err)
	}

	r := p.Source()
	if got, err := r.ReadString(6); got != "onetwo" || err != nil {
		t.Fatalf("ReadString(6) = (%q, %v), want (\"onetwo\", nil)", got, err)
	}

	w2.Close()
	if _, err := r.ReadString(1); err != io.EOF {
		t.Errorf("ReadString() after last close error = %v, want io.EOF", err)
	}
}

func TestTextPipeReadString(t *testing.T) {
	p := NewTextPipe()
	w := p.Sink()
	w.WriteString("hello world")

	r := p.Source()
	if got, err := r.ReadString(5); got != "hello" || err != nil {
		t.Errorf("ReadString(5) = (%q, %v), want (\"hello\", nil)", got, err)
	}
	// A larger max returns what is buffered without blocking for more.
	if got, err := r.ReadString(100); got != " world" || err != nil {
		t.Errorf("ReadString(100) = (%q, %v), want (\" world\", nil)", got, err)
	}
	if got, err := r.ReadString(0); got != "" || err != nil {
		t.Errorf("ReadString(0) = (%q, %v), want (\"\", nil)", got, err)
	}
}

func TestTextPipeReadAllPropagatesError(t *testing.T) {
	boom := errors.New("producer crashed")
	p := NewTextPipe()
	w := p.Sink()
	w.WriteString("partial")
	w.CloseWithError(boom)

	got, err := p.Source().ReadAll()
	if got != "partial" {
		t.Errorf("ReadAll() data = %q, want %q", got, "partial")
	}
	if !errors.Is(err, boom) {
		t.Errorf("ReadAll() error = %v, want %v", err, boom)
	}
}

type temperature float64

func (v temperature) String() string { return fmt.Sprintf("%.1f°C", float64(v)) }

func TestTextWriterAppend(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, "null"},
		{"string", "plain", "plain"},
		{"rune_slice", []rune("runes"), "runes"},
		{"stringer", temperature(21.5), "21.5°C"},
		{"int", 42, "42"},
		{"bool", true, "true"},
		{"typed_nil_pointer", (*struct{})(nil), "<nil>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewTextPipe()
			w := p.Sink()
			if err := w.Append(tt.value); err != nil {
				t.Fatalf("Append(%v) error = %v", tt.value, err)
			}
			w.Close()

			got, err := p.Source().ReadAll()
			if err != nil {
				t.Fatalf("ReadAll() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Append(%v) wrote %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

func TestTextPipeReaderCloseWithErrorReachesAllWriters(t *testing.T) {
	stop := errors.New("enough")
	p := NewTextPipe()
	w1 := p.Sink()
	w2 := p.Sink()

	p.Source().CloseWithError(stop)

	if _, err := w1.WriteString("x"); !errors.Is(err, stop) {
		t.Errorf("first writer error = %v, want %v", err, stop)
	}
	if _, err := w2.WriteString("y"); !errors.Is(err, stop) {
		t.Errorf("second writer error = %v, want %v", err, stop)
	}
}
