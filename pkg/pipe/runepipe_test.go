package pipe

import (
	"errors"
	"io"
	"testing"
	"unicode/utf8"
)

func TestRunePipeBufferStrategy(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		opts     []Option
		want     string
	}{
		{"single_slot", 1, nil, "slot"},
		{"small_ring", 2, nil, "ring"},
		{"at_threshold", DefaultRingThreshold, nil, "ring"},
		{"above_threshold", DefaultRingThreshold + 1, nil, "queue"},
		{"custom_threshold_ring", 10, []Option{WithRingThreshold(10)}, "ring"},
		{"custom_threshold_queue", 11, []Option{WithRingThreshold(10)}, "queue"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewRunePipe(tt.capacity, tt.opts...)
			var got string
			switch p.c.buf.(type) {
			case *slotBuffer[rune]:
				got = "slot"
			case *ringBuffer[rune]:
				got = "ring"
			case *queueBuffer[rune]:
				got = "queue"
			}
			if got != tt.want {
				t.Errorf("capacity %d uses %s buffer, want %s", tt.capacity, got, tt.want)
			}
		})
	}
}

func TestRunePipeRelay(t *testing.T) {
	const text = "héllo, wörld — ピザ 🍕"

	tests := []struct {
		name     string
		capacity int
	}{
		{"slot", 1},
		{"ring", 8},
		{"queue", DefaultRingThreshold + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewRunePipe(tt.capacity)

			go func() {
				w := p.Sink()
				defer w.Close()
				if n, err := w.WriteString(text); err != nil {
					t.Errorf("WriteString() = (%d, %v)", n, err)
				}
			}()

			var got []rune
			r := p.Source()
			for {
				ch, size, err := r.ReadRune()
				if err == io.EOF {
					break
				}
				if err != nil {
					t.Fatalf("ReadRune() error = %v", err)
				}
				if want := utf8.RuneLen(ch); size != want {
					t.Errorf("ReadRune() size = %d for %q, want %d", size, ch, want)
				}
				got = append(got, ch)
			}
			if string(got) != text {
				t.Errorf("relayed %q, want %q", string(got), text)
			}
		})
	}
}

func TestRunePipeWriteStringCountsRunes(t *testing.T) {
	p := NewRunePipe(16)
	w := p.Sink()

	// 4 runes, 13 bytes.
	n, err := w.WriteString("a🍕b語")
	if err != nil {
		t.Fatalf("WriteString() error = %v", err)
	}
	if n != 4 {
		t.Errorf("WriteString() = %d, want 4 (runes, not bytes)", n)
	}
	if got := p.Source().Buffered(); got != 4 {
		t.Errorf("Buffered() = %d, want 4", got)
	}
}

func TestRunePipeCapacityCountsRunes(t *testing.T) {
	p := NewRunePipe(3)
	w := p.Sink()

	// Three multi-byte runes fill the pipe exactly; byte size is irrelevant.
	if n, err := w.WriteString("語語語"); n != 3 || err != nil {
		t.Fatalf("WriteString() = (%d, %v), want (3, nil)", n, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.WriteRune('x')
	}()
	select {
	case <-done:
		t.Fatal("write completed while the pipe was full")
	default:
	}

	if ch, _, err := p.Source().ReadRune(); ch != '語' || err != nil {
		t.Fatalf("ReadRune() = (%q, %v), want ('語', nil)", ch, err)
	}
	<-done
}

func TestRunePipeErrorPropagation(t *testing.T) {
	boom := errors.New("decoder failed")
	p := NewRunePipe(8)
	w := p.Sink()
	w.WriteString("ab")
	w.CloseWithError(boom)

	r := p.Source()
	buf := make([]rune, 8)
	if n, err := r.Read(buf); n != 2 || err != nil {
		t.Fatalf("Read() = (%d, %v), want (2, nil)", n, err)
	}
	if _, _, err := r.ReadRune(); !errors.Is(err, boom) {
		t.Errorf("ReadRune() after drain error = %v, want %v", err, boom)
	}
}
