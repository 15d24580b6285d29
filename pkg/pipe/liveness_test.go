package pipe

import (
	"errors"
	"runtime"
	"testing"
	"time"
)

// vendAndDrop exercises a handle and returns without closing it, so the
// only strong reference dies with the stack frame.
//
//go:noinline
func vendAndDrop(t *testing.T, use func() error) {
	t.Helper()
	if err := use(); err != nil {
		t.Fatalf("handle use failed: %v", err)
	}
}

// waitForErr polls errs while nudging the garbage collector, since
// abandonment detection rides on handle reclamation.
func waitForErr(t *testing.T, errs <-chan error) error {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		runtime.GC()
		select {
		case err := <-errs:
			return err
		case <-deadline:
			t.Fatal("blocked call never returned")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestAbandonedWriterFailsBlockedRead(t *testing.T) {
	p := NewBytePipe(4, WithPollInterval(5*time.Millisecond))

	vendAndDrop(t, func() error {
		return p.Sink().WriteByte('x')
	})

	r := p.Source()
	// Data buffered before the writer vanished still arrives.
	if b, err := r.ReadByte(); b != 'x' || err != nil {
		t.Fatalf("ReadByte() = (%q, %v), want ('x', nil)", b, err)
	}

	errs := make(chan error, 1)
	go func() {
		_, err := r.ReadByte()
		errs <- err
	}()

	if err := waitForErr(t, errs); !errors.Is(err, ErrWriterDied) {
		t.Errorf("blocked read error = %v, want ErrWriterDied", err)
	}

	// The side stays failed; later calls do not block again.
	if _, err := r.ReadByte(); !errors.Is(err, ErrWriterDied) {
		t.Errorf("subsequent read error = %v, want ErrWriterDied", err)
	}
}

func TestAbandonedReaderFailsBlockedWrite(t *testing.T) {
	p := NewBytePipe(1, WithPollInterval(5*time.Millisecond))

	vendAndDrop(t, func() error {
		p.Source()
		return nil
	})

	w := p.Sink()
	if err := w.WriteByte('a'); err != nil {
		t.Fatalf("WriteByte() error = %v", err)
	}

	errs := make(chan error, 1)
	go func() {
		// The pipe is full and nobody will ever drain it.
		errs <- w.WriteByte('b')
	}()

	if err := waitForErr(t, errs); !errors.Is(err, ErrReaderDied) {
		t.Errorf("blocked write error = %v, want ErrReaderDied", err)
	}
	if _, err := w.Write([]byte("c")); !errors.Is(err, ErrReaderDied) {
		t.Errorf("subsequent write error = %v, want ErrReaderDied", err)
	}
}

func TestClosedHandleReclamationIsNotAbandonment(t *testing.T) {
	p := NewBytePipe(4, WithPollInterval(5*time.Millisecond))

	vendAndDrop(t, func() error {
		w := p.Sink()
		w.WriteByte('x')
		return w.Close()
	})

	// Give reclamation a chance to run; a closed handle's disappearance
	// must not be mistaken for a dying writer.
	for i := 0; i < 3; i++ {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}

	r := p.Source()
	if b, err := r.ReadByte(); b != 'x' || err != nil {
		t.Fatalf("ReadByte() = (%q, %v), want ('x', nil)", b, err)
	}
	if _, err := r.Read(make([]byte, 1)); err == nil || errors.Is(err, ErrWriterDied) {
		t.Errorf("Read() after clean close error = %v, want io.EOF", err)
	}
}

func TestTextPipeAbandonmentNeedsEveryWriterGone(t *testing.T) {
	p := NewTextPipe(WithPollInterval(5 * time.Millisecond))

	// One writer vanishes without closing while a second one stays alive:
	// the sink side must not be declared dead.
	vendAndDrop(t, func() error {
		return p.Sink().WriteRune('a')
	})
	held := p.Sink()

	r := p.Source()
	if ch, _, err := r.ReadRune(); ch != 'a' || err != nil {
		t.Fatalf("ReadRune() = (%q, %v), want ('a', nil)", ch, err)
	}

	results := make(chan error, 1)
	go func() {
		_, _, err := r.ReadRune()
		results <- err
	}()

	for i := 0; i < 5; i++ {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
	select {
	case err := <-results:
		t.Fatalf("read returned %v while a writer handle is still held", err)
	default:
	}

	// The surviving writer unblocks the read normally.
	if err := held.WriteRune('b'); err != nil {
		t.Fatalf("WriteRune() error = %v", err)
	}
	select {
	case err := <-results:
		if err != nil {
			t.Errorf("ReadRune() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("read still blocked after a live writer wrote")
	}
	runtime.KeepAlive(held)
}

func TestDisabledMonitorStillHonorsClose(t *testing.T) {
	// With the monitor off, close-driven wakeups must keep working.
	p := NewBytePipe(2, WithPollInterval(-1))
	r := p.Source()

	errs := make(chan error, 1)
	go func() {
		_, err := r.Read(make([]byte, 1))
		errs <- err
	}()

	time.Sleep(20 * time.Millisecond)
	p.Sink().Close()

	select {
	case err := <-errs:
		if err == nil || errors.Is(err, ErrWriterDied) {
			t.Errorf("Read() error = %v, want io.EOF", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("read still blocked after sink close")
	}
}
