package pipe

// buffer is the FIFO storage strategy behind a pipe. The strategy is selected
// once at construction from the requested capacity and never changes.
//
// Add and Next are only called under the pipe lock, after the caller has
// verified headroom or occupancy. The bounded strategies panic on misuse
// because reaching that state is a bug in the pipe core, not an I/O error.
// The growable strategy is the one exception: Next on an empty queue returns
// the zero value instead of panicking.
type buffer[T any] interface {
	Len() int
	Empty() bool
	Add(v T)
	Next() T
	Clear()
}

// slotBuffer holds at most one value. It backs capacity-1 pipes, the common
// "hand one value at a time" arrangement, without any array machinery.
type slotBuffer[T any] struct {
	v    T
	full bool
}

func newSlotBuffer[T any]() *slotBuffer[T] { return &slotBuffer[T]{} }

func (b *slotBuffer[T]) Len() int {
	if b.full {
		return 1
	}
	return 0
}

func (b *slotBuffer[T]) Empty() bool { return !b.full }

func (b *slotBuffer[T]) Add(v T) {
	if b.full {
		panic("pipe: add to full slot buffer")
	}
	b.v = v
	b.full = true
}

func (b *slotBuffer[T]) Next() T {
	if !b.full {
		panic("pipe: next on empty slot buffer")
	}
	var zero T
	v := b.v
	b.v = zero
	b.full = false
	return v
}

func (b *slotBuffer[T]) Clear() {
	var zero T
	b.v = zero
	b.full = false
}

// ringBuffer is a fixed-capacity circular array for small to medium bounded
// pipes. It allocates once up front and never grows.
type ringBuffer[T any] struct {
	data  []T
	head  int
	count int
}

func newRingBuffer[T any](capacity int) *ringBuffer[T] {
	return &ringBuffer[T]{data: make([]T, capacity)}
}

func (b *ringBuffer[T]) Len() int { return b.count }

func (b *ringBuffer[T]) Empty() bool { return b.count == 0 }

func (b *ringBuffer[T]) Add(v T) {
	if b.count == len(b.data) {
		panic("pipe: add to full ring buffer")
	}
	b.data[(b.head+b.count)%len(b.data)] = v
	b.count++
}

func (b *ringBuffer[T]) Next() T {
	if b.count == 0 {
		panic("pipe: next on empty ring buffer")
	}
	var zero T
	v := b.data[b.head]
	b.data[b.head] = zero
	b.head = (b.head + 1) % len(b.data)
	b.count--
	return v
}

func (b *ringBuffer[T]) Clear() {
	var zero T
	for i := range b.data {
		b.data[i] = zero
	}
	b.head = 0
	b.count = 0
}

// queueSegmentSize is the number of elements per linked segment in a
// queueBuffer. Large enough to amortize allocation, small enough that a
// mostly-drained queue does not pin much memory.
const queueSegmentSize = 64

type queueSegment[T any] struct {
	vals  [queueSegmentSize]T
	read  int
	write int
	next  *queueSegment[T]
}

// queueBuffer is a growable segmented queue backing unbounded pipes and very
// large bounded ones, where growth is the right trade-off over a fixed
// allocation. One drained segment is kept around for reuse so steady-state
// traffic allocates only when the queue actually grows.
type queueBuffer[T any] struct {
	head  *queueSegment[T]
	tail  *queueSegment[T]
	spare *queueSegment[T]
	count int
}

func newQueueBuffer[T any]() *queueBuffer[T] { return &queueBuffer[T]{} }

func (b *queueBuffer[T]) Len() int { return b.count }

func (b *queueBuffer[T]) Empty() bool { return b.count == 0 }

func (b *queueBuffer[T]) Add(v T) {
	if b.tail == nil || b.tail.write == queueSegmentSize {
		seg := b.spare
		if seg != nil {
			b.spare = nil
			*seg = queueSegment[T]{}
		} else {
			seg = new(queueSegment[T])
		}
		if b.tail == nil {
			b.head = seg
		} else {
			b.tail.next = seg
		}
		b.tail = seg
	}
	b.tail.vals[b.tail.write] = v
	b.tail.write++
	b.count++
}

func (b *queueBuffer[T]) Next() T {
	var zero T
	if b.count == 0 {
		return zero
	}
	seg := b.head
	v := seg.vals[seg.read]
	seg.vals[seg.read] = zero
	seg.read++
	b.count--
	if seg.read == seg.write && seg.next != nil {
		b.head = seg.next
		seg.next = nil
		b.spare = seg
	} else if b.count == 0 {
		seg.read = 0
		seg.write = 0
	}
	return v
}

func (b *queueBuffer[T]) Clear() {
	b.head = nil
	b.tail = nil
	b.spare = nil
	b.count = 0
}
