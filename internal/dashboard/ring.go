package dashboard

// Ring is a fixed-capacity FIFO buffer. Pushing onto a full ring evicts the
// oldest element in O(1). Not safe for concurrent use; the dashboard
// serializes access.
type Ring[T any] struct {
	buf   []T
	head  int
	count int
}

// NewRing creates a ring holding at most capacity elements.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Push appends v, evicting the oldest element when full.
func (r *Ring[T]) Push(v T) {
	tail := (r.head + r.count) % len(r.buf)
	r.buf[tail] = v
	if r.count < len(r.buf) {
		r.count++
	} else {
		r.head = (r.head + 1) % len(r.buf)
	}
}

// Len returns the number of stored elements.
func (r *Ring[T]) Len() int {
	return r.count
}

// Items returns the elements oldest first, as a fresh slice.
func (r *Ring[T]) Items() []T {
	out := make([]T, 0, r.count)
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(r.head+i)%len(r.buf)])
	}
	return out
}
