package env

import "github.com/san-kum/polecart/internal/dynamo"

// History is a bounded FIFO of state snapshots backed by a ring buffer.
// Pushing onto a full history evicts the oldest entry.
type History struct {
	buf  []dynamo.State
	head int
	size int
}

func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{buf: make([]dynamo.State, capacity)}
}

func (h *History) Len() int { return h.size }
func (h *History) Cap() int { return len(h.buf) }

// Push stores a copy of s and reports whether an entry was evicted.
func (h *History) Push(s dynamo.State) bool {
	evicted := false
	if h.size == len(h.buf) {
		h.head = (h.head + 1) % len(h.buf)
		h.size--
		evicted = true
	}
	idx := (h.head + h.size) % len(h.buf)
	h.buf[idx] = s.Clone()
	h.size++
	return evicted
}

func (h *History) Clear() {
	for i := range h.buf {
		h.buf[i] = nil
	}
	h.head, h.size = 0, 0
}

// At returns the i-th entry counting from the oldest. The returned state is
// owned by the history.
func (h *History) At(i int) dynamo.State {
	if i < 0 || i >= h.size {
		return nil
	}
	return h.buf[(h.head+i)%len(h.buf)]
}

// Latest returns the most recent entry, or nil when empty.
func (h *History) Latest() dynamo.State {
	return h.At(h.size - 1)
}

// Flatten appends all entries oldest first to dst.
func (h *History) Flatten(dst []float64) []float64 {
	for i := 0; i < h.size; i++ {
		dst = append(dst, h.At(i)...)
	}
	return dst
}
