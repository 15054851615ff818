package monitor

import (
	"errors"
	"io"
	"sync"
)

// ErrClosed is returned by Write after the ring has been closed.
var ErrClosed = errors.New("monitor: ring closed")

// Ring is a bounded FIFO of mono 16-bit samples that reads out as signed
// little-endian PCM. Writers never block: on overflow the oldest samples are
// dropped. Readers block while it is empty.
type Ring struct {
	mu      sync.Mutex
	cond    *sync.Cond
	buf     []int16
	r, n    int
	closed  bool
	dropped uint64
	partial []byte // odd byte left over from a short Read
}

// NewRing returns a ring holding up to capacity samples.
func NewRing(capacity int) *Ring {
	r := &Ring{buf: make([]int16, capacity)}
	r.cond = sync.NewCond(&r.mu)
	return r
}

// Push appends one sample.
func (r *Ring) Push(s int16) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}
	if r.n == len(r.buf) {
		r.r = (r.r + 1) % len(r.buf)
		r.n--
		r.dropped++
	}
	r.buf[(r.r+r.n)%len(r.buf)] = s
	r.n++
	r.cond.Signal()
	return nil
}

// Read implements io.Reader. It blocks until at least one sample is queued
// and returns io.EOF once the ring is closed and drained.
func (r *Ring) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for r.n == 0 && len(r.partial) == 0 {
		if r.closed {
			return 0, io.EOF
		}
		r.cond.Wait()
	}

	w := copy(p, r.partial)
	r.partial = r.partial[w:]
	for w < len(p) && r.n > 0 {
		s := r.buf[r.r]
		r.r = (r.r + 1) % len(r.buf)
		r.n--
		if len(p)-w >= 2 {
			p[w], p[w+1] = byte(s), byte(s>>8)
			w += 2
		} else {
			p[w] = byte(s)
			r.partial = append(r.partial[:0], byte(s>>8))
			w++
		}
	}
	return w, nil
}

// Buffered returns the number of queued samples.
func (r *Ring) Buffered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

// Dropped returns how many samples were discarded on overflow.
func (r *Ring) Dropped() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close wakes blocked readers; queued samples can still be read.
func (r *Ring) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.cond.Broadcast()
}
