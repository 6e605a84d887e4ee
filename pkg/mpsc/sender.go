package mpsc

import "sync/atomic"

// Sender is a write handle to a channel. Handles are not shared between
// goroutines; give each producer its own via Clone. Every handle must be
// closed exactly once, after which the handle is dead.
type Sender[T any] struct {
	sh     *shared[T]
	closed atomic.Bool
}

// Send enqueues v. It never blocks on a full buffer and has no failure
// mode on a live handle. Send on a closed handle panics.
func (s *Sender[T]) Send(v T) {
	if s.closed.Load() {
		panic("mpsc: send on closed Sender")
	}
	sh := s.sh
	sh.mu.Lock()
	sh.pending = append(sh.pending, v)
	sh.sends++
	sh.mu.Unlock()
	// Wake the receiver after releasing the lock so it does not contend
	// with this sender on wakeup.
	sh.cond.Signal()
}

// Clone returns a new live handle to the same channel and raises the
// sender count. Clone on a closed handle panics.
func (s *Sender[T]) Clone() *Sender[T] {
	if s.closed.Load() {
		panic("mpsc: clone of closed Sender")
	}
	sh := s.sh
	sh.mu.Lock()
	sh.senders++
	sh.mu.Unlock()
	return &Sender[T]{sh: sh}
}

// Close retires this handle. Closing the last live handle wakes a blocked
// receiver so it can observe end of stream. Close is idempotent per
// handle; values already sent remain receivable.
func (s *Sender[T]) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	sh := s.sh
	sh.mu.Lock()
	sh.senders--
	last := sh.senders == 0
	sh.mu.Unlock()
	if last {
		sh.cond.Signal()
	}
}

// Stats returns a snapshot of the channel counters.
func (s *Sender[T]) Stats() Stats {
	return s.sh.snapshot()
}
