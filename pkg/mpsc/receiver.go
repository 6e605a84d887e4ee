package mpsc

import "time"

// Receiver is the single read handle to a channel. All receive methods
// must be called from one consumer goroutine; Stats and Len are safe from
// anywhere.
type Receiver[T any] struct {
	sh    *shared[T]
	cache []T
	head  int
}

// Recv returns the next value in send order. It blocks while the channel
// is open and empty. The second return is false once every sender is
// closed and the backlog is fully drained; after that it stays false.
func (r *Receiver[T]) Recv() (T, bool) {
	if r.head < len(r.cache) {
		r.sh.cacheHits.Add(1)
		return r.pop(), true
	}

	sh := r.sh
	sh.recvLocks.Add(1)
	sh.mu.Lock()
	for {
		if len(sh.pending) > 0 {
			r.take(sh)
			sh.mu.Unlock()
			return r.pop(), true
		}
		if sh.senders == 0 {
			sh.mu.Unlock()
			var zero T
			return zero, false
		}
		sh.cond.Wait()
	}
}

// TryRecv is the non-blocking variant of Recv. It returns ErrEmpty when
// the channel is open with nothing buffered and ErrClosed once the
// channel is drained and closed.
func (r *Receiver[T]) TryRecv() (T, error) {
	if r.head < len(r.cache) {
		r.sh.cacheHits.Add(1)
		return r.pop(), nil
	}

	sh := r.sh
	sh.recvLocks.Add(1)
	sh.mu.Lock()
	if len(sh.pending) > 0 {
		r.take(sh)
		sh.mu.Unlock()
		return r.pop(), nil
	}
	closed := sh.senders == 0
	sh.mu.Unlock()

	var zero T
	if closed {
		return zero, ErrClosed
	}
	return zero, ErrEmpty
}

// RecvTimeout behaves like Recv but gives up after d, returning
// ErrTimeout. A value that arrives in the same instant the timer fires
// wins over the timeout.
func (r *Receiver[T]) RecvTimeout(d time.Duration) (T, error) {
	if r.head < len(r.cache) {
		r.sh.cacheHits.Add(1)
		return r.pop(), nil
	}

	sh := r.sh

	// The timer callback takes the shared lock before flagging, so the
	// wakeup cannot be lost between the flag check and cond.Wait.
	var timedOut bool
	timer := time.AfterFunc(d, func() {
		sh.mu.Lock()
		timedOut = true
		sh.mu.Unlock()
		sh.cond.Signal()
	})
	defer timer.Stop()

	sh.recvLocks.Add(1)
	sh.mu.Lock()
	for {
		if len(sh.pending) > 0 {
			r.take(sh)
			sh.mu.Unlock()
			return r.pop(), nil
		}
		if sh.senders == 0 {
			sh.mu.Unlock()
			var zero T
			return zero, ErrClosed
		}
		if timedOut {
			sh.mu.Unlock()
			var zero T
			return zero, ErrTimeout
		}
		sh.cond.Wait()
	}
}

// Len reports how many values are buffered across the shared queue and
// the private cache.
func (r *Receiver[T]) Len() int {
	return r.sh.size()
}

// Stats returns a snapshot of the channel counters.
func (r *Receiver[T]) Stats() Stats {
	return r.sh.snapshot()
}

// take moves the whole shared backlog into the private cache in one
// swap, handing the spent cache array back to the queue for reuse.
// Caller holds sh.mu, and the cache is exhausted.
func (r *Receiver[T]) take(sh *shared[T]) {
	sh.pending, r.cache = r.cache[:0], sh.pending
	r.head = 0
	if len(r.cache) > 1 {
		sh.batchMoves.Add(1)
	}
	sh.cached.Store(int64(len(r.cache)))
}

// pop serves the element at head and clears the slot so the recycled
// array holds no stale references.
func (r *Receiver[T]) pop() T {
	v := r.cache[r.head]
	var zero T
	r.cache[r.head] = zero
	r.head++
	if r.head == len(r.cache) {
		r.cache = r.cache[:0]
		r.head = 0
	}
	r.sh.cached.Add(-1)
	r.sh.received.Add(1)
	return v
}
