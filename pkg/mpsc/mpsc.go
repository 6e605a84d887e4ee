// Package mpsc provides an unbounded multi-producer, single-consumer channel.
//
// Any number of goroutines may send through Sender handles; exactly one
// goroutine consumes through the Receiver. Send never blocks and never
// fails. Recv blocks until a value is available and reports end of stream
// with a false second return once every Sender has been closed and the
// backlog is drained.
//
// The receiver keeps a private cache of values taken from the shared queue
// in bulk, so a burst of n sends costs the consumer a single lock
// acquisition instead of n.
package mpsc

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrEmpty is returned by TryRecv when no value is ready.
	ErrEmpty = errors.New("mpsc: channel empty")
	// ErrTimeout is returned by RecvTimeout when the wait expires.
	ErrTimeout = errors.New("mpsc: receive timed out")
	// ErrClosed is returned once all senders are closed and the backlog is drained.
	ErrClosed = errors.New("mpsc: channel closed")
)

// State describes the lifecycle of a channel.
type State int

const (
	// Open means at least one sender is live.
	Open State = iota
	// Draining means all senders are closed but values remain buffered.
	Draining
	// Closed means all senders are closed and the backlog is drained.
	Closed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Open:
		return "open"
	case Draining:
		return "draining"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Stats is a point-in-time snapshot of channel counters.
type Stats struct {
	Pending     int   // values in the shared queue
	Cached      int   // values in the receiver's private cache
	LiveSenders int   // senders not yet closed
	Sends       uint64
	Receives    uint64
	CacheHits   uint64 // receives served without touching the shared lock
	RecvLocks   uint64 // receive calls that took the shared lock
	BatchMoves  uint64 // bulk moves from the shared queue into the cache
	State       State
}

// shared is the state both handle types point at. pending, senders and
// sends are guarded by mu. The remaining counters are written only by the
// receiver goroutine and are atomic so Stats can be read from anywhere.
type shared[T any] struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []T
	senders int
	sends   uint64

	cached     atomic.Int64
	received   atomic.Uint64
	cacheHits  atomic.Uint64
	recvLocks  atomic.Uint64
	batchMoves atomic.Uint64
}

// New creates a connected Sender and Receiver pair. The sender count
// starts at one; Clone additional senders from the returned one.
func New[T any]() (*Sender[T], *Receiver[T]) {
	sh := &shared[T]{senders: 1}
	sh.cond = sync.NewCond(&sh.mu)
	return &Sender[T]{sh: sh}, &Receiver[T]{sh: sh}
}

// snapshot builds a Stats under the shared lock.
func (sh *shared[T]) snapshot() Stats {
	sh.mu.Lock()
	st := Stats{
		Pending:     len(sh.pending),
		LiveSenders: sh.senders,
		Sends:       sh.sends,
	}
	sh.mu.Unlock()

	st.Cached = int(sh.cached.Load())
	st.Receives = sh.received.Load()
	st.CacheHits = sh.cacheHits.Load()
	st.RecvLocks = sh.recvLocks.Load()
	st.BatchMoves = sh.batchMoves.Load()

	switch {
	case st.LiveSenders > 0:
		st.State = Open
	case st.Pending+st.Cached > 0:
		st.State = Draining
	default:
		st.State = Closed
	}
	return st
}

// size reports buffered values (shared queue plus receiver cache).
func (sh *shared[T]) size() int {
	sh.mu.Lock()
	n := len(sh.pending)
	sh.mu.Unlock()
	return n + int(sh.cached.Load())
}
