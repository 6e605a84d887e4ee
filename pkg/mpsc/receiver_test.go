package mpsc

import (
	"errors"
	"testing"
	"time"
)

func TestReceiver_EndOfStreamRepeatable(t *testing.T) {
	tx, rx := New[int]()
	tx.Close()

	for i := 0; i < 3; i++ {
		if _, ok := rx.Recv(); ok {
			t.Fatalf("call %d: expected end of stream", i)
		}
	}
}

func TestReceiver_BatchCaching(t *testing.T) {
	tx, rx := New[int]()
	defer tx.Close()

	for i := 0; i < 5; i++ {
		tx.Send(i)
	}

	for i := 0; i < 5; i++ {
		v, ok := rx.Recv()
		if !ok || v != i {
			t.Fatalf("expected (%d, true), got (%d, %v)", i, v, ok)
		}
	}

	// One burst of five costs a single pass through the shared lock;
	// the other four receives are served from the private cache.
	st := rx.Stats()
	if st.RecvLocks != 1 {
		t.Errorf("expected 1 lock pass, got %d", st.RecvLocks)
	}
	if st.CacheHits != 4 {
		t.Errorf("expected 4 cache hits, got %d", st.CacheHits)
	}
	if st.BatchMoves != 1 {
		t.Errorf("expected 1 batch move, got %d", st.BatchMoves)
	}
	if st.Receives != 5 {
		t.Errorf("expected 5 receives, got %d", st.Receives)
	}
}

func TestReceiver_CacheDrainsBeforeNewPending(t *testing.T) {
	tx, rx := New[int]()
	defer tx.Close()

	tx.Send(0)
	tx.Send(1)
	tx.Send(2)

	if v, _ := rx.Recv(); v != 0 {
		t.Fatalf("expected 0, got %d", v)
	}

	// New sends queue up behind the cached remainder.
	tx.Send(3)
	tx.Send(4)

	for want := 1; want <= 4; want++ {
		v, ok := rx.Recv()
		if !ok || v != want {
			t.Fatalf("expected (%d, true), got (%d, %v)", want, v, ok)
		}
	}
}

func TestReceiver_TryRecv(t *testing.T) {
	tx, rx := New[int]()

	if _, err := rx.TryRecv(); !errors.Is(err, ErrEmpty) {
		t.Errorf("expected ErrEmpty, got %v", err)
	}

	tx.Send(9)
	v, err := rx.TryRecv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 9 {
		t.Errorf("expected 9, got %d", v)
	}

	tx.Close()
	if _, err := rx.TryRecv(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestReceiver_TryRecvServesBacklogAfterClose(t *testing.T) {
	tx, rx := New[int]()

	tx.Send(1)
	tx.Close()

	v, err := rx.TryRecv()
	if err != nil || v != 1 {
		t.Errorf("expected (1, nil), got (%d, %v)", v, err)
	}
	if _, err := rx.TryRecv(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestReceiver_RecvTimeoutExpires(t *testing.T) {
	tx, rx := New[int]()
	defer tx.Close()

	start := time.Now()
	_, err := rx.RecvTimeout(50 * time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("returned too early: %v", elapsed)
	}
}

func TestReceiver_RecvTimeoutGetsLateValue(t *testing.T) {
	tx, rx := New[int]()

	go func() {
		time.Sleep(20 * time.Millisecond)
		tx.Send(5)
		tx.Close()
	}()

	v, err := rx.RecvTimeout(2 * time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 5 {
		t.Errorf("expected 5, got %d", v)
	}
}

func TestReceiver_RecvTimeoutClosed(t *testing.T) {
	tx, rx := New[int]()
	tx.Close()

	_, err := rx.RecvTimeout(10 * time.Millisecond)
	if !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestReceiver_RecvTimeoutServesCache(t *testing.T) {
	tx, rx := New[int]()
	defer tx.Close()

	tx.Send(1)
	tx.Send(2)
	rx.Recv()

	v, err := rx.RecvTimeout(10 * time.Millisecond)
	if err != nil || v != 2 {
		t.Errorf("expected (2, nil), got (%d, %v)", v, err)
	}
}

func TestReceiver_ZeroValueOnClose(t *testing.T) {
	tx, rx := New[string]()
	tx.Close()

	v, ok := rx.Recv()
	if ok || v != "" {
		t.Errorf("expected zero value on end of stream, got %q", v)
	}
}
