package cache

import (
	"fmt"
	"sync"
	"testing"
)

func TestSeqCache_FirstObservationInOrder(t *testing.T) {
	c := NewSeqCache()

	if !c.Observe("p-0", 1) {
		t.Error("first observation should be in order")
	}
	if !c.Observe("p-1", 100) {
		t.Error("first observation should be in order regardless of value")
	}
}

func TestSeqCache_DetectsRegression(t *testing.T) {
	c := NewSeqCache()

	c.Observe("p-0", 1)
	c.Observe("p-0", 2)

	if c.Observe("p-0", 2) {
		t.Error("repeated sequence should be out of order")
	}
	if c.Observe("p-0", 1) {
		t.Error("earlier sequence should be out of order")
	}
	if !c.Observe("p-0", 3) {
		t.Error("next sequence should be in order")
	}
}

func TestSeqCache_ProducersAreIndependent(t *testing.T) {
	c := NewSeqCache()

	c.Observe("p-0", 5)
	if !c.Observe("p-1", 1) {
		t.Error("producers must not share sequence state")
	}

	if got := c.Producers(); got != 2 {
		t.Errorf("expected 2 producers, got %d", got)
	}

	last, ok := c.Last("p-0")
	if !ok || last != 5 {
		t.Errorf("expected last 5, got %d (ok=%v)", last, ok)
	}
}

func TestSeqCache_Reset(t *testing.T) {
	c := NewSeqCache()
	c.Observe("p-0", 9)

	c.Reset()

	if got := c.Producers(); got != 0 {
		t.Errorf("expected 0 producers after reset, got %d", got)
	}
	if !c.Observe("p-0", 1) {
		t.Error("observation after reset should be in order")
	}
}

func TestSeqCache_Concurrent(t *testing.T) {
	c := NewSeqCache()
	var wg sync.WaitGroup

	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			name := fmt.Sprintf("p-%d", p)
			for seq := uint64(1); seq <= 100; seq++ {
				if !c.Observe(name, seq) {
					t.Errorf("%s seq %d reported out of order", name, seq)
					return
				}
			}
		}(p)
	}
	wg.Wait()

	if got := c.Producers(); got != 8 {
		t.Errorf("expected 8 producers, got %d", got)
	}
}
