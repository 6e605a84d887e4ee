package cache

import "sync"

// SeqCache tracks the highest sequence number seen from each producer so
// the consumer can verify that channel delivery preserved per-producer
// send order. Latency here matters: it sits on the receive hot path.
type SeqCache struct {
	m    sync.Mutex
	seqs map[string]uint64
}

func NewSeqCache() *SeqCache {
	return &SeqCache{
		seqs: make(map[string]uint64),
	}
}

// Observe records a producer/sequence pair. It returns true when the
// sequence follows what was last seen from that producer, false when the
// record arrived out of order. The first record from a producer is
// always in order.
func (c *SeqCache) Observe(producer string, seq uint64) bool {
	c.m.Lock()
	defer c.m.Unlock()

	last, seen := c.seqs[producer]
	if seen && seq <= last {
		return false
	}
	c.seqs[producer] = seq
	return true
}

// Last returns the highest sequence observed for a producer.
func (c *SeqCache) Last(producer string) (uint64, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	last, ok := c.seqs[producer]
	return last, ok
}

// Producers returns how many distinct producers have been observed.
func (c *SeqCache) Producers() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.seqs)
}

func (c *SeqCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.seqs = make(map[string]uint64)
}
