package mpsc

import (
	"sync"
	"testing"
)

func BenchmarkSend(b *testing.B) {
	tx, _ := New[int]()
	defer tx.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tx.Send(i)
	}
}

func BenchmarkSendRecvPingPong(b *testing.B) {
	tx, rx := New[int]()
	defer tx.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tx.Send(i)
		rx.Recv()
	}
}

func BenchmarkRecvCached(b *testing.B) {
	tx, rx := New[int]()
	defer tx.Close()

	for i := 0; i < b.N; i++ {
		tx.Send(i)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rx.Recv()
	}
}

func BenchmarkConcurrentProducers(b *testing.B) {
	const producers = 4

	tx, rx := New[int]()
	handles := make([]*Sender[int], producers)
	for i := range handles {
		handles[i] = tx.Clone()
	}
	tx.Close()

	per := b.N / producers
	b.ResetTimer()

	var wg sync.WaitGroup
	for _, h := range handles {
		wg.Add(1)
		go func(h *Sender[int]) {
			defer wg.Done()
			defer h.Close()
			for i := 0; i < per; i++ {
				h.Send(i)
			}
		}(h)
	}

	for {
		if _, ok := rx.Recv(); !ok {
			break
		}
	}
	wg.Wait()
}
