package pipeline

import (
	"context"
	"errors"
	"hash/crc32"
	"sync/atomic"

	"go.opentelemetry.io/otel/metric"

	"github.com/funnelkit/funnel/internal/cache"
	"github.com/funnelkit/funnel/internal/storage"
	"github.com/funnelkit/funnel/pkg/mpsc"
	"github.com/funnelkit/funnel/pkg/record"
)

// Consumer owns the single receiver handle. It blocks on the channel for
// the first record of every batch, then drains whatever else is ready
// without blocking, and hands the batch to the storage backend. It exits
// when the channel reports end of stream.
type Consumer struct {
	rx        *mpsc.Receiver[record.Record]
	backend   storage.Backend
	batchSize int
	logger    Logger

	seqs *cache.SeqCache

	received  atomic.Uint64
	stored    atomic.Uint64
	corrupt   atomic.Uint64
	reordered atomic.Uint64
	failed    atomic.Uint64

	batchesFlushed metric.Int64Counter
	done           chan struct{}
}

func newConsumer(rx *mpsc.Receiver[record.Record], backend storage.Backend, batchSize int, logger Logger) *Consumer {
	c := &Consumer{
		rx:        rx,
		backend:   backend,
		batchSize: batchSize,
		logger:    logger,
		seqs:      cache.NewSeqCache(),
		done:      make(chan struct{}),
	}

	// Global meter; no-op when OTel is not configured.
	var err error
	c.batchesFlushed, err = meter().Int64Counter(
		"pipeline.batches.flushed",
		metric.WithDescription("Record batches handed to the storage backend"),
	)
	if err != nil {
		logger.Error("Failed to create batch counter", "error", err)
	}

	return c
}

// run is the consumer loop. It must be the only goroutine calling the
// receive methods.
func (c *Consumer) run() {
	defer close(c.done)

	batch := make([]record.Record, 0, c.batchSize)
	for {
		rec, ok := c.rx.Recv()
		if !ok {
			c.flush(&batch)
			c.logger.Info("Consumer finished: channel closed",
				"received", c.received.Load(),
				"stored", c.stored.Load(),
			)
			return
		}
		c.ingest(rec, &batch)

		// Drain whatever else is already buffered without blocking, so a
		// burst becomes one backend write instead of many.
		for len(batch) < c.batchSize {
			rec, err := c.rx.TryRecv()
			if err != nil {
				// Empty and closed both end the drain; closed is
				// observed again by the blocking Recv above.
				if !errors.Is(err, mpsc.ErrEmpty) && !errors.Is(err, mpsc.ErrClosed) {
					c.logger.Error("Unexpected receive error", "error", err)
				}
				break
			}
			c.ingest(rec, &batch)
		}

		c.flush(&batch)
	}
}

// ingest verifies one record and appends it to the batch.
func (c *Consumer) ingest(rec record.Record, batch *[]record.Record) {
	c.received.Add(1)

	if crc32.ChecksumIEEE(rec.Payload) != rec.Checksum {
		c.corrupt.Add(1)
		c.logger.Error("Checksum mismatch", "producer", rec.Producer, "seq", rec.Seq)
	}
	if !c.seqs.Observe(rec.Producer, rec.Seq) {
		c.reordered.Add(1)
		c.logger.Error("Out-of-order record", "producer", rec.Producer, "seq", rec.Seq)
	}

	*batch = append(*batch, rec)
}

// flush hands the batch to the backend and resets it. A failed write is
// counted and logged; the backend keeps its own retry queue, so the
// records are not lost.
func (c *Consumer) flush(batch *[]record.Record) {
	if len(*batch) == 0 {
		return
	}

	n := len(*batch)
	if err := c.backend.WriteRecords(*batch); err != nil {
		c.failed.Add(uint64(n))
		c.logger.Error("Batch write failed", "records", n, "error", err)
	} else {
		c.stored.Add(uint64(n))
	}
	if c.batchesFlushed != nil {
		c.batchesFlushed.Add(context.Background(), 1)
	}

	*batch = (*batch)[:0]
}
