package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/funnelkit/funnel/internal/config"
	"github.com/funnelkit/funnel/pkg/mpsc"
	"github.com/funnelkit/funnel/pkg/record"
)

// Producer emits records through its own sender handle. Each producer
// runs on one goroutine, so the handle is never shared. The handle is
// closed when the producer finishes or its context is cancelled; the
// channel reaches end of stream when the last producer does so.
type Producer struct {
	name   string
	tx     *mpsc.Sender[record.Record]
	cfg    config.SoakConfig
	logger Logger

	sent atomic.Uint64
}

func newProducer(id int, tx *mpsc.Sender[record.Record], cfg config.SoakConfig, logger Logger) *Producer {
	return &Producer{
		name:   fmt.Sprintf("p-%d", id),
		tx:     tx,
		cfg:    cfg,
		logger: logger,
	}
}

// Sent reports how many records this producer has pushed so far.
func (p *Producer) Sent() uint64 {
	return p.sent.Load()
}

func (p *Producer) run(ctx context.Context) {
	defer p.tx.Close()

	rng := rand.New(rand.NewSource(time.Now().UnixNano() ^ int64(len(p.name))))

	for seq := uint64(1); seq <= uint64(p.cfg.RecordsPerProducer); seq++ {
		select {
		case <-ctx.Done():
			p.logger.Info("Producer stopped early", "producer", p.name, "sent", p.sent.Load())
			return
		default:
		}

		kind := record.Kinds[int(seq)%len(record.Kinds)]
		rec, err := buildRecord(p.name, seq, kind, p.cfg.PayloadBytes, rng)
		if err != nil {
			p.logger.Error("Failed to build record", "producer", p.name, "seq", seq, "error", err)
			continue
		}

		// Send never blocks; the channel is unbounded.
		p.tx.Send(rec)
		p.sent.Add(1)

		if p.cfg.SendJitter > 0 {
			time.Sleep(time.Duration(rng.Int63n(int64(p.cfg.SendJitter))))
		}
	}

	p.logger.Debug("Producer finished", "producer", p.name, "sent", p.sent.Load())
}
