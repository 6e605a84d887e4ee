// Package pipeline wires a set of record producers to a single consumer
// over one mpsc channel and drives the delivered records into a storage
// backend in batches. The channel is the only transport between the two
// sides: producers retire their sender handles when done, and the
// consumer runs until the channel reports end of stream.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/funnelkit/funnel/internal/config"
	"github.com/funnelkit/funnel/internal/storage"
	"github.com/funnelkit/funnel/pkg/mpsc"
	"github.com/funnelkit/funnel/pkg/record"
)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// nopLogger is used when no logger is configured.
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Option configures a Pipeline.
type Option func(*settings)

type settings struct {
	logger    Logger
	batchSize int
}

// WithLogger installs a logger on the pipeline and its workers.
func WithLogger(l Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithBatchSize sets how many records the consumer accumulates before
// handing them to the storage backend.
func WithBatchSize(n int) Option {
	return func(s *settings) {
		s.batchSize = n
	}
}

// Pipeline owns the channel, the producers and the consumer of one run.
type Pipeline struct {
	run     record.RunInfo
	cfg     config.SoakConfig
	backend storage.Backend
	logger  Logger

	rx        *mpsc.Receiver[record.Record]
	producers []*Producer
	consumer  *Consumer

	producerWG sync.WaitGroup
	startedAt  time.Time
	started    bool
}

// New builds a pipeline for the given run: one channel, cfg.Producers
// sender handles, one consumer. The factory sender is closed once the
// producers hold their clones, so the live sender count equals the
// producer count and the channel closes exactly when the last producer
// finishes.
func New(run record.RunInfo, cfg config.SoakConfig, backend storage.Backend, opts ...Option) (*Pipeline, error) {
	if cfg.Producers <= 0 {
		return nil, fmt.Errorf("at least one producer required, got %d", cfg.Producers)
	}

	s := &settings{
		logger:    nopLogger{},
		batchSize: 500,
	}
	for _, opt := range opts {
		opt(s)
	}

	tx, rx := mpsc.New[record.Record]()
	if err := mpsc.RegisterMetrics("pipeline", rx); err != nil {
		return nil, fmt.Errorf("registering channel metrics: %w", err)
	}

	p := &Pipeline{
		run:     run,
		cfg:     cfg,
		backend: backend,
		logger:  s.logger,
		rx:      rx,
	}

	for i := 0; i < cfg.Producers; i++ {
		p.producers = append(p.producers, newProducer(i, tx.Clone(), cfg, s.logger))
	}
	tx.Close()

	p.consumer = newConsumer(rx, backend, s.batchSize, s.logger)
	return p, nil
}

// Start begins the run: the run row is created, the consumer starts
// draining, and every producer starts emitting. ctx cancellation stops
// the producers early; the consumer always drains to end of stream.
func (p *Pipeline) Start(ctx context.Context) error {
	if p.started {
		return fmt.Errorf("pipeline already started")
	}
	p.started = true
	p.startedAt = time.Now()

	if err := p.backend.BeginRun(&p.run); err != nil {
		return fmt.Errorf("starting run: %w", err)
	}

	go p.consumer.run()

	for _, prod := range p.producers {
		p.producerWG.Add(1)
		go func(prod *Producer) {
			defer p.producerWG.Done()
			prod.run(ctx)
		}(prod)
	}

	p.logger.Info("Pipeline started",
		"producers", p.cfg.Producers,
		"recordsPerProducer", p.cfg.RecordsPerProducer,
	)
	return nil
}

// Wait blocks until every producer has retired its sender and the
// consumer has observed end of stream, then stamps the final accounting
// onto the run and returns it.
func (p *Pipeline) Wait() (record.RunSummary, error) {
	p.producerWG.Wait()
	<-p.consumer.done

	st := p.rx.Stats()
	sum := record.RunSummary{
		Run:       p.run,
		Sent:      st.Sends,
		Received:  p.consumer.received.Load(),
		Stored:    p.consumer.stored.Load(),
		Corrupt:   p.consumer.corrupt.Load(),
		Reordered: p.consumer.reordered.Load(),
		CacheHits: st.CacheHits,
		RecvLocks: st.RecvLocks,
		Duration:  time.Since(p.startedAt),
		EndedAt:   time.Now(),
	}

	if err := p.backend.EndRun(sum); err != nil {
		return sum, fmt.Errorf("ending run: %w", err)
	}
	return sum, nil
}

// Stats snapshots the channel counters. Safe to call from any goroutine.
func (p *Pipeline) Stats() mpsc.Stats {
	return p.rx.Stats()
}

// Progress reports how many records have been sent, received and stored
// so far.
func (p *Pipeline) Progress() (sent, received, stored uint64) {
	for _, prod := range p.producers {
		sent += prod.Sent()
	}
	return sent, p.consumer.received.Load(), p.consumer.stored.Load()
}

// LastWriteDuration reports the consumer's most recent batch write time,
// when the backend tracks it.
func (p *Pipeline) LastWriteDuration() time.Duration {
	type writeTimer interface {
		LastWriteDuration() time.Duration
	}
	if wt, ok := p.backend.(writeTimer); ok {
		return wt.LastWriteDuration()
	}
	return 0
}
