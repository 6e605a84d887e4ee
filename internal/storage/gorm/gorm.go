// Package gormstorage implements the storage backend operations shared by
// the SQLite and PostgreSQL backends: schema migration, run rows, batched
// record inserts with a retry queue, and performance samples.
package gormstorage

import (
	"fmt"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/funnelkit/funnel/internal/logging"
	"github.com/funnelkit/funnel/internal/model"
	"github.com/funnelkit/funnel/internal/model/convert"
	"github.com/funnelkit/funnel/internal/queue"
	"github.com/funnelkit/funnel/pkg/record"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB         *gorm.DB
	LogManager *logging.SlogManager
	BatchSize  int
}

// Backend implements the storage backend operations over a GORM connection.
type Backend struct {
	deps  Dependencies
	runID atomic.Uint64

	// retry holds rows whose batch insert failed; they are drained ahead
	// of the next batch so database order still follows receive order.
	retry *queue.Queue[model.StoredRecord]

	stored         atomic.Uint64
	lastWriteNanos atomic.Int64
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.BatchSize <= 0 {
		deps.BatchSize = 500
	}
	return &Backend{
		deps:  deps,
		retry: queue.New[model.StoredRecord](),
	}
}

// Init migrates the schema.
func (b *Backend) Init() error {
	log := b.deps.LogManager.Logger()

	log.Info("Migrating schema")
	if err := b.deps.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	log.Info("Database setup complete")
	return nil
}

// Close flushes any rows still waiting in the retry queue.
func (b *Backend) Close() error {
	if rows := b.retry.DrainAll(); len(rows) > 0 {
		if err := b.insert(rows); err != nil {
			return fmt.Errorf("failed to flush retry queue on close: %w", err)
		}
	}
	return nil
}

// BeginRun inserts the run row and remembers its database key for
// subsequent record and performance writes.
func (b *Backend) BeginRun(info *record.RunInfo) error {
	run := convert.RunInfoToRun(*info)
	if err := b.deps.DB.Create(&run).Error; err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	b.runID.Store(uint64(run.ID))
	b.deps.LogManager.Logger().Info("Run started", "runId", info.ID.String(), "dbKey", run.ID)
	return nil
}

// WriteRecords inserts a batch of records in one transaction. Rows from
// earlier failed batches are retried first so insertion order is kept.
func (b *Backend) WriteRecords(recs []record.Record) error {
	rows := convert.RecordsToStored(recs, uint(b.runID.Load()))
	if pending := b.retry.DrainAll(); len(pending) > 0 {
		rows = append(pending, rows...)
	}
	if len(rows) == 0 {
		return nil
	}

	start := time.Now()
	if err := b.insert(rows); err != nil {
		b.retry.Requeue(rows...)
		return fmt.Errorf("failed to insert %d records: %w", len(rows), err)
	}
	b.lastWriteNanos.Store(int64(time.Since(start)))
	b.stored.Add(uint64(len(rows)))
	return nil
}

func (b *Backend) insert(rows []model.StoredRecord) error {
	tx := b.deps.DB.Begin()
	if err := tx.CreateInBatches(&rows, b.deps.BatchSize).Error; err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

// WritePerformance inserts one performance sample row.
func (b *Backend) WritePerformance(p record.PerfSnapshot) error {
	row := model.RunPerformance{
		Time:  p.Time,
		RunID: uint(b.runID.Load()),
		ChannelDepths: model.ChannelDepths{
			Pending: p.Pending,
			Cached:  p.Cached,
		},
		LiveSenders:         p.LiveSenders,
		Sends:               p.Sends,
		Receives:            p.Receives,
		CacheHits:           p.CacheHits,
		RecvLocks:           p.RecvLocks,
		State:               p.State,
		LastWriteDurationMs: float32(p.LastWriteDuration.Milliseconds()),
	}
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert performance sample: %w", err)
	}
	return nil
}

// EndRun stamps the final accounting onto the run row.
func (b *Backend) EndRun(sum record.RunSummary) error {
	var run model.Run
	if err := b.deps.DB.First(&run, uint(b.runID.Load())).Error; err != nil {
		return fmt.Errorf("failed to load run row: %w", err)
	}

	convert.ApplySummary(&run, sum)
	if err := b.deps.DB.Save(&run).Error; err != nil {
		return fmt.Errorf("failed to update run row: %w", err)
	}

	b.deps.LogManager.Logger().Info("Run ended",
		"runId", sum.Run.ID.String(),
		"stored", b.stored.Load(),
		"duration", sum.Duration,
	)
	return nil
}

// LastWriteDuration reports how long the most recent record batch took to
// commit. The monitor samples this.
func (b *Backend) LastWriteDuration() time.Duration {
	return time.Duration(b.lastWriteNanos.Load())
}

// Stored reports how many record rows have been committed.
func (b *Backend) Stored() uint64 {
	return b.stored.Load()
}

// RetryDepth reports rows parked after a failed batch insert.
func (b *Backend) RetryDepth() int {
	return b.retry.Len()
}
