package gormstorage

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/funnelkit/funnel/internal/logging"
	"github.com/funnelkit/funnel/internal/model"
	"github.com/funnelkit/funnel/pkg/record"
)

// newTestBackend creates a Backend over a private in-memory SQLite DB.
func newTestBackend(t *testing.T) *Backend {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	b := New(Dependencies{
		DB:         db,
		LogManager: logging.NewSlogManager(),
		BatchSize:  100,
	})
	require.NoError(t, b.Init())
	return b
}

func beginTestRun(t *testing.T, b *Backend) *record.RunInfo {
	t.Helper()
	info := &record.RunInfo{
		ID:        uuid.New(),
		Name:      "gorm test",
		Tag:       "test",
		Producers: 1,
		StartedAt: time.Now().UTC(),
	}
	require.NoError(t, b.BeginRun(info))
	return info
}

func makeRecords(n int) []record.Record {
	recs := make([]record.Record, n)
	for i := range recs {
		recs[i] = record.Record{
			ID:        uuid.New(),
			Producer:  "p-0",
			Seq:       uint64(i + 1),
			Kind:      record.KindCounter,
			Payload:   []byte(`{"v":1}`),
			EmittedAt: time.Now().UTC(),
		}
	}
	return recs
}

func TestNew_DefaultBatchSize(t *testing.T) {
	b := New(Dependencies{BatchSize: 0})
	assert.Equal(t, 500, b.deps.BatchSize)
}

func TestBeginRunCreatesRow(t *testing.T) {
	b := newTestBackend(t)
	info := beginTestRun(t, b)

	var run model.Run
	require.NoError(t, b.deps.DB.First(&run, uint(b.runID.Load())).Error)
	assert.Equal(t, info.ID.String(), run.RunID)
	assert.Equal(t, "gorm test", run.Name)
}

func TestWriteRecordsInsertsRows(t *testing.T) {
	b := newTestBackend(t)
	beginTestRun(t, b)

	require.NoError(t, b.WriteRecords(makeRecords(10)))

	var count int64
	b.deps.DB.Model(&model.StoredRecord{}).Count(&count)
	assert.Equal(t, int64(10), count)
	assert.Equal(t, uint64(10), b.Stored())
	assert.NotZero(t, b.LastWriteDuration())
}

func TestWriteRecordsEmptyBatch(t *testing.T) {
	b := newTestBackend(t)
	beginTestRun(t, b)

	require.NoError(t, b.WriteRecords(nil))
	assert.Equal(t, uint64(0), b.Stored())
}

func TestWriteRecordsRetriesFailedBatch(t *testing.T) {
	b := newTestBackend(t)
	beginTestRun(t, b)

	// Dropping the table makes the insert fail and park the rows.
	require.NoError(t, b.deps.DB.Migrator().DropTable(&model.StoredRecord{}))
	err := b.WriteRecords(makeRecords(3))
	require.Error(t, err)
	assert.Equal(t, 3, b.RetryDepth())

	// Restoring the table lets the next batch carry the parked rows in.
	require.NoError(t, b.deps.DB.AutoMigrate(&model.StoredRecord{}))
	require.NoError(t, b.WriteRecords(makeRecords(2)))
	assert.Equal(t, 0, b.RetryDepth())

	var count int64
	b.deps.DB.Model(&model.StoredRecord{}).Count(&count)
	assert.Equal(t, int64(5), count)
}

func TestWritePerformance(t *testing.T) {
	b := newTestBackend(t)
	beginTestRun(t, b)

	require.NoError(t, b.WritePerformance(record.PerfSnapshot{
		Time:        time.Now().UTC(),
		Pending:     3,
		Cached:      7,
		LiveSenders: 2,
		State:       "open",
	}))

	var row model.RunPerformance
	require.NoError(t, b.deps.DB.First(&row).Error)
	assert.Equal(t, uint32(3), row.ChannelDepths.Pending)
	assert.Equal(t, uint32(7), row.ChannelDepths.Cached)
	assert.Equal(t, "open", row.State)
}

func TestEndRunStampsSummary(t *testing.T) {
	b := newTestBackend(t)
	info := beginTestRun(t, b)

	require.NoError(t, b.WriteRecords(makeRecords(5)))
	require.NoError(t, b.EndRun(record.RunSummary{
		Run:      *info,
		Sent:     5,
		Received: 5,
		Stored:   5,
		Duration: time.Second,
		EndedAt:  time.Now().UTC(),
	}))

	var run model.Run
	require.NoError(t, b.deps.DB.First(&run, uint(b.runID.Load())).Error)
	assert.Equal(t, uint64(5), run.Sent)
	assert.Equal(t, uint64(5), run.Stored)
	require.NotNil(t, run.EndedAt)
}

func TestCloseFlushesRetryQueue(t *testing.T) {
	b := newTestBackend(t)
	beginTestRun(t, b)

	require.NoError(t, b.deps.DB.Migrator().DropTable(&model.StoredRecord{}))
	_ = b.WriteRecords(makeRecords(2))
	require.NoError(t, b.deps.DB.AutoMigrate(&model.StoredRecord{}))

	require.NoError(t, b.Close())

	var count int64
	b.deps.DB.Model(&model.StoredRecord{}).Count(&count)
	assert.Equal(t, int64(2), count)
}
