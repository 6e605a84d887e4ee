package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funnelkit/funnel/internal/config"
	"github.com/funnelkit/funnel/pkg/record"
)

func testRunInfo() *record.RunInfo {
	return &record.RunInfo{
		ID:        uuid.New(),
		Name:      "memory test",
		Tag:       "test",
		Producers: 2,
		StartedAt: time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC),
	}
}

func testRecords(producer string, n int) []record.Record {
	recs := make([]record.Record, n)
	for i := range recs {
		recs[i] = record.Record{
			ID:        uuid.New(),
			Producer:  producer,
			Seq:       uint64(i + 1),
			Kind:      record.KindEvent,
			Payload:   []byte(`{"n":1}`),
			EmittedAt: time.Now(),
		}
	}
	return recs
}

func TestWriteRecordsBeforeBeginRun(t *testing.T) {
	b := New(config.MemoryConfig{})
	require.NoError(t, b.Init())

	err := b.WriteRecords(testRecords("p-0", 1))
	assert.Error(t, err)
}

func TestWriteRecordsPreservesOrder(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, b.BeginRun(testRunInfo()))

	require.NoError(t, b.WriteRecords(testRecords("p-0", 3)))
	require.NoError(t, b.WriteRecords(testRecords("p-1", 2)))

	assert.Equal(t, 5, b.Stored())
	assert.Equal(t, "p-0", b.records[0].Producer)
	assert.Equal(t, uint64(3), b.records[2].Seq)
	assert.Equal(t, "p-1", b.records[3].Producer)
}

func TestEndRunExportsJSON(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: false})

	info := testRunInfo()
	require.NoError(t, b.BeginRun(info))
	require.NoError(t, b.WriteRecords(testRecords("p-0", 2)))
	require.NoError(t, b.WritePerformance(record.PerfSnapshot{
		Time:  time.Now(),
		State: "open",
	}))

	sum := record.RunSummary{
		Run:      *info,
		Sent:     2,
		Received: 2,
		Stored:   2,
		Duration: 5 * time.Second,
		EndedAt:  time.Now(),
	}
	require.NoError(t, b.EndRun(sum))

	path := b.GetExportedFilePath()
	require.NotEmpty(t, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var export RunExport
	require.NoError(t, json.Unmarshal(data, &export))
	assert.Equal(t, 1, export.FormatVersion)
	assert.Equal(t, info.ID.String(), export.RunID)
	assert.Len(t, export.Records, 2)
	assert.Len(t, export.Performance, 1)
	assert.Equal(t, uint64(2), export.Summary.Stored)
}

func TestEndRunExportsGzip(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true})

	info := testRunInfo()
	require.NoError(t, b.BeginRun(info))
	require.NoError(t, b.WriteRecords(testRecords("p-0", 1)))
	require.NoError(t, b.EndRun(record.RunSummary{Run: *info, EndedAt: time.Now()}))

	path := b.GetExportedFilePath()
	require.NotEmpty(t, path)
	assert.Contains(t, path, ".json.gz")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	var export RunExport
	require.NoError(t, json.NewDecoder(gz).Decode(&export))
	assert.Len(t, export.Records, 1)
}

func TestGetExportMetadata(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})

	info := testRunInfo()
	require.NoError(t, b.BeginRun(info))
	require.NoError(t, b.WriteRecords(testRecords("p-0", 4)))
	require.NoError(t, b.EndRun(record.RunSummary{
		Run:      *info,
		Duration: 3 * time.Second,
		EndedAt:  time.Now(),
	}))

	meta := b.GetExportMetadata()
	assert.Equal(t, "memory test", meta.RunName)
	assert.Equal(t, "test", meta.Tag)
	assert.Equal(t, uint64(4), meta.Records)
	assert.InDelta(t, 3.0, meta.Duration, 0.001)
}

func TestBeginRunResetsState(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})

	info := testRunInfo()
	require.NoError(t, b.BeginRun(info))
	require.NoError(t, b.WriteRecords(testRecords("p-0", 2)))

	require.NoError(t, b.BeginRun(testRunInfo()))
	assert.Equal(t, 0, b.Stored())
}
