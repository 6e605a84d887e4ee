package convert

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/funnelkit/funnel/internal/model"
	"github.com/funnelkit/funnel/pkg/record"
)

func TestRecordToStored(t *testing.T) {
	id := uuid.New()
	emitted := time.Now().Add(-time.Second)

	r := record.Record{
		ID:        id,
		Producer:  "producer-3",
		Seq:       17,
		Kind:      record.KindEvent,
		Payload:   []byte(`{"value":42}`),
		Checksum:  0xDEADBEEF,
		EmittedAt: emitted,
	}

	row := RecordToStored(r, 5)

	assert.Equal(t, uint(5), row.RunID)
	assert.Equal(t, id.String(), row.RecordID)
	assert.Equal(t, "producer-3", row.Producer)
	assert.Equal(t, uint64(17), row.Seq)
	assert.Equal(t, "event", row.Kind)
	assert.JSONEq(t, `{"value":42}`, string(row.Payload))
	assert.Equal(t, uint32(0xDEADBEEF), row.Checksum)
	assert.Equal(t, emitted, row.EmittedAt)
	assert.False(t, row.StoredAt.IsZero())
}

func TestRecordToStored_EmptyPayload(t *testing.T) {
	row := RecordToStored(record.Record{ID: uuid.New()}, 1)
	assert.JSONEq(t, `{}`, string(row.Payload))
}

func TestRecordsToStored_PreservesOrder(t *testing.T) {
	recs := []record.Record{
		{ID: uuid.New(), Seq: 1},
		{ID: uuid.New(), Seq: 2},
		{ID: uuid.New(), Seq: 3},
	}

	rows := RecordsToStored(recs, 9)

	assert.Len(t, rows, 3)
	for i, row := range rows {
		assert.Equal(t, recs[i].Seq, row.Seq)
		assert.Equal(t, uint(9), row.RunID)
	}
}

func TestRunInfoToRun(t *testing.T) {
	id := uuid.New()
	started := time.Now()

	run := RunInfoToRun(record.RunInfo{
		ID:        id,
		Name:      "nightly-soak",
		Tag:       "v1.2.3",
		Producers: 16,
		StartedAt: started,
	})

	assert.Equal(t, id.String(), run.RunID)
	assert.Equal(t, "nightly-soak", run.Name)
	assert.Equal(t, "v1.2.3", run.Tag)
	assert.Equal(t, 16, run.Producers)
	assert.Equal(t, started, run.StartedAt)
	assert.Nil(t, run.EndedAt)
}

func TestApplySummary(t *testing.T) {
	run := model.Run{RunID: uuid.New().String()}
	ended := time.Now()

	ApplySummary(&run, record.RunSummary{
		Sent:      1000,
		Received:  1000,
		Stored:    998,
		Corrupt:   1,
		Reordered: 1,
		EndedAt:   ended,
	})

	assert.NotNil(t, run.EndedAt)
	assert.Equal(t, ended, *run.EndedAt)
	assert.Equal(t, uint64(1000), run.Sent)
	assert.Equal(t, uint64(998), run.Stored)
	assert.Equal(t, uint64(1), run.Corrupt)
	assert.Equal(t, uint64(1), run.Reordered)
}
