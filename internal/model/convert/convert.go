// Package convert provides functions to convert between pipeline records and GORM models
package convert

import (
	"time"

	"github.com/funnelkit/funnel/internal/model"
	"github.com/funnelkit/funnel/pkg/record"
	"gorm.io/datatypes"
)

// RecordToStored converts a pipeline record to a GORM model.StoredRecord.
// runID is the database key of the owning run, not the run UUID.
func RecordToStored(r record.Record, runID uint) model.StoredRecord {
	payload := datatypes.JSON(r.Payload)
	if len(r.Payload) == 0 {
		payload = datatypes.JSON("{}")
	}
	return model.StoredRecord{
		RunID:     runID,
		RecordID:  r.ID.String(),
		Producer:  r.Producer,
		Seq:       r.Seq,
		Kind:      string(r.Kind),
		Payload:   payload,
		Checksum:  r.Checksum,
		EmittedAt: r.EmittedAt,
		StoredAt:  time.Now(),
	}
}

// RecordsToStored converts a batch preserving order.
func RecordsToStored(recs []record.Record, runID uint) []model.StoredRecord {
	rows := make([]model.StoredRecord, len(recs))
	for i, r := range recs {
		rows[i] = RecordToStored(r, runID)
	}
	return rows
}

// RunInfoToRun converts run metadata to a GORM model.Run.
func RunInfoToRun(info record.RunInfo) model.Run {
	return model.Run{
		RunID:     info.ID.String(),
		Name:      info.Name,
		Tag:       info.Tag,
		Producers: info.Producers,
		StartedAt: info.StartedAt,
	}
}

// ApplySummary copies final run accounting onto an existing Run row.
func ApplySummary(run *model.Run, sum record.RunSummary) {
	ended := sum.EndedAt
	run.EndedAt = &ended
	run.Sent = sum.Sent
	run.Received = sum.Received
	run.Stored = sum.Stored
	run.Corrupt = sum.Corrupt
	run.Reordered = sum.Reordered
}
