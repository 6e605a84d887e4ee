// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RunExport is the root JSON structure
type RunExport struct {
	FormatVersion int          `json:"formatVersion"`
	RunID         string       `json:"runId"`
	Name          string       `json:"name"`
	Tag           string       `json:"tag"`
	Producers     int          `json:"producers"`
	StartedAt     string       `json:"startedAt"`
	EndedAt       string       `json:"endedAt,omitempty"`
	Summary       SummaryJSON  `json:"summary"`
	Performance   []PerfJSON   `json:"performance"`
	Records       []RecordJSON `json:"records"`
}

// SummaryJSON is the final accounting block of an export
type SummaryJSON struct {
	Sent       uint64  `json:"sent"`
	Received   uint64  `json:"received"`
	Stored     uint64  `json:"stored"`
	Corrupt    uint64  `json:"corrupt"`
	Reordered  uint64  `json:"reordered"`
	CacheHits  uint64  `json:"cacheHits"`
	RecvLocks  uint64  `json:"recvLocks"`
	DurationMs float64 `json:"durationMs"`
}

// PerfJSON is one monitor sample
type PerfJSON struct {
	Time        string `json:"time"`
	Pending     uint32 `json:"pending"`
	Cached      uint32 `json:"cached"`
	LiveSenders uint16 `json:"liveSenders"`
	Sends       uint64 `json:"sends"`
	Receives    uint64 `json:"receives"`
	CacheHits   uint64 `json:"cacheHits"`
	RecvLocks   uint64 `json:"recvLocks"`
	State       string `json:"state"`
}

// RecordJSON is one delivered record
type RecordJSON struct {
	ID        string          `json:"id"`
	Producer  string          `json:"producer"`
	Seq       uint64          `json:"seq"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
	Checksum  uint32          `json:"checksum"`
	EmittedAt string          `json:"emittedAt"`
}

// exportJSON writes the run data to a (gzipped) JSON file.
// Caller holds b.mu.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	// Build filename
	runName := strings.ReplaceAll(b.info.Name, " ", "_")
	runName = strings.ReplaceAll(runName, ":", "_")
	timestamp := b.info.StartedAt.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s.json.gz", runName, timestamp)
	} else {
		filename = fmt.Sprintf("%s_%s.json", runName, timestamp)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() RunExport {
	export := RunExport{
		FormatVersion: 1,
		RunID:         b.info.ID.String(),
		Name:          b.info.Name,
		Tag:           b.info.Tag,
		Producers:     b.info.Producers,
		StartedAt:     b.info.StartedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
		Summary: SummaryJSON{
			Sent:       b.summary.Sent,
			Received:   b.summary.Received,
			Stored:     b.summary.Stored,
			Corrupt:    b.summary.Corrupt,
			Reordered:  b.summary.Reordered,
			CacheHits:  b.summary.CacheHits,
			RecvLocks:  b.summary.RecvLocks,
			DurationMs: float64(b.summary.Duration.Milliseconds()),
		},
		Performance: make([]PerfJSON, 0, len(b.perfs)),
		Records:     make([]RecordJSON, 0, len(b.records)),
	}
	if !b.summary.EndedAt.IsZero() {
		export.EndedAt = b.summary.EndedAt.UTC().Format("2006-01-02T15:04:05.000Z")
	}

	for _, p := range b.perfs {
		export.Performance = append(export.Performance, PerfJSON{
			Time:        p.Time.UTC().Format("2006-01-02T15:04:05.000Z"),
			Pending:     p.Pending,
			Cached:      p.Cached,
			LiveSenders: p.LiveSenders,
			Sends:       p.Sends,
			Receives:    p.Receives,
			CacheHits:   p.CacheHits,
			RecvLocks:   p.RecvLocks,
			State:       p.State,
		})
	}

	for _, r := range b.records {
		payload := json.RawMessage(r.Payload)
		if len(payload) == 0 {
			payload = json.RawMessage("{}")
		}
		export.Records = append(export.Records, RecordJSON{
			ID:        r.ID.String(),
			Producer:  r.Producer,
			Seq:       r.Seq,
			Kind:      string(r.Kind),
			Payload:   payload,
			Checksum:  r.Checksum,
			EmittedAt: r.EmittedAt.UTC().Format("2006-01-02T15:04:05.000Z"),
		})
	}

	return export
}

func writeJSON(path string, export RunExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	if err := enc.Encode(export); err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return nil
}

func writeGzipJSON(path string, export RunExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	enc := json.NewEncoder(gz)
	if err := enc.Encode(export); err != nil {
		gz.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gz.Close()
}
