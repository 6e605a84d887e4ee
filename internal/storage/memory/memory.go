// internal/storage/memory/memory.go
package memory

import (
	"fmt"
	"sync"
	"time"

	"github.com/funnelkit/funnel/internal/config"
	"github.com/funnelkit/funnel/pkg/record"
)

// Backend stores run data in memory and exports to JSON when the run ends
type Backend struct {
	cfg config.MemoryConfig

	info    record.RunInfo
	records []record.Record
	perfs   []record.PerfSnapshot
	summary record.RunSummary

	started        bool
	ended          bool
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg: cfg,
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// BeginRun begins accumulating a new run
func (b *Backend) BeginRun(info *record.RunInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.info = *info
	b.records = nil
	b.perfs = nil
	b.summary = record.RunSummary{}
	b.started = true
	b.ended = false
	b.lastExportPath = ""

	return nil
}

// WriteRecords appends a batch of records in delivery order
func (b *Backend) WriteRecords(recs []record.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return fmt.Errorf("no run in progress")
	}
	b.records = append(b.records, recs...)
	return nil
}

// WritePerformance appends a performance sample
func (b *Backend) WritePerformance(p record.PerfSnapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return fmt.Errorf("no run in progress")
	}
	b.perfs = append(b.perfs, p)
	return nil
}

// EndRun finalizes and exports the run data
func (b *Backend) EndRun(sum record.RunSummary) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return fmt.Errorf("no run in progress")
	}
	b.summary = sum
	b.ended = true

	return b.exportJSON()
}

// Stored returns how many records have been accumulated
func (b *Backend) Stored() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.records)
}

// GetExportedFilePath returns the path of the last exported run file
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata returns upload metadata for the last exported run
func (b *Backend) GetExportMetadata() record.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()

	duration := b.summary.Duration
	if duration == 0 && !b.info.StartedAt.IsZero() {
		duration = time.Since(b.info.StartedAt)
	}
	return record.UploadMetadata{
		RunName:  b.info.Name,
		Tag:      b.info.Tag,
		Duration: duration.Seconds(),
		Records:  uint64(len(b.records)),
	}
}
