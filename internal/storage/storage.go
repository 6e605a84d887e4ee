// internal/storage/storage.go
package storage

import "github.com/funnelkit/funnel/pkg/record"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Run management
	BeginRun(info *record.RunInfo) error
	EndRun(sum record.RunSummary) error

	// Data recording
	WriteRecords(recs []record.Record) error
	WritePerformance(p record.PerfSnapshot) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to a report server.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() record.UploadMetadata
}
