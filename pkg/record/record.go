// pkg/record/record.go
package record

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies a record's payload.
type Kind string

const (
	KindCounter Kind = "counter"
	KindGauge   Kind = "gauge"
	KindEvent   Kind = "event"
	KindLog     Kind = "log"
)

// Kinds lists every payload kind in a stable order.
var Kinds = []Kind{KindCounter, KindGauge, KindEvent, KindLog}

// Record is a single unit of data flowing from a producer to the sink.
// Seq is per producer and strictly increasing, which lets the consumer
// verify that channel order preserved each producer's send order.
type Record struct {
	ID        uuid.UUID
	Producer  string
	Seq       uint64
	Kind      Kind
	Payload   []byte // JSON document built by the payload generator
	Checksum  uint32 // IEEE CRC-32 of Payload
	EmittedAt time.Time
}

// RunInfo identifies one soak run.
type RunInfo struct {
	ID        uuid.UUID
	Name      string
	Tag       string
	Producers int
	StartedAt time.Time
}

// RunSummary is the final accounting for a completed run.
type RunSummary struct {
	Run       RunInfo
	Sent      uint64
	Received  uint64
	Stored    uint64
	Corrupt   uint64 // records whose checksum did not match
	Reordered uint64 // records that broke per-producer sequence order
	CacheHits uint64
	RecvLocks uint64
	Duration  time.Duration
	EndedAt   time.Time
}

// PerfSnapshot is one periodic sample of pipeline health, taken by the
// monitor and persisted by the storage backend.
type PerfSnapshot struct {
	Time        time.Time
	Pending     uint32 // values waiting in the shared channel queue
	Cached      uint32 // values held in the receiver cache
	LiveSenders uint16
	Sends       uint64
	Receives    uint64
	CacheHits   uint64
	RecvLocks   uint64
	State       string

	LastWriteDuration time.Duration
}

// UploadMetadata describes an exported run file for upload to a report
// server.
type UploadMetadata struct {
	RunName  string
	Tag      string
	Duration float64 // seconds
	Records  uint64
}
