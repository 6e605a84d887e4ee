package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Run{},
	&StoredRecord{},
	&RunPerformance{},
}

// Run is one soak run from start to drain.
type Run struct {
	gorm.Model
	RunID     string     `json:"runId" gorm:"size:36;uniqueIndex"`
	Name      string     `json:"name" gorm:"size:127"`
	Tag       string     `json:"tag" gorm:"size:127"`
	Producers int        `json:"producers"`
	StartedAt time.Time  `json:"startedAt" gorm:"type:timestamptz"`
	EndedAt   *time.Time `json:"endedAt" gorm:"type:timestamptz"`

	// Final accounting, filled when the run ends.
	Sent      uint64 `json:"sent"`
	Received  uint64 `json:"received"`
	Stored    uint64 `json:"stored"`
	Corrupt   uint64 `json:"corrupt"`
	Reordered uint64 `json:"reordered"`
}

func (*Run) TableName() string {
	return "runs"
}

// StoredRecord is one pipeline record as persisted by a database backend.
type StoredRecord struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	RunID     uint           `json:"runId" gorm:"index:idx_storedrecord_run_id"`
	Run       Run            `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	RecordID  string         `json:"recordId" gorm:"size:36"`
	Producer  string         `json:"producer" gorm:"size:64;index:idx_storedrecord_producer"`
	Seq       uint64         `json:"seq"`
	Kind      string         `json:"kind" gorm:"size:16"`
	Payload   datatypes.JSON `json:"payload"`
	Checksum  uint32         `json:"checksum"`
	EmittedAt time.Time      `json:"emittedAt" gorm:"type:timestamptz;index:idx_storedrecord_emitted_at"`
	StoredAt  time.Time      `json:"storedAt" gorm:"type:timestamptz"`
}

func (*StoredRecord) TableName() string {
	return "records"
}

// RunPerformance is the model for pipeline performance samples
type RunPerformance struct {
	Time          time.Time     `json:"time" gorm:"type:timestamptz;index:idx_time"`
	RunID         uint          `json:"runId" gorm:"index:idx_runperformance_run_id"`
	Run           Run           `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	ChannelDepths ChannelDepths `json:"channelDepths" gorm:"embedded;embeddedPrefix:channel_"`
	LiveSenders   uint16        `json:"liveSenders"`
	Sends         uint64        `json:"sends"`
	Receives      uint64        `json:"receives"`
	CacheHits     uint64        `json:"cacheHits"`
	RecvLocks     uint64        `json:"recvLocks"`
	State         string        `json:"state" gorm:"size:16"`

	LastWriteDurationMs float32 `json:"lastWriteDurationMs"`
}

func (*RunPerformance) TableName() string {
	return "run_performances"
}

// ChannelDepths is the model for buffered value counts
type ChannelDepths struct {
	Pending uint32 `json:"pending"`
	Cached  uint32 `json:"cached"`
}
