// Package monitor samples pipeline health on an interval: channel depths,
// send/receive counters and the backend's last write duration. Samples go
// to a status file, the storage backend, and InfluxDB when configured.
package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/funnelkit/funnel/internal/influx"
	"github.com/funnelkit/funnel/internal/logging"
	"github.com/funnelkit/funnel/internal/storage"
	"github.com/funnelkit/funnel/pkg/mpsc"
	"github.com/funnelkit/funnel/pkg/record"
)

// Pipeline is the slice of the pipeline the monitor samples.
type Pipeline interface {
	Stats() mpsc.Stats
	LastWriteDuration() time.Duration
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Pipeline   Pipeline
	Backend    storage.Backend
	Influx     *influx.Manager // optional
	LogManager *logging.SlogManager
	RunID      string
	StatusPath string
	Interval   time.Duration
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Snapshot builds one performance sample from the pipeline's current
// channel stats.
func (s *Service) Snapshot() record.PerfSnapshot {
	st := s.deps.Pipeline.Stats()
	return record.PerfSnapshot{
		Time:              time.Now().UTC(),
		Pending:           uint32(st.Pending),
		Cached:            uint32(st.Cached),
		LiveSenders:       uint16(st.LiveSenders),
		Sends:             st.Sends,
		Receives:          st.Receives,
		CacheHits:         st.CacheHits,
		RecvLocks:         st.RecvLocks,
		State:             st.State.String(),
		LastWriteDuration: s.deps.Pipeline.LastWriteDuration(),
	}
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine")

		var statusFile *os.File
		if s.deps.StatusPath != "" {
			var err error
			statusFile, err = os.Create(s.deps.StatusPath)
			if err != nil {
				logger.Error("Error creating status file", "error", err)
			} else {
				defer statusFile.Close()
			}
		}

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				snap := s.Snapshot()
				s.record(snap, statusFile, logger)
			}
		}
	}()

	return nil
}

// record writes one sample to every configured sink.
func (s *Service) record(snap record.PerfSnapshot, statusFile *os.File, logger *slog.Logger) {
	if statusFile != nil {
		statusStr, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			statusStr = []byte(`{"error": "` + err.Error() + `"}`)
		}
		statusFile.Truncate(0)
		statusFile.Seek(0, 0)
		statusFile.Write(append(statusStr, '\n'))
	}

	if s.deps.Backend != nil {
		if err := s.deps.Backend.WritePerformance(snap); err != nil {
			logger.Error("Error writing perf sample to storage", "error", err)
		}
	}

	if s.deps.Influx != nil {
		point := influx.PerfPoint(s.deps.RunID, snap)
		if err := s.deps.Influx.WritePoint(context.Background(), influx.BucketPerformance, point); err != nil {
			logger.Error("Error writing perf sample to InfluxDB", "error", err)
		}
	}

	logger.Debug("Perf sample",
		"pending", snap.Pending,
		"cached", snap.Cached,
		"liveSenders", snap.LiveSenders,
		"state", snap.State,
	)
}

// Stop stops the status monitor
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
