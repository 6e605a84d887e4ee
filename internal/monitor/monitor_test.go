package monitor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/funnelkit/funnel/internal/logging"
	"github.com/funnelkit/funnel/pkg/mpsc"
	"github.com/funnelkit/funnel/pkg/record"
)

// fakePipeline returns canned channel stats.
type fakePipeline struct {
	stats mpsc.Stats
}

func (f *fakePipeline) Stats() mpsc.Stats                { return f.stats }
func (f *fakePipeline) LastWriteDuration() time.Duration { return 7 * time.Millisecond }

// perfSink counts performance writes.
type perfSink struct {
	mu    sync.Mutex
	perfs []record.PerfSnapshot
}

func (p *perfSink) Init() error                        { return nil }
func (p *perfSink) Close() error                       { return nil }
func (p *perfSink) BeginRun(*record.RunInfo) error     { return nil }
func (p *perfSink) WriteRecords([]record.Record) error { return nil }
func (p *perfSink) EndRun(record.RunSummary) error     { return nil }
func (p *perfSink) WritePerformance(s record.PerfSnapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.perfs = append(p.perfs, s)
	return nil
}

func (p *perfSink) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.perfs)
}

func testStats() mpsc.Stats {
	return mpsc.Stats{
		Pending:     4,
		Cached:      2,
		LiveSenders: 3,
		Sends:       100,
		Receives:    94,
		CacheHits:   90,
		RecvLocks:   4,
		State:       mpsc.Open,
	}
}

func TestSnapshot(t *testing.T) {
	s := NewService(Dependencies{
		Pipeline:   &fakePipeline{stats: testStats()},
		LogManager: logging.NewSlogManager(),
	})

	snap := s.Snapshot()
	if snap.Pending != 4 || snap.Cached != 2 || snap.LiveSenders != 3 {
		t.Errorf("depth fields wrong: %+v", snap)
	}
	if snap.State != "open" {
		t.Errorf("expected state open, got %q", snap.State)
	}
	if snap.LastWriteDuration != 7*time.Millisecond {
		t.Errorf("expected 7ms write duration, got %v", snap.LastWriteDuration)
	}
}

func TestStartStop(t *testing.T) {
	s := NewService(Dependencies{
		Pipeline:   &fakePipeline{stats: testStats()},
		LogManager: logging.NewSlogManager(),
		Interval:   10 * time.Millisecond,
	})

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if !s.IsRunning() {
		t.Error("expected monitor running")
	}

	// Second start is a no-op.
	if err := s.Start(); err != nil {
		t.Fatalf("second start failed: %v", err)
	}

	s.Stop()
	deadline := time.Now().Add(time.Second)
	for s.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("monitor did not stop")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMonitorWritesSamples(t *testing.T) {
	sink := &perfSink{}
	statusPath := filepath.Join(t.TempDir(), "status.json")

	s := NewService(Dependencies{
		Pipeline:   &fakePipeline{stats: testStats()},
		Backend:    sink,
		LogManager: logging.NewSlogManager(),
		StatusPath: statusPath,
		Interval:   10 * time.Millisecond,
	})

	if err := s.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for sink.count() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("no perf samples written")
		}
		time.Sleep(10 * time.Millisecond)
	}
	s.Stop()

	data, err := os.ReadFile(statusPath)
	if err != nil {
		t.Fatalf("status file not written: %v", err)
	}
	var snap record.PerfSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("status file not valid JSON: %v", err)
	}
	if snap.Sends != 100 {
		t.Errorf("expected sends 100 in status file, got %d", snap.Sends)
	}
}

func TestDefaultInterval(t *testing.T) {
	s := NewService(Dependencies{Pipeline: &fakePipeline{}})
	if s.deps.Interval != time.Second {
		t.Errorf("expected 1s default interval, got %v", s.deps.Interval)
	}
}
