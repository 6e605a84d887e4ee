// Package sqlitestorage implements the storage.Backend interface using an
// in-memory SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend via composition; the only SQLite-specific
// concerns are (a) creating the in-memory DB, (b) the periodic disk dump,
// and (c) a final dump on close.
package sqlitestorage

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/funnelkit/funnel/internal/database"
	"github.com/funnelkit/funnel/internal/logging"
	gormstorage "github.com/funnelkit/funnel/internal/storage/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	BatchSize    int
	DumpInterval time.Duration
	DumpPath     string // Path for periodic VACUUM INTO dumps
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	mgr      *database.Manager
	cfg      Config
	log      *logging.SlogManager
	stopChan chan struct{}
}

// New creates a new SQLite storage backend with its own in-memory
// database connection.
func New(cfg Config, logManager *logging.SlogManager, log zerolog.Logger) (*Backend, error) {
	mgr := database.NewManager(log)
	db, err := mgr.GetSqliteDB("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}
	mgr.DB = db
	mgr.IsValid = true
	mgr.ShouldSaveLocal = true

	return NewWithManager(mgr, cfg, logManager), nil
}

// NewWithManager wraps an already-connected manager. The storage factory
// uses this when a postgres connection attempt degraded to the manager's
// local SQLite fallback.
func NewWithManager(mgr *database.Manager, cfg Config, logManager *logging.SlogManager) *Backend {
	mgr.SqliteFilePath = cfg.DumpPath

	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			DB:         mgr.DB,
			LogManager: logManager,
			BatchSize:  cfg.BatchSize,
		}),
		mgr:      mgr,
		cfg:      cfg,
		log:      logManager,
		stopChan: make(chan struct{}),
	}
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" {
		if dumps, err := database.ListDatabaseDumps(filepath.Dir(b.cfg.DumpPath)); err == nil && len(dumps) > 0 {
			b.log.Logger().Info("Found previous database dumps", "count", len(dumps))
		}
		if b.cfg.DumpInterval > 0 {
			go b.dumpLoop()
		}
	}

	return nil
}

// Close stops the dump goroutine, closes the embedded GORM backend, and
// writes a final dump so the run survives the in-memory database.
func (b *Backend) Close() error {
	close(b.stopChan)
	if err := b.Backend.Close(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" {
		if err := b.mgr.DumpMemoryToDisk(); err != nil {
			return fmt.Errorf("final dump failed: %w", err)
		}
	}
	return nil
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via
// VACUUM INTO. VACUUM INTO creates a point-in-time snapshot, so no pause
// mechanism is needed.
func (b *Backend) dumpLoop() {
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.mgr.DumpMemoryToDisk(); err != nil {
				b.log.Logger().Error("Error dumping to disk", "error", err)
			}
		}
	}
}
