// internal/storage/factory.go
package storage

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/funnelkit/funnel/internal/config"
	"github.com/funnelkit/funnel/internal/database"
	"github.com/funnelkit/funnel/internal/logging"
	"github.com/funnelkit/funnel/internal/storage/memory"
	"github.com/funnelkit/funnel/internal/storage/postgres"
	sqlitestorage "github.com/funnelkit/funnel/internal/storage/sqlite"
)

// NewBackend creates a storage backend based on configuration. The
// postgres case connects through a database.Manager, so an unreachable
// server degrades to the manager's in-memory SQLite fallback with
// periodic disk dumps instead of failing the run.
func NewBackend(cfg config.StorageConfig, logManager *logging.SlogManager, log zerolog.Logger) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		mgr := database.NewManager(log)
		if err := mgr.Connect(); err != nil {
			return nil, fmt.Errorf("connecting database: %w", err)
		}
		if mgr.ShouldSaveLocal {
			logManager.Logger().Warn("Postgres unreachable, storing to local SQLite")
			return sqlitestorage.NewWithManager(mgr, sqliteConfig(cfg), logManager), nil
		}
		return postgres.New(mgr, cfg.BatchSize, logManager), nil
	case "sqlite":
		return sqlitestorage.New(sqliteConfig(cfg), logManager, log)
	case "memory":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

func sqliteConfig(cfg config.StorageConfig) sqlitestorage.Config {
	return sqlitestorage.Config{
		BatchSize:    cfg.BatchSize,
		DumpInterval: cfg.SQLite.DumpInterval,
		DumpPath:     cfg.SQLite.Path,
	}
}
