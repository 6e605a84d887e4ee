// Package postgres implements the storage.Backend interface over a
// PostgreSQL connection. All the real work lives in the embedded GORM
// backend; the connection itself is owned by a database.Manager, which
// has already validated it.
package postgres

import (
	"github.com/funnelkit/funnel/internal/database"
	"github.com/funnelkit/funnel/internal/logging"
	gormstorage "github.com/funnelkit/funnel/internal/storage/gorm"
)

// Backend wraps the GORM backend over a postgres connection.
type Backend struct {
	*gormstorage.Backend
}

// New wraps the GORM backend around the manager's connection.
func New(mgr *database.Manager, batchSize int, logManager *logging.SlogManager) *Backend {
	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			DB:         mgr.DB,
			LogManager: logManager,
			BatchSize:  batchSize,
		}),
	}
}
