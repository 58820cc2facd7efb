// Package postgres implements the storage.Backend interface on PostgreSQL
// through the database manager. When Postgres cannot be reached the
// manager falls back to a local SQLite file and the backend keeps working
// against it.
package postgres

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/BOSS-tools/boplot/internal/database"
	gormstorage "github.com/BOSS-tools/boplot/internal/storage/gorm"
)

// Backend is the GORM backend bound to a managed connection.
type Backend struct {
	*gormstorage.Backend
	manager *database.Manager
	log     zerolog.Logger
}

// New creates a backend. fallbackPath is the SQLite file used when
// Postgres is unavailable; empty keeps the fallback in memory.
func New(log zerolog.Logger, fallbackPath string) *Backend {
	m := database.NewManager(log)
	m.SqliteFilePath = fallbackPath
	return &Backend{manager: m, log: log}
}

// Init connects, sets up the schema and binds the GORM backend.
func (b *Backend) Init() error {
	if err := b.manager.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	if err := b.manager.Setup(); err != nil {
		return err
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:          b.manager.DB,
		Logger:      b.log,
		SkipMigrate: true,
	})
	return b.Backend.Init()
}

// Close closes the connection.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	return b.Backend.Close()
}

// Local reports whether the backend fell back to SQLite.
func (b *Backend) Local() bool {
	return b.manager.ShouldSaveLocal
}
