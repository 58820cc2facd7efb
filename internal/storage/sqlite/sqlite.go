// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend; the SQLite-specific concerns are creating the
// in-memory DB, restoring the last dump on start and dumping to disk.
package sqlitestorage

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/BOSS-tools/boplot/internal/config"
	"github.com/BOSS-tools/boplot/internal/database"
	"github.com/BOSS-tools/boplot/internal/model"
	gormstorage "github.com/BOSS-tools/boplot/internal/storage/gorm"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      config.SQLiteConfig
	log      zerolog.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a new SQLite storage backend. Every backend gets its own
// named in-memory database.
func New(cfg config.SQLiteConfig, log zerolog.Logger) (*Backend, error) {
	dsn := fmt.Sprintf("file:boplot-%s?mode=memory&cache=shared", uuid.NewString())
	db, err := database.GetSqliteDBStandalone(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:     db,
		Logger: log,
	})

	return &Backend{
		Backend:  gormBackend,
		db:       db,
		cfg:      cfg,
		log:      log,
		stopChan: make(chan struct{}),
	}, nil
}

// Init migrates the schema, restores the last dump and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if err := b.restore(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}

	return nil
}

// Close stops the dump goroutine, writes a final dump and closes the
// embedded GORM backend.
func (b *Backend) Close() error {
	b.stopOnce.Do(func() { close(b.stopChan) })
	b.wg.Wait()

	var dumpErr error
	if b.cfg.DumpPath != "" {
		dumpErr = database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath)
	}
	return errors.Join(dumpErr, b.Backend.Close())
}

// restore copies the rows of an existing dump into the in-memory database.
func (b *Backend) restore() error {
	if b.cfg.DumpPath == "" {
		return nil
	}
	if _, err := os.Stat(b.cfg.DumpPath); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	disk, err := database.GetSqliteDBStandalone(b.cfg.DumpPath)
	if err != nil {
		return fmt.Errorf("failed to open dump %s: %w", b.cfg.DumpPath, err)
	}
	defer func() {
		if sqlDB, err := disk.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	if !disk.Migrator().HasTable(&model.SharedBuild{}) {
		return nil
	}

	var rows []model.SharedBuild
	if err := disk.Find(&rows).Error; err != nil {
		return fmt.Errorf("failed to read dump: %w", err)
	}
	if len(rows) > 0 {
		if err := b.db.CreateInBatches(rows, 500).Error; err != nil {
			return fmt.Errorf("failed to restore dump: %w", err)
		}
	}

	b.log.Info().Int("builds", len(rows)).Str("path", b.cfg.DumpPath).Msg("Restored SQLite dump")
	return nil
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath); err != nil {
				b.log.Error().Err(err).Msg("Error dumping to disk")
			} else {
				b.log.Debug().Dur("duration", time.Since(start)).Msg("Dumped to disk")
			}
		}
	}
}
