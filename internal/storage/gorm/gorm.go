// Package gormstorage implements the storage.Backend interface over any
// GORM database. The SQLite and Postgres backends wrap it.
package gormstorage

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/BOSS-tools/boplot/internal/model"
	"github.com/BOSS-tools/boplot/internal/storage"
	"github.com/BOSS-tools/boplot/pkg/core"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB     *gorm.DB
	Logger zerolog.Logger
	// SkipMigrate leaves the schema to the caller.
	SkipMigrate bool
}

// Backend implements storage.Backend with GORM.
type Backend struct {
	deps Dependencies
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{deps: deps}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init migrates the schema.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm backend: no database")
	}
	if b.deps.SkipMigrate {
		return nil
	}
	if err := b.deps.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	b.deps.Logger.Debug().Msg("Schema migrated")
	return nil
}

// Close closes the connection pool.
func (b *Backend) Close() error {
	if b.deps.DB == nil {
		return nil
	}
	sqlDB, err := b.deps.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}

// Save inserts or replaces a build.
func (b *Backend) Save(sb *core.SharedBuild) error {
	storage.Prepare(sb)

	row := model.SharedBuildFromCore(sb)
	if err := b.deps.DB.Save(&row).Error; err != nil {
		return fmt.Errorf("failed to save shared build %s: %w", sb.ID, err)
	}
	return nil
}

// Get loads a build by ID.
func (b *Backend) Get(id string) (*core.SharedBuild, error) {
	var row model.SharedBuild
	err := b.deps.DB.Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load shared build %s: %w", id, err)
	}
	sb := row.ToCore()
	return &sb, nil
}

// List returns the newest builds first.
func (b *Backend) List(limit int) ([]core.SharedBuild, error) {
	var rows []model.SharedBuild
	err := b.deps.DB.
		Order("created_at DESC").
		Limit(storage.Limit(limit)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list shared builds: %w", err)
	}

	out := make([]core.SharedBuild, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToCore())
	}
	return out, nil
}
