package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/BOSS-tools/boplot/internal/config"
	"github.com/BOSS-tools/boplot/internal/storage"
	buntstorage "github.com/BOSS-tools/boplot/internal/storage/buntdb"
	"github.com/BOSS-tools/boplot/internal/storage/memory"
	pgstorage "github.com/BOSS-tools/boplot/internal/storage/postgres"
	sqlitestorage "github.com/BOSS-tools/boplot/internal/storage/sqlite"
)

// createStorageBackend picks the shared-build backend named by
// storage.type. Unknown types fall back to memory.
func createStorageBackend(storageCfg config.StorageConfig, log zerolog.Logger) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		return pgstorage.New(log, storageCfg.SQLite.DumpPath), nil

	case "sqlite":
		backend, err := sqlitestorage.New(storageCfg.SQLite, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		return backend, nil

	case "buntdb":
		return buntstorage.New(storageCfg.BuntDB.Path), nil

	default:
		return memory.New(storageCfg.Memory), nil
	}
}
