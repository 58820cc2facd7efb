// Package buntstorage implements the storage.Backend interface on a BuntDB
// file. Builds are stored as JSON under "build:<id>" with a secondary index
// on the creation time in nanoseconds.
package buntstorage

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/buntdb"

	"github.com/BOSS-tools/boplot/internal/storage"
	"github.com/BOSS-tools/boplot/pkg/core"
)

const (
	keyPrefix    = "build:"
	createdIndex = "created"
)

// record is the stored value. CreatedNs sorts numerically, which the
// RFC 3339 text of CreatedAt does not once fractional seconds vary in length.
type record struct {
	core.SharedBuild
	CreatedNs int64 `json:"createdNs"`
}

// Backend stores builds in BuntDB.
type Backend struct {
	path string
	db   *buntdb.DB
}

// New creates a backend for path. ":memory:" keeps everything in memory.
func New(path string) *Backend {
	return &Backend{path: path}
}

func key(id string) string {
	return keyPrefix + id
}

// Init opens the database and creates the creation-time index.
func (b *Backend) Init() error {
	db, err := buntdb.Open(b.path)
	if err != nil {
		return fmt.Errorf("failed to open buntdb %s: %w", b.path, err)
	}
	var cfg buntdb.Config
	if err = db.ReadConfig(&cfg); err == nil {
		cfg.SyncPolicy = buntdb.EverySecond
		err = db.SetConfig(cfg)
	}
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to configure buntdb: %w", err)
	}

	err = db.CreateIndex(createdIndex, keyPrefix+"*", buntdb.IndexJSON("createdNs"))
	if err != nil && !errors.Is(err, buntdb.ErrIndexExists) {
		db.Close()
		return fmt.Errorf("failed to create index: %w", err)
	}

	b.db = db
	return nil
}

// Close closes the database.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Save stores sb as JSON.
func (b *Backend) Save(sb *core.SharedBuild) error {
	storage.Prepare(sb)

	data, err := json.Marshal(record{SharedBuild: *sb, CreatedNs: sb.CreatedAt.UnixNano()})
	if err != nil {
		return fmt.Errorf("failed to encode shared build: %w", err)
	}

	return b.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(key(sb.ID), string(data), nil)
		return err
	})
}

// Get loads a build by ID.
func (b *Backend) Get(id string) (*core.SharedBuild, error) {
	var rec record
	err := b.db.View(func(tx *buntdb.Tx) error {
		value, err := tx.Get(key(id))
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(value), &rec)
	})
	if errors.Is(err, buntdb.ErrNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load shared build %s: %w", id, err)
	}
	return &rec.SharedBuild, nil
}

// List returns the newest builds first.
func (b *Backend) List(limit int) ([]core.SharedBuild, error) {
	limit = storage.Limit(limit)

	var out []core.SharedBuild
	err := b.db.View(func(tx *buntdb.Tx) error {
		var decodeErr error
		err := tx.Descend(createdIndex, func(k, value string) bool {
			if !strings.HasPrefix(k, keyPrefix) {
				return true
			}
			var rec record
			if decodeErr = json.Unmarshal([]byte(value), &rec); decodeErr != nil {
				return false
			}
			out = append(out, rec.SharedBuild)
			return len(out) < limit
		})
		if err != nil {
			return err
		}
		return decodeErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list shared builds: %w", err)
	}
	if out == nil {
		out = make([]core.SharedBuild, 0)
	}
	return out, nil
}
