// internal/storage/storage.go
package storage

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/BOSS-tools/boplot/pkg/core"
)

// ErrNotFound is returned by Get for an unknown ID.
var ErrNotFound = errors.New("shared build not found")

// DefaultListLimit applies when List is called with a non-positive limit.
const DefaultListLimit = 50

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Save persists b, assigning an ID and creation time when they are unset.
	Save(b *core.SharedBuild) error
	Get(id string) (*core.SharedBuild, error)
	// List returns the most recent builds first.
	List(limit int) ([]core.SharedBuild, error)
}

// Prepare fills in the ID and creation time of a build about to be saved.
func Prepare(b *core.SharedBuild) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
}

// Limit normalizes a List limit.
func Limit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
