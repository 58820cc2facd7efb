// internal/storage/memory/memory.go
package memory

import (
	"slices"
	"sync"

	"github.com/BOSS-tools/boplot/internal/config"
	"github.com/BOSS-tools/boplot/internal/storage"
	"github.com/BOSS-tools/boplot/pkg/core"
)

// Backend keeps shared builds in memory. When MaxEntries is reached the
// oldest build is evicted. With an OutputDir configured the builds are
// loaded from and written back to a JSON snapshot.
type Backend struct {
	cfg    config.MemoryConfig
	builds map[string]core.SharedBuild
	order  []string // insertion order, oldest first

	mu sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:    cfg,
		builds: make(map[string]core.SharedBuild),
	}
}

// Init loads the snapshot, if any.
func (b *Backend) Init() error {
	if b.cfg.OutputDir == "" {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	builds, err := readSnapshot(b.snapshotPath())
	if err != nil {
		return err
	}
	for _, sb := range builds {
		b.insert(sb)
	}
	return nil
}

// Close writes the snapshot, if configured.
func (b *Backend) Close() error {
	if b.cfg.OutputDir == "" {
		return nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	return b.writeSnapshot()
}

// Save stores a copy of sb.
func (b *Backend) Save(sb *core.SharedBuild) error {
	storage.Prepare(sb)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.insert(clone(*sb))
	return nil
}

func (b *Backend) insert(sb core.SharedBuild) {
	if _, exists := b.builds[sb.ID]; !exists {
		b.order = append(b.order, sb.ID)
	}
	b.builds[sb.ID] = sb

	if b.cfg.MaxEntries <= 0 || len(b.order) <= b.cfg.MaxEntries {
		return
	}
	evict := len(b.order) - b.cfg.MaxEntries
	for _, id := range b.order[:evict] {
		delete(b.builds, id)
	}
	// Shift in place so the backing array stays at MaxEntries+1.
	b.order = slices.Delete(b.order, 0, evict)
}

// Get returns a copy of the build with the given ID.
func (b *Backend) Get(id string) (*core.SharedBuild, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	sb, ok := b.builds[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := clone(sb)
	return &out, nil
}

// List returns up to limit builds, newest first.
func (b *Backend) List(limit int) ([]core.SharedBuild, error) {
	limit = storage.Limit(limit)

	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.SharedBuild, 0, min(limit, len(b.order)))
	for i := len(b.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, clone(b.builds[b.order[i]]))
	}
	return out, nil
}

// Len returns the number of stored builds.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.order)
}

func clone(sb core.SharedBuild) core.SharedBuild {
	if sb.Export != nil {
		sb.Export = append([]byte(nil), sb.Export...)
	}
	return sb
}
