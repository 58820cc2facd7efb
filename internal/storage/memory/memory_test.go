// internal/storage/memory/memory_test.go
package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BOSS-tools/boplot/internal/config"
	"github.com/BOSS-tools/boplot/internal/storage"
	"github.com/BOSS-tools/boplot/pkg/core"
)

// Verify Backend implements storage.Backend interface
var _ storage.Backend = (*Backend)(nil)

func TestInitAndClose(t *testing.T) {
	b := New(config.MemoryConfig{})

	require.NoError(t, b.Init())
	require.NoError(t, b.Close())
}

func TestSaveGet(t *testing.T) {
	b := New(config.MemoryConfig{})

	sb := &core.SharedBuild{Config: "Probe,X,X,X,Pylon,X,X,X", Export: []byte(`{"BuildOrders":[]}`)}
	require.NoError(t, b.Save(sb))
	require.NotEmpty(t, sb.ID)
	assert.False(t, sb.CreatedAt.IsZero())

	got, err := b.Get(sb.ID)
	require.NoError(t, err)
	assert.Equal(t, *sb, *got)

	got.Export[0] = '['
	again, err := b.Get(sb.ID)
	require.NoError(t, err)
	assert.Equal(t, byte('{'), again.Export[0], "Get must return a copy")
}

func TestGet_NotFound(t *testing.T) {
	b := New(config.MemoryConfig{})

	_, err := b.Get("missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestList_NewestFirst(t *testing.T) {
	b := New(config.MemoryConfig{})

	for i := 0; i < 5; i++ {
		require.NoError(t, b.Save(&core.SharedBuild{ID: fmt.Sprintf("b%d", i), Config: "X,X,X,X,X,X"}))
	}

	list, err := b.List(3)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "b4", list[0].ID)
	assert.Equal(t, "b2", list[2].ID)

	all, err := b.List(0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestSave_EvictsOldest(t *testing.T) {
	b := New(config.MemoryConfig{MaxEntries: 2})

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, b.Save(&core.SharedBuild{ID: id}))
	}

	assert.Equal(t, 2, b.Len())
	_, err := b.Get("a")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = b.Get("c")
	assert.NoError(t, err)
}

func TestSave_EvictionKeepsOrderBounded(t *testing.T) {
	b := New(config.MemoryConfig{MaxEntries: 3})

	for i := range 1000 {
		require.NoError(t, b.Save(&core.SharedBuild{ID: fmt.Sprintf("build-%d", i)}))
	}

	assert.Equal(t, 3, b.Len())
	b.mu.RLock()
	assert.Len(t, b.order, 3)
	assert.LessOrEqual(t, cap(b.order), 8)
	assert.Equal(t, []string{"build-997", "build-998", "build-999"}, b.order)
	b.mu.RUnlock()
}

func TestSave_OverwriteKeepsPosition(t *testing.T) {
	b := New(config.MemoryConfig{})

	require.NoError(t, b.Save(&core.SharedBuild{ID: "a", Config: "old"}))
	require.NoError(t, b.Save(&core.SharedBuild{ID: "b"}))
	require.NoError(t, b.Save(&core.SharedBuild{ID: "a", Config: "new"}))

	assert.Equal(t, 2, b.Len())
	got, err := b.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Config)
}

func TestSnapshotRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		t.Run(fmt.Sprintf("compress=%v", compress), func(t *testing.T) {
			dir := t.TempDir()
			cfg := config.MemoryConfig{OutputDir: dir, CompressOutput: compress}

			b := New(cfg)
			require.NoError(t, b.Init())
			require.NoError(t, b.Save(&core.SharedBuild{ID: "first", Config: "Probe,X,X,X,Probe,X,X,X"}))
			require.NoError(t, b.Save(&core.SharedBuild{ID: "second", Config: "X,X,X,X,X,X"}))
			require.NoError(t, b.Close())

			_, err := os.Stat(b.snapshotPath())
			require.NoError(t, err)

			restored := New(cfg)
			require.NoError(t, restored.Init())
			assert.Equal(t, 2, restored.Len())

			list, err := restored.List(0)
			require.NoError(t, err)
			assert.Equal(t, "second", list[0].ID)
			assert.Equal(t, "Probe,X,X,X,Probe,X,X,X", list[1].Config)
		})
	}
}

func TestInit_CorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, snapshotName), []byte("not json"), 0644))

	b := New(config.MemoryConfig{OutputDir: dir})
	assert.Error(t, b.Init())
}

func TestConcurrentSave(t *testing.T) {
	b := New(config.MemoryConfig{MaxEntries: 50})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, b.Save(&core.SharedBuild{Config: "X,X,X,X,X,X"}))
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, b.Len())
}
