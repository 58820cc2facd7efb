package gormstorage

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BOSS-tools/boplot/internal/database"
	"github.com/BOSS-tools/boplot/internal/storage"
	"github.com/BOSS-tools/boplot/pkg/core"
)

// Compile-time interface check
var _ storage.Backend = (*Backend)(nil)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := database.GetSqliteDBStandalone(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	b := New(Dependencies{DB: db, Logger: zerolog.Nop()})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestInit_NoDB(t *testing.T) {
	b := New(Dependencies{})
	assert.Error(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestSaveGet(t *testing.T) {
	b := newTestBackend(t)

	sb := &core.SharedBuild{
		Config: "Probe,X,X,X,Probe,Pylon,X,X,X",
		Export: []byte(`{"BuildOrders":[{"Name":"Build Order 1"}]}`),
	}
	require.NoError(t, b.Save(sb))
	require.NotEmpty(t, sb.ID)

	got, err := b.Get(sb.ID)
	require.NoError(t, err)
	assert.Equal(t, sb.ID, got.ID)
	assert.Equal(t, sb.Config, got.Config)
	assert.JSONEq(t, string(sb.Export), string(got.Export))
	assert.WithinDuration(t, sb.CreatedAt, got.CreatedAt, time.Second)
}

func TestGet_NotFound(t *testing.T) {
	b := newTestBackend(t)

	_, err := b.Get("does-not-exist")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSave_Overwrite(t *testing.T) {
	b := newTestBackend(t)

	require.NoError(t, b.Save(&core.SharedBuild{ID: "fixed", Config: "old"}))
	require.NoError(t, b.Save(&core.SharedBuild{ID: "fixed", Config: "new"}))

	got, err := b.Get("fixed")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Config)

	list, err := b.List(0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestList_NewestFirst(t *testing.T) {
	b := newTestBackend(t)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		require.NoError(t, b.Save(&core.SharedBuild{
			ID:        fmt.Sprintf("b%d", i),
			Config:    "X,X,X,X,X,X",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	list, err := b.List(2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b3", list[0].ID)
	assert.Equal(t, "b2", list[1].ID)
	assert.Nil(t, list[0].Export)
}
