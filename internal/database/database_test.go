package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BOSS-tools/boplot/internal/model"
)

func TestPostgresDSN(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "db.internal")
	viper.Set("db.port", "5433")
	viper.Set("db.username", "boss")
	viper.Set("db.password", "pw")
	viper.Set("db.database", "builds")

	assert.Equal(t, "host=db.internal port=5433 user=boss password=pw dbname=builds sslmode=disable", PostgresDSN())
}

func TestGetSqliteDBStandalone_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boplot.db")
	db, err := GetSqliteDBStandalone(path)
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(model.DatabaseModels...))
	assert.True(t, db.Migrator().HasTable(&model.SharedBuild{}))

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestManagerSetup_CreatesInfoOnce(t *testing.T) {
	m := NewManager(zerolog.Nop())
	m.SqliteFilePath = filepath.Join(t.TempDir(), "setup.db")
	require.NoError(t, m.useSqlite())

	require.NoError(t, m.Setup())
	require.NoError(t, m.Setup())

	var infos []model.BoplotInfo
	require.NoError(t, m.DB.Find(&infos).Error)
	require.Len(t, infos, 1)
	assert.Equal(t, SchemaVersion, infos[0].SchemaVersion)
	assert.True(t, m.ShouldSaveLocal)
}

func TestManagerSetup_NotConnected(t *testing.T) {
	m := NewManager(zerolog.Nop())
	assert.Error(t, m.Setup())
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	db, err := GetSqliteDBStandalone(filepath.Join(t.TempDir(), "src.db"))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(model.DatabaseModels...))
	require.NoError(t, db.Create(&model.SharedBuild{ID: "abc", Config: "X,X,X,X,X,X"}).Error)

	out := filepath.Join(t.TempDir(), "dump.db")
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0644))
	require.NoError(t, DumpMemoryDBToDisk(db, out))

	dumped, err := GetSqliteDBStandalone(out)
	require.NoError(t, err)
	var row model.SharedBuild
	require.NoError(t, dumped.First(&row, "id = ?", "abc").Error)
	assert.Equal(t, "X,X,X,X,X,X", row.Config)
}

func TestDumpMemoryDBToDisk_NoPath(t *testing.T) {
	assert.Error(t, DumpMemoryDBToDisk(nil, ""))
}
