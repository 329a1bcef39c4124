package db

import (
	"database/sql"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minimalcad/mcad/internal/config"
)

func TestInit(t *testing.T) {
	tmpDir := t.TempDir()

	db, err := Init(tmpDir)
	require.NoError(t, err)
	defer db.Close()

	require.FileExists(t, filepath.Join(tmpDir, "mcad.db"))
	require.DirExists(t, filepath.Join(tmpDir, "exports"))

	var journalMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode))
	require.Equal(t, "wal", journalMode)

	for _, table := range []string{"documents", "projects", "project_shapes"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "table %s", table)
	}
	for _, idx := range []string{"idx_projects_updated", "idx_projects_owner_updated"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name=?", idx).Scan(&name)
		require.NoError(t, err, "index %s", idx)
	}
}

func TestInit_CreatesPrivateDirectories(t *testing.T) {
	baseDir := filepath.Join(t.TempDir(), "nested", "path", ".mcad")

	db, err := Init(baseDir)
	require.NoError(t, err)
	defer db.Close()

	info, err := os.Stat(baseDir)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0700), info.Mode().Perm())
	}
}

func TestInit_MigrationIdempotent(t *testing.T) {
	tmpDir := t.TempDir()

	db1, err := Init(tmpDir)
	require.NoError(t, err)
	_, err = db1.Exec(`INSERT INTO documents (key, shapes_json, shape_count, updated_at) VALUES ('working', '[]', 0, 1)`)
	require.NoError(t, err)
	db1.Close()

	db2, err := Init(tmpDir)
	require.NoError(t, err)
	defer db2.Close()

	version, err := GetUserVersion(db2)
	require.NoError(t, err)
	require.Equal(t, CurrentSchemaVersion, version)

	var count int
	require.NoError(t, db2.QueryRow(`SELECT COUNT(*) FROM documents`).Scan(&count))
	require.Equal(t, 1, count, "reopening must keep existing rows")
}

func TestUserVersion(t *testing.T) {
	db, err := Init(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	version, err := GetUserVersion(db)
	require.NoError(t, err)
	require.Equal(t, CurrentSchemaVersion, version)

	require.NoError(t, SetUserVersion(db, 99))
	version, err = GetUserVersion(db)
	require.NoError(t, err)
	require.Equal(t, 99, version)
}

func openRaw(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "raw.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrate_FromZero(t *testing.T) {
	db := openRaw(t)

	require.NoError(t, migrate(db))

	version, err := GetUserVersion(db)
	require.NoError(t, err)
	require.Equal(t, CurrentSchemaVersion, version)
}

func TestMigrate_AddsDocumentRevision(t *testing.T) {
	db := openRaw(t)

	// A database written before revisions existed.
	_, err := db.Exec(migrations[0])
	require.NoError(t, err)
	require.NoError(t, SetUserVersion(db, 1))
	_, err = db.Exec(`INSERT INTO documents (key, shapes_json, shape_count, updated_at) VALUES ('working', '[]', 0, 1)`)
	require.NoError(t, err)

	require.NoError(t, migrate(db))

	var rev int64
	require.NoError(t, db.QueryRow(`SELECT revision FROM documents WHERE key = 'working'`).Scan(&rev))
	require.Zero(t, rev)
}

func TestConfigurePool(t *testing.T) {
	db, err := Init(t.TempDir())
	require.NoError(t, err)
	defer db.Close()

	ConfigurePool(db, nil)
	ConfigurePool(db, &config.Config{DBMaxOpenConns: 3, DBMaxIdleConns: 2})
	require.Equal(t, 3, db.Stats().MaxOpenConnections)
}
