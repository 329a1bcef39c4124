// Package db stores the working document and saved projects in SQLite.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/minimalcad/mcad/internal/config"
)

// migrations[i] moves the schema from user_version i to i+1.
var migrations = []string{
	// 1: working documents and projects
	`
	CREATE TABLE IF NOT EXISTS documents (
	  key          TEXT PRIMARY KEY,
	  shapes_json  TEXT NOT NULL,
	  shape_count  INTEGER NOT NULL,
	  updated_at   INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS projects (
	  id           TEXT PRIMARY KEY,
	  name_raw     TEXT NOT NULL,
	  name_norm    TEXT NOT NULL,
	  description  TEXT,
	  owner        TEXT,
	  access_key   TEXT,
	  shape_count  INTEGER NOT NULL,
	  created_at   INTEGER NOT NULL,
	  updated_at   INTEGER NOT NULL,
	  deleted_at   INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_projects_updated
	ON projects(updated_at DESC)
	WHERE deleted_at IS NULL;

	CREATE INDEX IF NOT EXISTS idx_projects_owner_updated
	ON projects(owner, updated_at DESC)
	WHERE owner IS NOT NULL AND deleted_at IS NULL;

	CREATE TABLE IF NOT EXISTS project_shapes (
	  project_id   TEXT NOT NULL REFERENCES projects(id),
	  ordinal      INTEGER NOT NULL,
	  shape_id     TEXT NOT NULL,
	  shape_type   TEXT NOT NULL,
	  shape_json   TEXT NOT NULL,
	  PRIMARY KEY (project_id, ordinal)
	);
	`,

	// 2: compare-and-swap revision for documents shared between processes
	`ALTER TABLE documents ADD COLUMN revision INTEGER NOT NULL DEFAULT 0;`,
}

// CurrentSchemaVersion is the user_version after all migrations have run.
var CurrentSchemaVersion = len(migrations)

// Init opens baseDir/mcad.db, creating baseDir and baseDir/exports with
// owner-only permissions, and brings the schema up to date.
// Tests pass t.TempDir() as baseDir.
func Init(baseDir string) (*sql.DB, error) {
	for _, dir := range []string{baseDir, filepath.Join(baseDir, "exports")} {
		if err := privateDir(dir); err != nil {
			return nil, err
		}
	}

	dbPath := filepath.Join(baseDir, "mcad.db")
	// Pragmas in the DSN apply to every pooled connection.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)
	return db, nil
}

// privateDir creates dir with mode 0700. The chmod is best-effort for
// directories that already existed.
func privateDir(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	_ = os.Chmod(dir, 0700)
	return nil
}

// ConfigurePool applies the connection pool limits set in cfg. Zero values
// keep the database/sql defaults.
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate runs every migration above the stored user_version, each in its
// own transaction together with the version bump.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	for v := version; v < len(migrations); v++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
		if _, err := tx.Exec(migrations[v]); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", v+1, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version=%d", v+1)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d: failed to set user_version: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d: %w", v+1, err)
		}
	}
	return nil
}

func verifyWALMode(db *sql.DB) error {
	var mode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&mode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if mode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", mode)
	}
	return nil
}

// GetUserVersion returns the schema version stored in the user_version pragma.
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion overwrites the user_version pragma.
func SetUserVersion(db *sql.DB, version int) error {
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version)); err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
