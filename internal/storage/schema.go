package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations[i] brings the schema from version i to i+1. The version is
// kept in PRAGMA user_version.
var migrations = []func(*sql.Tx) error{
	createSnapshotsTable,
	createReportsTable,
}

// currentSchemaVersion is the version a fully migrated database reports.
var currentSchemaVersion = len(migrations)

func (db *DB) schemaVersion() (int, error) {
	var version int
	if err := db.conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}

// migrate runs pending migrations, each in its own transaction.
func (db *DB) migrate() error {
	version, err := db.schemaVersion()
	if err != nil {
		return err
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}
	if version == currentSchemaVersion {
		db.logger.Debug("Database schema is up to date", "version", version, "path", db.path)
		return nil
	}
	if version == 0 {
		db.logger.Info("Creating new database", "path", db.path)
	} else {
		db.logger.Info("Running database migrations", "from_version", version, "to_version", currentSchemaVersion)
	}

	for v := version; v < currentSchemaVersion; v++ {
		step := migrations[v]
		next := v + 1
		err := db.WithTx(context.Background(), func(tx *sql.Tx) error {
			if err := step(tx); err != nil {
				return err
			}
			// PRAGMA does not take bound parameters.
			_, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", next))
			return err
		})
		if err != nil {
			return fmt.Errorf("migration to version %d: %w", next, err)
		}
	}
	return nil
}

func createSnapshotsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			artifact TEXT NOT NULL,
			version TEXT NOT NULL,
			backend TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			created_at TEXT NOT NULL,
			element_count INTEGER NOT NULL,
			payload BLOB NOT NULL,

			PRIMARY KEY (artifact, version, backend)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create snapshots table: %w", err)
	}
	return nil
}

func createReportsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS reports (
			id TEXT PRIMARY KEY,
			old_version TEXT NOT NULL,
			new_version TEXT NOT NULL,
			output TEXT NOT NULL,
			format TEXT NOT NULL,
			"rows" INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create reports table: %w", err)
	}
	if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at)"); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}
