package history

import (
	"database/sql"
	"fmt"
)

// migrations[i] moves the database from user_version i to i+1.
var migrations = []string{
	`CREATE TABLE snapshots (
  project_key      TEXT    NOT NULL DEFAULT 'default',
  schema_version   INTEGER NOT NULL,
  ts_utc           TEXT    NOT NULL,
  analysis_id      TEXT    NOT NULL DEFAULT '',
  severity         TEXT    NOT NULL DEFAULT 'low',
  file_count       INTEGER NOT NULL,
  dependency_count INTEGER NOT NULL DEFAULT 0,
  node_count       INTEGER NOT NULL DEFAULT 0,
  edge_count       INTEGER NOT NULL DEFAULT 0,
  total_issues     INTEGER NOT NULL,
  critical_issues  INTEGER NOT NULL DEFAULT 0,
  auto_fixable     INTEGER NOT NULL DEFAULT 0,
  cycle_count      INTEGER NOT NULL DEFAULT 0,
  missing_count    INTEGER NOT NULL DEFAULT 0,
  version_count    INTEGER NOT NULL DEFAULT 0,
  deprecated_count INTEGER NOT NULL DEFAULT 0,
  unused_count     INTEGER NOT NULL DEFAULT 0,
  duplicate_count  INTEGER NOT NULL DEFAULT 0,
  max_fan_in       INTEGER NOT NULL DEFAULT 0,
  max_fan_out      INTEGER NOT NULL DEFAULT 0,
  created_at_utc   TEXT    NOT NULL DEFAULT (CURRENT_TIMESTAMP),
  PRIMARY KEY (project_key, ts_utc, analysis_id)
);`,
	`CREATE INDEX idx_snapshots_project_ts ON snapshots(project_key, ts_utc);`,
}

func schemaVersion(q interface {
	QueryRow(string, ...any) *sql.Row
}) (int, error) {
	var v int
	if err := q.QueryRow(`PRAGMA user_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return v, nil
}

// migrate applies pending migrations, each in its own transaction. A database
// written by a newer build is refused rather than modified.
func migrate(db *sql.DB) error {
	current, err := schemaVersion(db)
	if err != nil {
		return err
	}
	if current > len(migrations) {
		return fmt.Errorf("history database schema %d is newer than supported %d", current, len(migrations))
	}

	for v := current; v < len(migrations); v++ {
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", v+1, err)
		}
		if _, err := tx.Exec(migrations[v]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", v+1, err)
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, v+1)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", v+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", v+1, err)
		}
	}
	return nil
}
