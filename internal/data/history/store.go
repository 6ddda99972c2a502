package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"depsentry/internal/shared/observability"
)

const (
	driverName         = "sqlite"
	maxAttempts        = 5
	defaultBusyTimeout = 2 * time.Second
	defaultProjectKey  = "default"
)

const snapshotColumns = `
  project_key, schema_version, ts_utc, analysis_id, severity, file_count, dependency_count,
  node_count, edge_count, total_issues, critical_issues, auto_fixable, cycle_count,
  missing_count, version_count, deprecated_count, unused_count, duplicate_count,
  max_fan_in, max_fan_out`

// Store persists analysis snapshots in SQLite.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// Open creates the database file and its directory when missing and applies
// pending migrations. A non-positive busyTimeout uses the default.
func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}
	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveSnapshot upserts on (project, timestamp, analysis id).
func (s *Store) SaveSnapshot(projectKey string, snapshot Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	projectKey = normalizeProjectKey(projectKey)
	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = time.Now().UTC()
	}
	if snapshot.SchemaVersion == 0 {
		snapshot.SchemaVersion = SchemaVersion
	}
	if snapshot.SchemaVersion != SchemaVersion {
		return fmt.Errorf("unsupported snapshot schema version %d", snapshot.SchemaVersion)
	}
	if snapshot.Severity == "" {
		snapshot.Severity = "low"
	}

	query := `
INSERT INTO snapshots (` + snapshotColumns + `
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(project_key, ts_utc, analysis_id) DO UPDATE SET
  schema_version=excluded.schema_version,
  severity=excluded.severity,
  file_count=excluded.file_count,
  dependency_count=excluded.dependency_count,
  node_count=excluded.node_count,
  edge_count=excluded.edge_count,
  total_issues=excluded.total_issues,
  critical_issues=excluded.critical_issues,
  auto_fixable=excluded.auto_fixable,
  cycle_count=excluded.cycle_count,
  missing_count=excluded.missing_count,
  version_count=excluded.version_count,
  deprecated_count=excluded.deprecated_count,
  unused_count=excluded.unused_count,
  duplicate_count=excluded.duplicate_count,
  max_fan_in=excluded.max_fan_in,
  max_fan_out=excluded.max_fan_out
`
	return s.withRetry("save snapshot", func() error {
		_, err := s.db.Exec(
			query,
			projectKey,
			snapshot.SchemaVersion,
			snapshot.Timestamp.UTC().Format(time.RFC3339Nano),
			snapshot.AnalysisID,
			snapshot.Severity,
			snapshot.FileCount,
			snapshot.DependencyCount,
			snapshot.NodeCount,
			snapshot.EdgeCount,
			snapshot.TotalIssues,
			snapshot.CriticalIssues,
			snapshot.AutoFixable,
			snapshot.CycleCount,
			snapshot.MissingCount,
			snapshot.VersionCount,
			snapshot.DeprecatedCount,
			snapshot.UnusedCount,
			snapshot.DuplicateCount,
			snapshot.MaxFanIn,
			snapshot.MaxFanOut,
		)
		return err
	})
}

// LoadSnapshots returns the project's snapshots at or after since, oldest
// first. A zero since loads everything.
func (s *Store) LoadSnapshots(projectKey string, since time.Time) ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT` + snapshotColumns + `
FROM snapshots
WHERE project_key = ?`
	args := []any{normalizeProjectKey(projectKey)}
	if !since.IsZero() {
		query += " AND ts_utc >= ?"
		args = append(args, since.UTC().Format(time.RFC3339Nano))
	}
	query += " ORDER BY ts_utc ASC, analysis_id ASC"

	var rows *sql.Rows
	err := s.withRetry("load snapshots", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := make([]Snapshot, 0)
	for rows.Next() {
		var (
			tsRaw    string
			snapshot Snapshot
		)
		if err := rows.Scan(
			&snapshot.ProjectKey,
			&snapshot.SchemaVersion,
			&tsRaw,
			&snapshot.AnalysisID,
			&snapshot.Severity,
			&snapshot.FileCount,
			&snapshot.DependencyCount,
			&snapshot.NodeCount,
			&snapshot.EdgeCount,
			&snapshot.TotalIssues,
			&snapshot.CriticalIssues,
			&snapshot.AutoFixable,
			&snapshot.CycleCount,
			&snapshot.MissingCount,
			&snapshot.VersionCount,
			&snapshot.DeprecatedCount,
			&snapshot.UnusedCount,
			&snapshot.DuplicateCount,
			&snapshot.MaxFanIn,
			&snapshot.MaxFanOut,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}

		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse snapshot timestamp %q: %w", tsRaw, err)
		}
		snapshot.Timestamp = ts.UTC()
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return snapshots, nil
}

// Prune deletes snapshots older than before and reports how many were removed.
func (s *Store) Prune(projectKey string, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	err := s.withRetry("prune snapshots", func() error {
		res, err := s.db.Exec(`DELETE FROM snapshots WHERE project_key = ? AND ts_utc < ?`,
			normalizeProjectKey(projectKey), before.UTC().Format(time.RFC3339Nano))
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	return removed, err
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		observability.HistoryWriteRetryTotal.Inc()
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func normalizeProjectKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return defaultProjectKey
	}
	return key
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
