package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/webmirror/internal/model"
)

// HistoryDB provides SQLite-based storage for mirror run history.
// It manages connection pooling and provides methods for recording
// and listing past sessions.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, "webmirror.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating
	// new files, mode=rwc allows creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- Sessions store one row per completed mirror run
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		start_url TEXT NOT NULL,
		depth INTEGER NOT NULL,
		archive_name TEXT NOT NULL,
		archive_bytes INTEGER NOT NULL,
		page_count INTEGER NOT NULL,
		resource_count INTEGER NOT NULL,
		skipped_count INTEGER NOT NULL,
		timed_out INTEGER NOT NULL DEFAULT 0,
		report_json TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_start_url ON sessions(start_url);
	CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// SessionRecord contains summary information about a past mirror run.
// The full report can be loaded separately by ID.
type SessionRecord struct {
	// ID is the unique identifier of the session in the database.
	ID int64

	// StartURL is the URL the run started from.
	StartURL string

	// Depth is the link-following depth of the run.
	Depth int

	// ArchiveName is the suggested name of the produced archive.
	ArchiveName string

	// ArchiveBytes is the serialized archive size.
	ArchiveBytes int64

	// PageCount and ResourceCount summarize the archive contents.
	PageCount     int
	ResourceCount int

	// SkippedCount is the number of resources whose fetch failed.
	SkippedCount int

	// TimedOut reports a run cut short by its deadline.
	TimedOut bool

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time
	FinishedAt time.Time
}

// InsertSession records a completed mirror run and returns its ID.
func (hdb *HistoryDB) InsertSession(ctx context.Context, report *model.MirrorReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	query := `
	INSERT INTO sessions (start_url, depth, archive_name, archive_bytes, page_count,
		resource_count, skipped_count, timed_out, report_json, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	timedOut := 0
	if report.TimedOut {
		timedOut = 1
	}

	result, err := hdb.db.ExecContext(ctx, query,
		report.StartURL,
		report.Depth,
		report.ArchiveName,
		report.ArchiveBytes,
		len(report.Pages),
		len(report.Resources),
		report.SkippedResources(),
		timedOut,
		string(reportJSON),
		report.StartedAt.UTC().Format("2006-01-02 15:04:05"),
		report.FinishedAt.UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert session: %w", err)
	}

	return result.LastInsertId()
}

// ListSessions returns summaries of past runs, most recent first.
// A non-empty startURL restricts the list to runs of that URL.
func (hdb *HistoryDB) ListSessions(ctx context.Context, startURL string) ([]SessionRecord, error) {
	query := `
	SELECT id, start_url, depth, archive_name, archive_bytes, page_count,
		resource_count, skipped_count, timed_out, started_at, finished_at
	FROM sessions
	WHERE 1=1
	`
	args := make([]interface{}, 0)

	if startURL != "" {
		query += " AND start_url = ?"
		args = append(args, startURL)
	}

	query += " ORDER BY started_at DESC"

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var results []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		var timedOut int
		var startedAt, finishedAt string

		err := rows.Scan(
			&rec.ID,
			&rec.StartURL,
			&rec.Depth,
			&rec.ArchiveName,
			&rec.ArchiveBytes,
			&rec.PageCount,
			&rec.ResourceCount,
			&rec.SkippedCount,
			&timedOut,
			&startedAt,
			&finishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}

		rec.TimedOut = timedOut != 0
		rec.StartedAt = parseTimestamp(startedAt)
		rec.FinishedAt = parseTimestamp(finishedAt)
		results = append(results, rec)
	}

	return results, rows.Err()
}

// GetReportByID retrieves the full report of a past run.
// It returns nil without error when the ID is unknown.
func (hdb *HistoryDB) GetReportByID(ctx context.Context, id int64) (*model.MirrorReport, error) {
	query := `
	SELECT report_json FROM sessions
	WHERE id = ?
	`

	var reportJSON string
	err := hdb.db.QueryRowContext(ctx, query, id).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session report: %w", err)
	}

	var report model.MirrorReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// HasRecentSession checks if a start URL was mirrored within the
// specified duration.
func (hdb *HistoryDB) HasRecentSession(ctx context.Context, startURL string, duration time.Duration) (bool, error) {
	query := `
	SELECT COUNT(*) FROM sessions
	WHERE start_url = ? AND started_at > datetime('now', ?)
	`

	// SQLite datetime modifier format
	modifier := fmt.Sprintf("-%d seconds", int(duration.Seconds()))

	var count int
	err := hdb.db.QueryRowContext(ctx, query, startURL, modifier).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check recent session: %w", err)
	}

	return count > 0, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
