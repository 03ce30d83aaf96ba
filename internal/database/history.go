package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/fixcry/fixcry/internal/model"
)

// FileName is the name of the database file inside the history directory.
const FileName = "fixcry.db"

// ErrRunNotFound is returned by GetReport when no run has the given id.
var ErrRunNotFound = errors.New("run not found")

// storedTimeFormat is how run timestamps are written. It is fixed width in
// UTC so that text order equals time order.
const storedTimeFormat = "2006-01-02 15:04:05.000000"

// HistoryDB provides SQLite-based storage for past detection runs.
// Every run stores its summary columns next to the full JSON report.
//
// Design decision: The full report is stored as JSON rather than normalized
// into group and member tables. Reports are only ever read back whole, and
// the JSON form is the same one written to the report file.
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

	// EnableWAL enables Write-Ahead Logging.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// HistoryEntry summarizes one stored run.
type HistoryEntry struct {
	// RunID is the report's run id.
	RunID string `json:"run_id"`

	// InputDir is the directory the run loaded its records from.
	InputDir string `json:"input_dir"`

	// Fingerprint is the digest of the run's input files.
	Fingerprint string `json:"input_fingerprint,omitempty"`

	// Threshold is the similarity threshold of the run.
	Threshold float64 `json:"threshold"`

	// TotalGroups is the number of duplicate groups found.
	TotalGroups int `json:"total_groups"`

	// TotalDuplicates is the number of duplicate records found.
	TotalDuplicates int `json:"total_duplicates"`

	// Timestamp is when the report was generated.
	Timestamp time.Time `json:"timestamp"`
}

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite takes the open mode in the DSN: rw refuses to
	// create a missing file, rwc creates it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
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

// Path returns the path of the database file.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS duplicate_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		input_dir TEXT NOT NULL,
		fingerprint TEXT,
		threshold REAL NOT NULL,
		total_groups INTEGER NOT NULL,
		total_duplicates INTEGER NOT NULL,
		report_json TEXT NOT NULL,
		timestamp TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_input ON duplicate_runs(input_dir);
	CREATE INDEX IF NOT EXISTS idx_runs_fingerprint ON duplicate_runs(fingerprint);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON duplicate_runs(timestamp);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveReport stores a report. Saving the same run id twice is an error.
func (hdb *HistoryDB) SaveReport(ctx context.Context, report *model.DuplicateReport) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	query := `
	INSERT INTO duplicate_runs
		(run_id, input_dir, fingerprint, threshold, total_groups, total_duplicates, report_json, timestamp)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = hdb.db.ExecContext(ctx, query,
		report.RunID,
		report.InputDir,
		report.InputFingerprint,
		report.Threshold,
		report.Summary.TotalGroups,
		report.Summary.TotalDuplicates,
		string(reportJSON),
		report.Timestamp.UTC().Format(storedTimeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}

	return nil
}

// ListRuns returns the stored runs for inputDir, newest first.
// An empty inputDir lists every run.
func (hdb *HistoryDB) ListRuns(ctx context.Context, inputDir string) ([]HistoryEntry, error) {
	query := `
	SELECT run_id, input_dir, fingerprint, threshold, total_groups, total_duplicates, timestamp
	FROM duplicate_runs
	WHERE ? = '' OR input_dir = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := hdb.db.QueryContext(ctx, query, inputDir, inputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}

	return entries, rows.Err()
}

// GetReport returns the full report of a stored run.
// It returns ErrRunNotFound when there is no such run.
func (hdb *HistoryDB) GetReport(ctx context.Context, runID string) (*model.DuplicateReport, error) {
	query := `
	SELECT report_json FROM duplicate_runs
	WHERE run_id = ?
	`

	var reportJSON string
	err := hdb.db.QueryRowContext(ctx, query, runID).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	var report model.DuplicateReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// LatestForFingerprint returns the newest run over input with the given
// fingerprint, or nil when there is none.
func (hdb *HistoryDB) LatestForFingerprint(ctx context.Context, fingerprint string) (*HistoryEntry, error) {
	if fingerprint == "" {
		return nil, nil
	}

	query := `
	SELECT run_id, input_dir, fingerprint, threshold, total_groups, total_duplicates, timestamp
	FROM duplicate_runs
	WHERE fingerprint = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`

	entry, err := scanEntry(hdb.db.QueryRowContext(ctx, query, fingerprint))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*HistoryEntry, error) {
	var (
		entry       HistoryEntry
		fingerprint sql.NullString
		timestamp   string
	)
	err := row.Scan(
		&entry.RunID,
		&entry.InputDir,
		&fingerprint,
		&entry.Threshold,
		&entry.TotalGroups,
		&entry.TotalDuplicates,
		&timestamp,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	entry.Fingerprint = fingerprint.String
	entry.Timestamp = parseTimestamp(timestamp)
	return &entry, nil
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	storedTimeFormat,
	"2006-01-02 15:04:05", // SQLite default datetime format
	time.RFC3339Nano,
	time.RFC3339,
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
