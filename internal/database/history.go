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

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/depscout/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "depscout.db"

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// HistoryDB provides SQLite-based storage for past runs and scores.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string

	// now returns the time stamped on new runs without one.
	now func() time.Time
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

// Open opens or creates a HistoryDB in dbDir.
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
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	// Concurrent runs share the file, so writers wait for the lock.
	dsn := dbPath + "?mode=rw&_pragma=busy_timeout(5000)"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc&_pragma=busy_timeout(5000)"
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
		now:    time.Now,
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

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- Runs are invocations of study or check
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		command TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		band_low INTEGER NOT NULL,
		band_good INTEGER NOT NULL,
		strict INTEGER NOT NULL DEFAULT 0,
		success INTEGER NOT NULL DEFAULT 0,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);

	-- Package scores hold one row per package per run
	CREATE TABLE IF NOT EXISTS package_scores (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		package TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		score INTEGER NOT NULL,
		should_install INTEGER NOT NULL,
		error TEXT,
		partials TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_scores_package ON package_scores(package);
	CREATE INDEX IF NOT EXISTS idx_scores_run ON package_scores(run_id);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// Run is one invocation of study or check.
type Run struct {
	// ID is assigned by SaveRun when empty.
	ID string

	// Command is "study" or "check".
	Command string

	// Timestamp defaults to the current time.
	Timestamp time.Time

	Band   model.Band
	Strict bool

	// Success is the outcome reported to the shell.
	Success bool

	// Packages are the analyzed packages of the run.
	Packages []*model.Package
}

// ScoreRecord is the stored score of one package in one run.
type ScoreRecord struct {
	RunID         string             `json:"runId"`
	Package       string             `json:"package"`
	Timestamp     time.Time          `json:"timestamp"`
	Score         int                `json:"score"`
	ShouldInstall bool               `json:"shouldInstall"`
	Error         string             `json:"error,omitempty"`
	Partials      map[string]float64 `json:"partials"`
}

// RunMetadata contains summary information about a run.
// This is used for listing runs without loading the packages.
type RunMetadata struct {
	ID        string     `json:"id"`
	Command   string     `json:"command"`
	Timestamp time.Time  `json:"timestamp"`
	Band      model.Band `json:"band"`
	Strict    bool       `json:"strict"`
	Success   bool       `json:"success"`
	Packages  int        `json:"packages"`
}

// timestampLayout keeps lexical order equal to chronological order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SaveRun stores run and the score of each of its packages in one
// transaction. It returns the run id.
func (hdb *HistoryDB) SaveRun(ctx context.Context, run *Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = hdb.now()
	}
	ts := run.Timestamp.UTC().Format(timestampLayout)

	reportJSON, err := json.Marshal(run.Packages)
	if err != nil {
		return "", fmt.Errorf("failed to serialize report: %w", err)
	}

	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, command, timestamp, band_low, band_good, strict, success, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Command, ts, run.Band.Low, run.Band.Good, run.Strict, run.Success, string(reportJSON))
	if err != nil {
		return "", fmt.Errorf("failed to save run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO package_scores (run_id, package, timestamp, score, should_install, error, partials)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare score insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range run.Packages {
		if p == nil {
			continue
		}
		partials, err := json.Marshal(p.Partials)
		if err != nil {
			return "", fmt.Errorf("failed to serialize partials of %s: %w", p.Name, err)
		}
		install := p.Installable(run.Band, run.Strict)
		if _, err := stmt.ExecContext(ctx, run.ID, p.Name, ts, p.Score, install, p.ErrorMessage, string(partials)); err != nil {
			return "", fmt.Errorf("failed to save score of %s: %w", p.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return run.ID, nil
}

// PackageHistory returns the stored scores of a package, newest first.
// A limit of zero or less returns every record.
func (hdb *HistoryDB) PackageHistory(ctx context.Context, name string, limit int) ([]ScoreRecord, error) {
	query := `
	SELECT run_id, package, timestamp, score, should_install, error, partials
	FROM package_scores
	WHERE package = ?
	ORDER BY timestamp DESC, id DESC
	`
	args := []any{name}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	return hdb.queryScores(ctx, query, args...)
}

// RunScores returns the package scores of one run in insertion order.
func (hdb *HistoryDB) RunScores(ctx context.Context, runID string) ([]ScoreRecord, error) {
	var exists int
	err := hdb.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs WHERE id = ?", runID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to look up run: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	return hdb.queryScores(ctx, `
	SELECT run_id, package, timestamp, score, should_install, error, partials
	FROM package_scores
	WHERE run_id = ?
	ORDER BY id
	`, runID)
}

func (hdb *HistoryDB) queryScores(ctx context.Context, query string, args ...any) ([]ScoreRecord, error) {
	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	defer rows.Close()

	var results []ScoreRecord
	for rows.Next() {
		var rec ScoreRecord
		var timestamp string
		var errMsg, partials sql.NullString

		if err := rows.Scan(&rec.RunID, &rec.Package, &timestamp, &rec.Score, &rec.ShouldInstall, &errMsg, &partials); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}

		rec.Timestamp = parseTimestamp(timestamp)
		rec.Error = errMsg.String
		rec.Partials = make(map[string]float64)
		if partials.Valid && partials.String != "" {
			if err := json.Unmarshal([]byte(partials.String), &rec.Partials); err != nil {
				rec.Partials = make(map[string]float64)
			}
		}
		results = append(results, rec)
	}

	return results, rows.Err()
}

// ListPackages returns every package that has a stored score.
func (hdb *HistoryDB) ListPackages(ctx context.Context) ([]string, error) {
	rows, err := hdb.db.QueryContext(ctx, `
	SELECT DISTINCT package FROM package_scores
	ORDER BY package
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan package: %w", err)
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

// ListRuns returns run metadata, newest first.
// A limit of zero or less returns every run.
func (hdb *HistoryDB) ListRuns(ctx context.Context, limit int) ([]RunMetadata, error) {
	query := `
	SELECT r.id, r.command, r.timestamp, r.band_low, r.band_good, r.strict, r.success,
		(SELECT COUNT(*) FROM package_scores s WHERE s.run_id = r.id)
	FROM runs r
	ORDER BY r.timestamp DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var timestamp string

		if err := rows.Scan(&meta.ID, &meta.Command, &timestamp, &meta.Band.Low, &meta.Band.Good,
			&meta.Strict, &meta.Success, &meta.Packages); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		meta.Timestamp = parseTimestamp(timestamp)
		results = append(results, meta)
	}

	return results, rows.Err()
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05", // SQLite default datetime format
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
