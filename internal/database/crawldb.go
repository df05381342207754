package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/prefixscan/internal/model"
)

// DBFileName is the name of the database file inside the data directory.
const DBFileName = "prefixscan.db"

var (
	// ErrRunNotFound is returned when no run matches an ID.
	ErrRunNotFound = errors.New("run not found")

	// ErrAmbiguousRunID is returned when an ID prefix matches several runs.
	ErrAmbiguousRunID = errors.New("run ID prefix is ambiguous")
)

// timeLayout stores timestamps in UTC with a fixed width so they sort as text.
const timeLayout = "2006-01-02 15:04:05.000000"

// CrawlDB stores the history of crawl runs.
type CrawlDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (run a crawl first)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Path returns the database file path.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

func (cdb *CrawlDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		target TEXT NOT NULL,
		base_url TEXT NOT NULL,
		endpoint TEXT NOT NULL,
		param TEXT NOT NULL,
		strategy TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		elapsed_ms INTEGER NOT NULL DEFAULT 0,
		requests INTEGER NOT NULL DEFAULT 0,
		rate_limits INTEGER NOT NULL DEFAULT 0,
		transport_errors INTEGER NOT NULL DEFAULT 0,
		final_delay_ms INTEGER NOT NULL DEFAULT 0,
		final_backoff_ms INTEGER NOT NULL DEFAULT 0,
		probe_shape TEXT,
		term_count INTEGER NOT NULL DEFAULT 0,
		prefixes_visited INTEGER NOT NULL DEFAULT 0,
		truncated INTEGER NOT NULL DEFAULT 0,
		truncated_reason TEXT,
		error TEXT,
		digest TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_target ON runs(target, started_at);

	-- Terms of each run in discovery order
	CREATE TABLE IF NOT EXISTS terms (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		term TEXT NOT NULL,
		PRIMARY KEY (run_id, position)
	);

	-- Prefixes each run gave up on
	CREATE TABLE IF NOT EXISTS failures (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		prefix TEXT NOT NULL,
		attempts INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_failures_run ON failures(run_id);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun stores run with its terms and failures in one transaction.
// Saving the same run ID again replaces the earlier copy.
func (cdb *CrawlDB) SaveRun(ctx context.Context, run *model.Run) (err error) {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, q := range []string{
		"DELETE FROM terms WHERE run_id = ?",
		"DELETE FROM failures WHERE run_id = ?",
		"DELETE FROM runs WHERE id = ?",
	} {
		if _, err = tx.ExecContext(ctx, q, run.ID); err != nil {
			return fmt.Errorf("failed to replace run: %w", err)
		}
	}

	query := `
	INSERT INTO runs (
		id, target, base_url, endpoint, param, strategy, started_at, finished_at,
		elapsed_ms, requests, rate_limits, transport_errors, final_delay_ms, final_backoff_ms,
		probe_shape, term_count, prefixes_visited, truncated, truncated_reason, error, digest
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		run.ID,
		run.Target.Name,
		run.Target.BaseURL,
		run.Target.Endpoint,
		run.Target.Param,
		run.Strategy.String(),
		formatTimestamp(run.StartedAt),
		formatTimestamp(run.FinishedAt),
		run.Elapsed.Milliseconds(),
		run.Requests,
		run.RateLimits,
		run.TransportErrors,
		run.FinalDelay.Milliseconds(),
		run.FinalBackoff.Milliseconds(),
		run.ProbeShape,
		len(run.Terms),
		run.PrefixesVisited,
		run.Truncated,
		run.TruncatedReason,
		run.ErrorMessage,
		run.Digest,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	termStmt, err := tx.PrepareContext(ctx, "INSERT INTO terms (run_id, position, term) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare term insert: %w", err)
	}
	defer termStmt.Close()

	for i, term := range run.Terms {
		if _, err = termStmt.ExecContext(ctx, run.ID, i, term); err != nil {
			return fmt.Errorf("failed to insert term: %w", err)
		}
	}

	for _, f := range run.Failures {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO failures (run_id, prefix, attempts, outcome, message) VALUES (?, ?, ?, ?, ?)",
			run.ID, f.Prefix, f.Attempts, f.Outcome, f.Message,
		)
		if err != nil {
			return fmt.Errorf("failed to insert failure: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// RunRecord is the stored metadata of a run, without its terms.
type RunRecord struct {
	ID              string
	Target          string
	Strategy        string
	StartedAt       time.Time
	Elapsed         time.Duration
	Requests        int64
	Terms           int
	Truncated       bool
	TruncatedReason string
	Error           string
	Digest          string
}

// Status classifies the record as "failed", "truncated" or "complete".
func (r RunRecord) Status() string {
	switch {
	case r.Error != "":
		return "failed"
	case r.Truncated:
		return "truncated"
	default:
		return "complete"
	}
}

// ListRuns returns run metadata, newest first. An empty target lists every
// target; limit <= 0 means no limit.
func (cdb *CrawlDB) ListRuns(ctx context.Context, target string, limit int) ([]RunRecord, error) {
	query := `
	SELECT id, target, strategy, started_at, elapsed_ms, requests, term_count,
		truncated, COALESCE(truncated_reason, ''), COALESCE(error, ''), COALESCE(digest, '')
	FROM runs
	WHERE 1=1
	`
	args := make([]any, 0)
	if target != "" {
		query += " AND target = ?"
		args = append(args, target)
	}
	query += " ORDER BY started_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var (
			r         RunRecord
			startedAt string
			elapsedMS int64
		)
		if err := rows.Scan(
			&r.ID,
			&r.Target,
			&r.Strategy,
			&startedAt,
			&elapsedMS,
			&r.Requests,
			&r.Terms,
			&r.Truncated,
			&r.TruncatedReason,
			&r.Error,
			&r.Digest,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt = parseTimestamp(startedAt)
		r.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		records = append(records, r)
	}
	return records, rows.Err()
}

// ListTargets returns the names of all targets with saved runs.
func (cdb *CrawlDB) ListTargets(ctx context.Context) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, "SELECT DISTINCT target FROM runs ORDER BY target")
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		targets = append(targets, target)
	}
	return targets, rows.Err()
}

// ResolveRunID expands a unique ID prefix to the full run ID.
func (cdb *CrawlDB) ResolveRunID(ctx context.Context, prefix string) (string, error) {
	if prefix == "" {
		return "", ErrRunNotFound
	}

	rows, err := cdb.db.QueryContext(ctx, "SELECT id FROM runs WHERE substr(id, 1, ?) = ? LIMIT 2", len(prefix), prefix)
	if err != nil {
		return "", fmt.Errorf("failed to resolve run ID: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("failed to scan run ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	switch len(ids) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, prefix)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousRunID, prefix)
	}
}

// GetRun loads a full run, terms and failures included.
func (cdb *CrawlDB) GetRun(ctx context.Context, id string) (*model.Run, error) {
	query := `
	SELECT id, target, base_url, endpoint, param, strategy, started_at, COALESCE(finished_at, ''),
		elapsed_ms, requests, rate_limits, transport_errors, final_delay_ms, final_backoff_ms,
		COALESCE(probe_shape, ''), prefixes_visited, truncated, COALESCE(truncated_reason, ''),
		COALESCE(error, ''), COALESCE(digest, '')
	FROM runs
	WHERE id = ?
	`

	var (
		run                        model.Run
		strategy                   string
		startedAt, finishedAt      string
		elapsedMS, delayMS, backMS int64
	)
	err := cdb.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.Target.Name,
		&run.Target.BaseURL,
		&run.Target.Endpoint,
		&run.Target.Param,
		&strategy,
		&startedAt,
		&finishedAt,
		&elapsedMS,
		&run.Requests,
		&run.RateLimits,
		&run.TransportErrors,
		&delayMS,
		&backMS,
		&run.ProbeShape,
		&run.PrefixesVisited,
		&run.Truncated,
		&run.TruncatedReason,
		&run.ErrorMessage,
		&run.Digest,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.Strategy, err = model.ParseStrategy(strategy)
	if err != nil {
		return nil, fmt.Errorf("failed to parse run: %w", err)
	}
	run.StartedAt = parseTimestamp(startedAt)
	run.FinishedAt = parseTimestamp(finishedAt)
	run.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	run.FinalDelay = time.Duration(delayMS) * time.Millisecond
	run.FinalBackoff = time.Duration(backMS) * time.Millisecond

	if run.Terms, err = cdb.GetRunTerms(ctx, id); err != nil {
		return nil, err
	}
	if run.Failures, err = cdb.getFailures(ctx, id); err != nil {
		return nil, err
	}
	return &run, nil
}

// GetRunTerms returns the terms of a run in discovery order.
func (cdb *CrawlDB) GetRunTerms(ctx context.Context, id string) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, "SELECT term FROM terms WHERE run_id = ? ORDER BY position", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get terms: %w", err)
	}
	defer rows.Close()

	terms := make([]string, 0)
	for rows.Next() {
		var term string
		if err := rows.Scan(&term); err != nil {
			return nil, fmt.Errorf("failed to scan term: %w", err)
		}
		terms = append(terms, term)
	}
	return terms, rows.Err()
}

func (cdb *CrawlDB) getFailures(ctx context.Context, id string) ([]model.PrefixFailure, error) {
	rows, err := cdb.db.QueryContext(ctx,
		"SELECT prefix, attempts, outcome, COALESCE(message, '') FROM failures WHERE run_id = ? ORDER BY rowid", id)
	if err != nil {
		return nil, fmt.Errorf("failed to get failures: %w", err)
	}
	defer rows.Close()

	var failures []model.PrefixFailure
	for rows.Next() {
		var f model.PrefixFailure
		if err := rows.Scan(&f.Prefix, &f.Attempts, &f.Outcome, &f.Message); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// LatestRuns loads the n most recent successful runs of target, newest
// first. Failed runs are skipped because they carry no vocabulary.
func (cdb *CrawlDB) LatestRuns(ctx context.Context, target string, n int) ([]*model.Run, error) {
	rows, err := cdb.db.QueryContext(ctx,
		"SELECT id FROM runs WHERE target = ? AND COALESCE(error, '') = '' ORDER BY started_at DESC LIMIT ?",
		target, n)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest runs: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan run ID: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	runs := make([]*model.Run, 0, len(ids))
	for _, id := range ids {
		run, err := cdb.GetRun(ctx, id)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// DeleteRun removes a run with its terms and failures.
func (cdb *CrawlDB) DeleteRun(ctx context.Context, id string) error {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, q := range []string{
		"DELETE FROM terms WHERE run_id = ?",
		"DELETE FROM failures WHERE run_id = ?",
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("failed to delete run: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return tx.Commit()
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timeLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	time.RFC3339Nano,
}

// parseTimestamp tries each known format and returns the zero time when
// none matches.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
