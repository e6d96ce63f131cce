package upload

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"mercator-hq/beaconlog/pkg/rotation"
)

// Ledger statuses.
const (
	StatusQueued    = "queued"
	StatusUploaded  = "uploaded"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
	StatusPruned    = "pruned"
)

// LedgerConfig contains configuration for the SQLite upload ledger.
type LedgerConfig struct {
	// Driver is the database/sql driver: "sqlite" (modernc, pure Go) or
	// "sqlite3" (mattn, cgo).
	// Default: "sqlite"
	Driver string

	// Path is the database file path.
	Path string

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// Entry is one row of the ledger.
type Entry struct {
	Path         string       `json:"path"`
	RunID        string       `json:"run_id"`
	Day          rotation.Day `json:"day"`
	Sequence     int          `json:"sequence"`
	Bytes        int64        `json:"bytes"`
	FinalizedAt  time.Time    `json:"finalized_at"`
	DispatchedAt time.Time    `json:"dispatched_at,omitzero"`
	Status       string       `json:"status"`
	Error        string       `json:"error,omitempty"`
}

// ListOptions filters Ledger.List.
type ListOptions struct {
	// Status restricts results to one status. Empty means all.
	Status string

	// Limit caps the number of rows. 0 means unlimited.
	Limit int
}

// Ledger records every hand-off attempt in SQLite.
type Ledger struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// OpenLedger opens (and creates if needed) the ledger database.
func OpenLedger(cfg LedgerConfig) (*Ledger, error) {
	if cfg.Driver == "" {
		cfg.Driver = "sqlite"
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.Path == "" {
		return nil, &LedgerError{Driver: cfg.Driver, Operation: "open", Cause: fmt.Errorf("path is required")}
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &LedgerError{Driver: cfg.Driver, Operation: "mkdir", Cause: err}
		}
	}

	db, err := sql.Open(cfg.Driver, cfg.Path)
	if err != nil {
		return nil, &LedgerError{Driver: cfg.Driver, Operation: "open", Cause: err}
	}

	// A single connection serializes writers; SQLite allows only one anyway
	db.SetMaxOpenConns(1)

	l := &Ledger{
		db:     db,
		driver: cfg.Driver,
		logger: slog.Default().With("component", "upload.ledger"),
	}

	if err := l.initialize(cfg.BusyTimeout); err != nil {
		db.Close()
		return nil, err
	}

	l.logger.Info("upload ledger opened",
		"driver", cfg.Driver,
		"path", cfg.Path,
	)

	return l, nil
}

func (l *Ledger) initialize(busyTimeout time.Duration) error {
	if _, err := l.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeout.Milliseconds())); err != nil {
		return &LedgerError{Driver: l.driver, Operation: "set_busy_timeout", Cause: err}
	}
	if _, err := l.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return &LedgerError{Driver: l.driver, Operation: "enable_wal", Cause: err}
	}
	if _, err := l.db.Exec(LedgerSchema); err != nil {
		return &LedgerError{Driver: l.driver, Operation: "create_schema", Cause: err}
	}
	_, err := l.db.Exec(
		"INSERT OR IGNORE INTO schema_version (version, applied_at) VALUES (?, ?)",
		LedgerSchemaVersion, time.Now().UnixMilli(),
	)
	if err != nil {
		return &LedgerError{Driver: l.driver, Operation: "schema_version", Cause: err}
	}
	return nil
}

// RecordQueued inserts (or resets) the row of a file accepted into the
// dispatch queue.
func (l *Ledger) RecordQueued(ctx context.Context, path string, meta Metadata) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO uploads (path, run_id, day, sequence, bytes, finalized_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			status = excluded.status,
			bytes = excluded.bytes,
			dispatched_at = NULL,
			error = NULL`,
		path, meta.RunID, meta.Day.String(), meta.Sequence, meta.Bytes,
		meta.FinalizedAt.UnixMilli(), StatusQueued,
	)
	if err != nil {
		return &LedgerError{Driver: l.driver, Operation: "insert", Cause: err}
	}
	return nil
}

// RecordResult stores the outcome of a hand-off. A nil cause records
// StatusUploaded, otherwise StatusFailed with the error text. Abandoned
// hand-offs pass StatusAbandoned explicitly through RecordStatus.
func (l *Ledger) RecordResult(ctx context.Context, path string, at time.Time, cause error) error {
	if cause == nil {
		return l.RecordStatus(ctx, path, at, StatusUploaded, "")
	}
	return l.RecordStatus(ctx, path, at, StatusFailed, cause.Error())
}

// RecordStatus sets the status of an existing row.
func (l *Ledger) RecordStatus(ctx context.Context, path string, at time.Time, status, errText string) error {
	var errValue any
	if errText != "" {
		errValue = errText
	}
	res, err := l.db.ExecContext(ctx,
		"UPDATE uploads SET status = ?, dispatched_at = ?, error = ? WHERE path = ?",
		status, at.UnixMilli(), errValue, path,
	)
	if err != nil {
		return &LedgerError{Driver: l.driver, Operation: "update", Cause: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &LedgerError{Driver: l.driver, Operation: "update", Cause: fmt.Errorf("no ledger row for %s", path)}
	}
	return nil
}

// Get returns the row for path, or sql.ErrNoRows wrapped in a LedgerError.
func (l *Ledger) Get(ctx context.Context, path string) (*Entry, error) {
	row := l.db.QueryRowContext(ctx, selectEntry+" WHERE path = ?", path)
	e, err := scanEntry(row)
	if err != nil {
		return nil, &LedgerError{Driver: l.driver, Operation: "query", Cause: err}
	}
	return e, nil
}

// List returns rows ordered by day, sequence and path.
func (l *Ledger) List(ctx context.Context, opts ListOptions) ([]*Entry, error) {
	query := selectEntry
	var args []any
	if opts.Status != "" {
		query += " WHERE status = ?"
		args = append(args, opts.Status)
	}
	query += " ORDER BY day, sequence, path"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}
	return l.query(ctx, query, args...)
}

// PrunableBefore returns uploaded rows whose day is before cutoff.
func (l *Ledger) PrunableBefore(ctx context.Context, cutoff rotation.Day) ([]*Entry, error) {
	return l.query(ctx,
		selectEntry+" WHERE status = ? AND day < ? ORDER BY day, sequence, path",
		StatusUploaded, cutoff.String(),
	)
}

// MarkPruned records that the local copy of path was removed.
func (l *Ledger) MarkPruned(ctx context.Context, path string) error {
	_, err := l.db.ExecContext(ctx, "UPDATE uploads SET status = ? WHERE path = ?", StatusPruned, path)
	if err != nil {
		return &LedgerError{Driver: l.driver, Operation: "update", Cause: err}
	}
	return nil
}

// Ping verifies the database answers.
func (l *Ledger) Ping(ctx context.Context) error {
	if err := l.db.PingContext(ctx); err != nil {
		return &LedgerError{Driver: l.driver, Operation: "ping", Cause: err}
	}
	return nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	if err := l.db.Close(); err != nil {
		return &LedgerError{Driver: l.driver, Operation: "close", Cause: err}
	}
	return nil
}

const selectEntry = `SELECT path, run_id, day, sequence, bytes, finalized_at, dispatched_at, status, error FROM uploads`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*Entry, error) {
	var (
		e            Entry
		day          string
		finalizedAt  int64
		dispatchedAt sql.NullInt64
		errText      sql.NullString
	)
	if err := row.Scan(&e.Path, &e.RunID, &day, &e.Sequence, &e.Bytes, &finalizedAt, &dispatchedAt, &e.Status, &errText); err != nil {
		return nil, err
	}
	parsed, err := time.Parse(time.DateOnly, day)
	if err != nil {
		return nil, fmt.Errorf("invalid day %q: %w", day, err)
	}
	e.Day = rotation.Day{Year: parsed.Year(), Month: parsed.Month(), Day: parsed.Day()}
	e.FinalizedAt = time.UnixMilli(finalizedAt)
	if dispatchedAt.Valid {
		e.DispatchedAt = time.UnixMilli(dispatchedAt.Int64)
	}
	e.Error = errText.String
	return &e, nil
}

func (l *Ledger) query(ctx context.Context, query string, args ...any) ([]*Entry, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &LedgerError{Driver: l.driver, Operation: "query", Cause: err}
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, &LedgerError{Driver: l.driver, Operation: "scan", Cause: err}
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, &LedgerError{Driver: l.driver, Operation: "query", Cause: err}
	}
	return entries, nil
}
