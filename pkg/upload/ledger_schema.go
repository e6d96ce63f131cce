package upload

// LedgerSchemaVersion is the current ledger schema version.
const LedgerSchemaVersion = 1

// LedgerSchema contains the SQL statements that create the upload ledger.
// Timestamps are stored as Unix milliseconds.
const LedgerSchema = `
CREATE TABLE IF NOT EXISTS uploads (
    path TEXT PRIMARY KEY,
    run_id TEXT NOT NULL,
    day TEXT NOT NULL,
    sequence INTEGER NOT NULL,
    bytes INTEGER NOT NULL,
    finalized_at INTEGER NOT NULL,
    dispatched_at INTEGER,
    status TEXT NOT NULL,
    error TEXT
);

CREATE INDEX IF NOT EXISTS idx_uploads_status ON uploads(status);
CREATE INDEX IF NOT EXISTS idx_uploads_day ON uploads(day);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);
`
