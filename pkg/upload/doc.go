// Package upload hands finalized log files to durable storage.
//
// A Dispatcher owns a bounded queue and a single worker goroutine. The
// writer's finalize callback calls Dispatch, which never blocks: the file
// is either queued (and becomes Dispatched) or rejected and left on local
// storage. The worker passes each file to a Sink and records the outcome
// in an optional SQLite Ledger. Failed hand-offs are not retried.
//
// At shutdown, Close either drains the queue within a deadline or abandons
// what is left, depending on Config.DrainOnClose. Abandoned files are
// counted and recorded, never deleted.
//
// The Pruner deletes local copies of files the ledger records as uploaded
// once they fall outside the retention window, either on demand or on a
// cron schedule.
//
// Two database/sql drivers are supported: "sqlite" (modernc.org/sqlite,
// pure Go) and "sqlite3" (github.com/mattn/go-sqlite3, requires cgo).
package upload
