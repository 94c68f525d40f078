// Package repositories implements SQLite persistence for the history store.
//
// [HistoryRepository] owns the lifecycle of [models.HistoryRecord] rows.
// Save uses create-or-update semantics keyed by job id, so the completion
// path can run more than once without ever duplicating a record.
//
// Sequence numbers provide stable most-recent-first ordering independent of
// creation timestamps. The [NextSequence] function atomically increments a
// per-table sequence counter in a dedicated sequence table.
package repositories
