// Package history keeps a SQLite ledger of conversion outcomes.
//
// Every routed job, converted, skipped because the target already existed,
// or failed, becomes one row stamped with the run id and runner mode taken
// from the context. The CLI's history command reads the ledger back; runs
// never consult it to decide what to convert, the filesystem stays the
// source of truth for idempotence.
package history
