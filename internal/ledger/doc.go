// Package ledger records batch runs and the per-file artifacts they produce
// in a local SQLite database.
//
// Every conversion, solve and scene build opens a run, records one artifact
// per input it handled, and finishes the run with aggregate counts. The
// solver driver consults LastSuccess to skip inputs whose output is already
// on disk from an earlier successful run. Artifacts carry the input's size
// and modification time so a regenerated input is solved again.
//
// The database lives at <state_dir>/meshbatch.db. Schema changes bump
// schemaVersion in schema.go; an older database is rejected with
// ErrSchemaMismatch and must be removed by hand.
package ledger
