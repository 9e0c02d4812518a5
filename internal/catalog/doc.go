// Package catalog persists a ledger of pipeline runs in SQLite. Each stage
// invocation records when it started, when it finished, its item counts, and
// any per-item failures. The ledger is advisory: stages consult their inputs
// and outputs on disk, never the catalog, so deleting the database only
// loses history.
package catalog
