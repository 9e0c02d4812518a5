// Package stagerun executes one pipeline stage as a single-instance,
// ledger-recorded run. It assigns a run identifier, takes a per-stage file
// lock so concurrent invocations fail fast, records the run in the catalog,
// and logs start and completion with the stage's item counts.
package stagerun
