// Package pipeline defines shared plumbing consumed by the corpus stages.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, stage names, and clip keys
//     for logging and failure reporting.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the categories the stages act on (abort vs report-and-continue).
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package pipeline
