// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// This package has no tabset-specific dependencies and could be extracted
// as a standalone library.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual stream properties
//   - Format: container-level metadata
//
// Primary entry point:
//   - Inspect: executes ffprobe and returns parsed Result
//
// Helper methods on Result provide convenient access to the container
// duration and the audio stream's sample rate and channel count.
package ffprobe
