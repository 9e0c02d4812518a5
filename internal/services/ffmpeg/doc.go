// Package ffmpeg wraps the ffmpeg CLI for the two operations the pipeline
// needs: cutting clips out of raw audio and decoding clips to PCM samples.
//
// The Client never overwrites existing output (clips are cut with -n) and
// surfaces process exit codes so callers can report per-clip failures without
// aborting a run. Command execution sits behind the Executor interface so
// tests can fake the binary.
package ffmpeg
