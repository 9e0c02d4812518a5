// Package clips implements the second pipeline stage: cutting raw audio
// files into the time ranges the spec files reference. Raw audio is matched
// by the spec's video id; the clipped output inherits the raw file's
// extension and is never overwritten, so re-running the stage only cuts
// clips that are still missing.
package clips
