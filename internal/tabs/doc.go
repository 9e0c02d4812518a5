// Package tabs models the clip annotations mined from chord-chart documents
// and the parser boundary that produces them.
//
// A Descriptor carries everything a training record needs besides the audio
// itself: the source recording reference and time range, key and meter, and
// the symbolic melody/harmony payloads (carried verbatim, never interpreted
// by the pipeline). Parsers stream descriptors out of source documents one at
// a time; the production implementation reads JSON documents.
package tabs
