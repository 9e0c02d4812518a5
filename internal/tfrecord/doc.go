// Package tfrecord implements the corpus container format: a stream of
// self-delimiting records, each a serialized SequenceExample message.
//
// The framing is the TFRecord layout: a little-endian length, a masked
// CRC32C of the length bytes, the payload, and a masked CRC32C of the
// payload. Records are appended to a single file and read back sequentially;
// readers verify both checksums.
//
// SequenceExample encoding is hand-assembled with protowire against the
// tensorflow.SequenceExample schema (context features plus feature lists),
// with map entries emitted in sorted key order so serialization is
// deterministic.
package tfrecord
