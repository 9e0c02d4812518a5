// Package dataset implements the final pipeline stage: joining spec files
// with their clipped audio and serializing one training record per matched
// pair into a single TFRecord container. The join is a full outer join on
// base filename; entries present on only one side are dropped. Audio is
// decoded to mono float samples at the canonical corpus rate, and duration
// or rate disagreements are warnings, never aborts.
package dataset
