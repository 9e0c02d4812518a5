package dataset

import (
	"tabset/internal/tabs"
	"tabset/internal/tfrecord"
)

// buildExample converts a spec plus its decoded samples into the record
// layout consumed by training. Scalar annotations ride in the context map
// and the audio rides in a single-feature list. Melody and harmony lists
// are reserved for transcription labels and stay empty here.
func buildExample(d tabs.Descriptor, samples []float32) *tfrecord.SequenceExample {
	return &tfrecord.SequenceExample{
		Context: map[string]tfrecord.Feature{
			"data_source":       tfrecord.Bytes([]byte(d.DataSource)),
			"tonic":             tfrecord.Ints([]int64{int64(d.Key.Tonic)}),
			"mode":              tfrecord.Ints([]int64{int64(d.Key.Mode)}),
			"beats":             tfrecord.Ints([]int64{int64(d.Meter.Beats)}),
			"beats_per_measure": tfrecord.Ints([]int64{int64(d.Meter.BeatsPerMeasure)}),
		},
		FeatureLists: map[string][]tfrecord.Feature{
			"audio":   {tfrecord.Floats(samples)},
			"melody":  {tfrecord.Ints(nil)},
			"harmony": {tfrecord.Ints(nil)},
		},
	}
}
