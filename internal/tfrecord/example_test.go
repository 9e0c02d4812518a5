package tfrecord_test

import (
	"bytes"
	"testing"

	"tabset/internal/tfrecord"
)

func buildExample() *tfrecord.SequenceExample {
	return &tfrecord.SequenceExample{
		Context: map[string]tfrecord.Feature{
			"data_source":       tfrecord.Bytes([]byte("abc123,10.00,15.50")),
			"tonic":             tfrecord.Ints([]int64{2}),
			"mode":              tfrecord.Ints([]int64{0}),
			"beats":             tfrecord.Ints([]int64{4}),
			"beats_per_measure": tfrecord.Ints([]int64{4}),
		},
		FeatureLists: map[string][]tfrecord.Feature{
			"audio":   {tfrecord.Floats([]float32{0.25, -0.5, 1})},
			"melody":  {tfrecord.Ints(nil)},
			"harmony": {tfrecord.Ints(nil)},
		},
	}
}

func TestSequenceExampleRoundTrip(t *testing.T) {
	data := buildExample().Marshal()
	if len(data) == 0 {
		t.Fatal("Marshal() returned no bytes")
	}

	got, err := tfrecord.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if len(got.Context) != 5 {
		t.Fatalf("context has %d features, want 5", len(got.Context))
	}
	if source := got.Context["data_source"].BytesValues(); len(source) != 1 || string(source[0]) != "abc123,10.00,15.50" {
		t.Errorf("data_source = %q", source)
	}
	ints := map[string]int64{"tonic": 2, "mode": 0, "beats": 4, "beats_per_measure": 4}
	for name, want := range ints {
		values := got.Context[name].Int64Values()
		if len(values) != 1 || values[0] != want {
			t.Errorf("%s = %v, want [%d]", name, values, want)
		}
	}

	audio := got.FeatureLists["audio"]
	if len(audio) != 1 {
		t.Fatalf("audio list has %d features, want 1", len(audio))
	}
	wantAudio := []float32{0.25, -0.5, 1}
	samples := audio[0].FloatValues()
	if len(samples) != len(wantAudio) {
		t.Fatalf("audio has %d samples, want %d", len(samples), len(wantAudio))
	}
	for i, want := range wantAudio {
		if samples[i] != want {
			t.Errorf("audio[%d] = %v, want %v", i, samples[i], want)
		}
	}

	for _, name := range []string{"melody", "harmony"} {
		list, ok := got.FeatureLists[name]
		if !ok {
			t.Fatalf("%s feature list missing", name)
		}
		if len(list) != 1 {
			t.Fatalf("%s list has %d features, want 1", name, len(list))
		}
		if values := list[0].Int64Values(); len(values) != 0 {
			t.Errorf("%s = %v, want empty", name, values)
		}
	}
}

func TestMarshalIsDeterministic(t *testing.T) {
	first := buildExample().Marshal()
	second := buildExample().Marshal()
	if !bytes.Equal(first, second) {
		t.Fatal("equal examples serialized to different bytes")
	}
}

func TestMarshalEmptyInt64ListKeepsValueType(t *testing.T) {
	ex := &tfrecord.SequenceExample{
		FeatureLists: map[string][]tfrecord.Feature{
			"melody": {tfrecord.Ints(nil)},
		},
	}
	data := ex.Marshal()

	// An empty int64 list must still serialize its list field (number 3,
	// length zero) so readers can tell which oneof branch was set.
	if !bytes.Contains(data, []byte{0x1a, 0x00}) {
		t.Fatalf("serialized bytes %x lack an empty int64_list field", data)
	}

	got, err := tfrecord.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	list := got.FeatureLists["melody"]
	if len(list) != 1 {
		t.Fatalf("melody list has %d features, want 1", len(list))
	}
	if values := list[0].Int64Values(); len(values) != 0 {
		t.Fatalf("melody = %v, want empty", values)
	}
}

func TestMarshalPacksFloatValues(t *testing.T) {
	ex := &tfrecord.SequenceExample{
		FeatureLists: map[string][]tfrecord.Feature{
			"audio": {tfrecord.Floats([]float32{1.5})},
		},
	}
	data := ex.Marshal()

	// float_list field 2 wrapping a packed value field: 1.5 is 0x3fc00000.
	want := []byte{0x12, 0x06, 0x0a, 0x04, 0x00, 0x00, 0xc0, 0x3f}
	if !bytes.Contains(data, want) {
		t.Fatalf("serialized bytes %x lack packed float list %x", data, want)
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	if _, err := tfrecord.Unmarshal([]byte{0xff, 0xff, 0xff}); err == nil {
		t.Fatal("Unmarshal() accepted malformed input")
	}
}
