package dataset_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tabset/internal/clipkey"
	"tabset/internal/dataset"
	"tabset/internal/fileutil"
	"tabset/internal/pipeline"
	"tabset/internal/stagerun"
	"tabset/internal/tabs"
	"tabset/internal/testsupport"
	"tabset/internal/tfrecord"
)

// stubProber reports the duration encoded in the clip's own filename, so a
// well-formed pair probes clean by default. A fixed value overrides that.
type stubProber struct {
	fixed  float64
	failOn string
}

func (s stubProber) ProbeDuration(_ context.Context, path string) (float64, error) {
	base := fileutil.Base(filepath.Base(path))
	if s.failOn != "" && strings.Contains(base, s.failOn) {
		return 0, errors.New("probe refused")
	}
	if s.fixed != 0 {
		return s.fixed, nil
	}
	key, err := clipkey.Parse(base)
	if err != nil {
		return 0, err
	}
	return key.End - key.Start, nil
}

type stubDecoder struct {
	samples []float32
	rate    int
	failOn  string
}

func (s stubDecoder) Decode(_ context.Context, path string, rate int) ([]float32, int, error) {
	if s.failOn != "" && strings.Contains(path, s.failOn) {
		return nil, 0, errors.New("decode refused")
	}
	samples := s.samples
	if samples == nil {
		samples = []float32{0.25, -0.5, 1}
	}
	if s.rate != 0 {
		rate = s.rate
	}
	return samples, rate, nil
}

type fixture struct {
	specsDir   string
	clippedDir string
	outputPath string
	progress   *bytes.Buffer
	prober     stubProber
	decoder    stubDecoder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	base := t.TempDir()
	f := &fixture{
		specsDir:   filepath.Join(base, "specs"),
		clippedDir: filepath.Join(base, "clips"),
		outputPath: filepath.Join(base, "training.tfrecord"),
		progress:   &bytes.Buffer{},
	}
	for _, dir := range []string{f.specsDir, f.clippedDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	return f
}

func (f *fixture) assemble(t *testing.T) (stagerun.Summary, error) {
	t.Helper()
	asm := dataset.NewWithDependencies(nil, f.prober, f.decoder, 44100, f.progress)
	return asm.Assemble(context.Background(), nil, f.specsDir, f.clippedDir, f.outputPath)
}

func descriptor(id string, start, end float64) tabs.Descriptor {
	return tabs.Descriptor{
		DataSource:  "hooktheory",
		AudioSource: tabs.AudioSource{YoutubeID: id, StartTime: start, EndTime: end},
		Key:         tabs.KeySignature{Tonic: 2, Mode: 0},
		Meter:       tabs.Meter{Beats: 16, BeatsPerMeasure: 4},
	}
}

func writePair(t *testing.T, f *fixture, d tabs.Descriptor) string {
	t.Helper()
	testsupport.WriteSpec(t, f.specsDir, d)
	name := d.ClipKey().Filename(".wav")
	testsupport.TouchFiles(t, f.clippedDir, name)
	return d.ClipKey().Encode()
}

func readRecords(t *testing.T, path string) []*tfrecord.SequenceExample {
	t.Helper()

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open container: %v", err)
	}
	defer file.Close()

	var examples []*tfrecord.SequenceExample
	reader := tfrecord.NewReader(file)
	for {
		payload, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return examples
		}
		if err != nil {
			t.Fatalf("read record: %v", err)
		}
		example, err := tfrecord.Unmarshal(payload)
		if err != nil {
			t.Fatalf("unmarshal record: %v", err)
		}
		examples = append(examples, example)
	}
}

func TestAssembleJoinsMatchingPairs(t *testing.T) {
	f := newFixture(t)
	base := writePair(t, f, descriptor("abc123", 10.0, 15.5))

	summary, err := f.assemble(t)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if summary.Written != 1 || summary.Scanned != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if got := f.progress.String(); got != base+"\n" {
		t.Fatalf("progress = %q, want %q", got, base+"\n")
	}

	examples := readRecords(t, f.outputPath)
	if len(examples) != 1 {
		t.Fatalf("got %d records, want 1", len(examples))
	}
	e := examples[0]
	if got := e.Context["data_source"].BytesValues(); len(got) != 1 || string(got[0]) != "hooktheory" {
		t.Errorf("data_source = %v", got)
	}
	if got := e.Context["tonic"].Int64Values(); len(got) != 1 || got[0] != 2 {
		t.Errorf("tonic = %v", got)
	}
	if got := e.Context["mode"].Int64Values(); len(got) != 1 || got[0] != 0 {
		t.Errorf("mode = %v", got)
	}
	if got := e.Context["beats"].Int64Values(); len(got) != 1 || got[0] != 16 {
		t.Errorf("beats = %v", got)
	}
	if got := e.Context["beats_per_measure"].Int64Values(); len(got) != 1 || got[0] != 4 {
		t.Errorf("beats_per_measure = %v", got)
	}
	audio := e.FeatureLists["audio"]
	if len(audio) != 1 {
		t.Fatalf("audio features = %d, want 1", len(audio))
	}
	samples := audio[0].FloatValues()
	want := []float32{0.25, -0.5, 1}
	if len(samples) != len(want) {
		t.Fatalf("samples = %v, want %v", samples, want)
	}
	for i := range want {
		if samples[i] != want[i] {
			t.Fatalf("samples = %v, want %v", samples, want)
		}
	}
	for _, name := range []string{"melody", "harmony"} {
		features := e.FeatureLists[name]
		if len(features) != 1 {
			t.Fatalf("%s features = %d, want 1", name, len(features))
		}
		if got := features[0].Int64Values(); len(got) != 0 {
			t.Errorf("%s = %v, want empty", name, got)
		}
	}
}

func TestAssembleDropsUnjoinedEntries(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteSpec(t, f.specsDir, descriptor("onlyspec", 0.0, 4.0))
	testsupport.TouchFiles(t, f.clippedDir, "onlyaudio,1.00,3.00.wav")

	summary, err := f.assemble(t)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if summary.Skipped != 2 || summary.Written != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	progress := f.progress.String()
	for _, name := range []string{"onlyspec,0.00,4.00", "onlyaudio,1.00,3.00"} {
		if !strings.Contains(progress, name+"\n") {
			t.Errorf("progress missing %q: %q", name, progress)
		}
	}
	if examples := readRecords(t, f.outputPath); len(examples) != 0 {
		t.Fatalf("got %d records, want 0", len(examples))
	}
}

func TestAssembleEmptyInputsProducesEmptyContainer(t *testing.T) {
	f := newFixture(t)

	summary, err := f.assemble(t)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if summary != (stagerun.Summary{}) {
		t.Fatalf("unexpected summary %+v", summary)
	}

	info, err := os.Stat(f.outputPath)
	if err != nil {
		t.Fatalf("container missing: %v", err)
	}
	if info.Size() != 0 {
		t.Fatalf("container size = %d, want 0", info.Size())
	}
}

func TestAssembleWritesRecordsInSortedOrder(t *testing.T) {
	f := newFixture(t)
	db := descriptor("bbb222", 0.0, 2.0)
	db.DataSource = "src-b"
	da := descriptor("aaa111", 0.0, 2.0)
	da.DataSource = "src-a"
	writePair(t, f, db)
	writePair(t, f, da)

	if _, err := f.assemble(t); err != nil {
		t.Fatalf("assemble: %v", err)
	}

	examples := readRecords(t, f.outputPath)
	if len(examples) != 2 {
		t.Fatalf("got %d records, want 2", len(examples))
	}
	first := string(examples[0].Context["data_source"].BytesValues()[0])
	second := string(examples[1].Context["data_source"].BytesValues()[0])
	if first != "src-a" || second != "src-b" {
		t.Fatalf("record order %q, %q", first, second)
	}
}

func TestAssembleWarnsOnDurationMismatch(t *testing.T) {
	f := newFixture(t)
	f.prober = stubProber{fixed: 99}
	writePair(t, f, descriptor("abc123", 10.0, 15.5))

	summary, err := f.assemble(t)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if summary.Written != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	progress := f.progress.String()
	if !strings.Contains(progress, "Warning: sample duration is 99 but spec says 5.5") {
		t.Fatalf("missing duration warning: %q", progress)
	}
	if examples := readRecords(t, f.outputPath); len(examples) != 1 {
		t.Fatalf("got %d records, want 1", len(examples))
	}
}

func TestAssembleWarnsOnSampleRateMismatch(t *testing.T) {
	f := newFixture(t)
	f.decoder = stubDecoder{rate: 22050}
	writePair(t, f, descriptor("abc123", 10.0, 15.5))

	summary, err := f.assemble(t)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if summary.Written != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if !strings.Contains(f.progress.String(), "Warning: sampling rate is 22050") {
		t.Fatalf("missing rate warning: %q", f.progress.String())
	}
	if examples := readRecords(t, f.outputPath); len(examples) != 1 {
		t.Fatalf("got %d records, want 1", len(examples))
	}
}

func TestAssembleSkipsEntryOnProbeFailure(t *testing.T) {
	f := newFixture(t)
	f.prober = stubProber{failOn: "badprobe"}
	writePair(t, f, descriptor("badprobe", 0.0, 2.0))
	writePair(t, f, descriptor("good", 0.0, 2.0))

	summary, err := f.assemble(t)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if summary.Failed != 1 || summary.Written != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if examples := readRecords(t, f.outputPath); len(examples) != 1 {
		t.Fatalf("got %d records, want 1", len(examples))
	}
}

func TestAssembleSkipsEntryOnDecodeFailure(t *testing.T) {
	f := newFixture(t)
	f.decoder = stubDecoder{failOn: "baddecode"}
	writePair(t, f, descriptor("baddecode", 0.0, 2.0))
	writePair(t, f, descriptor("good", 0.0, 2.0))

	summary, err := f.assemble(t)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if summary.Failed != 1 || summary.Written != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if examples := readRecords(t, f.outputPath); len(examples) != 1 {
		t.Fatalf("got %d records, want 1", len(examples))
	}
}

func TestAssembleMalformedSpecAborts(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteFile(t, filepath.Join(f.specsDir, "bad.json"), []byte("{not json"))
	testsupport.TouchFiles(t, f.clippedDir, "bad.wav")

	_, err := f.assemble(t)
	if !errors.Is(err, pipeline.ErrMalformedSpec) {
		t.Fatalf("err = %v, want ErrMalformedSpec", err)
	}
}

func TestAssembleMissingSpecsDirFails(t *testing.T) {
	f := newFixture(t)

	asm := dataset.NewWithDependencies(nil, f.prober, f.decoder, 44100, f.progress)
	_, err := asm.Assemble(context.Background(), nil, filepath.Join(f.specsDir, "missing"), f.clippedDir, f.outputPath)
	if !errors.Is(err, pipeline.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
