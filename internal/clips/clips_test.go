package clips_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tabset/internal/clips"
	"tabset/internal/pipeline"
	"tabset/internal/tabs"
	"tabset/internal/testsupport"
)

type cutCall struct {
	src      string
	start    float64
	duration float64
	dest     string
}

type stubCutter struct {
	calls    []cutCall
	failDest string
}

func (s *stubCutter) Cut(_ context.Context, src string, start, duration float64, dest string) error {
	s.calls = append(s.calls, cutCall{src: src, start: start, duration: duration, dest: dest})
	if s.failDest != "" && strings.Contains(dest, s.failDest) {
		return errors.New("cut refused")
	}
	return os.WriteFile(dest, []byte("clip"), 0o644)
}

type fixture struct {
	specsDir  string
	rawDir    string
	outputDir string
	progress  *bytes.Buffer
	cutter    *stubCutter
	extractor *clips.Extractor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	base := t.TempDir()
	f := &fixture{
		specsDir:  filepath.Join(base, "specs"),
		rawDir:    filepath.Join(base, "raw"),
		outputDir: filepath.Join(base, "clips"),
		progress:  &bytes.Buffer{},
		cutter:    &stubCutter{},
	}
	for _, dir := range []string{f.specsDir, f.rawDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	f.extractor = clips.NewWithDependencies(nil, f.cutter, f.progress)
	return f
}

func descriptor(id string, start, end float64) tabs.Descriptor {
	return tabs.Descriptor{
		DataSource:  "hooktheory",
		AudioSource: tabs.AudioSource{YoutubeID: id, StartTime: start, EndTime: end},
		Key:         tabs.KeySignature{Tonic: 2, Mode: 0},
		Meter:       tabs.Meter{Beats: 16, BeatsPerMeasure: 4},
	}
}

func TestExtractCutsClip(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteSpec(t, f.specsDir, descriptor("abc123", 10.0, 15.5))
	testsupport.TouchFiles(t, f.rawDir, "abc123.wav")

	summary, err := f.extractor.Extract(context.Background(), nil, f.specsDir, f.rawDir, f.outputDir)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if summary.Scanned != 1 || summary.Written != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(f.cutter.calls) != 1 {
		t.Fatalf("cutter invoked %d times, want 1", len(f.cutter.calls))
	}

	call := f.cutter.calls[0]
	if call.src != filepath.Join(f.rawDir, "abc123.wav") {
		t.Errorf("cut source = %q", call.src)
	}
	if call.start != 10.0 || call.duration != 5.5 {
		t.Errorf("cut range = (%v, %v), want (10, 5.5)", call.start, call.duration)
	}
	wantDest := filepath.Join(f.outputDir, "abc123,10.00,15.50.wav")
	if call.dest != wantDest {
		t.Errorf("cut dest = %q, want %q", call.dest, wantDest)
	}
	if got := f.progress.String(); got != wantDest+"\n" {
		t.Errorf("progress output = %q", got)
	}
}

func TestExtractReportsWhenNoSpecsExist(t *testing.T) {
	f := newFixture(t)

	summary, err := f.extractor.Extract(context.Background(), nil, f.specsDir, f.rawDir, f.outputDir)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if summary.Scanned != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if got := f.progress.String(); got != "No specs found.\n" {
		t.Errorf("progress output = %q", got)
	}
}

func TestExtractSkipsSpecWithoutRawAudio(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteSpec(t, f.specsDir, descriptor("abc123", 10.0, 15.5))

	summary, err := f.extractor.Extract(context.Background(), nil, f.specsDir, f.rawDir, f.outputDir)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if summary.Skipped != 1 || summary.Written != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(f.cutter.calls) != 0 {
		t.Fatalf("cutter invoked %d times, want 0", len(f.cutter.calls))
	}
	if f.progress.Len() != 0 {
		t.Fatalf("expected no progress output, got %q", f.progress.String())
	}
}

func TestExtractNeverRecutsExistingClip(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteSpec(t, f.specsDir, descriptor("abc123", 10.0, 15.5))
	testsupport.TouchFiles(t, f.rawDir, "abc123.wav")

	if _, err := f.extractor.Extract(context.Background(), nil, f.specsDir, f.rawDir, f.outputDir); err != nil {
		t.Fatalf("first Extract failed: %v", err)
	}
	if len(f.cutter.calls) != 1 {
		t.Fatalf("cutter invoked %d times after first run, want 1", len(f.cutter.calls))
	}

	summary, err := f.extractor.Extract(context.Background(), nil, f.specsDir, f.rawDir, f.outputDir)
	if err != nil {
		t.Fatalf("second Extract failed: %v", err)
	}
	if len(f.cutter.calls) != 1 {
		t.Fatalf("cutter invoked %d times after second run, want 1", len(f.cutter.calls))
	}
	if summary.Skipped != 1 || summary.Written != 0 {
		t.Fatalf("unexpected second-run summary: %+v", summary)
	}
}

func TestExtractPicksSmallestExtension(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteSpec(t, f.specsDir, descriptor("abc123", 10.0, 15.5))
	testsupport.TouchFiles(t, f.rawDir, "abc123.wav", "abc123.mp3")

	if _, err := f.extractor.Extract(context.Background(), nil, f.specsDir, f.rawDir, f.outputDir); err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(f.cutter.calls) != 1 {
		t.Fatalf("cutter invoked %d times, want 1", len(f.cutter.calls))
	}
	if got := f.cutter.calls[0].src; got != filepath.Join(f.rawDir, "abc123.mp3") {
		t.Errorf("cut source = %q, want the .mp3 variant", got)
	}
	if got := f.cutter.calls[0].dest; !strings.HasSuffix(got, "abc123,10.00,15.50.mp3") {
		t.Errorf("cut dest = %q, want .mp3 extension inherited", got)
	}
}

func TestExtractContinuesPastCutterFailure(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteSpec(t, f.specsDir, descriptor("aaa111", 0.0, 5.0))
	testsupport.WriteSpec(t, f.specsDir, descriptor("bbb222", 1.0, 4.0))
	testsupport.TouchFiles(t, f.rawDir, "aaa111.wav", "bbb222.wav")
	f.cutter.failDest = "aaa111"

	summary, err := f.extractor.Extract(context.Background(), nil, f.specsDir, f.rawDir, f.outputDir)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if summary.Failed != 1 || summary.Written != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	failDest := filepath.Join(f.outputDir, "aaa111,0.00,5.00.wav")
	wantError := fmt.Sprintf("Error: -1 encountered by %s\n", failDest)
	if got := f.progress.String(); !strings.Contains(got, wantError) {
		t.Errorf("progress output %q lacks error line %q", got, wantError)
	}
	if got := f.progress.String(); !strings.Contains(got, "bbb222,1.00,4.00.wav\n") {
		t.Errorf("progress output %q lacks success line for second clip", got)
	}
}

func TestExtractMalformedSpecAborts(t *testing.T) {
	f := newFixture(t)
	testsupport.WriteFile(t, filepath.Join(f.specsDir, "broken.json"), []byte("not json"))

	_, err := f.extractor.Extract(context.Background(), nil, f.specsDir, f.rawDir, f.outputDir)
	if !errors.Is(err, pipeline.ErrMalformedSpec) {
		t.Fatalf("expected ErrMalformedSpec, got %v", err)
	}
	if len(f.cutter.calls) != 0 {
		t.Fatalf("cutter invoked %d times, want 0", len(f.cutter.calls))
	}
}

func TestExtractMissingSpecsDirFails(t *testing.T) {
	f := newFixture(t)

	_, err := f.extractor.Extract(context.Background(), nil, filepath.Join(f.specsDir, "absent"), f.rawDir, f.outputDir)
	if err == nil {
		t.Fatal("expected error for missing specs dir")
	}
}
