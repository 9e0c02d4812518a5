package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"

	"tabset/internal/config"
	"tabset/internal/fileutil"
	"tabset/internal/logging"
	"tabset/internal/media/ffprobe"
	"tabset/internal/pipeline"
	"tabset/internal/services/ffmpeg"
	"tabset/internal/stagerun"
	"tabset/internal/tabs"
	"tabset/internal/tfrecord"
)

// StageName is the subcommand and ledger name for dataset assembly.
const StageName = "generate_dataset"

// DefaultSampleRate is the canonical corpus sample rate in Hz.
const DefaultSampleRate = 44100

// DurationProber measures the playable length of an audio file in seconds.
type DurationProber interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// SampleDecoder decodes an audio file to mono float samples at the requested
// rate, reporting the rate actually produced.
type SampleDecoder interface {
	Decode(ctx context.Context, path string, rate int) ([]float32, int, error)
}

// Assembler joins specs with clipped audio and writes training records.
type Assembler struct {
	logger     *slog.Logger
	prober     DurationProber
	decoder    SampleDecoder
	sampleRate int
	progress   io.Writer
}

// New constructs the assembler backed by the configured ffprobe and ffmpeg
// binaries. Progress lines go to stdout.
func New(cfg *config.Config, logger *slog.Logger) (*Assembler, error) {
	client, err := ffmpeg.New(cfg.FFmpegBinary())
	if err != nil {
		return nil, err
	}
	prober := durationProber{binary: cfg.FFprobeBinary()}
	return NewWithDependencies(logger, prober, client, cfg.Audio.SampleRate, os.Stdout), nil
}

// NewWithDependencies allows injecting collaborators (used in tests).
func NewWithDependencies(logger *slog.Logger, prober DurationProber, decoder SampleDecoder, sampleRate int, progress io.Writer) *Assembler {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if progress == nil {
		progress = io.Discard
	}
	return &Assembler{
		logger:     logging.NewComponentLogger(logger, "dataset"),
		prober:     prober,
		decoder:    decoder,
		sampleRate: sampleRate,
		progress:   progress,
	}
}

// joinEntry pairs the two sides of the base-filename join.
type joinEntry struct {
	spec  string
	audio string
}

// Assemble joins specsDir against clippedDir by base filename and appends
// one serialized record per fully-matched pair to the container at
// outputPath. The container is created immediately, so a run that joins
// nothing still produces an empty container file.
func (a *Assembler) Assemble(ctx context.Context, report *stagerun.Reporter, specsDir, clippedDir, outputPath string) (stagerun.Summary, error) {
	var summary stagerun.Summary
	logger := logging.WithContext(ctx, a.logger)

	entries, err := buildJoin(specsDir, clippedDir)
	if err != nil {
		return summary, pipeline.Wrap(pipeline.ErrNotFound, StageName, "scan inputs", "", err)
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	writer, err := tfrecord.Create(outputPath)
	if err != nil {
		return summary, pipeline.Wrap(pipeline.ErrIO, StageName, "create container", "", err)
	}
	closed := false
	defer func() {
		if !closed {
			_ = writer.Close()
		}
	}()

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Scanned++
		entry := entries[name]

		if entry.spec == "" || entry.audio == "" {
			summary.Skipped++
			fmt.Fprintln(a.progress, name)
			continue
		}

		itemCtx := pipeline.WithClipKey(ctx, name)
		itemLogger := logging.WithContext(itemCtx, a.logger)

		d, err := readSpec(filepath.Join(specsDir, entry.spec))
		if err != nil {
			return summary, err
		}
		audioPath := filepath.Join(clippedDir, entry.audio)

		measured, err := a.prober.ProbeDuration(itemCtx, audioPath)
		if err != nil {
			summary.Failed++
			itemLogger.Error("probe duration failed", logging.Error(err))
			report.ItemFailed(itemCtx, name, err.Error())
			fmt.Fprintln(a.progress, name)
			continue
		}
		specDuration := d.AudioSource.EndTime - d.AudioSource.StartTime
		if !floatsClose(specDuration, measured) {
			fmt.Fprintf(a.progress, "Warning: sample duration is %v but spec says %v\n", measured, specDuration)
			itemLogger.Warn("duration mismatch",
				logging.Float64("measured", measured),
				logging.Float64("expected", specDuration),
			)
		}

		samples, rate, err := a.decoder.Decode(itemCtx, audioPath, a.sampleRate)
		if err != nil {
			summary.Failed++
			itemLogger.Error("decode samples failed", logging.Error(err))
			report.ItemFailed(itemCtx, name, err.Error())
			fmt.Fprintln(a.progress, name)
			continue
		}
		if rate != a.sampleRate {
			fmt.Fprintf(a.progress, "Warning: sampling rate is %v\n", rate)
			itemLogger.Warn("sample rate mismatch",
				logging.Int("actual", rate),
				logging.Int("expected", a.sampleRate),
			)
		}

		example := buildExample(d, samples)
		if err := writer.WriteRecord(example.Marshal()); err != nil {
			return summary, pipeline.Wrap(pipeline.ErrIO, StageName, "write record", name, err)
		}
		summary.Written++
		fmt.Fprintln(a.progress, name)
	}

	closed = true
	if err := writer.Close(); err != nil {
		return summary, pipeline.Wrap(pipeline.ErrIO, StageName, "close container", "", err)
	}

	logger.Info("container written",
		logging.String("path", outputPath),
		logging.Int("records", writer.Count()),
	)
	return summary, nil
}

// buildJoin scans both directories once and merges them into a single map
// keyed by filename without extension.
func buildJoin(specsDir, clippedDir string) (map[string]joinEntry, error) {
	specNames, err := fileutil.ListFileNames(specsDir)
	if err != nil {
		return nil, err
	}
	audioNames, err := fileutil.ListFileNames(clippedDir)
	if err != nil {
		return nil, err
	}

	entries := make(map[string]joinEntry, len(specNames)+len(audioNames))
	for _, name := range specNames {
		base := fileutil.Base(name)
		entry := entries[base]
		entry.spec = name
		entries[base] = entry
	}
	for _, name := range audioNames {
		base := fileutil.Base(name)
		entry := entries[base]
		entry.audio = name
		entries[base] = entry
	}
	return entries, nil
}

func readSpec(path string) (tabs.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tabs.Descriptor{}, pipeline.Wrap(pipeline.ErrIO, StageName, "read spec", filepath.Base(path), err)
	}
	var d tabs.Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return tabs.Descriptor{}, pipeline.Wrap(pipeline.ErrMalformedSpec, StageName, "decode spec", filepath.Base(path), err)
	}
	return d, nil
}

// floatsClose applies relative closeness with a 1e-9 tolerance, the same
// comparison the duration check has always used.
func floatsClose(a, b float64) bool {
	const relTol = 1e-9
	return math.Abs(a-b) <= relTol*math.Max(math.Abs(a), math.Abs(b))
}

// durationProber probes media duration with ffprobe.
type durationProber struct {
	binary string
}

func (p durationProber) ProbeDuration(ctx context.Context, path string) (float64, error) {
	result, err := ffprobe.Inspect(ctx, p.binary, path)
	if err != nil {
		return 0, err
	}
	duration := result.DurationSeconds()
	if math.IsNaN(duration) || duration <= 0 {
		return 0, fmt.Errorf("media %s reports no usable duration", filepath.Base(path))
	}
	return duration, nil
}
