package clips

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"tabset/internal/config"
	"tabset/internal/fileutil"
	"tabset/internal/logging"
	"tabset/internal/pipeline"
	"tabset/internal/services/ffmpeg"
	"tabset/internal/stagerun"
	"tabset/internal/tabs"
)

// StageName is the subcommand and ledger name for clip extraction.
const StageName = "clip_audio"

// Cutter extracts one time range from a source file into dest. The
// container/codec follows dest's extension. Implementations must refuse to
// overwrite an existing dest.
type Cutter interface {
	Cut(ctx context.Context, src string, start, duration float64, dest string) error
}

// Extractor cuts raw audio into per-spec clips.
type Extractor struct {
	logger   *slog.Logger
	cutter   Cutter
	progress io.Writer
}

// New constructs the extractor backed by the configured ffmpeg binary.
// Progress lines go to stdout.
func New(cfg *config.Config, logger *slog.Logger) (*Extractor, error) {
	client, err := ffmpeg.New(cfg.FFmpegBinary())
	if err != nil {
		return nil, err
	}
	return NewWithDependencies(logger, client, os.Stdout), nil
}

// NewWithDependencies allows injecting collaborators (used in tests).
func NewWithDependencies(logger *slog.Logger, cutter Cutter, progress io.Writer) *Extractor {
	if progress == nil {
		progress = io.Discard
	}
	return &Extractor{
		logger:   logging.NewComponentLogger(logger, "clips"),
		cutter:   cutter,
		progress: progress,
	}
}

// Extract reads every spec in specsDir, finds its raw audio in rawAudioDir,
// and cuts the referenced range into outputDir. Specs without raw audio are
// skipped silently. Existing clips are never re-cut. A cutter failure is
// reported per item and processing continues.
func (e *Extractor) Extract(ctx context.Context, report *stagerun.Reporter, specsDir, rawAudioDir, outputDir string) (stagerun.Summary, error) {
	var summary stagerun.Summary
	logger := logging.WithContext(ctx, e.logger)

	specFiles, err := fileutil.ListFileNames(specsDir)
	if err != nil {
		return summary, pipeline.Wrap(pipeline.ErrNotFound, StageName, "scan specs", "", err)
	}
	if len(specFiles) == 0 {
		fmt.Fprintln(e.progress, "No specs found.")
		logger.Info("no specs found", logging.String("dir", specsDir))
		return summary, nil
	}

	rawByID, err := indexRawAudio(rawAudioDir)
	if err != nil {
		return summary, pipeline.Wrap(pipeline.ErrNotFound, StageName, "scan raw audio", "", err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return summary, pipeline.Wrap(pipeline.ErrIO, StageName, "create output dir", "", err)
	}

	for _, name := range specFiles {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Scanned++

		d, err := readSpec(filepath.Join(specsDir, name))
		if err != nil {
			return summary, err
		}
		key := d.ClipKey()
		itemCtx := pipeline.WithClipKey(ctx, key.Encode())
		itemLogger := logging.WithContext(itemCtx, e.logger)

		ext, ok := rawByID[key.YoutubeID]
		if !ok {
			// Expected while raw audio is still being collected.
			summary.Skipped++
			itemLogger.Debug("no raw audio for spec")
			continue
		}
		src := filepath.Join(rawAudioDir, key.YoutubeID+ext)
		dest := filepath.Join(outputDir, key.Filename(ext))

		if _, err := os.Stat(dest); err == nil {
			summary.Skipped++
			itemLogger.Debug("clip already cut", logging.String("dest", dest))
			continue
		} else if !errors.Is(err, fs.ErrNotExist) {
			return summary, pipeline.Wrap(pipeline.ErrIO, StageName, "stat clip", key.Encode(), err)
		}

		if err := e.cutter.Cut(itemCtx, src, key.Start, key.End-key.Start, dest); err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			summary.Failed++
			code := ffmpeg.ExitCode(err)
			fmt.Fprintf(e.progress, "Error: %d encountered by %s\n", code, dest)
			itemLogger.Error("cut failed",
				logging.Int(logging.FieldExitCode, code),
				logging.Error(err),
			)
			report.ItemFailed(itemCtx, key.Encode(), err.Error())
			continue
		}

		summary.Written++
		fmt.Fprintln(e.progress, dest)
		itemLogger.Info("clip cut", logging.String("dest", dest))
	}

	return summary, nil
}

// indexRawAudio maps each video id in dir to its clip source extension.
// When one id exists under several extensions the lexicographically smallest
// wins, keeping the choice stable across filesystems.
func indexRawAudio(dir string) (map[string]string, error) {
	names, err := fileutil.ListFileNames(dir)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]string, len(names))
	for _, name := range names {
		base, ext := fileutil.SplitExt(name)
		if ext == "" {
			continue
		}
		if current, ok := byID[base]; !ok || ext < current {
			byID[base] = ext
		}
	}
	return byID, nil
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
