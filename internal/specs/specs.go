package specs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"tabset/internal/clipkey"
	"tabset/internal/fileutil"
	"tabset/internal/inventory"
	"tabset/internal/logging"
	"tabset/internal/pipeline"
	"tabset/internal/stagerun"
	"tabset/internal/tabs"
)

// StageName is the subcommand and ledger name for spec extraction.
const StageName = "generate_specs"

// Extractor turns annotated documents into per-clip spec files.
type Extractor struct {
	logger   *slog.Logger
	parser   tabs.Parser
	progress io.Writer
}

// New constructs the extractor with the production document parser.
// Progress lines go to stdout.
func New(logger *slog.Logger) *Extractor {
	return NewWithDependencies(logger, tabs.NewJSONParser(), os.Stdout)
}

// NewWithDependencies allows injecting collaborators (used in tests).
func NewWithDependencies(logger *slog.Logger, parser tabs.Parser, progress io.Writer) *Extractor {
	if progress == nil {
		progress = io.Discard
	}
	return &Extractor{
		logger:   logging.NewComponentLogger(logger, "specs"),
		parser:   parser,
		progress: progress,
	}
}

// Extract scans documentsDir, filters descriptors against the availability
// index at audioSource, and writes one spec file per eligible clip into
// outputDir. A document that fails to parse is reported and skipped;
// subsequent documents still process.
func (e *Extractor) Extract(ctx context.Context, report *stagerun.Reporter, documentsDir, audioSource, outputDir string) (stagerun.Summary, error) {
	var summary stagerun.Summary
	logger := logging.WithContext(ctx, e.logger)

	index, err := inventory.Load(audioSource)
	if err != nil {
		return summary, pipeline.Wrap(pipeline.ErrNotFound, StageName, "load audio index", "", err)
	}
	logger.Info("audio index loaded",
		logging.String("source", index.Source()),
		logging.Int("entries", index.Len()),
	)

	documents, err := fileutil.ListFileNames(documentsDir)
	if err != nil {
		return summary, pipeline.Wrap(pipeline.ErrNotFound, StageName, "scan documents", "", err)
	}
	if len(documents) == 0 {
		logger.Info("no documents found", logging.String("dir", documentsDir))
		return summary, nil
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return summary, pipeline.Wrap(pipeline.ErrIO, StageName, "create output dir", "", err)
	}

	for _, name := range documents {
		err := e.parser.Parse(ctx, filepath.Join(documentsDir, name), func(d tabs.Descriptor) error {
			summary.Scanned++
			if err := d.Validate(); err != nil {
				summary.Skipped++
				logger.Debug("descriptor failed validation",
					logging.String(logging.FieldDocument, name),
					logging.Error(err),
				)
				return nil
			}
			key := d.ClipKey()
			if !index.Contains(key.YoutubeID) && !index.Contains(key.Encode()) {
				summary.Skipped++
				return nil
			}
			if err := e.writeSpec(outputDir, key, d); err != nil {
				return err
			}
			summary.Written++
			fmt.Fprintln(e.progress, key.Encode())
			return nil
		})
		if err != nil {
			if errors.Is(err, tabs.ErrInvalidDocument) {
				summary.Failed++
				logger.Error("document skipped",
					logging.String(logging.FieldDocument, name),
					logging.Error(err),
				)
				report.ItemFailed(ctx, name, err.Error())
				continue
			}
			return summary, err
		}
	}

	return summary, nil
}

// writeSpec persists the descriptor verbatim. An existing file with the
// same name is replaced, which keeps re-runs byte-identical.
func (e *Extractor) writeSpec(outputDir string, key clipkey.Key, d tabs.Descriptor) error {
	path := filepath.Join(outputDir, key.Filename(".json"))
	f, err := os.Create(path)
	if err != nil {
		return pipeline.Wrap(pipeline.ErrIO, StageName, "write spec", key.Encode(), err)
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d); err != nil {
		f.Close()
		return pipeline.Wrap(pipeline.ErrIO, StageName, "encode spec", key.Encode(), err)
	}
	if err := f.Close(); err != nil {
		return pipeline.Wrap(pipeline.ErrIO, StageName, "write spec", key.Encode(), err)
	}
	return nil
}
