package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"tabset/internal/catalog"
	"tabset/internal/clips"
	"tabset/internal/config"
	"tabset/internal/dataset"
	"tabset/internal/pipeline"
	"tabset/internal/preflight"
	"tabset/internal/specs"
	"tabset/internal/stagerun"
)

func newGenerateSpecsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "generate_specs <documents> <audio> <output>",
		Short: "Extract clip annotation specs for documents with available audio",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newStageEnv(ctx)
			if err != nil {
				return err
			}
			defer env.close()

			extractor := specs.New(env.logger)
			stage := stagerun.StageFunc(specs.StageName, func(runCtx context.Context, report *stagerun.Reporter) (stagerun.Summary, error) {
				return extractor.Extract(runCtx, report, args[0], args[1], args[2])
			})
			_, err = stagerun.Run(cmd.Context(), stage, env.options())
			return err
		},
	}
}

func newClipAudioCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clip_audio <specs> <raw_audio> <output>",
		Short: "Cut annotated clips out of raw audio recordings",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newStageEnv(ctx, "FFmpeg")
			if err != nil {
				return err
			}
			defer env.close()

			extractor, err := clips.New(env.cfg, env.logger)
			if err != nil {
				return err
			}
			stage := stagerun.StageFunc(clips.StageName, func(runCtx context.Context, report *stagerun.Reporter) (stagerun.Summary, error) {
				return extractor.Extract(runCtx, report, args[0], args[1], args[2])
			})
			_, err = stagerun.Run(cmd.Context(), stage, env.options())
			return err
		},
	}
}

func newGenerateDatasetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "generate_dataset <specs> <clipped_audio> <output>",
		Short: "Join specs with clipped audio and write training records",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newStageEnv(ctx, "FFmpeg", "FFprobe")
			if err != nil {
				return err
			}
			defer env.close()

			assembler, err := dataset.New(env.cfg, env.logger)
			if err != nil {
				return err
			}
			stage := stagerun.StageFunc(dataset.StageName, func(runCtx context.Context, report *stagerun.Reporter) (stagerun.Summary, error) {
				return assembler.Assemble(runCtx, report, args[0], args[1], args[2])
			})
			_, err = stagerun.Run(cmd.Context(), stage, env.options())
			return err
		},
	}
}

// stageEnv bundles the shared plumbing a stage command needs before it can
// hand control to the execution wrapper.
type stageEnv struct {
	cfg     *config.Config
	logger  *slog.Logger
	catalog *catalog.Store
}

func newStageEnv(cctx *commandContext, tools ...string) (*stageEnv, error) {
	cfg, err := cctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := cctx.ensureLogger()
	if err != nil {
		return nil, err
	}
	if err := requireTools(cfg, tools); err != nil {
		return nil, err
	}
	return &stageEnv{
		cfg:     cfg,
		logger:  logger,
		catalog: cctx.openCatalog(logger),
	}, nil
}

func (e *stageEnv) close() {
	_ = e.catalog.Close()
}

func (e *stageEnv) options() stagerun.Options {
	return stagerun.Options{
		Logger:  e.logger,
		Catalog: e.catalog,
		LockDir: e.cfg.Paths.LockDir,
	}
}

// requireTools fails fast when a stage needs external binaries that are not
// available, instead of surfacing an exec error per item mid-run.
func requireTools(cfg *config.Config, names []string) error {
	if len(names) == 0 {
		return nil
	}
	wanted := make(map[string]bool, len(names))
	for _, name := range names {
		wanted[name] = true
	}
	var missing []string
	for _, status := range preflight.CheckTools(cfg) {
		if wanted[status.Name] && !status.Available {
			missing = append(missing, fmt.Sprintf("%s (%s)", status.Name, status.Detail))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required tools: %s", pipeline.ErrConfiguration, strings.Join(missing, ", "))
	}
	return nil
}
