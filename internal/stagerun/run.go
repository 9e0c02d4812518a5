package stagerun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"tabset/internal/catalog"
	"tabset/internal/logging"
	"tabset/internal/pipeline"
)

// Stage is the contract a pipeline stage implements to run under the
// one-shot execution wrapper.
type Stage interface {
	Name() string
	Run(ctx context.Context, report *Reporter) (Summary, error)
}

// Summary holds the item totals a stage reports when it finishes.
type Summary struct {
	Scanned int
	Written int
	Skipped int
	Failed  int
}

type stageFunc struct {
	name string
	run  func(ctx context.Context, report *Reporter) (Summary, error)
}

func (s stageFunc) Name() string { return s.name }

func (s stageFunc) Run(ctx context.Context, report *Reporter) (Summary, error) {
	return s.run(ctx, report)
}

// StageFunc adapts a named function to the Stage interface, letting callers
// close over stage arguments without defining a type.
func StageFunc(name string, run func(ctx context.Context, report *Reporter) (Summary, error)) Stage {
	return stageFunc{name: name, run: run}
}

// Options controls stage execution, locking, and ledger persistence.
type Options struct {
	Logger  *slog.Logger
	Catalog *catalog.Store
	LockDir string
}

// Reporter lets a running stage record per-item failures against its run.
// The ledger is advisory, so recording failures never fails the stage.
type Reporter struct {
	runID   string
	catalog *catalog.Store
	logger  *slog.Logger
}

// RunID returns the identifier assigned to this run.
func (r *Reporter) RunID() string {
	if r == nil {
		return ""
	}
	return r.runID
}

// ItemFailed records one failed item with a human-readable detail.
func (r *Reporter) ItemFailed(ctx context.Context, item, detail string) {
	if r == nil || r.catalog == nil {
		return
	}
	if err := r.catalog.RecordFailure(ctx, r.runID, item, detail); err != nil {
		r.logger.Warn("record item failure", logging.String("item", item), logging.Error(err))
	}
}

// Run executes a stage once. It acquires the stage lock, records the run in
// the catalog when one is configured, and returns the stage's summary along
// with its error, if any.
func Run(ctx context.Context, stage Stage, opts Options) (Summary, error) {
	if stage == nil {
		return Summary{}, errors.New("stage is required")
	}

	runID := uuid.NewString()
	ctx = pipeline.WithRunID(pipeline.WithStage(ctx, stage.Name()), runID)

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.WithContext(ctx, logger)

	if opts.LockDir != "" {
		release, err := acquireLock(opts.LockDir, stage.Name())
		if err != nil {
			return Summary{}, err
		}
		defer release()
	}

	if opts.Catalog != nil {
		if err := opts.Catalog.BeginRun(ctx, runID, stage.Name()); err != nil {
			logger.Warn("record run start", logging.Error(err))
		}
	}

	report := &Reporter{runID: runID, catalog: opts.Catalog, logger: logger}

	logger.Info("stage started")
	start := time.Now()

	summary, runErr := stage.Run(ctx, report)

	if opts.Catalog != nil {
		if err := opts.Catalog.FinishRun(ctx, runID, catalog.Counts(summary), runErr); err != nil {
			logger.Warn("record run result", logging.Error(err))
		}
	}

	elapsed := time.Since(start).Round(time.Millisecond)
	if runErr != nil {
		logger.Error("stage failed",
			logging.Duration("elapsed", elapsed),
			logging.Error(runErr),
		)
		return summary, runErr
	}

	logger.Info("stage completed",
		logging.Int("scanned", summary.Scanned),
		logging.Int("written", summary.Written),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
		logging.Duration("elapsed", elapsed),
	)
	return summary, nil
}

// acquireLock takes the per-stage lock file, failing fast when another
// invocation of the same stage holds it.
func acquireLock(dir, stage string) (func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	lockPath := filepath.Join(dir, stage+".lock")
	lock := flock.New(lockPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire stage lock %s: %w", lockPath, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: another %s run is already in progress", pipeline.ErrLocked, stage)
	}
	return func() { _ = lock.Unlock() }, nil
}
