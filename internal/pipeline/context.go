package pipeline

import "context"

type contextKey string

const (
	runIDKey   contextKey = "run_id"
	stageKey   contextKey = "stage"
	clipKeyKey contextKey = "clip_key"
)

// WithRunID annotates context with the identifier of the current stage run.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithStage annotates context with the pipeline stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(stageKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithClipKey annotates context with the encoded identity key of the clip
// being processed.
func WithClipKey(ctx context.Context, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, clipKeyKey, key)
}

// ClipKeyFromContext extracts the encoded clip key if present.
func ClipKeyFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(clipKeyKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
