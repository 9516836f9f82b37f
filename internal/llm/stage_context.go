package llm

import "context"

type stageKey struct{}

// WithStage tags the context with the pipeline stage issuing a model call
// (e.g. "seed", "round-3", "repair-1"). Used by logging middleware.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, stageKey{}, stage)
}

// StageFrom returns the stage tag, or "-" when untagged.
func StageFrom(ctx context.Context) string {
	if v, ok := ctx.Value(stageKey{}).(string); ok && v != "" {
		return v
	}
	return "-"
}
