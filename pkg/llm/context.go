package llm

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const (
	llmContextKey contextKey = "llm_context"
)

// WithContext returns a context carrying call metadata for logging.
// The values are merged with any existing metadata.
func WithContext(ctx context.Context, values map[string]any) context.Context {
	existing := GetContext(ctx)
	if existing == nil {
		existing = make(map[string]any, len(values))
	}
	for k, v := range values {
		existing[k] = v
	}
	return context.WithValue(ctx, llmContextKey, existing)
}

// GetContext returns a copy of the call metadata, or nil if none is set.
func GetContext(ctx context.Context) map[string]any {
	c, ok := ctx.Value(llmContextKey).(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]any, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// WithAnalysisContext tags calls made under ctx with the analysis and phase they serve.
func WithAnalysisContext(ctx context.Context, analysisID uuid.UUID, phase string) context.Context {
	values := map[string]any{
		"analysis_id": analysisID.String(),
	}
	if phase != "" {
		values["phase"] = phase
	}
	return WithContext(ctx, values)
}

func contextFields(ctx context.Context) []zap.Field {
	values := GetContext(ctx)
	fields := make([]zap.Field, 0, len(values))
	for k, v := range values {
		fields = append(fields, zap.Any(k, v))
	}
	return fields
}
