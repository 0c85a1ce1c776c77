package llm

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithAnalysisContext(t *testing.T) {
	id := uuid.New()
	ctx := WithAnalysisContext(context.Background(), id, "pain_points")

	values := GetContext(ctx)
	require.NotNil(t, values)
	assert.Equal(t, id.String(), values["analysis_id"])
	assert.Equal(t, "pain_points", values["phase"])
}

func TestWithContext_MergesAndDoesNotMutateParent(t *testing.T) {
	parent := WithContext(context.Background(), map[string]any{"a": 1})
	child := WithContext(parent, map[string]any{"b": 2})

	assert.Equal(t, map[string]any{"a": 1}, GetContext(parent))
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, GetContext(child))
}

func TestGetContext_ReturnsCopy(t *testing.T) {
	ctx := WithContext(context.Background(), map[string]any{"a": 1})
	got := GetContext(ctx)
	got["a"] = 99

	assert.Equal(t, 1, GetContext(ctx)["a"])
}

func TestGetContext_Empty(t *testing.T) {
	assert.Nil(t, GetContext(context.Background()))
	assert.Empty(t, contextFields(context.Background()))
}
