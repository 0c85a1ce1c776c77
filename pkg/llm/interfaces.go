// Package llm is the provider gateway: it resolves which vendor an
// organization uses, talks to it, and turns free-form model output into typed
// payloads.
package llm

import (
	"context"

	"github.com/google/uuid"
)

// GenerateResponseResult is a completion plus token usage when the provider reports it.
type GenerateResponseResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// LLMClient defines the interface for LLM operations.
// Use this interface for dependency injection to enable mocking in tests.
type LLMClient interface {
	// GenerateResponse sends one prompt with a system message and returns the raw text.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error)

	// GetProvider returns the vendor backing this client.
	GetProvider() Provider

	// GetModel returns the configured model name.
	GetModel() string
}

// ProviderResolver picks the provider an organization's analyses run against.
// The services package implements it; the interface breaks the import cycle.
type ProviderResolver interface {
	Resolve(ctx context.Context, organizationID uuid.UUID) (*ResolvedProvider, error)
}

// LLMClientFactory creates clients for organizations.
type LLMClientFactory interface {
	CreateForOrganization(ctx context.Context, organizationID uuid.UUID) (LLMClient, error)
}
