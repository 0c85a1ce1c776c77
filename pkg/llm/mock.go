package llm

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MockLLMClient is a configurable mock for testing LLM functionality.
// Set the function fields to control behavior in tests. Safe for concurrent use.
type MockLLMClient struct {
	// GenerateResponseFunc is called when GenerateResponse is invoked.
	// If nil, returns an empty result and nil error.
	GenerateResponseFunc func(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error)

	// Provider is returned by GetProvider. Defaults to anthropic.
	Provider Provider

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	mu      sync.Mutex
	prompts []string
}

// NewMockLLMClient creates a new mock with sensible defaults.
func NewMockLLMClient() *MockLLMClient {
	return &MockLLMClient{
		Provider: ProviderAnthropic,
		Model:    "mock-model",
	}
}

// GenerateResponse implements LLMClient.
func (m *MockLLMClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.GenerateResponseFunc != nil {
		return m.GenerateResponseFunc(ctx, prompt, systemMessage, temperature)
	}
	return &GenerateResponseResult{}, nil
}

// GenerateResponseCalls returns how many times GenerateResponse ran.
func (m *MockLLMClient) GenerateResponseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// Prompts returns every prompt received, in call order.
func (m *MockLLMClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// GetProvider implements LLMClient.
func (m *MockLLMClient) GetProvider() Provider {
	if m.Provider == "" {
		return ProviderAnthropic
	}
	return m.Provider
}

// GetModel implements LLMClient.
func (m *MockLLMClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// MockClientFactory is a mock factory for testing.
type MockClientFactory struct {
	// MockClient is returned by CreateForOrganization.
	MockClient *MockLLMClient

	// CreateForOrganizationFunc overrides the default behavior if set.
	CreateForOrganizationFunc func(ctx context.Context, organizationID uuid.UUID) (LLMClient, error)
}

// NewMockClientFactory creates a new mock factory with a default mock client.
func NewMockClientFactory() *MockClientFactory {
	return &MockClientFactory{
		MockClient: NewMockLLMClient(),
	}
}

// CreateForOrganization implements LLMClientFactory.
func (f *MockClientFactory) CreateForOrganization(ctx context.Context, organizationID uuid.UUID) (LLMClient, error) {
	if f.CreateForOrganizationFunc != nil {
		return f.CreateForOrganizationFunc(ctx, organizationID)
	}
	return f.MockClient, nil
}

var (
	_ LLMClient        = (*MockLLMClient)(nil)
	_ LLMClientFactory = (*MockClientFactory)(nil)
)
