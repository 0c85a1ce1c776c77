package llm

import (
	"errors"
	"fmt"
	"strings"
)

// Provider identifies an LLM vendor.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
)

// Default models used when a configuration does not name one.
const (
	DefaultAnthropicModel = "claude-sonnet-4-5-20250929"
	DefaultOpenAIModel    = "gpt-4o"
	DefaultGeminiModel    = "gemini-2.0-flash"
)

var (
	// ErrNoProviderConfigured means neither the organization nor the server
	// environment supplies credentials for any provider.
	ErrNoProviderConfigured = errors.New("no LLM provider configured")

	// ErrUnsupportedProvider means a configuration names a provider this
	// engine cannot talk to.
	ErrUnsupportedProvider = errors.New("unsupported LLM provider")
)

// ResolutionSource records where a resolved provider came from.
type ResolutionSource string

const (
	SourceOrganizationDefault ResolutionSource = "organization_default"
	SourceOrganizationOldest  ResolutionSource = "organization_oldest"
	SourceEnvironment         ResolutionSource = "environment"
)

// ResolvedProvider is the outcome of provider resolution for an organization.
type ResolvedProvider struct {
	Provider Provider
	Model    string
	APIKey   string `json:"-"`
	Source   ResolutionSource
}

// ParseProvider normalizes a stored provider identifier.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderAnthropic, ProviderOpenAI, ProviderGemini:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, s)
	}
}

// DefaultModel returns the model used for p when none is configured.
func (p Provider) DefaultModel() string {
	switch p {
	case ProviderAnthropic:
		return DefaultAnthropicModel
	case ProviderOpenAI:
		return DefaultOpenAIModel
	case ProviderGemini:
		return DefaultGeminiModel
	}
	return ""
}
