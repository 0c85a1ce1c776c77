package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/processx-inc/processx-engine/pkg/config"
	"github.com/processx-inc/processx-engine/pkg/llm"
	"github.com/processx-inc/processx-engine/pkg/repositories"
)

// providerResolver picks the provider an organization's analyses run on.
// Preference order:
//  1. the active configuration flagged default
//  2. the oldest active configuration
//  3. server environment keys: Anthropic, then OpenAI, then Gemini
type providerResolver struct {
	configRepo repositories.APIConfigurationRepository
	fallback   *config.AIConfig
	logger     *zap.Logger
}

// NewProviderResolver creates an llm.ProviderResolver. fallback may be nil
// when the server has no environment keys.
func NewProviderResolver(configRepo repositories.APIConfigurationRepository, fallback *config.AIConfig, logger *zap.Logger) llm.ProviderResolver {
	return &providerResolver{
		configRepo: configRepo,
		fallback:   fallback,
		logger:     logger.Named("provider-resolver"),
	}
}

var _ llm.ProviderResolver = (*providerResolver)(nil)

// Resolve returns llm.ErrNoProviderConfigured when no tier yields a key and
// llm.ErrUnsupportedProvider when the chosen configuration names an unknown provider.
func (r *providerResolver) Resolve(ctx context.Context, organizationID uuid.UUID) (*llm.ResolvedProvider, error) {
	configs, err := r.configRepo.ListActive(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("list api configurations: %w", err)
	}

	// ListActive orders the default first, then oldest first.
	for _, cfg := range configs {
		if cfg.APIKey == "" {
			r.logger.Warn("Skipping api configuration without a key",
				zap.String("organization_id", organizationID.String()),
				zap.String("configuration_id", cfg.ID.String()))
			continue
		}

		provider, err := llm.ParseProvider(cfg.Provider)
		if err != nil {
			return nil, err
		}

		source := llm.SourceOrganizationOldest
		if cfg.IsDefault {
			source = llm.SourceOrganizationDefault
		}
		model := cfg.Model
		if model == "" {
			model = provider.DefaultModel()
		}
		return &llm.ResolvedProvider{
			Provider: provider,
			Model:    model,
			APIKey:   cfg.APIKey,
			Source:   source,
		}, nil
	}

	if resolved := r.fromEnvironment(); resolved != nil {
		r.logger.Debug("Using environment provider",
			zap.String("organization_id", organizationID.String()),
			zap.String("provider", string(resolved.Provider)))
		return resolved, nil
	}

	return nil, llm.ErrNoProviderConfigured
}

func (r *providerResolver) fromEnvironment() *llm.ResolvedProvider {
	if r.fallback == nil {
		return nil
	}

	candidates := []struct {
		provider llm.Provider
		key      string
		model    string
	}{
		{llm.ProviderAnthropic, r.fallback.AnthropicAPIKey, r.fallback.AnthropicModel},
		{llm.ProviderOpenAI, r.fallback.OpenAIAPIKey, r.fallback.OpenAIModel},
		{llm.ProviderGemini, r.fallback.GeminiAPIKey, r.fallback.GeminiModel},
	}
	for _, c := range candidates {
		if c.key == "" {
			continue
		}
		model := c.model
		if model == "" {
			model = c.provider.DefaultModel()
		}
		return &llm.ResolvedProvider{
			Provider: c.provider,
			Model:    model,
			APIKey:   c.key,
			Source:   llm.SourceEnvironment,
		}
	}
	return nil
}
