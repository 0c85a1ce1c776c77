package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FactoryConfig holds the server-wide knobs applied to every client.
type FactoryConfig struct {
	MaxTokens      int
	RequestTimeout time.Duration
	OpenAIBaseURL  string
	Breaker        CircuitBreakerConfig
}

// ClientFactory creates guarded LLM clients for organizations.
type ClientFactory struct {
	resolver  ProviderResolver
	config    FactoryConfig
	breakers  *BreakerSet
	logger    *zap.Logger
	newClient func(resolved *ResolvedProvider) (LLMClient, error)
}

var _ LLMClientFactory = (*ClientFactory)(nil)

// NewClientFactory creates a new factory.
func NewClientFactory(resolver ProviderResolver, config FactoryConfig, logger *zap.Logger) *ClientFactory {
	f := &ClientFactory{
		resolver: resolver,
		config:   config,
		breakers: NewBreakerSet(config.Breaker),
		logger:   logger.Named("llm"),
	}
	f.newClient = f.newProviderClient
	return f
}

// CreateForOrganization resolves the organization's provider and returns a
// client bounded by the request timeout and the provider's circuit breaker.
// Resolution errors (ErrNoProviderConfigured, ErrUnsupportedProvider) stay
// matchable with errors.Is.
func (f *ClientFactory) CreateForOrganization(ctx context.Context, organizationID uuid.UUID) (LLMClient, error) {
	resolved, err := f.resolver.Resolve(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("resolve provider: %w", err)
	}

	client, err := f.newClient(resolved)
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", resolved.Provider, err)
	}

	f.logger.Debug("Created LLM client",
		zap.String("organization_id", organizationID.String()),
		zap.String("provider", string(resolved.Provider)),
		zap.String("model", client.GetModel()),
		zap.String("source", string(resolved.Source)))

	return &guardedClient{
		inner:   client,
		breaker: f.breakers.For(resolved.Provider),
		timeout: f.config.RequestTimeout,
		logger:  f.logger,
	}, nil
}

func (f *ClientFactory) newProviderClient(resolved *ResolvedProvider) (LLMClient, error) {
	switch resolved.Provider {
	case ProviderAnthropic:
		return NewAnthropicClient(resolved.APIKey, resolved.Model, f.config.MaxTokens, f.logger)
	case ProviderOpenAI:
		return NewOpenAIClient(resolved.APIKey, resolved.Model, f.config.OpenAIBaseURL, f.logger)
	case ProviderGemini:
		return NewGeminiClient(resolved.APIKey, resolved.Model, f.logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, resolved.Provider)
	}
}

// guardedClient applies the per-request timeout, the circuit breaker and
// error classification around a provider client.
type guardedClient struct {
	inner   LLMClient
	breaker *CircuitBreaker
	timeout time.Duration
	logger  *zap.Logger
}

func (g *guardedClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error) {
	if err := g.breaker.Allow(); err != nil {
		return nil, err
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := g.inner.GenerateResponse(ctx, prompt, systemMessage, temperature)
	elapsed := time.Since(start)

	fields := append(contextFields(ctx),
		zap.String("provider", string(g.inner.GetProvider())),
		zap.String("model", g.inner.GetModel()),
		zap.Duration("elapsed", elapsed))

	if err != nil {
		llmErr := ClassifyError(err)
		llmErr.Provider = g.inner.GetProvider()
		if llmErr.Model == "" {
			llmErr.Model = g.inner.GetModel()
		}
		g.recordOutcome(err, llmErr)
		g.logger.Warn("LLM call failed", append(fields,
			zap.String("error_type", string(llmErr.Type)),
			zap.Bool("retryable", llmErr.Retryable),
			zap.String("breaker", g.breaker.State().String()))...)
		return nil, llmErr
	}

	g.breaker.RecordSuccess()
	g.logger.Debug("LLM call completed", append(fields, zap.Int("total_tokens", result.TotalTokens))...)
	return result, nil
}

// recordOutcome feeds only provider-side faults into the shared breaker.
// Auth, model and quota errors belong to one organization's configuration;
// they prove the provider answered, so they close a half-open circuit.
// Caller cancellation says nothing about provider health, but a canceled
// half-open trial request must still reopen the circuit.
func (g *guardedClient) recordOutcome(err error, llmErr *Error) {
	switch {
	case errors.Is(err, context.Canceled):
		if g.breaker.State() == CircuitHalfOpen {
			g.breaker.RecordFailure()
		}
	case llmErr.ProviderFault():
		g.breaker.RecordFailure()
	case g.breaker.State() == CircuitHalfOpen:
		g.breaker.RecordSuccess()
	}
}

func (g *guardedClient) GetProvider() Provider { return g.inner.GetProvider() }

func (g *guardedClient) GetModel() string { return g.inner.GetModel() }
