package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiClient talks to Google's Gemini API. A genai client is opened per
// request so that no connection outlives the analysis it serves.
type GeminiClient struct {
	apiKey string
	model  string
	logger *zap.Logger
}

// NewGeminiClient creates a client for the given key and model.
func NewGeminiClient(apiKey, model string, logger *zap.Logger) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiClient{
		apiKey: apiKey,
		model:  model,
		logger: logger.Named("gemini"),
	}, nil
}

// GenerateResponse implements LLMClient.
func (c *GeminiClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (*GenerateResponseResult, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(c.model)
	model.SetTemperature(float32(temperature))
	model.ResponseMIMEType = "application/json"
	if systemMessage != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemMessage)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, err
	}

	text := extractGeminiText(resp)
	if text == "" {
		return nil, NewError(ErrorTypeUnknown, "no content in response", true, nil)
	}

	result := &GenerateResponseResult{Content: text}
	if resp.UsageMetadata != nil {
		result.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		result.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		result.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	c.logger.Debug("Completion received",
		zap.String("model", c.model),
		zap.Int("total_tokens", result.TotalTokens))

	return result, nil
}

// GetProvider implements LLMClient.
func (c *GeminiClient) GetProvider() Provider { return ProviderGemini }

// GetModel implements LLMClient.
func (c *GeminiClient) GetModel() string { return c.model }

func extractGeminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}
