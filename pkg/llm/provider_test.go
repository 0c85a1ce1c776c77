package llm

import (
	"errors"
	"testing"
)

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in   string
		want Provider
	}{
		{"anthropic", ProviderAnthropic},
		{" OpenAI ", ProviderOpenAI},
		{"GEMINI", ProviderGemini},
	}
	for _, tt := range tests {
		got, err := ParseProvider(tt.in)
		if err != nil {
			t.Fatalf("ParseProvider(%q) error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseProvider(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseProvider_Unsupported(t *testing.T) {
	_, err := ParseProvider("mistral")
	if !errors.Is(err, ErrUnsupportedProvider) {
		t.Fatalf("expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestProvider_DefaultModel(t *testing.T) {
	for _, p := range []Provider{ProviderAnthropic, ProviderOpenAI, ProviderGemini} {
		if p.DefaultModel() == "" {
			t.Errorf("expected a default model for %s", p)
		}
	}
	if Provider("other").DefaultModel() != "" {
		t.Error("expected no default model for unknown provider")
	}
}
