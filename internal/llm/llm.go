// Package llm implements core.ModelClient for the supported providers.
package llm

import (
	"fmt"
	"strings"

	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
)

// Options configures a model client. It is built from the validated
// configuration by the caller; nothing here reads the environment.
type Options struct {
	Provider    string
	Model       string
	APIKey      string
	MaxTokens   int
	Temperature float64
	WebSearch   bool
	MaxUses     int
	// BaseURL overrides the provider endpoint. Empty means the default.
	BaseURL string
}

// DetectProvider returns provider if set, otherwise infers it from the model
// name: gemini* models go to Gemini, everything else to Anthropic.
func DetectProvider(provider, model string) string {
	if p := strings.ToLower(strings.TrimSpace(provider)); p != "" {
		return p
	}
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gemini") {
		return core.ProviderGemini
	}
	return core.ProviderAnthropic
}

// NewClient creates the client for opts. A missing API key is a
// configuration error, reported before any request is made.
func NewClient(opts Options) (core.ModelClient, error) {
	if strings.TrimSpace(opts.Model) == "" {
		opts.Model = core.DefaultModel
	}
	provider := DetectProvider(opts.Provider, opts.Model)

	switch provider {
	case core.ProviderAnthropic, core.ProviderGemini:
	default:
		return nil, core.ErrConfig(core.CodeUnknownProvider,
			fmt.Sprintf("unknown model provider %q", opts.Provider))
	}

	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, core.ErrConfig(core.CodeMissingAPIKey,
			fmt.Sprintf("no API key configured for provider %s", provider)).
			WithDetail("provider", provider)
	}

	if provider == core.ProviderGemini {
		return NewGeminiClient(opts)
	}
	return NewAnthropicClient(opts), nil
}

func joinText(parts []string) string {
	return strings.Join(parts, "")
}
