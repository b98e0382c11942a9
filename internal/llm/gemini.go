package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
)

// GeminiClient calls the Gemini API.
type GeminiClient struct {
	client *genai.Client
	opts   Options
}

// NewGeminiClient creates a client for the Gemini API backend.
func NewGeminiClient(opts Options) (*GeminiClient, error) {
	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), cfg)
	if err != nil {
		return nil, core.ErrConfig(core.CodeInvalidConfig, "creating gemini client").WithCause(err)
	}
	return &GeminiClient{client: client, opts: opts}, nil
}

// Name returns the provider name.
func (c *GeminiClient) Name() string {
	return core.ProviderGemini
}

// Generate sends the prompt and returns the text of the first candidate that
// has any.
func (c *GeminiClient) Generate(ctx context.Context, req core.GenerateRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.opts.Model
	}

	config := &genai.GenerateContentConfig{}
	if c.opts.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(c.opts.Temperature))
	}
	if c.opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(c.opts.MaxTokens)
	}
	if req.System != "" {
		config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if c.opts.WebSearch {
		config.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	resp, err := c.client.Models.GenerateContent(ctx, model,
		[]*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}, config)
	if err != nil {
		return "", core.ClassifyTransport(core.ProviderGemini, err)
	}
	if resp == nil {
		return "", core.ErrTransport(fmt.Sprintf("gemini returned no response for %s", model))
	}

	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		var texts []string
		for _, part := range candidate.Content.Parts {
			if part != nil && part.Text != "" {
				texts = append(texts, part.Text)
			}
		}
		if len(texts) > 0 {
			return joinText(texts), nil
		}
	}
	return "", nil
}

var _ core.ModelClient = (*GeminiClient)(nil)
