package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hugo-lorenzo-mato/marketlog/internal/core"
)

const defaultAnthropicMaxTokens = 16000

// AnthropicClient calls the Anthropic Messages API.
type AnthropicClient struct {
	messages  *anthropic.MessageService
	opts      Options
	maxTokens int
}

// NewAnthropicClient creates a client. SDK retries are disabled: a failed
// call fails the run and the scheduler decides whether to run again.
func NewAnthropicClient(opts Options) *AnthropicClient {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := anthropic.NewClient(reqOpts...)

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	return &AnthropicClient{
		messages:  &client.Messages,
		opts:      opts,
		maxTokens: maxTokens,
	}
}

// Name returns the provider name.
func (c *AnthropicClient) Name() string {
	return core.ProviderAnthropic
}

// Generate sends one user message and returns the concatenated text blocks.
func (c *AnthropicClient) Generate(ctx context.Context, req core.GenerateRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = c.opts.Model
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(c.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if c.opts.Temperature > 0 {
		params.Temperature = anthropic.Float(c.opts.Temperature)
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if c.opts.WebSearch {
		search := &anthropic.WebSearchTool20250305Param{}
		if c.opts.MaxUses > 0 {
			search.MaxUses = anthropic.Int(int64(c.opts.MaxUses))
		}
		params.Tools = []anthropic.ToolUnionParam{{OfWebSearchTool20250305: search}}
	}

	resp, err := c.messages.New(ctx, params)
	if err != nil {
		return "", classifyAnthropic(err)
	}

	var texts []string
	for _, block := range resp.Content {
		if block.Type == "text" {
			texts = append(texts, block.Text)
		}
	}
	return joinText(texts), nil
}

func classifyAnthropic(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return core.ErrTransport(fmt.Sprintf("anthropic returned HTTP %d", apiErr.StatusCode)).
			WithCause(err).
			WithDetail("status", apiErr.StatusCode)
	}
	return core.ClassifyTransport(core.ProviderAnthropic, err)
}

var _ core.ModelClient = (*AnthropicClient)(nil)
