package extract

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type AnthropicParser struct {
	client anthropic.Client
	model  string
}

func NewAnthropicParser(apiKey, model string) *AnthropicParser {
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	return &AnthropicParser{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (p *AnthropicParser) Name() string { return "anthropic" }

func (p *AnthropicParser) Parse(ctx context.Context, text string) (Fields, error) {
	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: fieldPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return Fields{}, fmt.Errorf("anthropic extract: %w", err)
	}

	content := ""
	for _, block := range resp.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}
	if content == "" {
		return Fields{}, fmt.Errorf("anthropic extract: empty response")
	}
	return decodeFields(content)
}
