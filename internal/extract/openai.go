package extract

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAIParser struct {
	client *openai.Client
	model  string
}

func NewOpenAIParser(apiKey, model string) *OpenAIParser {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIParser{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (p *OpenAIParser) Name() string { return "openai" }

func (p *OpenAIParser) Parse(ctx context.Context, text string) (Fields, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: fieldPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
	})
	if err != nil {
		return Fields{}, fmt.Errorf("openai extract: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Fields{}, fmt.Errorf("openai extract: empty response")
	}
	return decodeFields(resp.Choices[0].Message.Content)
}
