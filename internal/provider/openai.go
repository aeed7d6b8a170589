package provider

import (
	"context"
	"fmt"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/temirov/featuregen/internal/conversation"
	"github.com/temirov/featuregen/internal/generation"
	"github.com/temirov/featuregen/internal/llm"
)

const (
	GPTName            = "gpt"
	GPTDefaultEndpoint = "https://api.openai.com/v1"
	GPTAPIKeyEnv       = "OPENAI_API_KEY"
	GPTOutputFileName  = "gpt_output.feature"
)

type chatGenerator interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// GPT replays the conversation against an OpenAI chat model.
type GPT struct {
	generator chatGenerator
}

func NewGPT(ctx context.Context, connection generation.Connection, settings generation.Settings) (generation.Completer, error) {
	if connection.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", GPTName, ErrMissingAPIKey)
	}
	endpoint := connection.Endpoint
	if endpoint == "" {
		endpoint = GPTDefaultEndpoint
	}
	temperature := float32(settings.Temperature)
	chatConfig := &einoopenai.ChatModelConfig{
		APIKey:      connection.APIKey,
		BaseURL:     endpoint,
		Model:       settings.Model,
		Temperature: &temperature,
		Seed:        settings.Seed,
		Timeout:     connection.Timeout,
		HTTPClient:  connection.HTTPClient,
	}
	if settings.MaxTokens > 0 {
		maxTokens := settings.MaxTokens
		chatConfig.MaxTokens = &maxTokens
	}
	chatModel, err := einoopenai.NewChatModel(ctx, chatConfig)
	if err != nil {
		return nil, fmt.Errorf("create openai chat model: %w", err)
	}
	return &GPT{generator: chatModel}, nil
}

func (g *GPT) Complete(ctx context.Context, messages []conversation.Message) (string, error) {
	input := make([]*schema.Message, 0, len(messages))
	for _, message := range messages {
		input = append(input, toSchemaMessage(message))
	}
	reply, err := g.generator.Generate(ctx, input)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if reply == nil {
		return "", fmt.Errorf("openai: %w: nil message", llm.ErrMalformedResponse)
	}
	return reply.Content, nil
}

func toSchemaMessage(message conversation.Message) *schema.Message {
	switch message.Role {
	case conversation.RoleSystem:
		return schema.SystemMessage(message.Content)
	case conversation.RoleAssistant:
		return schema.AssistantMessage(message.Content, nil)
	default:
		return schema.UserMessage(message.Content)
	}
}
