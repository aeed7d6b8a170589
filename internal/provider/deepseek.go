package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/temirov/featuregen/internal/conversation"
	"github.com/temirov/featuregen/internal/generation"
	"github.com/temirov/featuregen/internal/llm"
)

const (
	DeepSeekName            = "deepseek"
	DeepSeekDefaultEndpoint = "https://api.deepseek.com/v1"
	DeepSeekAPIKeyEnv       = "DEEPSEEK_API_KEY"
	DeepSeekOutputFileName  = "deepseek_response.txt"
	deepSeekMaxTokens       = 4096
)

// DeepSeekModels lists the models the deepseek command accepts.
var DeepSeekModels = []string{"deepseek-chat", "deepseek-coder"}

// DeepSeek sends a single chat completion request without retrying.
type DeepSeek struct {
	client   llm.Client
	settings generation.Settings
}

func NewDeepSeek(_ context.Context, connection generation.Connection, settings generation.Settings) (generation.Completer, error) {
	if connection.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", DeepSeekName, ErrMissingAPIKey)
	}
	endpoint := connection.Endpoint
	if endpoint == "" {
		endpoint = DeepSeekDefaultEndpoint
	}
	if settings.MaxTokens <= 0 {
		settings.MaxTokens = deepSeekMaxTokens
	}
	return &DeepSeek{
		client: llm.Client{
			BaseURL:    endpoint,
			APIKey:     connection.APIKey,
			HTTPClient: httpClientFor(connection),
		},
		settings: settings,
	}, nil
}

func (d *DeepSeek) Complete(ctx context.Context, messages []conversation.Message) (string, error) {
	temperature := d.settings.Temperature
	completion, err := d.client.CreateChatCompletion(ctx, llm.ChatCompletionRequest{
		Model:       d.settings.Model,
		Messages:    messages,
		Temperature: &temperature,
		MaxTokens:   d.settings.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("deepseek: %w", err)
	}
	return completion, nil
}

func httpClientFor(connection generation.Connection) *http.Client {
	if connection.HTTPClient != nil {
		return connection.HTTPClient
	}
	return &http.Client{Timeout: connection.Timeout}
}
