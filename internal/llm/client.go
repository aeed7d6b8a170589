package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/temirov/featuregen/internal/conversation"
)

const (
	chatCompletionsPath = "/chat/completions"
	modelsPath          = "/models"
	bodyPreviewLimit    = 512
)

// Client speaks the OpenAI-compatible chat completions protocol.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

type ChatCompletionRequest struct {
	Model       string                 `json:"model"`
	Messages    []conversation.Message `json:"messages"`
	Temperature *float64               `json:"temperature,omitempty"`
	MaxTokens   int                    `json:"max_tokens,omitempty"`
	Seed        *int                   `json:"seed,omitempty"`
}

type chatMessageResponse struct {
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	Refusal   json.RawMessage `json:"refusal,omitempty"`
	ToolCalls json.RawMessage `json:"tool_calls,omitempty"`
}

type chatCompletionChoice struct {
	Message      chatMessageResponse `json:"message"`
	FinishReason string              `json:"finish_reason"`
}

type chatCompletionResponse struct {
	Choices []chatCompletionChoice `json:"choices"`
}

type modelListResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

func truncateForLog(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}

// CreateChatCompletion posts the request and returns the content of the first
// choice. Any status other than 200 is reported as *HTTPStatusError.
func (c Client) CreateChatCompletion(ctx context.Context, requestPayload ChatCompletionRequest) (string, error) {
	requestBytes, marshalErr := json.Marshal(requestPayload)
	if marshalErr != nil {
		return "", fmt.Errorf("encode chat completion request: %w", marshalErr)
	}
	bodyBytes, err := c.do(ctx, http.MethodPost, chatCompletionsPath, bytes.NewReader(requestBytes))
	if err != nil {
		return "", err
	}
	bodyPreview := truncateForLog(string(bodyBytes), bodyPreviewLimit)

	var completion chatCompletionResponse
	if decodeErr := json.Unmarshal(bodyBytes, &completion); decodeErr != nil {
		return "", fmt.Errorf("%w: %v (body=%s)", ErrMalformedResponse, decodeErr, bodyPreview)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices (body=%s)", ErrMalformedResponse, bodyPreview)
	}

	content, extractErr := extractMessageContent(completion.Choices[0].Message)
	if extractErr != nil {
		return "", fmt.Errorf("%w: %v (body=%s)", ErrMalformedResponse, extractErr, bodyPreview)
	}
	return content, nil
}

// ListModels returns every model identifier visible to the account.
func (c Client) ListModels(ctx context.Context) ([]string, error) {
	bodyBytes, err := c.do(ctx, http.MethodGet, modelsPath, nil)
	if err != nil {
		return nil, err
	}
	var listing modelListResponse
	if decodeErr := json.Unmarshal(bodyBytes, &listing); decodeErr != nil {
		return nil, fmt.Errorf("%w: %v (body=%s)", ErrMalformedResponse, decodeErr, truncateForLog(string(bodyBytes), bodyPreviewLimit))
	}
	identifiers := make([]string, 0, len(listing.Data))
	for _, model := range listing.Data {
		identifiers = append(identifiers, model.ID)
	}
	return identifiers, nil
}

func (c Client) do(ctx context.Context, method string, path string, body io.Reader) ([]byte, error) {
	httpRequest, buildErr := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.BaseURL, "/")+path, body)
	if buildErr != nil {
		return nil, buildErr
	}
	if body != nil {
		httpRequest.Header.Set("Content-Type", "application/json")
	}
	httpRequest.Header.Set("Authorization", "Bearer "+c.APIKey)

	httpResponse, httpErr := c.httpClient().Do(httpRequest)
	if httpErr != nil {
		return nil, httpErr
	}
	defer func(closer io.ReadCloser) { _ = closer.Close() }(httpResponse.Body)

	bodyBytes, readErr := io.ReadAll(httpResponse.Body)
	if readErr != nil {
		return nil, fmt.Errorf("read response body: %w", readErr)
	}
	if httpResponse.StatusCode != http.StatusOK {
		return nil, &HTTPStatusError{StatusCode: httpResponse.StatusCode, Body: string(bodyBytes)}
	}
	return bodyBytes, nil
}

func (c Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func extractMessageContent(message chatMessageResponse) (string, error) {
	if len(message.Content) == 0 || string(message.Content) == "null" {
		if refusal := decodeRefusal(message.Refusal); refusal != "" {
			return "", fmt.Errorf("chat completion refusal: %s", refusal)
		}
		if len(message.ToolCalls) > 0 && string(message.ToolCalls) != "null" {
			return "", fmt.Errorf("chat completion produced tool_calls: %s", truncateForLog(string(message.ToolCalls), 240))
		}
		return "", nil
	}

	var asString string
	if err := json.Unmarshal(message.Content, &asString); err == nil {
		return asString, nil
	}

	if text, ok := extractRichText(message.Content); ok {
		return text, nil
	}

	return "", fmt.Errorf("unsupported message content: %s", truncateForLog(string(message.Content), 240))
}

func extractRichText(raw json.RawMessage) (string, bool) {
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", false
	}
	combined := strings.TrimSpace(strings.Join(flattenText(data), "\n"))
	if combined == "" {
		return "", false
	}
	return combined, true
}

func flattenText(value any) []string {
	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return []string{v}
	case []any:
		var collected []string
		for _, item := range v {
			collected = append(collected, flattenText(item)...)
		}
		return collected
	case map[string]any:
		if text, ok := v["text"]; ok {
			return flattenText(text)
		}
		if content, ok := v["content"]; ok {
			return flattenText(content)
		}
		return nil
	default:
		return nil
	}
}

func decodeRefusal(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var refusalString string
	if err := json.Unmarshal(raw, &refusalString); err == nil {
		return strings.TrimSpace(refusalString)
	}
	if text, ok := extractRichText(raw); ok {
		return text
	}
	return strings.TrimSpace(truncateForLog(string(raw), 200))
}
