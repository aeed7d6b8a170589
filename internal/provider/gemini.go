package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/temirov/featuregen/internal/conversation"
	"github.com/temirov/featuregen/internal/generation"
	"github.com/temirov/featuregen/internal/llm"
)

const (
	GeminiName           = "gemini"
	GeminiAPIKeyEnv      = "GEMINI_API_KEY"
	GeminiOutputFileName = "gemini_output.feature"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini calls the Gemini API through the genai SDK with a
// temperature-only generation config.
type Gemini struct {
	generator contentGenerator
	settings  generation.Settings
}

func NewGemini(ctx context.Context, connection generation.Connection, settings generation.Settings) (generation.Completer, error) {
	if connection.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", GeminiName, ErrMissingAPIKey)
	}
	clientConfig := &genai.ClientConfig{
		APIKey:     connection.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClientFor(connection),
	}
	if connection.Endpoint != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: connection.Endpoint}
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return newGeminiWithGenerator(client.Models, settings), nil
}

func newGeminiWithGenerator(generator contentGenerator, settings generation.Settings) *Gemini {
	return &Gemini{generator: generator, settings: settings}
}

func (g *Gemini) Complete(ctx context.Context, messages []conversation.Message) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(g.settings.Temperature)),
	}
	var contents []*genai.Content
	var systemParts []string
	for _, message := range messages {
		switch message.Role {
		case conversation.RoleSystem:
			systemParts = append(systemParts, message.Content)
		case conversation.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(message.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(message.Content, genai.RoleUser))
		}
	}
	if len(systemParts) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(systemParts, "\n\n"), genai.RoleUser)
	}

	response, err := g.generator.GenerateContent(ctx, g.settings.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", translateGeminiError(err))
	}
	if response == nil {
		return "", fmt.Errorf("gemini: %w: nil response", llm.ErrMalformedResponse)
	}
	text := response.Text()
	if text == "" {
		if response.PromptFeedback != nil && response.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("gemini: prompt blocked: %s", response.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("gemini: %w: no text in response", llm.ErrMalformedResponse)
	}
	return text, nil
}

// translateGeminiError exposes SDK API errors as *llm.HTTPStatusError so
// callers classify every vendor the same way.
func translateGeminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &llm.HTTPStatusError{StatusCode: apiErr.Code, Body: apiErr.Message}
	}
	var apiErrPointer *genai.APIError
	if errors.As(err, &apiErrPointer) && apiErrPointer != nil {
		return &llm.HTTPStatusError{StatusCode: apiErrPointer.Code, Body: apiErrPointer.Message}
	}
	return err
}
