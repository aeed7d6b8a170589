// Package provider wires each vendor SDK or endpoint into the generation engine.
package provider

import "github.com/temirov/featuregen/internal/generation"

// NewRegistry returns a registry holding the deepseek, gemini and gpt variants.
func NewRegistry() *generation.Registry {
	registry := generation.NewRegistry()
	registry.Register(DeepSeekVariant())
	registry.Register(GeminiVariant())
	registry.Register(GPTVariant())
	return registry
}

func DeepSeekVariant() generation.Variant {
	return generation.Variant{
		Name:        DeepSeekName,
		Description: "Generate a response with the DeepSeek chat completions API",
		Profile: generation.Profile{
			OutputFileName: DeepSeekOutputFileName,
			Layout:         generation.LayoutSystemUser,
			TrimInputs:     true,
		},
		DefaultEndpoint:  DeepSeekDefaultEndpoint,
		APIKeyEnv:        DeepSeekAPIKeyEnv,
		AllowedModels:    DeepSeekModels,
		OpenAICompatible: true,
		Factory:          NewDeepSeek,
	}
}

func GeminiVariant() generation.Variant {
	return generation.Variant{
		Name:        GeminiName,
		Description: "Generate a feature file with Google Gemini",
		Profile: generation.Profile{
			OutputFileName: GeminiOutputFileName,
			Layout:         generation.LayoutConcatenated,
		},
		APIKeyEnv: GeminiAPIKeyEnv,
		Factory:   NewGemini,
	}
}

func GPTVariant() generation.Variant {
	return generation.Variant{
		Name:        GPTName,
		Aliases:     []string{"chatgpt", "openai"},
		Description: "Generate a feature file with an OpenAI GPT model",
		Profile: generation.Profile{
			OutputFileName: GPTOutputFileName,
			Layout:         generation.LayoutUserUser,
			Retry:          true,
			StripFence:     true,
			EchoCompletion: true,
			DumpMessages:   true,
		},
		DefaultEndpoint:  GPTDefaultEndpoint,
		APIKeyEnv:        GPTAPIKeyEnv,
		SupportsSeed:     true,
		OpenAICompatible: true,
		Factory:          NewGPT,
	}
}
