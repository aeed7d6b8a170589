package featuregen

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/featuregen/internal/generation"
	"github.com/temirov/featuregen/internal/llm"
)

func newModelsCommand(deps dependencies, configPath *string) *cobra.Command {
	command := &cobra.Command{
		Use:   modelsCommandUse,
		Short: modelsCommandShort,
		Args: func(cmd *cobra.Command, args []string) error {
			return newUsageError(cobra.NoArgs(cmd, args))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runModelsCommand(cmd, deps, *configPath)
		},
	}
	flags := command.Flags()
	flags.String(providerFlagName, defaultModelsProvider, providerFlagUsage)
	flags.String(filterFlagName, "", filterFlagUsage)
	flags.String(apiKeyFlagName, "", fmt.Sprintf(apiKeyFlagUsage, "the provider's key variable"))
	flags.String(endpointFlagName, "", endpointFlagUsage)
	return command
}

func runModelsCommand(command *cobra.Command, deps dependencies, configPath string) error {
	values, err := newCommandValues(command)
	if err != nil {
		return err
	}
	providerName := strings.TrimSpace(values.GetString(providerFlagName))
	variant, found := deps.registry.Lookup(providerName)
	if !found {
		return newUsageError(fmt.Errorf(unknownProviderErrorFormat, providerName))
	}
	if !variant.OpenAICompatible {
		return newUsageError(fmt.Errorf(providerNotListableErrorFormat, variant.Name))
	}

	rootConfiguration, apiKey, err := loadConfigurationWithAPIKey(values, deps, configPath, variant)
	if err != nil {
		return err
	}
	logger, err := newCommandLogger(command.ErrOrStderr(), rootConfiguration, false, modelsCommandUse)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	providerConfiguration, _ := rootConfiguration.FindProvider(variant.Name)
	httpClient := deps.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: rootConfiguration.Common.Timeout()}
	}
	client := llm.Client{
		BaseURL:    firstNonEmpty(values.GetString(endpointFlagName), providerConfiguration.Endpoint, variant.DefaultEndpoint),
		APIKey:     apiKey,
		HTTPClient: httpClient,
	}
	identifiers, err := client.ListModels(command.Context())
	if err != nil {
		logger.Error("model listing failed", zap.String("provider", variant.Name), zap.Error(err))
		return fmt.Errorf(listModelsErrorFormat, err)
	}

	filter := defaultModelsFilter(variant)
	if values.IsSet(filterFlagName) {
		filter = values.GetString(filterFlagName)
	}
	matched := 0
	for _, identifier := range identifiers {
		if !strings.Contains(identifier, filter) {
			continue
		}
		matched++
		if _, writeErr := fmt.Fprintln(command.OutOrStdout(), identifier); writeErr != nil {
			return fmt.Errorf(writeOutputErrorFormat, writeErr)
		}
	}
	logger.Debug("models listed", zap.Int("total", len(identifiers)), zap.Int("matched", matched))
	return nil
}

// defaultModelsFilter keeps chat models for GPT, whose account listing also
// carries embedding, audio and image models. Other providers list everything.
func defaultModelsFilter(variant generation.Variant) string {
	if variant.Name == defaultModelsProvider {
		return gptModelsFilter
	}
	return ""
}
