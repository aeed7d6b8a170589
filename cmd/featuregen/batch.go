package featuregen

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/featuregen/internal/config"
	"github.com/temirov/featuregen/internal/generation"
)

type batchOutcome struct {
	name       string
	outputPath string
	err        error
}

func newBatchCommand(deps dependencies, configPath *string) *cobra.Command {
	var only string

	command := &cobra.Command{
		Use:   batchCommandUse,
		Short: batchCommandShort,
		Args: func(cmd *cobra.Command, args []string) error {
			return newUsageError(cobra.ExactArgs(1)(cmd, args))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatchCommand(cmd, deps, *configPath, strings.TrimSpace(only), args[0])
		},
	}
	command.Flags().StringVar(&only, onlyFlagName, "", onlyFlagUsage)
	return command
}

func runBatchCommand(command *cobra.Command, deps dependencies, configPath string, only string, userStoryPath string) error {
	rootConfiguration, err := loadRootConfiguration(deps, configPath)
	if err != nil {
		return err
	}
	entries, err := selectBatchEntries(rootConfiguration, only)
	if err != nil {
		return err
	}
	logger, err := newCommandLogger(command.ErrOrStderr(), rootConfiguration, false, "batch")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	output := command.OutOrStdout()
	if _, writeErr := fmt.Fprintln(output, batchStartMessage); writeErr != nil {
		return fmt.Errorf(writeOutputErrorFormat, writeErr)
	}

	parallelism := rootConfiguration.Common.Batch.Parallelism
	if parallelism <= 0 {
		parallelism = defaultBatchParallelism
	}
	outcomes := make([]batchOutcome, len(entries))
	var group errgroup.Group
	group.SetLimit(parallelism)
	for index, entry := range entries {
		group.Go(func() error {
			outputPath, runErr := runBatchEntry(command.Context(), deps, rootConfiguration, logger, entry, userStoryPath)
			outcomes[index] = batchOutcome{name: entry.Name, outputPath: outputPath, err: runErr}
			return nil
		})
	}
	_ = group.Wait()

	failures := 0
	for _, outcome := range outcomes {
		result := outcome.outputPath
		if outcome.err != nil {
			failures++
			result = "Error: " + outcome.err.Error()
			logger.Error("llm run failed", zap.String("llm", outcome.name), zap.Error(outcome.err))
		}
		if _, writeErr := fmt.Fprintf(output, batchResultHeaderFormat+"%s\n", outcome.name, result); writeErr != nil {
			return fmt.Errorf(writeOutputErrorFormat, writeErr)
		}
	}
	if failures > 0 {
		return fmt.Errorf(batchFailedErrorFormat, failures, len(outcomes))
	}
	return nil
}

// selectBatchEntries returns the enabled entries in configuration order, or
// the single named entry regardless of its enabled flag.
func selectBatchEntries(rootConfiguration config.Root, only string) ([]config.LLM, error) {
	if only != "" {
		entry, found := rootConfiguration.FindLLM(only)
		if !found {
			return nil, newUsageError(fmt.Errorf(unknownLLMErrorFormat, only))
		}
		return []config.LLM{entry}, nil
	}
	var entries []config.LLM
	for _, entry := range rootConfiguration.LLMs {
		if entry.IsEnabled() {
			entries = append(entries, entry)
		}
	}
	if len(entries) == 0 {
		return nil, errors.New(noLLMConfigurationErrorMessage)
	}
	return entries, nil
}

func runBatchEntry(ctx context.Context, deps dependencies, rootConfiguration config.Root, logger *zap.Logger, entry config.LLM, userStoryPath string) (string, error) {
	variant, found := deps.registry.Lookup(entry.Provider)
	if !found {
		return "", fmt.Errorf(unknownProviderErrorFormat, entry.Provider)
	}
	if !variant.AllowsModel(entry.Model) {
		return "", fmt.Errorf(disallowedModelErrorFormat, entry.Model, variant.Name, strings.Join(variant.AllowedModels, ", "))
	}
	if strings.TrimSpace(entry.InstructionPath) == "" {
		return "", fmt.Errorf(missingInstructionPathFormat, entry.Name)
	}

	providerConfiguration, _ := rootConfiguration.FindProvider(variant.Name)
	settings := generation.Settings{Model: entry.Model, Temperature: entry.Temperature}
	if variant.SupportsSeed {
		settings.Seed = entry.Seed
	}
	request := invocation{
		variant: variant,
		connection: generation.Connection{
			APIKey:     resolveEntryAPIKey(deps, entry, providerConfiguration, variant),
			Endpoint:   providerConfiguration.Endpoint,
			Timeout:    rootConfiguration.Common.Timeout(),
			HTTPClient: deps.httpClient,
		},
		settings: settings,
		job: generation.Job{
			InstructionPath: entry.InstructionPath,
			UserStoryPath:   userStoryPath,
			OutputDir:       firstNonEmpty(entry.OutputDir, filepath.Clean(entry.Name)),
			Debug:           entry.Debug,
		},
	}
	result, err := runInvocation(ctx, deps, rootConfiguration, logger.With(zap.String("llm", entry.Name)), request)
	if err != nil {
		return "", err
	}
	return result.OutputPath, nil
}

// resolveEntryAPIKey prefers the literal key, then the entry's variable, the
// provider's variable and finally the vendor default variable.
func resolveEntryAPIKey(deps dependencies, entry config.LLM, providerConfiguration config.Provider, variant generation.Variant) string {
	if key := strings.TrimSpace(entry.APIKey); key != "" {
		return key
	}
	for _, name := range []string{entry.APIKeyEnv, providerConfiguration.APIKeyEnv, variant.APIKeyEnv} {
		if strings.TrimSpace(name) == "" {
			continue
		}
		if value, ok := deps.lookupEnv(name); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
