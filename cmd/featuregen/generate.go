package featuregen

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/temirov/featuregen/internal/config"
	"github.com/temirov/featuregen/internal/fsops"
	"github.com/temirov/featuregen/internal/generation"
)

// invocation is everything one provider run needs once flags, environment
// and configuration are resolved.
type invocation struct {
	variant    generation.Variant
	connection generation.Connection
	settings   generation.Settings
	job        generation.Job
}

func newGenerateCommand(variant generation.Variant, deps dependencies, configPath *string) *cobra.Command {
	var debug bool

	command := &cobra.Command{
		Use:     variant.Name,
		Aliases: variant.Aliases,
		Short:   variant.Description,
		Args: func(cmd *cobra.Command, args []string) error {
			return newUsageError(cobra.NoArgs(cmd, args))
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerateCommand(cmd, variant, deps, *configPath)
		},
	}

	flags := command.Flags()
	flags.String(instructionPathFlagName, "", instructionPathFlagUsage)
	flags.String(userStoryPathFlagName, "", userStoryPathFlagUsage)
	flags.String(apiKeyFlagName, "", fmt.Sprintf(apiKeyFlagUsage, variant.APIKeyEnv))
	flags.String(outputDirFlagName, "", outputDirFlagUsage)
	flags.Float64(temperatureFlagName, 0, temperatureFlagUsage)
	modelUsage := modelFlagUsage
	if len(variant.AllowedModels) > 0 {
		modelUsage = fmt.Sprintf(modelAllowedFlagUsage, strings.Join(variant.AllowedModels, ", "))
	}
	flags.String(modelFlagName, "", modelUsage)
	if variant.SupportsSeed {
		flags.Int(seedFlagName, 0, seedFlagUsage)
	}
	flags.String(endpointFlagName, "", endpointFlagUsage)
	registerBoolChoiceFlag(flags, &debug, debugFlagName, debugFlagUsage)

	return command
}

func runGenerateCommand(command *cobra.Command, variant generation.Variant, deps dependencies, configPath string) error {
	values, err := newCommandValues(command)
	if err != nil {
		return err
	}
	request, err := resolveGenerateFlags(values, variant)
	if err != nil {
		return newUsageError(err)
	}

	rootConfiguration, apiKey, err := loadConfigurationWithAPIKey(values, deps, configPath, variant)
	if err != nil {
		return err
	}
	logger, err := newCommandLogger(command.ErrOrStderr(), rootConfiguration, request.job.Debug, variant.Name)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	providerConfiguration, _ := rootConfiguration.FindProvider(variant.Name)
	request.connection.APIKey = apiKey
	request.connection.Endpoint = firstNonEmpty(strings.TrimSpace(values.GetString(endpointFlagName)), providerConfiguration.Endpoint)
	request.connection.Timeout = rootConfiguration.Common.Timeout()
	request.connection.HTTPClient = deps.httpClient

	result, err := runInvocation(command.Context(), deps, rootConfiguration, logger, request)
	if err != nil {
		logger.Error("generation failed", zap.Error(err))
		return err
	}

	output := command.OutOrStdout()
	if variant.Profile.EchoCompletion {
		completion := result.Completion
		if !strings.HasSuffix(completion, "\n") {
			completion += "\n"
		}
		if _, writeErr := fmt.Fprint(output, completion); writeErr != nil {
			return fmt.Errorf(writeOutputErrorFormat, writeErr)
		}
	}
	if _, writeErr := fmt.Fprintf(output, responseSavedFormat, result.OutputPath); writeErr != nil {
		return fmt.Errorf(writeOutputErrorFormat, writeErr)
	}
	return nil
}

// resolveGenerateFlags validates everything that can be checked before any
// file is read.
func resolveGenerateFlags(values *viper.Viper, variant generation.Variant) (invocation, error) {
	request := invocation{variant: variant}

	required := map[string]*string{
		instructionPathFlagName: &request.job.InstructionPath,
		userStoryPathFlagName:   &request.job.UserStoryPath,
		outputDirFlagName:       &request.job.OutputDir,
		modelFlagName:           &request.settings.Model,
	}
	for _, name := range []string{instructionPathFlagName, userStoryPathFlagName, outputDirFlagName, modelFlagName} {
		value := strings.TrimSpace(values.GetString(name))
		if value == "" {
			return invocation{}, fmt.Errorf(missingRequiredValueErrorFormat, name)
		}
		*required[name] = value
	}

	if !values.IsSet(temperatureFlagName) {
		return invocation{}, fmt.Errorf(missingRequiredValueErrorFormat, temperatureFlagName)
	}
	rawTemperature := strings.TrimSpace(values.GetString(temperatureFlagName))
	temperature, parseErr := strconv.ParseFloat(rawTemperature, 64)
	if parseErr != nil {
		return invocation{}, fmt.Errorf(invalidTemperatureErrorFormat, temperatureFlagName, rawTemperature, parseErr)
	}
	request.settings.Temperature = temperature

	if !variant.AllowsModel(request.settings.Model) {
		return invocation{}, fmt.Errorf(disallowedModelErrorFormat, request.settings.Model, variant.Name, strings.Join(variant.AllowedModels, ", "))
	}

	if variant.SupportsSeed && values.IsSet(seedFlagName) {
		rawSeed := strings.TrimSpace(values.GetString(seedFlagName))
		seed, seedErr := strconv.Atoi(rawSeed)
		if seedErr != nil {
			return invocation{}, fmt.Errorf(invalidSeedErrorFormat, seedFlagName, rawSeed, seedErr)
		}
		request.settings.Seed = &seed
	}

	rawDebug := values.GetString(debugFlagName)
	debug, ok := parseBoolChoice(rawDebug)
	if !ok {
		return invocation{}, fmt.Errorf(invalidBooleanErrorFormat, debugFlagName, rawDebug)
	}
	request.job.Debug = debug
	return request, nil
}

func runInvocation(ctx context.Context, deps dependencies, rootConfiguration config.Root, logger *zap.Logger, request invocation) (generation.Result, error) {
	variant := request.variant
	completer, err := variant.Factory(ctx, request.connection, request.settings)
	if err != nil {
		return generation.Result{}, fmt.Errorf(completerInitErrorFormat, variant.Name, err)
	}
	runner := generation.Runner{
		Completer: completer,
		Files:     fsops.NewOps(deps.files),
		Retry:     retryPolicy(rootConfiguration.Common.Retry),
		Timeout:   rootConfiguration.Common.Timeout(),
		Logger:    logger.With(zap.String("provider", variant.Name), zap.String("model", request.settings.Model)),
	}
	result, err := runner.Run(ctx, variant.Profile, request.job)
	if err != nil {
		return generation.Result{}, fmt.Errorf(generationFailedErrorFormat, variant.Name, err)
	}
	return result, nil
}

func newCommandValues(command *cobra.Command) (*viper.Viper, error) {
	values := viper.New()
	values.SetEnvPrefix(environmentPrefix)
	values.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	values.AutomaticEnv()
	if err := values.BindPFlags(command.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}
	return values, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
