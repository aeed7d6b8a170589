package featuregen

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/temirov/featuregen/internal/config"
	"github.com/temirov/featuregen/internal/generation"
	"github.com/temirov/featuregen/internal/logging"
	"github.com/temirov/featuregen/internal/retry"
)

// loadConfigurationWithAPIKey loads the configuration and resolves the key
// from the flag, FEATUREGEN_API_KEY, the provider's configured variable, then
// the vendor variable. A key that no source can supply is a usage error even
// when the configuration itself cannot be loaded.
func loadConfigurationWithAPIKey(values *viper.Viper, deps dependencies, configPath string, variant generation.Variant) (config.Root, string, error) {
	prefixedKeyEnvironment := environmentPrefix + "_" + strings.ToUpper(apiKeyFlagName)
	if bindErr := values.BindEnv(apiKeyFlagName, prefixedKeyEnvironment, variant.APIKeyEnv); bindErr != nil {
		return config.Root{}, "", bindErr
	}
	keyWithoutConfiguration := strings.TrimSpace(values.GetString(apiKeyFlagName))

	rootConfiguration, loadErr := loadRootConfiguration(deps, configPath)
	if loadErr != nil {
		if keyWithoutConfiguration == "" {
			return config.Root{}, "", newUsageError(fmt.Errorf(missingAPIKeyErrorFormat, apiKeyFlagName, variant.APIKeyEnv))
		}
		return config.Root{}, "", loadErr
	}

	providerConfiguration, _ := rootConfiguration.FindProvider(variant.Name)
	keyEnvironment := firstNonEmpty(providerConfiguration.APIKeyEnv, variant.APIKeyEnv)
	if bindErr := values.BindEnv(apiKeyFlagName, prefixedKeyEnvironment, keyEnvironment, variant.APIKeyEnv); bindErr != nil {
		return config.Root{}, "", bindErr
	}
	apiKey := strings.TrimSpace(values.GetString(apiKeyFlagName))
	if apiKey == "" {
		return config.Root{}, "", newUsageError(fmt.Errorf(missingAPIKeyErrorFormat, apiKeyFlagName, keyEnvironment))
	}
	return rootConfiguration, apiKey, nil
}

func loadRootConfiguration(deps dependencies, configurationPath string) (config.Root, error) {
	configurationLoader, loaderErr := deps.newLoader()
	if loaderErr != nil {
		return config.Root{}, fmt.Errorf(configurationLoadErrorFormat, loaderErr)
	}
	configurationSource, sourceErr := configurationLoader.Load(configurationPath)
	if sourceErr != nil {
		return config.Root{}, fmt.Errorf(configurationLoadErrorFormat, sourceErr)
	}
	rootConfiguration, loadErr := config.LoadRoot(configurationSource)
	if loadErr != nil {
		return config.Root{}, fmt.Errorf(configurationLoadErrorFormat, loadErr)
	}
	return rootConfiguration, nil
}

// retryPolicy fills unset configuration fields with the package defaults.
func retryPolicy(settings config.Retry) retry.Policy {
	policy := retry.DefaultPolicy()
	if settings.Attempts > 0 {
		policy.MaxAttempts = settings.Attempts
	}
	if settings.InitialIntervalMillis > 0 {
		policy.InitialInterval = time.Duration(settings.InitialIntervalMillis) * time.Millisecond
	}
	if settings.MaxIntervalMillis > 0 {
		policy.MaxInterval = time.Duration(settings.MaxIntervalMillis) * time.Millisecond
	}
	if settings.Multiplier > 0 {
		policy.Multiplier = settings.Multiplier
	}
	if settings.Jitter > 0 {
		policy.Jitter = settings.Jitter
	}
	return policy
}

func newCommandLogger(writer io.Writer, root config.Root, debug bool, commandName string) (*zap.Logger, error) {
	logger, err := logging.New(writer, root.Common.Logging.Level, root.Common.Logging.Format, debug)
	if err != nil {
		return nil, fmt.Errorf(loggerInitializationErrorFormat, err)
	}
	return logger.With(zap.String("command", commandName), zap.String("run_id", uuid.NewString())), nil
}
