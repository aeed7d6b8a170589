package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	rootConfigurationEmptyContentErrorFormat = "root configuration %s is empty"
	rootConfigurationUnmarshalErrorFormat    = "unmarshal root configuration %s: %w"
	invalidConfigurationErrorFormat          = "root configuration %s: %w"
	unsupportedLoggingFormatErrorFormat      = "unsupported common.logging.format %q"
	negativeRetryAttemptsErrorFormat         = "common.retry.attempts must not be negative, got %d"
	negativeTimeoutErrorFormat               = "common.timeout_seconds must not be negative, got %d"
	emptyProviderNameErrorMessage            = "providers[%d].name is empty"
	duplicateProviderNameErrorFormat         = "duplicate provider name %q"
	emptyLLMNameErrorFormat                  = "llms[%d].name is empty"
	duplicateLLMNameErrorFormat              = "duplicate llm name %q"
	missingLLMProviderErrorFormat            = "llm %q does not name a provider"
	missingLLMModelErrorFormat               = "llm %q does not name a model"

	loggingFormatConsole = "console"
	loggingFormatJSON    = "json"
)

// ErrInvalidConfiguration reports a configuration that parsed but failed validation.
var ErrInvalidConfiguration = errors.New("invalid configuration")

type Root struct {
	Common    Common     `yaml:"common"`
	Providers []Provider `yaml:"providers"`
	LLMs      []LLM      `yaml:"llms"`
}

type Common struct {
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Retry          Retry `yaml:"retry"`
	TimeoutSeconds int   `yaml:"timeout_seconds"`
	Batch          struct {
		Parallelism int `yaml:"parallelism"`
	} `yaml:"batch"`
}

// Retry configures the back-off applied to variants that retry.
type Retry struct {
	Attempts              int     `yaml:"attempts"`
	InitialIntervalMillis int     `yaml:"initial_interval_ms"`
	MaxIntervalMillis     int     `yaml:"max_interval_ms"`
	Multiplier            float64 `yaml:"multiplier"`
	Jitter                float64 `yaml:"jitter"`
}

// Provider overrides the endpoint or key variable of one variant.
type Provider struct {
	Name      string `yaml:"name"`
	Endpoint  string `yaml:"endpoint"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// LLM is one entry of a batch run.
type LLM struct {
	Name            string  `yaml:"name"`
	Provider        string  `yaml:"provider"`
	Model           string  `yaml:"model"`
	Temperature     float64 `yaml:"temperature"`
	Seed            *int    `yaml:"seed"`
	APIKey          string  `yaml:"api_key"`
	APIKeyEnv       string  `yaml:"api_key_env"`
	InstructionPath string  `yaml:"instruction_path"`
	OutputDir       string  `yaml:"output_dir"`
	Debug           bool    `yaml:"debug"`
	Enabled         *bool   `yaml:"enabled"`
}

// IsEnabled treats a missing enabled key as true.
func (llm LLM) IsEnabled() bool {
	return llm.Enabled == nil || *llm.Enabled
}

// LoadRoot parses the provided configuration source and validates required fields.
func LoadRoot(source RootConfigurationSource) (Root, error) {
	if len(source.Content) == 0 {
		return Root{}, fmt.Errorf(rootConfigurationEmptyContentErrorFormat, source.Reference)
	}

	var rootConfiguration Root
	if err := yaml.Unmarshal(source.Content, &rootConfiguration); err != nil {
		return Root{}, fmt.Errorf(rootConfigurationUnmarshalErrorFormat, source.Reference, err)
	}
	if err := rootConfiguration.Validate(); err != nil {
		return Root{}, fmt.Errorf(invalidConfigurationErrorFormat, source.Reference, err)
	}
	return rootConfiguration, nil
}

// Validate checks the fields the commands depend on.
func (root Root) Validate() error {
	var problems []error
	switch strings.ToLower(strings.TrimSpace(root.Common.Logging.Format)) {
	case "", loggingFormatConsole, loggingFormatJSON:
	default:
		problems = append(problems, fmt.Errorf(unsupportedLoggingFormatErrorFormat, root.Common.Logging.Format))
	}
	if root.Common.Retry.Attempts < 0 {
		problems = append(problems, fmt.Errorf(negativeRetryAttemptsErrorFormat, root.Common.Retry.Attempts))
	}
	if root.Common.TimeoutSeconds < 0 {
		problems = append(problems, fmt.Errorf(negativeTimeoutErrorFormat, root.Common.TimeoutSeconds))
	}

	providerNames := map[string]struct{}{}
	for index, provider := range root.Providers {
		name := strings.ToLower(strings.TrimSpace(provider.Name))
		if name == "" {
			problems = append(problems, fmt.Errorf(emptyProviderNameErrorMessage, index))
			continue
		}
		if _, seen := providerNames[name]; seen {
			problems = append(problems, fmt.Errorf(duplicateProviderNameErrorFormat, provider.Name))
		}
		providerNames[name] = struct{}{}
	}

	llmNames := map[string]struct{}{}
	for index, llm := range root.LLMs {
		name := strings.TrimSpace(llm.Name)
		if name == "" {
			problems = append(problems, fmt.Errorf(emptyLLMNameErrorFormat, index))
			continue
		}
		if _, seen := llmNames[name]; seen {
			problems = append(problems, fmt.Errorf(duplicateLLMNameErrorFormat, name))
		}
		llmNames[name] = struct{}{}
		if strings.TrimSpace(llm.Provider) == "" {
			problems = append(problems, fmt.Errorf(missingLLMProviderErrorFormat, name))
		}
		if strings.TrimSpace(llm.Model) == "" {
			problems = append(problems, fmt.Errorf(missingLLMModelErrorFormat, name))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfiguration, errors.Join(problems...))
}

// FindProvider matches provider names case-insensitively.
func (root Root) FindProvider(name string) (Provider, bool) {
	for _, provider := range root.Providers {
		if strings.EqualFold(strings.TrimSpace(provider.Name), strings.TrimSpace(name)) {
			return provider, true
		}
	}
	return Provider{}, false
}

func (root Root) FindLLM(name string) (LLM, bool) {
	for _, llm := range root.LLMs {
		if llm.Name == name {
			return llm, true
		}
	}
	return LLM{}, false
}

// Timeout is the per-attempt provider deadline; zero disables it.
func (common Common) Timeout() time.Duration {
	return time.Duration(common.TimeoutSeconds) * time.Second
}
