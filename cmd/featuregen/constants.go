package featuregen

const (
	rootCommandUse   = "featuregen"
	rootCommandShort = "Generate Gherkin feature files from user stories with DeepSeek, Gemini or GPT"

	environmentPrefix = "FEATUREGEN"

	configFlagName  = "config"
	configFlagUsage = "Path to config.yaml (defaults to ./config.yaml, then ~/.featuregen/config.yaml)"

	instructionPathFlagName  = "prompt_instruction_path"
	instructionPathFlagAlias = "instruction_file"
	instructionPathFlagUsage = "Path to the prompt instruction file"
	userStoryPathFlagName    = "user_story_path"
	userStoryPathFlagUsage   = "Path to the user story file"
	apiKeyFlagName           = "api_key"
	apiKeyFlagUsage          = "Provider API key (defaults to %s)"
	outputDirFlagName        = "output_dir_path"
	outputDirFlagUsage       = "Directory the response file is written to"
	temperatureFlagName      = "temperature"
	temperatureFlagUsage     = "Sampling temperature"
	modelFlagName            = "model"
	modelFlagUsage           = "Model identifier"
	modelAllowedFlagUsage    = "Model identifier (one of: %s)"
	seedFlagName             = "seed"
	seedFlagUsage            = "Optional seed for reproducible sampling"
	debugFlagName            = "debug"
	debugFlagUsage           = "Log prompts and write every message to msg<N>.txt"
	endpointFlagName         = "endpoint"
	endpointFlagUsage        = "Override the provider base URL"

	modelsCommandUse        = "models"
	modelsCommandShort      = "List model identifiers available to the account"
	providerFlagName        = "provider"
	providerFlagUsage       = "OpenAI-compatible provider to query (gpt or deepseek)"
	defaultModelsProvider   = "gpt"
	filterFlagName          = "filter"
	filterFlagUsage         = "Only print identifiers containing this substring (defaults to \"gpt\" for gpt, none otherwise)"
	gptModelsFilter         = "gpt"
	batchCommandUse         = "batch [--only NAME] USER_STORY_PATH"
	batchCommandShort       = "Run every configured LLM against one user story"
	onlyFlagName            = "only"
	onlyFlagUsage           = "Run only the named llms[] entry"
	defaultBatchParallelism = 1

	responseSavedFormat     = "Response saved at: %s\n"
	batchResultHeaderFormat = "LLM: %s returned:\n"
	batchStartMessage       = "Running every configured LLM..."

	missingRequiredValueErrorFormat = "--%s is required"
	missingAPIKeyErrorFormat        = "--%s is required (or set %s)"
	invalidTemperatureErrorFormat   = "invalid --%s %q: %w"
	invalidSeedErrorFormat          = "invalid --%s %q: %w"
	invalidBooleanErrorFormat       = "invalid --%s value %q"
	disallowedModelErrorFormat      = "model %q is not supported by %s (allowed: %s)"
	unknownProviderErrorFormat      = "unknown provider %q"
	providerNotListableErrorFormat  = "provider %q does not expose a model listing"
	configurationLoadErrorFormat    = "load configuration: %w"
	loggerInitializationErrorFormat = "initialize logger: %w"
	completerInitErrorFormat        = "initialize %s: %w"
	generationFailedErrorFormat     = "%s generation failed: %w"
	writeOutputErrorFormat          = "write output: %w"
	listModelsErrorFormat           = "list models: %w"
	noLLMConfigurationErrorMessage  = "no LLM configuration found in llms[]"
	unknownLLMErrorFormat           = "llm %q not found in llms[]"
	missingInstructionPathFormat    = "llm %q has no instruction_path"
	batchFailedErrorFormat          = "%d of %d LLM runs failed"
)
