package featuregen

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/temirov/featuregen/internal/config"
	"github.com/temirov/featuregen/internal/conversation"
	"github.com/temirov/featuregen/internal/fsops"
	"github.com/temirov/featuregen/internal/generation"
	"github.com/temirov/featuregen/internal/llm"
	"github.com/temirov/featuregen/internal/provider"
)

const (
	testInstructionPath = "/inputs/instruction.txt"
	testUserStoryPath   = "/inputs/story.txt"
	testOutputDir       = "/out"
	testWorkingDir      = "/work"
	testHomeDir         = "/home/tester"
)

type fakeProvider struct {
	mu          sync.Mutex
	completion  string
	err         error
	connections []generation.Connection
	settings    []generation.Settings
	received    [][]conversation.Message
}

func (f *fakeProvider) factory(_ context.Context, connection generation.Connection, settings generation.Settings) (generation.Completer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connections = append(f.connections, connection)
	f.settings = append(f.settings, settings)
	return f, nil
}

func (f *fakeProvider) Complete(_ context.Context, messages []conversation.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, messages)
	return f.completion, f.err
}

func (f *fakeProvider) factoryCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.connections)
}

type testHarness struct {
	files fsops.Mem
	env   map[string]string
	gpt   *fakeProvider
	deep  *fakeProvider
	deps  dependencies
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	for _, name := range []string{provider.GPTAPIKeyEnv, provider.DeepSeekAPIKeyEnv, provider.GeminiAPIKeyEnv, "FEATUREGEN_API_KEY", "FEATUREGEN_TEMPERATURE", "FEATUREGEN_DEBUG", "FEATUREGEN_FILTER"} {
		t.Setenv(name, "")
	}

	harness := &testHarness{
		files: fsops.NewMem(),
		env:   map[string]string{},
		gpt:   &fakeProvider{completion: "```gherkin\nFeature: X\n```"},
		deep:  &fakeProvider{completion: "Feature: raw"},
	}

	gptVariant := provider.GPTVariant()
	gptVariant.Factory = harness.gpt.factory
	deepSeekVariant := provider.DeepSeekVariant()
	deepSeekVariant.Factory = harness.deep.factory
	registry := generation.NewRegistry()
	registry.Register(gptVariant)
	registry.Register(deepSeekVariant)
	registry.Register(provider.GeminiVariant())

	harness.deps = dependencies{
		registry: registry,
		files:    harness.files,
		lookupEnv: func(name string) (string, bool) {
			value, ok := harness.env[name]
			return value, ok
		},
		newLoader: func() (config.RootConfigurationLoader, error) {
			return config.NewRootConfigurationLoaderWithFs(harness.files.Fs, testWorkingDir, testHomeDir), nil
		},
	}
	return harness
}

func (h *testHarness) writeFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(h.files.Fs, path, []byte(content), 0o644))
}

func (h *testHarness) readFile(t *testing.T, path string) string {
	t.Helper()
	content, err := afero.ReadFile(h.files.Fs, path)
	require.NoError(t, err)
	return string(content)
}

func (h *testHarness) seedInputs(t *testing.T) {
	t.Helper()
	h.writeFile(t, testInstructionPath, "  Convert to Gherkin\n")
	h.writeFile(t, testUserStoryPath, "As a user...\n")
}

func (h *testHarness) execute(args ...string) (string, string, error) {
	command := newRootCommand(h.deps)
	var stdout, stderr bytes.Buffer
	command.SetOut(&stdout)
	command.SetErr(&stderr)
	command.SetArgs(args)
	err := command.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func gptArgs(extra ...string) []string {
	return append([]string{
		"gpt",
		"--prompt_instruction_path", testInstructionPath,
		"--user_story_path", testUserStoryPath,
		"--api_key", "sk-test",
		"--output_dir_path", testOutputDir,
		"--temperature", "0.2",
		"--model", "gpt-4o",
	}, extra...)
}

func TestGPTCommandWritesStrippedFeature(t *testing.T) {
	harness := newTestHarness(t)
	harness.seedInputs(t)

	stdout, _, err := harness.execute(gptArgs("--seed", "7")...)
	require.NoError(t, err)
	assert.Equal(t, ExitCodeSuccess, ExitCode(err))

	assert.Equal(t, "Feature: X\n", harness.readFile(t, "/out/gpt_output.feature"))
	assert.Equal(t, "Feature: X\nResponse saved at: /out/gpt_output.feature\n", stdout)

	require.Len(t, harness.gpt.connections, 1)
	assert.Equal(t, "sk-test", harness.gpt.connections[0].APIKey)
	settings := harness.gpt.settings[0]
	assert.Equal(t, "gpt-4o", settings.Model)
	assert.InDelta(t, 0.2, settings.Temperature, 1e-9)
	require.NotNil(t, settings.Seed)
	assert.Equal(t, 7, *settings.Seed)

	require.Len(t, harness.gpt.received, 1)
	assert.Equal(t, []conversation.Message{
		{Role: conversation.RoleUser, Content: "  Convert to Gherkin\n"},
		{Role: conversation.RoleUser, Content: "As a user...\n"},
	}, harness.gpt.received[0])
}

func TestGPTCommandAcceptsAliasesAndHyphenatedFlags(t *testing.T) {
	harness := newTestHarness(t)
	harness.seedInputs(t)

	_, _, err := harness.execute(
		"chatgpt",
		"--instruction_file", testInstructionPath,
		"--user-story-path", testUserStoryPath,
		"--api-key", "sk-test",
		"--output-dir-path", testOutputDir,
		"--temperature", "1",
		"--model", "gpt-4o",
	)
	require.NoError(t, err)
	assert.Equal(t, "Feature: X\n", harness.readFile(t, "/out/gpt_output.feature"))
	assert.Nil(t, harness.gpt.settings[0].Seed)
}

func TestGPTCommandDebugDumpsMessages(t *testing.T) {
	harness := newTestHarness(t)
	harness.seedInputs(t)

	_, stderr, err := harness.execute(gptArgs("--debug")...)
	require.NoError(t, err)

	assert.Equal(t, "  Convert to Gherkin\n", harness.readFile(t, "/out/msg0.txt"))
	assert.Equal(t, "As a user...\n", harness.readFile(t, "/out/msg1.txt"))
	assert.Equal(t, "```gherkin\nFeature: X\n```", harness.readFile(t, "/out/msg2.txt"))
	assert.Contains(t, stderr, "run_id")
}

func TestGPTCommandResolvesEnvironment(t *testing.T) {
	harness := newTestHarness(t)
	harness.seedInputs(t)
	t.Setenv(provider.GPTAPIKeyEnv, "env-key")
	t.Setenv("FEATUREGEN_TEMPERATURE", "0.5")

	_, _, err := harness.execute(
		"gpt",
		"--prompt_instruction_path", testInstructionPath,
		"--user_story_path", testUserStoryPath,
		"--output_dir_path", testOutputDir,
		"--model", "gpt-4o",
	)
	require.NoError(t, err)
	assert.Equal(t, "env-key", harness.gpt.connections[0].APIKey)
	assert.InDelta(t, 0.5, harness.gpt.settings[0].Temperature, 1e-9)
}

func TestGPTCommandUsesConfiguredProvider(t *testing.T) {
	harness := newTestHarness(t)
	harness.seedInputs(t)
	harness.writeFile(t, "/work/config.yaml", `
common:
  timeout_seconds: 9
providers:
  - name: gpt
    endpoint: https://proxy.test/v1
    api_key_env: FEATUREGEN_TEST_CUSTOM_KEY
`)
	t.Setenv("FEATUREGEN_TEST_CUSTOM_KEY", "custom-key")

	args := gptArgs()
	args = append(args[:5], args[7:]...)
	_, _, err := harness.execute(args...)
	require.NoError(t, err)

	connection := harness.gpt.connections[0]
	assert.Equal(t, "custom-key", connection.APIKey)
	assert.Equal(t, "https://proxy.test/v1", connection.Endpoint)
	assert.Equal(t, int64(9), int64(connection.Timeout.Seconds()))
}

func TestDeepSeekCommandWritesRawResponse(t *testing.T) {
	harness := newTestHarness(t)
	harness.seedInputs(t)

	stdout, _, err := harness.execute(
		"deepseek",
		"--prompt_instruction_path", testInstructionPath,
		"--user_story_path", testUserStoryPath,
		"--api_key", "ds-key",
		"--output_dir_path", testOutputDir,
		"--temperature", "0",
		"--model", "deepseek-coder",
	)
	require.NoError(t, err)
	assert.Equal(t, "Response saved at: /out/deepseek_response.txt\n", stdout)
	assert.Equal(t, "Feature: raw", harness.readFile(t, "/out/deepseek_response.txt"))
	assert.Equal(t, []conversation.Message{
		{Role: conversation.RoleSystem, Content: "Convert to Gherkin"},
		{Role: conversation.RoleUser, Content: "As a user..."},
	}, harness.deep.received[0])
}

func TestGenerateUsageErrors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{name: "missing instruction", args: []string{"gpt", "--user_story_path", "s", "--api_key", "k", "--output_dir_path", "o", "--temperature", "0", "--model", "m"}},
		{name: "missing user story", args: []string{"gpt", "--prompt_instruction_path", "i", "--api_key", "k", "--output_dir_path", "o", "--temperature", "0", "--model", "m"}},
		{name: "missing output directory", args: []string{"gpt", "--prompt_instruction_path", "i", "--user_story_path", "s", "--api_key", "k", "--temperature", "0", "--model", "m"}},
		{name: "missing temperature", args: []string{"gpt", "--prompt_instruction_path", "i", "--user_story_path", "s", "--api_key", "k", "--output_dir_path", "o", "--model", "m"}},
		{name: "missing model", args: []string{"gpt", "--prompt_instruction_path", "i", "--user_story_path", "s", "--api_key", "k", "--output_dir_path", "o", "--temperature", "0"}},
		{name: "missing api key", args: []string{"gpt", "--prompt_instruction_path", "i", "--user_story_path", "s", "--output_dir_path", "o", "--temperature", "0", "--model", "m"}},
		{name: "malformed temperature", args: []string{"gpt", "--prompt_instruction_path", "i", "--user_story_path", "s", "--api_key", "k", "--output_dir_path", "o", "--temperature", "warm", "--model", "m"}},
		{name: "unknown flag", args: []string{"gpt", "--verbose"}},
		{name: "positional argument", args: []string{"gpt", "extra"}},
		{name: "seed on deepseek", args: []string{"deepseek", "--seed", "1"}},
		{name: "disallowed deepseek model", args: []string{"deepseek", "--prompt_instruction_path", "i", "--user_story_path", "s", "--api_key", "k", "--output_dir_path", "o", "--temperature", "0", "--model", "gpt-4o"}},
		{name: "invalid debug value", args: []string{"gpt", "--debug=maybe"}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			harness := newTestHarness(t)
			_, _, err := harness.execute(testCase.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCodeUsage, ExitCode(err), err.Error())
			assert.Zero(t, harness.gpt.factoryCalls())
			assert.Zero(t, harness.deep.factoryCalls())
		})
	}
}

func TestGenerateFailureExitsWithOne(t *testing.T) {
	testCases := []struct {
		name        string
		seed        bool
		providerErr error
		completion  string
		expected    error
	}{
		{name: "missing input file", providerErr: nil, completion: "Feature: X", expected: fsops.ErrFileNotFound},
		{name: "fatal provider error", seed: true, providerErr: &llm.HTTPStatusError{StatusCode: http.StatusUnauthorized, Body: "bad key"}},
		{name: "blank completion", seed: true, completion: "   ", expected: generation.ErrEmptyCompletion},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			harness := newTestHarness(t)
			if testCase.seed {
				harness.seedInputs(t)
			}
			harness.gpt.err = testCase.providerErr
			harness.gpt.completion = testCase.completion

			stdout, _, err := harness.execute(gptArgs()...)
			require.Error(t, err)
			assert.Equal(t, ExitCodeFailure, ExitCode(err))
			assert.Empty(t, stdout)
			if testCase.expected != nil {
				assert.ErrorIs(t, err, testCase.expected)
			}
			exists, statErr := afero.Exists(harness.files.Fs, "/out/gpt_output.feature")
			require.NoError(t, statErr)
			assert.False(t, exists)
		})
	}
}

func TestModelsCommandFiltersIdentifiers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/models", request.URL.Path)
		assert.Equal(t, "Bearer sk-test", request.Header.Get("Authorization"))
		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(`{"data":[{"id":"gpt-4o"},{"id":"whisper-1"},{"id":"gpt-4o-mini"}]}`))
	}))
	t.Cleanup(server.Close)

	harness := newTestHarness(t)
	stdout, _, err := harness.execute("models", "--endpoint", server.URL, "--api_key", "sk-test")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o\ngpt-4o-mini\n", stdout)

	stdout, _, err = harness.execute("models", "--endpoint", server.URL, "--api_key", "sk-test", "--filter", "whisper")
	require.NoError(t, err)
	assert.Equal(t, "whisper-1\n", stdout)
}

func TestModelsCommandUsageErrors(t *testing.T) {
	harness := newTestHarness(t)

	_, _, err := harness.execute("models", "--provider", "gemini", "--api_key", "k")
	assert.Equal(t, ExitCodeUsage, ExitCode(err))

	_, _, err = harness.execute("models", "--provider", "claude", "--api_key", "k")
	assert.Equal(t, ExitCodeUsage, ExitCode(err))

	_, _, err = harness.execute("models")
	assert.Equal(t, ExitCodeUsage, ExitCode(err))
}

const batchConfiguration = `
llms:
  - name: gpt-default
    provider: openai
    model: gpt-4o
    temperature: 0.1
    seed: 3
    api_key: literal-key
    instruction_path: /inputs/instruction.txt
    output_dir: /out/gpt
  - name: deepseek-chat
    provider: deepseek
    model: deepseek-chat
    api_key_env: BATCH_DEEPSEEK_KEY
    instruction_path: /inputs/instruction.txt
  - name: disabled
    provider: gpt
    model: gpt-4o
    instruction_path: /inputs/instruction.txt
    enabled: false
`

func TestBatchCommandRunsEveryEnabledEntry(t *testing.T) {
	harness := newTestHarness(t)
	harness.seedInputs(t)
	harness.writeFile(t, "/work/config.yaml", batchConfiguration)
	harness.env["BATCH_DEEPSEEK_KEY"] = "ds-from-env"

	stdout, _, err := harness.execute("batch", testUserStoryPath)
	require.NoError(t, err)
	assert.Equal(t, batchStartMessage+"\n"+
		"LLM: gpt-default returned:\n/out/gpt/gpt_output.feature\n"+
		"LLM: deepseek-chat returned:\ndeepseek-chat/deepseek_response.txt\n", stdout)

	assert.Equal(t, "Feature: X\n", harness.readFile(t, "/out/gpt/gpt_output.feature"))
	assert.Equal(t, "Feature: raw", harness.readFile(t, "deepseek-chat/deepseek_response.txt"))

	require.Len(t, harness.gpt.connections, 1)
	assert.Equal(t, "literal-key", harness.gpt.connections[0].APIKey)
	require.NotNil(t, harness.gpt.settings[0].Seed)
	assert.Equal(t, 3, *harness.gpt.settings[0].Seed)
	require.Len(t, harness.deep.connections, 1)
	assert.Equal(t, "ds-from-env", harness.deep.connections[0].APIKey)
}

func TestBatchCommandReportsFailuresAndContinues(t *testing.T) {
	harness := newTestHarness(t)
	harness.seedInputs(t)
	harness.writeFile(t, "/work/config.yaml", batchConfiguration)
	harness.gpt.err = &llm.HTTPStatusError{StatusCode: http.StatusBadRequest, Body: "bad request"}

	stdout, _, err := harness.execute("batch", testUserStoryPath)
	require.Error(t, err)
	assert.Equal(t, ExitCodeFailure, ExitCode(err))
	assert.Contains(t, err.Error(), "1 of 2 LLM runs failed")
	assert.Contains(t, stdout, "LLM: gpt-default returned:\nError: ")
	assert.Contains(t, stdout, "LLM: deepseek-chat returned:\ndeepseek-chat/deepseek_response.txt\n")
}

func TestBatchCommandOnlySelectsNamedEntry(t *testing.T) {
	harness := newTestHarness(t)
	harness.seedInputs(t)
	harness.writeFile(t, "/work/config.yaml", batchConfiguration)
	harness.env[provider.GPTAPIKeyEnv] = "vendor-key"

	stdout, _, err := harness.execute("batch", "--only", "disabled", testUserStoryPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "LLM: disabled returned:\ndisabled/gpt_output.feature\n")
	assert.Zero(t, harness.deep.factoryCalls())
	assert.Equal(t, "vendor-key", harness.gpt.connections[0].APIKey)

	_, _, err = harness.execute("batch", "--only", "missing", testUserStoryPath)
	assert.Equal(t, ExitCodeUsage, ExitCode(err))
}

func TestBatchCommandRequiresEntriesAndArgument(t *testing.T) {
	harness := newTestHarness(t)

	_, _, err := harness.execute("batch", testUserStoryPath)
	require.Error(t, err)
	assert.Equal(t, ExitCodeFailure, ExitCode(err))
	assert.Contains(t, err.Error(), noLLMConfigurationErrorMessage)

	_, _, err = harness.execute("batch")
	assert.Equal(t, ExitCodeUsage, ExitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitCodeSuccess, ExitCode(nil))
	assert.Equal(t, ExitCodeFailure, ExitCode(errors.New("boom")))
	assert.Equal(t, ExitCodeUsage, ExitCode(newUsageError(errors.New("bad flag"))))
	assert.NoError(t, newUsageError(nil))
}

func TestBatchCommandRejectsMissingExplicitConfiguration(t *testing.T) {
	harness := newTestHarness(t)
	harness.seedInputs(t)
	harness.writeFile(t, "/work/config.yaml", batchConfiguration)

	stdout, _, err := harness.execute("--config", "/typo/featuregen.yaml", "batch", testUserStoryPath)
	require.Error(t, err)
	assert.Equal(t, ExitCodeFailure, ExitCode(err))
	assert.Contains(t, err.Error(), "/typo/featuregen.yaml")
	assert.Empty(t, stdout)
	assert.Zero(t, harness.gpt.factoryCalls())
	assert.Zero(t, harness.deep.factoryCalls())
}

func TestGenerateMissingAPIKeyWithBrokenConfiguration(t *testing.T) {
	harness := newTestHarness(t)
	harness.seedInputs(t)
	harness.writeFile(t, "/work/config.yaml", "common: [")

	args := gptArgs()
	withoutKey := append(append([]string{}, args[:5]...), args[7:]...)
	_, _, err := harness.execute(withoutKey...)
	require.Error(t, err)
	assert.Equal(t, ExitCodeUsage, ExitCode(err))

	_, _, err = harness.execute(args...)
	require.Error(t, err)
	assert.Equal(t, ExitCodeFailure, ExitCode(err))
	assert.Zero(t, harness.gpt.factoryCalls())
}

func TestGenerateConfiguredKeyVariableTakesPrecedence(t *testing.T) {
	harness := newTestHarness(t)
	harness.seedInputs(t)
	harness.writeFile(t, "/work/config.yaml", `
providers:
  - name: gpt
    api_key_env: FEATUREGEN_TEST_RENAMED_KEY
`)
	t.Setenv(provider.GPTAPIKeyEnv, "vendor-key")
	t.Setenv("FEATUREGEN_TEST_RENAMED_KEY", "renamed-key")

	args := gptArgs()
	_, _, err := harness.execute(append(append([]string{}, args[:5]...), args[7:]...)...)
	require.NoError(t, err)
	assert.Equal(t, "renamed-key", harness.gpt.connections[0].APIKey)
}

func TestModelsCommandDefaultFilterDependsOnProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(`{"data":[{"id":"deepseek-chat"},{"id":"deepseek-coder"}]}`))
	}))
	t.Cleanup(server.Close)

	harness := newTestHarness(t)
	stdout, _, err := harness.execute("models", "--provider", "deepseek", "--endpoint", server.URL, "--api_key", "ds-key")
	require.NoError(t, err)
	assert.Equal(t, "deepseek-chat\ndeepseek-coder\n", stdout)

	stdout, _, err = harness.execute("models", "--provider", "deepseek", "--endpoint", server.URL, "--api_key", "ds-key", "--filter", "coder")
	require.NoError(t, err)
	assert.Equal(t, "deepseek-coder\n", stdout)
}
