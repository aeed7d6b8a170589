// Package featuregen implements the featuregen command line.
package featuregen

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/temirov/featuregen/internal/config"
	"github.com/temirov/featuregen/internal/fsops"
	"github.com/temirov/featuregen/internal/generation"
	"github.com/temirov/featuregen/internal/provider"
)

const (
	ExitCodeSuccess = 0
	ExitCodeFailure = 1
	ExitCodeUsage   = 2
)

// usageError marks failures caused by how the command was invoked.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }

func (e usageError) Unwrap() error { return e.err }

func newUsageError(err error) error {
	if err == nil {
		return nil
	}
	return usageError{err: err}
}

// ExitCode maps the result of Execute to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}
	var usage usageError
	if errors.As(err, &usage) {
		return ExitCodeUsage
	}
	return ExitCodeFailure
}

type dependencies struct {
	registry   *generation.Registry
	files      fsops.FS
	httpClient *http.Client
	lookupEnv  func(string) (string, bool)
	newLoader  func() (config.RootConfigurationLoader, error)
}

func defaultDependencies() dependencies {
	return dependencies{
		registry:  provider.NewRegistry(),
		files:     fsops.OS{},
		lookupEnv: os.LookupEnv,
		newLoader: config.NewDefaultRootConfigurationLoader,
	}
}

// Execute runs the featuregen command tree against os.Args. An interrupt
// cancels the in-flight provider call.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCommand(defaultDependencies()).ExecuteContext(ctx)
}

func newRootCommand(deps dependencies) *cobra.Command {
	var configPath string

	command := &cobra.Command{
		Use:           rootCommandUse,
		Short:         rootCommandShort,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	command.PersistentFlags().StringVar(&configPath, configFlagName, "", configFlagUsage)
	command.SetGlobalNormalizationFunc(normalizeFlagName)
	command.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return newUsageError(err)
	})

	for _, name := range deps.registry.Names() {
		variant, _ := deps.registry.Lookup(name)
		command.AddCommand(newGenerateCommand(variant, deps, &configPath))
	}
	command.AddCommand(newModelsCommand(deps, &configPath))
	command.AddCommand(newBatchCommand(deps, &configPath))
	return command
}

// normalizeFlagName accepts hyphenated spellings and the legacy
// --instruction_file name.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	normalized := strings.ReplaceAll(name, "-", "_")
	if normalized == instructionPathFlagAlias {
		normalized = instructionPathFlagName
	}
	return pflag.NormalizedName(normalized)
}
