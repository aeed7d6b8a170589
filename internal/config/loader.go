package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const (
	// EmbeddedRootConfigurationReference identifies the embedded fallback configuration source.
	EmbeddedRootConfigurationReference    = "embedded default configuration"
	explicitConfigurationReadErrorFormat  = "read explicit configuration %s: %w"
	loaderWorkingDirectoryErrorFormat     = "determine working directory: %w"
	loaderHomeEnvironmentVariableName     = "HOME"
	workingDirectoryConfigurationFileName = "config.yaml"
	homeConfigurationRelativeDirectory    = ".featuregen"
	homeConfigurationFileName             = "config.yaml"
	homeDirectoryShorthandPrefix          = "~/"
)

var (
	//go:embed default_root_configuration.yaml
	embeddedRootConfigurationBytes []byte
)

// EmbeddedRootConfiguration returns the built-in configuration source.
func EmbeddedRootConfiguration() RootConfigurationSource {
	return RootConfigurationSource{Reference: EmbeddedRootConfigurationReference, Content: embeddedRootConfigurationBytes}
}

// RootConfigurationSource holds the raw configuration data and its origin.
type RootConfigurationSource struct {
	Reference string
	Content   []byte
}

// RootConfigurationLoader locates configuration files across supported search paths.
type RootConfigurationLoader struct {
	workingDirectory string
	homeDirectory    string
	fileSystem       afero.Fs
}

// NewRootConfigurationLoader constructs a loader reading from the OS file system.
func NewRootConfigurationLoader(workingDirectory string, homeDirectory string) RootConfigurationLoader {
	return NewRootConfigurationLoaderWithFs(afero.NewOsFs(), workingDirectory, homeDirectory)
}

// NewRootConfigurationLoaderWithFs constructs a loader over an arbitrary afero file system.
func NewRootConfigurationLoaderWithFs(fileSystem afero.Fs, workingDirectory string, homeDirectory string) RootConfigurationLoader {
	return RootConfigurationLoader{
		workingDirectory: workingDirectory,
		homeDirectory:    homeDirectory,
		fileSystem:       fileSystem,
	}
}

// NewDefaultRootConfigurationLoader builds a loader using the process working directory and HOME.
func NewDefaultRootConfigurationLoader() (RootConfigurationLoader, error) {
	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		return RootConfigurationLoader{}, fmt.Errorf(loaderWorkingDirectoryErrorFormat, workingDirectoryError)
	}
	return NewRootConfigurationLoader(workingDirectory, os.Getenv(loaderHomeEnvironmentVariableName)), nil
}

type configurationCandidate struct {
	path       string
	isExplicit bool
}

// Load resolves the configuration source: the explicit path, ./config.yaml,
// ~/.featuregen/config.yaml, then the embedded default. An explicit path
// that cannot be read is an error and never falls through.
func (loader RootConfigurationLoader) Load(explicitPath string) (RootConfigurationSource, error) {
	for _, candidate := range loader.candidates(explicitPath) {
		if candidate.path == "" {
			continue
		}
		content, readError := afero.ReadFile(loader.fileSystem, candidate.path)
		if readError != nil {
			if candidate.isExplicit {
				return RootConfigurationSource{}, fmt.Errorf(explicitConfigurationReadErrorFormat, candidate.path, readError)
			}
			continue
		}
		return RootConfigurationSource{Reference: candidate.path, Content: content}, nil
	}
	return EmbeddedRootConfiguration(), nil
}

func (loader RootConfigurationLoader) candidates(explicitPath string) []configurationCandidate {
	candidates := []configurationCandidate{{path: loader.expandHome(explicitPath), isExplicit: explicitPath != ""}}
	if loader.workingDirectory != "" {
		candidates = append(candidates, configurationCandidate{
			path: filepath.Join(loader.workingDirectory, workingDirectoryConfigurationFileName),
		})
	}
	if loader.homeDirectory != "" {
		candidates = append(candidates, configurationCandidate{
			path: filepath.Join(loader.homeDirectory, homeConfigurationRelativeDirectory, homeConfigurationFileName),
		})
	}
	return candidates
}

func (loader RootConfigurationLoader) expandHome(path string) string {
	if loader.homeDirectory == "" || !strings.HasPrefix(path, homeDirectoryShorthandPrefix) {
		return path
	}
	return filepath.Join(loader.homeDirectory, strings.TrimPrefix(path, homeDirectoryShorthandPrefix))
}
