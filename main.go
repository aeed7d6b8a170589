package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/temirov/featuregen/cmd/featuregen"
)

func main() {
	logger := zap.Must(zap.NewProduction())

	executionErr := featuregen.Execute()
	if executionErr != nil {
		logger.Error("command execution failed", zap.Error(executionErr))
		_ = logger.Sync()
		os.Exit(featuregen.ExitCode(executionErr))
	}

	syncErr := logger.Sync()
	if syncErr != nil {
		os.Exit(featuregen.ExitCodeFailure)
	}
}
