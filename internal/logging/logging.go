// Package logging builds the zap loggers used by the commands.
package logging

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"

	DefaultLevel = "info"
)

// New returns a logger writing to writer at the given level and format.
// Debug forces the debug level regardless of level.
func New(writer io.Writer, level string, format string, debug bool) (*zap.Logger, error) {
	resolvedLevel := zapcore.DebugLevel
	if !debug {
		trimmed := strings.TrimSpace(level)
		if trimmed == "" {
			trimmed = DefaultLevel
		}
		parsed, err := zapcore.ParseLevel(trimmed)
		if err != nil {
			return nil, fmt.Errorf("parse logging level %q: %w", level, err)
		}
		resolvedLevel = parsed
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatConsole, "":
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	case FormatJSON:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("unsupported logging format %q", format)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(writer)), resolvedLevel)
	return zap.New(core), nil
}
