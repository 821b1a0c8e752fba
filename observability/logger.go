package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// NewLogger creates a structured logger. Defaults are info level and a text
// handler on stderr so stdout stays free for the error report.
func NewLogger(config LoggingConfig) *slog.Logger {
	return slog.New(NewHandler(config, nil))
}

// NewHandler builds the handler for config. A non-nil writer overrides
// config.Output.
func NewHandler(config LoggingConfig, writer io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(config.Level),
	}

	output := writer
	if output == nil {
		switch strings.ToLower(config.Output) {
		case "stdout":
			output = os.Stdout
		default:
			output = os.Stderr
		}
	}

	switch strings.ToLower(config.Format) {
	case "json":
		return slog.NewJSONHandler(output, opts)
	default:
		return slog.NewTextHandler(output, opts)
	}
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
