package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// setupLogger creates a logger with the specified configuration
func setupLogger(logFile, logLevel, format string) zerolog.Logger {
	// Parse log level
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil || logLevel == "" {
		level = zerolog.InfoLevel
	}

	// Set up output
	var output io.Writer = os.Stderr
	toStderr := true
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		} else {
			output = f
			toStderr = false
		}
	}

	// Use pretty console output unless JSON was asked for
	if format != "json" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339, NoColor: !toStderr}
	}

	// Create logger
	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// geniusLogger adapts zerolog to the Genius client's Logger.
type geniusLogger struct {
	logger zerolog.Logger
}

func (l geniusLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}
