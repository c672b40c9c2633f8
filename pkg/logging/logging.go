// forge/pkg/logging/logging.go

package logging

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

var Logger zerolog.Logger

func init() {
	logLevel := zerolog.InfoLevel // Default log level
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		if level, err := zerolog.ParseLevel(envLevel); err == nil {
			logLevel = level
		}
	}

	zerolog.SetGlobalLevel(logLevel)
	Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// ConfigureLogger sets the global level and routes both the package logger and
// zerolog's global logger to the requested output ("console" or "file").
func ConfigureLogger(logLevel, logOutput string) error {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}

	switch logOutput {
	case "console":
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "3:04PM"})
	case "file":
		file, err := os.Create("logs.txt")
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		log.Logger = log.Output(file)
	default:
		return fmt.Errorf("invalid log output option %q", logOutput)
	}

	zerolog.SetGlobalLevel(level)
	Logger = log.Logger
	return nil
}
