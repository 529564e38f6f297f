package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the service logger: human-readable console output in
// development, JSON elsewhere.
func New(environment string) zerolog.Logger {
	if environment == "development" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).Level(zerolog.DebugLevel).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).Level(zerolog.InfoLevel).With().Timestamp().Logger()
}
