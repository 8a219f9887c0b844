package infrastructure

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/architeacher/outboxrelay/internal/config"
)

// Logger embeds zerolog.Logger so call sites use it exactly like a
// zerolog.Logger (logger.Info().Str(...).Msg(...)) while still getting a
// named type to pass around as a dependency.
type Logger struct {
	zerolog.Logger
}

// NewLogger builds the process-wide structured logger. Level and format
// come from LoggingConfig; output is always stdout, matching how the
// relay is expected to run under a container log collector.
func NewLogger(appCfg config.AppConfig, loggingCfg config.LoggingConfig) Logger {
	level, err := zerolog.ParseLevel(loggingCfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	var logger zerolog.Logger
	if loggingCfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout})
	} else {
		logger = zerolog.New(os.Stdout)
	}

	logger = logger.With().Timestamp().Str("service", appCfg.ServiceName).Logger()

	return Logger{Logger: logger}
}
