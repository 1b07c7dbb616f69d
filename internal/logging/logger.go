package logging

import (
	"os"

	"github.com/rs/zerolog"

	"github.com/edvin/opsportal/internal/config"
)

// NewLogger creates a structured zerolog.Logger tagged with the service name
// and, in mock mode, a marker so synthetic data is never mistaken for real.
func NewLogger(cfg *config.Config) zerolog.Logger {
	ctx := zerolog.New(os.Stdout).With().Timestamp()

	if cfg.ServiceName != "" {
		ctx = ctx.Str("service", cfg.ServiceName)
	}
	if cfg.BackupsMock {
		ctx = ctx.Bool("backups_mock", true)
	}

	logger := ctx.Logger()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	return logger.Level(level)
}
