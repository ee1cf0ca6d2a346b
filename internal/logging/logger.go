package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/rservers/RightClaw-Build/internal/config"
)

// NewLogger creates the process logger: JSON on stdout, tagged with the
// service name and filtered at the configured level.
func NewLogger(cfg *config.Config) zerolog.Logger {
	return New(os.Stdout, cfg.ServiceName, cfg.LogLevel)
}

// New is NewLogger with an explicit writer, used by tests and the CLI.
func New(w io.Writer, service, level string) zerolog.Logger {
	ctx := zerolog.New(w).With().Timestamp()
	if service != "" {
		ctx = ctx.Str("service", service)
	}
	logger := ctx.Logger()

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return logger.Level(lvl)
}
