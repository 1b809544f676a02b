package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New builds a logger writing to out. Every entry carries the service name.
// format is "json" or "console".
func New(out io.Writer, service, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level %q: %w", level, err)
	}

	w := out
	switch format {
	case "json":
	case "console", "":
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q", format)
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", service).Logger(), nil
}

// Setup configures the process-wide logger on stderr and returns it.
func Setup(service, level, format string) (zerolog.Logger, error) {
	zerolog.TimeFieldFormat = time.RFC3339
	logger, err := New(os.Stderr, service, level, format)
	if err != nil {
		return logger, err
	}
	log.Logger = logger
	return logger, nil
}
