package logger

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// Setup returns a JSON logger writing to w at info level. Verbose switches to
// a console writer at debug level.
func Setup(verbose bool, w io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()

	if verbose {
		logger = logger.Output(zerolog.ConsoleWriter{Out: w, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level)
	}

	return logger
}

// WithLevel applies a configured level name ("warn", "debug", ...) to l.
// An empty name leaves l unchanged.
func WithLevel(l zerolog.Logger, name string) (zerolog.Logger, error) {
	if name == "" {
		return l, nil
	}
	level, err := zerolog.ParseLevel(name)
	if err != nil {
		return l, err
	}
	return l.Level(level), nil
}
