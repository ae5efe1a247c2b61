package logger

import (
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	defaultLogger zerolog.Logger
	once          sync.Once
)

// Init initializes the default logger writing JSON to stdout.
// It ensures that the logger is initialized only once.
func Init() {
	once.Do(func() {
		level := zerolog.InfoLevel
		if os.Getenv("LONGFORM_DEBUG") != "" {
			level = zerolog.DebugLevel
		}
		defaultLogger = zerolog.New(os.Stdout).
			Level(level).
			With().
			Timestamp().
			Logger()
		defaultLogger.Info().Msg("Logger initialized")
	})
}

// Get returns the initialized default logger.
// It calls Init() to ensure the logger is ready before returning it.
func Get() zerolog.Logger {
	Init()
	return defaultLogger
}

// Info logs an informational message using the default logger.
func Info(msg string, args ...any) {
	l := Get()
	l.Info().Fields(fields(args)).Msg(msg)
}

// Warn logs a warning message using the default logger.
func Warn(msg string, args ...any) {
	l := Get()
	l.Warn().Fields(fields(args)).Msg(msg)
}

// Error logs an error message using the default logger.
func Error(msg string, err error, args ...any) {
	l := Get()
	l.Error().Err(err).Fields(fields(args)).Msg(msg)
}

// Debug logs a debug message using the default logger.
func Debug(msg string, args ...any) {
	l := Get()
	l.Debug().Fields(fields(args)).Msg(msg)
}

// fields converts alternating key/value args into a zerolog fields map.
func fields(args []any) map[string]any {
	if len(args) == 0 {
		return nil
	}
	m := make(map[string]any, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		m[key] = args[i+1]
	}
	return m
}
