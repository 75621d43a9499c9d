// Package log configures structured logging for the pipeline. It wires
// log/slog's JSON handler through a wrapper that lifts cockroachdb/errors
// stack traces into a dedicated attribute, and defines the attribute keys
// used across the pipeline stages.
package log

import (
	"fmt"
	"log/slog"
	"os"
)

// Setup installs the default slog logger: JSON output on stderr with the
// given minimum level, wrapped so that errors logged via ErrAttr carry
// their stack trace in a "stacktrace" attribute.
func Setup(level string) {
	opts := slog.HandlerOptions{
		Level: ToLevel(level),
	}
	handler := slog.NewJSONHandler(os.Stderr, &opts)
	slog.SetDefault(slog.New(WrapWithStacktrace(handler)))
}

// ToLevel converts a level name to a slog.Level. Unknown names panic;
// configuration errors of this kind should stop the process immediately.
func ToLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		panic(fmt.Sprintf("invalid log level: %s", level))
	}
}

const (
	// ErrAttrKey is the attribute key errors are logged under.
	ErrAttrKey = "error"
	// StacktraceAttrKey is the attribute key the wrapped handler adds the
	// extracted stack trace under.
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr wraps an error for slog so the stacktrace handler can find it.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}
