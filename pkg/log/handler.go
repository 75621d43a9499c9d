package log

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
)

// StacktraceHandler is an slog handler that detects errors logged under
// ErrAttrKey and appends their cockroachdb/errors stack trace as a separate
// attribute, keeping the message itself readable.
type StacktraceHandler struct {
	handler slog.Handler
}

// WrapWithStacktrace wraps an slog handler with stack trace extraction.
func WrapWithStacktrace(handler slog.Handler) slog.Handler {
	return &StacktraceHandler{handler: handler}
}

func (h *StacktraceHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.handler.Enabled(ctx, l)
}

func (h *StacktraceHandler) Handle(ctx context.Context, r slog.Record) error {
	var stacktrace string
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key == ErrAttrKey {
			if err, ok := attr.Value.Any().(error); ok {
				stacktrace = extractStacktrace(err)
			}
			return false
		}
		return true
	})
	if stacktrace != "" {
		r.AddAttrs(slog.String(StacktraceAttrKey, stacktrace))
	}
	return h.handler.Handle(ctx, r)
}

func (h *StacktraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &StacktraceHandler{handler: h.handler.WithAttrs(attrs)}
}

func (h *StacktraceHandler) WithGroup(g string) slog.Handler {
	return &StacktraceHandler{handler: h.handler.WithGroup(g)}
}

func extractStacktrace(err error) string {
	details := errors.GetSafeDetails(err).SafeDetails
	if len(details) > 0 {
		return details[0]
	}
	return ""
}
