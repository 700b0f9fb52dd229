// Package logging builds the service's slog logger and carries it through
// request contexts.
//
//	logger := logging.New("info", "json", os.Stderr, slog.String("service", "taskboard"))
//	ctx = logging.WithLogger(ctx, logger)
//	ctx = logging.With(ctx, logging.Operation("UserService.Delete"), logging.UserID(id))
//	logging.FromContext(ctx).ErrorContext(ctx, "delete failed", slog.Any("error", err))
//
// Error records carry the operation, the identifiers of the entities
// involved and the full error chain under "error". Request and correlation
// IDs are attached by the HTTP logging middleware.
package logging

import (
	"context"
	"io"
	"log/slog"
)

// Attribute keys used for entity identifiers across the service.
const (
	KeyOperation = "operation"
	KeyUserID    = "user_id"
	KeyTaskID    = "task_id"
)

// Operation names the unit of work a record belongs to.
func Operation(name string) slog.Attr { return slog.String(KeyOperation, name) }

// UserID identifies the user a record is about.
func UserID(id string) slog.Attr { return slog.String(KeyUserID, id) }

// TaskID identifies the task a record is about.
func TaskID(id string) slog.Attr { return slog.String(KeyTaskID, id) }

type contextKey struct{}

// New returns a logger writing to w at the given level. "text" selects the
// text handler; any other format is JSON. Source locations are included at
// debug level and below. attrs are attached to every record.
func New(level, format string, w io.Writer, attrs ...slog.Attr) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   lvl <= slog.LevelDebug,
		ReplaceAttr: newRedactAttr(),
	}

	var h slog.Handler = slog.NewJSONHandler(w, opts)
	if format == "text" {
		h = slog.NewTextHandler(w, opts)
	}
	if len(attrs) > 0 {
		h = h.WithAttrs(attrs)
	}
	return slog.New(h)
}

// ParseLevel accepts any name slog understands, case-insensitively and with
// offsets such as "warn+2". Anything else is info.
func ParseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// WithLogger returns ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the logger stored in ctx, or slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// With returns ctx carrying its logger extended with args, so everything
// logged further down the call chain shares them.
func With(ctx context.Context, args ...any) context.Context {
	return WithLogger(ctx, FromContext(ctx).With(args...))
}
