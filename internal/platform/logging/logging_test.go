package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen11/taskboard/internal/platform/logging"
)

// lastRecord decodes the final JSON line written to buf.
func lastRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.NotEmpty(t, lines[len(lines)-1], "nothing was logged")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &rec))
	return rec
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"Warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"warn+2":  slog.LevelWarn + 2,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, logging.ParseLevel(in), "level %q", in)
	}
}

func TestNew_LevelFiltering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level   string
		log     func(*slog.Logger)
		written bool
	}{
		{"info", func(l *slog.Logger) { l.Debug("x") }, false},
		{"info", func(l *slog.Logger) { l.Info("x") }, true},
		{"debug", func(l *slog.Logger) { l.Debug("x") }, true},
		{"error", func(l *slog.Logger) { l.Warn("x") }, false},
		{"bogus", func(l *slog.Logger) { l.Info("x") }, true},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		tt.log(logging.New(tt.level, "json", &buf))
		assert.Equal(t, tt.written, buf.Len() > 0, "level %s", tt.level)
	}
}

func TestNew_Formats(t *testing.T) {
	t.Parallel()

	var text bytes.Buffer
	logging.New("info", "text", &text).Info("task assigned")
	assert.Contains(t, text.String(), "level=INFO")
	assert.Contains(t, text.String(), `msg="task assigned"`)

	var js bytes.Buffer
	logging.New("info", "yaml", &js).Info("task assigned")
	rec := lastRecord(t, &js)
	assert.Equal(t, "INFO", rec["level"])
	assert.Equal(t, "task assigned", rec["msg"])
}

func TestNew_SourceOnlyAtDebug(t *testing.T) {
	t.Parallel()

	var debug, info bytes.Buffer
	logging.New("debug", "json", &debug).Info("x")
	logging.New("info", "json", &info).Info("x")

	assert.Contains(t, lastRecord(t, &debug), "source")
	assert.NotContains(t, lastRecord(t, &info), "source")
}

func TestNew_BaseAttributes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logging.New("info", "json", &buf,
		slog.String("service", "taskboard"), slog.String("profile", "test"))
	logger.Info("started")

	rec := lastRecord(t, &buf)
	assert.Equal(t, "taskboard", rec["service"])
	assert.Equal(t, "test", rec["profile"])
}

func TestNew_Redaction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		attr   slog.Attr
		secret string
	}{
		{"email", slog.String("email", "ada@example.com"), "ada@example.com"},
		{"authorization header", slog.String("authorization", "Bearer abc.def"), "abc.def"},
		{"password", slog.String("password", "hunter2"), "hunter2"},
		{"secret prefix", slog.String("secret_key", "s3cr3t"), "s3cr3t"},
		{"bearer in free text", slog.String("detail", "sent Bearer tok3n-value"), "tok3n-value"},
		{"inline api key", slog.String("detail", "api_key=abcd1234"), "abcd1234"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			logging.New("info", "json", &buf).Info("event", tt.attr)

			out := buf.String()
			assert.NotContains(t, out, tt.secret)
			assert.Contains(t, out, "[REDACTED]")
		})
	}
}

func TestNew_KeepsIdentifiersVisible(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logging.New("info", "json", &buf).Info("user updated",
		logging.UserID("65f1c0ffee0000000000abcd"),
		logging.TaskID("65f1c0ffee0000000000dcba"),
		slog.String("name", "Ada Lovelace"),
		slog.String("version", "1.2.3"),
	)

	rec := lastRecord(t, &buf)
	assert.Equal(t, "65f1c0ffee0000000000abcd", rec[logging.KeyUserID])
	assert.Equal(t, "65f1c0ffee0000000000dcba", rec[logging.KeyTaskID])
	assert.Equal(t, "Ada Lovelace", rec["name"])
	assert.Equal(t, "1.2.3", rec["version"])
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	assert.Same(t, slog.Default(), logging.FromContext(context.Background()))

	first := slog.New(slog.DiscardHandler)
	second := slog.New(slog.DiscardHandler)
	ctx := logging.WithLogger(context.Background(), first)
	assert.Same(t, first, logging.FromContext(ctx))
	assert.Same(t, second, logging.FromContext(logging.WithLogger(ctx, second)))
}

func TestWith_AccumulatesAttributes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := logging.WithLogger(context.Background(), logging.New("info", "json", &buf))
	ctx = logging.With(ctx, logging.Operation("TaskService.Update"))
	ctx = logging.With(ctx, logging.TaskID("t-1"))

	logging.FromContext(ctx).InfoContext(ctx, "updating task")

	rec := lastRecord(t, &buf)
	assert.Equal(t, "TaskService.Update", rec[logging.KeyOperation])
	assert.Equal(t, "t-1", rec[logging.KeyTaskID])
}

func TestHeaderAttrs(t *testing.T) {
	t.Parallel()

	attrs := logging.HeaderAttrs(http.Header{
		"Authorization": {"Bearer x"},
		"X-Api-Key":     {"k"},
		"Cookie":        {"session=abc"},
		"Accept":        {"text/plain", "application/json"},
	})

	got := make(map[string]string, len(attrs))
	for _, a := range attrs {
		got[a.Key] = a.Value.String()
	}
	assert.Equal(t, map[string]string{
		"Authorization": "[REDACTED]",
		"X-Api-Key":     "[REDACTED]",
		"Cookie":        "[REDACTED]",
		"Accept":        "text/plain,application/json",
	}, got)
}
