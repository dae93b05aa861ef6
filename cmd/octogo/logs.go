package main

import (
	"context"
	"log/slog"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

// logHandler forwards library slog records to the go-tooling logger, which
// owns level filtering and encoding in the CLI.
type logHandler struct {
	attrs []slog.Attr
}

func (h logHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h logHandler) Handle(_ context.Context, r slog.Record) error {
	tags := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		tags[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		tags[a.Key] = a.Value.Any()
		return true
	})

	if r.Level >= slog.LevelWarn {
		logs.Warn(errors.New(r.Message).WithTag("attrs", tags))
		return nil
	}

	entry := logs.WithTag("attrs", tags)
	if r.Level < slog.LevelInfo {
		entry.Debug(r.Message)
		return nil
	}
	entry.Info(r.Message)
	return nil
}

func (h logHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return logHandler{attrs: append(append([]slog.Attr(nil), h.attrs...), attrs...)}
}

func (h logHandler) WithGroup(string) slog.Handler { return h }
