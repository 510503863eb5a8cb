package provider

import (
	"context"
	"log/slog"
	"strings"
)

// LogHandler is a slog.Handler that mirrors records at or above a level
// to the host as geckocpp/log notifications, on top of the wrapped
// handler. stdout carries the protocol, so this is how server-side events
// reach the person driving the editor.
type LogHandler struct {
	next  slog.Handler
	s     *Server
	level slog.Level
}

// NewLogHandler wraps next with host forwarding.
func NewLogHandler(next slog.Handler, s *Server, level slog.Level) *LogHandler {
	return &LogHandler{next: next, s: s, level: level}
}

// Enabled implements slog.Handler.
func (h *LogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level || h.next.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *LogHandler) Handle(ctx context.Context, rec slog.Record) error {
	if rec.Level >= h.level {
		var sb strings.Builder
		sb.WriteString(rec.Message)
		rec.Attrs(func(a slog.Attr) bool {
			sb.WriteString(" ")
			sb.WriteString(a.Key)
			sb.WriteString("=")
			sb.WriteString(a.Value.String())
			return true
		})
		_ = h.s.SendNotification("geckocpp/log", LogParams{
			Level:   rec.Level.String(),
			Message: sb.String(),
		})
	}
	if h.next.Enabled(ctx, rec.Level) {
		return h.next.Handle(ctx, rec)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogHandler{next: h.next.WithAttrs(attrs), s: h.s, level: h.level}
}

// WithGroup implements slog.Handler.
func (h *LogHandler) WithGroup(name string) slog.Handler {
	return &LogHandler{next: h.next.WithGroup(name), s: h.s, level: h.level}
}
