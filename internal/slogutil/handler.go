// Package slogutil provides the slog handler and log-file plumbing
// shared by geckocpp's entry points.
package slogutil

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Handler renders records as single lines:
//
//	2026-01-02T15:04:05.000Z INFO message key=value
//
// Attributes attached via WithAttrs are formatted once and replayed as
// a prefix on every record.
type Handler struct {
	out   io.Writer
	min   slog.Leveler
	attrs string
	scope string
	mu    *sync.Mutex
}

// NewHandler creates a Handler writing to w. Records below level are
// dropped; a nil level means info.
func NewHandler(w io.Writer, level slog.Leveler) *Handler {
	if level == nil {
		level = slog.LevelInfo
	}
	return &Handler{out: w, min: level, mu: &sync.Mutex{}}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.min.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	buf := make([]byte, 0, 128+len(h.attrs))
	buf = ts.UTC().AppendFormat(buf, "2006-01-02T15:04:05.000Z")
	buf = append(buf, ' ')
	buf = append(buf, r.Level.String()...)
	buf = append(buf, ' ')
	buf = append(buf, r.Message...)
	buf = append(buf, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		buf = appendAttr(buf, h.scope, a)
		return true
	})
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf)
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	pre := []byte(h.attrs)
	for _, a := range attrs {
		pre = appendAttr(pre, h.scope, a)
	}
	c := *h
	c.attrs = string(pre)
	return &c
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	if c.scope == "" {
		c.scope = name
	} else {
		c.scope += "." + name
	}
	return &c
}

// appendAttr writes " key=value", qualifying the key with the group
// scope and flattening group values into dotted keys.
func appendAttr(buf []byte, scope string, a slog.Attr) []byte {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		inner := scope
		if a.Key != "" {
			if inner == "" {
				inner = a.Key
			} else {
				inner += "." + a.Key
			}
		}
		for _, g := range a.Value.Group() {
			buf = appendAttr(buf, inner, g)
		}
		return buf
	}

	if a.Key == "" {
		return buf
	}
	buf = append(buf, ' ')
	if scope != "" {
		buf = append(buf, scope...)
		buf = append(buf, '.')
	}
	buf = append(buf, a.Key...)
	buf = append(buf, '=')
	return appendValue(buf, a.Value)
}

func appendValue(buf []byte, v slog.Value) []byte {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " \t\"=") {
			return strconv.AppendQuote(buf, s)
		}
		return append(buf, s...)
	case slog.KindTime:
		return v.Time().UTC().AppendFormat(buf, time.RFC3339)
	default:
		return append(buf, v.String()...)
	}
}
