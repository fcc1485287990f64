// Package logging provides a slog.Handler whose output stays valid as
// commented text: when records share a stream with data output, every line
// of a record, including continuation lines of multi-line messages, starts
// with "#".
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// TimeFormat is the record timestamp: date, time and milliseconds after a
// comma.
const TimeFormat = "2006-01-02 15:04:05,000"

// LevelFor maps a numeric loglevel to a slog level: 0 logs errors only,
// 1 adds informational messages and 2 or more adds debug output.
func LevelFor(loglevel int) slog.Level {
	switch {
	case loglevel <= 0:
		return slog.LevelError
	case loglevel == 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// HandlerOptions configures a Handler.
type HandlerOptions struct {
	// Level is the minimum level logged. Defaults to slog.LevelInfo.
	Level slog.Leveler
	// Commented prefixes every line with "#".
	Commented bool
}

// Handler writes one text record per log call:
//
//	# 2024-03-29 13:06:33,123 INFO message key=value
//
// Continuation lines are indented so the message text lines up and, when
// commented, keep the leading "#".
type Handler struct {
	opts   HandlerOptions
	mu     *sync.Mutex
	w      io.Writer
	attrs  []slog.Attr
	groups []string
}

// NewHandler creates a Handler writing to w.
func NewHandler(w io.Writer, opts *HandlerOptions) *Handler {
	h := &Handler{mu: &sync.Mutex{}, w: w}
	if opts != nil {
		h.opts = *opts
	}

	if h.opts.Level == nil {
		h.opts.Level = slog.LevelInfo
	}

	return h
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	prefix := ""
	if h.opts.Commented {
		prefix = "# "
	}

	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	header := fmt.Sprintf("%s%s %s ", prefix,
		ts.Format(TimeFormat),
		r.Level.String(),
	)

	var b strings.Builder
	b.WriteString(header)
	b.WriteString(indentContinuation(r.Message, len(header), h.opts.Commented))

	for _, a := range h.attrs {
		writeAttr(&b, "", a)
	}

	prefixKey := strings.Join(h.groups, ".")
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, prefixKey, a)

		return true
	})

	b.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := io.WriteString(h.w, b.String())

	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := h.clone()

	prefixKey := strings.Join(h.groups, ".")
	for _, a := range attrs {
		if prefixKey != "" {
			a.Key = prefixKey + "." + a.Key
		}

		nh.attrs = append(nh.attrs, a)
	}

	return nh
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	nh := h.clone()
	nh.groups = append(nh.groups, name)

	return nh
}

func (h *Handler) clone() *Handler {
	return &Handler{
		opts:   h.opts,
		mu:     h.mu,
		w:      h.w,
		attrs:  append([]slog.Attr(nil), h.attrs...),
		groups: append([]string(nil), h.groups...),
	}
}

// indentContinuation pads every line after the first by width columns.
// Commented output keeps "#" in the first column of each padded line.
func indentContinuation(msg string, width int, commented bool) string {
	if !strings.Contains(msg, "\n") {
		return msg
	}

	pad := strings.Repeat(" ", width)
	if commented {
		pad = "#" + strings.Repeat(" ", width-1)
	}

	return strings.ReplaceAll(msg, "\n", "\n"+pad)
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}

	key := a.Key
	switch {
	case prefix != "" && key != "":
		key = prefix + "." + key
	case key == "":
		key = prefix
	}

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(b, key, ga)
		}

		return
	}

	val := a.Value.String()
	if a.Value.Kind() == slog.KindTime {
		val = a.Value.Time().Format(time.RFC3339)
	}

	if strings.ContainsAny(val, " \t\n\"=") {
		val = fmt.Sprintf("%q", val)
	}

	fmt.Fprintf(b, " %s=%s", key, val)
}
