// Package logging builds the JSON line logger shared by every component.
package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"
)

// New returns a logger writing one JSON object per line to w.
// Timestamps are emitted under "ts" in loc and levels are lowercase, e.g.
//
//	{"ts":"2024-11-10T10:00:00+07:00","level":"info","msg":"grant_issued","component":"grant"}
func New(w io.Writer, loc *time.Location) *slog.Logger {
	if loc == nil {
		loc = time.UTC
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				return slog.String("ts", a.Value.Time().In(loc).Format(time.RFC3339Nano))
			case slog.LevelKey:
				return slog.String(slog.LevelKey, strings.ToLower(a.Value.String()))
			}
			return a
		},
	})
	return slog.New(h)
}

// Discard returns a logger that drops everything. Intended for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
