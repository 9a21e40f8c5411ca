package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyStage      = "stage"
	KeyDurationMS = "duration_ms"
	KeyPath       = "path"
	KeyRoute      = "route"
	KeyURL        = "url"
	KeyCategory   = "category"
	KeyCount      = "count"
	KeyCommand    = "command"
	KeySchedule   = "schedule"
	KeyOp         = "op"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Stage(name string) slog.Attr       { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr   { return slog.Float64(KeyDurationMS, ms) }
func Path(p string) slog.Attr           { return slog.String(KeyPath, p) }
func Route(r string) slog.Attr          { return slog.String(KeyRoute, r) }
func URL(u string) slog.Attr            { return slog.String(KeyURL, u) }
func Category(c string) slog.Attr       { return slog.String(KeyCategory, c) }
func Count(n int) slog.Attr             { return slog.Int(KeyCount, n) }
func Command(c string) slog.Attr        { return slog.String(KeyCommand, c) }
func Schedule(expr string) slog.Attr    { return slog.String(KeySchedule, expr) }
func Op(op string) slog.Attr            { return slog.String(KeyOp, op) }
func Elapsed(d time.Duration) slog.Attr { return DurationMS(float64(d.Microseconds()) / 1000) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
