package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build.id"
	KeyRenderer   = "renderer"
	KeyStage      = "stage"
	KeyKind       = "kind"
	KeyCommand    = "command"
	KeyMode       = "mode"
	KeyExitCode   = "exit_code"
	KeyPath       = "path"
	KeyDurationMS = "duration_ms"
	KeyCount      = "count"
	KeyError      = "error"
)

func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Renderer(name string) slog.Attr  { return slog.String(KeyRenderer, name) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Kind(k string) slog.Attr         { return slog.String(KeyKind, k) }
func Command(cmd string) slog.Attr    { return slog.String(KeyCommand, cmd) }
func Mode(m string) slog.Attr         { return slog.String(KeyMode, m) }
func ExitCode(code int) slog.Attr     { return slog.Int(KeyExitCode, code) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
