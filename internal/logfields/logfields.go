package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyApp        = "app"
	KeyStage      = "stage"
	KeyTool       = "tool"
	KeyPath       = "path"
	KeyBuildID    = "build_id"
	KeyRevision   = "revision"
	KeyOutcome    = "outcome"
	KeyDurationMS = "duration_ms"
	KeyExitCode   = "exit_code"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func App(name string) slog.Attr       { return slog.String(KeyApp, name) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Tool(name string) slog.Attr      { return slog.String(KeyTool, name) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func Revision(rev string) slog.Attr   { return slog.String(KeyRevision, rev) }
func Outcome(o string) slog.Attr      { return slog.String(KeyOutcome, o) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func ExitCode(code int) slog.Attr     { return slog.Int(KeyExitCode, code) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
