package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyStage      = "stage"
	KeyNode       = "node"
	KeyPage       = "page"
	KeyTier       = "tier"
	KeySection    = "section"
	KeyPath       = "path"
	KeyDurationMS = "duration_ms"
	KeyFiles      = "files"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Node(slug string) slog.Attr      { return slog.String(KeyNode, slug) }
func Page(path string) slog.Attr      { return slog.String(KeyPage, path) }
func Tier(t string) slog.Attr         { return slog.String(KeyTier, t) }
func Section(s string) slog.Attr      { return slog.String(KeySection, s) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Files(n int) slog.Attr           { return slog.Int(KeyFiles, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
