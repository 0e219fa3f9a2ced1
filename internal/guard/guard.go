// Package guard implements create-only-if-absent semantics for files that
// may have been hand-authored: AGENTS.md, CLAUDE.md, and the root llms.txt.
package guard

import (
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/deepwiki/internal/logfields"
)

// Outcome reports what a guarded write did.
type Outcome string

const (
	OutcomeWritten Outcome = "written"
	OutcomeSkipped Outcome = "skipped"
)

// Result is one guarded write's record for the run report.
type Result struct {
	Path    string
	Outcome Outcome
}

// WriteIfAbsent performs the single stat-then-write sequence for one guarded
// target. An existing file is never touched: the write is skipped and
// reported. True cross-process atomicity is accepted as out of scope for a
// single-operator tool.
func WriteIfAbsent(path string, content []byte) (Result, error) {
	if _, err := os.Stat(path); err == nil {
		slog.Info(filepath.Base(path)+" already exists — skipping", logfields.Path(path))
		return Result{Path: path, Outcome: OutcomeSkipped}, nil
	} else if !os.IsNotExist(err) {
		return Result{Path: path}, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Result{Path: path}, err
	}
	// Write via temp file and rename so a crashed run never leaves a partial
	// guarded file behind.
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return Result{Path: path}, err
	}
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return Result{Path: path}, err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return Result{Path: path}, err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return Result{Path: path}, err
	}

	slog.Info("Guard file created", logfields.Path(path))
	return Result{Path: path, Outcome: OutcomeWritten}, nil
}

// AgentsContent is the default body for a generated AGENTS.md.
func AgentsContent(siteTitle string) []byte {
	return []byte("# " + siteTitle + " — Agent Notes\n\n" +
		"Generated wiki pages live alongside this file. Start from llms.txt for\n" +
		"a link index or llms-full.txt for fully inlined content.\n")
}
