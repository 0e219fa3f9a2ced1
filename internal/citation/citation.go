// Package citation models file-and-line evidence references and their
// rendering against a resolved citation format.
package citation

import (
	"fmt"
	"strings"
)

// Kind distinguishes how precisely a citation pins its evidence.
type Kind string

const (
	// KindExact cites a concrete line or line range (path:12 or path:12-40).
	KindExact Kind = "exact"
	// KindApproximate cites a symbol when the line is not known (path:~Name).
	KindApproximate Kind = "approximate"
	// KindUnverifiable marks a claim whose evidence could not be located.
	// It renders as an explicit marker; fabricating a line number instead is
	// disallowed.
	KindUnverifiable Kind = "unverifiable"
)

// Citation is a single evidence reference.
type Citation struct {
	Path      string `json:"path"`
	Line      int    `json:"line,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
	Symbol    string `json:"symbol,omitempty"`
	Kind      Kind   `json:"kind"`
}

// Exact returns an exact citation for a single line.
func Exact(path string, line int) Citation {
	return Citation{Path: path, Line: line, Kind: KindExact}
}

// ExactRange returns an exact citation for a line range.
func ExactRange(path string, start, end int) Citation {
	return Citation{Path: path, Line: start, EndLine: end, Kind: KindExact}
}

// Approximate returns a symbol-anchored citation.
func Approximate(path, symbol string) Citation {
	return Citation{Path: path, Symbol: symbol, Kind: KindApproximate}
}

// Unverifiable returns the explicit missing-evidence marker for a path.
func Unverifiable(path string) Citation {
	return Citation{Path: path, Kind: KindUnverifiable}
}

// Ref renders the bare path:line form without any URL resolution.
func (c Citation) Ref() string {
	switch c.Kind {
	case KindApproximate:
		return fmt.Sprintf("%s:~%s", c.Path, c.Symbol)
	case KindUnverifiable:
		return fmt.Sprintf("%s (unverified)", c.Path)
	default:
		if c.EndLine > c.Line && c.Line > 0 {
			return fmt.Sprintf("%s:%d-%d", c.Path, c.Line, c.EndLine)
		}
		if c.Line > 0 {
			return fmt.Sprintf("%s:%d", c.Path, c.Line)
		}
		return c.Path
	}
}

// DistinctFiles counts the number of distinct cited paths, ignoring
// unverifiable markers.
func DistinctFiles(cs []Citation) int {
	seen := make(map[string]struct{}, len(cs))
	for _, c := range cs {
		if c.Kind == KindUnverifiable {
			continue
		}
		p := strings.TrimSpace(c.Path)
		if p == "" {
			continue
		}
		seen[p] = struct{}{}
	}
	return len(seen)
}
