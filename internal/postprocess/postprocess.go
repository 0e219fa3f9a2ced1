// Package postprocess rewrites and validates generated pages for renderer
// compatibility.
//
// The pass is a line scanner with an explicit current-region tag (prose,
// diagram fence, generic code fence) rather than a flat set of regular
// expressions: rewrite rules differ per region and must never fire across
// fence boundaries. Process is pure and idempotent on compliant input.
package postprocess

import (
	"strings"

	"git.home.luguber.info/inful/deepwiki/internal/markdown"
)

// region tags the scanner state.
type region int

const (
	regionProse region = iota
	regionDiagram
	regionCode
)

// Defect is one recorded rule violation.
type Defect struct {
	Line     int    // 1-based line number in the input
	Rule     string // e.g. "hex-length", "missing-sources"
	Detail   string
	Repaired bool // true when a deterministic rewrite fixed it
}

// Report collects the outcome of one Process call.
type Report struct {
	Defects []Defect
}

// Valid reports whether the page may be emitted as-is. Repaired defects do
// not block emission; unrepaired ones (missing sources annotations,
// unrepairable hex literals) do.
func (r *Report) Valid() bool {
	for _, d := range r.Defects {
		if !d.Repaired {
			return false
		}
	}
	return true
}

func (r *Report) add(line int, rule, detail string, repaired bool) {
	r.Defects = append(r.Defects, Defect{Line: line, Rule: rule, Detail: detail, Repaired: repaired})
}

// fence tracks an open code fence.
type fence struct {
	marker byte // '`' or '~'
	length int
	indent int
}

// Process rewrites a page body and returns the result with a validation
// report. The input is never mutated: rewrites accumulate as byte-range
// edits against the original source and apply in one pass at the end.
func Process(body string) (string, *Report) {
	report := &Report{}
	lines := strings.Split(body, "\n")

	var edits []markdown.Edit
	offset := 0
	reg := regionProse
	var open fence
	var diagramClosedAt = -1 // line index of the last closed diagram fence

	for i, line := range lines {
		lineStart := offset
		offset += len(line) + 1
		rewrite := func(s string) {
			if s != line {
				edits = append(edits, markdown.Edit{
					Start:       lineStart,
					End:         lineStart + len(line),
					Replacement: []byte(s),
				})
			}
		}

		switch reg {
		case regionProse:
			if diagramClosedAt >= 0 && strings.TrimSpace(line) != "" {
				if !isSourcesAnnotation(line) {
					report.add(i+1, "missing-sources", "diagram block not followed by a sources annotation", false)
				}
				diagramClosedAt = -1
			}
			if f, info, ok := openingFence(line); ok {
				open = f
				if isDiagramInfo(info) {
					reg = regionDiagram
				} else {
					reg = regionCode
				}
				continue
			}
			rewrite(rewriteProse(line))

		case regionDiagram:
			if closesFence(line, open) {
				reg = regionProse
				diagramClosedAt = i
				continue
			}
			rewrite(rewriteDiagramLine(line, i+1, report))

		case regionCode:
			// Generic fences are never rewritten.
			if closesFence(line, open) {
				reg = regionProse
			}
		}
	}

	// Diagram closed at end of input with nothing after it.
	if diagramClosedAt >= 0 && diagramClosedAt == len(lines)-1 {
		report.add(diagramClosedAt+1, "missing-sources", "diagram block not followed by a sources annotation", false)
	}
	// Trailing blank lines only after the closing fence.
	if diagramClosedAt >= 0 && diagramClosedAt < len(lines)-1 {
		trailing := true
		for _, l := range lines[diagramClosedAt+1:] {
			if strings.TrimSpace(l) != "" {
				trailing = false
				break
			}
		}
		if trailing {
			report.add(diagramClosedAt+1, "missing-sources", "diagram block not followed by a sources annotation", false)
		}
	}
	// Unterminated diagram fence is itself a defect.
	if reg == regionDiagram {
		report.add(len(lines), "unterminated-fence", "diagram fence not closed", false)
	}

	out, err := markdown.ApplyEdits([]byte(body), edits)
	if err != nil {
		// Per-line edits never overlap; keep the input intact if they somehow do.
		return body, report
	}
	return string(out), report
}

// openingFence parses a CommonMark-style fence opener (``` or ~~~, up to
// three spaces of indent) and returns the fence plus its info string.
func openingFence(line string) (fence, string, bool) {
	indent := 0
	for indent < len(line) && line[indent] == ' ' && indent < 4 {
		indent++
	}
	if indent >= 4 || indent >= len(line) {
		return fence{}, "", false
	}
	marker := line[indent]
	if marker != '`' && marker != '~' {
		return fence{}, "", false
	}
	length := 0
	for i := indent; i < len(line) && line[i] == marker; i++ {
		length++
	}
	if length < 3 {
		return fence{}, "", false
	}
	info := strings.TrimSpace(line[indent+length:])
	// An info string containing a backtick is not a valid backtick fence.
	if marker == '`' && strings.ContainsRune(info, '`') {
		return fence{}, "", false
	}
	return fence{marker: marker, length: length, indent: indent}, info, true
}

// closesFence reports whether line closes the open fence: same marker, at
// least the opening length, and no info string.
func closesFence(line string, open fence) bool {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) >= 4 {
		return false
	}
	n := 0
	for n < len(trimmed) && trimmed[n] == open.marker {
		n++
	}
	return n >= open.length && strings.TrimSpace(trimmed[n:]) == ""
}

// isDiagramInfo matches the diagram fence info string.
func isDiagramInfo(info string) bool {
	first := info
	if idx := strings.IndexAny(info, " \t"); idx >= 0 {
		first = info[:idx]
	}
	return strings.EqualFold(first, "mermaid")
}

// isSourcesAnnotation matches the mandatory trailing citation list of a
// diagram block and requires it to be non-empty.
func isSourcesAnnotation(line string) bool {
	t := strings.TrimSpace(line)
	for _, prefix := range []string{"*Sources:*", "Sources:", "_Sources:_"} {
		if strings.HasPrefix(t, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(t, prefix)) != ""
		}
	}
	return false
}
