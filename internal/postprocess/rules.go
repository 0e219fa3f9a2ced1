package postprocess

import (
	"regexp"
	"strings"
)

// darkPalette remaps light-mode fill literals to dark-mode equivalents with a
// readable text color. Entries are full-token replacements so a remapped line
// is a fixed point of the pass.
var darkPalette = map[string]string{
	"fill:#e1f5ff": "fill:#1a3a4a,color:#e6edf3",
	"fill:#e3f2fd": "fill:#123048,color:#e6edf3",
	"fill:#e8f5e9": "fill:#14331a,color:#e6edf3",
	"fill:#fff3e0": "fill:#3d2c12,color:#e6edf3",
	"fill:#fffde7": "fill:#3a3412,color:#e6edf3",
	"fill:#f3e5f5": "fill:#331a38,color:#e6edf3",
	"fill:#ffebee": "fill:#3d1418,color:#e6edf3",
	"fill:#fce4ec": "fill:#3a1220,color:#e6edf3",
	"fill:#f5f5f5": "fill:#21262d,color:#e6edf3",
	"fill:#ffffff": "fill:#0d1117,color:#e6edf3",
	"fill:#fff":    "fill:#0d1117,color:#e6edf3",
}

// paletteToken matches a whole fill literal so the remap never rewrites a
// prefix of a longer hex (fill:#fff inside fill:#ffffff).
var paletteToken = regexp.MustCompile(`fill:#[0-9a-fA-F]+`)

var breakTag = regexp.MustCompile(`(?i)<br\s*/?>`)

// hexLiteral matches a color literal in diagram styling context.
var hexLiteral = regexp.MustCompile(`#([0-9a-fA-F]+)`)

// rewriteDiagramLine applies the diagram-region rules: palette remap,
// line-break normalization, and hex-length validation/repair.
func rewriteDiagramLine(line string, lineno int, report *Report) string {
	line = paletteToken.ReplaceAllStringFunc(line, func(tok string) string {
		if dark, ok := darkPalette[strings.ToLower(tok)]; ok {
			return dark
		}
		return tok
	})
	line = breakTag.ReplaceAllString(line, "<br/>")

	// Hex validation only applies to styling directives; a bare "#1" in node
	// text is not a color literal.
	if !strings.Contains(line, "fill:") && !strings.Contains(line, "stroke:") && !strings.Contains(line, "color:") {
		return line
	}

	return hexLiteral.ReplaceAllStringFunc(line, func(tok string) string {
		digits := tok[1:]
		switch len(digits) {
		case 3, 6:
			return tok
		case 4:
			// Drop the trailing alpha nibble.
			report.add(lineno, "hex-length", "4-digit hex literal "+tok, true)
			return "#" + digits[:3]
		case 5:
			// Extend to six digits by repeating the final nibble.
			report.add(lineno, "hex-length", "5-digit hex literal "+tok, true)
			return "#" + digits + digits[4:]
		default:
			report.add(lineno, "hex-length", "malformed hex literal "+tok, false)
			return tok
		}
	})
}

// bareGeneric matches an identifier immediately followed by an angle-bracket
// parameter list, e.g. Result<T, E> or List<string>.
var bareGeneric = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*<[A-Za-z_][A-Za-z0-9_, ]*>`)

// rewriteProse wraps bare generic-looking tokens in inline code so they are
// not read as markup. Existing inline-code spans are left alone: the line is
// walked in backtick-delimited segments and only segments outside code are
// rewritten.
func rewriteProse(line string) string {
	if !strings.Contains(line, "<") {
		return line
	}
	segments := strings.Split(line, "`")
	for i := 0; i < len(segments); i += 2 { // even indexes are outside inline code
		segments[i] = bareGeneric.ReplaceAllStringFunc(segments[i], func(tok string) string {
			return "`" + tok + "`"
		})
	}
	return strings.Join(segments, "`")
}
