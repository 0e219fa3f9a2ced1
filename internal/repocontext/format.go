package repocontext

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/deepwiki/internal/citation"
)

// FormatKind selects how citations are rendered in generated pages.
type FormatKind string

const (
	// FormatLocal renders citations as bare path:line references.
	FormatLocal FormatKind = "local"
	// FormatLinked renders citations as markdown links against the resolved
	// remote and branch.
	FormatLinked FormatKind = "linked"
)

// CitationFormat is resolved once per run and consumed everywhere citations
// are rendered. Immutable after resolution.
type CitationFormat struct {
	Kind   FormatKind
	Remote string // normalized https web URL, only set for FormatLinked
	Branch string
}

// Render produces the markdown form of a citation under this format.
//
// Linked exact citations become [path:line](remote/blob/branch/path#Lline);
// approximate and unverifiable citations never carry a line fragment.
func (f CitationFormat) Render(c citation.Citation) string {
	ref := c.Ref()
	if f.Kind != FormatLinked || c.Kind == citation.KindUnverifiable {
		return ref
	}
	url := fmt.Sprintf("%s/blob/%s/%s", strings.TrimSuffix(f.Remote, "/"), f.Branch, c.Path)
	if c.Kind == citation.KindExact && c.Line > 0 {
		if c.EndLine > c.Line {
			url += fmt.Sprintf("#L%d-L%d", c.Line, c.EndLine)
		} else {
			url += fmt.Sprintf("#L%d", c.Line)
		}
	}
	return fmt.Sprintf("[%s](%s)", ref, url)
}
