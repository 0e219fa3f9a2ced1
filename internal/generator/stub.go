package generator

import (
	"context"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/deepwiki/internal/citation"
)

// diagramKinds is the fixed diagram enumeration in emission order.
var diagramKinds = []struct {
	kind   string
	header string
}{
	{"architecture-graph", "graph TD\n  A[Entry] --> B[Core]\n  B --> C[Storage]"},
	{"sequence", "sequenceDiagram\n  Caller->>Service: request\n  Service-->>Caller: response"},
	{"flowchart", "flowchart LR\n  S[Start] --> D{Decision} --> E[End]"},
	{"class", "classDiagram\n  class Component {\n    +Run()\n  }"},
	{"state", "stateDiagram-v2\n  [*] --> Running\n  Running --> [*]"},
	{"entity-relation", "erDiagram\n  OWNER ||--o{ ITEM : owns"},
}

// Stub is a deterministic in-process Generator used by tests and dry runs.
// It emits a draft that satisfies the requested budget whenever enough files
// are available to cite.
type Stub struct{}

// Generate produces a synthetic but structurally complete draft.
func (Stub) Generate(_ context.Context, req Request) (*Draft, error) {
	files := req.Files
	cites := make([]citation.Citation, 0, len(files))
	for i, f := range files {
		cites = append(cites, citation.Exact(f, i+1))
		if len(cites) >= 8 {
			break
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", displayTitle(req.Slug))
	fmt.Fprintf(&b, "This page covers the %s area of the repository in depth.\n\n", req.Slug)

	diagrams := req.Diagrams
	if diagrams < 1 {
		diagrams = 1
	}
	for i := 0; i < diagrams; i++ {
		d := diagramKinds[i%len(diagramKinds)]
		fmt.Fprintf(&b, "```mermaid\n%s\n```\n\n", d.header)
		src := "README.md:1"
		if len(cites) > 0 {
			src = cites[i%len(cites)].Ref()
		}
		fmt.Fprintf(&b, "*Sources:* %s\n\n", src)
	}

	b.WriteString("| Concern | Location |\n|---|---|\n")
	for _, c := range cites {
		fmt.Fprintf(&b, "| %s | %s |\n", c.Path, c.Ref())
	}
	b.WriteString("\n")

	// Pad prose to the word floor.
	words := wordCount(b.String())
	for words < req.MinWords {
		b.WriteString("The implementation keeps responsibilities separated across packages and documents each boundary with concrete evidence from the tree.\n\n")
		words += 19
	}

	return &Draft{
		Title:       displayTitle(req.Slug),
		Description: fmt.Sprintf("Generated documentation for %s.", req.Slug),
		Body:        b.String(),
		Citations:   cites,
	}, nil
}

func displayTitle(slug string) string {
	words := strings.Split(slug, "-")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

func wordCount(s string) int { return len(strings.Fields(s)) }
