// Package markdown provides analysis helpers over generated markdown:
// byte-range edits and Goldmark-backed extraction used by the distiller.
package markdown

import (
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// FirstParagraph returns the plain text of the first paragraph of a markdown
// body, or "" when the body has none. Headings are skipped.
func FirstParagraph(body []byte) string {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(body))

	var out string
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering || out != "" {
			return gmast.WalkContinue, nil
		}
		if p, ok := n.(*gmast.Paragraph); ok {
			out = nodeText(p, body)
			return gmast.WalkStop, nil
		}
		return gmast.WalkContinue, nil
	})
	return strings.TrimSpace(out)
}

// FirstSentence truncates s at the first sentence boundary.
func FirstSentence(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	for i := 0; i < len(s); i++ {
		if s[i] == '.' || s[i] == '!' || s[i] == '?' {
			if i+1 == len(s) || s[i+1] == ' ' {
				return s[:i+1]
			}
		}
	}
	return s
}

func nodeText(n gmast.Node, source []byte) string {
	var b strings.Builder
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		if t, ok := c.(*gmast.Text); ok {
			b.Write(t.Segment.Value(source))
		}
		return gmast.WalkContinue, nil
	})
	return b.String()
}
