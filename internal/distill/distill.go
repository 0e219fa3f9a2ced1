// Package distill condenses the finished catalogue and pages into llms.txt
// and llms-full.txt summary documents.
package distill

import (
	"fmt"
	"strings"

	"git.home.luguber.info/inful/deepwiki/internal/catalogue"
	"git.home.luguber.info/inful/deepwiki/internal/markdown"
	"git.home.luguber.info/inful/deepwiki/internal/wiki"
)

// SectionOrder is the fixed global section precedence. Summary output always
// follows this order regardless of catalogue or directory ordering.
var SectionOrder = []string{"Onboarding", "Architecture", "Getting Started", "Deep Dive", "Optional"}

// Entry is one leaf node's line in a summary section.
type Entry struct {
	Title       string
	URL         string
	Description string
	Body        string // set only for the full variant
}

// Section is a named ordered group of entries.
type Section struct {
	Name    string
	Entries []Entry
}

// Document is an assembled summary prior to rendering.
type Document struct {
	Title    string
	Summary  string
	Sections []Section
}

// Distiller builds summary documents from the catalogue and its pages.
type Distiller struct {
	siteTitle string
	summary   string
	pages     map[string]*wiki.Page // keyed by qualified leaf path
}

// New returns a distiller over the finished pages. Pages must have completed
// postprocessing; the distiller treats them as read-only.
func New(siteTitle, summary string, pages map[string]*wiki.Page) *Distiller {
	return &Distiller{siteTitle: siteTitle, summary: summary, pages: pages}
}

// Build assembles the summary document, walking the catalogue in stored
// order and assigning each leaf to exactly one section.
func (d *Distiller) Build(cat *catalogue.Catalogue) *Document {
	bySection := map[string][]Entry{}

	topSection := map[string]string{}
	for _, top := range cat.Items {
		topSection[top.Title] = sectionFor(top.Title)
	}
	for _, leaf := range cat.QualifiedLeaves() {
		section := topSection[strings.SplitN(leaf.Path, "/", 2)[0]]
		page, ok := d.pages[leaf.Path]
		if !ok {
			continue
		}
		bySection[section] = append(bySection[section], Entry{
			Title:       page.Frontmatter.Title,
			URL:         "./" + page.RelPath,
			Description: d.describe(page),
			Body:        page.Body,
		})
	}

	doc := &Document{Title: d.siteTitle, Summary: d.summary}
	for _, name := range SectionOrder {
		entries, ok := bySection[name]
		if !ok {
			continue
		}
		doc.Sections = append(doc.Sections, Section{Name: name, Entries: entries})
	}
	return doc
}

// RenderLinks renders the link-only llms.txt variant: title line, dense
// summary paragraph, then H2 sections with one link entry per leaf.
func (d *Document) RenderLinks() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n", d.Title, d.Summary)
	for _, s := range d.Sections {
		fmt.Fprintf(&b, "\n## %s\n\n", s.Name)
		if s.Name == "Optional" {
			b.WriteString("Supplementary material; safe to skip.\n\n")
		}
		for _, e := range s.Entries {
			fmt.Fprintf(&b, "- [%s](%s): %s\n", e.Title, e.URL, e.Description)
		}
	}
	return b.String()
}

// RenderFull renders the inlined llms-full.txt variant with complete page
// bodies, frontmatter stripped.
func (d *Document) RenderFull() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n", d.Title, d.Summary)
	for _, s := range d.Sections {
		fmt.Fprintf(&b, "\n## %s\n", s.Name)
		for _, e := range s.Entries {
			fmt.Fprintf(&b, "\n### %s\n\n%s\n", e.Title, strings.TrimRight(e.Body, "\n"))
		}
	}
	return b.String()
}

// describe produces the one-sentence entry description: the page description
// when present, else the first sentence of its first paragraph.
func (d *Distiller) describe(p *wiki.Page) string {
	if desc := strings.TrimSpace(p.Frontmatter.Description); desc != "" {
		return markdown.FirstSentence(desc)
	}
	if para := markdown.FirstParagraph([]byte(p.Body)); para != "" {
		return markdown.FirstSentence(para)
	}
	return p.Frontmatter.Title + "."
}

// sectionFor maps a top-level catalogue branch to its summary section. The
// mapping is total: unknown branches land in Optional, onboarding material
// ahead of Getting Started lands in Onboarding.
func sectionFor(topTitle string) string {
	switch topTitle {
	case "onboarding", "welcome":
		return "Onboarding"
	case "getting-started":
		return "Getting Started"
	case "architecture":
		return "Architecture"
	case "deep-dive":
		return "Deep Dive"
	default:
		return "Optional"
	}
}
