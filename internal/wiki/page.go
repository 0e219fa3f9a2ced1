// Package wiki models generated wiki pages and their two-field frontmatter.
package wiki

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/deepwiki/internal/citation"
)

// Frontmatter is the fixed page header schema.
type Frontmatter struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

// Page is one generated wiki page. Created by the synthesizer, rewritten in
// place by the postprocessor, read-only afterwards.
type Page struct {
	Slug        string
	RelPath     string // output path relative to the wiki root
	Frontmatter Frontmatter
	Body        string // markdown body, frontmatter excluded
	Citations   []citation.Citation
}

// ErrMissingClosingDelimiter indicates the document started with a
// frontmatter delimiter but did not contain a closing delimiter.
var ErrMissingClosingDelimiter = errors.New("frontmatter start delimiter found but closing delimiter is missing")

// Render assembles the full markdown document: delimited YAML frontmatter
// followed by the body.
func (p *Page) Render() ([]byte, error) {
	var fm bytes.Buffer
	enc := yaml.NewEncoder(&fm)
	enc.SetIndent(2)
	if err := enc.Encode(p.Frontmatter); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.WriteString("---\n")
	out.Write(fm.Bytes())
	out.WriteString("---\n")
	out.WriteString(p.Body)
	return out.Bytes(), nil
}

// Parse splits a rendered page back into frontmatter and body.
//
// A document that does not start with a frontmatter delimiter parses as a
// body-only page with empty frontmatter.
func Parse(content []byte) (Frontmatter, string, error) {
	open := []byte("---\n")
	if !bytes.HasPrefix(content, open) {
		return Frontmatter{}, string(content), nil
	}

	rest := content[len(open):]
	idx := bytes.Index(rest, []byte("\n---\n"))
	if idx < 0 {
		if bytes.HasPrefix(rest, []byte("---\n")) {
			return Frontmatter{}, string(rest[len("---\n"):]), nil
		}
		return Frontmatter{}, "", ErrMissingClosingDelimiter
	}

	var fm Frontmatter
	if err := yaml.Unmarshal(rest[:idx+1], &fm); err != nil {
		return Frontmatter{}, "", err
	}
	return fm, string(rest[idx+len("\n---\n"):]), nil
}

// StripFrontmatter returns the body of a rendered page, dropping any
// frontmatter block. Used by the full summary variant.
func StripFrontmatter(content []byte) string {
	_, body, err := Parse(content)
	if err != nil {
		return string(content)
	}
	return body
}
