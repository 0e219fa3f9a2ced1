package wiki

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRender_EmitsDelimitedFrontmatterThenBody(t *testing.T) {
	p := &Page{
		Frontmatter: Frontmatter{Title: "Overview", Description: "What the project does."},
		Body:        "# Overview\n\nBody text.\n",
	}

	out, err := p.Render()
	require.NoError(t, err)
	require.Equal(t,
		"---\ntitle: Overview\ndescription: What the project does.\n---\n# Overview\n\nBody text.\n",
		string(out))
}

func TestParse_RoundTrip(t *testing.T) {
	p := &Page{
		Frontmatter: Frontmatter{Title: "Storage", Description: "The persistence layer."},
		Body:        "# Storage\n",
	}
	out, err := p.Render()
	require.NoError(t, err)

	fm, body, err := Parse(out)
	require.NoError(t, err)
	require.Equal(t, p.Frontmatter, fm)
	require.Equal(t, p.Body, body)
}

func TestParse_NoFrontmatter_BodyOnly(t *testing.T) {
	fm, body, err := Parse([]byte("# Title\n\nHello\n"))
	require.NoError(t, err)
	require.Zero(t, fm)
	require.Equal(t, "# Title\n\nHello\n", body)
}

func TestParse_MissingClosingDelimiter_ReturnsError(t *testing.T) {
	_, _, err := Parse([]byte("---\ntitle: X\n# no close\n"))
	require.ErrorIs(t, err, ErrMissingClosingDelimiter)
}

func TestParse_EmptyFrontmatterBlock(t *testing.T) {
	fm, body, err := Parse([]byte("---\n---\n# Title\n"))
	require.NoError(t, err)
	require.Zero(t, fm)
	require.Equal(t, "# Title\n", body)
}

func TestStripFrontmatter_DropsHeader(t *testing.T) {
	in := []byte("---\ntitle: X\ndescription: Y\n---\n# X\n")
	require.Equal(t, "# X\n", StripFrontmatter(in))
}

func TestStripFrontmatter_PassthroughWithoutHeader(t *testing.T) {
	require.Equal(t, "# X\n", StripFrontmatter([]byte("# X\n")))
}
