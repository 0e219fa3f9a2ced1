package postprocess

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const compliantPage = "# Overview\n\nSome prose.\n\n```mermaid\ngraph TD\n  A-->B\n  style A fill:#1a3a4a,color:#e6edf3\n```\n\n*Sources:* internal/api/builds.go:10\n\nMore prose.\n"

func TestProcess_CompliantPage_IsByteIdenticalFixedPoint(t *testing.T) {
	out, report := Process(compliantPage)
	require.True(t, report.Valid())
	require.Empty(t, report.Defects)
	require.Equal(t, compliantPage, out)
}

func TestProcess_Idempotent_OnRewrittenOutput(t *testing.T) {
	in := "```mermaid\ngraph TD\n  style A fill:#e1f5ff\n```\n\n*Sources:* a.go:1\n"

	once, r1 := Process(in)
	require.True(t, r1.Valid())

	twice, r2 := Process(once)
	require.True(t, r2.Valid())
	require.Equal(t, once, twice)
}

func TestProcess_LightPalette_RemappedToDark(t *testing.T) {
	in := "```mermaid\ngraph TD\n  style A fill:#e1f5ff\n```\n\n*Sources:* a.go:1\n"

	out, report := Process(in)
	require.True(t, report.Valid())
	require.Contains(t, out, "fill:#1a3a4a,color:#e6edf3")
	require.NotContains(t, out, "#e1f5ff")
}

func TestProcess_SixDigitWhiteFill_NeverCorruptedByShorterKey(t *testing.T) {
	in := "```mermaid\ngraph TD\n  style A fill:#ffffff\n```\n\n*Sources:* a.go:1\n"

	for i := 0; i < 200; i++ {
		out, report := Process(in)
		require.True(t, report.Valid(), "run %d: %+v", i, report.Defects)
		require.Contains(t, out, "fill:#0d1117,color:#e6edf3\n")
		require.NotContains(t, out, "#e6edf3fff")
	}
}

func TestProcess_PaletteKeysSharingPrefix_EachRemappedWhole(t *testing.T) {
	// fill:#fff is a prefix of both of these literals.
	in := "```mermaid\ngraph TD\n  style A fill:#fffde7\n  style B fill:#fff\n```\n\n*Sources:* a.go:1\n"

	out, report := Process(in)
	require.True(t, report.Valid())
	require.Contains(t, out, "fill:#3a3412,color:#e6edf3")
	require.Contains(t, out, "fill:#0d1117,color:#e6edf3")
	require.NotContains(t, out, "#e6edf3de7")
}

func TestProcess_UnknownFillLiteral_LeftAlone(t *testing.T) {
	in := "```mermaid\ngraph TD\n  style A fill:#abcdef\n```\n\n*Sources:* a.go:1\n"

	out, report := Process(in)
	require.True(t, report.Valid())
	require.Contains(t, out, "fill:#abcdef")
}

func TestProcess_PaletteUntouchedInsideGenericCodeFence(t *testing.T) {
	in := "```text\nstyle A fill:#e1f5ff\n```\n"

	out, report := Process(in)
	require.True(t, report.Valid())
	require.Contains(t, out, "fill:#e1f5ff")
}

func TestProcess_MermaidLookingContentInCodeFence_NotRewritten(t *testing.T) {
	// A generic fence whose content superficially resembles a diagram opener
	// must not switch the scanner into diagram mode.
	in := "````\n```mermaid\nstyle A fill:#e1f5ff\n```\n````\n"

	out, report := Process(in)
	require.True(t, report.Valid())
	require.Contains(t, out, "fill:#e1f5ff")
}

func TestProcess_BreakTags_NormalizedInsideDiagramOnly(t *testing.T) {
	in := "prose with <br> stays\n\n```mermaid\ngraph TD\n  A[line<br>break]\n```\n\n*Sources:* a.go:1\n"

	out, report := Process(in)
	require.True(t, report.Valid())
	require.Contains(t, out, "A[line<br/>break]")
	require.Contains(t, out, "prose with <br> stays")
}

func TestProcess_BreakTags_AllCaseAndSpacingVariants(t *testing.T) {
	in := "```mermaid\ngraph TD\n  A[a<Br/>b<bR />c<BR>d<br />e]\n```\n\n*Sources:* a.go:1\n"

	out, report := Process(in)
	require.True(t, report.Valid())
	require.Contains(t, out, "A[a<br/>b<br/>c<br/>d<br/>e]")
}

func TestProcess_FourDigitHex_RepairedToThree(t *testing.T) {
	in := "```mermaid\n  style A fill:#e1f5\n```\n\n*Sources:* a.go:1\n"

	out, report := Process(in)
	require.Contains(t, out, "fill:#e1f")
	require.NotContains(t, out, "#e1f5\n")
	require.True(t, report.Valid()) // repaired, not blocking
	require.Len(t, report.Defects, 1)
	require.Equal(t, "hex-length", report.Defects[0].Rule)
	require.True(t, report.Defects[0].Repaired)
}

func TestProcess_FiveDigitHex_ExtendedToSix(t *testing.T) {
	in := "```mermaid\n  style A stroke:#abcde\n```\n\n*Sources:* a.go:1\n"

	out, report := Process(in)
	require.Contains(t, out, "stroke:#abcdee")
	require.True(t, report.Valid())
}

func TestProcess_HexLengthsAlwaysThreeOrSixAfterProcessing(t *testing.T) {
	in := "```mermaid\n  style A fill:#ab12\n  style B stroke:#abc12\n  style C color:#abc\n  style D fill:#abc123\n```\n\n*Sources:* a.go:1\n"

	out, _ := Process(in)
	for _, m := range hexLiteral.FindAllStringSubmatch(out, -1) {
		n := len(m[1])
		require.True(t, n == 3 || n == 6, "unexpected hex length %d in %q", n, m[0])
	}
}

func TestProcess_MissingSources_ReportedNotSilent(t *testing.T) {
	in := "```mermaid\ngraph TD\n  A-->B\n```\n\nJust prose, no annotation.\n"

	_, report := Process(in)
	require.False(t, report.Valid())
	require.Equal(t, "missing-sources", report.Defects[0].Rule)
}

func TestProcess_EmptySourcesAnnotation_IsMissing(t *testing.T) {
	in := "```mermaid\ngraph TD\n```\n\n*Sources:*\n"

	_, report := Process(in)
	require.False(t, report.Valid())
}

func TestProcess_DiagramAtEndOfFile_MissingSources(t *testing.T) {
	in := "```mermaid\ngraph TD\n```"

	_, report := Process(in)
	require.False(t, report.Valid())
}

func TestProcess_ConsecutiveDiagrams_SecondOpenerDoesNotSatisfyFirst(t *testing.T) {
	in := "```mermaid\ngraph TD\n```\n\n```mermaid\nsequenceDiagram\n```\n\n*Sources:* a.go:1\n"

	_, report := Process(in)
	require.False(t, report.Valid())
	count := 0
	for _, d := range report.Defects {
		if d.Rule == "missing-sources" {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestProcess_BareGenericInProse_WrappedInInlineCode(t *testing.T) {
	in := "The store returns Result<T, E> from every call.\n"

	out, report := Process(in)
	require.True(t, report.Valid())
	require.Contains(t, out, "`Result<T, E>`")
}

func TestProcess_GenericAlreadyInInlineCode_Untouched(t *testing.T) {
	in := "The store returns `Result<T, E>` from every call.\n"

	out, _ := Process(in)
	require.Equal(t, in, out)
}

func TestProcess_GenericInsideCodeFence_Untouched(t *testing.T) {
	in := "```go\nfunc Get() Result<T, E> {}\n```\n"

	out, _ := Process(in)
	require.Equal(t, in, out)
}

func TestProcess_UnterminatedDiagramFence_Reported(t *testing.T) {
	in := "```mermaid\ngraph TD\n  A-->B\n"

	_, report := Process(in)
	require.False(t, report.Valid())
	found := false
	for _, d := range report.Defects {
		if d.Rule == "unterminated-fence" {
			found = true
		}
	}
	require.True(t, found)
}

func TestProcess_TildeFences_Recognized(t *testing.T) {
	in := "~~~mermaid\ngraph TD\n  style A fill:#e1f5ff\n~~~\n\n*Sources:* a.go:1\n"

	out, report := Process(in)
	require.True(t, report.Valid())
	require.Contains(t, out, "fill:#1a3a4a")
}

func TestProcess_SourcesAfterBlankLines_Accepted(t *testing.T) {
	in := "```mermaid\ngraph TD\n```\n\n\n*Sources:* a.go:1\n"

	_, report := Process(in)
	require.True(t, report.Valid())
}

func TestProcess_PreservesLineCount(t *testing.T) {
	out, _ := Process(compliantPage)
	require.Equal(t, len(strings.Split(compliantPage, "\n")), len(strings.Split(out, "\n")))
}
