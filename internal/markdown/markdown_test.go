package markdown

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyEdits_SingleReplacement(t *testing.T) {
	out, err := ApplyEdits([]byte("hello world"), []Edit{{Start: 6, End: 11, Replacement: []byte("there")}})
	require.NoError(t, err)
	require.Equal(t, "hello there", string(out))
}

func TestApplyEdits_MultipleEditsPreserveOffsets(t *testing.T) {
	src := []byte("aaa bbb ccc")
	out, err := ApplyEdits(src, []Edit{
		{Start: 0, End: 3, Replacement: []byte("xx")},
		{Start: 8, End: 11, Replacement: []byte("yyyy")},
	})
	require.NoError(t, err)
	require.Equal(t, "xx bbb yyyy", string(out))
}

func TestApplyEdits_Overlapping_Fails(t *testing.T) {
	_, err := ApplyEdits([]byte("abcdef"), []Edit{
		{Start: 0, End: 4, Replacement: []byte("x")},
		{Start: 3, End: 6, Replacement: []byte("y")},
	})
	require.Error(t, err)
}

func TestApplyEdits_OutOfBounds_Fails(t *testing.T) {
	_, err := ApplyEdits([]byte("abc"), []Edit{{Start: 1, End: 9}})
	require.Error(t, err)
}

func TestFirstParagraph_SkipsHeading(t *testing.T) {
	body := []byte("# Title\n\nThe service synthesizes wiki pages. It has stages.\n\nMore.\n")
	require.Equal(t, "The service synthesizes wiki pages. It has stages.", FirstParagraph(body))
}

func TestFirstParagraph_Empty(t *testing.T) {
	require.Empty(t, FirstParagraph([]byte("# Only a heading\n")))
}

func TestFirstSentence_TruncatesAtBoundary(t *testing.T) {
	require.Equal(t, "The service synthesizes wiki pages.",
		FirstSentence("The service synthesizes wiki pages. It has stages."))
}

func TestFirstSentence_NoBoundary_ReturnsAll(t *testing.T) {
	require.Equal(t, "no terminator here", FirstSentence("no terminator here"))
}

func TestFirstSentence_DoesNotSplitVersionNumbers(t *testing.T) {
	require.Equal(t, "Runs on Go 1.24 toolchains.", FirstSentence("Runs on Go 1.24 toolchains. Extra."))
}
