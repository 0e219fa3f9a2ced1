package citation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRef_ExactSingleLine(t *testing.T) {
	require.Equal(t, "internal/api/builds.go:17", Exact("internal/api/builds.go", 17).Ref())
}

func TestRef_ExactRange(t *testing.T) {
	require.Equal(t, "internal/api/builds.go:17-30", ExactRange("internal/api/builds.go", 17, 30).Ref())
}

func TestRef_Approximate_UsesSymbolMarker(t *testing.T) {
	require.Equal(t, "internal/api/builds.go:~BuildHandler", Approximate("internal/api/builds.go", "BuildHandler").Ref())
}

func TestRef_Unverifiable_IsExplicit(t *testing.T) {
	require.Equal(t, "README.md (unverified)", Unverifiable("README.md").Ref())
}

func TestDistinctFiles_CountsUniquePathsOnly(t *testing.T) {
	cs := []Citation{
		Exact("a.go", 1),
		Exact("a.go", 99),
		ExactRange("b.go", 2, 8),
		Approximate("c.go", "Thing"),
		Unverifiable("d.go"), // excluded: no verified evidence
	}
	require.Equal(t, 3, DistinctFiles(cs))
}

func TestDistinctFiles_Empty(t *testing.T) {
	require.Zero(t, DistinctFiles(nil))
}
