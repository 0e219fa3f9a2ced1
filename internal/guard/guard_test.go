package guard

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteIfAbsent_NewFile_Written(t *testing.T) {
	path := filepath.Join(t.TempDir(), "AGENTS.md")

	res, err := WriteIfAbsent(path, []byte("generated\n"))
	require.NoError(t, err)
	require.Equal(t, OutcomeWritten, res.Outcome)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "generated\n", string(data))
}

func TestWriteIfAbsent_ExistingFile_ByteIdenticalAndSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "AGENTS.md")
	original := []byte("hand-authored content X\n")
	require.NoError(t, os.WriteFile(path, original, 0o644))

	res, err := WriteIfAbsent(path, []byte("generated replacement\n"))
	require.NoError(t, err)
	require.Equal(t, OutcomeSkipped, res.Outcome)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, original, after)
}

func TestWriteIfAbsent_SkipLogged(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "AGENTS.md")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	_, err := WriteIfAbsent(path, []byte("y"))
	require.NoError(t, err)
	require.Contains(t, buf.String(), "AGENTS.md already exists — skipping")
}

func TestWriteIfAbsent_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pkg", "sub", "CLAUDE.md")

	res, err := WriteIfAbsent(path, []byte("notes\n"))
	require.NoError(t, err)
	require.Equal(t, OutcomeWritten, res.Outcome)
	require.FileExists(t, path)
}

func TestWriteIfAbsent_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "llms.txt")

	_, err := WriteIfAbsent(path, []byte("index\n"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
