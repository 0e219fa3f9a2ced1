package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deepwiki.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MinimalConfig_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, "site:\n  title: Widgets\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ".", cfg.Repository.Path)
	require.Equal(t, "./wiki", cfg.Output.Dir)
	require.Equal(t, "nats", cfg.Generator.Type)
	require.Equal(t, "deepwiki.generate", cfg.Generator.NATS.Subject)
	require.Equal(t, 4, cfg.Synthesis.Parallelism)
	require.Equal(t, 2*time.Second, cfg.Watch.Debounce)
	require.Equal(t, "Widgets", cfg.Site.Title)
}

func TestLoad_MissingFile_ReturnsConfigError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "configuration file not found")
}

func TestLoad_ExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("DW_REPO_URL", "https://github.com/acme/widgets")
	path := writeConfig(t, "repository:\n  url: ${DW_REPO_URL}\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "https://github.com/acme/widgets", cfg.Repository.URL)
}

func TestLoad_InvalidCitationFormat_Fails(t *testing.T) {
	path := writeConfig(t, "citations:\n  format: fancy\n")

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_InvalidGeneratorType_Fails(t *testing.T) {
	path := writeConfig(t, "generator:\n  type: carrier-pigeon\n")

	_, err := Load(path)
	require.Error(t, err)
}

func TestInit_ExistingFileWithoutForce_Fails(t *testing.T) {
	path := writeConfig(t, "site:\n  title: X\n")

	err := Init(path, false)
	require.Error(t, err)
	require.Contains(t, err.Error(), "already exists")
}

func TestInit_WritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deepwiki.yaml")
	require.NoError(t, Init(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "nats", cfg.Generator.Type)
	require.True(t, cfg.Guards.Agents)
}
