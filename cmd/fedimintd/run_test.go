package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fedimint-go/fedimintd/config"
	"github.com/fedimint-go/fedimintd/core"
)

func TestGenerateDefaultConfigRequiresPassword(t *testing.T) {
	dir := config.Dir{Path: t.TempDir()}
	_, err := generateDefaultConfig(dir, "")
	require.Error(t, err)
}

func TestGenerateDefaultConfigWritesSealedConfig(t *testing.T) {
	dir := config.Dir{Path: t.TempDir()}
	cfg, err := generateDefaultConfig(dir, "hunter2")
	require.NoError(t, err)
	require.Equal(t, 1, len(cfg.Peers))
	require.Contains(t, cfg.Modules, core.ModuleInstanceID(0))
	require.FileExists(t, filepath.Join(dir.Path, "config.json.enc"))
}

func TestVersionStringFallsBackToDevWithoutCommit(t *testing.T) {
	orig := gitCommit
	gitCommit = ""
	defer func() { gitCommit = orig }()
	require.Equal(t, "dev", versionString())
}

func TestVersionStringTruncatesLongCommit(t *testing.T) {
	orig := gitCommit
	gitCommit = "abcdef0123456789"
	defer func() { gitCommit = orig }()
	require.Equal(t, "abcdef01", versionString())
}
