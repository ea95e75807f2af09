package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fedimint-go/fedimintd/consensus"
	"github.com/fedimint-go/fedimintd/core"
	coremodule "github.com/fedimint-go/fedimintd/core/module"
)

func TestLoadReturnsNotOkWhenPasswordFileAbsent(t *testing.T) {
	dir := Dir{Path: t.TempDir()}
	cfg, ok, err := Load(dir)
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, cfg)
}

func TestGenerateAndSaveThenLoadRoundTrips(t *testing.T) {
	dir := Dir{Path: t.TempDir()}

	want := &ServerConfig{
		Self: 0,
		Peers: []PeerEndpoint{
			{ID: 0, APIAddr: "127.0.0.1:7000", P2PAddr: "127.0.0.1:7001"},
			{ID: 1, APIAddr: "127.0.0.1:7100", P2PAddr: "127.0.0.1:7101"},
		},
		AdminToken: "s3cret-token",
		Modules: map[core.ModuleInstanceID]coremodule.Config{
			0: {Kind: "example", Cfg: []byte(`{}`)},
		},
	}

	require.NoError(t, GenerateAndSave(dir, want, "hunter2"))

	// Without a password file, Load still reports not-ok: GenerateAndSave
	// intentionally never writes one.
	_, ok, err := Load(dir)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, os.WriteFile(filepath.Join(dir.Path, PlaintextPasswordFile), []byte("hunter2"), 0o600))

	got, ok, err := Load(dir)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, want.Self, got.Self)
	require.Equal(t, want.Peers, got.Peers)
	require.Equal(t, want.AdminToken, got.AdminToken)
}

func TestLoadFailsWithWrongPassword(t *testing.T) {
	dir := Dir{Path: t.TempDir()}
	cfg := &ServerConfig{Self: 0}
	require.NoError(t, GenerateAndSave(dir, cfg, "right-password"))
	require.NoError(t, os.WriteFile(filepath.Join(dir.Path, PlaintextPasswordFile), []byte("wrong-password"), 0o600))

	_, _, err := Load(dir)
	require.Error(t, err)
}

func TestGenerateAndSaveReusesExistingSalt(t *testing.T) {
	dir := Dir{Path: t.TempDir()}
	cfg := &ServerConfig{Self: 0}
	require.NoError(t, GenerateAndSave(dir, cfg, "pw"))

	salt1, err := os.ReadFile(filepath.Join(dir.Path, SaltFile))
	require.NoError(t, err)

	require.NoError(t, GenerateAndSave(dir, cfg, "pw"))
	salt2, err := os.ReadFile(filepath.Join(dir.Path, SaltFile))
	require.NoError(t, err)

	require.Equal(t, salt1, salt2)
}

func TestSealOpenJSONRoundTrip(t *testing.T) {
	salt, err := RandomSalt()
	require.NoError(t, err)

	type payload struct{ A, B int }
	want := payload{A: 1, B: 2}

	sealed, err := SealJSON(want, "pw", salt)
	require.NoError(t, err)

	var got payload
	require.NoError(t, OpenJSON(sealed, "pw", salt, &got))
	require.Equal(t, want, got)

	require.Error(t, OpenJSON(sealed, "wrong", salt, &got))
}

func TestProposalIntervalHonorsTestEnvVar(t *testing.T) {
	require.NoError(t, os.Unsetenv(TestEnvVar))
	require.False(t, IsTestEnv())
	require.Equal(t, consensus.ProposalInterval, ProposalInterval())

	require.NoError(t, os.Setenv(TestEnvVar, "1"))
	defer os.Unsetenv(TestEnvVar)
	require.True(t, IsTestEnv())
	require.Equal(t, consensus.TestProposalInterval, ProposalInterval())
}
