package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fedimint-go/fedimintd/consensus"
	"github.com/fedimint-go/fedimintd/core"
	coremodule "github.com/fedimint-go/fedimintd/core/module"
)

// PeerEndpoint is one federation member's network address, as seen by
// every other member and by clients.
type PeerEndpoint struct {
	ID      core.PeerID `json:"id"`
	APIAddr string      `json:"api_addr"`
	P2PAddr string      `json:"p2p_addr"`
}

// ServerConfig is the full document a running peer needs: its own
// identity, the rest of the federation, and every module's configuration.
// It is what gets sealed to disk under the operator's password.
type ServerConfig struct {
	Self       core.PeerID    `json:"self"`
	Peers      []PeerEndpoint `json:"peers"`
	AdminToken string         `json:"admin_token"`

	Modules map[core.ModuleInstanceID]coremodule.Config `json:"modules"`
}

// ClientConfig is the subset of ServerConfig a client needs to talk to
// the federation: no admin token, no per-peer P2P address.
type ClientConfig struct {
	Peers   []PeerEndpoint                              `json:"peers"`
	Modules map[core.ModuleInstanceID]coremodule.Config `json:"modules"`
}

// ToClientConfig strips the fields a client has no business holding.
func (c *ServerConfig) ToClientConfig() ClientConfig {
	peers := make([]PeerEndpoint, len(c.Peers))
	for i, p := range c.Peers {
		p.P2PAddr = ""
		peers[i] = p
	}
	return ClientConfig{Peers: peers, Modules: c.Modules}
}

// NumPeers is the federation size, used by modules to size their
// threshold parameters.
func (c *ServerConfig) NumPeers() int { return len(c.Peers) }

// Dir bundles the paths config-loading consults inside a data directory.
type Dir struct {
	Path string
}

func (d Dir) passwordPath() string { return filepath.Join(d.Path, PlaintextPasswordFile) }
func (d Dir) saltPath() string     { return filepath.Join(d.Path, SaltFile) }
func (d Dir) configPath() string   { return filepath.Join(d.Path, "config.json.enc") }

// Load attempts to read and unseal an existing server config from dir. A
// missing password file means the server has never been configured: Load
// returns ok=false rather than an error, and the caller is expected to
// fall into config-generation mode.
func Load(dir Dir) (cfg *ServerConfig, ok bool, err error) {
	password, err := os.ReadFile(dir.passwordPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("config: read password file: %w", err)
	}

	salt, err := os.ReadFile(dir.saltPath())
	if err != nil {
		return nil, false, fmt.Errorf("config: read salt file: %w", err)
	}

	sealed, err := os.ReadFile(dir.configPath())
	if err != nil {
		return nil, false, fmt.Errorf("config: read sealed config: %w", err)
	}

	var out ServerConfig
	if err := OpenJSON(sealed, string(password), salt, &out); err != nil {
		return nil, false, fmt.Errorf("config: unseal: %w", err)
	}
	return &out, true, nil
}

// GenerateAndSave writes a fresh salt (first run only) and seals cfg under
// password into dir. It does not write the password file itself: an
// operator who wants unattended restarts drops one in manually, matching
// the original's "make writing the password file optional" behavior.
func GenerateAndSave(dir Dir, cfg *ServerConfig, password string) error {
	if err := os.MkdirAll(dir.Path, 0o700); err != nil {
		return fmt.Errorf("config: create data dir: %w", err)
	}

	salt, err := os.ReadFile(dir.saltPath())
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("config: read salt file: %w", err)
		}
		salt, err = RandomSalt()
		if err != nil {
			return err
		}
		if err := os.WriteFile(dir.saltPath(), salt, 0o600); err != nil {
			return fmt.Errorf("config: write salt file: %w", err)
		}
	}

	sealed, err := SealJSON(cfg, password, salt)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dir.configPath(), sealed, 0o600); err != nil {
		return fmt.Errorf("config: write sealed config: %w", err)
	}
	return nil
}

// TestEnvVar is the single environment flag that switches the process
// into test-environment behavior: a faster proposer interval and
// relaxed timers, for local development and integration tests rather
// than production operation.
const TestEnvVar = "FM_TEST_ENV"

// IsTestEnv reports whether TestEnvVar is set to a non-empty value.
func IsTestEnv() bool {
	return os.Getenv(TestEnvVar) != ""
}

// ProposalInterval returns the consensus proposer's tick interval for
// the current environment.
func ProposalInterval() time.Duration {
	if IsTestEnv() {
		return consensus.TestProposalInterval
	}
	return consensus.ProposalInterval
}
