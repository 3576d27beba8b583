// Package config loads the mediator's node identity and default session
// parameters from a TOML file, overridable by CLI flags. It resolves
// REDESIGN FLAG #5 from spec.md: the hard-coded node id and eth public key
// in the original source become configurable, defaulting to the original
// placeholder values only when nothing else supplies them.
package config

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/prekucki/gu-blender-mediator/internal/xerrors"
)

// Identity carries the values the original Rust source hard-coded as
// constants on Gateway (node_id, eth_public_key) plus operator defaults.
type Identity struct {
	NodeID       string `toml:"node_id"`
	EthPublicKey string `toml:"eth_public_key"`
	EthAddr      string `toml:"eth_addr"`
	GatewayURL   string `toml:"gw_url"`
	DavURL       string `toml:"dav_url"`
	ListenPort   uint16 `toml:"listen_port"`
}

// Default mirrors the placeholder values baked into original_source/src/gateway.rs.
// Operators are expected to override these via a config file or flags.
func Default() Identity {
	return Identity{
		NodeID:       "0xb2bbb75241939e50b5ba6f698415bbb5ca54610d",
		EthPublicKey: "bf1abe57ba441ba1b3a6ee433cf1fd6028fec6061db84272a20beb2e760314162ad00451cd84584eaed4f1fc38b394e35c36d3e54925ac13e3a751fae3a66e0e",
		ListenPort:   33433,
	}
}

// Load reads a TOML identity file at path, falling back to Default() for
// any field the file leaves zero-valued. A missing file is not an error —
// it simply means "use defaults, rely on flags".
func Load(path string) (Identity, error) {
	id := Default()
	if path == "" {
		return id, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return id, nil
	}

	var fromFile Identity
	if _, err := toml.DecodeFile(path, &fromFile); err != nil {
		return id, xerrors.Wrapf(err, "failed to decode config file %q", path)
	}

	if fromFile.NodeID != "" {
		id.NodeID = fromFile.NodeID
	}
	if fromFile.EthPublicKey != "" {
		id.EthPublicKey = fromFile.EthPublicKey
	}
	if fromFile.EthAddr != "" {
		id.EthAddr = fromFile.EthAddr
	}
	if fromFile.GatewayURL != "" {
		id.GatewayURL = fromFile.GatewayURL
	}
	if fromFile.DavURL != "" {
		id.DavURL = fromFile.DavURL
	}
	if fromFile.ListenPort != 0 {
		id.ListenPort = fromFile.ListenPort
	}
	return id, nil
}
