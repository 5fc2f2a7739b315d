package config

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/attestantio/go-eth2-client/spec/phase0"
)

// NetworkParams carries the genesis-anchored constants needed to compute
// Builder-API signing domains and to drive the slot clock, for a network
// this repository knows about out of the box.
type NetworkParams struct {
	GenesisTime          time.Time
	GenesisForkVersion   phase0.Version
	GenesisValidatorRoot phase0.Root
	SecondsPerSlot       time.Duration
}

// Well-known mainnet and public testnet genesis parameters. Fork versions
// and genesis validator roots are published constants; they never change
// once a network has launched.
var knownNetworks = map[string]NetworkParams{
	NetworkMainnet: {
		GenesisTime:          time.Unix(1606824023, 0),
		GenesisForkVersion:   phase0.Version{0x00, 0x00, 0x00, 0x00},
		GenesisValidatorRoot: mustRoot("4b363db94e286120d76eb905340fdd4e54bfe9f06bf33ff6cf5ad27f511bfe95"),
		SecondsPerSlot:       12 * time.Second,
	},
	NetworkHolesky: {
		GenesisTime:          time.Unix(1695902400, 0),
		GenesisForkVersion:   phase0.Version{0x01, 0x01, 0x70, 0x00},
		GenesisValidatorRoot: mustRoot("9143aa7c615a7f7115e2b6aac319c03529df8242ae705fba9df39b79c59fa8b0"),
		SecondsPerSlot:       12 * time.Second,
	},
	NetworkSepolia: {
		GenesisTime:          time.Unix(1655733600, 0),
		GenesisForkVersion:   phase0.Version{0x90, 0x00, 0x00, 0x69},
		GenesisValidatorRoot: mustRoot("d8ea171f3c94aea21ebc42a1ed61052acf3f9209c00e4efbaaddac09ed9b8078"),
		SecondsPerSlot:       12 * time.Second,
	},
}

// LookupNetwork returns the known parameters for name, or an error if name
// is not one of the networks this repository has constants for.
func LookupNetwork(name string) (NetworkParams, error) {
	params, ok := knownNetworks[name]
	if !ok {
		return NetworkParams{}, fmt.Errorf("no built-in genesis parameters for network %q", name)
	}

	return params, nil
}

// mustRoot decodes a known-good 32-byte hex literal. It panics on a
// malformed literal, which would only ever be a bug in this file.
func mustRoot(hexStr string) phase0.Root {
	var root phase0.Root

	decoded, err := hex.DecodeString(hexStr)
	if err != nil || len(decoded) != len(root) {
		panic(fmt.Sprintf("config: malformed genesis validator root literal %q", hexStr))
	}

	copy(root[:], decoded)

	return root
}
