package api

import (
	"encoding/json"
	"fmt"

	capella "github.com/attestantio/go-eth2-client/api/v1/capella"
	deneb "github.com/attestantio/go-eth2-client/api/v1/deneb"
	electra "github.com/attestantio/go-eth2-client/api/v1/electra"
	"github.com/attestantio/go-eth2-client/spec/phase0"

	"github.com/ethpandaops/relaymux/pkg/mux"
)

// versionedBlindedBlock adapts a fork-specific signed blinded beacon block,
// decoded per the Eth-Consensus-Version header, to the narrow mux.BlindedBlock
// view needed to reconcile and forward an open-bid request.
type versionedBlindedBlock struct {
	version string
	capella *capella.SignedBlindedBeaconBlock
	deneb   *deneb.SignedBlindedBeaconBlock
	electra *electra.SignedBlindedBeaconBlock
}

// decodeBlindedBlock decodes body as a signed blinded beacon block for the
// fork named by consensusVersion.
func decodeBlindedBlock(consensusVersion string, body []byte) (mux.BlindedBlock, error) {
	switch consensusVersion {
	case "capella":
		var block capella.SignedBlindedBeaconBlock
		if err := json.Unmarshal(body, &block); err != nil {
			return nil, fmt.Errorf("failed to decode capella blinded block: %w", err)
		}

		return &versionedBlindedBlock{version: consensusVersion, capella: &block}, nil
	case "deneb":
		var block deneb.SignedBlindedBeaconBlock
		if err := json.Unmarshal(body, &block); err != nil {
			return nil, fmt.Errorf("failed to decode deneb blinded block: %w", err)
		}

		return &versionedBlindedBlock{version: consensusVersion, deneb: &block}, nil
	case "electra":
		var block electra.SignedBlindedBeaconBlock
		if err := json.Unmarshal(body, &block); err != nil {
			return nil, fmt.Errorf("failed to decode electra blinded block: %w", err)
		}

		return &versionedBlindedBlock{version: consensusVersion, electra: &block}, nil
	default:
		return nil, fmt.Errorf("unsupported consensus version %q", consensusVersion)
	}
}

func (b *versionedBlindedBlock) Slot() phase0.Slot {
	switch b.version {
	case "capella":
		return b.capella.Message.Slot
	case "deneb":
		return b.deneb.Message.Slot
	case "electra":
		return b.electra.Message.Slot
	default:
		return 0
	}
}

func (b *versionedBlindedBlock) ParentHash() phase0.Hash32 {
	switch b.version {
	case "capella":
		return b.capella.Message.Body.ExecutionPayloadHeader.ParentHash
	case "deneb":
		return b.deneb.Message.Body.ExecutionPayloadHeader.ParentHash
	case "electra":
		return b.electra.Message.Body.ExecutionPayloadHeader.ParentHash
	default:
		return phase0.Hash32{}
	}
}

func (b *versionedBlindedBlock) BlockHash() phase0.Hash32 {
	switch b.version {
	case "capella":
		return b.capella.Message.Body.ExecutionPayloadHeader.BlockHash
	case "deneb":
		return b.deneb.Message.Body.ExecutionPayloadHeader.BlockHash
	case "electra":
		return b.electra.Message.Body.ExecutionPayloadHeader.BlockHash
	default:
		return phase0.Hash32{}
	}
}

func (b *versionedBlindedBlock) ConsensusVersion() string {
	return b.version
}

func (b *versionedBlindedBlock) MarshalJSON() ([]byte, error) {
	switch b.version {
	case "capella":
		return json.Marshal(b.capella)
	case "deneb":
		return json.Marshal(b.deneb)
	case "electra":
		return json.Marshal(b.electra)
	default:
		return nil, fmt.Errorf("unsupported consensus version %q", b.version)
	}
}
