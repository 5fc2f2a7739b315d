package relay

import (
	"encoding/json"
	"fmt"

	builderapi "github.com/attestantio/go-builder-client/api"
	builderspec "github.com/attestantio/go-builder-client/spec"
	eth2spec "github.com/attestantio/go-eth2-client/spec"
	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/holiman/uint256"

	"github.com/ethpandaops/relaymux/pkg/mux"
)

// versionedBuilderBid adapts the wire-level attestantio/go-builder-client
// VersionedSignedBuilderBid to the narrow mux.BuilderBid view, hiding the
// per-fork field layout from the rest of the multiplexer.
type versionedBuilderBid struct {
	bid *builderspec.VersionedSignedBuilderBid
}

// wrapBuilderBid validates that bid carries a payload for its declared
// version before exposing it to the mux.
func wrapBuilderBid(bid *builderspec.VersionedSignedBuilderBid) (mux.BuilderBid, error) {
	if bid == nil {
		return nil, fmt.Errorf("nil builder bid")
	}

	switch bid.Version {
	case eth2spec.DataVersionCapella:
		if bid.Capella == nil {
			return nil, fmt.Errorf("empty capella bid")
		}
	case eth2spec.DataVersionDeneb:
		if bid.Deneb == nil {
			return nil, fmt.Errorf("empty deneb bid")
		}
	case eth2spec.DataVersionElectra:
		if bid.Electra == nil {
			return nil, fmt.Errorf("empty electra bid")
		}
	default:
		return nil, fmt.Errorf("unsupported builder bid version %s", bid.Version)
	}

	return &versionedBuilderBid{bid: bid}, nil
}

func (b *versionedBuilderBid) Value() *uint256.Int {
	switch b.bid.Version {
	case eth2spec.DataVersionCapella:
		return b.bid.Capella.Message.Value
	case eth2spec.DataVersionDeneb:
		return b.bid.Deneb.Message.Value
	case eth2spec.DataVersionElectra:
		return b.bid.Electra.Message.Value
	default:
		return uint256.NewInt(0)
	}
}

func (b *versionedBuilderBid) BuilderPublicKey() phase0.BLSPubKey {
	switch b.bid.Version {
	case eth2spec.DataVersionCapella:
		return b.bid.Capella.Message.Pubkey
	case eth2spec.DataVersionDeneb:
		return b.bid.Deneb.Message.Pubkey
	case eth2spec.DataVersionElectra:
		return b.bid.Electra.Message.Pubkey
	default:
		return phase0.BLSPubKey{}
	}
}

func (b *versionedBuilderBid) BlockHash() phase0.Hash32 {
	switch b.bid.Version {
	case eth2spec.DataVersionCapella:
		return b.bid.Capella.Message.Header.BlockHash
	case eth2spec.DataVersionDeneb:
		return b.bid.Deneb.Message.Header.BlockHash
	case eth2spec.DataVersionElectra:
		return b.bid.Electra.Message.Header.BlockHash
	default:
		return phase0.Hash32{}
	}
}

func (b *versionedBuilderBid) Signature() phase0.BLSSignature {
	switch b.bid.Version {
	case eth2spec.DataVersionCapella:
		return b.bid.Capella.Signature
	case eth2spec.DataVersionDeneb:
		return b.bid.Deneb.Signature
	case eth2spec.DataVersionElectra:
		return b.bid.Electra.Signature
	default:
		return phase0.BLSSignature{}
	}
}

func (b *versionedBuilderBid) MessageRoot() (phase0.Root, error) {
	switch b.bid.Version {
	case eth2spec.DataVersionCapella:
		return b.bid.Capella.Message.HashTreeRoot()
	case eth2spec.DataVersionDeneb:
		return b.bid.Deneb.Message.HashTreeRoot()
	case eth2spec.DataVersionElectra:
		return b.bid.Electra.Message.HashTreeRoot()
	default:
		return phase0.Root{}, fmt.Errorf("unsupported builder bid version %s", b.bid.Version)
	}
}

// MarshalJSON re-encodes the original {version, data} envelope the relay
// sent, so the proposer receives exactly what the winning relay produced.
func (b *versionedBuilderBid) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.bid)
}

// versionedAuctionContents adapts the wire-level unblinded payload
// response to mux.AuctionContents.
type versionedAuctionContents struct {
	blockHash phase0.Hash32
	wire      *builderapi.VersionedSubmitBlindedBlockResponse
}

func (a *versionedAuctionContents) BlockHash() phase0.Hash32 {
	return a.blockHash
}

func (a *versionedAuctionContents) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.wire)
}
