// Package mux implements the relay multiplexer core: bid collection,
// ranking, outstanding-bid bookkeeping, and payload reconciliation across
// a fixed set of external block-building relays.
package mux

import (
	"context"

	apiv1 "github.com/attestantio/go-eth2-client/api/v1"
	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/holiman/uint256"
)

// AuctionRequest fingerprints one auction round. The validator's blinded
// block does not echo the proposer public key, so the mux must reconstruct
// this same key from latched state to reconcile an open-bid call with the
// outstanding entry its matching fetch-best-bid call created.
type AuctionRequest struct {
	Slot           phase0.Slot
	ParentHash     phase0.Hash32
	ProposerPubkey phase0.BLSPubKey
}

// BuilderBid is the narrow view the mux needs of a versioned signed
// builder bid, independent of fork.
type BuilderBid interface {
	Value() *uint256.Int
	BuilderPublicKey() phase0.BLSPubKey
	BlockHash() phase0.Hash32
	Signature() phase0.BLSSignature
	// MessageRoot returns the hash tree root of the bid's unsigned message,
	// the object root the builder domain signing root is derived from.
	MessageRoot() (phase0.Root, error)
	// MarshalJSON re-encodes the original versioned wire object, so the
	// Builder-API server can hand the winning bid straight back to the
	// proposer without reconstructing it from the narrow view above.
	MarshalJSON() ([]byte, error)
}

// BlindedBlock is the narrow view of a signed blinded beacon block needed
// to reconcile an open-bid request with its outstanding auction and to
// forward the block on to the winning relay. ConsensusVersion names the
// fork the block belongs to, used for the Eth-Consensus-Version header.
type BlindedBlock interface {
	Slot() phase0.Slot
	ParentHash() phase0.Hash32
	BlockHash() phase0.Hash32
	ConsensusVersion() string
	MarshalJSON() ([]byte, error)
}

// AuctionContents is the narrow view of an unblinded execution payload.
type AuctionContents interface {
	BlockHash() phase0.Hash32
	MarshalJSON() ([]byte, error)
}

// RelayTransport is the outbound Builder-API surface the mux needs from a
// single relay. relay.Client satisfies this structurally; the mux package
// depends only on the interface to avoid importing the relay package.
type RelayTransport interface {
	RegisterValidators(ctx context.Context, registrations []*apiv1.SignedValidatorRegistration) error
	FetchBestBid(ctx context.Context, req AuctionRequest) (BuilderBid, error)
	OpenBid(ctx context.Context, block BlindedBlock) (AuctionContents, error)
}

// BidValidator checks a bid's authenticity before it can win an auction.
// relay.BidValidator satisfies this structurally.
type BidValidator interface {
	Validate(bid BuilderBid, relayPubkey phase0.BLSPubKey) error
}

// APIMethod names one of the three Builder-API operations the mux
// performs against a relay, for metrics labeling.
type APIMethod string

// The three Builder-API operations the mux performs against relays.
const (
	MethodRegister  APIMethod = "register_validators"
	MethodGetHeader APIMethod = "get_header"
	MethodGetPayload APIMethod = "get_payload"
)

// AuctionCounterKind names a countable auction-level outcome, distinct
// from a per-call API outcome.
type AuctionCounterKind string

// InvalidBid counts a bid dropped by the BidValidator.
const InvalidBid AuctionCounterKind = "invalid_bid"

// Metrics is the narrow sink the mux reports relay interactions to.
// pkg/metrics.Sink satisfies this structurally.
type Metrics interface {
	IncAPICounter(method APIMethod, relay string)
	ObserveAPILatency(method APIMethod, relay string, seconds float64)
	IncAuctionCounter(kind AuctionCounterKind, relay string)
	IncAPITimeout(method APIMethod, relay string)
}

// noopMetrics discards every observation; used when no sink is configured.
type noopMetrics struct{}

func (noopMetrics) IncAPICounter(APIMethod, string)                {}
func (noopMetrics) ObserveAPILatency(APIMethod, string, float64)   {}
func (noopMetrics) IncAuctionCounter(AuctionCounterKind, string)   {}
func (noopMetrics) IncAPITimeout(APIMethod, string)                {}
