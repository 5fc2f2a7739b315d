package relay

import (
	"fmt"

	"github.com/attestantio/go-eth2-client/spec/phase0"

	"github.com/ethpandaops/relaymux/pkg/bls"
	"github.com/ethpandaops/relaymux/pkg/mux"
)

// ErrBidPublicKeyMismatch is returned when a bid's embedded builder public
// key does not match the relay that served it.
type ErrBidPublicKeyMismatch struct {
	Expected phase0.BLSPubKey
	Got      phase0.BLSPubKey
}

func (e *ErrBidPublicKeyMismatch) Error() string {
	return fmt.Sprintf("bid public key mismatch: expected %x, got %x", e.Expected[:8], e.Got[:8])
}

// ErrInvalidBidSignature is returned when a bid's BLS signature does not
// verify under the relay's public key and the builder domain.
type ErrInvalidBidSignature struct {
	Relay phase0.BLSPubKey
}

func (e *ErrInvalidBidSignature) Error() string {
	return fmt.Sprintf("invalid bid signature from relay %x", e.Relay[:8])
}

// BidValidator checks that a returned builder bid was actually signed by
// the relay that served it, under the builder application domain for the
// network's genesis fork version. It never inspects bid value or content —
// that is the ranker's job.
type BidValidator struct {
	genesisForkVersion phase0.Version
}

// NewBidValidator creates a validator bound to a network's genesis fork
// version, against which every builder-domain signature in this process is
// verified.
func NewBidValidator(genesisForkVersion phase0.Version) *BidValidator {
	return &BidValidator{genesisForkVersion: genesisForkVersion}
}

// Validate checks bid against the public key the relay advertised at
// configuration time. A mismatch or a signature failure means the bid must
// be dropped, not surfaced to the caller.
func (v *BidValidator) Validate(bid mux.BuilderBid, relayPubkey phase0.BLSPubKey) error {
	builderKey := bid.BuilderPublicKey()
	if builderKey != relayPubkey {
		return &ErrBidPublicKeyMismatch{Expected: relayPubkey, Got: builderKey}
	}

	objectRoot, err := bid.MessageRoot()
	if err != nil {
		return fmt.Errorf("failed to compute bid message root: %w", err)
	}

	signingRoot := bls.BuilderSigningRoot(objectRoot, v.genesisForkVersion)

	ok, err := bls.VerifyBLSSignature(relayPubkey, signingRoot[:], bid.Signature())
	if err != nil {
		return fmt.Errorf("failed to verify bid signature: %w", err)
	}

	if !ok {
		return &ErrInvalidBidSignature{Relay: relayPubkey}
	}

	return nil
}
