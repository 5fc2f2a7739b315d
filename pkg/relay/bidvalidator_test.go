package relay

import (
	"testing"

	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/relaymux/pkg/bls"
)

type fakeBid struct {
	value       *uint256.Int
	builderKey  phase0.BLSPubKey
	blockHash   phase0.Hash32
	signature   phase0.BLSSignature
	messageRoot phase0.Root
	rootErr     error
}

func (f *fakeBid) Value() *uint256.Int                { return f.value }
func (f *fakeBid) BuilderPublicKey() phase0.BLSPubKey { return f.builderKey }
func (f *fakeBid) BlockHash() phase0.Hash32           { return f.blockHash }
func (f *fakeBid) Signature() phase0.BLSSignature     { return f.signature }
func (f *fakeBid) MessageRoot() (phase0.Root, error)  { return f.messageRoot, f.rootErr }
func (f *fakeBid) MarshalJSON() ([]byte, error)       { return []byte(`{}`), nil }

func signedFakeBid(t *testing.T, signer *bls.Signer, genesisForkVersion phase0.Version, builderKey phase0.BLSPubKey) *fakeBid {
	t.Helper()

	var messageRoot phase0.Root
	messageRoot[0] = 0xab

	signingRoot := bls.BuilderSigningRoot(messageRoot, genesisForkVersion)

	sig, err := signer.Sign(signingRoot[:])
	require.NoError(t, err)

	return &fakeBid{
		value:       uint256.NewInt(1),
		builderKey:  builderKey,
		blockHash:   phase0.Hash32{0x01},
		signature:   sig,
		messageRoot: messageRoot,
	}
}

func TestBidValidator_AcceptsValidSignature(t *testing.T) {
	signer, err := bls.NewSigner(testSecretKeyHex())
	require.NoError(t, err)

	var genesisForkVersion phase0.Version

	bid := signedFakeBid(t, signer, genesisForkVersion, signer.PublicKey())

	v := NewBidValidator(genesisForkVersion)
	assert.NoError(t, v.Validate(bid, signer.PublicKey()))
}

func TestBidValidator_RejectsPublicKeyMismatch(t *testing.T) {
	signer, err := bls.NewSigner(testSecretKeyHex())
	require.NoError(t, err)

	var genesisForkVersion phase0.Version

	bid := signedFakeBid(t, signer, genesisForkVersion, signer.PublicKey())

	var otherKey phase0.BLSPubKey
	otherKey[0] = 0xff

	v := NewBidValidator(genesisForkVersion)

	err = v.Validate(bid, otherKey)
	require.Error(t, err)
	assert.IsType(t, &ErrBidPublicKeyMismatch{}, err)
}

func TestBidValidator_RejectsTamperedMessage(t *testing.T) {
	signer, err := bls.NewSigner(testSecretKeyHex())
	require.NoError(t, err)

	var genesisForkVersion phase0.Version

	bid := signedFakeBid(t, signer, genesisForkVersion, signer.PublicKey())
	bid.messageRoot[5] ^= 0xff

	v := NewBidValidator(genesisForkVersion)

	err = v.Validate(bid, signer.PublicKey())
	require.Error(t, err)
	assert.IsType(t, &ErrInvalidBidSignature{}, err)
}

func testSecretKeyHex() string {
	return "0x4a788f6538dfbe01bc151d5c1f6f4cb4b5ad5b5e8f4e1b5557de5d4bab3d4f6a"
}
