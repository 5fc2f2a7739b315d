package bls

import (
	"encoding/hex"
	"testing"

	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSigningRootComputation verifies signing root computation.
func TestSigningRootComputation(t *testing.T) {
	objectRoot := phase0.Root{}
	copy(objectRoot[:], []byte("test object root for signing..."))

	domain := phase0.Domain{}
	copy(domain[:], []byte("test domain for signing........"))

	signingRoot := ComputeSigningRoot(objectRoot, domain)

	t.Logf("Object root: 0x%x", objectRoot[:])
	t.Logf("Domain: 0x%x", domain[:])
	t.Logf("Signing root: 0x%x", signingRoot[:])

	var emptyRoot phase0.Root
	assert.NotEqual(t, emptyRoot, signingRoot, "signing root should not be empty")
}

// TestComputeDomain verifies domain computation using SSZ ForkData (consensus spec).
func TestComputeDomain(t *testing.T) {
	forkVersion := phase0.Version{}
	genesisRoot := phase0.Root{}

	domain := ComputeDomain(DomainApplicationBuilder, forkVersion, genesisRoot)

	t.Logf("Fork version: 0x%x", forkVersion[:])
	t.Logf("Genesis validators root: 0x%x", genesisRoot[:])
	t.Logf("Domain: 0x%x", domain[:])

	// Domain should start with 0x00000001 (DOMAIN_APPLICATION_BUILDER)
	expectedPrefix, _ := hex.DecodeString("00000001")
	assert.Equal(t, expectedPrefix, domain[:4], "domain prefix should be 0x00000001")

	// Domain should be deterministic for same inputs
	domain2 := ComputeDomain(DomainApplicationBuilder, forkVersion, genesisRoot)
	assert.Equal(t, domain, domain2, "domain should be deterministic")
}

func testSecretKeyHex() string {
	// Arbitrary 32-byte scalar, valid as a BLS secret key in test mode.
	return "0x4a788f6538dfbe01bc151d5c1f6f4cb4b5ad5b5e8f4e1b5557de5d4bab3d4f6a"
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	signer, err := NewSigner(testSecretKeyHex())
	require.NoError(t, err)

	message := []byte("hello builder domain")

	sig, err := signer.Sign(message)
	require.NoError(t, err)

	ok, err := VerifyBLSSignature(signer.PublicKey(), message, sig)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	signer, err := NewSigner(testSecretKeyHex())
	require.NoError(t, err)

	sig, err := signer.Sign([]byte("original message"))
	require.NoError(t, err)

	ok, err := VerifyBLSSignature(signer.PublicKey(), []byte("tampered message"), sig)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewSignerRejectsMalformedKey(t *testing.T) {
	_, err := NewSigner("0xdeadbeef")
	require.Error(t, err)
}

func TestBuilderSigningRootDeterministic(t *testing.T) {
	var objectRoot phase0.Root
	copy(objectRoot[:], []byte("object root for builder signing"))

	genesisForkVersion := phase0.Version{}

	root1 := BuilderSigningRoot(objectRoot, genesisForkVersion)
	root2 := BuilderSigningRoot(objectRoot, genesisForkVersion)

	assert.Equal(t, root1, root2)
}
