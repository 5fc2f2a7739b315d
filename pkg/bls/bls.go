// Package bls provides BLS signing and verification primitives for the
// builder domain used by the Builder API.
package bls

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/herumi/bls-eth-go-binary/bls"
)

var initOnce sync.Once

// DomainApplicationBuilder is DOMAIN_APPLICATION_BUILDER from the Builder
// API specification. Builder bids and validator registrations are both
// signed under this domain, computed against the genesis fork version and
// a zero genesis validators root rather than the chain's current fork.
var DomainApplicationBuilder = phase0.DomainType{0x00, 0x00, 0x00, 0x01}

func initBLS() {
	initOnce.Do(func() {
		if err := bls.Init(bls.BLS12_381); err != nil {
			panic(fmt.Sprintf("failed to initialize BLS library: %v", err))
		}

		if err := bls.SetETHmode(bls.EthModeLatest); err != nil {
			panic(fmt.Sprintf("failed to set ETH mode: %v", err))
		}
	})
}

// Signer signs messages under the builder domain on behalf of a single
// BLS keypair.
type Signer struct {
	secretKey   *bls.SecretKey
	publicKey   *bls.PublicKey
	pubkeyBytes phase0.BLSPubKey
}

// NewSigner creates a new Signer from a hex-encoded private key.
func NewSigner(privkeyHex string) (*Signer, error) {
	initBLS()

	privkeyHex = strings.TrimPrefix(privkeyHex, "0x")

	privkeyBytes, err := hex.DecodeString(privkeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key hex: %w", err)
	}

	if len(privkeyBytes) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(privkeyBytes))
	}

	secretKey := new(bls.SecretKey)
	if err := secretKey.Deserialize(privkeyBytes); err != nil {
		return nil, fmt.Errorf("failed to deserialize secret key: %w", err)
	}

	publicKey := secretKey.GetPublicKey()

	var pubkeyBytes phase0.BLSPubKey

	copy(pubkeyBytes[:], publicKey.Serialize())

	return &Signer{
		secretKey:   secretKey,
		publicKey:   publicKey,
		pubkeyBytes: pubkeyBytes,
	}, nil
}

// PublicKey returns the signer's BLS public key.
func (s *Signer) PublicKey() phase0.BLSPubKey {
	return s.pubkeyBytes
}

// Sign signs a raw message and returns the signature.
func (s *Signer) Sign(message []byte) (phase0.BLSSignature, error) {
	sig := s.secretKey.SignByte(message)

	var sigBytes phase0.BLSSignature
	copy(sigBytes[:], sig.Serialize())

	return sigBytes, nil
}

// SignWithDomain signs an object root under the given domain and returns
// the signature.
func (s *Signer) SignWithDomain(root phase0.Root, domain phase0.Domain) (phase0.BLSSignature, error) {
	signingRoot := ComputeSigningRoot(root, domain)

	return s.Sign(signingRoot[:])
}

// ComputeDomain computes a domain value for a given domain type, fork
// version, and genesis validators root per the consensus spec:
// domain = domain_type || fork_data_root[:28].
func ComputeDomain(
	domainType phase0.DomainType,
	forkVersion phase0.Version,
	genesisValidatorsRoot phase0.Root,
) phase0.Domain {
	forkDataRoot := computeForkDataRoot(forkVersion, genesisValidatorsRoot)

	var domain phase0.Domain

	copy(domain[:4], domainType[:])
	copy(domain[4:], forkDataRoot[:28])

	return domain
}

// computeForkDataRoot computes the hash tree root of
// ForkData{current_version, genesis_validators_root}. ForkData has exactly
// two fixed-size fields so its root is a plain SHA-256 over their
// concatenation rather than a full SSZ merkleization.
func computeForkDataRoot(forkVersion phase0.Version, genesisValidatorsRoot phase0.Root) phase0.Root {
	var forkData [64]byte

	copy(forkData[:4], forkVersion[:])
	copy(forkData[32:], genesisValidatorsRoot[:])

	hash := sha256.Sum256(forkData[:])

	var root phase0.Root
	copy(root[:], hash[:])

	return root
}

// ComputeSigningRoot computes the signing root from an object root and
// domain: SHA256(object_root || domain).
func ComputeSigningRoot(objectRoot phase0.Root, domain phase0.Domain) phase0.Root {
	var signingData [64]byte

	copy(signingData[:32], objectRoot[:])
	copy(signingData[32:], domain[:])

	hash := sha256.Sum256(signingData[:])

	var root phase0.Root
	copy(root[:], hash[:])

	return root
}

// VerifyBLSSignature verifies a BLS signature over a message under the
// given public key.
func VerifyBLSSignature(pubkey phase0.BLSPubKey, message []byte, signature phase0.BLSSignature) (bool, error) {
	initBLS()

	var pk bls.PublicKey
	if err := pk.Deserialize(pubkey[:]); err != nil {
		return false, fmt.Errorf("failed to deserialize public key: %w", err)
	}

	var sig bls.Sign
	if err := sig.Deserialize(signature[:]); err != nil {
		return false, fmt.Errorf("failed to deserialize signature: %w", err)
	}

	return sig.VerifyByte(&pk, message), nil
}

// BuilderSigningRoot computes the signing root for an arbitrary
// hash-tree-rootable builder-domain message (registrations, bids) against
// the genesis fork version and a zero genesis validators root, per the
// Builder API's convention of signing builder messages against genesis
// rather than the current fork.
func BuilderSigningRoot(objectRoot phase0.Root, genesisForkVersion phase0.Version) phase0.Root {
	var zeroRoot phase0.Root

	domain := ComputeDomain(DomainApplicationBuilder, genesisForkVersion, zeroRoot)

	return ComputeSigningRoot(objectRoot, domain)
}
