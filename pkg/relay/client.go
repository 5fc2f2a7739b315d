// Package relay implements the outbound Builder-API client for a single
// relay and the bid validation logic the multiplexer runs against every
// response it returns.
package relay

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	builderapi "github.com/attestantio/go-builder-client/api"
	builderspec "github.com/attestantio/go-builder-client/spec"
	apiv1 "github.com/attestantio/go-eth2-client/api/v1"
	eth2spec "github.com/attestantio/go-eth2-client/spec"
	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/relaymux/pkg/mux"
)

// Client is an HTTP Builder-API client bound to a single relay.
type Client struct {
	baseURL    string
	publicKey  phase0.BLSPubKey
	httpClient *http.Client
	log        logrus.FieldLogger
}

// NewClient creates a client for one relay. relayURL must encode the
// relay's BLS public key either as userinfo (https://<pubkey>@host) or as
// the whole URL path (https://host/<pubkey>), matching the two
// conventions relay operators commonly publish.
func NewClient(relayURL string, timeout time.Duration, log logrus.FieldLogger) (*Client, error) {
	base, pubkey, err := parseRelayURL(relayURL)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:   base,
		publicKey: pubkey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log.WithField("relay", shortKey(pubkey)),
	}, nil
}

// PublicKey returns the relay's advertised BLS public key.
func (c *Client) PublicKey() phase0.BLSPubKey {
	return c.publicKey
}

func parseRelayURL(raw string) (string, phase0.BLSPubKey, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", phase0.BLSPubKey{}, fmt.Errorf("invalid relay URL %q: %w", raw, err)
	}

	var pubkeyHex string

	if u.User != nil {
		pubkeyHex = u.User.Username()
		u.User = nil
	} else {
		trimmed := strings.Trim(u.Path, "/")
		if trimmed == "" {
			return "", phase0.BLSPubKey{}, fmt.Errorf("relay URL %q does not encode a public key", raw)
		}

		pubkeyHex = trimmed
		u.Path = ""
	}

	pubkey, err := decodePubkey(pubkeyHex)
	if err != nil {
		return "", phase0.BLSPubKey{}, fmt.Errorf("relay URL %q: %w", raw, err)
	}

	return u.String(), pubkey, nil
}

func decodePubkey(hexStr string) (phase0.BLSPubKey, error) {
	hexStr = strings.TrimPrefix(hexStr, "0x")

	var pubkey phase0.BLSPubKey

	decoded, err := hex.DecodeString(hexStr)
	if err != nil || len(decoded) != len(pubkey) {
		return pubkey, fmt.Errorf("malformed public key %q", hexStr)
	}

	copy(pubkey[:], decoded)

	return pubkey, nil
}

func shortKey(pubkey phase0.BLSPubKey) string {
	return fmt.Sprintf("%x", pubkey[:4])
}

// RegisterValidators forwards a batch of signed validator registrations to
// the relay unmodified.
func (c *Client) RegisterValidators(ctx context.Context, registrations []*apiv1.SignedValidatorRegistration) error {
	body, err := json.Marshal(registrations)
	if err != nil {
		return fmt.Errorf("failed to encode registrations: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/eth/v1/builder/validators", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("relay returned status %d: %s", resp.StatusCode, string(b))
	}

	return nil
}

// FetchBestBid requests a builder bid for req. A 204 response surfaces as
// ErrNoBidPrepared rather than as a generic error.
func (c *Client) FetchBestBid(ctx context.Context, req mux.AuctionRequest) (mux.BuilderBid, error) {
	path := fmt.Sprintf("/eth/v1/builder/header/%d/0x%x/0x%x",
		req.Slot, req.ParentHash[:], req.ProposerPubkey[:])

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, mux.ErrNoBidPrepared
	}

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("relay returned status %d: %s", resp.StatusCode, string(b))
	}

	var wire builderspec.VersionedSignedBuilderBid
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("failed to decode bid: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"slot":    req.Slot,
		"version": wire.Version,
	}).Debug("received builder bid")

	return wrapBuilderBid(&wire)
}

// OpenBid submits a signed blinded block and returns the unblinded
// execution payload.
func (c *Client) OpenBid(ctx context.Context, block mux.BlindedBlock) (mux.AuctionContents, error) {
	body, err := block.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to encode blinded block: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/eth/v1/builder/blinded_blocks", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Eth-Consensus-Version", block.ConsensusVersion())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("relay returned status %d: %s", resp.StatusCode, string(b))
	}

	var wire builderapi.VersionedSubmitBlindedBlockResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}

	blockHash, err := extractPayloadBlockHash(&wire)
	if err != nil {
		return nil, err
	}

	return &versionedAuctionContents{blockHash: blockHash, wire: &wire}, nil
}

func extractPayloadBlockHash(resp *builderapi.VersionedSubmitBlindedBlockResponse) (phase0.Hash32, error) {
	switch resp.Version {
	case eth2spec.DataVersionCapella:
		if resp.Capella == nil {
			return phase0.Hash32{}, fmt.Errorf("empty capella payload")
		}

		return resp.Capella.BlockHash, nil
	case eth2spec.DataVersionDeneb:
		if resp.Deneb == nil || resp.Deneb.ExecutionPayload == nil {
			return phase0.Hash32{}, fmt.Errorf("empty deneb payload")
		}

		return resp.Deneb.ExecutionPayload.BlockHash, nil
	case eth2spec.DataVersionElectra:
		if resp.Electra == nil || resp.Electra.ExecutionPayload == nil {
			return phase0.Hash32{}, fmt.Errorf("empty electra payload")
		}

		return resp.Electra.ExecutionPayload.BlockHash, nil
	default:
		return phase0.Hash32{}, fmt.Errorf("unsupported payload version %s", resp.Version)
	}
}
