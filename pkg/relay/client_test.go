package relay

import (
	"context"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apiv1 "github.com/attestantio/go-eth2-client/api/v1"
	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/relaymux/pkg/mux"
)

func hexOf(b byte, n int) string {
	return "0x" + strings.Repeat(hex.EncodeToString([]byte{b}), n)
}

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)

	return log
}

func capellaBidJSON(blockHashByte byte, pubkeyByte byte, value string) string {
	return `{
		"version": "capella",
		"data": {
			"message": {
				"header": {
					"parent_hash": "` + hexOf(0x01, 32) + `",
					"fee_recipient": "` + hexOf(0x02, 20) + `",
					"state_root": "` + hexOf(0x03, 32) + `",
					"receipts_root": "` + hexOf(0x04, 32) + `",
					"logs_bloom": "` + hexOf(0x00, 256) + `",
					"prev_randao": "` + hexOf(0x05, 32) + `",
					"block_number": "1",
					"gas_limit": "30000000",
					"gas_used": "21000",
					"timestamp": "1700000000",
					"extra_data": "0x",
					"base_fee_per_gas": "1000000000",
					"block_hash": "` + hexOf(blockHashByte, 32) + `",
					"transactions_root": "` + hexOf(0x06, 32) + `",
					"withdrawals_root": "` + hexOf(0x07, 32) + `"
				},
				"value": "` + value + `",
				"pubkey": "` + hexOf(pubkeyByte, 48) + `"
			},
			"signature": "` + hexOf(0x09, 96) + `"
		}
	}`
}

func mustPubkey(t *testing.T, b byte) phase0.BLSPubKey {
	t.Helper()

	var pk phase0.BLSPubKey
	for i := range pk {
		pk[i] = b
	}

	return pk
}

func newTestClient(t *testing.T, server *httptest.Server, pubkeyByte byte) *Client {
	t.Helper()

	relayURL := "http://" + hex.EncodeToString(bytesOf(pubkeyByte, 48)) + "@" + strings.TrimPrefix(server.URL, "http://")

	c, err := NewClient(relayURL, time.Second, testLogger())
	require.NoError(t, err)

	return c
}

func bytesOf(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}

	return out
}

func TestFetchBestBid_DecodesCapellaBid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(capellaBidJSON(0xaa, 0x01, "1000000000000000000")))
	}))
	defer server.Close()

	c := newTestClient(t, server, 0x01)

	bid, err := c.FetchBestBid(context.Background(), mux.AuctionRequest{Slot: 1})
	require.NoError(t, err)

	assert.Equal(t, mustPubkey(t, 0x01), bid.BuilderPublicKey())
	assert.Equal(t, byte(0xaa), bid.BlockHash()[0])
	assert.Equal(t, "1000000000000000000", bid.Value().String())
}

func TestFetchBestBid_NoContentIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := newTestClient(t, server, 0x01)

	_, err := c.FetchBestBid(context.Background(), mux.AuctionRequest{Slot: 1})
	assert.ErrorIs(t, err, mux.ErrNoBidPrepared)
}

func TestFetchBestBid_ServerErrorPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer server.Close()

	c := newTestClient(t, server, 0x01)

	_, err := c.FetchBestBid(context.Background(), mux.AuctionRequest{Slot: 1})
	require.Error(t, err)
	assert.NotErrorIs(t, err, mux.ErrNoBidPrepared)
}

func TestRegisterValidators_OKStatusSucceeds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	c := newTestClient(t, server, 0x01)

	err := c.RegisterValidators(context.Background(), []*apiv1.SignedValidatorRegistration{})
	assert.NoError(t, err)
}

func TestRegisterValidators_NonOKIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	c := newTestClient(t, server, 0x01)

	err := c.RegisterValidators(context.Background(), []*apiv1.SignedValidatorRegistration{})
	assert.Error(t, err)
}

func TestParseRelayURL_UserinfoForm(t *testing.T) {
	base, pubkey, err := parseRelayURL("http://" + hex.EncodeToString(bytesOf(0x01, 48)) + "@example.com")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com", base)
	assert.Equal(t, mustPubkey(t, 0x01), pubkey)
}

func TestParseRelayURL_PathForm(t *testing.T) {
	base, pubkey, err := parseRelayURL("http://example.com/" + hex.EncodeToString(bytesOf(0x02, 48)))
	require.NoError(t, err)
	assert.Equal(t, "http://example.com", base)
	assert.Equal(t, mustPubkey(t, 0x02), pubkey)
}

func TestParseRelayURL_MissingPubkeyErrors(t *testing.T) {
	_, _, err := parseRelayURL("http://example.com")
	assert.Error(t, err)
}
