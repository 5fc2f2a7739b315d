package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/ethpandaops/relaymux/pkg/mux"
)

func TestSink_IncAPICounter(t *testing.T) {
	s := New()

	s.IncAPICounter(mux.MethodGetHeader, "relay-a")
	s.IncAPICounter(mux.MethodGetHeader, "relay-a")

	assert.Equal(t, float64(2), testutil.ToFloat64(s.apiRequests.WithLabelValues(string(mux.MethodGetHeader), "relay-a")))
}

func TestSink_IncAuctionCounterOnlyCountsInvalidBid(t *testing.T) {
	s := New()

	s.IncAuctionCounter(mux.InvalidBid, "relay-a")
	s.IncAuctionCounter(mux.AuctionCounterKind("unknown"), "relay-a")

	assert.Equal(t, float64(1), testutil.ToFloat64(s.invalidBids.WithLabelValues("relay-a")))
}

func TestSink_IncAPITimeout(t *testing.T) {
	s := New()

	s.IncAPITimeout(mux.MethodGetHeader, "relay-a")

	assert.Equal(t, float64(1), testutil.ToFloat64(s.apiTimeouts.WithLabelValues(string(mux.MethodGetHeader), "relay-a")))
}

func TestSink_ObserveAPILatency(t *testing.T) {
	s := New()

	s.ObserveAPILatency(mux.MethodGetPayload, "relay-a", 0.25)

	count := testutil.CollectAndCount(s.apiLatency)
	assert.Equal(t, 1, count)
}
