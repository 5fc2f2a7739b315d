package mux

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	apiv1 "github.com/attestantio/go-eth2-client/api/v1"
	"github.com/attestantio/go-eth2-client/spec/phase0"
	"github.com/sirupsen/logrus"
)

// fetchBestBidTimeout bounds how long a single relay gets to answer a
// fetch-best-bid request before its round is counted as a timeout and
// dropped. There is no equivalent bound on open-bid: the validator's own
// slot budget governs that call.
const fetchBestBidTimeout = 1 * time.Second

// Relay is one configured block-building relay: its identity, its
// advertised signing key, and the transport used to reach it.
type Relay struct {
	Index       int
	PublicKey   phase0.BLSPubKey
	Client      RelayTransport
	DisplayName string
}

// RelayMux fans requests out to every configured relay, validates and
// ranks the responses, and reconciles a later open-bid call against the
// auction its matching fetch-best-bid call won.
type RelayMux struct {
	relays    []Relay
	validator BidValidator
	metrics   Metrics
	index     *OutstandingBidIndex
	log       logrus.FieldLogger

	rngMu sync.Mutex
	rng   *rand.Rand

	mu                   sync.Mutex
	latestProposerPubkey phase0.BLSPubKey
}

// Option configures a RelayMux at construction time.
type Option func(*RelayMux)

// WithRandSource overrides the source of randomness used to shuffle
// equally-valued winning bids, for deterministic tests.
func WithRandSource(src rand.Source) Option {
	return func(m *RelayMux) {
		m.rng = rand.New(src)
	}
}

// NewRelayMux constructs a RelayMux over a fixed relay set.
func NewRelayMux(relays []Relay, validator BidValidator, metrics Metrics, log logrus.FieldLogger, opts ...Option) *RelayMux {
	if metrics == nil {
		metrics = noopMetrics{}
	}

	m := &RelayMux{
		relays:    relays,
		validator: validator,
		metrics:   metrics,
		index:     NewOutstandingBidIndex(),
		log:       log.WithField("component", "relay-mux"),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // tie-break shuffling, not cryptographic
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// RegisterValidators forwards registrations to every relay concurrently.
// The call succeeds if at least one relay accepted the batch; it fails
// only when every relay rejected it.
func (m *RelayMux) RegisterValidators(ctx context.Context, registrations []*apiv1.SignedValidatorRegistration) error {
	var wg sync.WaitGroup

	successes := make([]bool, len(m.relays))

	for i, relay := range m.relays {
		wg.Add(1)

		go func(i int, relay Relay) {
			defer wg.Done()

			start := time.Now()
			err := relay.Client.RegisterValidators(ctx, registrations)

			m.metrics.IncAPICounter(MethodRegister, relay.DisplayName)
			m.metrics.ObserveAPILatency(MethodRegister, relay.DisplayName, time.Since(start).Seconds())

			if err != nil {
				m.log.WithError(err).WithField("relay", relay.DisplayName).Warn("validator registration failed")
				return
			}

			successes[i] = true
		}(i, relay)
	}

	wg.Wait()

	for _, ok := range successes {
		if ok {
			return nil
		}
	}

	return ErrCouldNotRegister
}

type bidResult struct {
	relayIndex int
	bid        BuilderBid
}

// FetchBestBid solicits a bid from every relay, validates and ranks the
// responses, and returns the highest-valued valid bid. Ties are broken by
// a random shuffle, and the set of relays sharing the winning block hash
// is recorded for the matching open-bid call.
func (m *RelayMux) FetchBestBid(ctx context.Context, req AuctionRequest) (BuilderBid, error) {
	var wg sync.WaitGroup

	resultsCh := make(chan bidResult, len(m.relays))

	for _, relay := range m.relays {
		wg.Add(1)

		go func(relay Relay) {
			defer wg.Done()

			bid := m.fetchFromRelay(ctx, relay, req)
			if bid != nil {
				resultsCh <- bidResult{relayIndex: relay.Index, bid: bid}
			}
		}(relay)
	}

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	// bids and relayIndexOf are parallel, indexed by arrival order; the
	// ranker operates on arrival-order positions, which are then mapped
	// back to real relay indices before being recorded in the outstanding
	// bid index.
	bids := make([]BuilderBid, 0, len(m.relays))
	relayIndexOf := make([]int, 0, len(m.relays))
	valued := make([]ValuedIndex, 0, len(m.relays))

	for res := range resultsCh {
		pos := len(bids)
		bids = append(bids, res.bid)
		relayIndexOf = append(relayIndexOf, res.relayIndex)
		valued = append(valued, ValuedIndex{Value: res.bid.Value(), Index: pos})
	}

	winners := selectBestBids(valued)
	if len(winners) == 0 {
		return nil, ErrNoBids
	}

	m.shuffle(winners)

	best := winners[0]
	bestBlockHash := bids[best].BlockHash()

	retainedRelays := make([]int, 0, len(winners))

	for _, pos := range winners {
		if bids[pos].BlockHash() == bestBlockHash {
			retainedRelays = append(retainedRelays, relayIndexOf[pos])
		}
	}

	m.mu.Lock()
	m.latestProposerPubkey = req.ProposerPubkey
	m.index.Insert(req, retainedRelays)
	m.mu.Unlock()

	return bids[best], nil
}

func (m *RelayMux) fetchFromRelay(ctx context.Context, relay Relay, req AuctionRequest) BuilderBid {
	relayCtx, cancel := context.WithTimeout(ctx, fetchBestBidTimeout)
	defer cancel()

	start := time.Now()
	bid, err := relay.Client.FetchBestBid(relayCtx, req)
	elapsed := time.Since(start).Seconds()

	m.metrics.IncAPICounter(MethodGetHeader, relay.DisplayName)
	m.metrics.ObserveAPILatency(MethodGetHeader, relay.DisplayName, elapsed)

	if err != nil {
		if errors.Is(err, ErrNoBidPrepared) {
			return nil
		}

		if errors.Is(relayCtx.Err(), context.DeadlineExceeded) {
			m.metrics.IncAPITimeout(MethodGetHeader, relay.DisplayName)
			m.log.WithField("relay", relay.DisplayName).Warn("fetch best bid timed out")

			return nil
		}

		m.log.WithError(err).WithField("relay", relay.DisplayName).Warn("fetch best bid failed")

		return nil
	}

	if err := m.validator.Validate(bid, relay.PublicKey); err != nil {
		m.metrics.IncAuctionCounter(InvalidBid, relay.DisplayName)
		m.log.WithError(err).WithField("relay", relay.DisplayName).Warn("dropping invalid bid")

		return nil
	}

	return bid
}

// OpenBid reconciles block against the outstanding auction its proposer
// won and requests the unblinded payload from every relay eligible for
// that auction, returning the first payload whose block hash matches the
// one the validator signed.
func (m *RelayMux) OpenBid(ctx context.Context, block BlindedBlock) (AuctionContents, error) {
	req := AuctionRequest{
		Slot:       block.Slot(),
		ParentHash: block.ParentHash(),
	}

	m.mu.Lock()
	req.ProposerPubkey = m.latestProposerPubkey
	relayIndices, ok := m.index.Take(req)
	m.mu.Unlock()

	if !ok {
		return nil, ErrMissingOpenBid
	}

	expected := block.BlockHash()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type openResult struct {
		contents AuctionContents
		err      error
		relay    string
	}

	resultsCh := make(chan openResult, len(relayIndices))

	var wg sync.WaitGroup

	for _, idx := range relayIndices {
		relay, ok := m.relayByIndex(idx)
		if !ok {
			continue
		}

		wg.Add(1)

		go func(relay Relay) {
			defer wg.Done()

			start := time.Now()
			contents, err := relay.Client.OpenBid(ctx, block)
			elapsed := time.Since(start).Seconds()

			m.metrics.IncAPICounter(MethodGetPayload, relay.DisplayName)
			m.metrics.ObserveAPILatency(MethodGetPayload, relay.DisplayName, elapsed)

			select {
			case resultsCh <- openResult{contents: contents, err: err, relay: relay.DisplayName}:
			case <-ctx.Done():
			}
		}(relay)
	}

	go func() {
		wg.Wait()
		close(resultsCh)
	}()

	for res := range resultsCh {
		if res.err != nil {
			m.log.WithError(res.err).WithField("relay", res.relay).Warn("open bid failed")
			continue
		}

		if res.contents.BlockHash() != expected {
			m.log.WithFields(logrus.Fields{
				"relay":    res.relay,
				"expected": expected.String(),
				"got":      res.contents.BlockHash().String(),
			}).Error("relay returned payload for wrong block hash")

			continue
		}

		return res.contents, nil
	}

	return nil, &ErrMissingPayload{BlockHash: expected}
}

// OnSlot evicts outstanding auctions the validator never revealed within
// the proposal tolerance window.
func (m *RelayMux) OnSlot(slot phase0.Slot) {
	m.index.EvictOlderThan(uint64(slot))
}

func (m *RelayMux) relayByIndex(index int) (Relay, bool) {
	for _, r := range m.relays {
		if r.Index == index {
			return r, true
		}
	}

	return Relay{}, false
}

func (m *RelayMux) shuffle(indices []int) {
	m.rngMu.Lock()
	defer m.rngMu.Unlock()

	m.rng.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
}

// OutstandingCount reports the number of in-flight auctions. Intended for
// metrics and tests.
func (m *RelayMux) OutstandingCount() int {
	return m.index.Len()
}
