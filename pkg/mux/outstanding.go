package mux

import "sync"

// proposalToleranceDelay bounds how many slots an outstanding bid entry
// survives without a matching open-bid call before the slot driver evicts
// it. One slot of slack absorbs the validator's own processing time
// between receiving a header and returning the signed blinded block.
const proposalToleranceDelay uint64 = 1

// OutstandingBidIndex maps an in-flight auction fingerprint to the relay
// indices eligible to serve its open-bid reveal. Entries are created by
// fetch-best-bid and consumed (or evicted) exactly once.
type OutstandingBidIndex struct {
	mu      sync.Mutex
	entries map[AuctionRequest][]int
}

// NewOutstandingBidIndex creates an empty index.
func NewOutstandingBidIndex() *OutstandingBidIndex {
	return &OutstandingBidIndex{
		entries: make(map[AuctionRequest][]int),
	}
}

// Insert records the relay indices eligible to fulfil req's open-bid call,
// unconditionally overwriting any prior entry at the same key.
func (idx *OutstandingBidIndex) Insert(req AuctionRequest, relayIndices []int) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.entries[req] = relayIndices
}

// Take removes and returns the relay indices recorded for req, if any.
func (idx *OutstandingBidIndex) Take(req AuctionRequest) ([]int, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	indices, ok := idx.entries[req]
	if ok {
		delete(idx.entries, req)
	}

	return indices, ok
}

// EvictOlderThan drops every entry whose slot has fallen more than
// proposalToleranceDelay behind currentSlot.
func (idx *OutstandingBidIndex) EvictOlderThan(currentSlot uint64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for req := range idx.entries {
		if uint64(req.Slot)+proposalToleranceDelay < currentSlot {
			delete(idx.entries, req)
		}
	}
}

// Len reports the number of outstanding entries. Intended for tests and
// metrics, not for control flow.
func (idx *OutstandingBidIndex) Len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	return len(idx.entries)
}
