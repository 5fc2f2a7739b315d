package mux

import (
	"errors"

	"github.com/attestantio/go-eth2-client/spec/phase0"
)

// ErrNoBidPrepared is returned by a RelayTransport when a relay responds
// 204 to fetch-best-bid: the relay simply has nothing to offer, distinct
// from a transport failure.
var ErrNoBidPrepared = errors.New("relay has no bid prepared")

// ErrNoBids is returned by FetchBestBid when no relay produced a usable
// bid for the round.
var ErrNoBids = errors.New("no bids received for auction")

// ErrCouldNotRegister is returned by RegisterValidators when every relay
// rejected the registration batch.
var ErrCouldNotRegister = errors.New("could not register with any relay")

// ErrMissingOpenBid is returned by OpenBid when no outstanding auction
// matches the submitted blinded block.
var ErrMissingOpenBid = errors.New("no outstanding bid matches this block")

// ErrMissingPayload is returned by OpenBid when no eligible relay returned
// the payload committed to by the validator's signed block.
type ErrMissingPayload struct {
	BlockHash phase0.Hash32
}

func (e *ErrMissingPayload) Error() string {
	return "no relay returned the committed payload for block hash " + e.BlockHash.String()
}
