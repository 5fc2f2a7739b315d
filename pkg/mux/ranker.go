package mux

import "github.com/holiman/uint256"

// ValuedIndex pairs a bid's value with the index identifying which
// (relay, bid) produced it, the only two facts the ranker needs.
type ValuedIndex struct {
	Value *uint256.Int
	Index int
}

// selectBestBids picks the highest-valued bids from bids, preserving
// input order among ties. It mirrors a single left fold: best_value starts
// at zero, a strictly greater value resets the winner set, and an equal
// value appends to it.
//
// Because best_value is seeded at zero rather than at the first bid's
// value, a lone zero-valued bid matches the equality branch on its first
// comparison and is returned as a winner, same as any other single bid —
// this function never special-cases the empty-bids sentinel as "no
// winner".
func selectBestBids(bids []ValuedIndex) []int {
	bestValue := uint256.NewInt(0)
	winners := make([]int, 0)

	for _, b := range bids {
		if b.Value.Gt(bestValue) {
			bestValue = b.Value
			winners = winners[:0]
		}

		if b.Value.Eq(bestValue) {
			winners = append(winners, b.Index)
		}
	}

	return winners
}
