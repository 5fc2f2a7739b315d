package mux

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
)

func vi(value uint64, index int) ValuedIndex {
	return ValuedIndex{Value: uint256.NewInt(value), Index: index}
}

func TestSelectBestBids(t *testing.T) {
	cases := []struct {
		name     string
		input    []ValuedIndex
		expected []int
	}{
		{"empty", []ValuedIndex{}, []int{}},
		{"single", []ValuedIndex{vi(1, 0)}, []int{0}},
		{"tie at value one", []ValuedIndex{vi(1, 11), vi(1, 22)}, []int{11, 22}},
		{"two beats one", []ValuedIndex{vi(1, 11), vi(2, 22)}, []int{22}},
		{"ascending", []ValuedIndex{vi(1, 11), vi(2, 22), vi(3, 33)}, []int{33}},
		{"descending prefix", []ValuedIndex{vi(2, 22), vi(3, 33), vi(1, 11)}, []int{33}},
		{"best first", []ValuedIndex{vi(3, 33), vi(2, 22), vi(1, 11)}, []int{33}},
		{
			"tie for best after drop",
			[]ValuedIndex{vi(3, 33), vi(2, 22), vi(3, 44), vi(1, 11)},
			[]int{33, 44},
		},
		{
			"new best clears prior ties",
			[]ValuedIndex{
				vi(4, 44), vi(3, 33), vi(2, 22), vi(3, 44),
				vi(2, 22), vi(2, 22), vi(2, 22), vi(1, 11),
			},
			[]int{44},
		},
		{
			"tie for new best",
			[]ValuedIndex{
				vi(4, 44), vi(4, 45), vi(3, 33), vi(2, 22), vi(3, 44),
				vi(2, 22), vi(2, 22), vi(2, 22), vi(1, 11),
			},
			[]int{44, 45},
		},
		{
			"tie for new best, reordered",
			[]ValuedIndex{
				vi(4, 45), vi(3, 33), vi(2, 22), vi(3, 44), vi(2, 22),
				vi(2, 22), vi(2, 22), vi(1, 11), vi(4, 44),
			},
			[]int{45, 44},
		},
		{
			"best arrives late",
			[]ValuedIndex{
				vi(3, 33), vi(2, 22), vi(3, 44), vi(2, 22), vi(2, 22),
				vi(4, 45), vi(2, 22), vi(1, 11), vi(4, 44),
			},
			[]int{45, 44},
		},
		{
			"best arrives even later",
			[]ValuedIndex{
				vi(3, 33), vi(2, 22), vi(2, 22), vi(2, 22), vi(2, 22),
				vi(1, 11), vi(3, 44), vi(4, 45), vi(4, 44),
			},
			[]int{45, 44},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := selectBestBids(tc.input)
			assert.Equal(t, tc.expected, got)
		})
	}
}
