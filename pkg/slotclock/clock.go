// Package slotclock drives a genesis-time-anchored slot ticker and fans
// each tick out to subscribers, mirroring the beacon chain's own notion of
// wall-clock slot boundaries.
package slotclock

import (
	"context"
	"time"

	"github.com/attestantio/go-eth2-client/spec/phase0"
)

// Clock computes the current slot from elapsed time since genesis and emits
// a tick at every slot boundary until its context is cancelled.
type Clock struct {
	genesisTime    time.Time
	secondsPerSlot time.Duration

	dispatcher Dispatcher[phase0.Slot]
}

// New creates a Clock anchored at genesisTime, ticking once every
// secondsPerSlot.
func New(genesisTime time.Time, secondsPerSlot time.Duration) *Clock {
	return &Clock{
		genesisTime:    genesisTime,
		secondsPerSlot: secondsPerSlot,
	}
}

// CurrentSlot returns the slot containing the current instant. Instants
// before genesis report slot 0.
func (c *Clock) CurrentSlot() phase0.Slot {
	return c.slotAt(time.Now())
}

func (c *Clock) slotAt(t time.Time) phase0.Slot {
	if t.Before(c.genesisTime) {
		return 0
	}

	return phase0.Slot(t.Sub(c.genesisTime) / c.secondsPerSlot)
}

// Subscribe returns a feed of slot ticks. capacity sizes the subscriber's
// buffer; ticks are dropped for a subscriber whose buffer is full rather
// than blocking the clock.
func (c *Clock) Subscribe(capacity int) *Subscription[phase0.Slot] {
	return c.dispatcher.Subscribe(capacity, false)
}

// Run blocks, firing a tick at every slot boundary, until ctx is cancelled.
// Missed boundaries (e.g. after a long GC pause) collapse into a single
// tick for the current slot rather than replaying every skipped one.
func (c *Clock) Run(ctx context.Context) {
	for {
		next := c.nextBoundary()

		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			c.dispatcher.Fire(c.CurrentSlot())
		}
	}
}

func (c *Clock) nextBoundary() time.Time {
	current := c.CurrentSlot()

	return c.genesisTime.Add(time.Duration(current+1) * c.secondsPerSlot)
}
