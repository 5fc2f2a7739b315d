package slotclock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock_CurrentSlotBeforeGenesisIsZero(t *testing.T) {
	c := New(time.Now().Add(time.Hour), 12*time.Second)
	assert.Equal(t, uint64(0), uint64(c.CurrentSlot()))
}

func TestClock_CurrentSlotAdvancesWithElapsedTime(t *testing.T) {
	genesis := time.Now().Add(-30 * time.Second)
	c := New(genesis, 12*time.Second)

	assert.Equal(t, uint64(2), uint64(c.CurrentSlot()))
}

func TestClock_RunFiresTicksUntilCancelled(t *testing.T) {
	genesis := time.Now().Add(-10 * time.Millisecond)
	c := New(genesis, 20*time.Millisecond)

	sub := c.Subscribe(4)
	defer sub.Unsubscribe()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	go c.Run(ctx)

	select {
	case <-sub.Channel():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected at least one tick")
	}
}

func TestDispatcher_FireDeliversToAllSubscribers(t *testing.T) {
	var d Dispatcher[int]

	a := d.Subscribe(1, false)
	b := d.Subscribe(1, false)

	d.Fire(7)

	require.Len(t, a.ch, 1)
	require.Len(t, b.ch, 1)

	av := <-a.Channel()
	bv := <-b.Channel()

	assert.Equal(t, 7, av)
	assert.Equal(t, 7, bv)
}

func TestDispatcher_NonBlockingSubscriberDropsOnFullChannel(t *testing.T) {
	var d Dispatcher[int]

	sub := d.Subscribe(1, false)

	d.Fire(1)
	d.Fire(2) // dropped, buffer already full

	v := <-sub.Channel()
	assert.Equal(t, 1, v)
}

func TestSubscription_UnsubscribeStopsDelivery(t *testing.T) {
	var d Dispatcher[int]

	sub := d.Subscribe(2, false)
	sub.Unsubscribe()

	d.Fire(1) // must not panic or deliver after unsubscribe

	_, ok := <-sub.Channel()
	assert.False(t, ok)
}
