package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_PublishSubscribe(t *testing.T) {
	b := NewBroker[Progress]()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := b.Subscribe(ctx)
	b.Publish(ProgressEvent, Progress{Done: 3, Total: 12})

	select {
	case evt := <-ch:
		assert.Equal(t, ProgressEvent, evt.Type)
		assert.Equal(t, 3, evt.Payload.Done)
		assert.Equal(t, 12, evt.Payload.Total)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestBroker_CancelledContextRemovesSubscriber(t *testing.T) {
	b := NewBroker[string]()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	b.Subscribe(ctx)
	require.Equal(t, 1, b.SubscriberCount())

	cancel()
	require.Eventually(t, func() bool {
		return b.SubscriberCount() == 0
	}, time.Second, 10*time.Millisecond)
}

func TestBroker_PublishAfterCloseIsNoop(t *testing.T) {
	b := NewBroker[string]()
	ctx := context.Background()
	ch := b.Subscribe(ctx)

	b.Close()
	b.Publish(CreatedEvent, "dropped")

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed")
}

func TestBroker_SubscribeAfterCloseReturnsClosedChannel(t *testing.T) {
	b := NewBroker[string]()
	b.Close()

	ch := b.Subscribe(context.Background())
	_, ok := <-ch
	assert.False(t, ok)
}

func TestBroker_FullBufferDropsEvents(t *testing.T) {
	b := NewBrokerWithBuffer[int](1)
	defer b.Close()

	ch := b.Subscribe(context.Background())
	b.Publish(UpdatedEvent, 1)
	b.Publish(UpdatedEvent, 2) // dropped, buffer full

	evt := <-ch
	assert.Equal(t, 1, evt.Payload)
	select {
	case <-ch:
		t.Fatal("second event should have been dropped")
	default:
	}
}
