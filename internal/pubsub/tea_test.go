package pubsub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestListenCmd_ReturnsEventAsMsg(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := broker.Subscribe(ctx)

	broker.Publish(BreakDueEvent, "look away")

	msg := ListenCmd(ctx, ch)()
	ev, ok := msg.(Event[string])
	require.True(t, ok)
	require.Equal(t, BreakDueEvent, ev.Type)
	require.Equal(t, "look away", ev.Payload)
}

func TestListenCmd_NilOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := make(chan Event[string])
	require.Nil(t, ListenCmd(ctx, ch)())
}

func TestListenCmd_NilOnClosedChannel(t *testing.T) {
	ch := make(chan Event[string])
	close(ch)
	require.Nil(t, ListenCmd(context.Background(), ch)())
}

func TestContinuousListener_KeepsReceiving(t *testing.T) {
	broker := NewBroker[int]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	listener := NewContinuousListener[int](ctx, broker)
	broker.Publish(TickEvent, 3)
	broker.Publish(TickEvent, 2)

	first := listener.Listen()().(Event[int])
	second := listener.Listen()().(Event[int])
	require.Equal(t, 3, first.Payload)
	require.Equal(t, 2, second.Payload)
}
