package bridge_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"pipelined.dev/webaudio/graph"
	"pipelined.dev/webaudio/internal/bridge"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestChannel(t *testing.T) {
	ctx := context.Background()
	ch := bridge.NewChannel(2)
	_, ok := ch.TryReceive()
	assert.False(t, ok)

	a := graph.NodeID{Index: 1, Gen: 1}
	b := graph.NodeID{Index: 2, Gen: 1}
	require.NoError(t, ch.Send(ctx, bridge.Message{Kind: bridge.ReleaseNode, ID: a}))
	require.NoError(t, ch.Send(ctx, bridge.Message{Kind: bridge.RemoveNode, ID: b}))
	assert.Equal(t, 2, ch.Pending())

	// full channel blocks only until ctx is done.
	timeout, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, ch.Send(timeout, bridge.Message{}), context.DeadlineExceeded)

	// fifo order.
	m, ok := ch.TryReceive()
	assert.True(t, ok)
	assert.Equal(t, a, m.ID)
	m, ok = ch.TryReceive()
	assert.True(t, ok)
	assert.Equal(t, bridge.RemoveNode, m.Kind)
	assert.Equal(t, b, m.ID)

	ch.Close()
	ch.Close()
	assert.ErrorIs(t, ch.Send(ctx, bridge.Message{}), bridge.ErrClosed)
}

func TestChannelCloseUnblocksSender(t *testing.T) {
	ch := bridge.NewChannel(1)
	require.NoError(t, ch.Send(context.Background(), bridge.Message{}))
	errc := make(chan error)
	go func() {
		errc <- ch.Send(context.Background(), bridge.Message{})
	}()
	ch.Close()
	assert.ErrorIs(t, <-errc, bridge.ErrClosed)
}

func TestRequests(t *testing.T) {
	r := bridge.NewRequests[int, string](1)
	_, ok := r.Poll()
	assert.False(t, ok)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if req, ok := r.Poll(); ok {
				req.Reply("answer")
				return
			}
			time.Sleep(time.Millisecond)
		}
	}()
	v, err := r.Ask(context.Background(), 42)
	<-done
	assert.NoError(t, err)
	assert.Equal(t, "answer", v)
}

func TestRequestsTimeout(t *testing.T) {
	r := bridge.NewRequests[int, int](1)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := r.Ask(ctx, 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// late reply doesn't block the responder.
	req, ok := r.Poll()
	require.True(t, ok)
	assert.Equal(t, 1, req.Query)
	req.Reply(2)
	req.Reply(3)
	assert.Equal(t, 0, r.Pending())
}
