package state_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"pipelined.dev/webaudio/graph"
	"pipelined.dev/webaudio/internal/state"
	"pipelined.dev/webaudio/log"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type streamMock struct {
	suspended  int
	resumed    int
	suspendErr error
}

func (m *streamMock) Suspend() error {
	m.suspended++
	return m.suspendErr
}

func (m *streamMock) Resume() error {
	m.resumed++
	return nil
}

type recycled struct {
	sync.Mutex
	ids []graph.NodeID
}

func (r *recycled) fn(id graph.NodeID) {
	r.Lock()
	defer r.Unlock()
	r.ids = append(r.ids, id)
}

func (r *recycled) len() int {
	r.Lock()
	defer r.Unlock()
	return len(r.ids)
}

func start(stream state.Stream, retiredc <-chan graph.NodeID, stop state.StopFunc, recycle state.RecycleFunc) *state.Handle {
	h := state.NewHandle(stream, state.Running, retiredc, stop, recycle, log.Discard())
	go state.Loop(h)
	return h
}

func TestStates(t *testing.T) {
	stream := &streamMock{}
	stops := 0
	h := start(stream, nil, func() error {
		stops++
		return nil
	}, nil)
	assert.Equal(t, state.Running, h.State())

	cases := []struct {
		call      func() error
		expected  state.State
		suspended int
		resumed   int
	}{
		{call: h.Resume, expected: state.Running},
		{call: h.Suspend, expected: state.Suspended, suspended: 1},
		{call: h.Suspend, expected: state.Suspended, suspended: 1},
		{call: h.Resume, expected: state.Running, suspended: 1, resumed: 1},
		{call: h.Suspend, expected: state.Suspended, suspended: 2, resumed: 1},
	}
	for _, c := range cases {
		assert.NoError(t, c.call())
		assert.Equal(t, c.expected, h.State())
		assert.Equal(t, c.suspended, stream.suspended)
		assert.Equal(t, c.resumed, stream.resumed)
	}

	assert.NoError(t, h.Close())
	<-h.Done()
	assert.Equal(t, state.Closed, h.State())
	assert.NoError(t, h.Close())
	assert.Equal(t, 1, stops)
	assert.ErrorIs(t, h.Suspend(), state.ErrInvalidState)
	assert.ErrorIs(t, h.Resume(), state.ErrInvalidState)
}

func TestTransitionError(t *testing.T) {
	errDevice := errors.New("device failure")
	errStop := errors.New("stop failure")
	h := start(&streamMock{suspendErr: errDevice}, nil, func() error {
		return errStop
	}, nil)
	assert.ErrorIs(t, h.Suspend(), errDevice)
	assert.Equal(t, state.Running, h.State())
	assert.ErrorIs(t, h.Close(), errStop)
	<-h.Done()
}

func TestStartSuspended(t *testing.T) {
	stream := &streamMock{}
	h := state.NewHandle(stream, state.Suspended, nil, func() error { return nil }, nil, log.Discard())
	go state.Loop(h)
	assert.Equal(t, state.Suspended, h.State())
	assert.NoError(t, h.Resume())
	assert.Equal(t, state.Running, h.State())
	assert.Equal(t, 1, stream.resumed)
	assert.NoError(t, h.Close())
}

func TestRecycle(t *testing.T) {
	retiredc := make(chan graph.NodeID, 2)
	r := &recycled{}
	h := start(&streamMock{}, retiredc, func() error { return nil }, r.fn)
	retiredc <- graph.NodeID{Index: 1, Gen: 1}
	retiredc <- graph.NodeID{Index: 2, Gen: 1}
	assert.Eventually(t, func() bool { return r.len() == 2 }, time.Second, time.Millisecond)
	assert.NoError(t, h.Close())
}
