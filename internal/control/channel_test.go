package control

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"codeberg.org/mutker/ircapture/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	mu       sync.Mutex
	pattern  string
	handler  func(Message)
	closes   int
	block    chan struct{}
	closeErr error
}

func (f *fakeTransport) Subscribe(pattern string, handler func(Message)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pattern = pattern
	f.handler = handler
	return nil
}

func (f *fakeTransport) Close(ctx context.Context) error {
	f.mu.Lock()
	f.closes++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			<-block
		}
	}
	return f.closeErr
}

func (f *fakeTransport) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

func (f *fakeTransport) deliver(topic string) {
	f.mu.Lock()
	h := f.handler
	f.mu.Unlock()
	h(Message{Topic: topic})
}

type fakeEngine struct {
	starts, stops atomic.Int32
	active        atomic.Int32
	overlap       atomic.Bool
}

func (e *fakeEngine) enter() {
	if e.active.Add(1) > 1 {
		e.overlap.Store(true)
	}
	time.Sleep(time.Millisecond)
	e.active.Add(-1)
}

func (e *fakeEngine) Start() { e.enter(); e.starts.Add(1) }
func (e *fakeEngine) Stop()  { e.enter(); e.stops.Add(1) }

func newTestChannel(t *testing.T, tr *fakeTransport, opts ...Option) (*Channel, *fakeEngine, *atomic.Int32) {
	t.Helper()

	engine := &fakeEngine{}
	var built atomic.Int32
	factory := func() (Engine, error) {
		built.Add(1)
		return engine, nil
	}

	c, err := New(tr, factory, opts...)
	require.NoError(t, err)
	require.NoError(t, c.Listen(DefaultPattern))

	return c, engine, &built
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestStartBuildsEngineOnce(t *testing.T) {
	tr := &fakeTransport{}
	_, engine, built := newTestChannel(t, tr)

	assert.Equal(t, DefaultPattern, tr.pattern)

	tr.deliver(TopicStartCapture)
	tr.deliver(TopicStartCapture)

	assert.Equal(t, int32(1), built.Load())
	assert.Equal(t, int32(2), engine.starts.Load())
}

func TestStopWithoutEngine(t *testing.T) {
	tr := &fakeTransport{}
	_, engine, built := newTestChannel(t, tr)

	tr.deliver(TopicStopCapture)

	assert.Zero(t, built.Load())
	assert.Zero(t, engine.stops.Load())
}

func TestStartThenStop(t *testing.T) {
	tr := &fakeTransport{}
	_, engine, _ := newTestChannel(t, tr)

	tr.deliver(TopicStartCapture)
	tr.deliver(TopicStopCapture)

	assert.Equal(t, int32(1), engine.starts.Load())
	assert.Equal(t, int32(1), engine.stops.Load())
}

func TestUnknownTopicIgnored(t *testing.T) {
	tr := &fakeTransport{}
	c, engine, built := newTestChannel(t, tr)

	tr.deliver("test.reboot")
	tr.deliver("TEST.START_CAPTURE")

	assert.Zero(t, built.Load())
	assert.Zero(t, engine.starts.Load())
	assert.False(t, isClosed(c.Done()))
}

func TestShutdownIsIdempotent(t *testing.T) {
	tr := &fakeTransport{}
	c, engine, _ := newTestChannel(t, tr)

	tr.deliver(TopicStartCapture)
	tr.deliver(TopicShutdown)
	assert.True(t, isClosed(c.Done()))

	tr.deliver(TopicShutdown)
	c.Shutdown()

	assert.Equal(t, 1, tr.closeCount())
	assert.Equal(t, int32(1), engine.stops.Load(), "shutdown stops the running engine once")
}

func TestShutdownWithoutStop(t *testing.T) {
	tr := &fakeTransport{}
	c, engine, _ := newTestChannel(t, tr, WithStopOnShutdown(false))

	tr.deliver(TopicStartCapture)
	tr.deliver(TopicShutdown)

	assert.True(t, isClosed(c.Done()))
	assert.Zero(t, engine.stops.Load())
}

func TestMessagesAfterShutdownIgnored(t *testing.T) {
	tr := &fakeTransport{}
	_, engine, built := newTestChannel(t, tr)

	tr.deliver(TopicShutdown)
	tr.deliver(TopicStartCapture)

	assert.Zero(t, built.Load())
	assert.Zero(t, engine.starts.Load())
}

func TestShutdownCloseTimeout(t *testing.T) {
	tr := &fakeTransport{block: make(chan struct{})}
	defer close(tr.block)

	c, _, _ := newTestChannel(t, tr, WithCloseTimeout(20*time.Millisecond))

	finished := make(chan struct{})
	go func() {
		tr.deliver(TopicShutdown)
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown hung on transport close")
	}
	assert.True(t, isClosed(c.Done()))
}

func TestShutdownCloseError(t *testing.T) {
	tr := &fakeTransport{closeErr: fmt.Errorf("broken pipe")}
	c, _, _ := newTestChannel(t, tr)

	tr.deliver(TopicShutdown)
	assert.True(t, isClosed(c.Done()))
}

func TestEngineFactoryFailure(t *testing.T) {
	tr := &fakeTransport{}
	calls := 0
	engine := &fakeEngine{}
	factory := func() (Engine, error) {
		calls++
		if calls == 1 {
			return nil, fmt.Errorf("sensor offline")
		}
		return engine, nil
	}

	c, err := New(tr, factory)
	require.NoError(t, err)
	require.NoError(t, c.Listen(DefaultPattern))

	tr.deliver(TopicStartCapture)
	assert.Zero(t, engine.starts.Load())

	tr.deliver(TopicStartCapture)
	assert.Equal(t, 2, calls)
	assert.Equal(t, int32(1), engine.starts.Load())
}

func TestDispatchIsSequential(t *testing.T) {
	tr := &fakeTransport{}
	c, engine, _ := newTestChannel(t, tr)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				c.Dispatch(Message{Topic: TopicStartCapture})
			} else {
				c.Dispatch(Message{Topic: TopicStopCapture})
			}
		}()
	}
	wg.Wait()

	assert.False(t, engine.overlap.Load())
}

func TestExtraHandler(t *testing.T) {
	tr := &fakeTransport{}
	var pings atomic.Int32
	_, _, _ = newTestChannel(t, tr, WithHandler("test.ping", func(Message) { pings.Add(1) }))

	tr.deliver("test.ping")
	assert.Equal(t, int32(1), pings.Load())
}

func TestInvalidDispatchTable(t *testing.T) {
	factory := func() (Engine, error) { return &fakeEngine{}, nil }

	_, err := New(&fakeTransport{}, factory, WithHandler(TopicShutdown, func(Message) {}))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrInvalidDispatchTable))

	c, err := New(&fakeTransport{}, factory)
	require.NoError(t, err)
	err = c.Listen("ctrl.*")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrInvalidDispatchTable))

	_, err = New(nil, factory)
	require.Error(t, err)
}

func TestSubjectMatches(t *testing.T) {
	tests := []struct {
		pattern, subject string
		want             bool
	}{
		{"test.*", "test.start_capture", true},
		{"test.*", "test.a.b", false},
		{"test.>", "test.a.b", true},
		{"test.>", "test", false},
		{">", "anything.at.all", true},
		{"test.start_capture", "test.start_capture", true},
		{"test.start_capture", "test.stop_capture", false},
		{"*.shutdown", "test.shutdown", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"_"+tt.subject, func(t *testing.T) {
			assert.Equal(t, tt.want, subjectMatches(tt.pattern, tt.subject))
		})
	}
}
