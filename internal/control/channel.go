// Package control bridges a pub/sub transport to the capture engine.
package control

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"codeberg.org/mutker/ircapture/internal/errors"
	"codeberg.org/mutker/ircapture/internal/logger"
)

const defaultCloseTimeout = 5 * time.Second

// Handler processes one control message. Handlers run with the dispatch
// lock held, so they never overlap.
type Handler func(msg Message)

type Channel struct {
	transport      Transport
	factory        EngineFactory
	logger         logger.Logger
	closeTimeout   time.Duration
	stopOnShutdown bool
	extra          map[string]Handler

	handlers map[string]Handler

	mu       sync.Mutex
	engine   Engine
	shutdown bool

	exitOnce sync.Once
	done     chan struct{}
}

type Option func(*Channel)

func WithLogger(log logger.Logger) Option {
	return func(c *Channel) {
		c.logger = log
	}
}

// WithCloseTimeout bounds how long shutdown waits for the transport to close.
func WithCloseTimeout(d time.Duration) Option {
	return func(c *Channel) {
		c.closeTimeout = d
	}
}

// WithStopOnShutdown controls whether shutdown stops a running engine
// before closing the transport. Enabled by default.
func WithStopOnShutdown(stop bool) Option {
	return func(c *Channel) {
		c.stopOnShutdown = stop
	}
}

// WithHandler registers an additional topic. Built-in topics cannot be replaced.
func WithHandler(topic string, h Handler) Option {
	return func(c *Channel) {
		if c.extra == nil {
			c.extra = make(map[string]Handler)
		}
		c.extra[topic] = h
	}
}

func New(transport Transport, factory EngineFactory, opts ...Option) (*Channel, error) {
	errFactory := errors.New()

	if transport == nil || factory == nil {
		return nil, errFactory.WithMessage(ErrInvalidArgument, "control channel requires a transport and an engine factory")
	}

	c := &Channel{
		transport:      transport,
		factory:        factory,
		logger:         logger.Nop(),
		closeTimeout:   defaultCloseTimeout,
		stopOnShutdown: true,
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.handlers = map[string]Handler{
		TopicStartCapture: c.handleStart,
		TopicStopCapture:  c.handleStop,
		TopicShutdown:     c.handleShutdown,
	}
	for topic, h := range c.extra {
		if _, exists := c.handlers[topic]; exists || h == nil {
			return nil, errFactory.WithData(ErrInvalidDispatchTable, fmt.Sprintf("cannot register handler for %q", topic))
		}
		c.handlers[topic] = h
	}

	return c, nil
}

// Listen subscribes to pattern. Every registered topic must be reachable
// through the pattern, otherwise it is rejected before subscribing.
func (c *Channel) Listen(pattern string) error {
	errFactory := errors.New()

	for topic := range c.handlers {
		if !subjectMatches(pattern, topic) {
			return errFactory.WithData(ErrInvalidDispatchTable,
				fmt.Sprintf("topic %q is not covered by pattern %q", topic, pattern))
		}
	}

	if err := c.transport.Subscribe(pattern, c.Dispatch); err != nil {
		return errFactory.Wrap(ErrSubscribe, err)
	}

	c.logger.Info().Str("pattern", pattern).Msg("Listening for control messages")
	return nil
}

// Dispatch routes msg by exact topic. Calls are serialized.
func (c *Channel) Dispatch(msg Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		c.logger.Debug().Str("topic", msg.Topic).Msg("Ignoring message after shutdown")
		return
	}

	h, ok := c.handlers[msg.Topic]
	if !ok {
		c.logger.Warn().Str("topic", msg.Topic).Msg("Ignoring unknown control topic")
		return
	}

	c.logger.Debug().Str("topic", msg.Topic).Int("payload_bytes", len(msg.Payload)).Msg("Dispatching control message")
	h(msg)
}

// Shutdown runs the shutdown sequence as if a shutdown message had arrived.
func (c *Channel) Shutdown() {
	c.Dispatch(Message{Topic: TopicShutdown})
}

// Done is closed once shutdown has completed.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

func (c *Channel) handleStart(_ Message) {
	if c.engine == nil {
		engine, err := c.factory()
		if err != nil {
			c.logger.ErrorWithCode(errors.New().Wrap(ErrEngineInit, err)).Msg("Failed to create capture engine")
			return
		}
		c.engine = engine
	}

	c.engine.Start()
}

func (c *Channel) handleStop(_ Message) {
	if c.engine == nil {
		c.logger.Info().Msg("No capture engine to stop")
		return
	}

	c.engine.Stop()
}

func (c *Channel) handleShutdown(_ Message) {
	c.exitOnce.Do(func() {
		c.shutdown = true
		c.logger.Info().Msg("Shutdown requested")

		if c.stopOnShutdown && c.engine != nil {
			c.engine.Stop()
		}

		c.closeTransport()
		close(c.done)
	})
}

// closeTransport gives up after closeTimeout and lets shutdown proceed.
func (c *Channel) closeTransport() {
	ctx, cancel := context.WithTimeout(context.Background(), c.closeTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.transport.Close(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			c.logger.Error().Err(err).Msg("Failed to close transport")
			return
		}
		c.logger.Info().Msg("Transport closed")
	case <-ctx.Done():
		c.logger.ErrorWithCode(errors.New().WithData(ErrCloseTimeout, c.closeTimeout.String())).
			Msg("Transport close timed out, exiting anyway")
	}
}

// subjectMatches implements NATS subject matching: "*" matches one token,
// a trailing ">" matches one or more.
func subjectMatches(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")

	for i, p := range pt {
		if p == ">" {
			return i == len(pt)-1 && len(st) > i
		}
		if i >= len(st) {
			return false
		}
		if p != "*" && p != st[i] {
			return false
		}
	}

	return len(pt) == len(st)
}
