// Package capture runs the periodic sample, encode and store cycle.
//
// An Engine is either Idle or Running. Start spawns exactly one loop
// goroutine when Idle; Stop cancels it and waits for it to exit, so no
// append can happen once Stop has returned.
package capture

import (
	"context"
	"sync"
	"time"

	"codeberg.org/mutker/ircapture/internal/codec"
	"codeberg.org/mutker/ircapture/internal/errors"
	"codeberg.org/mutker/ircapture/internal/logger"
	"codeberg.org/mutker/ircapture/internal/sensor"
	"codeberg.org/mutker/ircapture/internal/storage"
	"github.com/zoobzio/clockz"
)

type State int

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

type Engine struct {
	cfg    Config
	source sensor.Source
	store  storage.Store
	clock  clockz.Clock
	logger logger.Logger

	// mu guards state and the loop handle. Stop holds it until the loop
	// has exited, which serializes Start and Stop.
	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*Engine)

// WithClock replaces the wall clock used for timestamps and the interval wait.
func WithClock(clock clockz.Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		e.logger = log
	}
}

func New(cfg Config, source sensor.Source, store storage.Store, opts ...Option) (*Engine, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if source == nil || store == nil {
		return nil, errFactory.WithMessage(ErrMissingDep, "capture requires a sample source and a store")
	}

	e := &Engine{
		cfg:    cfg,
		source: source,
		store:  store,
		clock:  clockz.RealClock,
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Start spawns the capture loop unless one is already running. It never
// waits for a sample to be taken.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.runningLocked() {
		e.logger.Debug().Msg("Capture already running")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	e.state = Running
	e.cancel = cancel
	e.done = done

	e.logger.Info().
		Dur("interval", e.cfg.Interval).
		Msg("Starting data capture")

	go e.run(ctx, done)
}

// Stop cancels the running loop and returns once it has exited. A write
// already in progress is allowed to finish first.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.runningLocked() {
		e.logger.Info().Msg("No capture task running")
		return
	}

	e.logger.Info().Msg("Stopping data capture")
	e.cancel()
	<-e.done
	e.resetLocked()
	e.logger.Info().Msg("Capture task cancelled")
}

// State reports whether a capture loop is alive.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.runningLocked()
	return e.state
}

// runningLocked also notices a loop that ended on its own and moves the
// engine back to Idle.
func (e *Engine) runningLocked() bool {
	if e.done == nil {
		return false
	}

	select {
	case <-e.done:
		e.resetLocked()
		return false
	default:
		return true
	}
}

func (e *Engine) resetLocked() {
	if e.cancel != nil {
		e.cancel()
	}
	e.state = Idle
	e.cancel = nil
	e.done = nil
}

func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	failures := 0
	for {
		if ctx.Err() != nil {
			return
		}

		err := e.captureOnce(ctx)
		switch {
		case err == nil:
			failures = 0
		case ctx.Err() != nil:
			return
		case errors.HasCode(err, sensor.ErrUnsupported):
			e.logger.Warn().Err(err).Msg("Sensor type not supported, stopping capture")
			return
		case errors.HasCode(err, codec.ErrInvalidLength):
			e.logger.Error().Err(err).Msg("Refusing to store malformed sample vector, stopping capture")
			return
		case errors.HasCode(err, storage.ErrAppendFailed):
			failures++
			e.logger.Error().
				Err(err).
				Int("consecutive_failures", failures).
				Msg("Failed to store reading")
			if e.cfg.MaxStoreFailures > 0 && failures >= e.cfg.MaxStoreFailures {
				e.logger.ErrorWithCode(errors.New().WithData(ErrStoreFailures, failures)).
					Msg("Too many consecutive store failures, stopping capture")
				return
			}
		default:
			e.logger.Warn().Err(err).Msg("Failed to read sensor")
		}

		if !e.wait(ctx) {
			return
		}
	}
}

// captureOnce reads, encodes and appends a single reading.
func (e *Engine) captureOnce(ctx context.Context) error {
	samples, err := e.source.Read(ctx)
	if err != nil {
		return err
	}
	reading := sensor.Reading{
		CapturedAt: e.clock.Now(),
		Samples:    samples,
	}
	e.logger.Debug().Msg("Read data from sensor")

	record, err := codec.Encode(reading.Samples[:])
	if err != nil {
		return err
	}

	// The write is not interrupted by Stop; it completes or fails on its own.
	if err := e.store.Append(context.WithoutCancel(ctx), unixSeconds(reading.CapturedAt), record); err != nil {
		return errors.New().Wrap(storage.ErrAppendFailed, err)
	}

	return nil
}

// wait blocks for the configured interval and reports false if cancelled.
func (e *Engine) wait(ctx context.Context) bool {
	if e.cfg.Interval <= 0 {
		select {
		case <-ctx.Done():
			return false
		default:
			return true
		}
	}

	timer := e.clock.NewTimer(e.cfg.Interval)
	select {
	case <-ctx.Done():
		timer.Stop()
		return false
	case <-timer.C():
		return true
	}
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
