package sensor

import (
	"context"
	"math/rand/v2"

	"codeberg.org/mutker/ircapture/internal/errors"
)

// New builds the source described by cfg. Configuration problems are
// reported here, never on the first Read.
func New(cfg Config) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case KindMockup:
		return NewMockup(uint16(*cfg.MinValue), uint16(*cfg.MaxValue)), nil
	default:
		return &unsupported{kind: cfg.Kind}, nil
	}
}

// Mockup draws every value uniformly from [min, max].
type Mockup struct {
	min, max uint16
	rand     func(n uint64) uint64
}

// NewMockup returns a mockup source. Callers must ensure lo <= hi.
func NewMockup(lo, hi uint16) *Mockup {
	return &Mockup{min: lo, max: hi, rand: rand.Uint64N}
}

func (m *Mockup) Read(ctx context.Context) (Vector, error) {
	var v Vector
	if err := ctx.Err(); err != nil {
		return v, errors.New().Wrap(ErrReadFailed, err)
	}

	span := uint64(m.max) - uint64(m.min) + 1
	for i := range v {
		v[i] = m.min + uint16(m.rand(span))
	}

	return v, nil
}

type unsupported struct {
	kind Kind
}

func (u *unsupported) Read(_ context.Context) (Vector, error) {
	return Vector{}, errors.New().WithData(ErrUnsupported, string(u.kind))
}
