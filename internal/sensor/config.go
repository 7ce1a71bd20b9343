package sensor

import (
	"fmt"
	"math"

	"codeberg.org/mutker/ircapture/internal/errors"
)

type Config struct {
	Kind     Kind
	MinValue *int
	MaxValue *int
}

// Validate rejects configurations that could never produce a valid vector.
// A mockup source needs both bounds, each within uint16, with min <= max.
func (c Config) Validate() error {
	errFactory := errors.New()

	if !c.Kind.IsValid() {
		return errFactory.Wrap(ErrInvalidConfig, errFactory.WithData(ErrInvalidKind, string(c.Kind)))
	}

	if c.Kind != KindMockup {
		return nil
	}

	if c.MinValue == nil || c.MaxValue == nil {
		return errFactory.Wrap(ErrInvalidConfig,
			errFactory.WithMessage(ErrInvalidRange, "min and max values are required for a mockup sensor"))
	}

	lo, hi := *c.MinValue, *c.MaxValue
	if lo < 0 || hi > math.MaxUint16 {
		return errFactory.Wrap(ErrInvalidConfig,
			errFactory.WithData(ErrInvalidRange, fmt.Sprintf("values must be within [0, %d], got [%d, %d]", math.MaxUint16, lo, hi)))
	}
	if lo > hi {
		return errFactory.Wrap(ErrInvalidConfig,
			errFactory.WithData(ErrInvalidRange, fmt.Sprintf("min %d is greater than max %d", lo, hi)))
	}

	return nil
}
