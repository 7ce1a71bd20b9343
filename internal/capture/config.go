package capture

import (
	"time"

	"codeberg.org/mutker/ircapture/internal/errors"
)

type Config struct {
	// Interval is the wait between the end of one write and the next read.
	Interval time.Duration
	// MaxStoreFailures ends the loop after that many consecutive failed
	// appends. Zero keeps the loop running through any number of failures.
	MaxStoreFailures int
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.Interval < 0 {
		return errFactory.Wrap(ErrInvalidConfig, errFactory.WithData(ErrInvalidInterval, c.Interval.String()))
	}
	if c.MaxStoreFailures < 0 {
		return errFactory.WithMessage(ErrInvalidConfig, "max store failures must not be negative")
	}

	return nil
}
