package sensor

import (
	"context"
	"time"
)

// SampleCount is the number of values in every sample vector.
const SampleCount = 64

// Vector is one frame of raw infrared sensor values.
type Vector [SampleCount]uint16

// Reading is a vector paired with the moment it was captured.
type Reading struct {
	CapturedAt time.Time
	Samples    Vector
}

// Source produces one sample vector per call. A source that cannot produce
// data for its configuration returns an error carrying ErrUnsupported.
type Source interface {
	Read(ctx context.Context) (Vector, error)
}

// Kind selects the sample source implementation.
type Kind string

const (
	KindMockup Kind = "mockup"
	KindReal   Kind = "real"
)

// IsValid returns whether the kind is known
func (k Kind) IsValid() bool {
	switch k {
	case KindMockup, KindReal:
		return true
	default:
		return false
	}
}
