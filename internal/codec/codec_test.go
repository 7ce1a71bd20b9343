package codec_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"codeberg.org/mutker/ircapture/internal/codec"
	"codeberg.org/mutker/ircapture/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	vectors := map[string][codec.SampleCount]uint16{
		"zeros": {},
	}

	var maxed, ramp, random [codec.SampleCount]uint16
	for i := range maxed {
		maxed[i] = math.MaxUint16
		ramp[i] = uint16(i * 1000)
		random[i] = uint16(rand.Uint32N(math.MaxUint16 + 1))
	}
	vectors["max"] = maxed
	vectors["ramp"] = ramp
	vectors["random"] = random

	for name, v := range vectors {
		t.Run(name, func(t *testing.T) {
			record, err := codec.Encode(v[:])
			require.NoError(t, err)
			assert.Len(t, record, codec.RecordSize)

			got, err := codec.Decode(record)
			require.NoError(t, err)
			assert.Equal(t, v, got)
		})
	}
}

func TestEncodeLayoutIsLittleEndian(t *testing.T) {
	var v [codec.SampleCount]uint16
	v[0] = 0x0102
	v[63] = 0xA0B0

	record, err := codec.Encode(v[:])
	require.NoError(t, err)

	assert.Equal(t, []byte{0x02, 0x01}, record[0:2])
	assert.Equal(t, []byte{0xB0, 0xA0}, record[126:128])
}

func TestEncodeRejectsWrongLength(t *testing.T) {
	for _, n := range []int{0, 63, 65} {
		_, err := codec.Encode(make([]uint16, n))
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, codec.ErrInvalidLength))
	}
}

func TestDecodeRejectsWrongLength(t *testing.T) {
	for _, n := range []int{0, 127, 129} {
		_, err := codec.Decode(make([]byte, n))
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, codec.ErrInvalidLength))
	}
}
