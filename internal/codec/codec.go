// Package codec packs sample vectors into fixed-width binary records.
//
// A record is SampleCount unsigned 16-bit values written back to back in
// little-endian order, so every record is exactly RecordSize bytes and value
// i occupies bytes [2i, 2i+2).
package codec

import (
	"encoding/binary"
	"fmt"

	"codeberg.org/mutker/ircapture/internal/errors"
)

const (
	SampleCount = 64
	RecordSize  = SampleCount * 2
)

const ErrInvalidLength = errors.ErrorCode("codec_invalid_length")

// Encode packs exactly SampleCount values into a new RecordSize byte slice.
func Encode(values []uint16) ([]byte, error) {
	if len(values) != SampleCount {
		return nil, errors.New().WithData(ErrInvalidLength,
			fmt.Sprintf("expected %d samples, got %d", SampleCount, len(values)))
	}

	record := make([]byte, 0, RecordSize)
	for _, v := range values {
		record = binary.LittleEndian.AppendUint16(record, v)
	}

	return record, nil
}

// Decode unpacks a record produced by Encode.
func Decode(record []byte) ([SampleCount]uint16, error) {
	var values [SampleCount]uint16
	if len(record) != RecordSize {
		return values, errors.New().WithData(ErrInvalidLength,
			fmt.Sprintf("expected %d bytes, got %d", RecordSize, len(record)))
	}

	for i := range values {
		values[i] = binary.LittleEndian.Uint16(record[i*2:])
	}

	return values, nil
}
