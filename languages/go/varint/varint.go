// Package varint implements the protobuf variable length integer encoding and the
// ZigZag transform used for signed values.
//
// Decoding reads one byte at a time from a ByteSource, so it works over any byte
// sequence implementation without copying. Encoding appends to a []byte.
package varint

import (
	"fmt"

	"github.com/bearlytools/pbj/languages/go/errors"
)

// MaxLen is the maximum number of bytes a 64 bit varint can occupy.
const MaxLen = 10

// ErrMalformed is returned when no terminating byte is found within MaxLen bytes.
var ErrMalformed = errors.New("malformed varint")

// ByteSource is the single capability decoding needs: random access to a byte.
// Implementations return an error if offset is outside their bounds.
type ByteSource interface {
	ByteAt(offset int) (byte, error)
}

// Decode decodes a varint starting at offset. It returns the raw unsigned value and
// the number of bytes consumed. Errors from src are returned unchanged.
func Decode(src ByteSource, offset int) (uint64, int, error) {
	var result uint64
	for i := 0; i < MaxLen; i++ {
		b, err := src.ByteAt(offset + i)
		if err != nil {
			return 0, 0, err
		}
		result |= uint64(b&0x7F) << (7 * i)
		if b&0x80 == 0 {
			return result, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("at offset %d: %w", offset, ErrMalformed)
}

// DecodeSigned decodes a varint at offset. If zigZag is set, the ZigZag transform is
// applied to the raw value, otherwise the raw bits are reinterpreted as signed.
func DecodeSigned(src ByteSource, offset int, zigZag bool) (int64, int, error) {
	raw, n, err := Decode(src, offset)
	if err != nil {
		return 0, 0, err
	}
	if zigZag {
		return DecodeZigZag(raw), n, nil
	}
	return int64(raw), n, nil
}

// DecodeSlice is Decode over a []byte. A slice that ends before a terminating byte
// is reported as ErrMalformed.
func DecodeSlice(b []byte) (uint64, int, error) {
	var result uint64
	for i := 0; i < MaxLen; i++ {
		if i >= len(b) {
			return 0, 0, fmt.Errorf("varint truncated after %d bytes: %w", i, ErrMalformed)
		}
		result |= uint64(b[i]&0x7F) << (7 * i)
		if b[i]&0x80 == 0 {
			return result, i + 1, nil
		}
	}
	return 0, 0, ErrMalformed
}

// DecodeZigZag maps the unsigned ZigZag value back to its signed value.
// 0 -> 0, 1 -> -1, 2 -> 1, 3 -> -2, 4 -> 2 ...
func DecodeZigZag(raw uint64) int64 {
	return int64(raw>>1) ^ -int64(raw&1)
}

// EncodeZigZag maps a signed value so small magnitudes become small unsigned values.
func EncodeZigZag(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63)
}

// Append appends the varint encoding of v to dst.
func Append(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// AppendZigZag appends the ZigZag varint encoding of v to dst.
func AppendZigZag(dst []byte, v int64) []byte {
	return Append(dst, EncodeZigZag(v))
}

// Size returns the number of bytes Append would write for v.
func Size(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}
