package bytes

import (
	"encoding/binary"
	"fmt"
)

// Empty is the zero length Bytes. It is safe to share.
var Empty = Bytes{}

// Bytes is an immutable byte sequence. The content is held in a string, so it can never
// change after construction and copies of a Bytes share storage safely. The zero value
// is an empty sequence equal to Empty.
type Bytes struct {
	data string
}

// New returns a Bytes holding a copy of b. Later changes to b are not visible.
func New(b []byte) Bytes {
	if len(b) == 0 {
		return Empty
	}
	return Bytes{data: string(b)}
}

// Wrap returns a Bytes over the UTF-8 encoding of s without copying.
func Wrap(s string) Bytes {
	return Bytes{data: s}
}

// Len implements Sequence.Len().
func (b Bytes) Len() int {
	return len(b.data)
}

// ByteAt implements Sequence.ByteAt().
func (b Bytes) ByteAt(offset int) (byte, error) {
	if offset < 0 {
		return 0, fmt.Errorf("offset %d: %w", offset, ErrOutOfRange)
	}
	if offset >= len(b.data) {
		return 0, fmt.Errorf("offset %d, length %d: %w", offset, len(b.data), ErrUnderflow)
	}
	return b.data[offset], nil
}

// CopyInto copies count bytes starting at offset into dst[dstOffset:].
func (b Bytes) CopyInto(offset int, dst []byte, dstOffset, count int) error {
	if err := checkRange(len(b.data), offset, count); err != nil {
		return err
	}
	if dstOffset < 0 || dstOffset+count > len(dst) {
		return fmt.Errorf("destination offset %d, count %d, len %d: %w", dstOffset, count, len(dst), ErrOutOfRange)
	}
	copy(dst[dstOffset:], b.data[offset:offset+count])
	return nil
}

// Uint32At is the specialized form of the package level Uint32At.
func (b Bytes) Uint32At(offset int, order Order) (uint32, error) {
	if err := checkRange(len(b.data), offset, 4); err != nil {
		return 0, err
	}
	var buf [4]byte
	copy(buf[:], b.data[offset:offset+4])
	if order == LittleEndian {
		return binary.LittleEndian.Uint32(buf[:]), nil
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

// Uint64At is the specialized form of the package level Uint64At.
func (b Bytes) Uint64At(offset int, order Order) (uint64, error) {
	if err := checkRange(len(b.data), offset, 8); err != nil {
		return 0, err
	}
	var buf [8]byte
	copy(buf[:], b.data[offset:offset+8])
	if order == LittleEndian {
		return binary.LittleEndian.Uint64(buf[:]), nil
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// Slice returns the Bytes for [offset, offset+length). No data is copied.
func (b Bytes) Slice(offset, length int) (Sequence, error) {
	sub, err := b.Sub(offset, length)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Sub is Slice returning the concrete type.
func (b Bytes) Sub(offset, length int) (Bytes, error) {
	if err := checkRange(len(b.data), offset, length); err != nil {
		return Empty, err
	}
	return Bytes{data: b.data[offset : offset+length]}, nil
}

// Equal reports if o holds the same bytes as b.
func (b Bytes) Equal(o Sequence) bool {
	if ob, ok := o.(Bytes); ok {
		return b.data == ob.data
	}
	return Equal(b, o)
}

// Hash returns the content hash, see the package level Hash.
func (b Bytes) Hash() int32 {
	return Hash(b)
}

// MatchesPrefix reports if b begins with prefix. A nil prefix never matches.
func (b Bytes) MatchesPrefix(prefix []byte) bool {
	return MatchesPrefixBytes(b, prefix)
}

// UTF8String decodes the content as UTF-8.
func (b Bytes) UTF8String() string {
	return UTF8String(b)
}

// AppendTo appends the content to dst.
func (b Bytes) AppendTo(dst []byte) []byte {
	return append(dst, b.data...)
}

// String implements fmt.Stringer with the debug rendering from Format.
func (b Bytes) String() string {
	return Format(b)
}
