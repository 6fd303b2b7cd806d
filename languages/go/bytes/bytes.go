// Package bytes provides an immutable byte sequence and the read contract the pbj wire
// format is decoded through.
//
// The only capability an implementation must provide is Sequence: a length and a single
// byte read. Every other operation in this package is a free function written in terms
// of that capability. Implementations may specialize the multi-byte reads by providing
// methods with the same shape (Uint32At, Uint64At, CopyInto, Slice), which the free
// functions detect and use. Bytes is the implementation used throughout pbj and
// specializes all of them.
package bytes

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/bearlytools/pbj/languages/go/errors"
	"github.com/bearlytools/pbj/languages/go/varint"
	"golang.org/x/exp/constraints"
)

var (
	// ErrUnderflow indicates a read range extends past the end of the sequence.
	ErrUnderflow = errors.New("buffer underflow")
	// ErrOutOfRange indicates an invalid offset or length, such as a negative offset or
	// a destination that can't hold the requested bytes.
	ErrOutOfRange = errors.New("index out of range")
)

// Order is the byte order used for fixed width decoding. The zero value is BigEndian.
type Order uint8

const (
	// BigEndian assigns bytes fetched in ascending offset order to descending bit positions.
	BigEndian Order = 0
	// LittleEndian assigns bytes fetched in ascending offset order to ascending bit positions.
	LittleEndian Order = 1
)

func (o Order) String() string {
	if o == LittleEndian {
		return "LittleEndian"
	}
	return "BigEndian"
}

// Sequence is a read only, zero indexed view of bytes with a fixed length.
// ByteAt must return ErrUnderflow when offset >= Len() and ErrOutOfRange when offset < 0.
type Sequence interface {
	Len() int
	ByteAt(offset int) (byte, error)
}

type uint32Reader interface {
	Uint32At(offset int, order Order) (uint32, error)
}

type uint64Reader interface {
	Uint64At(offset int, order Order) (uint64, error)
}

type copier interface {
	CopyInto(offset int, dst []byte, dstOffset, count int) error
}

type slicer interface {
	Slice(offset, length int) (Sequence, error)
}

// checkRange validates [offset, offset+count) against a sequence of length l.
func checkRange(l, offset, count int) error {
	if offset < 0 || count < 0 {
		return fmt.Errorf("offset %d, count %d: %w", offset, count, ErrOutOfRange)
	}
	if offset+count > l {
		return fmt.Errorf("read of %d bytes at offset %d exceeds length %d: %w", count, offset, l, ErrUnderflow)
	}
	return nil
}

// UnsignedByteAt returns the byte at offset as a value in 0..255.
func UnsignedByteAt(s Sequence, offset int) (int, error) {
	b, err := s.ByteAt(offset)
	if err != nil {
		return 0, err
	}
	return int(b), nil
}

// CopyInto copies count bytes starting at offset into dst[dstOffset:].
func CopyInto(s Sequence, offset int, dst []byte, dstOffset, count int) error {
	if c, ok := s.(copier); ok {
		return c.CopyInto(offset, dst, dstOffset, count)
	}
	if err := checkRange(s.Len(), offset, count); err != nil {
		return err
	}
	if dstOffset < 0 || dstOffset+count > len(dst) {
		return fmt.Errorf("destination offset %d, count %d, len %d: %w", dstOffset, count, len(dst), ErrOutOfRange)
	}
	for i := 0; i < count; i++ {
		b, err := s.ByteAt(offset + i)
		if err != nil {
			return err
		}
		dst[dstOffset+i] = b
	}
	return nil
}

// readFixed decodes size bytes at offset into an unsigned integer using order.
func readFixed[U constraints.Unsigned](s Sequence, offset, size int, order Order) (U, error) {
	if err := checkRange(s.Len(), offset, size); err != nil {
		return 0, err
	}
	var v U
	for i := 0; i < size; i++ {
		b, err := s.ByteAt(offset + i)
		if err != nil {
			return 0, err
		}
		if order == LittleEndian {
			v |= U(b) << (8 * i)
		} else {
			v = v<<8 | U(b)
		}
	}
	return v, nil
}

// Uint32At decodes 4 bytes at offset.
func Uint32At(s Sequence, offset int, order Order) (uint32, error) {
	if r, ok := s.(uint32Reader); ok {
		return r.Uint32At(offset, order)
	}
	return readFixed[uint32](s, offset, 4, order)
}

// Int32At decodes 4 bytes at offset as a two's complement integer.
func Int32At(s Sequence, offset int, order Order) (int32, error) {
	u, err := Uint32At(s, offset, order)
	return int32(u), err
}

// Uint64At decodes 8 bytes at offset.
func Uint64At(s Sequence, offset int, order Order) (uint64, error) {
	if r, ok := s.(uint64Reader); ok {
		return r.Uint64At(offset, order)
	}
	return readFixed[uint64](s, offset, 8, order)
}

// Int64At decodes 8 bytes at offset as a two's complement integer.
func Int64At(s Sequence, offset int, order Order) (int64, error) {
	u, err := Uint64At(s, offset, order)
	return int64(u), err
}

// Float32At reinterprets the 4 byte integer at offset as an IEEE-754 float.
func Float32At(s Sequence, offset int, order Order) (float32, error) {
	u, err := Uint32At(s, offset, order)
	return math.Float32frombits(u), err
}

// Float64At reinterprets the 8 byte integer at offset as an IEEE-754 double.
func Float64At(s Sequence, offset int, order Order) (float64, error) {
	u, err := Uint64At(s, offset, order)
	return math.Float64frombits(u), err
}

// Varint decodes a 64 bit varint at offset and reports the bytes consumed.
func Varint(s Sequence, offset int, zigZag bool) (int64, int, error) {
	return varint.DecodeSigned(s, offset, zigZag)
}

// Varint32 decodes a varint at offset and truncates it to 32 bits.
func Varint32(s Sequence, offset int, zigZag bool) (int32, int, error) {
	v, n, err := varint.DecodeSigned(s, offset, zigZag)
	return int32(v), n, err
}

// Slice returns a view of length bytes starting at offset.
func Slice(s Sequence, offset, length int) (Sequence, error) {
	if sl, ok := s.(slicer); ok {
		return sl.Slice(offset, length)
	}
	if err := checkRange(s.Len(), offset, length); err != nil {
		return nil, err
	}
	return view{s: s, off: offset, n: length}, nil
}

// ToSlice copies the content of s into a new []byte.
func ToSlice(s Sequence) ([]byte, error) {
	out := make([]byte, s.Len())
	if err := CopyInto(s, 0, out, 0, len(out)); err != nil {
		return nil, err
	}
	return out, nil
}

// MatchesPrefix reports if s starts with every byte of prefix. A nil prefix never matches.
func MatchesPrefix(s Sequence, prefix Sequence) bool {
	if prefix == nil || s.Len() < prefix.Len() {
		return false
	}
	for i := 0; i < prefix.Len(); i++ {
		a, err := s.ByteAt(i)
		if err != nil {
			return false
		}
		b, err := prefix.ByteAt(i)
		if err != nil || a != b {
			return false
		}
	}
	return true
}

// MatchesPrefixBytes is MatchesPrefix for a []byte prefix. A nil prefix never matches.
func MatchesPrefixBytes(s Sequence, prefix []byte) bool {
	if prefix == nil {
		return false
	}
	return MatchesPrefix(s, New(prefix))
}

// Equal reports if a and b have the same length and content, regardless of how either
// is stored.
func Equal(a, b Sequence) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	l := a.Len()
	if l != b.Len() {
		return false
	}
	for i := 0; i < l; i++ {
		x, err := a.ByteAt(i)
		if err != nil {
			return false
		}
		y, err := b.ByteAt(i)
		if err != nil || x != y {
			return false
		}
	}
	return true
}

// Hash returns the content hash of s. It scans from the last byte to the first with
// h = 31*h + signed(byte), seeded at 1, wrapping at 32 bits. Sequences that are Equal
// have the same Hash, and the value matches hashes persisted by other pbj runtimes.
func Hash(s Sequence) int32 {
	h := int32(1)
	for i := s.Len() - 1; i >= 0; i-- {
		b, err := s.ByteAt(i)
		if err != nil {
			break
		}
		h = 31*h + int32(int8(b))
	}
	return h
}

// Format renders the unsigned byte values of s, for example "Bytes[1,2,255]".
func Format(s Sequence) string {
	sb := strings.Builder{}
	sb.WriteString("Bytes[")
	for i := 0; i < s.Len(); i++ {
		b, err := s.ByteAt(i)
		if err != nil {
			break
		}
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%d", b)
	}
	sb.WriteByte(']')
	return sb.String()
}

// UTF8String decodes all of s as UTF-8. Each invalid byte becomes utf8.RuneError.
func UTF8String(s Sequence) string {
	var raw string
	if b, ok := s.(Bytes); ok {
		raw = b.data
	} else {
		bs, err := ToSlice(s)
		if err != nil {
			return ""
		}
		raw = string(bs)
	}
	if utf8.ValidString(raw) {
		return raw
	}
	return string([]rune(raw))
}

// view is the Slice result for Sequence implementations that don't provide their own.
type view struct {
	s   Sequence
	off int
	n   int
}

func (v view) Len() int {
	return v.n
}

func (v view) ByteAt(offset int) (byte, error) {
	if err := checkRange(v.n, offset, 1); err != nil {
		return 0, err
	}
	return v.s.ByteAt(v.off + offset)
}
