// Package codec reads and writes the protobuf wire format over pbj byte sequences.
//
// Reader walks a bytes.Sequence field by field. Fixed width fields are little endian on
// the protobuf wire, so Reader always decodes them with bytes.LittleEndian. Writer is
// the inverse and is used for marshaling and round trip tests.
package codec

import (
	"fmt"

	"github.com/bearlytools/pbj/languages/go/bytes"
	"github.com/bearlytools/pbj/languages/go/errors"
	"github.com/bearlytools/pbj/languages/go/varint"
	"google.golang.org/protobuf/encoding/protowire"
)

// Wire types, as defined by the protobuf encoding.
const (
	VarintType     = protowire.VarintType
	Fixed64Type    = protowire.Fixed64Type
	BytesType      = protowire.BytesType
	StartGroupType = protowire.StartGroupType
	EndGroupType   = protowire.EndGroupType
	Fixed32Type    = protowire.Fixed32Type
)

var (
	// ErrWireType indicates a tag carried a wire type that doesn't exist or that doesn't
	// match the field it is decoded into.
	ErrWireType = errors.New("invalid wire type")
	// ErrFieldNumber indicates a tag carried a field number outside the valid range.
	ErrFieldNumber = errors.New("invalid field number")
)

// Reader is a sequential reader over a byte sequence. It is not safe for concurrent use,
// though many Readers may share the same Sequence.
type Reader struct {
	src bytes.Sequence
	pos int
	end int
}

// NewReader returns a Reader positioned at the start of s.
func NewReader(s bytes.Sequence) *Reader {
	return &Reader{src: s, end: s.Len()}
}

// Position returns the offset of the next byte to be read.
func (r *Reader) Position() int {
	return r.pos
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return r.end - r.pos
}

// Done reports if every byte has been read.
func (r *Reader) Done() bool {
	return r.pos >= r.end
}

// ReadVarint reads a raw varint.
func (r *Reader) ReadVarint() (uint64, error) {
	if r.Done() {
		return 0, fmt.Errorf("varint at offset %d: %w", r.pos, bytes.ErrUnderflow)
	}
	v, n, err := varint.Decode(r.src, r.pos)
	if err != nil {
		return 0, err
	}
	if r.pos+n > r.end {
		return 0, fmt.Errorf("varint at offset %d: %w", r.pos, bytes.ErrUnderflow)
	}
	r.pos += n
	return v, nil
}

// ReadZigZag reads a ZigZag encoded varint.
func (r *Reader) ReadZigZag() (int64, error) {
	v, err := r.ReadVarint()
	if err != nil {
		return 0, err
	}
	return varint.DecodeZigZag(v), nil
}

// ReadTag reads a field tag.
func (r *Reader) ReadTag() (protowire.Number, protowire.Type, error) {
	start := r.pos
	v, err := r.ReadVarint()
	if err != nil {
		return 0, 0, err
	}
	num, typ := protowire.DecodeTag(v)
	if !num.IsValid() {
		return 0, 0, fmt.Errorf("tag at offset %d has field number %d: %w", start, num, ErrFieldNumber)
	}
	if typ > Fixed32Type {
		return 0, 0, fmt.Errorf("tag at offset %d has wire type %d: %w", start, typ, ErrWireType)
	}
	return num, typ, nil
}

// ReadFixed32 reads 4 little endian bytes.
func (r *Reader) ReadFixed32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v, err := bytes.Uint32At(r.src, r.pos, bytes.LittleEndian)
	if err != nil {
		return 0, err
	}
	r.pos += 4
	return v, nil
}

// ReadFixed64 reads 8 little endian bytes.
func (r *Reader) ReadFixed64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v, err := bytes.Uint64At(r.src, r.pos, bytes.LittleEndian)
	if err != nil {
		return 0, err
	}
	r.pos += 8
	return v, nil
}

// ReadLengthDelimited reads a length prefix and returns a view of that many bytes.
// No data is copied.
func (r *Reader) ReadLengthDelimited() (bytes.Sequence, error) {
	start := r.pos
	l, err := r.ReadVarint()
	if err != nil {
		return nil, err
	}
	if l > uint64(r.Remaining()) {
		r.pos = start
		return nil, fmt.Errorf("length %d at offset %d exceeds the %d remaining bytes: %w", l, start, r.Remaining(), bytes.ErrUnderflow)
	}
	s, err := bytes.Slice(r.src, r.pos, int(l))
	if err != nil {
		return nil, err
	}
	r.pos += int(l)
	return s, nil
}

// Skip discards the value of a field with wire type typ. The tag must already have been
// read. For a group, num is the field number of the group's start tag.
func (r *Reader) Skip(num protowire.Number, typ protowire.Type) error {
	switch typ {
	case VarintType:
		_, err := r.ReadVarint()
		return err
	case Fixed32Type:
		return r.advance(4)
	case Fixed64Type:
		return r.advance(8)
	case BytesType:
		_, err := r.ReadLengthDelimited()
		return err
	case StartGroupType:
		for {
			n, t, err := r.ReadTag()
			if err != nil {
				return err
			}
			if t == EndGroupType {
				if n != num {
					return fmt.Errorf("group %d closed by end tag %d: %w", num, n, ErrWireType)
				}
				return nil
			}
			if err := r.Skip(n, t); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("can't skip wire type %d: %w", typ, ErrWireType)
}

// Sub returns a Reader over the next n bytes and advances past them.
func (r *Reader) Sub(n int) (*Reader, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	sub := &Reader{src: r.src, pos: r.pos, end: r.pos + n}
	r.pos += n
	return sub, nil
}

func (r *Reader) need(n int) error {
	if n < 0 {
		return fmt.Errorf("read of %d bytes: %w", n, bytes.ErrOutOfRange)
	}
	if r.pos+n > r.end {
		return fmt.Errorf("read of %d bytes at offset %d, %d remaining: %w", n, r.pos, r.Remaining(), bytes.ErrUnderflow)
	}
	return nil
}

func (r *Reader) advance(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.pos += n
	return nil
}

// Measure reports how many bytes a value occupies by running parse over r and returning
// how far the position moved.
//
// This is the naive baseline: every payload is decoded. A specialized implementation may
// replace it with one that only inspects tags and length prefixes, as long as it
// returns the same count for every valid input.
func Measure(r *Reader, parse func(*Reader) error) (int, error) {
	start := r.Position()
	if err := parse(r); err != nil {
		return 0, err
	}
	return r.Position() - start, nil
}
