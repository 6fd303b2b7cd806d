package codec

import (
	"encoding/binary"

	"github.com/bearlytools/pbj/languages/go/bytes"
	"github.com/bearlytools/pbj/languages/go/varint"
	"github.com/gostdlib/base/concurrency/sync"
	"github.com/gostdlib/base/context"
	"google.golang.org/protobuf/encoding/protowire"
)

var writers = sync.NewPool[*Writer](
	context.Background(),
	"codecWriters",
	func() *Writer {
		return &Writer{buf: make([]byte, 0, 256)}
	},
	sync.WithBuffer(20),
)

// GetWriter returns an empty Writer from the pool. Return it with PutWriter once the
// output has been copied out.
func GetWriter(ctx context.Context) *Writer {
	w := writers.Get(ctx)
	w.Reset()
	return w
}

// PutWriter returns w to the pool.
func PutWriter(ctx context.Context, w *Writer) {
	writers.Put(ctx, w)
}

// Writer appends protobuf wire format to a buffer.
type Writer struct {
	buf []byte
}

// Bytes returns the written data. The slice is only valid until the next write or Reset.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Reset empties the Writer but keeps its buffer.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
}

// WriteTag writes a field tag.
func (w *Writer) WriteTag(num protowire.Number, typ protowire.Type) {
	w.buf = varint.Append(w.buf, protowire.EncodeTag(num, typ))
}

// WriteVarint writes a raw varint.
func (w *Writer) WriteVarint(v uint64) {
	w.buf = varint.Append(w.buf, v)
}

// WriteZigZag writes v ZigZag encoded.
func (w *Writer) WriteZigZag(v int64) {
	w.buf = varint.AppendZigZag(w.buf, v)
}

// WriteFixed32 writes v as 4 little endian bytes.
func (w *Writer) WriteFixed32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// WriteFixed64 writes v as 8 little endian bytes.
func (w *Writer) WriteFixed64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// WriteBytes writes b with a length prefix.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = varint.Append(w.buf, uint64(len(b)))
	w.buf = append(w.buf, b...)
}

// WriteString writes s with a length prefix.
func (w *Writer) WriteString(s string) {
	w.buf = varint.Append(w.buf, uint64(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteSequence writes s with a length prefix.
func (w *Writer) WriteSequence(s bytes.Sequence) error {
	if b, ok := s.(bytes.Bytes); ok {
		w.buf = varint.Append(w.buf, uint64(b.Len()))
		w.buf = b.AppendTo(w.buf)
		return nil
	}
	raw, err := bytes.ToSlice(s)
	if err != nil {
		return err
	}
	w.WriteBytes(raw)
	return nil
}
