package bytes

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/bearlytools/pbj/languages/go/errors"
	"github.com/bearlytools/pbj/languages/go/varint"
)

// minimal only provides the required capability, so every free function takes its
// default path.
type minimal []byte

func (m minimal) Len() int {
	return len(m)
}

func (m minimal) ByteAt(offset int) (byte, error) {
	if offset < 0 {
		return 0, ErrOutOfRange
	}
	if offset >= len(m) {
		return 0, ErrUnderflow
	}
	return m[offset], nil
}

func TestFixedWidthRoundTrip(t *testing.T) {
	u32s := []uint32{0, 1, 0x01020304, math.MaxUint32, 0x80000000}
	u64s := []uint64{0, 1, 0x0102030405060708, math.MaxUint64, 0x8000000000000000}

	orders := []struct {
		order Order
		enc   binary.AppendByteOrder
	}{
		{BigEndian, binary.BigEndian},
		{LittleEndian, binary.LittleEndian},
	}

	for _, o := range orders {
		for _, want := range u32s {
			buf := o.enc.AppendUint32(nil, want)
			for name, s := range map[string]Sequence{"Bytes": New(buf), "minimal": minimal(buf)} {
				got, err := Uint32At(s, 0, o.order)
				if err != nil {
					t.Fatalf("TestFixedWidthRoundTrip(%s/%s/%d): got err == %s", name, o.order, want, err)
				}
				if got != want {
					t.Errorf("TestFixedWidthRoundTrip(%s/%s): got %#x, want %#x", name, o.order, got, want)
				}
				i32, _ := Int32At(s, 0, o.order)
				if i32 != int32(want) {
					t.Errorf("TestFixedWidthRoundTrip(%s/%s Int32At): got %d, want %d", name, o.order, i32, int32(want))
				}
				// Re-encoding gives back the original bytes.
				if back := o.enc.AppendUint32(nil, got); string(back) != string(buf) {
					t.Errorf("TestFixedWidthRoundTrip(%s/%s): re-encode got %v, want %v", name, o.order, back, buf)
				}
			}
		}
		for _, want := range u64s {
			buf := o.enc.AppendUint64(nil, want)
			for name, s := range map[string]Sequence{"Bytes": New(buf), "minimal": minimal(buf)} {
				got, err := Uint64At(s, 0, o.order)
				if err != nil {
					t.Fatalf("TestFixedWidthRoundTrip(%s/%s/%d): got err == %s", name, o.order, want, err)
				}
				if got != want {
					t.Errorf("TestFixedWidthRoundTrip(%s/%s): got %#x, want %#x", name, o.order, got, want)
				}
				i64, _ := Int64At(s, 0, o.order)
				if i64 != int64(want) {
					t.Errorf("TestFixedWidthRoundTrip(%s/%s Int64At): got %d, want %d", name, o.order, i64, int64(want))
				}
			}
		}
	}
}

func TestBigEndianIsDefault(t *testing.T) {
	var o Order
	b := New([]byte{0x00, 0x00, 0x01, 0x00})
	got, err := Int32At(b, 0, o)
	if err != nil {
		t.Fatal(err)
	}
	if got != 256 {
		t.Errorf("TestBigEndianIsDefault: got %d, want 256", got)
	}
	got, _ = Int32At(b, 0, LittleEndian)
	if got != 0x00010000 {
		t.Errorf("TestBigEndianIsDefault(LittleEndian): got %#x, want 0x10000", got)
	}
}

func TestFloats(t *testing.T) {
	f32 := float32(-3.25)
	f64 := math.Pi

	for _, s := range []Sequence{
		New(binary.BigEndian.AppendUint32(nil, math.Float32bits(f32))),
		minimal(binary.BigEndian.AppendUint32(nil, math.Float32bits(f32))),
	} {
		got, err := Float32At(s, 0, BigEndian)
		if err != nil || got != f32 {
			t.Errorf("TestFloats(float32): got (%v, %v), want %v", got, err, f32)
		}
	}

	// NaN payloads survive because decode is a bit reinterpretation.
	nanBits := uint64(0x7FF8000000000001)
	got, err := Float64At(New(binary.LittleEndian.AppendUint64(nil, nanBits)), 0, LittleEndian)
	if err != nil {
		t.Fatal(err)
	}
	if math.Float64bits(got) != nanBits {
		t.Errorf("TestFloats(NaN bits): got %#x, want %#x", math.Float64bits(got), nanBits)
	}

	got, _ = Float64At(minimal(binary.LittleEndian.AppendUint64(nil, math.Float64bits(f64))), 0, LittleEndian)
	if got != f64 {
		t.Errorf("TestFloats(float64): got %v, want %v", got, f64)
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name    string
		read    func(s Sequence) error
		wantErr error
	}{
		{
			name:    "Error: ByteAt past end",
			read:    func(s Sequence) error { _, err := s.ByteAt(3); return err },
			wantErr: ErrUnderflow,
		},
		{
			name:    "Error: ByteAt negative",
			read:    func(s Sequence) error { _, err := s.ByteAt(-1); return err },
			wantErr: ErrOutOfRange,
		},
		{
			name:    "Error: Int32At with 3 bytes",
			read:    func(s Sequence) error { _, err := Int32At(s, 0, BigEndian); return err },
			wantErr: ErrUnderflow,
		},
		{
			name:    "Error: Int64At with 3 bytes",
			read:    func(s Sequence) error { _, err := Int64At(s, 0, LittleEndian); return err },
			wantErr: ErrUnderflow,
		},
		{
			name:    "Error: CopyInto source underflow",
			read:    func(s Sequence) error { return CopyInto(s, 1, make([]byte, 10), 0, 3) },
			wantErr: ErrUnderflow,
		},
		{
			name:    "Error: CopyInto destination too small",
			read:    func(s Sequence) error { return CopyInto(s, 0, make([]byte, 2), 0, 3) },
			wantErr: ErrOutOfRange,
		},
		{
			name:    "Error: CopyInto negative destination offset",
			read:    func(s Sequence) error { return CopyInto(s, 0, make([]byte, 10), -1, 1) },
			wantErr: ErrOutOfRange,
		},
		{
			name:    "Error: Slice past end",
			read:    func(s Sequence) error { _, err := Slice(s, 2, 2); return err },
			wantErr: ErrUnderflow,
		},
		{
			name: "Error: varint without terminator",
			read: func(s Sequence) error {
				_, _, err := Varint(New([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80}), 0, false)
				return err
			},
			wantErr: varint.ErrMalformed,
		},
	}

	for _, test := range tests {
		for name, s := range map[string]Sequence{"Bytes": New([]byte{1, 2, 3}), "minimal": minimal{1, 2, 3}} {
			err := test.read(s)
			if !errors.Is(err, test.wantErr) {
				t.Errorf("TestReadErrors(%s/%s): got err == %v, want %v", test.name, name, err, test.wantErr)
			}
		}
	}
}

func TestCopyInto(t *testing.T) {
	for name, s := range map[string]Sequence{"Bytes": New([]byte{1, 2, 3, 4, 5}), "minimal": minimal{1, 2, 3, 4, 5}} {
		dst := make([]byte, 4)
		if err := CopyInto(s, 1, dst, 1, 3); err != nil {
			t.Fatalf("TestCopyInto(%s): got err == %s", name, err)
		}
		if string(dst) != string([]byte{0, 2, 3, 4}) {
			t.Errorf("TestCopyInto(%s): got %v, want [0 2 3 4]", name, dst)
		}
	}
}

func TestVarint(t *testing.T) {
	b := New(varint.AppendZigZag([]byte{0xAA}, -150))
	got, n, err := Varint(b, 1, true)
	if err != nil {
		t.Fatal(err)
	}
	if got != -150 || n != 2 {
		t.Errorf("TestVarint: got (%d, %d), want (-150, 2)", got, n)
	}

	b = New(varint.Append(nil, math.MaxUint64))
	v32, n, err := Varint32(b, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if v32 != -1 || n != 10 {
		t.Errorf("TestVarint(truncate): got (%d, %d), want (-1, 10)", v32, n)
	}
}

func TestEqualityAndHash(t *testing.T) {
	content := []byte{1, 2, 3, 0xFF}
	a := New(content)
	b := Wrap(string(content))
	c := minimal(content)

	if !Equal(a, b) || !Equal(a, c) || !a.Equal(c) {
		t.Errorf("TestEqualityAndHash: identical content from different storage not equal")
	}
	if a != b {
		t.Errorf("TestEqualityAndHash: a != b with ==")
	}
	if Hash(a) != Hash(c) || a.Hash() != Hash(b) {
		t.Errorf("TestEqualityAndHash: hashes differ: %d, %d, %d", Hash(a), Hash(b), Hash(c))
	}
	if Equal(a, New([]byte{1, 2, 3})) {
		t.Errorf("TestEqualityAndHash: sequences of different length are equal")
	}
	if Equal(a, New([]byte{1, 2, 3, 0xFE})) {
		t.Errorf("TestEqualityAndHash: sequences of different content are equal")
	}

	content[0] = 9
	if a.Equal(minimal(content)) {
		t.Errorf("TestEqualityAndHash: New() did not copy its input")
	}

	// Values match the 31*h recurrence over signed bytes, scanning last to first.
	hashes := []struct {
		data []byte
		want int32
	}{
		{nil, 1},
		{[]byte{1, 2, 3}, 32737},
		{[]byte{0xFF}, 30},
	}
	for _, h := range hashes {
		if got := Hash(New(h.data)); got != h.want {
			t.Errorf("TestEqualityAndHash(Hash(%v)): got %d, want %d", h.data, got, h.want)
		}
	}
}

func TestEmpty(t *testing.T) {
	for _, s := range []Sequence{New(nil), New([]byte{}), Wrap(""), Bytes{}, minimal{}} {
		if !Equal(s, Empty) {
			t.Errorf("TestEmpty(%#v): not equal to Empty", s)
		}
		if Hash(s) != Hash(Empty) {
			t.Errorf("TestEmpty(%#v): hash differs from Empty", s)
		}
	}
	if _, err := Empty.ByteAt(0); !errors.Is(err, ErrUnderflow) {
		t.Errorf("TestEmpty: ByteAt(0) got err == %v, want ErrUnderflow", err)
	}
}

func TestMatchesPrefix(t *testing.T) {
	s := New([]byte{1, 2, 3, 4, 5})

	tests := []struct {
		name   string
		prefix []byte
		want   bool
	}{
		{name: "Success: 3 byte prefix", prefix: []byte{1, 2, 3}, want: true},
		{name: "Success: empty prefix", prefix: []byte{}, want: true},
		{name: "Success: whole sequence", prefix: []byte{1, 2, 3, 4, 5}, want: true},
		{name: "Error: mismatch", prefix: []byte{1, 2, 4}, want: false},
		{name: "Error: longer than sequence", prefix: []byte{1, 2, 3, 4, 5, 6}, want: false},
		{name: "Error: nil prefix", prefix: nil, want: false},
	}

	for _, test := range tests {
		if got := s.MatchesPrefix(test.prefix); got != test.want {
			t.Errorf("TestMatchesPrefix(%s): got %v, want %v", test.name, got, test.want)
		}
		var p Sequence
		if test.prefix != nil {
			p = minimal(test.prefix)
		}
		if got := MatchesPrefix(minimal{1, 2, 3, 4, 5}, p); got != test.want {
			t.Errorf("TestMatchesPrefix(%s, minimal): got %v, want %v", test.name, got, test.want)
		}
	}
}

func TestFormatAndUTF8(t *testing.T) {
	s := New([]byte{1, 2, 255})
	if got := s.String(); got != "Bytes[1,2,255]" {
		t.Errorf("TestFormatAndUTF8: String() got %q", got)
	}
	if got := Format(minimal{}); got != "Bytes[]" {
		t.Errorf("TestFormatAndUTF8: Format(empty) got %q", got)
	}

	if got := Wrap("héllo").UTF8String(); got != "héllo" {
		t.Errorf("TestFormatAndUTF8: UTF8String() got %q", got)
	}
	if got := UTF8String(minimal("abc")); got != "abc" {
		t.Errorf("TestFormatAndUTF8: UTF8String(minimal) got %q", got)
	}
	if got := New([]byte{'a', 0xFF, 'b'}).UTF8String(); got != "a�b" {
		t.Errorf("TestFormatAndUTF8: invalid UTF-8 got %q, want %q", got, "a�b")
	}
}

func TestSlice(t *testing.T) {
	for name, s := range map[string]Sequence{"Bytes": New([]byte{1, 2, 3, 4, 5}), "minimal": minimal{1, 2, 3, 4, 5}} {
		sub, err := Slice(s, 1, 3)
		if err != nil {
			t.Fatalf("TestSlice(%s): %s", name, err)
		}
		if !Equal(sub, New([]byte{2, 3, 4})) {
			t.Errorf("TestSlice(%s): got %s", name, Format(sub))
		}
		if _, err := sub.ByteAt(3); !errors.Is(err, ErrUnderflow) {
			t.Errorf("TestSlice(%s): ByteAt past view end got err == %v", name, err)
		}
	}
}

func FuzzUint64RoundTrip(f *testing.F) {
	f.Add([]byte{0, 0, 0, 0, 0, 0, 0, 0})
	f.Add([]byte{255, 255, 255, 255, 255, 255, 255, 127})
	f.Add([]byte{1, 2, 3, 4, 5, 6, 7, 8})

	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) < 8 {
			return
		}
		data = data[:8]
		be, err := Uint64At(minimal(data), 0, BigEndian)
		if err != nil {
			t.Fatal(err)
		}
		if got := binary.BigEndian.AppendUint64(nil, be); string(got) != string(data) {
			t.Fatalf("FuzzUint64RoundTrip(BigEndian): got %v, want %v", got, data)
		}
		le, err := New(data).Uint64At(0, LittleEndian)
		if err != nil {
			t.Fatal(err)
		}
		if got := binary.LittleEndian.AppendUint64(nil, le); string(got) != string(data) {
			t.Fatalf("FuzzUint64RoundTrip(LittleEndian): got %v, want %v", got, data)
		}
	})
}
