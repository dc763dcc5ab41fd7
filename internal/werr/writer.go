// Package werr provides a growable byte buffer with a sticky error and
// placeholder reservations for values that are only known after the rest
// of the buffer has been written — label targets, constant pool indices,
// attribute lengths.
//
// The sticky-error behavior is adapted from ngaro's internal/ngi.ErrWriter:
// once Err is non-nil every further Write is a no-op, so callers can chain
// a long sequence of writes and check the error once at the end instead of
// after every call. The placeholder/fill mechanism is adapted from
// Krakatau's BufWriter/Placeholder<N>.
package werr

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Writer accumulates big-endian encoded bytes, matching the class file
// format's byte order, with deferred placeholder filling.
type Writer struct {
	buf []byte
	err error
}

// New returns an empty Writer.
func New() *Writer { return &Writer{} }

// Err returns the first error encountered by any Write operation, if any.
func (w *Writer) Err() error { return w.err }

// Len returns the number of bytes written so far, including unfilled
// placeholders.
func (w *Writer) Len() int { return len(w.buf) }

// Bytes returns the accumulated buffer. The caller must not mutate it.
func (w *Writer) Bytes() []byte { return w.buf }

func (w *Writer) fail(err error) {
	if w.err == nil {
		w.err = err
	}
}

// Raw appends b verbatim.
func (w *Writer) Raw(b []byte) {
	if w.err != nil {
		return
	}
	w.buf = append(w.buf, b...)
}

// U8 appends a single byte.
func (w *Writer) U8(v uint8) {
	if w.err != nil {
		return
	}
	w.buf = append(w.buf, v)
}

// U16 appends a big-endian uint16.
func (w *Writer) U16(v uint16) {
	if w.err != nil {
		return
	}
	w.buf = append(w.buf, byte(v>>8), byte(v))
}

// U32 appends a big-endian uint32.
func (w *Writer) U32(v uint32) {
	if w.err != nil {
		return
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// U64 appends a big-endian uint64.
func (w *Writer) U64(v uint64) {
	if w.err != nil {
		return
	}
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// Placeholder1 reserves a single zero byte to be filled in later.
type Placeholder1 struct{ off int }

// Placeholder2 reserves two zero bytes to be filled in later.
type Placeholder2 struct{ off int }

// Placeholder4 reserves four zero bytes to be filled in later.
type Placeholder4 struct{ off int }

// Ph1 reserves and zero-fills one byte, returning a handle to fill it later.
func (w *Writer) Ph1() Placeholder1 {
	off := len(w.buf)
	w.U8(0)
	return Placeholder1{off}
}

// Ph2 reserves and zero-fills two bytes.
func (w *Writer) Ph2() Placeholder2 {
	off := len(w.buf)
	w.U16(0)
	return Placeholder2{off}
}

// Ph4 reserves and zero-fills four bytes.
func (w *Writer) Ph4() Placeholder4 {
	off := len(w.buf)
	w.U32(0)
	return Placeholder4{off}
}

// Fill1 overwrites a previously reserved byte. It is an error to fill a
// placeholder whose bytes are no longer all zero (double fill) or whose
// offset lies outside the buffer (use from a different writer).
func (w *Writer) Fill1(ph Placeholder1, v uint8) {
	if w.err != nil {
		return
	}
	if ph.off < 0 || ph.off >= len(w.buf) {
		w.fail(errors.New("werr: placeholder offset out of range"))
		return
	}
	if w.buf[ph.off] != 0 {
		w.fail(errors.New("werr: placeholder already filled"))
		return
	}
	w.buf[ph.off] = v
}

// Fill2 overwrites a previously reserved 2-byte big-endian slot.
func (w *Writer) Fill2(ph Placeholder2, v uint16) {
	if w.err != nil {
		return
	}
	if ph.off < 0 || ph.off+2 > len(w.buf) {
		w.fail(errors.New("werr: placeholder offset out of range"))
		return
	}
	if w.buf[ph.off] != 0 || w.buf[ph.off+1] != 0 {
		w.fail(errors.New("werr: placeholder already filled"))
		return
	}
	w.buf[ph.off] = byte(v >> 8)
	w.buf[ph.off+1] = byte(v)
}

// Fill4 overwrites a previously reserved 4-byte big-endian slot.
func (w *Writer) Fill4(ph Placeholder4, v uint32) {
	if w.err != nil {
		return
	}
	if ph.off < 0 || ph.off+4 > len(w.buf) {
		w.fail(errors.New("werr: placeholder offset out of range"))
		return
	}
	for i := 0; i < 4; i++ {
		if w.buf[ph.off+i] != 0 {
			w.fail(errors.New("werr: placeholder already filled"))
			return
		}
	}
	binary.BigEndian.PutUint32(w.buf[ph.off:ph.off+4], v)
}

// Offset returns the absolute buffer offset of a Placeholder1, needed by
// callers that must compute jump/branch distances relative to it.
func (ph Placeholder1) Offset() int { return ph.off }

// Offset returns the absolute buffer offset of a Placeholder2.
func (ph Placeholder2) Offset() int { return ph.off }

// Offset returns the absolute buffer offset of a Placeholder4.
func (ph Placeholder4) Offset() int { return ph.off }

// Append appends the entire contents of other to w. Any placeholders the
// caller is still tracking against other must have their recorded offsets
// shifted by w.Len() before this call, mirroring Krakatau's
// extend_from_writer.
func (w *Writer) Append(other *Writer) {
	if w.err != nil {
		return
	}
	if other.err != nil {
		w.fail(other.err)
		return
	}
	w.buf = append(w.buf, other.buf...)
}
