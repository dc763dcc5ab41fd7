package werr_test

import (
	"bytes"
	"testing"

	"github.com/db47h/jasm/internal/werr"
)

func TestWriterBasic(t *testing.T) {
	w := werr.New()
	w.U8(1)
	w.U16(0x0203)
	w.U32(0x04050607)
	w.Raw([]byte{0xAA, 0xBB})

	want := []byte{1, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0xAA, 0xBB}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("Bytes() = % x, want % x", w.Bytes(), want)
	}
	if w.Len() != len(want) {
		t.Errorf("Len() = %d, want %d", w.Len(), len(want))
	}
	if w.Err() != nil {
		t.Errorf("Err() = %v, want nil", w.Err())
	}
}

func TestWriterU64(t *testing.T) {
	w := werr.New()
	w.U64(0x0102030405060708)
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("Bytes() = % x, want % x", w.Bytes(), want)
	}
}

func TestWriterPlaceholderFill(t *testing.T) {
	w := werr.New()
	w.U8(0xFF)
	ph2 := w.Ph2()
	w.U8(0xFE)
	ph4 := w.Ph4()
	w.U8(0xFD)

	w.Fill2(ph2, 0x1234)
	w.Fill4(ph4, 0x56789ABC)

	want := []byte{0xFF, 0x12, 0x34, 0xFE, 0x56, 0x78, 0x9A, 0xBC, 0xFD}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("Bytes() = % x, want % x", w.Bytes(), want)
	}
	if w.Err() != nil {
		t.Errorf("Err() = %v, want nil", w.Err())
	}
}

func TestWriterDoubleFill(t *testing.T) {
	w := werr.New()
	ph := w.Ph1()
	w.Fill1(ph, 5)
	w.Fill1(ph, 6)
	if w.Err() == nil {
		t.Error("expected an error filling the same placeholder twice")
	}
}

// once an error is recorded, every further Write must become a no-op.
func TestWriterStickyError(t *testing.T) {
	w := werr.New()
	ph := w.Ph1()
	w.Fill1(ph, 1)
	w.Fill1(ph, 2) // first error: double fill
	before := append([]byte(nil), w.Bytes()...)

	w.U8(0xAA)
	w.U16(0xBBBB)
	w.Raw([]byte{1, 2, 3})

	if !bytes.Equal(w.Bytes(), before) {
		t.Errorf("Write after error mutated the buffer: % x != % x", w.Bytes(), before)
	}
}

func TestWriterAppendPropagatesError(t *testing.T) {
	bad := werr.New()
	ph := bad.Ph1()
	bad.Fill1(ph, 1)
	bad.Fill1(ph, 2)

	w := werr.New()
	w.U8(1)
	w.Append(bad)
	if w.Err() == nil {
		t.Error("expected Append to propagate the source writer's error")
	}
}

func TestWriterFillOffsetOutOfRange(t *testing.T) {
	w1 := werr.New()
	ph := w1.Ph4()

	w2 := werr.New()
	w2.Fill4(ph, 1)
	if w2.Err() == nil {
		t.Error("expected an error filling a placeholder from a different writer")
	}
}
