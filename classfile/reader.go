package classfile

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
)

// Reader is a cursor over a byte slice with the big-endian fixed-width
// read primitives a class file's binary format needs, plus a running
// position used to validate bytecode offsets and attribute lengths as
// they're consumed.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps a byte slice for sequential binary parsing.
func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

// Pos returns the current read offset.
func (r *Reader) Pos() int { return r.pos }

// Len returns the number of unread bytes remaining.
func (r *Reader) Len() int { return len(r.buf) - r.pos }

// Peek returns the n bytes starting at the current position without
// advancing it.
func (r *Reader) Peek(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, errors.New("classfile: unexpected end of input")
	}
	return r.buf[r.pos : r.pos+n], nil
}

// U8 reads a single byte.
func (r *Reader) U8() (uint8, error) {
	if r.pos+1 > len(r.buf) {
		return 0, errors.New("classfile: unexpected end of input reading u1")
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

// U16 reads a big-endian uint16.
func (r *Reader) U16() (uint16, error) {
	if r.pos+2 > len(r.buf) {
		return 0, errors.New("classfile: unexpected end of input reading u2")
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

// U32 reads a big-endian uint32.
func (r *Reader) U32() (uint32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, errors.New("classfile: unexpected end of input reading u4")
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

// U64 reads a big-endian uint64.
func (r *Reader) U64() (uint64, error) {
	if r.pos+8 > len(r.buf) {
		return 0, errors.New("classfile: unexpected end of input reading u8")
	}
	v := binary.BigEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// Bytes reads and returns the next n raw bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if r.pos+n > len(r.buf) {
		return nil, errors.Errorf("classfile: unexpected end of input reading %d bytes", n)
	}
	v := r.buf[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}

// Skip advances the cursor by n bytes without returning them, used for
// the zero padding before a switch instruction's aligned operands.
func (r *Reader) Skip(n int) error {
	if r.pos+n > len(r.buf) {
		return errors.Errorf("classfile: unexpected end of input skipping %d bytes", n)
	}
	r.pos += n
	return nil
}

// ReadFile loads a whole class file from disk into memory with a plain
// read, the default acquisition path used by the "dis" subcommand.
func ReadFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return b, nil
}

// ReadFileMmap memory-maps path read-only and returns its contents
// without copying, the opt-in acquisition path for large class files
// (CLI flag --mmap). The returned closer must be invoked once the
// caller is done with the bytes.
func ReadFileMmap(path string) (data []byte, closer io.Closer, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "opening %s", path)
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, nil, errors.Wrapf(err, "mmapping %s", path)
	}
	return []byte(m), mmapCloser{m: m, f: f}, nil
}

type mmapCloser struct {
	m mmap.MMap
	f *os.File
}

func (c mmapCloser) Close() error {
	if err := c.m.Unmap(); err != nil {
		c.f.Close()
		return err
	}
	return c.f.Close()
}
