package classfile

import (
	"github.com/db47h/jasm/internal/werr"
	"github.com/pkg/errors"
)

// Magic is the fixed 4-byte signature every class file begins with.
const Magic = 0xCAFEBABE

// Member is a field_info or method_info structure: they share an
// identical binary layout (access_flags, name_index, descriptor_index,
// attributes), differing only in which access flag names and which
// attributes are meaningful.
type Member struct {
	AccessFlags     uint16
	NameIndex       uint16
	DescriptorIndex uint16
	Attributes      []Attribute
}

// ClassFile is the fully parsed binary structure of a .class file.
type ClassFile struct {
	Minor, Major uint16
	Pool         *Pool
	AccessFlags  uint16
	ThisClass    uint16
	SuperClass   uint16
	Interfaces   []uint16
	Fields       []Member
	Methods      []Member
	Attributes   []Attribute
}

// IsShortCode reports whether a class file of this version must use the
// legacy short Code attribute form (class file version < 45.3).
func (cf *ClassFile) IsShortCode() bool {
	return cf.Major < 45 || (cf.Major == 45 && cf.Minor < 3)
}

// ReadClassFile parses a full class file from data.
func ReadClassFile(data []byte) (*ClassFile, error) {
	r := NewReader(data)
	magic, err := r.U32()
	if err != nil {
		return nil, errors.Wrap(err, "reading magic")
	}
	if magic != Magic {
		return nil, errors.Errorf("bad magic 0x%08x, expected 0x%08x", magic, uint32(Magic))
	}
	minor, err := r.U16()
	if err != nil {
		return nil, err
	}
	major, err := r.U16()
	if err != nil {
		return nil, err
	}
	pool, err := ReadPool(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading constant pool")
	}
	accessFlags, err := r.U16()
	if err != nil {
		return nil, err
	}
	thisClass, err := r.U16()
	if err != nil {
		return nil, err
	}
	superClass, err := r.U16()
	if err != nil {
		return nil, err
	}
	nIfaces, err := r.U16()
	if err != nil {
		return nil, err
	}
	ifaces := make([]uint16, nIfaces)
	for i := range ifaces {
		if ifaces[i], err = r.U16(); err != nil {
			return nil, err
		}
	}
	fields, err := readMembers(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading fields")
	}
	methods, err := readMembers(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading methods")
	}
	attrs, err := ReadAttributes(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading class attributes")
	}
	return &ClassFile{
		Minor: minor, Major: major,
		Pool: pool, AccessFlags: accessFlags,
		ThisClass: thisClass, SuperClass: superClass,
		Interfaces: ifaces, Fields: fields, Methods: methods, Attributes: attrs,
	}, nil
}

func readMembers(r *Reader) ([]Member, error) {
	n, err := r.U16()
	if err != nil {
		return nil, err
	}
	out := make([]Member, n)
	for i := range out {
		af, err := r.U16()
		if err != nil {
			return nil, err
		}
		name, err := r.U16()
		if err != nil {
			return nil, err
		}
		desc, err := r.U16()
		if err != nil {
			return nil, err
		}
		attrs, err := ReadAttributes(r)
		if err != nil {
			return nil, err
		}
		out[i] = Member{AccessFlags: af, NameIndex: name, DescriptorIndex: desc, Attributes: attrs}
	}
	return out, nil
}

// WriteClassFile serializes a fully built ClassFile back into bytes.
func WriteClassFile(cf *ClassFile) ([]byte, error) {
	w := werr.New()
	w.U32(Magic)
	w.U16(cf.Minor)
	w.U16(cf.Major)
	cf.Pool.Write(w)
	w.U16(cf.AccessFlags)
	w.U16(cf.ThisClass)
	w.U16(cf.SuperClass)
	w.U16(uint16(len(cf.Interfaces)))
	for _, i := range cf.Interfaces {
		w.U16(i)
	}
	writeMembers(w, cf.Fields)
	writeMembers(w, cf.Methods)
	writeAttributes(w, cf.Attributes)
	if err := w.Err(); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func writeMembers(w *werr.Writer, members []Member) {
	w.U16(uint16(len(members)))
	for _, m := range members {
		w.U16(m.AccessFlags)
		w.U16(m.NameIndex)
		w.U16(m.DescriptorIndex)
		writeAttributes(w, m.Attributes)
	}
}

func writeAttributes(w *werr.Writer, attrs []Attribute) {
	w.U16(uint16(len(attrs)))
	for _, a := range attrs {
		w.U16(a.NameIndex)
		length := uint32(len(a.Info))
		if a.LengthOverride != nil {
			length = *a.LengthOverride
		}
		w.U32(length)
		w.Raw(a.Info)
	}
}
