package classfile

import (
	"github.com/db47h/jasm/internal/werr"
	"github.com/pkg/errors"
)

// Constant is one constant pool entry in its raw, binary, index-based
// form — the representation produced by the symbolic pool resolver
// (package cpool) when assembling, and read directly off the wire when
// disassembling. Only the fields relevant to Tag are populated; this
// single-struct-with-a-tag shape (rather than one Go type per tag, or
// generics over a sum type) follows the constant pool entry model used
// by the jacobin classloader's CpType, adapted to the fields this format
// actually needs.
type Constant struct {
	Tag Tag

	Utf8 []byte // Utf8: Modified UTF-8 bytes

	Bits32 uint32 // Integer, Float: raw bit pattern
	Bits64 uint64 // Long, Double: raw bit pattern

	Index1 uint16 // Class/String/MethodType/Module/Package: name or descriptor index
	                // Fieldref/Methodref/InterfaceMethodref: class_index
	                // NameAndType: name_index
	                // MethodHandle: reference_index
	                // Dynamic/InvokeDynamic: name_and_type_index
	Index2 uint16 // Fieldref/Methodref/InterfaceMethodref: name_and_type_index
	                // NameAndType: descriptor_index

	RefKind byte // MethodHandle: reference_kind

	BootstrapIndex uint16 // Dynamic, InvokeDynamic: bootstrap_method_attr_index
}

// Size returns how many constant pool slots this entry occupies: 2 for
// Long/Double, 1 otherwise.
func (c Constant) Size() int {
	if c.Tag.IsWide() {
		return 2
	}
	return 1
}

// Pool is the constant_pool array of a class file, using Go's natural
// 0-based indexing internally; index 0 and any index immediately
// following a Long/Double entry are stored as a zero-value Constant with
// Tag 0 and must never be dereferenced by index-consumers, mirroring the
// JVM's own "these slots are reserved/unusable" rule. Valid constant pool
// indices as they appear in class file bytes and in the textual syntax
// are always 1-based; callers index this slice directly with that 1-based
// value, so Entries[0] is always the unused placeholder.
type Pool struct {
	Entries []Constant
}

// Get returns the constant at 1-based index idx, or an error if idx is 0,
// out of range, or the dead slot following a wide entry.
func (p *Pool) Get(idx uint16) (Constant, error) {
	if idx == 0 || int(idx) >= len(p.Entries) {
		return Constant{}, errors.Errorf("invalid constant pool index %d", idx)
	}
	c := p.Entries[idx]
	if c.Tag == 0 {
		return Constant{}, errors.Errorf("constant pool index %d refers to an unusable slot", idx)
	}
	return c, nil
}

// Utf8At fetches and decodes a Utf8 entry, failing if idx does not refer
// to one.
func (p *Pool) Utf8At(idx uint16) ([]byte, error) {
	c, err := p.Get(idx)
	if err != nil {
		return nil, err
	}
	if c.Tag != TagUtf8 {
		return nil, errors.Errorf("constant pool index %d: expected Utf8, found %s", idx, c.Tag)
	}
	return c.Utf8, nil
}

// ReadPool parses the constant_pool_count and constant_pool array from r.
func ReadPool(r *Reader) (*Pool, error) {
	count, err := r.U16()
	if err != nil {
		return nil, errors.Wrap(err, "reading constant_pool_count")
	}
	entries := make([]Constant, count)
	for i := 1; i < int(count); i++ {
		c, err := readConstant(r)
		if err != nil {
			return nil, errors.Wrapf(err, "reading constant pool entry %d", i)
		}
		entries[i] = c
		if c.Tag.IsWide() {
			i++
			if i >= int(count) {
				return nil, errors.Errorf("wide constant at index %d has no following dead slot", i-1)
			}
			// entries[i] stays zero-valued: the dead slot after a wide entry
		}
	}
	return &Pool{Entries: entries}, nil
}

func readConstant(r *Reader) (Constant, error) {
	tagByte, err := r.U8()
	if err != nil {
		return Constant{}, err
	}
	tag := Tag(tagByte)
	switch tag {
	case TagUtf8:
		n, err := r.U16()
		if err != nil {
			return Constant{}, err
		}
		b, err := r.Bytes(int(n))
		if err != nil {
			return Constant{}, err
		}
		cp := make([]byte, len(b))
		copy(cp, b)
		return Constant{Tag: tag, Utf8: cp}, nil
	case TagInteger, TagFloat:
		v, err := r.U32()
		if err != nil {
			return Constant{}, err
		}
		return Constant{Tag: tag, Bits32: v}, nil
	case TagLong, TagDouble:
		v, err := r.U64()
		if err != nil {
			return Constant{}, err
		}
		return Constant{Tag: tag, Bits64: v}, nil
	case TagClass, TagString, TagMethodType, TagModule, TagPackage:
		v, err := r.U16()
		if err != nil {
			return Constant{}, err
		}
		return Constant{Tag: tag, Index1: v}, nil
	case TagFieldref, TagMethodref, TagInterfaceMethodref:
		c1, err := r.U16()
		if err != nil {
			return Constant{}, err
		}
		c2, err := r.U16()
		if err != nil {
			return Constant{}, err
		}
		return Constant{Tag: tag, Index1: c1, Index2: c2}, nil
	case TagNameAndType:
		n1, err := r.U16()
		if err != nil {
			return Constant{}, err
		}
		n2, err := r.U16()
		if err != nil {
			return Constant{}, err
		}
		return Constant{Tag: tag, Index1: n1, Index2: n2}, nil
	case TagMethodHandle:
		kind, err := r.U8()
		if err != nil {
			return Constant{}, err
		}
		idx, err := r.U16()
		if err != nil {
			return Constant{}, err
		}
		return Constant{Tag: tag, RefKind: kind, Index1: idx}, nil
	case TagDynamic, TagInvokeDynamic:
		bsIdx, err := r.U16()
		if err != nil {
			return Constant{}, err
		}
		natIdx, err := r.U16()
		if err != nil {
			return Constant{}, err
		}
		return Constant{Tag: tag, BootstrapIndex: bsIdx, Index1: natIdx}, nil
	default:
		return Constant{}, errors.Errorf("unknown constant pool tag %d", tagByte)
	}
}

// Write serializes the pool (including its count field) to w.
func (p *Pool) Write(w *werr.Writer) {
	w.U16(uint16(len(p.Entries)))
	for i := 1; i < len(p.Entries); i++ {
		c := p.Entries[i]
		if c.Tag == 0 {
			continue // dead slot following a wide entry
		}
		writeConstant(w, c)
	}
}

func writeConstant(w *werr.Writer, c Constant) {
	w.U8(byte(c.Tag))
	switch c.Tag {
	case TagUtf8:
		w.U16(uint16(len(c.Utf8)))
		w.Raw(c.Utf8)
	case TagInteger, TagFloat:
		w.U32(c.Bits32)
	case TagLong, TagDouble:
		w.U64(c.Bits64)
	case TagClass, TagString, TagMethodType, TagModule, TagPackage:
		w.U16(c.Index1)
	case TagFieldref, TagMethodref, TagInterfaceMethodref:
		w.U16(c.Index1)
		w.U16(c.Index2)
	case TagNameAndType:
		w.U16(c.Index1)
		w.U16(c.Index2)
	case TagMethodHandle:
		w.U8(c.RefKind)
		w.U16(c.Index1)
	case TagDynamic, TagInvokeDynamic:
		w.U16(c.BootstrapIndex)
		w.U16(c.Index1)
	}
}
