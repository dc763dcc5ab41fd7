package classfile

import "github.com/pkg/errors"

// Attribute is one raw attribute_info structure: a name (by constant pool
// index) and its info bytes, kept verbatim. Well-known attributes are
// decoded into typed structs on demand by the Decode* helpers below
// rather than eagerly, since the disassembler only needs to interpret the
// attributes it actually prints and the assembler only needs to produce
// bytes, not a parsed tree, for attributes it passes through unchanged.
type Attribute struct {
	NameIndex uint16
	Info      []byte
	// LengthOverride, when non-nil, is written as the attribute_length
	// field in place of len(Info). Lets a ".attribute NameRef length N"
	// prefix reproduce a byte-exact mismatched length on a dedicated,
	// decoded attribute directive.
	LengthOverride *uint32
}

// ReadAttributes reads an attributes_count followed by that many
// attribute_info structures.
func ReadAttributes(r *Reader) ([]Attribute, error) {
	n, err := r.U16()
	if err != nil {
		return nil, err
	}
	attrs := make([]Attribute, n)
	for i := range attrs {
		nameIdx, err := r.U16()
		if err != nil {
			return nil, err
		}
		length, err := r.U32()
		if err != nil {
			return nil, err
		}
		info, err := r.Bytes(int(length))
		if err != nil {
			return nil, errors.Wrapf(err, "reading attribute %d body", i)
		}
		attrs[i] = Attribute{NameIndex: nameIdx, Info: append([]byte(nil), info...)}
	}
	return attrs, nil
}

// Find returns the first attribute in attrs whose name (resolved through
// pool) equals name, or ok=false.
func Find(attrs []Attribute, pool *Pool, name string) (Attribute, bool) {
	for _, a := range attrs {
		n, err := pool.Utf8At(a.NameIndex)
		if err != nil {
			continue
		}
		if string(n) == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// DecodeConstantValue decodes a ConstantValue attribute body: a single
// constant_value_index.
func DecodeConstantValue(info []byte) (uint16, error) {
	r := NewReader(info)
	idx, err := r.U16()
	if err != nil {
		return 0, err
	}
	if r.Len() != 0 {
		return 0, errors.Errorf("%d trailing bytes in ConstantValue attribute", r.Len())
	}
	return idx, nil
}

// DecodeExceptions decodes an Exceptions attribute body into the list of
// checked exception class constant pool indices a method declares.
func DecodeExceptions(info []byte) ([]uint16, error) {
	r := NewReader(info)
	n, err := r.U16()
	if err != nil {
		return nil, err
	}
	out := make([]uint16, n)
	for i := range out {
		if out[i], err = r.U16(); err != nil {
			return nil, err
		}
	}
	if r.Len() != 0 {
		return nil, errors.Errorf("%d trailing bytes in Exceptions attribute", r.Len())
	}
	return out, nil
}

// LineNumberEntry is one entry of a LineNumberTable attribute.
type LineNumberEntry struct {
	StartPC Pos
	Line    uint16
}

// DecodeLineNumberTable decodes a LineNumberTable attribute body.
func DecodeLineNumberTable(info []byte) ([]LineNumberEntry, error) {
	r := NewReader(info)
	n, err := r.U16()
	if err != nil {
		return nil, err
	}
	out := make([]LineNumberEntry, n)
	for i := range out {
		pc, err := r.U16()
		if err != nil {
			return nil, err
		}
		line, err := r.U16()
		if err != nil {
			return nil, err
		}
		out[i] = LineNumberEntry{Pos(pc), line}
	}
	if r.Len() != 0 {
		return nil, errors.Errorf("%d trailing bytes in LineNumberTable attribute", r.Len())
	}
	return out, nil
}

// LocalVariableEntry is one entry of a LocalVariableTable attribute.
type LocalVariableEntry struct {
	StartPC, Length Pos
	NameIndex       uint16
	DescriptorIndex uint16
	Index           uint16
}

// DecodeLocalVariableTable decodes a LocalVariableTable attribute body.
func DecodeLocalVariableTable(info []byte) ([]LocalVariableEntry, error) {
	return decodeLocalVarTable(info, false)
}

// LocalVariableTypeEntry is one entry of a LocalVariableTypeTable
// attribute, structurally identical to LocalVariableEntry except that its
// third field is a generic signature index instead of a descriptor index.
type LocalVariableTypeEntry = LocalVariableEntry

// DecodeLocalVariableTypeTable decodes a LocalVariableTypeTable attribute
// body.
func DecodeLocalVariableTypeTable(info []byte) ([]LocalVariableTypeEntry, error) {
	return decodeLocalVarTable(info, true)
}

func decodeLocalVarTable(info []byte, _ bool) ([]LocalVariableEntry, error) {
	r := NewReader(info)
	n, err := r.U16()
	if err != nil {
		return nil, err
	}
	out := make([]LocalVariableEntry, n)
	for i := range out {
		start, err := r.U16()
		if err != nil {
			return nil, err
		}
		length, err := r.U16()
		if err != nil {
			return nil, err
		}
		nameIdx, err := r.U16()
		if err != nil {
			return nil, err
		}
		descIdx, err := r.U16()
		if err != nil {
			return nil, err
		}
		index, err := r.U16()
		if err != nil {
			return nil, err
		}
		out[i] = LocalVariableEntry{Pos(start), Pos(length), nameIdx, descIdx, index}
	}
	if r.Len() != 0 {
		return nil, errors.Errorf("%d trailing bytes in LocalVariableTable attribute", r.Len())
	}
	return out, nil
}

// BootstrapMethod is one entry of the class-level BootstrapMethods
// attribute: the method handle to invoke plus its static argument
// constants.
type BootstrapMethod struct {
	MethodRef uint16
	Args      []uint16
}

// DecodeBootstrapMethods decodes a BootstrapMethods attribute body.
func DecodeBootstrapMethods(info []byte) ([]BootstrapMethod, error) {
	r := NewReader(info)
	n, err := r.U16()
	if err != nil {
		return nil, err
	}
	out := make([]BootstrapMethod, n)
	for i := range out {
		ref, err := r.U16()
		if err != nil {
			return nil, err
		}
		argc, err := r.U16()
		if err != nil {
			return nil, err
		}
		args := make([]uint16, argc)
		for j := range args {
			if args[j], err = r.U16(); err != nil {
				return nil, err
			}
		}
		out[i] = BootstrapMethod{MethodRef: ref, Args: args}
	}
	return out, nil
}

// InnerClassEntry is one entry of an InnerClasses attribute.
type InnerClassEntry struct {
	InnerClassInfoIndex   uint16
	OuterClassInfoIndex   uint16
	InnerNameIndex        uint16
	InnerClassAccessFlags uint16
}

// DecodeInnerClasses decodes an InnerClasses attribute body.
func DecodeInnerClasses(info []byte) ([]InnerClassEntry, error) {
	r := NewReader(info)
	n, err := r.U16()
	if err != nil {
		return nil, err
	}
	out := make([]InnerClassEntry, n)
	for i := range out {
		inner, err := r.U16()
		if err != nil {
			return nil, err
		}
		outer, err := r.U16()
		if err != nil {
			return nil, err
		}
		name, err := r.U16()
		if err != nil {
			return nil, err
		}
		flags, err := r.U16()
		if err != nil {
			return nil, err
		}
		out[i] = InnerClassEntry{inner, outer, name, flags}
	}
	if r.Len() != 0 {
		return nil, errors.Errorf("%d trailing bytes in InnerClasses attribute", r.Len())
	}
	return out, nil
}

// MethodParameterEntry is one entry of a MethodParameters attribute.
type MethodParameterEntry struct {
	NameIndex   uint16
	AccessFlags uint16
}

// DecodeMethodParameters decodes a MethodParameters attribute body.
func DecodeMethodParameters(info []byte) ([]MethodParameterEntry, error) {
	r := NewReader(info)
	n, err := r.U8()
	if err != nil {
		return nil, err
	}
	out := make([]MethodParameterEntry, n)
	for i := range out {
		name, err := r.U16()
		if err != nil {
			return nil, err
		}
		flags, err := r.U16()
		if err != nil {
			return nil, err
		}
		out[i] = MethodParameterEntry{name, flags}
	}
	if r.Len() != 0 {
		return nil, errors.Errorf("%d trailing bytes in MethodParameters attribute", r.Len())
	}
	return out, nil
}

// DecodeEnclosingMethod decodes an EnclosingMethod attribute body: a class
// index and an optional (0 when absent) method NameAndType index.
func DecodeEnclosingMethod(info []byte) (classIndex, methodIndex uint16, err error) {
	r := NewReader(info)
	if classIndex, err = r.U16(); err != nil {
		return
	}
	if methodIndex, err = r.U16(); err != nil {
		return
	}
	if r.Len() != 0 {
		err = errors.Errorf("%d trailing bytes in EnclosingMethod attribute", r.Len())
	}
	return
}

// VerificationType identifies one stack map frame verification_type_info
// tag (JVM Spec 4.7.4).
type VerificationType byte

const (
	VTTop VerificationType = iota
	VTInteger
	VTFloat
	VTDouble
	VTLong
	VTNull
	VTUninitializedThis
	VTObject
	VTUninitialized
)

// VerificationTypeInfo is one verification_type_info entry: a tag plus,
// for Object and Uninitialized, an associated constant pool index or
// bytecode offset.
type VerificationTypeInfo struct {
	Tag           VerificationType
	CPoolIndex    uint16 // VTObject: class constant pool index
	OffsetOrIndex Pos    // VTUninitialized: new instruction offset
}

// StackMapFrame is one decoded stack_map_frame entry. OffsetDelta is as
// encoded on the wire (first frame's delta equals its absolute offset;
// every subsequent frame's delta is interpreted relative to the previous
// frame's absolute offset plus one) — the disassembler resolves deltas to
// absolute offsets using that rule while walking the list in order.
type StackMapFrame struct {
	FrameType   byte
	OffsetDelta uint16
	Locals      []VerificationTypeInfo // append_frame / full_frame
	Stack       []VerificationTypeInfo // same_locals_1_stack_item_frame / full_frame
}

// DecodeStackMapTable decodes a StackMapTable attribute body.
func DecodeStackMapTable(info []byte) ([]StackMapFrame, error) {
	r := NewReader(info)
	n, err := r.U16()
	if err != nil {
		return nil, err
	}
	frames := make([]StackMapFrame, n)
	for i := range frames {
		f, err := decodeFrame(r)
		if err != nil {
			return nil, errors.Wrapf(err, "stack map frame %d", i)
		}
		frames[i] = f
	}
	return frames, nil
}

func decodeFrame(r *Reader) (StackMapFrame, error) {
	ft, err := r.U8()
	if err != nil {
		return StackMapFrame{}, err
	}
	switch {
	case ft <= 63:
		return StackMapFrame{FrameType: ft, OffsetDelta: uint16(ft)}, nil
	case ft <= 127:
		vt, err := decodeVerificationType(r)
		if err != nil {
			return StackMapFrame{}, err
		}
		return StackMapFrame{FrameType: ft, OffsetDelta: uint16(ft - 64), Stack: []VerificationTypeInfo{vt}}, nil
	case ft == 247:
		delta, err := r.U16()
		if err != nil {
			return StackMapFrame{}, err
		}
		vt, err := decodeVerificationType(r)
		if err != nil {
			return StackMapFrame{}, err
		}
		return StackMapFrame{FrameType: ft, OffsetDelta: delta, Stack: []VerificationTypeInfo{vt}}, nil
	case ft >= 248 && ft <= 250:
		delta, err := r.U16()
		if err != nil {
			return StackMapFrame{}, err
		}
		return StackMapFrame{FrameType: ft, OffsetDelta: delta}, nil
	case ft == 251:
		delta, err := r.U16()
		if err != nil {
			return StackMapFrame{}, err
		}
		return StackMapFrame{FrameType: ft, OffsetDelta: delta}, nil
	case ft >= 252 && ft <= 254:
		delta, err := r.U16()
		if err != nil {
			return StackMapFrame{}, err
		}
		numLocals := int(ft) - 251
		locals := make([]VerificationTypeInfo, numLocals)
		for i := range locals {
			if locals[i], err = decodeVerificationType(r); err != nil {
				return StackMapFrame{}, err
			}
		}
		return StackMapFrame{FrameType: ft, OffsetDelta: delta, Locals: locals}, nil
	case ft == 255:
		delta, err := r.U16()
		if err != nil {
			return StackMapFrame{}, err
		}
		numLocals, err := r.U16()
		if err != nil {
			return StackMapFrame{}, err
		}
		locals := make([]VerificationTypeInfo, numLocals)
		for i := range locals {
			if locals[i], err = decodeVerificationType(r); err != nil {
				return StackMapFrame{}, err
			}
		}
		numStack, err := r.U16()
		if err != nil {
			return StackMapFrame{}, err
		}
		stack := make([]VerificationTypeInfo, numStack)
		for i := range stack {
			if stack[i], err = decodeVerificationType(r); err != nil {
				return StackMapFrame{}, err
			}
		}
		return StackMapFrame{FrameType: ft, OffsetDelta: delta, Locals: locals, Stack: stack}, nil
	default:
		return StackMapFrame{}, errors.Errorf("reserved stack map frame type %d", ft)
	}
}

func decodeVerificationType(r *Reader) (VerificationTypeInfo, error) {
	tag, err := r.U8()
	if err != nil {
		return VerificationTypeInfo{}, err
	}
	vt := VerificationTypeInfo{Tag: VerificationType(tag)}
	switch VerificationType(tag) {
	case VTObject:
		idx, err := r.U16()
		if err != nil {
			return VerificationTypeInfo{}, err
		}
		vt.CPoolIndex = idx
	case VTUninitialized:
		off, err := r.U16()
		if err != nil {
			return VerificationTypeInfo{}, err
		}
		vt.OffsetOrIndex = Pos(off)
	}
	return vt, nil
}
