package classfile

import (
	"github.com/db47h/jasm/internal/werr"
	"github.com/pkg/errors"
)

// CodeOptions controls ambiguous decisions the binary Code attribute
// parser must make that depend on context the attribute bytes alone
// don't carry.
type CodeOptions struct {
	// AllowShort permits the legacy pre-45.3 short Code attribute form
	// (u1 max_stack, u1 max_locals, u2 code_length) to be recognized. The
	// caller decides this from the enclosing class file's version.
	AllowShort bool
}

// Code is the parsed form of a Code attribute: fixed header fields, the
// raw bytecode, the exception table, and any nested attributes
// (LineNumberTable, LocalVariableTable, StackMapTable, ...).
type Code struct {
	MaxStack   uint16
	MaxLocals  uint16
	Bytecode   []byte
	Exceptions []ExceptionTableEntry
	Attributes []Attribute
	Short      bool // true if this Code attribute used the legacy short form
}

// ExceptionTableEntry is one entry of a Code attribute's exception_table.
type ExceptionTableEntry struct {
	Start, End, Handler Pos
	CatchType            uint16 // 0 means catch-all (finally)
}

// Instr is one decoded bytecode instruction, with only the operand fields
// relevant to its Operand kind populated — mirroring the Constant struct's
// tagged-union-via-zero-fields shape used throughout this package.
type Instr struct {
	Offset  Pos
	Opcode  byte
	Operand OperandKind

	Local   uint16 // OperandLocal, OperandIinc (index), as a wide-extended value
	Imm     int32  // OperandI8, OperandI16, OperandIinc (const), OperandU8Raw
	Ref     uint16 // OperandClassRef, OperandFieldRef, OperandMethodRef, OperandLdc(Wide), OperandMultiNewArray (class ref)
	Dims    uint8  // OperandMultiNewArray
	IfaceN  uint8  // OperandInterfaceRef arg count
	Jump    Pos    // OperandShortJump, OperandLongJump: absolute resolved target
	Table   *SwitchTable
	Lookup  *SwitchMap
	IsWide  bool // this Local/Imm pair came from a "wide" prefix
}

// Len returns the total encoded length in bytes of this instruction,
// including its opcode byte, used to find the next instruction's offset
// while walking a bytecode array.
func (ins Instr) Len() int {
	switch ins.Operand {
	case OperandNone:
		return 1
	case OperandLocal:
		if ins.IsWide {
			return 4
		}
		return 2
	case OperandI8, OperandU8Raw:
		return 2
	case OperandI16:
		return 3
	case OperandShortJump:
		return 3
	case OperandLongJump:
		return 5
	case OperandClassRef, OperandFieldRef, OperandMethodRef, OperandLdcWide:
		return 3
	case OperandLdc:
		return 2
	case OperandIinc:
		if ins.IsWide {
			return 6
		}
		return 3
	case OperandMultiNewArray:
		return 4
	case OperandInterfaceRef:
		return 5
	case OperandInvokeDynamicRef:
		return 5
	case OperandWide:
		if ins.Operand2IsIinc() {
			return 6
		}
		return 4
	case OperandTableSwitch:
		if ins.Table != nil {
			return 1 + PadLen(ins.Offset) + 12 + 4*len(ins.Table.Targets)
		}
	case OperandLookupSwitch:
		if ins.Lookup != nil {
			return 1 + PadLen(ins.Offset) + 8 + 8*len(ins.Lookup.Pairs)
		}
	}
	return 1
}

// Operand2IsIinc reports whether a decoded "wide" instruction wraps iinc
// (6-byte encoding) rather than a load/store (4-byte encoding). Decoded
// separately by ParseInstructions; present for documentation of the Len
// computation above.
func (ins Instr) Operand2IsIinc() bool { return ins.Opcode == OpIinc }

// ParseInstructions decodes the full bytecode array of a method into a
// sequence of instructions plus the set of offsets at which an
// instruction begins (used to validate branch targets and table entries
// that must point at instruction boundaries).
func ParseInstructions(code []byte) ([]Instr, *PosSet, error) {
	r := NewReader(code)
	var instrs []Instr
	starts := NewPosSet()

	for r.Len() > 0 {
		off := Pos(r.Pos())
		starts.Add(off)
		opByte, err := r.U8()
		if err != nil {
			return nil, nil, err
		}
		ins, err := decodeOne(r, off, opByte)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "decoding instruction at offset %d", off)
		}
		instrs = append(instrs, ins)
	}
	return instrs, starts, nil
}

func decodeOne(r *Reader, off Pos, opByte byte) (Instr, error) {
	info, ok := LookupOpcode(opByte)
	if !ok {
		return Instr{}, errors.Errorf("unknown opcode 0x%02x", opByte)
	}
	ins := Instr{Offset: off, Opcode: opByte, Operand: info.Operand}

	switch info.Operand {
	case OperandNone:
		// nothing to read
	case OperandLocal, OperandU8Raw:
		v, err := r.U8()
		if err != nil {
			return Instr{}, err
		}
		if info.Operand == OperandLocal {
			ins.Local = uint16(v)
		} else {
			ins.Imm = int32(v)
		}
	case OperandI8:
		v, err := r.U8()
		if err != nil {
			return Instr{}, err
		}
		ins.Imm = int32(int8(v))
	case OperandI16:
		v, err := r.U16()
		if err != nil {
			return Instr{}, err
		}
		ins.Imm = int32(int16(v))
	case OperandShortJump:
		v, err := r.U16()
		if err != nil {
			return Instr{}, err
		}
		target, err := off.Off(int32(int16(v)))
		if err != nil {
			return Instr{}, err
		}
		ins.Jump = target
	case OperandLongJump:
		v, err := r.U32()
		if err != nil {
			return Instr{}, err
		}
		target, err := off.Off(int32(v))
		if err != nil {
			return Instr{}, err
		}
		ins.Jump = target
	case OperandClassRef, OperandFieldRef, OperandMethodRef, OperandLdcWide:
		v, err := r.U16()
		if err != nil {
			return Instr{}, err
		}
		ins.Ref = v
	case OperandLdc:
		v, err := r.U8()
		if err != nil {
			return Instr{}, err
		}
		ins.Ref = uint16(v)
	case OperandIinc:
		idx, err := r.U8()
		if err != nil {
			return Instr{}, err
		}
		c, err := r.U8()
		if err != nil {
			return Instr{}, err
		}
		ins.Local = uint16(idx)
		ins.Imm = int32(int8(c))
	case OperandMultiNewArray:
		ref, err := r.U16()
		if err != nil {
			return Instr{}, err
		}
		dims, err := r.U8()
		if err != nil {
			return Instr{}, err
		}
		ins.Ref = ref
		ins.Dims = dims
	case OperandInterfaceRef:
		ref, err := r.U16()
		if err != nil {
			return Instr{}, err
		}
		count, err := r.U8()
		if err != nil {
			return Instr{}, err
		}
		if _, err := r.U8(); err != nil { // reserved trailing zero byte
			return Instr{}, err
		}
		ins.Ref = ref
		ins.IfaceN = count
	case OperandInvokeDynamicRef:
		ref, err := r.U16()
		if err != nil {
			return Instr{}, err
		}
		if _, err := r.U16(); err != nil { // reserved trailing zero bytes
			return Instr{}, err
		}
		ins.Ref = ref
	case OperandTableSwitch:
		if err := r.Skip(PadLen(off)); err != nil {
			return Instr{}, err
		}
		t, err := parseTableSwitch(r, off)
		if err != nil {
			return Instr{}, err
		}
		ins.Table = t
	case OperandLookupSwitch:
		if err := r.Skip(PadLen(off)); err != nil {
			return Instr{}, err
		}
		t, err := parseLookupSwitch(r, off)
		if err != nil {
			return Instr{}, err
		}
		ins.Lookup = t
	case OperandWide:
		wideOp, err := r.U8()
		if err != nil {
			return Instr{}, err
		}
		idx, err := r.U16()
		if err != nil {
			return Instr{}, err
		}
		ins.Opcode = wideOp
		ins.Local = idx
		ins.IsWide = true
		if wideOp == OpIinc {
			c, err := r.U16()
			if err != nil {
				return Instr{}, err
			}
			ins.Operand = OperandIinc
			ins.Imm = int32(int16(c))
		} else {
			wInfo, ok := LookupOpcode(wideOp)
			if !ok || wInfo.Operand != OperandLocal {
				return Instr{}, errors.Errorf("invalid opcode 0x%02x after wide prefix", wideOp)
			}
			ins.Operand = OperandLocal
		}
	}
	return ins, nil
}

func parseTableSwitch(r *Reader, base Pos) (*SwitchTable, error) {
	defaultOff, err := r.U32()
	if err != nil {
		return nil, err
	}
	low, err := r.U32()
	if err != nil {
		return nil, err
	}
	high, err := r.U32()
	if err != nil {
		return nil, err
	}
	lowI := int32(low)
	highI := int32(high)
	if highI < lowI {
		return nil, errors.New("tableswitch high < low")
	}
	n := int(highI-lowI) + 1
	targets := make([]Pos, n)
	for i := 0; i < n; i++ {
		off, err := r.U32()
		if err != nil {
			return nil, err
		}
		target, err := base.Off(int32(off))
		if err != nil {
			return nil, err
		}
		targets[i] = target
	}
	def, err := base.Off(int32(defaultOff))
	if err != nil {
		return nil, err
	}
	return &SwitchTable{Default: def, Low: lowI, Targets: targets}, nil
}

func parseLookupSwitch(r *Reader, base Pos) (*SwitchMap, error) {
	defaultOff, err := r.U32()
	if err != nil {
		return nil, err
	}
	n, err := r.U32()
	if err != nil {
		return nil, err
	}
	pairs := make([]SwitchPair, n)
	for i := range pairs {
		key, err := r.U32()
		if err != nil {
			return nil, err
		}
		off, err := r.U32()
		if err != nil {
			return nil, err
		}
		target, err := base.Off(int32(off))
		if err != nil {
			return nil, err
		}
		pairs[i] = SwitchPair{Key: int32(key), Target: target}
	}
	def, err := base.Off(int32(defaultOff))
	if err != nil {
		return nil, err
	}
	return &SwitchMap{Default: def, Pairs: pairs}, nil
}

// ParseCode parses one Code attribute's body (the bytes following the
// attribute_name_index/attribute_length header).
//
// When opts.AllowShort is set (class version <= 45.2 and the caller
// hasn't forced the modern form), the short and long header forms are
// both attempted against the same bytes: a class file can be crafted so
// that it parses validly both ways while producing different bytecode,
// since every JVM up to Java 13 reads the short form here and every JVM
// from 14 on reads the long form regardless of class version. ambiguous
// reports when that happened; the short-form result is preferred in
// that case, matching every pre-14 JVM's behavior.
func ParseCode(info []byte, opts CodeOptions) (c *Code, ambiguous bool, err error) {
	if opts.AllowShort {
		short, shortErr := parseCodeBody(info, true)
		long, longErr := parseCodeBody(info, false)
		switch {
		case shortErr == nil && longErr == nil:
			return short, true, nil
		case shortErr == nil:
			return short, false, nil
		case longErr == nil:
			return long, false, nil
		default:
			return nil, false, shortErr
		}
	}
	c, err = parseCodeBody(info, false)
	return c, false, err
}

func parseCodeBody(info []byte, short bool) (*Code, error) {
	r := NewReader(info)
	c := &Code{Short: short}

	if short {
		maxStack, err := r.U8()
		if err != nil {
			return nil, err
		}
		maxLocals, err := r.U8()
		if err != nil {
			return nil, err
		}
		codeLen, err := r.U16()
		if err != nil {
			return nil, err
		}
		code, err := r.Bytes(int(codeLen))
		if err != nil {
			return nil, err
		}
		c.MaxStack = uint16(maxStack)
		c.MaxLocals = uint16(maxLocals)
		c.Bytecode = append([]byte(nil), code...)
	} else {
		maxStack, err := r.U16()
		if err != nil {
			return nil, err
		}
		maxLocals, err := r.U16()
		if err != nil {
			return nil, err
		}
		codeLen, err := r.U32()
		if err != nil {
			return nil, err
		}
		code, err := r.Bytes(int(codeLen))
		if err != nil {
			return nil, err
		}
		c.MaxStack = maxStack
		c.MaxLocals = maxLocals
		c.Bytecode = append([]byte(nil), code...)
	}

	numExc, err := r.U16()
	if err != nil {
		return nil, err
	}
	c.Exceptions = make([]ExceptionTableEntry, numExc)
	for i := range c.Exceptions {
		start, err := r.U16()
		if err != nil {
			return nil, err
		}
		end, err := r.U16()
		if err != nil {
			return nil, err
		}
		handler, err := r.U16()
		if err != nil {
			return nil, err
		}
		catchType, err := r.U16()
		if err != nil {
			return nil, err
		}
		c.Exceptions[i] = ExceptionTableEntry{Pos(start), Pos(end), Pos(handler), catchType}
	}

	attrs, err := ReadAttributes(r)
	if err != nil {
		return nil, err
	}
	c.Attributes = attrs
	if r.Len() != 0 {
		return nil, errors.Errorf("%d trailing bytes in Code attribute", r.Len())
	}
	return c, nil
}

// WriteCode serializes a Code attribute's body (everything after the
// attribute_name_index/attribute_length header) to w, using the short
// pre-45.3 header form when c.Short is set.
func WriteCode(w *werr.Writer, c *Code) {
	if c.Short {
		w.U8(uint8(c.MaxStack))
		w.U8(uint8(c.MaxLocals))
		w.U16(uint16(len(c.Bytecode)))
	} else {
		w.U16(c.MaxStack)
		w.U16(c.MaxLocals)
		w.U32(uint32(len(c.Bytecode)))
	}
	w.Raw(c.Bytecode)
	w.U16(uint16(len(c.Exceptions)))
	for _, e := range c.Exceptions {
		w.U16(uint16(e.Start))
		w.U16(uint16(e.End))
		w.U16(uint16(e.Handler))
		w.U16(e.CatchType)
	}
	writeAttributes(w, c.Attributes)
}
