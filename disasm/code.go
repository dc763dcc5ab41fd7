package disasm

import (
	"github.com/db47h/jasm/classfile"
	"github.com/pkg/errors"
)

// allowShortCode reports whether this class's version predates 45.3,
// the version at and after which only the long Code header form is
// legal.
func (d *disassembler) allowShortCode() bool {
	return !d.opts.NoShortCodeAttr && (d.cfVersion[0] < 45 || (d.cfVersion[0] == 45 && d.cfVersion[1] < 3))
}

// code disassembles a Code attribute's body into a ".code stack N locals
// N ... .end code" block.
//
// Grounded on
// _examples/original_source/src/lib/disassemble/disassembler.rs's code()
// and begin_bytecode_line(): every instruction gets an unconditional
// label definition immediately before it (asm/code.go's ParseCode has no
// numeric-offset fallback for a branch/catch/var target, so every label a
// later directive could reference must be defined somewhere), and any
// ".catch" entries starting at that offset print immediately before the
// label. The header is always the ".code" directive, never the legacy
// ".limit" form; for a class version before 45.3 whose Code attribute
// was read in the long form it carries the "long" marker, so that
// reassembly writes the same header width back out.
func (d *disassembler) code(a classfile.Attribute) error {
	allowShort := d.allowShortCode()
	c, ambiguous, err := classfile.ParseCode(a.Info, classfile.CodeOptions{AllowShort: allowShort})
	if err != nil {
		return errors.Wrap(err, "decoding Code attribute")
	}
	if ambiguous {
		d.ambiguousShortCode = true
	}
	instrs, _, err := classfile.ParseInstructions(c.Bytecode)
	if err != nil {
		return errors.Wrap(err, "decoding bytecode")
	}

	catchesAt := make(map[uint32][]classfile.ExceptionTableEntry)
	for _, e := range c.Exceptions {
		catchesAt[uint32(e.Start)] = append(catchesAt[uint32(e.Start)], e)
	}

	framesAt, remaining := d.stackMapFrames(c.Attributes)
	c.Attributes = remaining

	// A class version that would normally decode as the short form but
	// whose Code attribute was parsed as long (forced via
	// NoShortCodeAttr, or because the short parse failed) gets an
	// explicit "long" marker so reassembling doesn't regenerate the
	// short header for a version that would otherwise default to it.
	if d.cfVersion[0] < 45 || (d.cfVersion[0] == 45 && d.cfVersion[1] < 3) {
		if !c.Short {
			d.w.line(".code long stack %d locals %d", c.MaxStack, c.MaxLocals)
		} else {
			d.w.line(".code stack %d locals %d", c.MaxStack, c.MaxLocals)
		}
	} else {
		d.w.line(".code stack %d locals %d", c.MaxStack, c.MaxLocals)
	}
	d.w.enter()

	for _, ins := range instrs {
		d.beginBytecodeLine(uint32(ins.Offset), catchesAt, framesAt)
		if err := d.instr(ins); err != nil {
			return err
		}
	}
	d.beginBytecodeLine(uint32(len(c.Bytecode)), catchesAt, framesAt)
	d.w.newline()

	for _, na := range c.Attributes {
		if err := d.attr(na); err != nil {
			return err
		}
	}

	d.w.exit()
	d.w.line(".end code")
	return nil
}

func (d *disassembler) beginBytecodeLine(pos uint32, catchesAt map[uint32][]classfile.ExceptionTableEntry, framesAt map[uint32]classfile.StackMapFrame) {
	for _, e := range catchesAt[pos] {
		catch := "all"
		if e.CatchType != 0 {
			catch = d.rp.Cls(e.CatchType)
		}
		d.w.line(".catch %s from %s to %s using %s", catch, classfile.Pos(e.Start), classfile.Pos(e.End), classfile.Pos(e.Handler))
	}
	if f, ok := framesAt[pos]; ok {
		d.stackFrame(f)
	}
	d.w.startLine()
	d.w.printf("%s:", classfile.Pos(pos))
}

// stackMapFrames decodes attrs' StackMapTable attribute, if any, into a
// map from absolute bytecode offset to frame. The decoded attribute is
// removed from the returned attribute list so it isn't also printed as a
// generic passthrough; on a decode error the attribute is left untouched
// so the normal attribute loop falls back to printing it raw.
func (d *disassembler) stackMapFrames(attrs []classfile.Attribute) (map[uint32]classfile.StackMapFrame, []classfile.Attribute) {
	for i, a := range attrs {
		name, err := d.pool.Utf8At(a.NameIndex)
		if err != nil || string(name) != "StackMapTable" {
			continue
		}
		frames, err := classfile.DecodeStackMapTable(a.Info)
		if err != nil {
			return nil, attrs
		}
		at := make(map[uint32]classfile.StackMapFrame, len(frames))
		var pos uint32
		for j, f := range frames {
			if j == 0 {
				pos = uint32(f.OffsetDelta)
			} else {
				pos = pos + uint32(f.OffsetDelta) + 1
			}
			at[pos] = f
		}
		remaining := make([]classfile.Attribute, 0, len(attrs)-1)
		remaining = append(remaining, attrs[:i]...)
		remaining = append(remaining, attrs[i+1:]...)
		return at, remaining
	}
	return nil, attrs
}

// stackFrame prints one decoded stack_map_frame entry as a ".stack ..."
// directive, the inverse of codeAsm.parseStack.
func (d *disassembler) stackFrame(f classfile.StackMapFrame) {
	switch {
	case f.FrameType <= 63:
		d.w.line(".stack same")
	case f.FrameType <= 127:
		d.w.line(".stack stack_1 %s", d.formatVType(f.Stack[0]))
	case f.FrameType == 247:
		d.w.line(".stack stack_1_extended %s", d.formatVType(f.Stack[0]))
	case f.FrameType >= 248 && f.FrameType <= 250:
		d.w.line(".stack chop %d", 251-int(f.FrameType))
	case f.FrameType == 251:
		d.w.line(".stack same_extended")
	case f.FrameType >= 252 && f.FrameType <= 254:
		d.w.startLine()
		d.w.printf(".stack append")
		for _, l := range f.Locals {
			d.w.printf(" %s", d.formatVType(l))
		}
		d.w.printf("\n")
	default:
		d.w.line(".stack full")
		d.w.enter()
		d.w.startLine()
		d.w.printf("locals")
		for _, l := range f.Locals {
			d.w.printf(" %s", d.formatVType(l))
		}
		d.w.printf("\n")
		d.w.startLine()
		d.w.printf("stack")
		for _, s := range f.Stack {
			d.w.printf(" %s", d.formatVType(s))
		}
		d.w.printf("\n")
		d.w.exit()
		d.w.line(".end stack")
	}
}

func (d *disassembler) formatVType(vt classfile.VerificationTypeInfo) string {
	switch vt.Tag {
	case classfile.VTTop:
		return "Top"
	case classfile.VTInteger:
		return "Integer"
	case classfile.VTFloat:
		return "Float"
	case classfile.VTDouble:
		return "Double"
	case classfile.VTLong:
		return "Long"
	case classfile.VTNull:
		return "Null"
	case classfile.VTUninitializedThis:
		return "UninitializedThis"
	case classfile.VTObject:
		return "Object " + d.rp.Cls(vt.CPoolIndex)
	case classfile.VTUninitialized:
		return "Uninitialized " + vt.OffsetOrIndex.String()
	default:
		return "Top"
	}
}

// instr prints one decoded bytecode instruction, the inverse of
// emitInstruction's operand switch in asm/code.go.
func (d *disassembler) instr(ins classfile.Instr) error {
	info, ok := classfile.LookupOpcode(ins.Opcode)
	if !ok {
		return errors.Errorf("unknown opcode 0x%02x at offset %d", ins.Opcode, ins.Offset)
	}
	name := info.Name
	prefix := ""
	if ins.IsWide {
		prefix = "wide "
	}

	switch ins.Operand {
	case classfile.OperandNone:
		d.w.printf(" %s%s\n", prefix, name)
	case classfile.OperandLocal:
		d.w.printf(" %s%s %d\n", prefix, name, ins.Local)
	case classfile.OperandI8, classfile.OperandI16:
		d.w.printf(" %s%s %d\n", prefix, name, ins.Imm)
	case classfile.OperandU8Raw:
		tname, ok := classfile.NewarrayName(uint8(ins.Imm))
		if !ok {
			return errors.Errorf("unknown newarray type code %d at offset %d", ins.Imm, ins.Offset)
		}
		d.w.printf(" %s %s\n", name, tname)
	case classfile.OperandShortJump, classfile.OperandLongJump:
		d.w.printf(" %s %s\n", name, ins.Jump)
	case classfile.OperandClassRef:
		d.w.printf(" %s %s\n", name, d.rp.Cls(ins.Ref))
	case classfile.OperandFieldRef, classfile.OperandMethodRef:
		d.w.printf(" %s %s\n", name, d.rp.TaggedFmim(ins.Ref))
	case classfile.OperandInterfaceRef:
		d.w.printf(" %s %s %d\n", name, d.rp.TaggedFmim(ins.Ref), ins.IfaceN)
	case classfile.OperandInvokeDynamicRef:
		d.w.printf(" %s %s\n", name, d.rp.Cpref(ins.Ref))
	case classfile.OperandLdc:
		d.w.printf(" %s %s\n", name, d.rp.Ldc(ins.Ref))
	case classfile.OperandLdcWide:
		d.w.printf(" %s %s\n", name, d.rp.Ldc(ins.Ref))
	case classfile.OperandIinc:
		d.w.printf(" %s%s %d %d\n", prefix, name, ins.Local, ins.Imm)
	case classfile.OperandMultiNewArray:
		d.w.printf(" %s %s %d\n", name, d.rp.Cls(ins.Ref), ins.Dims)
	case classfile.OperandTableSwitch:
		d.tableSwitch(ins)
	case classfile.OperandLookupSwitch:
		d.lookupSwitch(ins)
	default:
		return errors.Errorf("unsupported operand kind for %q at offset %d", name, ins.Offset)
	}
	return nil
}

func (d *disassembler) tableSwitch(ins classfile.Instr) {
	t := ins.Table
	d.w.printf(" tableswitch %d\n", t.Low)
	d.w.enter()
	for _, target := range t.Targets {
		d.w.line("%s", target)
	}
	d.w.line("default : %s", t.Default)
	d.w.exit()
}

func (d *disassembler) lookupSwitch(ins classfile.Instr) {
	t := ins.Lookup
	d.w.printf(" lookupswitch\n")
	d.w.enter()
	for _, p := range t.Pairs {
		d.w.line("%d : %s", p.Key, p.Target)
	}
	d.w.line("default : %s", t.Default)
	d.w.exit()
}
