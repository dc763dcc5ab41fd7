package disasm

import (
	"github.com/db47h/jasm/classfile"
)

// attr prints one attribute as a directive, the inverse of
// parseAttributeDirective: a dedicated form for every attribute kind the
// assembler accepts a dedicated directive for, and the generic
// ".attribute name length N "..."" passthrough for everything else
// (Module and its nested tables, every annotation kind, Record, ...),
// consistent with this module's existing scope decision to leave those
// as opaque raw bytes rather than grammar of their own. A Code
// attribute's StackMapTable is printed by code as ".stack" directives and
// only reaches this passthrough when it fails to decode.
func (d *disassembler) attr(a classfile.Attribute) error {
	name, _ := d.pool.Utf8At(a.NameIndex)
	switch string(name) {
	case "Deprecated":
		d.w.line(".deprecated")
		return nil
	case "Synthetic":
		d.w.line(".synthetic")
		return nil
	case "Signature":
		idx, err := u16At(a.Info, 0)
		if err != nil {
			return d.rawAttr(a)
		}
		d.w.line(".signature %s", d.rp.Utf(idx))
		return nil
	case "SourceFile":
		idx, err := u16At(a.Info, 0)
		if err != nil {
			return d.rawAttr(a)
		}
		d.w.line(".sourcefile %s", d.rp.Utf(idx))
		return nil
	case "ConstantValue":
		idx, err := classfile.DecodeConstantValue(a.Info)
		if err != nil {
			return d.rawAttr(a)
		}
		d.w.line(".constantvalue %s", d.rp.Ldc(idx))
		return nil
	case "Exceptions":
		idxs, err := classfile.DecodeExceptions(a.Info)
		if err != nil {
			return d.rawAttr(a)
		}
		return d.refBlock("exceptions", idxs, d.rp.Cls)
	case "NestMembers":
		idxs, err := classfile.DecodeExceptions(a.Info)
		if err != nil {
			return d.rawAttr(a)
		}
		return d.refBlock("nestmembers", idxs, d.rp.Cls)
	case "PermittedSubclasses":
		idxs, err := classfile.DecodeExceptions(a.Info)
		if err != nil {
			return d.rawAttr(a)
		}
		return d.refBlock("permittedsubclasses", idxs, d.rp.Cls)
	case "ModulePackages":
		idxs, err := classfile.DecodeExceptions(a.Info)
		if err != nil {
			return d.rawAttr(a)
		}
		return d.refBlock("modulepackages", idxs, func(idx uint16) string { return d.rp.single(idx, classfile.TagPackage) })
	case "LineNumberTable":
		lines, err := classfile.DecodeLineNumberTable(a.Info)
		if err != nil {
			return d.rawAttr(a)
		}
		if len(lines) == 0 {
			return nil
		}
		d.w.line(".linenumbertable")
		d.w.enter()
		for _, l := range lines {
			d.w.line("%d %d", uint32(l.StartPC), l.Line)
		}
		d.w.exit()
		d.w.line(".end linenumbertable")
		return nil
	case "LocalVariableTable", "LocalVariableTypeTable":
		vars, err := classfile.DecodeLocalVariableTable(a.Info)
		if err != nil {
			return d.rawAttr(a)
		}
		if len(vars) == 0 {
			return nil
		}
		directive := "localvariabletable"
		if string(name) == "LocalVariableTypeTable" {
			directive = "localvariabletypetable"
		}
		d.w.line(".%s", directive)
		d.w.enter()
		for _, v := range vars {
			d.w.line("%d %d %s %s %d", uint32(v.StartPC), uint32(v.Length), d.rp.Utf(v.NameIndex), d.rp.Utf(v.DescriptorIndex), v.Index)
		}
		d.w.exit()
		d.w.line(".end %s", directive)
		return nil
	case "InnerClasses":
		ics, err := classfile.DecodeInnerClasses(a.Info)
		if err != nil {
			return d.rawAttr(a)
		}
		return d.innerClasses(ics)
	case "MethodParameters":
		params, err := classfile.DecodeMethodParameters(a.Info)
		if err != nil {
			return d.rawAttr(a)
		}
		d.w.line(".methodparameters")
		d.w.enter()
		for _, p := range params {
			d.w.line("%s%s", d.rp.Utf(p.NameIndex), flagSuffix(p.AccessFlags, classfile.MethodParameterFlagNames))
		}
		d.w.exit()
		d.w.line(".end methodparameters")
		return nil
	case "EnclosingMethod":
		cls, nt, err := classfile.DecodeEnclosingMethod(a.Info)
		if err != nil {
			return d.rawAttr(a)
		}
		d.w.line(".enclosingmethod %s %s", d.rp.Cls(cls), d.rp.Nat(nt))
		return nil
	case "BootstrapMethods":
		// Carried implicitly: every bootstrap table entry a symbolic
		// reference actually touches is printed via ConstDefs after the
		// class body, matching the assembler's default policy of
		// regenerating this attribute whenever the table ends up
		// non-empty. Nothing to print here in the common case; the
		// empty-but-present edge case is handled by DisassembleClass
		// before the field/method loop.
		return nil
	case "Code":
		return d.code(a)
	default:
		return d.rawAttr(a)
	}
}

func (d *disassembler) refBlock(directive string, idxs []uint16, render func(uint16) string) error {
	if len(idxs) == 0 {
		return nil
	}
	d.w.line(".%s", directive)
	d.w.enter()
	for _, idx := range idxs {
		d.w.line("%s", render(idx))
	}
	d.w.exit()
	d.w.line(".end %s", directive)
	return nil
}

// rawAttr prints any attribute this disassembler has no dedicated
// directive for as the generic passthrough form, preserving its bytes
// exactly.
func (d *disassembler) rawAttr(a classfile.Attribute) error {
	d.w.line(".attribute %s length %d %s", d.rp.Utf(a.NameIndex), len(a.Info), escapeBinary(a.Info))
	return nil
}

func u16At(b []byte, off int) (uint16, error) {
	r := classfile.NewReader(b)
	if off > 0 {
		if err := r.Skip(off); err != nil {
			return 0, err
		}
	}
	return r.U16()
}
