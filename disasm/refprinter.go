package disasm

import (
	"sort"
	"strconv"

	"github.com/db47h/jasm/classfile"
)

// RefPrinter decides, for every constant pool and bootstrap-method table
// entry a disassembled class references, whether to print it inline (a
// short literal, spelled out at the point of use), as a symbolic
// reference ("[_42]", with its defining "[_42] = ..." line emitted once
// at the end of the class body), or as a bare numeric index ("[42]").
//
// In roundtrip mode every entry is printed as a raw index and every pool
// slot gets an explicit ".const [N] = ..." definition, guaranteeing the
// reassembled class file reproduces the original constant pool order and
// contents exactly rather than merely an equivalent one.
//
// Grounded on Krakatau's RefPrinter (disassemble/refprinter.rs): the
// same three-way inline/symbolic/raw policy, and the same inner/outer
// InnerClasses name-collision workaround, adapted to Go's ordinary
// mutable struct fields in place of Rust's Cell<bool> interior mutability.
type RefPrinter struct {
	roundtrip bool
	pool      *classfile.Pool
	bs        []classfile.BootstrapMethod

	lines  []rpLine
	bsUsed []bool
}

type rpLine struct {
	forceRaw bool
	useCount int
	symUsed  bool
}

// NewRefPrinter builds a RefPrinter over a decoded constant pool and
// bootstrap method table. innerClasses, if non-nil, is consulted to find
// InnerClasses entries whose inner and outer class references resolve to
// the same class name through different pool entries: printing both as
// symbolic refs to the same name would make the reassembled pool merge
// them, corrupting the InnerClasses table, so both are forced to print
// raw instead.
func NewRefPrinter(roundtrip bool, pool *classfile.Pool, bs []classfile.BootstrapMethod, innerClasses []classfile.InnerClassEntry) *RefPrinter {
	rp := &RefPrinter{
		roundtrip: roundtrip,
		pool:      pool,
		bs:        bs,
		lines:     make([]rpLine, len(pool.Entries)),
		bsUsed:    make([]bool, len(bs)),
	}
	if roundtrip {
		for i := range rp.lines {
			rp.lines[i].forceRaw = true
		}
	}
	for _, ic := range innerClasses {
		if ic.InnerClassInfoIndex == ic.OuterClassInfoIndex {
			continue
		}
		n1, ok1 := rp.classUtf8Bytes(ic.InnerClassInfoIndex)
		n2, ok2 := rp.classUtf8Bytes(ic.OuterClassInfoIndex)
		if ok1 && ok2 && string(n1) == string(n2) {
			rp.lines[ic.InnerClassInfoIndex].forceRaw = true
			rp.lines[ic.OuterClassInfoIndex].forceRaw = true
		}
	}
	return rp
}

func (rp *RefPrinter) classUtf8Bytes(idx uint16) ([]byte, bool) {
	if int(idx) >= len(rp.pool.Entries) {
		return nil, false
	}
	c, err := rp.pool.Get(idx)
	if err != nil || c.Tag != classfile.TagClass {
		return nil, false
	}
	u, err := rp.pool.Utf8At(c.Index1)
	if err != nil {
		return nil, false
	}
	return u, true
}

func rawRef(idx uint16) string { return "[" + strconv.Itoa(int(idx)) + "]" }

func rawBsRef(idx uint16) string { return "[bs:" + strconv.Itoa(int(idx)) + "]" }

// get returns the pool entry at idx, or false if idx is invalid or its
// line is forced to raw (roundtrip mode, or the InnerClasses workaround).
func (rp *RefPrinter) get(idx uint16) (classfile.Constant, bool) {
	if int(idx) == 0 || int(idx) >= len(rp.lines) || rp.lines[idx].forceRaw {
		return classfile.Constant{}, false
	}
	c, err := rp.pool.Get(idx)
	if err != nil {
		return classfile.Constant{}, false
	}
	return c, true
}

func (rp *RefPrinter) symref(idx uint16) string {
	rp.lines[idx].symUsed = true
	return "[_" + strconv.Itoa(int(idx)) + "]"
}

// identEligible reports whether the Utf8 payload at idx is short/rare
// enough to print inline rather than factor out into a symbolic
// definition, and books the use if so: under 50 bytes is always inlined,
// under 300 bytes is inlined up to 10 times, and anything bigger or more
// frequently used is always a symref so it is only ever spelled out once.
func (rp *RefPrinter) identEligible(idx uint16, utf8 []byte) bool {
	n := len(utf8)
	if n < 50 {
		return true
	}
	l := &rp.lines[idx]
	if n < 300 && l.useCount < 10 {
		l.useCount++
		return true
	}
	return false
}

func (rp *RefPrinter) ident(idx uint16) (string, bool) {
	c, ok := rp.get(idx)
	if !ok || c.Tag != classfile.TagUtf8 {
		return "", false
	}
	if !rp.identEligible(idx, c.Utf8) {
		return "", false
	}
	return formatUtf8Literal(c.Utf8), true
}

// Utf prints the Utf8 entry at idx: an inline literal, a symbolic ref, or
// (if idx does not name a Utf8 entry at all) a raw index.
func (rp *RefPrinter) Utf(idx uint16) string {
	c, ok := rp.get(idx)
	if !ok {
		return rawRef(idx)
	}
	if c.Tag != classfile.TagUtf8 {
		return rawRef(idx)
	}
	if lit, ok := rp.ident(idx); ok {
		return lit
	}
	return rp.symref(idx)
}

// single prints a one-Utf8-field constant (Class, String, MethodType,
// Module, Package) as "<name or symref>", falling back to a symref for
// the constant itself (not its Utf8) if the Utf8 is not inline-eligible.
func (rp *RefPrinter) single(idx uint16, tag classfile.Tag) string {
	c, ok := rp.get(idx)
	if !ok || c.Tag != tag {
		return rawRef(idx)
	}
	if lit, ok := rp.ident(c.Index1); ok {
		return lit
	}
	return rp.symref(idx)
}

// Cls prints a Class constant reference.
func (rp *RefPrinter) Cls(idx uint16) string { return rp.single(idx, classfile.TagClass) }

// Nat prints a NameAndType constant reference as "name desc".
func (rp *RefPrinter) Nat(idx uint16) string {
	c, ok := rp.get(idx)
	if !ok || c.Tag != classfile.TagNameAndType {
		return rawRef(idx)
	}
	if lit, ok := rp.ident(c.Index1); ok {
		return lit + " " + rp.Utf(c.Index2)
	}
	return rp.symref(idx)
}

// fmimKeyword returns the grammar keyword for a Fieldref/Methodref/
// InterfaceMethodref tag.
func fmimKeyword(tag classfile.Tag) (string, bool) {
	switch tag {
	case classfile.TagFieldref:
		return "Field", true
	case classfile.TagMethodref:
		return "Method", true
	case classfile.TagInterfaceMethodref:
		return "InterfaceMethod", true
	}
	return "", false
}

// TaggedFmim prints a Fieldref/Methodref/InterfaceMethodref constant
// reference as "Field|Method|InterfaceMethod class name desc".
func (rp *RefPrinter) TaggedFmim(idx uint16) string {
	c, ok := rp.get(idx)
	if !ok {
		return rawRef(idx)
	}
	kw, ok := fmimKeyword(c.Tag)
	if !ok {
		return rawRef(idx)
	}
	return kw + " " + rp.Cls(c.Index1) + " " + rp.Nat(c.Index2)
}

// mh prints a MethodHandle constant as "MethodHandle <kind> <ref>", the
// tagged form ParseInlineBsMethod's handle position accepts, with the
// referenced constant expanded inline unless it is itself a MethodHandle,
// Dynamic or InvokeDynamic, which is forced to a symref (Krakatau's
// tagged_const_nomhdyn) to avoid MethodHandle-of-Dynamic-of-MethodHandle
// recursion blowing up the printed form. Always resolves idx directly
// against the pool rather than through get(): mh is only ever called to
// spell out the content of idx itself (from taggedConstBody or a
// bootstrap method definition), so idx's own forceRaw/roundtrip status
// must not suppress it the way it does for an ordinary reference.
func (rp *RefPrinter) mh(idx uint16) string {
	c, err := rp.pool.Get(idx)
	if err != nil || c.Tag != classfile.TagMethodHandle {
		return rawRef(idx)
	}
	return "MethodHandle " + classfile.MHTagName(c.RefKind) + " " + rp.taggedConstNoMHDyn(c.Index1)
}

func (rp *RefPrinter) taggedConstNoMHDyn(idx uint16) string {
	c, ok := rp.get(idx)
	if !ok {
		return rawRef(idx)
	}
	switch c.Tag {
	case classfile.TagMethodHandle, classfile.TagDynamic, classfile.TagInvokeDynamic:
		return rp.symref(idx)
	}
	return rp.taggedConstBody(idx, c)
}

// Bs prints a bootstrap method table entry reference: "[bs:N]" in
// roundtrip mode, or the handle/argument list spelled out inline
// otherwise (bootstrap table entries have no symbolic-definition form of
// their own in the grammar; they are always either raw or inline).
func (rp *RefPrinter) Bs(idx uint16) string {
	if rp.roundtrip || int(idx) >= len(rp.bs) {
		if int(idx) < len(rp.bsUsed) {
			rp.bsUsed[idx] = true
		}
		return rawBsRef(idx)
	}
	m := rp.bs[idx]
	s := "Bootstrap " + rp.mh(m.MethodRef)
	for _, a := range m.Args {
		s += " " + rp.taggedConstNoMHDyn(a)
	}
	return s
}

func (rp *RefPrinter) taggedConstBody(idx uint16, c classfile.Constant) string {
	switch c.Tag {
	case classfile.TagUtf8:
		return "Utf8 " + formatUtf8Literal(c.Utf8)
	case classfile.TagInteger:
		return "Int " + formatInt(c.Bits32)
	case classfile.TagFloat:
		return "Float " + formatFloat32(c.Bits32, rp.roundtrip)
	case classfile.TagLong:
		return "Long " + formatLong(c.Bits64)
	case classfile.TagDouble:
		return "Double " + formatFloat64(c.Bits64, rp.roundtrip)
	case classfile.TagClass:
		return "Class " + rp.Utf(c.Index1)
	case classfile.TagString:
		return "String " + rp.Utf(c.Index1)
	case classfile.TagMethodType:
		return "MethodType " + rp.Utf(c.Index1)
	case classfile.TagModule:
		return "Module " + rp.Utf(c.Index1)
	case classfile.TagPackage:
		return "Package " + rp.Utf(c.Index1)
	case classfile.TagFieldref, classfile.TagMethodref, classfile.TagInterfaceMethodref:
		// kw is always ok here: c.Tag was just matched above.
		kw, _ := fmimKeyword(c.Tag)
		return kw + " " + rp.Cls(c.Index1) + " " + rp.Nat(c.Index2)
	case classfile.TagNameAndType:
		return "NameAndType " + rp.Utf(c.Index1) + " " + rp.Utf(c.Index2)
	case classfile.TagMethodHandle:
		return "MethodHandle " + classfile.MHTagName(c.RefKind) + " " + rp.taggedConstNoMHDyn(c.Index1)
	case classfile.TagDynamic:
		return "Dynamic " + rp.Nat(c.Index1) + " " + rp.Bs(c.BootstrapIndex)
	case classfile.TagInvokeDynamic:
		return "InvokeDynamic " + rp.Nat(c.Index1) + " " + rp.Bs(c.BootstrapIndex)
	}
	return rawRef(idx)
}

// TaggedConst prints any constant pool entry fully spelled out with its
// tag keyword, e.g. "Int 5" or "Method java/lang/Object <init> ()V".
func (rp *RefPrinter) TaggedConst(idx uint16) string {
	c, ok := rp.get(idx)
	if !ok {
		return rawRef(idx)
	}
	return rp.taggedConstBody(idx, c)
}

// Cpref prints a constant pool index as it appears as the operand of an
// "invokedynamic" instruction: a symbolic reference whenever the pool
// entry resolves at all, raw otherwise. Unlike TaggedConst it never
// inlines the referenced constant's body at the point of use, so an
// InvokeDynamic entry always gets its own "[_N] = InvokeDynamic ..."
// definition rather than being spelled out inline on every call site.
func (rp *RefPrinter) Cpref(idx uint16) string {
	if _, ok := rp.get(idx); !ok {
		return rawRef(idx)
	}
	return rp.symref(idx)
}

// Ldc prints a constant as it appears as the operand of an "ldc"-family
// instruction or a ConstantValue attribute, i.e. without the tag keyword:
// a bare literal for Integer/Float/Long/Double/String, or the fully
// tagged form for anything else reachable only from a wide-index ldc
// (Class, MethodType, MethodHandle, Dynamic).
func (rp *RefPrinter) Ldc(idx uint16) string {
	c, ok := rp.get(idx)
	if !ok {
		return rawRef(idx)
	}
	switch c.Tag {
	case classfile.TagInteger:
		return formatInt(c.Bits32)
	case classfile.TagLong:
		return formatLong(c.Bits64)
	case classfile.TagFloat:
		return formatFloat32(c.Bits32, rp.roundtrip)
	case classfile.TagDouble:
		return formatFloat64(c.Bits64, rp.roundtrip)
	case classfile.TagString:
		if lit, ok := rp.ident(c.Index1); ok {
			return lit
		}
		return rp.symref(idx)
	}
	return rp.taggedConstBody(idx, c)
}

// ConstDef is one "[_N] = <body>" or "[bs:N] = <body>" definition line
// to emit after the class body, for every symbol actually referenced.
type ConstDef struct {
	Bootstrap bool
	Index     uint16
	Body      string
}

// ConstDefs returns the symbolic definitions to print, in ascending
// index order, for every constant pool and bootstrap table entry a
// symref was actually emitted for. Printing one symbolic definition can
// itself be the first use of another pool entry (e.g. defining
// "[_5] = Class [_6]" marks index 6 used too), so this loops until a
// pass adds no newly-used symbols, mirroring Krakatau's
// print_const_defs fixed-point loop.
func (rp *RefPrinter) ConstDefs() []ConstDef {
	// Roundtrip mode forces every pool line to print raw at its point of
	// use (see NewRefPrinter), so symUsed is never set by symref() and
	// the fixed-point loop below would find nothing to define. Every
	// live slot needs a raw definition there instead, to reproduce the
	// original pool's order and contents exactly.
	if rp.roundtrip {
		var defs []ConstDef
		for idx := 1; idx < len(rp.pool.Entries); idx++ {
			c := rp.pool.Entries[idx]
			if c.Tag == 0 {
				continue
			}
			defs = append(defs, ConstDef{Index: uint16(idx), Body: rp.taggedConstBody(uint16(idx), c)})
		}
		for idx := range rp.bs {
			defs = append(defs, rp.bootstrapDef(uint16(idx)))
		}
		return defs
	}

	printed := make([]bool, len(rp.lines))
	var defs []ConstDef
	for {
		progress := false
		for idx := 1; idx < len(rp.lines); idx++ {
			if printed[idx] || !rp.lines[idx].symUsed {
				continue
			}
			printed[idx] = true
			progress = true
			c, err := rp.pool.Get(uint16(idx))
			if err != nil {
				continue
			}
			defs = append(defs, ConstDef{Index: uint16(idx), Body: rp.taggedConstBody(uint16(idx), c)})
		}
		if !progress {
			break
		}
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Index < defs[j].Index })

	for idx := range rp.bsUsed {
		if rp.bsUsed[idx] {
			defs = append(defs, rp.bootstrapDef(uint16(idx)))
		}
	}
	return defs
}

func (rp *RefPrinter) bootstrapDef(idx uint16) ConstDef {
	m := rp.bs[idx]
	s := "Bootstrap " + rp.mh(m.MethodRef)
	for _, a := range m.Args {
		s += " " + rp.taggedConstNoMHDyn(a)
	}
	return ConstDef{Bootstrap: true, Index: idx, Body: s}
}
