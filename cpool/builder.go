package cpool

import (
	"fmt"

	"github.com/db47h/jasm/classfile"
	"github.com/db47h/jasm/token"
	"github.com/pkg/errors"
)

type defState int

const (
	stateUnresolved defState = iota
	stateInProgress
	stateResolved
)

type constDef struct {
	span     token.Span
	state    defState
	pending  *Const
	resolved uint16
}

type bsDef struct {
	span     token.Span
	state    defState
	pending  *BsMethod
	resolved uint16
}

// BsAttrNameNeeded controls whether the assembler must allocate a Utf8
// constant spelling "BootstrapMethods" for the attribute's name even if
// nothing else references that string, matching the three policies the
// reference assembler supports.
type BsAttrNameNeeded int

const (
	// BsAttrAlways always allocates the name, even with zero bootstrap
	// methods, producing an explicit empty BootstrapMethods attribute.
	BsAttrAlways BsAttrNameNeeded = iota
	// BsAttrIfPresent allocates the name only if at least one bootstrap
	// method was defined.
	BsAttrIfPresent
	// BsAttrNever never allocates the name; the caller is responsible for
	// ensuring no InvokeDynamic/Dynamic constant needs a bootstrap table.
	BsAttrNever
)

// Builder accumulates symbolic and raw constant/bootstrap-method
// definitions during the directive-parsing pass and, once Finish is
// called, resolves every reference the code and attribute emitters ask
// for down to a concrete raw index, allocating a fresh slot on demand
// when a reference's value was never given an explicit one.
type Builder struct {
	symDefs   map[string]*constDef
	bsSymDefs map[string]*bsDef

	rawDefs   map[uint16]*Const
	bsRawDefs map[uint16]*BsMethod

	table []classfile.Constant
	dedup map[string]uint16
	alloc *slotAllocator

	bsTable   []classfile.BootstrapMethod
	bsDedup   map[string]uint16
	finished  bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		symDefs:   make(map[string]*constDef),
		bsSymDefs: make(map[string]*bsDef),
		rawDefs:   make(map[uint16]*Const),
		bsRawDefs: make(map[uint16]*BsMethod),
		dedup:     make(map[string]uint16),
		bsDedup:   make(map[string]uint16),
	}
}

// AddSymDef registers a "name = <const>" symbolic definition.
func (b *Builder) AddSymDef(name string, span token.Span, body *Const) error {
	if prev, ok := b.symDefs[name]; ok {
		return token.NewError2("duplicate definition of symbolic reference", span,
			"previous definition was here", prev.span)
	}
	b.symDefs[name] = &constDef{span: span, pending: body}
	return nil
}

// AddBsSymDef registers a "name = <bootstrap method>" symbolic
// definition in the bootstrap-method namespace.
func (b *Builder) AddBsSymDef(name string, span token.Span, body *BsMethod) error {
	if prev, ok := b.bsSymDefs[name]; ok {
		return token.NewError2("duplicate definition of symbolic bootstrap reference", span,
			"previous definition was here", prev.span)
	}
	b.bsSymDefs[name] = &bsDef{span: span, pending: body}
	return nil
}

// AddRawDef registers a "[N] = <const>" explicit-slot definition.
// Indices 0 and 65535 are always illegal, as is reusing an index already
// claimed by a prior raw definition or by the second half of a wide one.
func (b *Builder) AddRawDef(idx uint16, span token.Span, body *Const) error {
	if idx == 0 {
		return token.NewError("constant pool index 0 is reserved", span)
	}
	if idx >= 65535 {
		return token.NewError("constant pool index must be less than 65535", span)
	}
	if body.Tag.IsWide() && idx == classfile.MaxConstants {
		return token.NewError("wide constant pool slot at the last index would occupy the reserved index 65535", span)
	}
	if prev, ok := b.rawDefs[idx]; ok {
		_ = prev
		return token.NewError("duplicate definition of constant pool slot", span)
	}
	if prev, ok := b.rawDefs[idx-1]; ok && prev.Tag.IsWide() {
		return token.NewError("duplicate definition of constant pool slot", span)
	}
	if _, ok := b.rawDefs[idx+1]; ok && body.Tag.IsWide() {
		return token.NewError("duplicate definition of constant pool slot", span)
	}
	b.rawDefs[idx] = body
	return nil
}

// AddBsRawDef registers a "[bs:N] = <bootstrap method>" explicit-slot
// definition in the dense bootstrap-method table.
func (b *Builder) AddBsRawDef(idx uint16, span token.Span, body *BsMethod) error {
	if idx == 0xFFFF {
		return token.NewError("bootstrap method index must be less than 65535", span)
	}
	if _, ok := b.bsRawDefs[idx]; ok {
		return token.NewError("duplicate definition of bootstrap method slot", span)
	}
	b.bsRawDefs[idx] = body
	return nil
}

// Finish must be called once all definitions for a class have been
// collected and before any Resolve* method is used. It computes the free
// slot ranges around the explicit raw definitions and eagerly resolves
// every raw definition into the final table, since — unlike a symbolic
// definition — a raw slot's content is demanded unconditionally whether
// or not anything ends up referencing it.
func (b *Builder) Finish() error {
	occupied := make(map[uint16]bool, len(b.rawDefs)*2)
	for idx, c := range b.rawDefs {
		occupied[idx] = true
		if c.Tag.IsWide() {
			occupied[idx+1] = true
		}
	}
	b.alloc = newSlotAllocator(occupied, classfile.MaxConstants)
	b.table = make([]classfile.Constant, 1, 256)

	for idx, c := range b.rawDefs {
		b.growTable(idx)
		raw, err := b.resolveConst(c)
		if err != nil {
			return err
		}
		b.table[idx] = raw
		b.dedup[dedupKey(raw)] = idx
		if raw.Tag.IsWide() {
			b.growTable(idx + 1)
		}
	}
	b.finished = true
	return nil
}

func (b *Builder) growTable(idx uint16) {
	for len(b.table) <= int(idx) {
		b.table = append(b.table, classfile.Constant{})
	}
}

// ResolveRef resolves r to a raw constant pool index, allocating a fresh
// slot the first time a symbolic or inline reference is actually used.
func (b *Builder) ResolveRef(r Ref) (uint16, error) {
	return b.resolveRef(r, false)
}

// ResolveLdcRef is like ResolveRef but additionally enforces that the
// resolved index fits in ldc's single-byte operand (<= 255), for use when
// assembling an "ldc" instruction (as opposed to "ldc_w"/"ldc2_w").
func (b *Builder) ResolveLdcRef(r Ref, span token.Span) (uint16, error) {
	idx, err := b.resolveRef(r, true)
	if err != nil {
		return 0, err
	}
	if idx > 255 {
		return 0, token.NewError("constant pool index too large for ldc; try using ldc_w instead", span)
	}
	return idx, nil
}

func (b *Builder) resolveRef(r Ref, isLdc bool) (uint16, error) {
	switch r.Kind {
	case RefRaw:
		return r.Raw, nil
	case RefSym:
		return b.resolveSym(r.Sym, r.SymSpan, isLdc)
	case RefInline:
		raw, err := b.resolveConst(r.Inline)
		if err != nil {
			return 0, err
		}
		return b.allocate(raw, isLdc)
	default:
		return 0, errors.New("cpool: invalid reference kind")
	}
}

func (b *Builder) resolveSym(name string, span token.Span, isLdc bool) (uint16, error) {
	def, ok := b.symDefs[name]
	if !ok {
		return 0, token.NewError("undefined symbolic reference", span)
	}
	switch def.state {
	case stateResolved:
		return def.resolved, nil
	case stateInProgress:
		return 0, token.NewError("circular definition of symbolic reference", span)
	}
	def.state = stateInProgress
	raw, err := b.resolveConst(def.pending)
	if err != nil {
		return 0, err
	}
	idx, err := b.allocate(raw, isLdc)
	if err != nil {
		return 0, err
	}
	def.state = stateResolved
	def.resolved = idx
	return idx, nil
}

// resolveConst recursively resolves every Ref embedded in c into a raw,
// index-based classfile.Constant, without yet assigning c itself a slot.
func (b *Builder) resolveConst(c *Const) (classfile.Constant, error) {
	out := classfile.Constant{Tag: c.Tag, Utf8: c.Utf8, Bits32: c.Bits32, Bits64: c.Bits64}
	var err error
	switch c.Tag {
	case classfile.TagUtf8, classfile.TagInteger, classfile.TagFloat, classfile.TagLong, classfile.TagDouble:
		// no nested refs
	case classfile.TagClass, classfile.TagString, classfile.TagMethodType, classfile.TagModule, classfile.TagPackage:
		if out.Index1, err = b.ResolveRef(c.Name); err != nil {
			return out, err
		}
	case classfile.TagFieldref, classfile.TagMethodref, classfile.TagInterfaceMethodref:
		if out.Index1, err = b.ResolveRef(c.Class); err != nil {
			return out, err
		}
		if out.Index2, err = b.ResolveRef(c.NameType); err != nil {
			return out, err
		}
	case classfile.TagNameAndType:
		if out.Index1, err = b.ResolveRef(c.NTName); err != nil {
			return out, err
		}
		if out.Index2, err = b.ResolveRef(c.NTDesc); err != nil {
			return out, err
		}
	case classfile.TagMethodHandle:
		out.RefKind = c.MHKind
		if out.Index1, err = b.ResolveRef(c.MHRef); err != nil {
			return out, err
		}
	case classfile.TagDynamic, classfile.TagInvokeDynamic:
		if out.BootstrapIndex, err = b.ResolveBsRef(c.Bootstrap); err != nil {
			return out, err
		}
		if out.Index1, err = b.ResolveRef(c.NameType); err != nil {
			return out, err
		}
	default:
		return out, errors.Errorf("cpool: unknown constant tag %d", c.Tag)
	}
	return out, nil
}

func (b *Builder) allocate(raw classfile.Constant, isLdc bool) (uint16, error) {
	key := dedupKey(raw)
	if idx, ok := b.dedup[key]; ok {
		return idx, nil
	}
	var idx uint16
	var err error
	if raw.Tag.IsWide() {
		idx, err = b.alloc.allocWide()
	} else {
		idx, err = b.alloc.alloc(isLdc)
	}
	if err != nil {
		return 0, err
	}
	b.growTable(idx)
	b.table[idx] = raw
	b.dedup[key] = idx
	if raw.Tag.IsWide() {
		b.growTable(idx + 1)
	}
	return idx, nil
}

// ResolveBsRef resolves a bootstrap-method reference to a dense index
// into the bootstrap method table, in the same raw/sym/inline fashion as
// ResolveRef but against the separate bootstrap-method namespace.
func (b *Builder) ResolveBsRef(r BsRef) (uint16, error) {
	switch r.Kind {
	case RefRaw:
		return r.Raw, nil
	case RefSym:
		return b.resolveBsSym(r.Sym, r.SymSpan)
	case RefInline:
		return b.resolveBsMethod(r.Inline)
	default:
		return 0, errors.New("cpool: invalid bootstrap reference kind")
	}
}

func (b *Builder) resolveBsSym(name string, span token.Span) (uint16, error) {
	def, ok := b.bsSymDefs[name]
	if !ok {
		return 0, token.NewError("undefined symbolic bootstrap reference", span)
	}
	switch def.state {
	case stateResolved:
		return def.resolved, nil
	case stateInProgress:
		return 0, token.NewError("circular definition of symbolic bootstrap reference", span)
	}
	def.state = stateInProgress
	idx, err := b.resolveBsMethod(def.pending)
	if err != nil {
		return 0, err
	}
	def.state = stateResolved
	def.resolved = idx
	return idx, nil
}

func (b *Builder) resolveBsMethod(m *BsMethod) (uint16, error) {
	handle, err := b.ResolveRef(m.Handle)
	if err != nil {
		return 0, err
	}
	args := make([]uint16, len(m.Args))
	for i, a := range m.Args {
		if args[i], err = b.ResolveRef(a); err != nil {
			return 0, err
		}
	}
	key := bsDedupKey(handle, args)
	if idx, ok := b.bsDedup[key]; ok {
		return idx, nil
	}
	idx := uint16(len(b.bsTable))
	if idx == 0xFFFF {
		return 0, errors.New("exceeded maximum of 65535 bootstrap methods")
	}
	b.bsTable = append(b.bsTable, classfile.BootstrapMethod{MethodRef: handle, Args: args})
	b.bsDedup[key] = idx
	return idx, nil
}

// Build finalizes the constant pool, filling the dead slot after every
// wide entry, and returns the completed Pool. needBsAttr reports whether
// any bootstrap method was produced; NeedsBootstrapAttr applies the
// BsAttrNameNeeded policy on top of that count. When the attribute is
// needed, the caller is
// responsible for resolving a Utf8 constant for the string
// "BootstrapMethods" through this same Builder so that name also
// participates in slot allocation and dedup.
func (b *Builder) Build() (pool *classfile.Pool, bsTable []classfile.BootstrapMethod, needBsAttr bool) {
	return &classfile.Pool{Entries: b.table}, b.bsTable, len(b.bsTable) > 0
}

// NeedsBootstrapAttr applies the three-way policy from BsAttrNameNeeded.
func NeedsBootstrapAttr(policy BsAttrNameNeeded, numBootstrapMethods int) bool {
	switch policy {
	case BsAttrAlways:
		return true
	case BsAttrNever:
		return false
	default: // BsAttrIfPresent
		return numBootstrapMethods > 0
	}
}

func dedupKey(c classfile.Constant) string {
	return fmt.Sprintf("%d:%x:%x:%x:%d:%d:%d:%d", c.Tag, c.Bits32, c.Bits64, c.Utf8, c.Index1, c.Index2, c.RefKind, c.BootstrapIndex)
}

func bsDedupKey(handle uint16, args []uint16) string {
	return fmt.Sprintf("%d:%v", handle, args)
}
