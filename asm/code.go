package asm

import (
	"github.com/db47h/jasm/classfile"
	"github.com/db47h/jasm/cpool"
	"github.com/db47h/jasm/internal/werr"
	"github.com/db47h/jasm/token"
)

// jumpFixup records a branch operand whose target label was not yet
// known at the point the instruction was emitted.
type jumpFixup struct {
	ph2      werr.Placeholder2
	ph4      werr.Placeholder4
	wide     bool
	instrPos uint32
	label    string
	span     token.Span
}

// excFixup records a ".catch" entry whose start/end/handler labels are
// resolved once the whole method body has been scanned.
type excFixup struct {
	catchType cpool.Ref
	catchAll  bool
	start, end, handler string
	span                token.Span
}

// vtypeFixup records a "Uninitialized <label>" verification type operand
// written into the stack map table body, resolved to the bytecode offset
// of the label's "new" instruction once every label in the method is
// known.
type vtypeFixup struct {
	ph    werr.Placeholder2
	label string
	span  token.Span
}

// codeAsm holds the in-progress state of one method body while its
// instructions, labels, and code-local directives are being parsed.
type codeAsm struct {
	w          *werr.Writer
	b          *cpool.Builder
	opts       classfile.CodeOptions
	labels     map[string]uint32
	labelSpans map[string]token.Span
	jumps      []jumpFixup
	excs       []excFixup
	lines      []classfile.LineNumberEntry
	vars       []classfile.LocalVariableEntry
	varTypes   []classfile.LocalVariableTypeEntry
	pendingVarLabels []varLabelFixup
	attrs      []classfile.Attribute
	maxStack   uint16
	maxLocals  uint16
	forceLong  bool

	// stack map table accumulator, built up by ".stack" directives
	// interleaved with the instruction stream.
	smt           *werr.Writer
	smtCount      uint16
	smtHasFrame   bool
	smtLastPos    uint32
	smtFixups     []vtypeFixup
	smtExplicit   bool
	smtExplicitAt int
	noImplicitStackMap bool
}

func newCodeAsm(b *cpool.Builder, opts classfile.CodeOptions) *codeAsm {
	return &codeAsm{
		w:          werr.New(),
		b:          b,
		opts:       opts,
		labels:     make(map[string]uint32),
		labelSpans: make(map[string]token.Span),
		smt:        werr.New(),
	}
}

func (ca *codeAsm) pos() uint32 { return uint32(ca.w.Len()) }

// ParseCode parses one method body's instruction stream: either a
// ".code [stack N] [locals N] ... .end code" block (endWord "code",
// maxStack/maxLocals already parsed off the ".code" line by the caller),
// or the legacy pre-attribute-table form where ".limit stack"/".limit
// locals" appear directly in the method body and ".end method" itself
// terminates the code (endWord "method"). forceLong overrides the
// enclosing class version's short/long Code attribute form when the
// source spells out ".code long ...".
func ParseCode(cur *token.Cursor, b *cpool.Builder, opts classfile.CodeOptions, endWord string, maxStack, maxLocals uint16, forceLong bool) (*classfile.Code, error) {
	ca := newCodeAsm(b, opts)
	ca.maxStack, ca.maxLocals, ca.forceLong = maxStack, maxLocals, forceLong

	for {
		if cur.HasType(token.Newlines) {
			cur.Next()
			continue
		}
		if cur.HasType(token.Directive) {
			d, _ := cur.Peek()
			switch d.Text() {
			case ".end":
				cur.Next()
				w, err := cur.AssertType(token.Word)
				if err != nil {
					return nil, err
				}
				if w.Text() != endWord {
					return nil, token.NewError("expected '.end "+endWord+"'", w.Span)
				}
				if err := cur.EOL(); err != nil && cur.HasNext() {
					return nil, err
				}
				return ca.finish()
			case ".limit":
				if err := ca.parseLimit(cur); err != nil {
					return nil, err
				}
				continue
			case ".catch":
				if err := ca.parseCatch(cur); err != nil {
					return nil, err
				}
				continue
			case ".line":
				if err := ca.parseLine(cur); err != nil {
					return nil, err
				}
				continue
			case ".var":
				if err := ca.parseVar(cur); err != nil {
					return nil, err
				}
				continue
			case ".stack":
				if err := ca.parseStack(cur); err != nil {
					return nil, err
				}
				continue
			case ".stackmaptable":
				if err := ca.parseStackMapTableDirective(cur); err != nil {
					return nil, err
				}
				continue
			case ".noimplicitstackmap":
				cur.Next()
				if err := cur.EOL(); err != nil && cur.HasNext() {
					return nil, err
				}
				ca.noImplicitStackMap = true
				continue
			default:
				cur.Next()
				name := d.Text()[1:]
				attr, err := parseAttributeDirective(cur, name, b)
				if err != nil {
					if err == errInertDirective {
						continue
					}
					return nil, err
				}
				ca.attrs = append(ca.attrs, attr)
				continue
			}
		}
		if !cur.HasNext() {
			return nil, token.NewError("unexpected end of file inside code body", d0(cur))
		}
		if err := ca.parseStatement(cur); err != nil {
			return nil, err
		}
	}
}

func d0(cur *token.Cursor) token.Span {
	t, err := cur.Peek()
	if err == nil {
		return t.Span
	}
	return token.Span{}
}

func (ca *codeAsm) parseLimit(cur *token.Cursor) error {
	cur.Next() // .limit
	kw, err := cur.AssertType(token.Word)
	if err != nil {
		return err
	}
	t, err := cur.IntLiteral()
	if err != nil {
		return err
	}
	v, err := token.ParseInt[uint16](t.Text(), 0, 65535)
	if err != nil {
		return token.NewError(err.Error(), t.Span)
	}
	switch kw.Text() {
	case "stack":
		ca.maxStack = v
	case "locals":
		ca.maxLocals = v
	default:
		return token.NewError("unknown limit "+quote(kw.Text()), kw.Span)
	}
	return cur.EOL()
}

func (ca *codeAsm) parseCatch(cur *token.Cursor) error {
	span, _ := cur.Peek()
	cur.Next() // .catch
	var cls cpool.Ref
	catchAll := false
	if cur.HasType(token.Word) {
		if t, err := cur.Peek(); err == nil && t.Text() == "all" {
			cur.Next()
			catchAll = true
		}
	}
	if !catchAll {
		var err error
		cls, err = ParseClassRef(cur)
		if err != nil {
			return err
		}
	}
	if err := cur.Value("from"); err != nil {
		return err
	}
	start, err := ca.labelWord(cur)
	if err != nil {
		return err
	}
	if err := cur.Value("to"); err != nil {
		return err
	}
	end, err := ca.labelWord(cur)
	if err != nil {
		return err
	}
	if err := cur.Value("using"); err != nil {
		return err
	}
	handler, err := ca.labelWord(cur)
	if err != nil {
		return err
	}
	ca.excs = append(ca.excs, excFixup{catchType: cls, catchAll: catchAll, start: start, end: end, handler: handler, span: span.Span})
	return cur.EOL()
}

func (ca *codeAsm) labelWord(cur *token.Cursor) (string, error) {
	t, err := cur.AssertType(token.Word)
	if err != nil {
		return "", err
	}
	return t.Text(), nil
}

func (ca *codeAsm) parseLine(cur *token.Cursor) error {
	cur.Next() // .line
	t, err := cur.IntLiteral()
	if err != nil {
		return err
	}
	v, err := token.ParseInt[uint16](t.Text(), 0, 65535)
	if err != nil {
		return token.NewError(err.Error(), t.Span)
	}
	ca.lines = append(ca.lines, classfile.LineNumberEntry{StartPC: classfile.Pos(ca.pos()), Line: v})
	return cur.EOL()
}

func (ca *codeAsm) parseVar(cur *token.Cursor) error {
	cur.Next() // .var
	t, err := cur.IntLiteral()
	if err != nil {
		return err
	}
	idx, err := token.ParseInt[uint16](t.Text(), 0, 65535)
	if err != nil {
		return token.NewError(err.Error(), t.Span)
	}
	if err := cur.Value("is"); err != nil {
		return err
	}
	nameRef, err := parseUtf8Ref(cur)
	if err != nil {
		return err
	}
	descRef, err := parseUtf8Ref(cur)
	if err != nil {
		return err
	}
	if err := cur.Value("from"); err != nil {
		return err
	}
	start, err := ca.labelWord(cur)
	if err != nil {
		return err
	}
	if err := cur.Value("to"); err != nil {
		return err
	}
	end, err := ca.labelWord(cur)
	if err != nil {
		return err
	}
	nameIdx, err := ca.b.ResolveRef(nameRef)
	if err != nil {
		return err
	}
	descIdx, err := ca.b.ResolveRef(descRef)
	if err != nil {
		return err
	}
	ca.vars = append(ca.vars, classfile.LocalVariableEntry{NameIndex: nameIdx, DescriptorIndex: descIdx, Index: idx})
	ca.pendingVarLabels = append(ca.pendingVarLabels, varLabelFixup{idx: len(ca.vars) - 1, start: start, end: end})
	return cur.EOL()
}

// varLabelFixup records which vars[] entry a ".var ... from L1 to L2"
// directive belongs to, so its StartPC/Length can be filled in once every
// label in the method has been seen.
type varLabelFixup struct {
	idx        int
	start, end string
}

// parseStack parses one ".stack <kind> ..." directive, encoding a single
// stack_map_frame entry (JVM Spec 4.7.4) into ca.smt. The offset_delta is
// computed from the bytecode position the directive appears at: the
// first frame's delta equals its absolute offset, every later frame's
// delta is relative to the previous frame's offset plus one.
func (ca *codeAsm) parseStack(cur *token.Cursor) error {
	cur.Next() // .stack
	kind, err := cur.AssertType(token.Word)
	if err != nil {
		return err
	}
	pos := ca.pos()
	var delta uint32
	if !ca.smtHasFrame {
		delta = pos
	} else {
		if pos <= ca.smtLastPos {
			return token.NewError("stack frame offset must be strictly greater than the previous frame's", kind.Span)
		}
		delta = pos - ca.smtLastPos - 1
	}
	if delta > 0xFFFF {
		return token.NewError("stack frame offset delta out of range", kind.Span)
	}
	offset := uint16(delta)

	switch kind.Text() {
	case "same":
		if offset > 63 {
			return token.NewError("offset delta too large for a same frame; use same_extended instead", kind.Span)
		}
		ca.smt.U8(uint8(offset))
	case "stack_1":
		if offset > 63 {
			return token.NewError("offset delta too large for a stack_1 frame; use stack_1_extended instead", kind.Span)
		}
		ca.smt.U8(uint8(offset) + 64)
		if err := ca.parseVType(cur); err != nil {
			return err
		}
	case "stack_1_extended":
		ca.smt.U8(247)
		ca.smt.U16(offset)
		if err := ca.parseVType(cur); err != nil {
			return err
		}
	case "chop":
		n, err := ca.parseU8(cur)
		if err != nil {
			return err
		}
		if n < 1 || n > 3 {
			return token.NewError("chop amount must be between 1 and 3", kind.Span)
		}
		ca.smt.U8(251 - n)
		ca.smt.U16(offset)
	case "same_extended":
		ca.smt.U8(251)
		ca.smt.U16(offset)
	case "append":
		ph := ca.smt.Ph1()
		ca.smt.U16(offset)
		n := 0
		for n < 3 && cur.HasType(token.Word) {
			if err := ca.parseVType(cur); err != nil {
				return err
			}
			n++
		}
		if n == 0 {
			return token.NewError("append frame requires at least one verification type", kind.Span)
		}
		ca.smt.Fill1(ph, uint8(251+n))
	case "full":
		ca.smt.U8(255)
		ca.smt.U16(offset)
		if err := cur.EOL(); err != nil {
			return err
		}
		if err := cur.Value("locals"); err != nil {
			return err
		}
		lph := ca.smt.Ph2()
		lcount := 0
		for cur.HasType(token.Word) {
			if err := ca.parseVType(cur); err != nil {
				return err
			}
			lcount++
		}
		if lcount > 65535 {
			return token.NewError("too many locals in full frame", kind.Span)
		}
		ca.smt.Fill2(lph, uint16(lcount))
		if err := cur.EOL(); err != nil {
			return err
		}
		if err := cur.Value("stack"); err != nil {
			return err
		}
		sph := ca.smt.Ph2()
		scount := 0
		for cur.HasType(token.Word) {
			if err := ca.parseVType(cur); err != nil {
				return err
			}
			scount++
		}
		if scount > 65535 {
			return token.NewError("too many stack items in full frame", kind.Span)
		}
		ca.smt.Fill2(sph, uint16(scount))
		if err := cur.Value(".end"); err != nil {
			return err
		}
		if err := cur.Value("stack"); err != nil {
			return err
		}
	default:
		return token.NewError("expected same, stack_1, stack_1_extended, chop, same_extended, append, or full", kind.Span)
	}

	if ca.smtCount == 0xFFFF {
		return token.NewError("method has more stack map frames than fit in a StackMapTable attribute", kind.Span)
	}
	ca.smtCount++
	ca.smtHasFrame = true
	ca.smtLastPos = pos
	return cur.EOL()
}

// parseVType parses one verification_type_info word: a bare tag name, or
// "Object <classref>" / "Uninitialized <label>" carrying an operand.
func (ca *codeAsm) parseVType(cur *token.Cursor) error {
	t, err := cur.AssertType(token.Word)
	if err != nil {
		return err
	}
	switch t.Text() {
	case "Top":
		ca.smt.U8(uint8(classfile.VTTop))
	case "Integer":
		ca.smt.U8(uint8(classfile.VTInteger))
	case "Float":
		ca.smt.U8(uint8(classfile.VTFloat))
	case "Double":
		ca.smt.U8(uint8(classfile.VTDouble))
	case "Long":
		ca.smt.U8(uint8(classfile.VTLong))
	case "Null":
		ca.smt.U8(uint8(classfile.VTNull))
	case "UninitializedThis":
		ca.smt.U8(uint8(classfile.VTUninitializedThis))
	case "Object":
		ca.smt.U8(uint8(classfile.VTObject))
		ref, err := ParseClassRef(cur)
		if err != nil {
			return err
		}
		idx, err := ca.b.ResolveRef(ref)
		if err != nil {
			return err
		}
		ca.smt.U16(idx)
	case "Uninitialized":
		ca.smt.U8(uint8(classfile.VTUninitialized))
		lbl, span, err := ca.parseLabelRef(cur)
		if err != nil {
			return err
		}
		ph := ca.smt.Ph2()
		ca.smtFixups = append(ca.smtFixups, vtypeFixup{ph: ph, label: lbl, span: span})
	default:
		return token.NewError("expected a verification type (Top, Integer, Float, Double, Long, Null, UninitializedThis, Object, or Uninitialized)", t.Span)
	}
	return nil
}

// parseStackMapTableDirective parses a bare ".stackmaptable" directive,
// which consumes the stack map table this parser has accumulated from
// ".stack" directives seen so far and emits it as an explicit attribute
// rather than letting finish synthesize it implicitly.
func (ca *codeAsm) parseStackMapTableDirective(cur *token.Cursor) error {
	d, _ := cur.Peek()
	cur.Next() // .stackmaptable
	if ca.smtExplicit {
		return token.NewError("StackMapTable attribute defined twice", d.Span)
	}
	ca.smtExplicit = true
	ca.smtExplicitAt = len(ca.attrs)
	if err := cur.EOL(); err != nil && cur.HasNext() {
		return err
	}
	return nil
}

func (ca *codeAsm) parseStatement(cur *token.Cursor) error {
	for cur.HasType(token.LabelDef) {
		t, _ := cur.Next()
		name := t.Text()[:len(t.Text())-1] // strip trailing ':'
		if prev, dup := ca.labelSpans[name]; dup {
			return token.NewError2("duplicate label definition", t.Span, "previous definition was here", prev)
		}
		ca.labels[name] = ca.pos()
		ca.labelSpans[name] = t.Span
	}
	if cur.HasType(token.Newlines) {
		cur.Next()
		return nil
	}
	t, err := cur.AssertType(token.Word)
	if err != nil {
		return err
	}
	return ca.emitInstruction(cur, t)
}

func (ca *codeAsm) parseU8(cur *token.Cursor) (uint8, error) {
	t, err := cur.IntLiteral()
	if err != nil {
		return 0, err
	}
	v, err := token.ParseInt[uint8](t.Text(), 0, 255)
	if err != nil {
		return 0, token.NewError(err.Error(), t.Span)
	}
	return v, nil
}

func (ca *codeAsm) parseI8(cur *token.Cursor) (int8, error) {
	t, err := cur.IntLiteral()
	if err != nil {
		return 0, err
	}
	v, err := token.ParseInt[int8](t.Text(), -128, 127)
	if err != nil {
		return 0, token.NewError(err.Error(), t.Span)
	}
	return v, nil
}

func (ca *codeAsm) parseI16(cur *token.Cursor) (int16, error) {
	t, err := cur.IntLiteral()
	if err != nil {
		return 0, err
	}
	v, err := token.ParseInt[int16](t.Text(), -32768, 32767)
	if err != nil {
		return 0, token.NewError(err.Error(), t.Span)
	}
	return v, nil
}

func (ca *codeAsm) parseLabelRef(cur *token.Cursor) (string, token.Span, error) {
	t, err := cur.AssertType(token.Word)
	if err != nil {
		return "", token.Span{}, err
	}
	return t.Text(), t.Span, nil
}

// emitInstruction encodes one instruction (mnemonic t already consumed)
// and its operand, if any, into ca.w.
func (ca *codeAsm) emitInstruction(cur *token.Cursor, t token.Token) error {
	name := t.Text()
	if name == "wide" {
		return ca.emitWide(cur)
	}
	instr, ok := classfile.LookupMnemonic(name)
	if !ok {
		return token.NewError("unknown instruction "+quote(name), t.Span)
	}
	instrPos := ca.pos()
	ca.w.U8(instr.Opcode)
	switch instr.Operand {
	case classfile.OperandNone:
	case classfile.OperandLocal:
		v, err := ca.parseU8(cur)
		if err != nil {
			return err
		}
		ca.w.U8(v)
	case classfile.OperandI8:
		v, err := ca.parseI8(cur)
		if err != nil {
			return err
		}
		ca.w.U8(uint8(v))
	case classfile.OperandI16:
		v, err := ca.parseI16(cur)
		if err != nil {
			return err
		}
		ca.w.U16(uint16(v))
	case classfile.OperandU8Raw:
		wt, err := cur.AssertType(token.Word)
		if err != nil {
			return err
		}
		code, ok := classfile.NewarrayCode[wt.Text()]
		if !ok {
			return token.NewError("unknown array type "+quote(wt.Text()), wt.Span)
		}
		ca.w.U8(code)
	case classfile.OperandShortJump:
		lbl, span, err := ca.parseLabelRef(cur)
		if err != nil {
			return err
		}
		ph := ca.w.Ph2()
		ca.jumps = append(ca.jumps, jumpFixup{ph2: ph, instrPos: instrPos, label: lbl, span: span})
	case classfile.OperandLongJump:
		lbl, span, err := ca.parseLabelRef(cur)
		if err != nil {
			return err
		}
		ph := ca.w.Ph4()
		ca.jumps = append(ca.jumps, jumpFixup{ph4: ph, wide: true, instrPos: instrPos, label: lbl, span: span})
	case classfile.OperandClassRef:
		ref, err := ParseClassRef(cur)
		if err != nil {
			return err
		}
		idx, err := ca.b.ResolveRef(ref)
		if err != nil {
			return err
		}
		ca.w.U16(idx)
	case classfile.OperandFieldRef, classfile.OperandMethodRef:
		ref, err := ParseRef(cur)
		if err != nil {
			return err
		}
		idx, err := ca.b.ResolveRef(ref)
		if err != nil {
			return err
		}
		ca.w.U16(idx)
	case classfile.OperandInterfaceRef:
		ref, err := ParseRef(cur)
		if err != nil {
			return err
		}
		idx, err := ca.b.ResolveRef(ref)
		if err != nil {
			return err
		}
		ca.w.U16(idx)
		n, err := ca.parseU8(cur)
		if err != nil {
			return err
		}
		ca.w.U8(n)
		ca.w.U8(0)
	case classfile.OperandInvokeDynamicRef:
		ref, err := ParseRef(cur)
		if err != nil {
			return err
		}
		idx, err := ca.b.ResolveRef(ref)
		if err != nil {
			return err
		}
		ca.w.U16(idx)
		ca.w.U16(0)
	case classfile.OperandLdc:
		ref, err := ParseLdcRhs(cur)
		if err != nil {
			return err
		}
		idx, err := ca.b.ResolveLdcRef(ref, t.Span)
		if err != nil {
			return err
		}
		ca.w.U8(uint8(idx))
	case classfile.OperandLdcWide:
		ref, err := ParseLdcRhs(cur)
		if err != nil {
			return err
		}
		idx, err := ca.b.ResolveRef(ref)
		if err != nil {
			return err
		}
		ca.w.U16(idx)
	case classfile.OperandIinc:
		idx, err := ca.parseU8(cur)
		if err != nil {
			return err
		}
		ca.w.U8(idx)
		v, err := ca.parseI8(cur)
		if err != nil {
			return err
		}
		ca.w.U8(uint8(v))
	case classfile.OperandMultiNewArray:
		ref, err := ParseClassRef(cur)
		if err != nil {
			return err
		}
		idx, err := ca.b.ResolveRef(ref)
		if err != nil {
			return err
		}
		ca.w.U16(idx)
		dims, err := ca.parseU8(cur)
		if err != nil {
			return err
		}
		ca.w.U8(dims)
	case classfile.OperandTableSwitch:
		return ca.parseTableSwitch(cur, instrPos)
	case classfile.OperandLookupSwitch:
		return ca.parseLookupSwitch(cur, instrPos)
	default:
		return token.NewError("unsupported operand for "+quote(name), t.Span)
	}
	return cur.EOL()
}

func (ca *codeAsm) emitWide(cur *token.Cursor) error {
	sub, err := cur.AssertType(token.Word)
	if err != nil {
		return err
	}
	instr, ok := classfile.LookupMnemonic(sub.Text())
	if !ok || (instr.Operand != classfile.OperandLocal && instr.Operand != classfile.OperandIinc) {
		return token.NewError("instruction "+quote(sub.Text())+" cannot be used with wide", sub.Span)
	}
	ca.w.U8(classfile.OpWide)
	ca.w.U8(instr.Opcode)
	idxTok, err := cur.IntLiteral()
	if err != nil {
		return err
	}
	idx, err := token.ParseInt[uint16](idxTok.Text(), 0, 65535)
	if err != nil {
		return token.NewError(err.Error(), idxTok.Span)
	}
	ca.w.U16(idx)
	if instr.Operand == classfile.OperandIinc {
		cTok, err := cur.IntLiteral()
		if err != nil {
			return err
		}
		c, err := token.ParseInt[int16](cTok.Text(), -32768, 32767)
		if err != nil {
			return token.NewError(err.Error(), cTok.Span)
		}
		ca.w.U16(uint16(c))
	}
	return cur.EOL()
}

type switchTarget struct {
	label string
	span  token.Span
}

func (ca *codeAsm) skipBlankLines(cur *token.Cursor) {
	for cur.HasType(token.Newlines) {
		cur.Next()
	}
}

func (ca *codeAsm) parseSwitchDefault(cur *token.Cursor) (switchTarget, error) {
	if err := cur.Value("default"); err != nil {
		return switchTarget{}, err
	}
	if err := cur.Value(":"); err != nil {
		return switchTarget{}, err
	}
	lbl, span, err := ca.parseLabelRef(cur)
	if err != nil {
		return switchTarget{}, err
	}
	if err := cur.EOL(); err != nil && cur.HasNext() {
		return switchTarget{}, err
	}
	return switchTarget{lbl, span}, nil
}

func (ca *codeAsm) parseTableSwitch(cur *token.Cursor, instrPos uint32) error {
	lowTok, err := cur.IntLiteral()
	if err != nil {
		return err
	}
	low, err := token.ParseInt[int32](lowTok.Text(), -1<<31, 1<<31-1)
	if err != nil {
		return token.NewError(err.Error(), lowTok.Span)
	}
	if err := cur.EOL(); err != nil {
		return err
	}

	var targets []switchTarget
	var def switchTarget
	for {
		ca.skipBlankLines(cur)
		pk, err := cur.Peek()
		if err != nil {
			return err
		}
		if pk.Type == token.Word && pk.Text() == "default" {
			def, err = ca.parseSwitchDefault(cur)
			if err != nil {
				return err
			}
			break
		}
		lbl, span, err := ca.parseLabelRef(cur)
		if err != nil {
			return err
		}
		targets = append(targets, switchTarget{lbl, span})
		if err := cur.EOL(); err != nil {
			return err
		}
	}

	pad := PadLen(instrPos)
	for i := 0; i < pad; i++ {
		ca.w.U8(0)
	}
	defPh := ca.w.Ph4()
	ca.jumps = append(ca.jumps, jumpFixup{ph4: defPh, wide: true, instrPos: instrPos, label: def.label, span: def.span})
	high := low + int32(len(targets)) - 1
	ca.w.U32(uint32(low))
	ca.w.U32(uint32(high))
	for _, tg := range targets {
		ph := ca.w.Ph4()
		ca.jumps = append(ca.jumps, jumpFixup{ph4: ph, wide: true, instrPos: instrPos, label: tg.label, span: tg.span})
	}
	return nil
}

func (ca *codeAsm) parseLookupSwitch(cur *token.Cursor, instrPos uint32) error {
	if err := cur.EOL(); err != nil {
		return err
	}

	type pair struct {
		key   int32
		label string
		span  token.Span
	}
	var pairs []pair
	var def switchTarget
	for {
		ca.skipBlankLines(cur)
		pk, err := cur.Peek()
		if err != nil {
			return err
		}
		if pk.Type == token.Word && pk.Text() == "default" {
			def, err = ca.parseSwitchDefault(cur)
			if err != nil {
				return err
			}
			break
		}
		kTok, err := cur.IntLiteral()
		if err != nil {
			return err
		}
		key, err := token.ParseInt[int32](kTok.Text(), -1<<31, 1<<31-1)
		if err != nil {
			return token.NewError(err.Error(), kTok.Span)
		}
		if err := cur.Value(":"); err != nil {
			return err
		}
		lbl, span, err := ca.parseLabelRef(cur)
		if err != nil {
			return err
		}
		pairs = append(pairs, pair{key, lbl, span})
		if err := cur.EOL(); err != nil {
			return err
		}
	}

	for i := 1; i < len(pairs); i++ {
		for j := i; j > 0 && pairs[j-1].key > pairs[j].key; j-- {
			pairs[j-1], pairs[j] = pairs[j], pairs[j-1]
		}
	}
	for i := 1; i < len(pairs); i++ {
		if pairs[i-1].key == pairs[i].key {
			return token.NewError("duplicate lookupswitch key", pairs[i].span)
		}
	}

	pad := PadLen(instrPos)
	for i := 0; i < pad; i++ {
		ca.w.U8(0)
	}
	defPh := ca.w.Ph4()
	ca.jumps = append(ca.jumps, jumpFixup{ph4: defPh, wide: true, instrPos: instrPos, label: def.label, span: def.span})
	ca.w.U32(uint32(len(pairs)))
	for _, p := range pairs {
		ca.w.U32(uint32(p.key))
		ph := ca.w.Ph4()
		ca.jumps = append(ca.jumps, jumpFixup{ph4: ph, wide: true, instrPos: instrPos, label: p.label, span: p.span})
	}
	return nil
}

// buildStackMapTableAttribute wraps the accumulated frame bytes with
// their number_of_entries count into a StackMapTable attribute body.
func (ca *codeAsm) buildStackMapTableAttribute() classfile.Attribute {
	w := werr.New()
	w.U16(ca.smtCount)
	w.Append(ca.smt)
	return classfile.Attribute{NameIndex: mustResolveUtf8Name(ca.b, "StackMapTable"), Info: w.Bytes()}
}

// PadLen returns the number of zero padding bytes a table/lookup switch
// whose opcode byte is at absolute offset pos needs right after that
// opcode so that the
// aligned fields that follow start on a 4-byte boundary relative to the
// start of the method.
func PadLen(pos uint32) int {
	return int(classfile.PadLen(classfile.Pos(pos)))
}

// finish resolves every deferred label use (jumps, exception table
// entries, local variable ranges) and assembles the final Code value.
func (ca *codeAsm) finish() (*classfile.Code, error) {
	for _, j := range ca.jumps {
		target, ok := ca.labels[j.label]
		if !ok {
			return nil, token.NewError("undefined label "+quote(j.label), j.span)
		}
		delta := int64(target) - int64(j.instrPos)
		if j.wide {
			ca.w.Fill4(j.ph4, uint32(int32(delta)))
		} else {
			if delta < -32768 || delta > 32767 {
				return nil, token.NewError("branch target out of range for a 2-byte jump; use the _w form instead", j.span)
			}
			ca.w.Fill2(j.ph2, uint16(int16(delta)))
		}
	}
	if err := ca.w.Err(); err != nil {
		return nil, err
	}

	exceptions := make([]classfile.ExceptionTableEntry, 0, len(ca.excs))
	for _, e := range ca.excs {
		start, ok := ca.labels[e.start]
		if !ok {
			return nil, token.NewError("undefined label "+quote(e.start), e.span)
		}
		end, ok := ca.labels[e.end]
		if !ok {
			return nil, token.NewError("undefined label "+quote(e.end), e.span)
		}
		handler, ok := ca.labels[e.handler]
		if !ok {
			return nil, token.NewError("undefined label "+quote(e.handler), e.span)
		}
		var catchType uint16
		if !e.catchAll {
			idx, err := ca.b.ResolveRef(e.catchType)
			if err != nil {
				return nil, err
			}
			catchType = idx
		}
		exceptions = append(exceptions, classfile.ExceptionTableEntry{
			Start: classfile.Pos(start), End: classfile.Pos(end), Handler: classfile.Pos(handler),
			CatchType: catchType,
		})
	}

	for _, f := range ca.pendingVarLabels {
		start, ok := ca.labels[f.start]
		if !ok {
			return nil, token.NewError("undefined label "+quote(f.start), ca.labelSpans[f.start])
		}
		end, ok := ca.labels[f.end]
		if !ok {
			return nil, token.NewError("undefined label "+quote(f.end), ca.labelSpans[f.end])
		}
		ca.vars[f.idx].StartPC = classfile.Pos(start)
		ca.vars[f.idx].Length = classfile.Pos(end - start)
	}

	for _, f := range ca.smtFixups {
		target, ok := ca.labels[f.label]
		if !ok {
			return nil, token.NewError("undefined label "+quote(f.label), f.span)
		}
		if target > 0xFFFF {
			return nil, token.NewError("new instruction offset out of range for an Uninitialized verification type", f.span)
		}
		ca.smt.Fill2(f.ph, uint16(target))
	}
	if err := ca.smt.Err(); err != nil {
		return nil, err
	}

	attrs := ca.attrs
	if len(ca.lines) > 0 {
		attrs = append(attrs, synthesizeLineNumberTable(ca.b, ca.lines))
	}
	if len(ca.vars) > 0 {
		attrs = append(attrs, synthesizeLocalVariableTable(ca.b, ca.vars))
	}

	switch {
	case ca.smtExplicit:
		smtAttr := ca.buildStackMapTableAttribute()
		at := ca.smtExplicitAt
		if at > len(attrs) {
			at = len(attrs)
		}
		attrs = append(attrs[:at:at], append([]classfile.Attribute{smtAttr}, attrs[at:]...)...)
	case ca.smtCount > 0 && !ca.noImplicitStackMap:
		attrs = append(attrs, ca.buildStackMapTableAttribute())
	}

	return &classfile.Code{
		MaxStack:   ca.maxStack,
		MaxLocals:  ca.maxLocals,
		Bytecode:   ca.w.Bytes(),
		Exceptions: exceptions,
		Attributes: attrs,
		Short:      ca.opts.AllowShort && !ca.forceLong,
	}, nil
}
