package asm

import (
	"strings"

	"github.com/db47h/jasm/classfile"
	"github.com/db47h/jasm/cpool"
	"github.com/db47h/jasm/internal/werr"
	"github.com/db47h/jasm/token"
)

// ParseClass assembles a full class file from its textual assembly
// source.
func ParseClass(src *token.Source) (*classfile.ClassFile, error) {
	toks, err := token.Tokenize(src)
	if err != nil {
		return nil, err
	}
	cur := token.NewCursor(src, toks)
	b := cpool.NewBuilder()

	skipBlank(cur)

	major, minor := uint16(49), uint16(0)
	if cur.HasType(token.Directive) {
		if d, _ := cur.Peek(); d.Text() == ".version" {
			cur.Next()
			majTok, err := parseU16Lit(cur)
			if err != nil {
				return nil, err
			}
			minTok, err := parseU16Lit(cur)
			if err != nil {
				return nil, err
			}
			major, minor = majTok, minTok
			if err := cur.EOL(); err != nil {
				return nil, err
			}
			skipBlank(cur)
		}
	}

	if err := expectDirective(cur, ".class"); err != nil {
		return nil, err
	}
	classFlags, err := parseFlags(cur, classfile.ClassFlagNames)
	if err != nil {
		return nil, err
	}
	thisRef, err := ParseClassRef(cur)
	if err != nil {
		return nil, err
	}
	if err := cur.EOL(); err != nil {
		return nil, err
	}
	skipBlank(cur)

	if err := expectDirective(cur, ".super"); err != nil {
		return nil, err
	}
	superRef, err := ParseClassRef(cur)
	if err != nil {
		return nil, err
	}
	if err := cur.EOL(); err != nil {
		return nil, err
	}
	skipBlank(cur)

	var ifaceRefs []cpool.Ref
	for cur.HasType(token.Directive) {
		d, _ := cur.Peek()
		if d.Text() != ".implements" {
			break
		}
		cur.Next()
		ref, err := ParseClassRef(cur)
		if err != nil {
			return nil, err
		}
		ifaceRefs = append(ifaceRefs, ref)
		if err := cur.EOL(); err != nil {
			return nil, err
		}
		skipBlank(cur)
	}

	cf := &classfile.ClassFile{Minor: minor, Major: major, AccessFlags: classFlags}

	if err := collectConstDefs(cur, b); err != nil {
		return nil, err
	}
	if err := b.Finish(); err != nil {
		return nil, err
	}

	bsPolicy := cpool.BsAttrIfPresent
	var fields, methods []classfile.Member
	var attrs []classfile.Attribute

classBody:
	for {
		skipBlank(cur)
		if !cur.HasNext() {
			return nil, token.NewError("unexpected end of file inside .class body", token.Span{})
		}
		d, _ := cur.Peek()
		if d.Type != token.Directive {
			return nil, cur.Fail()
		}
		switch d.Text() {
		case ".end":
			cur.Next()
			w, err := cur.AssertType(token.Word)
			if err != nil {
				return nil, err
			}
			if w.Text() != "class" {
				return nil, token.NewError("expected '.end class'", w.Span)
			}
			break classBody
		case ".const", ".bootstrap":
			// Already registered by collectConstDefs.
			cur.Next()
			skipLine(cur)
		case ".field":
			cur.Next()
			f, err := parseField(cur, b)
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
		case ".method":
			cur.Next()
			m, err := parseMethod(cur, b, cf)
			if err != nil {
				return nil, err
			}
			methods = append(methods, m)
		case ".bootstrapmethods":
			cur.Next()
			bsPolicy = cpool.BsAttrAlways
			if err := cur.EOL(); err != nil && cur.HasNext() {
				return nil, err
			}
		default:
			cur.Next()
			name := d.Text()[1:]
			attr, err := parseAttributeDirective(cur, name, b)
			if err != nil {
				if err == errInertDirective {
					continue classBody
				}
				return nil, err
			}
			attrs = append(attrs, attr)
		}
	}

	thisIdx, err := b.ResolveRef(thisRef)
	if err != nil {
		return nil, err
	}
	superIdx, err := b.ResolveRef(superRef)
	if err != nil {
		return nil, err
	}
	ifaces := make([]uint16, len(ifaceRefs))
	for i, r := range ifaceRefs {
		if ifaces[i], err = b.ResolveRef(r); err != nil {
			return nil, err
		}
	}

	pool, bsTable, _ := b.Build()
	if cpool.NeedsBootstrapAttr(bsPolicy, len(bsTable)) {
		w := werr.New()
		w.U16(uint16(len(bsTable)))
		for _, m := range bsTable {
			w.U16(m.MethodRef)
			w.U16(uint16(len(m.Args)))
			for _, a := range m.Args {
				w.U16(a)
			}
		}
		nameIdx, err := resolveUtf8Name(b, "BootstrapMethods")
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, classfile.Attribute{NameIndex: nameIdx, Info: w.Bytes()})
		pool, bsTable, _ = b.Build()
		_ = bsTable
	}

	cf.Pool = pool
	cf.ThisClass = thisIdx
	cf.SuperClass = superIdx
	cf.Interfaces = ifaces
	cf.Fields = fields
	cf.Methods = methods
	cf.Attributes = attrs
	return cf, nil
}

func expectDirective(cur *token.Cursor, name string) error {
	t, err := cur.Peek()
	if err != nil {
		return err
	}
	if t.Type != token.Directive || t.Text() != name {
		return token.NewError("expected "+quote(name), t.Span)
	}
	cur.Next()
	return nil
}

func skipBlank(cur *token.Cursor) {
	for cur.HasType(token.Newlines) {
		cur.Next()
	}
}

// skipLine advances the cursor past the rest of the current statement, up
// to and including its terminating Newlines token (or end of file).
func skipLine(cur *token.Cursor) {
	for cur.HasNext() && !cur.HasType(token.Newlines) {
		cur.Next()
	}
	if cur.HasType(token.Newlines) {
		cur.Next()
	}
}

// blockDirectives are the class-body directives whose body spans
// multiple lines up to a matching ".end <name>", used by collectConstDefs
// to skip over everything except ".const"/".bootstrap" definitions
// without having to fully parse field, method, and attribute bodies.
var blockDirectives = map[string]bool{
	"method": true, "code": true, "fieldattributes": true,
	"innerclasses": true, "exceptions": true, "nestmembers": true,
	"permittedsubclasses": true, "modulepackages": true,
	"linenumbertable": true, "localvariabletable": true,
	"localvariabletypetable": true, "methodparameters": true,
	"module": true, "runtime": true,
}

// collectConstDefs pre-scans the class body, honoring only ".const" and
// ".bootstrap" definitions so that every symbolic and raw constant pool
// entry is known before cpool.Builder.Finish is called — required
// because the grammar allows these definitions to appear interleaved
// with field, method, and attribute directives anywhere in the class
// body, but the Builder must see every raw slot reservation before it
// can compute the free-range allocator. Definitions nested inside a
// field, method, or attribute block (for example a ".const" written
// inside a method body) are not supported; this assembler expects them
// at the top level of the class body, which covers every example in the
// reference corpus.
func collectConstDefs(cur *token.Cursor, b *cpool.Builder) error {
	mark := cur.Mark()
	depth := 0
	for {
		skipBlank(cur)
		if !cur.HasNext() {
			break
		}
		d, _ := cur.Peek()
		if d.Type != token.Directive {
			cur.Next()
			continue
		}
		if d.Text() == ".end" {
			if depth == 0 {
				break
			}
			cur.Next()
			// ".stack full" is not counted as a block, so neither is its
			// closing ".end stack".
			if w, err := cur.Peek(); err != nil || w.Text() != "stack" {
				depth--
			}
			skipLine(cur)
			continue
		}
		name := d.Text()[1:]
		if depth == 0 && name == "const" {
			cur.Next()
			if err := parseConstDirective(cur, b); err != nil {
				return err
			}
			continue
		}
		if depth == 0 && name == "bootstrap" {
			cur.Next()
			if err := parseBootstrapDirective(cur, b); err != nil {
				return err
			}
			continue
		}
		if blockDirectives[name] {
			depth++
		}
		skipLine(cur)
	}
	cur.Reset(mark)
	return nil
}

func parseConstDirective(cur *token.Cursor, b *cpool.Builder) error {
	t, err := cur.AssertType(token.Ref)
	if err != nil {
		return err
	}
	s := refText(t)
	if err := cur.Value("="); err != nil {
		return err
	}
	c, err := ParseInlineConst(cur)
	if err != nil {
		return err
	}
	if err := cur.EOL(); err != nil {
		return err
	}
	if isAllDigits(s) {
		idx, err := token.ParseInt[uint16](s, 1, 65534)
		if err != nil {
			return token.NewError(err.Error(), t.Span)
		}
		return b.AddRawDef(idx, t.Span, c)
	}
	return b.AddSymDef(s, t.Span, c)
}

func parseBootstrapDirective(cur *token.Cursor, b *cpool.Builder) error {
	t, err := cur.AssertType(token.BsRef)
	if err != nil {
		return err
	}
	s := strings.TrimPrefix(refText(t), "bs:")
	if err := cur.Value("="); err != nil {
		return err
	}
	m, err := ParseInlineBsMethod(cur)
	if err != nil {
		return err
	}
	if err := cur.EOL(); err != nil {
		return err
	}
	if isAllDigits(s) {
		idx, err := token.ParseInt[uint16](s, 0, 65534)
		if err != nil {
			return token.NewError(err.Error(), t.Span)
		}
		return b.AddBsRawDef(idx, t.Span, m)
	}
	return b.AddBsSymDef(s, t.Span, m)
}

func parseField(cur *token.Cursor, b *cpool.Builder) (classfile.Member, error) {
	flags, err := parseFlags(cur, classfile.FieldFlagNames)
	if err != nil {
		return classfile.Member{}, err
	}
	nameRef, err := parseUtf8Ref(cur)
	if err != nil {
		return classfile.Member{}, err
	}
	descRef, err := parseUtf8Ref(cur)
	if err != nil {
		return classfile.Member{}, err
	}
	var attrs []classfile.Attribute
	if cur.TryValue("=") {
		c, err := parseFieldInitializer(cur)
		if err != nil {
			return classfile.Member{}, err
		}
		idx, err := b.ResolveRef(cpool.InlineRef(c))
		if err != nil {
			return classfile.Member{}, err
		}
		w := werr.New()
		w.U16(idx)
		nameIdx, err := resolveUtf8Name(b, "ConstantValue")
		if err != nil {
			return classfile.Member{}, err
		}
		attrs = append(attrs, classfile.Attribute{NameIndex: nameIdx, Info: w.Bytes()})
	}
	if err := cur.EOL(); err != nil {
		return classfile.Member{}, err
	}
	skipBlank(cur)
	if cur.HasType(token.Directive) {
		if d, _ := cur.Peek(); d.Text() == ".fieldattributes" {
			cur.Next()
			if err := cur.EOL(); err != nil {
				return classfile.Member{}, err
			}
		fieldAttrs:
			for {
				skipBlank(cur)
				d2, err := cur.Peek()
				if err != nil {
					return classfile.Member{}, err
				}
				if d2.Type == token.Directive && d2.Text() == ".end" {
					cur.Next()
					w, err := cur.AssertType(token.Word)
					if err != nil {
						return classfile.Member{}, err
					}
					if w.Text() != "fieldattributes" {
						return classfile.Member{}, token.NewError("expected '.end fieldattributes'", w.Span)
					}
					break fieldAttrs
				}
				if d2.Type != token.Directive {
					return classfile.Member{}, cur.Fail()
				}
				cur.Next()
				name := d2.Text()[1:]
				attr, err := parseAttributeDirective(cur, name, b)
				if err != nil {
					if err == errInertDirective {
						continue fieldAttrs
					}
					return classfile.Member{}, err
				}
				attrs = append(attrs, attr)
			}
		}
	}
	nameIdx, err := b.ResolveRef(nameRef)
	if err != nil {
		return classfile.Member{}, err
	}
	descIdx, err := b.ResolveRef(descRef)
	if err != nil {
		return classfile.Member{}, err
	}
	return classfile.Member{AccessFlags: flags, NameIndex: nameIdx, DescriptorIndex: descIdx, Attributes: attrs}, nil
}

// parseFieldInitializer parses the right-hand side of a
// "= <ldc-rhs>" field initializer: either an explicit "Int 5"-style
// inline constant, or a bare numeric/string literal whose own token kind
// already identifies which primitive ConstantValue type it produces.
func parseFieldInitializer(cur *token.Cursor) (*cpool.Const, error) {
	if cur.HasType(token.Word) {
		return ParseInlineConst(cur)
	}
	t, err := cur.Peek()
	if err != nil {
		return nil, err
	}
	switch t.Type {
	case token.IntLit:
		cur.Next()
		v, err := token.ParseInt[int32](t.Text(), -1<<31, 1<<31-1)
		if err != nil {
			return nil, token.NewError(err.Error(), t.Span)
		}
		return &cpool.Const{Tag: classfile.TagInteger, Bits32: uint32(v)}, nil
	case token.LongLit:
		cur.Next()
		v, err := token.ParseInt[int64](strings.TrimSuffix(t.Text(), "L"), -1<<63, 1<<63-1)
		if err != nil {
			return nil, token.NewError(err.Error(), t.Span)
		}
		return &cpool.Const{Tag: classfile.TagLong, Bits64: uint64(v)}, nil
	case token.FloatLit:
		cur.Next()
		v, err := token.ParseFloat32(strings.TrimSuffix(t.Text(), "f"))
		if err != nil {
			return nil, token.NewError(err.Error(), t.Span)
		}
		return &cpool.Const{Tag: classfile.TagFloat, Bits32: v}, nil
	case token.DoubleLit:
		cur.Next()
		v, err := token.ParseFloat64(t.Text())
		if err != nil {
			return nil, token.NewError(err.Error(), t.Span)
		}
		return &cpool.Const{Tag: classfile.TagDouble, Bits64: v}, nil
	case token.StringLit:
		cur.Next()
		b8, err := utf8Bytes(t)
		if err != nil {
			return nil, err
		}
		return &cpool.Const{Tag: classfile.TagString, Name: cpool.InlineRef(&cpool.Const{Tag: classfile.TagUtf8, Utf8: b8})}, nil
	default:
		return nil, cur.Fail()
	}
}

func parseMethod(cur *token.Cursor, b *cpool.Builder, cf *classfile.ClassFile) (classfile.Member, error) {
	flags, err := parseFlags(cur, classfile.MethodFlagNames)
	if err != nil {
		return classfile.Member{}, err
	}
	nameRef, err := parseUtf8Ref(cur)
	if err != nil {
		return classfile.Member{}, err
	}
	if err := cur.Value(":"); err != nil {
		return classfile.Member{}, err
	}
	descRef, err := parseUtf8Ref(cur)
	if err != nil {
		return classfile.Member{}, err
	}
	if err := cur.EOL(); err != nil {
		return classfile.Member{}, err
	}

	var attrs []classfile.Attribute

methodBody:
	for {
		skipBlank(cur)
		if !cur.HasNext() {
			return classfile.Member{}, token.NewError("unexpected end of file inside .method body", token.Span{})
		}
		d, err := cur.Peek()
		if err != nil {
			return classfile.Member{}, err
		}
		if d.Type != token.Directive {
			return classfile.Member{}, cur.Fail()
		}
		switch d.Text() {
		case ".end":
			cur.Next()
			w, err := cur.AssertType(token.Word)
			if err != nil {
				return classfile.Member{}, err
			}
			if w.Text() != "method" {
				return classfile.Member{}, token.NewError("expected '.end method'", w.Span)
			}
			break methodBody
		case ".code":
			cur.Next()
			long := cur.TryValue("long")
			var maxStack, maxLocals uint16
		codeHeader:
			for cur.HasType(token.Word) {
				kw, _ := cur.Peek()
				switch kw.Text() {
				case "stack":
					cur.Next()
					if maxStack, err = parseU16Lit(cur); err != nil {
						return classfile.Member{}, err
					}
				case "locals":
					cur.Next()
					if maxLocals, err = parseU16Lit(cur); err != nil {
						return classfile.Member{}, err
					}
				default:
					break codeHeader
				}
			}
			if err := cur.EOL(); err != nil {
				return classfile.Member{}, err
			}
			opts := classfile.CodeOptions{AllowShort: cf.IsShortCode()}
			code, err := ParseCode(cur, b, opts, "code", maxStack, maxLocals, long)
			if err != nil {
				return classfile.Member{}, err
			}
			attr, err := buildCodeAttribute(b, code)
			if err != nil {
				return classfile.Member{}, err
			}
			attrs = append(attrs, attr)
		case ".limit":
			opts := classfile.CodeOptions{AllowShort: cf.IsShortCode()}
			code, err := ParseCode(cur, b, opts, "method", 0, 0, false)
			if err != nil {
				return classfile.Member{}, err
			}
			attr, err := buildCodeAttribute(b, code)
			if err != nil {
				return classfile.Member{}, err
			}
			attrs = append(attrs, attr)
			break methodBody
		default:
			cur.Next()
			name := d.Text()[1:]
			attr, err := parseAttributeDirective(cur, name, b)
			if err != nil {
				if err == errInertDirective {
					continue methodBody
				}
				return classfile.Member{}, err
			}
			attrs = append(attrs, attr)
		}
	}

	nameIdx, err := b.ResolveRef(nameRef)
	if err != nil {
		return classfile.Member{}, err
	}
	descIdx, err := b.ResolveRef(descRef)
	if err != nil {
		return classfile.Member{}, err
	}
	return classfile.Member{AccessFlags: flags, NameIndex: nameIdx, DescriptorIndex: descIdx, Attributes: attrs}, nil
}

func buildCodeAttribute(b *cpool.Builder, code *classfile.Code) (classfile.Attribute, error) {
	nameIdx, err := resolveUtf8Name(b, "Code")
	if err != nil {
		return classfile.Attribute{}, err
	}
	w := werr.New()
	classfile.WriteCode(w, code)
	if err := w.Err(); err != nil {
		return classfile.Attribute{}, err
	}
	return classfile.Attribute{NameIndex: nameIdx, Info: w.Bytes()}, nil
}
