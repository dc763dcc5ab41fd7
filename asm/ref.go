package asm

import (
	"strings"

	"github.com/db47h/jasm/classfile"
	"github.com/db47h/jasm/cpool"
	"github.com/db47h/jasm/internal/mutf8"
	"github.com/db47h/jasm/token"
)

// decodeStringBody unescapes the text between a string literal's quotes.
func decodeStringBody(body string, raw bool) ([]byte, error) {
	return mutf8.Unescape(body, raw)
}

// refText strips the enclosing brackets from a Ref/BsRef token's text; a
// bootstrap reference keeps its "bs:" prefix, which callers trim.
func refText(t token.Token) string {
	s := t.Text()
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	return s
}

// isAllDigits reports whether s is a non-empty run of ASCII digits, the
// rule this assembler uses to tell a raw "[42]" slot reference apart from
// a symbolic "[name]" one.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// parseBracketRef consumes a Ref token and returns it as a raw or
// symbolic cpool.Ref.
func parseBracketRef(cur *token.Cursor) (cpool.Ref, error) {
	t, err := cur.AssertType(token.Ref)
	if err != nil {
		return cpool.Ref{}, err
	}
	s := refText(t)
	if isAllDigits(s) {
		idx, err := token.ParseInt[uint16](s, 0, 65534)
		if err != nil {
			return cpool.Ref{}, token.NewError(err.Error(), t.Span)
		}
		return cpool.RawRef(idx), nil
	}
	return cpool.SymRef(s, t.Span), nil
}

// parseBracketBsRef consumes a BsRef token and returns it as a raw or
// symbolic cpool.BsRef.
func parseBracketBsRef(cur *token.Cursor) (cpool.BsRef, error) {
	t, err := cur.AssertType(token.BsRef)
	if err != nil {
		return cpool.BsRef{}, err
	}
	s := refText(t)
	s = strings.TrimPrefix(s, "bs:")
	if isAllDigits(s) {
		idx, err := token.ParseInt[uint16](s, 0, 65534)
		if err != nil {
			return cpool.BsRef{}, token.NewError(err.Error(), t.Span)
		}
		return cpool.BsRef{Kind: cpool.RefRaw, Raw: idx}, nil
	}
	return cpool.BsRef{Kind: cpool.RefSym, Sym: s, SymSpan: t.Span}, nil
}

// ParseRef parses a constant pool reference in any context where the
// grammar allows either a bracketed "[ref]" or an inline constant literal
// written out in full, e.g. "Class foo/Bar" instead of a prior
// ".const [bar] = Class foo/Bar" definition.
func ParseRef(cur *token.Cursor) (cpool.Ref, error) {
	if cur.HasType(token.Ref) {
		return parseBracketRef(cur)
	}
	c, err := ParseInlineConst(cur)
	if err != nil {
		return cpool.Ref{}, err
	}
	return cpool.InlineRef(c), nil
}

// ParseLdcRhs parses the right-hand side of an "ldc"-family instruction
// operand or a ".constantvalue" directive: a bracketed "[ref]", a bare
// Int/Float/Long/Double/String literal with no tag keyword at all (the
// common case, since these are the only constant kinds an ldc can
// actually name directly), or the fully tagged inline-constant form for
// anything else reachable only through a wide-index ldc (Class,
// MethodType, MethodHandle, Dynamic). Distinct from the general
// tag-polymorphic ParseRef because a bare literal has no keyword to
// dispatch on.
func ParseLdcRhs(cur *token.Cursor) (cpool.Ref, error) {
	if cur.HasType(token.Ref) {
		return parseBracketRef(cur)
	}
	if cur.HasType(token.IntLit) {
		t, _ := cur.Next()
		v, err := token.ParseInt[int32](t.Text(), -1<<31, 1<<31-1)
		if err != nil {
			return cpool.Ref{}, token.NewError(err.Error(), t.Span)
		}
		return cpool.InlineRef(&cpool.Const{Tag: classfile.TagInteger, Bits32: uint32(v)}), nil
	}
	if cur.HasType(token.FloatLit) {
		t, _ := cur.Next()
		v, err := token.ParseFloat32(strings.TrimSuffix(t.Text(), "f"))
		if err != nil {
			return cpool.Ref{}, token.NewError(err.Error(), t.Span)
		}
		return cpool.InlineRef(&cpool.Const{Tag: classfile.TagFloat, Bits32: v}), nil
	}
	if cur.HasType(token.LongLit) {
		t, _ := cur.Next()
		v, err := token.ParseInt[int64](strings.TrimSuffix(t.Text(), "L"), -1<<63, 1<<63-1)
		if err != nil {
			return cpool.Ref{}, token.NewError(err.Error(), t.Span)
		}
		return cpool.InlineRef(&cpool.Const{Tag: classfile.TagLong, Bits64: uint64(v)}), nil
	}
	if cur.HasType(token.DoubleLit) {
		t, _ := cur.Next()
		v, err := token.ParseFloat64(t.Text())
		if err != nil {
			return cpool.Ref{}, token.NewError(err.Error(), t.Span)
		}
		return cpool.InlineRef(&cpool.Const{Tag: classfile.TagDouble, Bits64: v}), nil
	}
	if cur.HasType(token.StringLit) {
		s, _ := cur.AssertType(token.StringLit)
		b, err := utf8Bytes(s)
		if err != nil {
			return cpool.Ref{}, err
		}
		name := cpool.InlineRef(&cpool.Const{Tag: classfile.TagUtf8, Utf8: b})
		return cpool.InlineRef(&cpool.Const{Tag: classfile.TagString, Name: name}), nil
	}
	c, err := ParseInlineConst(cur)
	if err != nil {
		return cpool.Ref{}, err
	}
	return cpool.InlineRef(c), nil
}

// parseSingleRef parses a reference whose constant tag is already fixed
// by grammar context: either a bracketed "[ref]" (to whatever constant a
// prior ".const"/".bootstrap" definition gave that name, generic), or a
// bare word/string token that implicitly names a single-Utf8-field
// constant of the given tag — the shorthand used for a class or package
// name wherever the surrounding directive or opcode already says which
// one is meant (".super java/lang/Object" rather than the more verbose
// ".super Class java/lang/Object").
func parseSingleRef(cur *token.Cursor, tag classfile.Tag) (cpool.Ref, error) {
	if cur.HasType(token.Ref) {
		return parseBracketRef(cur)
	}
	name, err := bareUtf8NameRef(cur)
	if err != nil {
		return cpool.Ref{}, err
	}
	return cpool.InlineRef(&cpool.Const{Tag: tag, Name: name}), nil
}

// bareUtf8NameRef wraps the next word or string literal token as an
// inline Utf8 constant reference.
func bareUtf8NameRef(cur *token.Cursor) (cpool.Ref, error) {
	if cur.HasType(token.StringLit) {
		s, _ := cur.AssertType(token.StringLit)
		b, err := utf8Bytes(s)
		if err != nil {
			return cpool.Ref{}, err
		}
		return cpool.InlineRef(&cpool.Const{Tag: classfile.TagUtf8, Utf8: b}), nil
	}
	t, err := cur.AssertType(token.Word)
	if err != nil {
		return cpool.Ref{}, err
	}
	return cpool.InlineRef(&cpool.Const{Tag: classfile.TagUtf8, Utf8: []byte(t.Text())}), nil
}

// ParseClassRef parses a class reference in a position where the
// grammar already knows a Class constant is expected (".super", a
// "new"/"checkcast" operand, an Exceptions table entry, ...): a
// bracketed "[ref]", or a bare binary class name spelled out directly.
func ParseClassRef(cur *token.Cursor) (cpool.Ref, error) {
	return parseSingleRef(cur, classfile.TagClass)
}

// ParsePackageRef is ParseClassRef's counterpart for Package constants
// (used by ".modulepackages" entries).
func ParsePackageRef(cur *token.Cursor) (cpool.Ref, error) {
	return parseSingleRef(cur, classfile.TagPackage)
}

// ParseBsRef parses a bootstrap-method reference: either a bracketed
// "[bs:ref]" or an inline "Bootstrap <handle> <arg>..." expression.
func ParseBsRef(cur *token.Cursor) (cpool.BsRef, error) {
	if cur.HasType(token.BsRef) {
		return parseBracketBsRef(cur)
	}
	m, err := ParseInlineBsMethod(cur)
	if err != nil {
		return cpool.BsRef{}, err
	}
	return cpool.BsRef{Kind: cpool.RefInline, Inline: m}, nil
}

// ParseInlineBsMethod parses the body of an inline bootstrap method
// reference: a method handle reference followed by zero or more static
// argument references, e.g.:
//
//	Bootstrap [handle] [arg1] [arg2]
func ParseInlineBsMethod(cur *token.Cursor) (*cpool.BsMethod, error) {
	if err := cur.Value("Bootstrap"); err != nil {
		return nil, err
	}
	handle, err := ParseRef(cur)
	if err != nil {
		return nil, err
	}
	m := &cpool.BsMethod{Handle: handle}
	for !cur.HasType(token.Newlines) {
		a, err := ParseRef(cur)
		if err != nil {
			return nil, err
		}
		m.Args = append(m.Args, a)
	}
	return m, nil
}

// utf8Bytes decodes a StringLit token's text into MUTF-8 bytes, ready for
// use as a Utf8 constant's payload.
func utf8Bytes(t token.Token) ([]byte, error) {
	s := t.Text()
	raw := strings.HasPrefix(s, "b")
	if raw {
		s = s[1:]
	}
	body := s[1 : len(s)-1]
	b, err := decodeStringBody(body, raw)
	if err != nil {
		return nil, token.NewError(err.Error(), t.Span)
	}
	return b, nil
}

// ParseInlineConst parses a fully-spelled-out constant pool entry literal,
// dispatching on the leading kind keyword.
//
//	Utf8 "text"
//	Int <intlit>
//	Float <floatlit>
//	Long <longlit>
//	Double <doublelit>
//	Class <ref>                      ( <ref> names/holds a Utf8 )
//	String <ref>
//	MethodType <ref>
//	Module <ref>
//	Package <ref>
//	Field <classref> <ntref>
//	Method <classref> <ntref>
//	InterfaceMethod <classref> <ntref>
//	NameAndType <ref> <ref>
//	MethodHandle <kind> <ref>
//	Dynamic <ntref> <bsref>
//	InvokeDynamic <ntref> <bsref>
//
// Field/Method/InterfaceMethod/NameAndType/Dynamic/InvokeDynamic also
// accept the shorthand "<classref> <name> <descriptor>" /
// "<name> <descriptor>" form in place of a single NameAndType ref,
// matching the reference assembler's convenience syntax.
func ParseInlineConst(cur *token.Cursor) (*cpool.Const, error) {
	kw, err := cur.AssertType(token.Word)
	if err != nil {
		return nil, err
	}
	switch kw.Text() {
	case "Utf8":
		s, err := cur.AssertType(token.StringLit)
		if err != nil {
			return nil, err
		}
		b, err := utf8Bytes(s)
		if err != nil {
			return nil, err
		}
		return &cpool.Const{Tag: classfile.TagUtf8, Utf8: b}, nil
	case "Int":
		t, err := cur.IntLiteral()
		if err != nil {
			return nil, err
		}
		v, err := token.ParseInt[int32](t.Text(), -1<<31, 1<<31-1)
		if err != nil {
			return nil, token.NewError(err.Error(), t.Span)
		}
		return &cpool.Const{Tag: classfile.TagInteger, Bits32: uint32(v)}, nil
	case "Float":
		t, err := cur.AssertType(token.FloatLit)
		if err != nil {
			return nil, err
		}
		v, err := token.ParseFloat32(strings.TrimSuffix(t.Text(), "f"))
		if err != nil {
			return nil, token.NewError(err.Error(), t.Span)
		}
		return &cpool.Const{Tag: classfile.TagFloat, Bits32: v}, nil
	case "Long":
		t, err := cur.AssertType(token.LongLit)
		if err != nil {
			return nil, err
		}
		v, err := token.ParseInt[int64](strings.TrimSuffix(t.Text(), "L"), -1<<63, 1<<63-1)
		if err != nil {
			return nil, token.NewError(err.Error(), t.Span)
		}
		return &cpool.Const{Tag: classfile.TagLong, Bits64: uint64(v)}, nil
	case "Double":
		t, err := cur.AssertType(token.DoubleLit)
		if err != nil {
			return nil, err
		}
		v, err := token.ParseFloat64(t.Text())
		if err != nil {
			return nil, token.NewError(err.Error(), t.Span)
		}
		return &cpool.Const{Tag: classfile.TagDouble, Bits64: v}, nil
	case "Class":
		name, err := parseUtf8Ref(cur)
		if err != nil {
			return nil, err
		}
		return &cpool.Const{Tag: classfile.TagClass, Name: name}, nil
	case "String":
		s, err := parseUtf8Ref(cur)
		if err != nil {
			return nil, err
		}
		return &cpool.Const{Tag: classfile.TagString, Name: s}, nil
	case "MethodType":
		d, err := parseUtf8Ref(cur)
		if err != nil {
			return nil, err
		}
		return &cpool.Const{Tag: classfile.TagMethodType, Name: d}, nil
	case "Module":
		n, err := parseUtf8Ref(cur)
		if err != nil {
			return nil, err
		}
		return &cpool.Const{Tag: classfile.TagModule, Name: n}, nil
	case "Package":
		n, err := parseUtf8Ref(cur)
		if err != nil {
			return nil, err
		}
		return &cpool.Const{Tag: classfile.TagPackage, Name: n}, nil
	case "Field", "Method", "InterfaceMethod":
		cls, err := ParseClassRef(cur)
		if err != nil {
			return nil, err
		}
		nt, err := parseNameTypeRefOrShorthand(cur)
		if err != nil {
			return nil, err
		}
		tag := classfile.TagFieldref
		if kw.Text() == "Method" {
			tag = classfile.TagMethodref
		} else if kw.Text() == "InterfaceMethod" {
			tag = classfile.TagInterfaceMethodref
		}
		return &cpool.Const{Tag: tag, Class: cls, NameType: nt}, nil
	case "NameAndType":
		name, desc, err := parseNameAndTypeParts(cur)
		if err != nil {
			return nil, err
		}
		return &cpool.Const{Tag: classfile.TagNameAndType, NTName: name, NTDesc: desc}, nil
	case "MethodHandle":
		kindTok, err := cur.AssertType(token.Word)
		if err != nil {
			return nil, err
		}
		kind, ok := classfile.ParseMHTag(kindTok.Text())
		if !ok {
			return nil, token.NewError("unknown method handle kind "+quote(kindTok.Text()), kindTok.Span)
		}
		ref, err := ParseRef(cur)
		if err != nil {
			return nil, err
		}
		return &cpool.Const{Tag: classfile.TagMethodHandle, MHKind: kind, MHRef: ref}, nil
	case "Dynamic", "InvokeDynamic":
		nt, err := parseNameTypeRefOrShorthand(cur)
		if err != nil {
			return nil, err
		}
		bs, err := ParseBsRef(cur)
		if err != nil {
			return nil, err
		}
		tag := classfile.TagDynamic
		if kw.Text() == "InvokeDynamic" {
			tag = classfile.TagInvokeDynamic
		}
		return &cpool.Const{Tag: tag, NameType: nt, Bootstrap: bs}, nil
	default:
		return nil, token.NewError("unknown constant kind "+quote(kw.Text()), kw.Span)
	}
}

// parseNameTypeRefOrShorthand parses either a single NameAndType ref
// ("[nt]" or an inline "NameAndType ..." literal) or the two-token
// shorthand "<name> <descriptor>", building the NameAndType const inline
// in the latter case.
func parseNameTypeRefOrShorthand(cur *token.Cursor) (cpool.Ref, error) {
	if cur.HasType(token.Ref) || (cur.HasType(token.Word) && peekWordIs(cur, "NameAndType")) {
		return ParseRef(cur)
	}
	name, desc, err := parseNameAndTypeParts(cur)
	if err != nil {
		return cpool.Ref{}, err
	}
	return cpool.InlineRef(&cpool.Const{Tag: classfile.TagNameAndType, NTName: name, NTDesc: desc}), nil
}

func peekWordIs(cur *token.Cursor, s string) bool {
	t, err := cur.Peek()
	return err == nil && t.Type == token.Word && t.Text() == s
}

// parseNameAndTypeParts parses a bare "<name> <descriptor>" pair, each of
// which may itself be a bracketed ref, an inline Utf8 literal, or a bare
// word token (an identifier/descriptor spelled directly, implicitly
// wrapped in a Utf8 constant).
func parseNameAndTypeParts(cur *token.Cursor) (cpool.Ref, cpool.Ref, error) {
	name, err := parseUtf8Ref(cur)
	if err != nil {
		return cpool.Ref{}, cpool.Ref{}, err
	}
	desc, err := parseUtf8Ref(cur)
	if err != nil {
		return cpool.Ref{}, cpool.Ref{}, err
	}
	return name, desc, nil
}

// parseUtf8Ref parses a reference to a Utf8 constant, accepting a
// bracketed ref, an inline "Utf8 ..." literal, or a bare word/string
// token implicitly wrapped as a Utf8 constant.
func parseUtf8Ref(cur *token.Cursor) (cpool.Ref, error) {
	if cur.HasType(token.Ref) {
		return parseBracketRef(cur)
	}
	if cur.HasType(token.StringLit) {
		s, _ := cur.AssertType(token.StringLit)
		b, err := utf8Bytes(s)
		if err != nil {
			return cpool.Ref{}, err
		}
		return cpool.InlineRef(&cpool.Const{Tag: classfile.TagUtf8, Utf8: b}), nil
	}
	t, err := cur.Peek()
	if err != nil {
		return cpool.Ref{}, err
	}
	if t.Type == token.Word && t.Text() == "Utf8" {
		return ParseInlineConstAsRef(cur)
	}
	if t.Type == token.Word {
		cur.Next()
		return cpool.InlineRef(&cpool.Const{Tag: classfile.TagUtf8, Utf8: []byte(t.Text())}), nil
	}
	return cpool.Ref{}, cur.Fail()
}

// ParseInlineConstAsRef parses an inline constant literal and wraps it as
// a Ref.
func ParseInlineConstAsRef(cur *token.Cursor) (cpool.Ref, error) {
	c, err := ParseInlineConst(cur)
	if err != nil {
		return cpool.Ref{}, err
	}
	return cpool.InlineRef(c), nil
}

func quote(s string) string { return "'" + s + "'" }
