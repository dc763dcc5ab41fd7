package token

// Type identifies the lexical class of a Token.
type Type int

const (
	Newlines Type = iota
	Colon
	Equals
	Directive
	Word
	Ref
	BsRef
	LabelDef
	StringLit
	IntLit
	LongLit
	FloatLit
	DoubleLit
	EOF
)

var typeNames = [...]string{
	Newlines:  "newline",
	Colon:     "':'",
	Equals:    "'='",
	Directive: "directive",
	Word:      "word",
	Ref:       "constant reference",
	BsRef:     "bootstrap method reference",
	LabelDef:  "label definition",
	StringLit: "string literal",
	IntLit:    "integer literal",
	LongLit:   "long literal",
	FloatLit:  "float literal",
	DoubleLit: "double literal",
	EOF:       "end of file",
}

func (t Type) String() string {
	if int(t) >= 0 && int(t) < len(typeNames) && typeNames[t] != "" {
		return typeNames[t]
	}
	return "unknown token"
}

// Token is one lexical unit together with the span of source text it came
// from.
type Token struct {
	Type Type
	Span Span
}

// Text is shorthand for t.Span.Text().
func (t Token) Text() string { return t.Span.Text() }
