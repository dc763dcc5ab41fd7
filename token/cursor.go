package token

// Cursor is the shared token-stream reader used by every textual parser
// (class, field, method, attribute, and code directive parsers). It is
// the Go counterpart of the reference implementation's BaseParser: a
// peekable cursor with small expectation helpers so that call sites read
// as a sequence of assertions about what comes next.
type Cursor struct {
	Src  *Source
	toks []Token
	pos  int
}

// NewCursor wraps a token stream produced by Tokenize.
func NewCursor(src *Source, toks []Token) *Cursor {
	return &Cursor{Src: src, toks: toks}
}

// eofSpan returns a zero-width span at the end of the source, used to
// anchor "unexpected end of file" diagnostics.
func (c *Cursor) eofSpan() Span {
	n := len(c.Src.Text)
	return c.Src.Span(n, n)
}

// HasNext reports whether at least one token remains.
func (c *Cursor) HasNext() bool { return c.pos < len(c.toks) }

// Peek returns the next token without consuming it.
func (c *Cursor) Peek() (Token, error) {
	if c.pos >= len(c.toks) {
		return Token{}, NewError("unexpected end of file", c.eofSpan())
	}
	return c.toks[c.pos], nil
}

// Next consumes and returns the next token.
func (c *Cursor) Next() (Token, error) {
	t, err := c.Peek()
	if err != nil {
		return Token{}, err
	}
	c.pos++
	return t, nil
}

// Fail returns an "unexpected token" error anchored at the next token (or
// end of file if none remains).
func (c *Cursor) Fail() error {
	t, err := c.Peek()
	if err != nil {
		return err
	}
	return NewError("unexpected token", t.Span)
}

// HasType reports whether the next token, if any, has the given type.
func (c *Cursor) HasType(ty Type) bool {
	return c.pos < len(c.toks) && c.toks[c.pos].Type == ty
}

// TryValue consumes and returns true if the next token's text is exactly
// v; otherwise it leaves the cursor unmoved and returns false.
func (c *Cursor) TryValue(v string) bool {
	if c.pos < len(c.toks) && c.toks[c.pos].Text() == v {
		c.pos++
		return true
	}
	return false
}

// Value requires the next token's text to be exactly v, consuming it, or
// produces an "expected v" error.
func (c *Cursor) Value(v string) error {
	t, err := c.Peek()
	if err != nil {
		return err
	}
	if t.Text() != v {
		return NewError("expected "+quote(v), t.Span)
	}
	c.pos++
	return nil
}

// AssertType requires the next token to have the given type, consuming it
// on success.
func (c *Cursor) AssertType(ty Type) (Token, error) {
	t, err := c.Peek()
	if err != nil {
		return Token{}, err
	}
	if t.Type != ty {
		return Token{}, NewError("expected "+ty.String(), t.Span)
	}
	c.pos++
	return t, nil
}

// Mark returns an opaque cursor position that can later be restored with
// Reset, used by parsers that need a lookahead pre-scan over a region of
// the token stream before parsing it for real.
func (c *Cursor) Mark() int { return c.pos }

// Reset rewinds the cursor to a position previously returned by Mark.
func (c *Cursor) Reset(mark int) { c.pos = mark }

// EOL requires the next token to be a Newlines token, consuming it.
func (c *Cursor) EOL() error {
	_, err := c.AssertType(Newlines)
	return err
}

// IntLiteral requires the next token to be an IntLit, consuming it.
func (c *Cursor) IntLiteral() (Token, error) {
	return c.AssertType(IntLit)
}

func quote(s string) string {
	return "'" + s + "'"
}
