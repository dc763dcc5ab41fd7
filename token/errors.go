package token

import (
	"fmt"
	"strings"
)

// Error is one diagnostic, possibly made up of several related parts (a
// primary message plus secondary notes such as "previous definition was
// here"), each anchored to its own span.
type Error struct {
	Parts []ErrorPart
}

// ErrorPart is a single message/location pair within an Error.
type ErrorPart struct {
	Msg  string
	Span Span
}

// NewError builds a single-part Error.
func NewError(msg string, span Span) *Error {
	return &Error{Parts: []ErrorPart{{msg, span}}}
}

// NewError2 builds a two-part Error: a primary message and a secondary
// note pointing at a different span, matching Krakatau's err2/error2
// helper used for diagnostics like duplicate symbol definitions.
func NewError2(msg string, span Span, note string, noteSpan Span) *Error {
	return &Error{Parts: []ErrorPart{{msg, span}, {note, noteSpan}}}
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Parts))
	for i, p := range e.Parts {
		parts[i] = renderPart(p)
	}
	return strings.Join(parts, "\n")
}

// renderPart formats one diagnostic part as "<file>:<line>:<col> <message>"
// followed by the offending source line and a caret/tilde underline, per
// the rendering format required of every surfaced error.
func renderPart(p ErrorPart) string {
	pos := p.Span.Pos()
	name := "<input>"
	if p.Span.Src != nil {
		name = p.Span.Src.Name
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:%d:%d %s", name, pos.Line, pos.Col, p.Msg)
	if p.Span.Src != nil {
		line := p.Span.Src.LineText(p.Span.Start)
		width := p.Span.End - p.Span.Start
		if width < 1 {
			width = 1
		}
		sb.WriteByte('\n')
		sb.WriteString(line)
		sb.WriteByte('\n')
		if pos.Col > 1 {
			sb.WriteString(strings.Repeat(" ", pos.Col-1))
		}
		sb.WriteByte('^')
		if width > 1 {
			sb.WriteString(strings.Repeat("~", width-1))
		}
	}
	return sb.String()
}

// DefaultMaxErrors bounds how many independent errors are accumulated
// before parsing aborts, matching the teacher's asm.ErrAsm threshold.
const DefaultMaxErrors = 10

// ErrorList accumulates multiple independent Errors so that a parse run
// can report every recoverable mistake it found in one pass rather than
// stopping at the first one, mirroring ngaro's asm.ErrAsm.
type ErrorList struct {
	Errs      []*Error
	MaxErrors int
}

// Add appends err to the list.
func (l *ErrorList) Add(err *Error) {
	l.Errs = append(l.Errs, err)
}

// Full reports whether the list has reached its error budget and parsing
// should stop attempting recovery.
func (l *ErrorList) Full() bool {
	max := l.MaxErrors
	if max == 0 {
		max = DefaultMaxErrors
	}
	return len(l.Errs) >= max
}

// Err returns the list as an error if it is non-empty, or nil.
func (l *ErrorList) Err() error {
	if len(l.Errs) == 0 {
		return nil
	}
	return l
}

func (l *ErrorList) Error() string {
	parts := make([]string, len(l.Errs))
	for i, e := range l.Errs {
		parts[i] = e.Error()
	}
	return strings.Join(parts, "\n\n")
}
