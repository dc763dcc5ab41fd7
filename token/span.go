// Package token implements the tokenizer and the shared parser cursor used
// by both the textual class assembler and any future textual tooling that
// walks the same token stream, along with the Span/Position types used to
// anchor diagnostics to source locations.
package token

// Position is a 1-based line/column location within a Source's text.
type Position struct {
	Line int
	Col  int
}

// Span is a half-open byte range [Start, End) within a Source's text. A
// zero-width span (Start == End) is valid and denotes an insertion point,
// used for "try inserting a space here"-style hints.
type Span struct {
	Src   *Source
	Start int
	End   int
}

// Text returns the substring of the source text covered by the span.
func (s Span) Text() string {
	if s.Src == nil {
		return ""
	}
	return s.Src.Text[s.Start:s.End]
}

// Pos returns the line/column of the first byte of the span.
func (s Span) Pos() Position {
	if s.Src == nil {
		return Position{Line: 1, Col: 1}
	}
	return s.Src.positionAt(s.Start)
}

// Of returns a new Span over the same source with the given byte range,
// used when the parser needs to construct a span covering more than one
// token (e.g. the full extent of a resolved constant).
func (s Span) Of(start, end int) Span {
	return Span{Src: s.Src, Start: start, End: end}
}

// Source is a named source file tokenized or parsed as a unit.
type Source struct {
	Name string
	Text string

	lineStarts []int // byte offset of the first byte of each line
}

// NewSource builds a Source and precomputes line-start offsets so that
// Position lookups during error rendering don't rescan the whole file.
func NewSource(name, text string) *Source {
	s := &Source{Name: name, Text: text, lineStarts: []int{0}}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			s.lineStarts = append(s.lineStarts, i+1)
		}
	}
	return s
}

// Span returns a Span over [start, end) in this source.
func (s *Source) Span(start, end int) Span {
	return Span{Src: s, Start: start, End: end}
}

func (s *Source) positionAt(off int) Position {
	lo, hi := 0, len(s.lineStarts)-1
	line := 0
	for lo <= hi {
		mid := (lo + hi) / 2
		if s.lineStarts[mid] <= off {
			line = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	col := off - s.lineStarts[line] + 1
	return Position{Line: line + 1, Col: col}
}

// LineText returns the full text of the line containing offset off, without
// its trailing newline, for source-context rendering in error messages.
func (s *Source) LineText(off int) string {
	pos := s.positionAt(off)
	start := s.lineStarts[pos.Line-1]
	end := start
	for end < len(s.Text) && s.Text[end] != '\n' {
		end++
	}
	return s.Text[start:end]
}
