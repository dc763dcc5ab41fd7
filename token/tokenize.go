package token

import "regexp"

// pattern describes one lexical alternative: a regular expression anchored
// at the start of the remaining input, and the token type(s) it can
// produce. Patterns are tried in order and are constructed, as in the
// reference tokenizer, to never ambiguously match the same prefix; the
// first one to match at the current position wins.
type pattern struct {
	full    *regexp.Regexp // requires a trailing end-of-token boundary
	trimmed *regexp.Regexp // same pattern without the trailing boundary, used for error recovery
	classify func(text string) Type
}

const boundary = `($|[ \t\r\n])`

func compilePair(body string) (full, trimmed *regexp.Regexp) {
	full = regexp.MustCompile("^" + body + boundary)
	trimmed = regexp.MustCompile("^" + body)
	return
}

func constType(t Type) func(string) Type {
	return func(string) Type { return t }
}

var patterns []pattern

func init() {
	defs := []struct {
		body     string
		classify func(string) Type
	}{
		{`:`, constType(Colon)},
		{`=`, constType(Equals)},
		{`\.[a-z]+`, constType(Directive)},
		{`(?:[a-zA-Z_$(<]|\[[A-Z\[])[0-9A-Za-z_$;/\[\(\)<>*+-]*`, constType(Word)},
		{`\[[a-z0-9_]+\]`, constType(Ref)},
		{`\[bs:[a-z0-9_]+\]`, constType(BsRef)},
		{`L[0-9A-Za-z_$]+:`, constType(LabelDef)},
		{`b?"[^"\n\\]*(?:\\.[^"\n\\]*)*"`, constType(StringLit)},
		{`b?'[^'\n\\]*(?:\\.[^'\n\\]*)*'`, constType(StringLit)},
		{`[+-]?(?:0x[0-9a-fA-F]+|[1-9][0-9]*|0)L?`, func(s string) Type {
			if len(s) > 0 && s[len(s)-1] == 'L' {
				return LongLit
			}
			return IntLit
		}},
		{`[+-]Infinityf?`, floatOrDouble},
		{`[+-]NaN(?:<0x[0-9a-fA-F]+>)?f?`, floatOrDouble},
		{`[+-]?[0-9]+\.[0-9]+(?:e[+-]?[0-9]+)?f?`, floatOrDouble},
		{`[+-]?[0-9]+(?:e[+-]?[0-9]+)f?`, floatOrDouble},
		{`[+-]?0x[0-9a-fA-F]+(?:\.[0-9a-fA-F]+)?(?:p[+-]?[0-9]+)?f?`, floatOrDouble},
	}
	patterns = make([]pattern, len(defs))
	for i, d := range defs {
		full, trimmed := compilePair(d.body)
		patterns[i] = pattern{full: full, trimmed: trimmed, classify: d.classify}
	}
}

func floatOrDouble(s string) Type {
	if len(s) > 0 && s[len(s)-1] == 'f' {
		return FloatLit
	}
	return DoubleLit
}

var wsPattern = regexp.MustCompile(`^(?:;[^\n]*)?[ \t\r\n]+`)

// Tokenize lexes the full text of src and returns the token stream, or an
// error describing the first invalid token encountered.
//
// Whitespace and ';'-prefixed line comments are discarded except that any
// run of whitespace containing a newline emits a single Newlines token,
// so that blank lines collapse rather than each producing their own
// token, and a final Newlines token is synthesized if the file does not
// already end with one.
func Tokenize(src *Source) ([]Token, error) {
	text := trimRightSpace(src.Text)
	var toks []Token
	pos := 0
	hasNewline := true

	for pos < len(text) {
		s := text[pos:]

		if m := wsPattern.FindStringIndex(s); m != nil {
			chunk := s[:m[1]]
			if !hasNewline && containsNewline(chunk) {
				toks = append(toks, Token{Newlines, src.Span(pos, pos+m[1])})
				hasNewline = true
			}
			pos += m[1]
			continue
		}

		matchedAny := false
		for _, p := range patterns {
			if loc := p.full.FindStringIndex(s); loc != nil {
				tokEnd := matchedTokenEnd(s, loc[1])
				tokText := s[:tokEnd]
				ty := p.classify(tokText)
				toks = append(toks, Token{ty, src.Span(pos, pos+tokEnd)})
				if tokEnd < loc[1] {
					hasNewline = s[tokEnd] == '\n'
				} else {
					hasNewline = false
				}
				if hasNewline {
					toks = append(toks, Token{Newlines, src.Span(pos+tokEnd, pos+tokEnd+1)})
				}
				pos += loc[1]
				matchedAny = true
				break
			}
		}
		if matchedAny {
			continue
		}

		return nil, invalidTokenError(src, pos, s)
	}

	if !hasNewline {
		toks = append(toks, Token{Newlines, src.Span(len(text), len(text))})
	}
	return toks, nil
}

// matchedTokenEnd finds where the token text ends within a full match that
// includes the trailing boundary character, i.e. strips the one
// whitespace/EOF character the boundary group consumed.
func matchedTokenEnd(s string, fullEnd int) int {
	if fullEnd > 0 && fullEnd <= len(s) {
		last := s[fullEnd-1]
		if last == ' ' || last == '\t' || last == '\r' || last == '\n' {
			return fullEnd - 1
		}
	}
	return fullEnd
}

func containsNewline(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			return true
		}
	}
	return false
}

func trimRightSpace(s string) string {
	end := len(s)
	for end > 0 {
		c := s[end-1]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			end--
			continue
		}
		break
	}
	return s[:end]
}

// invalidTokenError builds the "invalid token" diagnostic, first trying to
// find the longest prefix of s that matches any pattern's body without
// requiring the trailing boundary (so that e.g. "abc,def" without a space
// gets a helpful "try adding a space here" hint at the point the token
// should have ended), falling back to an unclosed-string-literal message
// or a generic invalid-token message over the first whitespace-delimited
// chunk.
func invalidTokenError(src *Source, pos int, s string) error {
	bestEnd := -1
	for _, p := range patterns {
		if loc := p.trimmed.FindStringIndex(s); loc != nil && loc[1] > bestEnd {
			bestEnd = loc[1]
		}
	}
	if bestEnd > 0 {
		tok := src.Span(pos, pos+bestEnd)
		hint := src.Span(pos+bestEnd, pos+bestEnd)
		return NewError2("invalid token", tok, "try adding a space here", hint)
	}
	if s[0] == '"' || s[0] == '\'' {
		return NewError("unclosed string literal", src.Span(pos, pos+1))
	}
	end := 0
	for end < len(s) && s[end] != ' ' && s[end] != '\t' && s[end] != '\r' && s[end] != '\n' {
		end++
	}
	if end == 0 {
		end = 1
	}
	return NewError("invalid token", src.Span(pos, pos+end))
}
