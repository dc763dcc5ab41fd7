package mutf8_test

import (
	"bytes"
	"testing"

	"github.com/db47h/jasm/internal/mutf8"
)

func TestEncodeDecodeRoundtrip(t *testing.T) {
	data := []string{
		"",
		"hello, world",
		"\x00",              // the NUL quirk: encoded as C0 80, not a raw zero byte
		"caf\u00e9",          // a BMP code point above ASCII
		"\U0001F600",         // outside the BMP: encoded as a surrogate pair
		"a\U0001F600b\u00e9", // mixed ASCII, BMP, and astral content
	}
	for _, s := range data {
		enc := mutf8.Encode(s)
		dec, err := mutf8.Decode(enc)
		if err != nil {
			t.Errorf("Decode(Encode(%q)): %v", s, err)
			continue
		}
		if dec != s {
			t.Errorf("Decode(Encode(%q)) = %q", s, dec)
		}
	}
}

func TestEncodeNUL(t *testing.T) {
	got := mutf8.Encode("\x00")
	want := []byte{0xC0, 0x80}
	if !bytes.Equal(got, want) {
		t.Errorf("Encode(\"\\x00\") = % x, want % x", got, want)
	}
}

func TestEncodeAstral(t *testing.T) {
	// U+1F600 GRINNING FACE splits into the surrogate pair D83D DE00, each
	// half independently encoded as a 3-byte Modified UTF-8 sequence.
	got := mutf8.Encode("\U0001F600")
	if len(got) != 6 {
		t.Fatalf("Encode(astral) = % x, want 6 bytes", got)
	}
}

func TestDecodeTruncated(t *testing.T) {
	if _, err := mutf8.Decode([]byte{0xC0}); err == nil {
		t.Error("expected error decoding a truncated 2-byte sequence")
	}
	if _, err := mutf8.Decode([]byte{0xE0, 0x80}); err == nil {
		t.Error("expected error decoding a truncated 3-byte sequence")
	}
}

func TestUnescape(t *testing.T) {
	data := []struct {
		in       string
		isBinary bool
		want     string
	}{
		{`hello`, false, "hello"},
		{`a\nb`, false, "a\nb"},
		{`a\tb\rc`, false, "a\tb\rc"},
		{`quote: \"`, false, `quote: "`},
		{`back: \\`, false, `back: \`},
		{`\u00e9`, false, "\u00e9"},
		{`\U0001F600`, false, "\U0001F600"},
	}
	for _, d := range data {
		got, err := mutf8.Unescape(d.in, d.isBinary)
		if err != nil {
			t.Errorf("Unescape(%q): %v", d.in, err)
			continue
		}
		dec, err := mutf8.Decode(got)
		if err != nil {
			t.Errorf("Decode(Unescape(%q)): %v", d.in, err)
			continue
		}
		if dec != d.want {
			t.Errorf("Unescape(%q) decodes to %q, want %q", d.in, dec, d.want)
		}
	}
}

// \xHH denotes a raw byte value inside a binary literal but a Modified
// UTF-8 code point (via the 2-byte C0-DF encoding, not a literal 0x80-0xFF
// byte) inside an ordinary string literal.
func TestUnescapeHexQuirk(t *testing.T) {
	binary, err := mutf8.Unescape(`\xff`, true)
	if err != nil {
		t.Fatalf("Unescape binary: %v", err)
	}
	if !bytes.Equal(binary, []byte{0xff}) {
		t.Errorf("binary \\xff = % x, want ff", binary)
	}

	text, err := mutf8.Unescape(`\xff`, false)
	if err != nil {
		t.Fatalf("Unescape text: %v", err)
	}
	dec, err := mutf8.Decode(text)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if dec != "\u00ff" {
		t.Errorf("text \\xff decodes to %q, want U+00FF", dec)
	}
}

func TestUnescapeTrailingBackslash(t *testing.T) {
	if _, err := mutf8.Unescape(`abc\`, false); err == nil {
		t.Error("expected error for a trailing backslash")
	}
}

func TestEscape(t *testing.T) {
	data := []struct {
		in   string
		want string
	}{
		{"hello", `"hello"`},
		{"a\"b", `"a\"b"`},
		{"a\\b", `"a\\b"`},
		{"a\nb", `"a\nb"`},
	}
	for _, d := range data {
		if got := mutf8.Escape(d.in); got != d.want {
			t.Errorf("Escape(%q) = %q, want %q", d.in, got, d.want)
		}
	}
}
