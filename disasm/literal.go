package disasm

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/db47h/jasm/internal/mutf8"
)

// formatUtf8Literal renders the raw Modified UTF-8 bytes of a constant
// pool Utf8 entry back into a quoted textual literal. A payload that does
// not decode as valid Modified UTF-8 (which the class file format allows
// a verifier to reject but this tool still has to round-trip) falls back
// to a raw byte-string literal instead of losing data.
func formatUtf8Literal(b []byte) string {
	s, err := mutf8.Decode(b)
	if err != nil {
		return escapeBinary(b)
	}
	return mutf8.Escape(s)
}

// escapeBinary renders b as a "b"-prefixed raw byte-string literal, the
// textual counterpart of mutf8.Unescape's isBinary mode.
func escapeBinary(b []byte) string {
	var sb strings.Builder
	sb.WriteString(`b"`)
	for _, c := range b {
		switch c {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if c < 0x20 || c >= 0x7F {
				fmt.Fprintf(&sb, `\x%02x`, c)
			} else {
				sb.WriteByte(c)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

// formatInt renders an Integer constant's bit pattern as a signed decimal
// literal.
func formatInt(bits uint32) string {
	return strconv.FormatInt(int64(int32(bits)), 10)
}

// formatLong renders a Long constant's bit pattern with the 'L' suffix
// the tokenizer requires to tell it apart from an Integer literal.
func formatLong(bits uint64) string {
	return strconv.FormatInt(int64(bits), 10) + "L"
}

// formatFloat32 renders a Float constant's bit pattern back into a
// literal that token.ParseFloat32 will parse back to the exact same
// bits, including the NaN and Infinity quirks. In roundtrip mode a NaN
// carries its exact bit pattern so distinct NaN payloads survive the
// trip; outside roundtrip mode all NaNs collapse to the same "+NaNf".
func formatFloat32(bits uint32, roundtrip bool) string {
	f := math.Float32frombits(bits)
	switch {
	case f != f: // NaN
		if roundtrip {
			return fmt.Sprintf("+NaN<0x%08X>f", bits)
		}
		return "+NaNf"
	case math.IsInf(float64(f), 1):
		return "+Infinityf"
	case math.IsInf(float64(f), -1):
		return "-Infinityf"
	}
	return formatExp(float64(f), 32) + "f"
}

// formatFloat64 is the double-precision counterpart of formatFloat32.
func formatFloat64(bits uint64, roundtrip bool) string {
	f := math.Float64frombits(bits)
	switch {
	case f != f: // NaN
		if roundtrip {
			return fmt.Sprintf("+NaN<0x%016X>", bits)
		}
		return "+NaN"
	case math.IsInf(f, 1):
		return "+Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return formatExp(f, 64)
}

// formatExp renders a finite float in the same scientific notation as
// Rust's "{:e}" formatter (e.g. "1e0", "1.5e-3"), the form the worked
// examples use for literal Float/Double constants.
func formatExp(f float64, bitSize int) string {
	s := strconv.FormatFloat(f, 'e', -1, bitSize)
	// strconv renders the exponent as "e+03"/"e-03"; the grammar's
	// exponent has no leading zero and drops the '+' sign.
	mantissa, exp, ok := strings.Cut(s, "e")
	if !ok {
		return s
	}
	sign := ""
	if exp[0] == '-' {
		sign = "-"
	}
	exp = strings.TrimLeft(exp[1:], "0")
	if exp == "" {
		exp = "0"
	}
	return mantissa + "e" + sign + exp
}
