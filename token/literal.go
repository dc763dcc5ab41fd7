package token

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// intType enumerates the fixed-width integer types the textual operand
// parsers need to produce (u8/u16/u32 indices and lengths, i8/i16/i32
// signed operands).
type intType interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// ParseInt parses an integer literal's text into T, enforcing min <= v <=
// max and reproducing Krakatau's literal quirks: a leading '+' is
// stripped, "-0" is treated as "0", and 0x-prefixed hex literals may be
// negated (the magnitude is parsed unsigned and then two's-complement
// negated, so e.g. "-0x80000000" parses as the minimum 32-bit value).
func ParseInt[T intType](s string, min, max int64) (T, error) {
	v, err := parseIntGeneric(s)
	if err != nil {
		return 0, err
	}
	if v < min || v > max {
		return 0, errors.Errorf("value must be in range %d <= %d <= %d", min, v, max)
	}
	return T(v), nil
}

func parseIntGeneric(s string) (int64, error) {
	if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	if s == "-0" {
		s = "0"
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var mag uint64
	var err error
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		mag, err = strconv.ParseUint(s[2:], 16, 64)
	} else {
		mag, err = strconv.ParseUint(s, 10, 64)
	}
	if err != nil {
		return 0, errors.Wrapf(err, "invalid integer literal %q", s)
	}
	if neg {
		negated := -mag
		return int64(negated), nil
	}
	return int64(mag), nil
}

// ParseFloat32 parses a float literal (with the trailing 'f' marker
// already stripped by the caller) into its IEEE-754 bit pattern,
// reproducing the NaN<0xHEX> bit-pattern literal form and hex-float
// syntax Krakatau accepts.
func ParseFloat32(s string) (uint32, error) {
	bits, err := parseFloatBits(s, 32)
	if err != nil {
		return 0, err
	}
	return uint32(bits), nil
}

// ParseFloat64 is the double-precision counterpart of ParseFloat32.
func ParseFloat64(s string) (uint64, error) {
	return parseFloatBits(s, 64)
}

func parseFloatBits(s string, bitSize int) (uint64, error) {
	s = strings.TrimPrefix(s, "+")

	// "-NaN" and "NaN" are the same bit pattern in this format; the
	// sign of NaN carries no meaning here.
	body := strings.TrimPrefix(s, "-")

	if strings.HasPrefix(body, "NaN<0x") && strings.HasSuffix(body, ">") {
		hex := body[len("NaN<0x") : len(body)-1]
		v, err := strconv.ParseUint(hex, 16, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "invalid NaN bit pattern %q", s)
		}
		return v, nil
	}
	if body == "NaN" {
		if bitSize == 32 {
			return uint64(math.Float32bits(float32(math.NaN()))), nil
		}
		return math.Float64bits(math.NaN()), nil
	}

	neg := strings.HasPrefix(s, "-")
	magStr := strings.TrimPrefix(s, "-")

	if magStr == "Infinity" {
		if bitSize == 32 {
			v := math.Float32bits(float32(math.Inf(1)))
			if neg {
				v = math.Float32bits(float32(math.Inf(-1)))
			}
			return uint64(v), nil
		}
		v := math.Float64bits(math.Inf(1))
		if neg {
			v = math.Float64bits(math.Inf(-1))
		}
		return v, nil
	}

	f, err := strconv.ParseFloat(s, bitSize)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid float literal %q", s)
	}
	if bitSize == 32 {
		return uint64(math.Float32bits(float32(f))), nil
	}
	return math.Float64bits(f), nil
}
