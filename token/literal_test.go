package token_test

import (
	"math"
	"testing"

	"github.com/db47h/jasm/token"
)

func TestParseInt(t *testing.T) {
	data := []struct {
		s        string
		min, max int64
		want     int64
	}{
		{"0", -128, 127, 0},
		{"+5", -128, 127, 5},
		{"-0", -128, 127, 0},
		{"-5", -128, 127, -5},
		{"127", -128, 127, 127},
		{"-128", -128, 127, -128},
		{"0x7f", -128, 127, 0x7f},
		{"-0x80000000", -1 << 31, 1<<31 - 1, -1 << 31},
		{"0xffffffff", 0, 1<<32 - 1, 0xffffffff},
	}
	for _, d := range data {
		v, err := token.ParseInt[int64](d.s, d.min, d.max)
		if err != nil {
			t.Errorf("ParseInt(%q): unexpected error: %v", d.s, err)
			continue
		}
		if int64(v) != d.want {
			t.Errorf("ParseInt(%q) = %d, want %d", d.s, v, d.want)
		}
	}
}

func TestParseIntRange(t *testing.T) {
	if _, err := token.ParseInt[int64]("128", -128, 127); err == nil {
		t.Error("expected range error for 128")
	}
	if _, err := token.ParseInt[int64]("-129", -128, 127); err == nil {
		t.Error("expected range error for -129")
	}
}

func TestParseFloat32(t *testing.T) {
	data := []struct {
		s    string
		want uint32
	}{
		{"0", math.Float32bits(0)},
		{"1.5", math.Float32bits(1.5)},
		{"-1.5", math.Float32bits(-1.5)},
		{"Infinity", math.Float32bits(float32(math.Inf(1)))},
		{"-Infinity", math.Float32bits(float32(math.Inf(-1)))},
		{"NaN", math.Float32bits(float32(math.NaN()))},
		{"NaN<0x7fc00001>", 0x7fc00001},
	}
	for _, d := range data {
		v, err := token.ParseFloat32(d.s)
		if err != nil {
			t.Errorf("ParseFloat32(%q): unexpected error: %v", d.s, err)
			continue
		}
		if v != d.want {
			t.Errorf("ParseFloat32(%q) = 0x%x, want 0x%x", d.s, v, d.want)
		}
	}
}

func TestParseFloat64(t *testing.T) {
	data := []struct {
		s    string
		want uint64
	}{
		{"0", math.Float64bits(0)},
		{"3.25", math.Float64bits(3.25)},
		{"-3.25", math.Float64bits(-3.25)},
		{"Infinity", math.Float64bits(math.Inf(1))},
		{"NaN<0x7ff8000000000001>", 0x7ff8000000000001},
	}
	for _, d := range data {
		v, err := token.ParseFloat64(d.s)
		if err != nil {
			t.Errorf("ParseFloat64(%q): unexpected error: %v", d.s, err)
			continue
		}
		if v != d.want {
			t.Errorf("ParseFloat64(%q) = 0x%x, want 0x%x", d.s, v, d.want)
		}
	}
}
