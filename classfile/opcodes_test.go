package classfile_test

import (
	"testing"

	"github.com/db47h/jasm/classfile"
)

// every entry in the opcode table must resolve both ways, and the two
// lookup tables must agree with each other.
func TestOpcodeTableRoundtrip(t *testing.T) {
	for _, ins := range classfile.Opcodes {
		byName, ok := classfile.LookupMnemonic(ins.Name)
		if !ok {
			t.Errorf("mnemonic %q not found by LookupMnemonic", ins.Name)
			continue
		}
		if byName.Opcode != ins.Opcode {
			t.Errorf("LookupMnemonic(%q).Opcode = %d, want %d", ins.Name, byName.Opcode, ins.Opcode)
		}

		byOp, ok := classfile.LookupOpcode(ins.Opcode)
		if !ok {
			t.Errorf("opcode %d (%s) not found by LookupOpcode", ins.Opcode, ins.Name)
			continue
		}
		if byOp.Name != ins.Name {
			t.Errorf("LookupOpcode(%d).Name = %q, want %q", ins.Opcode, byOp.Name, ins.Name)
		}
	}
}

func TestLookupMnemonicUnknown(t *testing.T) {
	if _, ok := classfile.LookupMnemonic("not_a_real_instruction"); ok {
		t.Error("expected LookupMnemonic to fail for a bogus mnemonic")
	}
}

func TestNewarrayCodeRoundtrip(t *testing.T) {
	for name, code := range classfile.NewarrayCode {
		got, ok := classfile.NewarrayName(code)
		if !ok {
			t.Errorf("NewarrayName(%d): not found, want %q", code, name)
			continue
		}
		if got != name {
			t.Errorf("NewarrayName(%d) = %q, want %q", code, got, name)
		}
	}
	if _, ok := classfile.NewarrayName(0); ok {
		t.Error("expected NewarrayName(0) to fail, 0 is not a valid newarray type code")
	}
}

func TestPosString(t *testing.T) {
	data := []struct {
		pos  classfile.Pos
		want string
	}{
		{0, "L0"},
		{1, "L1"},
		{42, "L42"},
		{65535, "L65535"},
	}
	for _, d := range data {
		if got := d.pos.String(); got != d.want {
			t.Errorf("Pos(%d).String() = %q, want %q", d.pos, got, d.want)
		}
	}
}

func TestPosOff(t *testing.T) {
	p, err := classfile.Pos(10).Off(5)
	if err != nil || p != 15 {
		t.Errorf("Pos(10).Off(5) = %v, %v, want 15, nil", p, err)
	}
	if _, err := classfile.Pos(0).Off(-1); err == nil {
		t.Error("expected Off to reject a negative result")
	}
}

func TestPadLen(t *testing.T) {
	data := []struct {
		pos  classfile.Pos
		want int
	}{
		{0, 3},
		{1, 2},
		{2, 1},
		{3, 0},
		{4, 3},
	}
	for _, d := range data {
		if got := classfile.PadLen(d.pos); got != d.want {
			t.Errorf("PadLen(%d) = %d, want %d", d.pos, got, d.want)
		}
	}
}
