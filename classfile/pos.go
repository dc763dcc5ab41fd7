package classfile

import "github.com/pkg/errors"

// Pos is a byte offset within a method's bytecode array. It exists as a
// distinct type, rather than a bare int, so that offset arithmetic during
// binary parsing is always checked for overflow against the 32-bit
// length limit the JVM imposes on a Code attribute's bytecode.
type Pos uint32

// Off computes pos + delta, checked against the u32 range of a bytecode
// offset, returning an error if it over- or under-flows.
func (pos Pos) Off(delta int32) (Pos, error) {
	v := int64(pos) + int64(delta)
	if v < 0 || v > 0xFFFFFFFF {
		return 0, errors.Errorf("bytecode offset %d out of range", v)
	}
	return Pos(v), nil
}

func (pos Pos) String() string {
	return "L" + itoa(uint32(pos))
}

func itoa(v uint32) string {
	if v == 0 {
		return "0"
	}
	var buf [10]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// PosSet tracks which bytecode offsets are valid jump/label targets
// within one Code attribute, used to validate branch targets, exception
// handler bounds, and line/local-variable table entries during binary
// parsing.
type PosSet struct {
	seen map[uint32]bool
}

// NewPosSet returns an empty PosSet.
func NewPosSet() *PosSet { return &PosSet{seen: make(map[uint32]bool)} }

// Add records pos as a valid offset.
func (s *PosSet) Add(pos Pos) { s.seen[uint32(pos)] = true }

// Contains reports whether pos was previously added.
func (s *PosSet) Contains(pos Pos) bool { return s.seen[uint32(pos)] }

// Validate returns an error if pos was never recorded, anchoring the
// message to whether the check is happening inside a Code attribute (a
// plain invalid offset) or in a context with no Code attribute in scope
// at all (e.g. a dangling reference with no bytecode to bound it
// against).
func (s *PosSet) Validate(pos Pos) error {
	if s == nil {
		return errors.New("invalid bytecode offset outside of Code attribute")
	}
	if !s.Contains(pos) {
		return errors.Errorf("invalid bytecode offset %d", uint32(pos))
	}
	return nil
}

// SwitchTable is the decoded form of a tableswitch instruction's operand:
// a dense jump table indexed by [low, low+len(Targets)-1].
type SwitchTable struct {
	Default Pos
	Low     int32
	Targets []Pos
}

// SwitchMap is the decoded form of a lookupswitch instruction's operand:
// a sparse sorted (key, target) table.
type SwitchMap struct {
	Default Pos
	Pairs   []SwitchPair
}

// SwitchPair is one (key, target) entry of a lookupswitch table.
type SwitchPair struct {
	Key    int32
	Target Pos
}

// PadLen returns the number of zero padding bytes a switch instruction
// needs at bytecode offset pos so that its first 4-byte-aligned operand
// begins on a 4-byte boundary relative to the start of the method (not
// relative to the start of the Code attribute's surrounding buffer):
// 3 - (pos % 4), i.e. 0..3 bytes, counted from the byte immediately after
// the opcode.
func PadLen(pos Pos) int {
	return int(3 - (uint32(pos) % 4))
}
