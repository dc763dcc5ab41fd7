package classfile

// Method handle reference kinds, as stored in the reference_kind byte of
// a CONSTANT_MethodHandle_info structure. 0 is not a valid kind; it is
// kept as a sentinel so MHTags[0] can mark the invalid entry the same way
// the reference implementation's lookup table does.
const (
	MHInvalid          = 0
	MHGetField         = 1
	MHGetStatic        = 2
	MHPutField         = 3
	MHPutStatic        = 4
	MHInvokeVirtual    = 5
	MHInvokeStatic     = 6
	MHInvokeSpecial    = 7
	MHNewInvokeSpecial = 8
	MHInvokeInterface  = 9
)

// MHTags maps a method handle kind byte to its textual name, index 0
// being the invalid sentinel.
var MHTags = [...]string{
	MHInvalid:          "INVALID",
	MHGetField:         "getField",
	MHGetStatic:        "getStatic",
	MHPutField:         "putField",
	MHPutStatic:        "putStatic",
	MHInvokeVirtual:    "invokeVirtual",
	MHInvokeStatic:     "invokeStatic",
	MHInvokeSpecial:    "invokeSpecial",
	MHNewInvokeSpecial: "newInvokeSpecial",
	MHInvokeInterface:  "invokeInterface",
}

// ParseMHTag looks up a method handle kind by its textual name, returning
// ok=false for "INVALID" or any unrecognized name (kind 0 is never a
// valid tag to parse from source, only a table sentinel).
func ParseMHTag(name string) (byte, bool) {
	for i := 1; i < len(MHTags); i++ {
		if MHTags[i] == name {
			return byte(i), true
		}
	}
	return 0, false
}

// MHTagName returns the textual name for a method handle kind, or
// "INVALID" if out of range.
func MHTagName(kind byte) string {
	if int(kind) < len(MHTags) {
		return MHTags[kind]
	}
	return "INVALID"
}
