package classfile

// Flag is one named access/property bit. The same name always maps to the
// same bit value, but the same bit value is reused for different names in
// different contexts (e.g. 0x0020 is ACC_SUPER on a class and
// ACC_SYNCHRONIZED on a method) — callers select the applicable subset for
// the directive they are parsing or printing rather than using a single
// global name<->value table.
type Flag struct {
	Name  string
	Value uint16
}

// Access flag bit values, shared verbatim across class/field/method/
// parameter/module contexts; the textual syntax uses the same flag name
// set everywhere and it is up to each directive's parser to decide which
// subset is meaningful in that position.
const (
	AccPublic       uint16 = 0x0001
	AccPrivate      uint16 = 0x0002
	AccProtected    uint16 = 0x0004
	AccStatic       uint16 = 0x0008
	AccFinal        uint16 = 0x0010
	AccSuper        uint16 = 0x0020 // = AccSynchronized = AccTransitive
	AccSynchronized uint16 = 0x0020
	AccTransitive   uint16 = 0x0020
	AccOpen         uint16 = 0x0020
	AccVolatile     uint16 = 0x0040 // = AccBridge = AccStaticPhase
	AccBridge       uint16 = 0x0040
	AccStaticPhase  uint16 = 0x0040
	AccTransient    uint16 = 0x0080 // = AccVarargs
	AccVarargs      uint16 = 0x0080
	AccNative       uint16 = 0x0100
	AccInterface    uint16 = 0x0200
	AccAbstract     uint16 = 0x0400
	AccStrict       uint16 = 0x0800 // = AccStrictfp
	AccStrictfp     uint16 = 0x0800
	AccSynthetic    uint16 = 0x1000
	AccAnnotation   uint16 = 0x2000
	AccEnum         uint16 = 0x4000
	AccMandated     uint16 = 0x8000 // = AccModule
	AccModule       uint16 = 0x8000
)

// FlagPairs lists every textual flag name accepted by the assembler,
// sorted for binary search, exactly mirroring the reference flags table's
// content (the deliberately-duplicated bit values are the same ones the
// JVM specification itself reuses across class/field/method/parameter
// contexts).
var FlagPairs = []Flag{
	{"abstract", AccAbstract},
	{"annotation", AccAnnotation},
	{"bridge", AccBridge},
	{"enum", AccEnum},
	{"final", AccFinal},
	{"interface", AccInterface},
	{"mandated", AccMandated},
	{"module", AccModule},
	{"native", AccNative},
	{"open", AccOpen},
	{"private", AccPrivate},
	{"protected", AccProtected},
	{"public", AccPublic},
	{"static", AccStatic},
	{"static_phase", AccStaticPhase},
	{"strict", AccStrict},
	{"strictfp", AccStrictfp},
	{"super", AccSuper},
	{"synchronized", AccSynchronized},
	{"synthetic", AccSynthetic},
	{"transient", AccTransient},
	{"transitive", AccTransitive},
	{"varargs", AccVarargs},
	{"volatile", AccVolatile},
}

// LookupFlag finds a flag by name via binary search over FlagPairs, which
// must remain sorted.
func LookupFlag(name string) (Flag, bool) {
	lo, hi := 0, len(FlagPairs)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch {
		case FlagPairs[mid].Name == name:
			return FlagPairs[mid], true
		case FlagPairs[mid].Name < name:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return Flag{}, false
}

// FlagSet accumulates flag bits parsed from a sequence of "public",
// "final", etc. flag words into a single access_flags value.
type FlagSet struct {
	Bits uint16
}

// Push ORs in the bit for name, reporting whether name was recognized.
func (f *FlagSet) Push(name string) bool {
	fl, ok := LookupFlag(name)
	if !ok {
		return false
	}
	f.Bits |= fl.Value
	return true
}

// Flush returns the accumulated bits.
func (f *FlagSet) Flush() uint16 { return f.Bits }

// Names returns the flag names present in bits, restricted to the
// candidate list supplied by the caller (so that e.g. printing a method's
// flags only ever considers method-applicable names even though 0x0020
// is also "super" on a class).
func Names(bits uint16, candidates []string) []string {
	var names []string
	for _, name := range candidates {
		fl, ok := LookupFlag(name)
		if ok && bits&fl.Value != 0 {
			names = append(names, name)
		}
	}
	return names
}

// ClassFlagNames is the candidate flag name list meaningful on a class's
// access_flags.
var ClassFlagNames = []string{"public", "final", "super", "interface", "abstract", "synthetic", "annotation", "enum", "module"}

// FieldFlagNames is the candidate flag name list meaningful on a field's
// access_flags.
var FieldFlagNames = []string{"public", "private", "protected", "static", "final", "volatile", "transient", "synthetic", "enum"}

// MethodFlagNames is the candidate flag name list meaningful on a
// method's access_flags.
var MethodFlagNames = []string{"public", "private", "protected", "static", "final", "synchronized", "bridge", "varargs", "native", "abstract", "strict", "synthetic"}

// InnerClassFlagNames is the candidate flag name list meaningful on an
// InnerClasses attribute entry.
var InnerClassFlagNames = []string{"public", "private", "protected", "static", "final", "interface", "abstract", "synthetic", "annotation", "enum"}

// MethodParameterFlagNames is the candidate flag name list meaningful on
// a MethodParameters attribute entry.
var MethodParameterFlagNames = []string{"final", "synthetic", "mandated"}

// ModuleFlagNames is the candidate flag name list meaningful on the
// Module attribute itself; requires entries use ModuleRequiresFlagNames.
var ModuleFlagNames = []string{"open", "mandated", "synthetic"}

// ModuleRequiresFlagNames is the candidate flag name list meaningful on a
// Module attribute "requires" entry.
var ModuleRequiresFlagNames = []string{"transitive", "static_phase", "mandated", "synthetic"}
