package classfile

// Opcode byte values for every JVM instruction. Names match the textual
// mnemonics accepted by the assembler and produced by the disassembler.
const (
	OpNop             = 0
	OpAconstNull      = 1
	OpIconstM1        = 2
	OpIconst0         = 3
	OpIconst1         = 4
	OpIconst2         = 5
	OpIconst3         = 6
	OpIconst4         = 7
	OpIconst5         = 8
	OpLconst0         = 9
	OpLconst1         = 10
	OpFconst0         = 11
	OpFconst1         = 12
	OpFconst2         = 13
	OpDconst0         = 14
	OpDconst1         = 15
	OpBipush          = 16
	OpSipush          = 17
	OpLdc             = 18
	OpLdcW            = 19
	OpLdc2W           = 20
	OpIload           = 21
	OpLload           = 22
	OpFload           = 23
	OpDload           = 24
	OpAload           = 25
	OpIload0          = 26
	OpIload1          = 27
	OpIload2          = 28
	OpIload3          = 29
	OpLload0          = 30
	OpLload1          = 31
	OpLload2          = 32
	OpLload3          = 33
	OpFload0          = 34
	OpFload1          = 35
	OpFload2          = 36
	OpFload3          = 37
	OpDload0          = 38
	OpDload1          = 39
	OpDload2          = 40
	OpDload3          = 41
	OpAload0          = 42
	OpAload1          = 43
	OpAload2          = 44
	OpAload3          = 45
	OpIaload          = 46
	OpLaload          = 47
	OpFaload          = 48
	OpDaload          = 49
	OpAaload          = 50
	OpBaload          = 51
	OpCaload          = 52
	OpSaload          = 53
	OpIstore          = 54
	OpLstore          = 55
	OpFstore          = 56
	OpDstore          = 57
	OpAstore          = 58
	OpIstore0         = 59
	OpIstore1         = 60
	OpIstore2         = 61
	OpIstore3         = 62
	OpLstore0         = 63
	OpLstore1         = 64
	OpLstore2         = 65
	OpLstore3         = 66
	OpFstore0         = 67
	OpFstore1         = 68
	OpFstore2         = 69
	OpFstore3         = 70
	OpDstore0         = 71
	OpDstore1         = 72
	OpDstore2         = 73
	OpDstore3         = 74
	OpAstore0         = 75
	OpAstore1         = 76
	OpAstore2         = 77
	OpAstore3         = 78
	OpIastore         = 79
	OpLastore         = 80
	OpFastore         = 81
	OpDastore         = 82
	OpAastore         = 83
	OpBastore         = 84
	OpCastore         = 85
	OpSastore         = 86
	OpPop             = 87
	OpPop2            = 88
	OpDup             = 89
	OpDupX1           = 90
	OpDupX2           = 91
	OpDup2            = 92
	OpDup2X1          = 93
	OpDup2X2          = 94
	OpSwap            = 95
	OpIadd            = 96
	OpLadd            = 97
	OpFadd            = 98
	OpDadd            = 99
	OpIsub            = 100
	OpLsub            = 101
	OpFsub            = 102
	OpDsub            = 103
	OpImul            = 104
	OpLmul            = 105
	OpFmul            = 106
	OpDmul            = 107
	OpIdiv            = 108
	OpLdiv            = 109
	OpFdiv            = 110
	OpDdiv            = 111
	OpIrem            = 112
	OpLrem            = 113
	OpFrem            = 114
	OpDrem            = 115
	OpIneg            = 116
	OpLneg            = 117
	OpFneg            = 118
	OpDneg            = 119
	OpIshl            = 120
	OpLshl            = 121
	OpIshr            = 122
	OpLshr            = 123
	OpIushr           = 124
	OpLushr           = 125
	OpIand            = 126
	OpLand            = 127
	OpIor             = 128
	OpLor             = 129
	OpIxor            = 130
	OpLxor            = 131
	OpIinc            = 132
	OpI2l             = 133
	OpI2f             = 134
	OpI2d             = 135
	OpL2i             = 136
	OpL2f             = 137
	OpL2d             = 138
	OpF2i             = 139
	OpF2l             = 140
	OpF2d             = 141
	OpD2i             = 142
	OpD2l             = 143
	OpD2f             = 144
	OpI2b             = 145
	OpI2c             = 146
	OpI2s             = 147
	OpLcmp            = 148
	OpFcmpl           = 149
	OpFcmpg           = 150
	OpDcmpl           = 151
	OpDcmpg           = 152
	OpIfeq            = 153
	OpIfne            = 154
	OpIflt            = 155
	OpIfge            = 156
	OpIfgt            = 157
	OpIfle            = 158
	OpIfIcmpeq        = 159
	OpIfIcmpne        = 160
	OpIfIcmplt        = 161
	OpIfIcmpge        = 162
	OpIfIcmpgt        = 163
	OpIfIcmple        = 164
	OpIfAcmpeq        = 165
	OpIfAcmpne        = 166
	OpGoto            = 167
	OpJsr             = 168
	OpRet             = 169
	OpTableswitch     = 170
	OpLookupswitch    = 171
	OpIreturn         = 172
	OpLreturn         = 173
	OpFreturn         = 174
	OpDreturn         = 175
	OpAreturn         = 176
	OpReturn          = 177
	OpGetstatic       = 178
	OpPutstatic       = 179
	OpGetfield        = 180
	OpPutfield        = 181
	OpInvokevirtual   = 182
	OpInvokespecial   = 183
	OpInvokestatic    = 184
	OpInvokeinterface = 185
	OpInvokedynamic   = 186
	OpNew             = 187
	OpNewarray        = 188
	OpAnewarray       = 189
	OpArraylength     = 190
	OpAthrow          = 191
	OpCheckcast       = 192
	OpInstanceof      = 193
	OpMonitorenter    = 194
	OpMonitorexit     = 195
	OpWide            = 196
	OpMultianewarray  = 197
	OpIfnull          = 198
	OpIfnonnull       = 199
	OpGotoW           = 200
	OpJsrW            = 201
)

// OperandKind classifies how an instruction's operand bytes are parsed
// from and printed to the textual form. Instructions whose encoding needs
// more context than a fixed operand shape (tableswitch, lookupswitch,
// wide, iinc, invokeinterface, invokedynamic, multianewarray, ldc) are
// still listed here for name/value lookup but are encoded by dedicated
// logic in the asm package and decoded by dedicated cases in this
// package's instruction decoder rather than generically.
type OperandKind int

const (
	OperandNone OperandKind = iota
	OperandLocal              // single u8 local variable slot index
	OperandI8                 // signed byte immediate (bipush)
	OperandI16                // signed short immediate (sipush)
	OperandU8Raw              // raw unsigned byte (newarray type code)
	OperandShortJump          // 2-byte relative branch target
	OperandLongJump           // 4-byte relative branch target
	OperandClassRef           // constant pool reference to a Class entry
	OperandFieldRef           // constant pool reference to a Fieldref entry
	OperandMethodRef          // constant pool reference to a Method/InterfaceMethod entry (non-interface form)
	OperandInterfaceRef       // invokeinterface: method ref + arg count + trailing zero
	OperandInvokeDynamicRef   // invokedynamic: dynamic ref + trailing zero u16
	OperandLdc                // ldc: single-byte constant pool index
	OperandLdcWide            // ldc_w/ldc2_w: two-byte constant pool index
	OperandIinc               // iinc: local index + signed byte increment
	OperandMultiNewArray      // multianewarray: class ref + u8 dimension count
	OperandTableSwitch
	OperandLookupSwitch
	OperandWide
)

// Instruction describes one opcode's mnemonic and operand shape.
type Instruction struct {
	Name    string
	Opcode  byte
	Operand OperandKind
}

// Opcodes is the full JVM instruction table, indexed by mnemonic.
var Opcodes = []Instruction{
	{"aaload", OpAaload, OperandNone},
	{"aastore", OpAastore, OperandNone},
	{"aconst_null", OpAconstNull, OperandNone},
	{"aload", OpAload, OperandLocal},
	{"aload_0", OpAload0, OperandNone},
	{"aload_1", OpAload1, OperandNone},
	{"aload_2", OpAload2, OperandNone},
	{"aload_3", OpAload3, OperandNone},
	{"anewarray", OpAnewarray, OperandClassRef},
	{"areturn", OpAreturn, OperandNone},
	{"arraylength", OpArraylength, OperandNone},
	{"astore", OpAstore, OperandLocal},
	{"astore_0", OpAstore0, OperandNone},
	{"astore_1", OpAstore1, OperandNone},
	{"astore_2", OpAstore2, OperandNone},
	{"astore_3", OpAstore3, OperandNone},
	{"athrow", OpAthrow, OperandNone},
	{"baload", OpBaload, OperandNone},
	{"bastore", OpBastore, OperandNone},
	{"bipush", OpBipush, OperandI8},
	{"caload", OpCaload, OperandNone},
	{"castore", OpCastore, OperandNone},
	{"checkcast", OpCheckcast, OperandClassRef},
	{"d2f", OpD2f, OperandNone},
	{"d2i", OpD2i, OperandNone},
	{"d2l", OpD2l, OperandNone},
	{"dadd", OpDadd, OperandNone},
	{"daload", OpDaload, OperandNone},
	{"dastore", OpDastore, OperandNone},
	{"dcmpg", OpDcmpg, OperandNone},
	{"dcmpl", OpDcmpl, OperandNone},
	{"dconst_0", OpDconst0, OperandNone},
	{"dconst_1", OpDconst1, OperandNone},
	{"ddiv", OpDdiv, OperandNone},
	{"dload", OpDload, OperandLocal},
	{"dload_0", OpDload0, OperandNone},
	{"dload_1", OpDload1, OperandNone},
	{"dload_2", OpDload2, OperandNone},
	{"dload_3", OpDload3, OperandNone},
	{"dmul", OpDmul, OperandNone},
	{"dneg", OpDneg, OperandNone},
	{"drem", OpDrem, OperandNone},
	{"dreturn", OpDreturn, OperandNone},
	{"dstore", OpDstore, OperandLocal},
	{"dstore_0", OpDstore0, OperandNone},
	{"dstore_1", OpDstore1, OperandNone},
	{"dstore_2", OpDstore2, OperandNone},
	{"dstore_3", OpDstore3, OperandNone},
	{"dsub", OpDsub, OperandNone},
	{"dup", OpDup, OperandNone},
	{"dup_x1", OpDupX1, OperandNone},
	{"dup_x2", OpDupX2, OperandNone},
	{"dup2", OpDup2, OperandNone},
	{"dup2_x1", OpDup2X1, OperandNone},
	{"dup2_x2", OpDup2X2, OperandNone},
	{"f2d", OpF2d, OperandNone},
	{"f2i", OpF2i, OperandNone},
	{"f2l", OpF2l, OperandNone},
	{"fadd", OpFadd, OperandNone},
	{"faload", OpFaload, OperandNone},
	{"fastore", OpFastore, OperandNone},
	{"fcmpg", OpFcmpg, OperandNone},
	{"fcmpl", OpFcmpl, OperandNone},
	{"fconst_0", OpFconst0, OperandNone},
	{"fconst_1", OpFconst1, OperandNone},
	{"fconst_2", OpFconst2, OperandNone},
	{"fdiv", OpFdiv, OperandNone},
	{"fload", OpFload, OperandLocal},
	{"fload_0", OpFload0, OperandNone},
	{"fload_1", OpFload1, OperandNone},
	{"fload_2", OpFload2, OperandNone},
	{"fload_3", OpFload3, OperandNone},
	{"fmul", OpFmul, OperandNone},
	{"fneg", OpFneg, OperandNone},
	{"frem", OpFrem, OperandNone},
	{"freturn", OpFreturn, OperandNone},
	{"fstore", OpFstore, OperandLocal},
	{"fstore_0", OpFstore0, OperandNone},
	{"fstore_1", OpFstore1, OperandNone},
	{"fstore_2", OpFstore2, OperandNone},
	{"fstore_3", OpFstore3, OperandNone},
	{"fsub", OpFsub, OperandNone},
	{"getfield", OpGetfield, OperandFieldRef},
	{"getstatic", OpGetstatic, OperandFieldRef},
	{"goto", OpGoto, OperandShortJump},
	{"goto_w", OpGotoW, OperandLongJump},
	{"i2b", OpI2b, OperandNone},
	{"i2c", OpI2c, OperandNone},
	{"i2d", OpI2d, OperandNone},
	{"i2f", OpI2f, OperandNone},
	{"i2l", OpI2l, OperandNone},
	{"i2s", OpI2s, OperandNone},
	{"iadd", OpIadd, OperandNone},
	{"iaload", OpIaload, OperandNone},
	{"iand", OpIand, OperandNone},
	{"iastore", OpIastore, OperandNone},
	{"iconst_m1", OpIconstM1, OperandNone},
	{"iconst_0", OpIconst0, OperandNone},
	{"iconst_1", OpIconst1, OperandNone},
	{"iconst_2", OpIconst2, OperandNone},
	{"iconst_3", OpIconst3, OperandNone},
	{"iconst_4", OpIconst4, OperandNone},
	{"iconst_5", OpIconst5, OperandNone},
	{"idiv", OpIdiv, OperandNone},
	{"if_acmpeq", OpIfAcmpeq, OperandShortJump},
	{"if_acmpne", OpIfAcmpne, OperandShortJump},
	{"if_icmpeq", OpIfIcmpeq, OperandShortJump},
	{"if_icmpne", OpIfIcmpne, OperandShortJump},
	{"if_icmplt", OpIfIcmplt, OperandShortJump},
	{"if_icmpge", OpIfIcmpge, OperandShortJump},
	{"if_icmpgt", OpIfIcmpgt, OperandShortJump},
	{"if_icmple", OpIfIcmple, OperandShortJump},
	{"ifeq", OpIfeq, OperandShortJump},
	{"ifne", OpIfne, OperandShortJump},
	{"iflt", OpIflt, OperandShortJump},
	{"ifge", OpIfge, OperandShortJump},
	{"ifgt", OpIfgt, OperandShortJump},
	{"ifle", OpIfle, OperandShortJump},
	{"ifnonnull", OpIfnonnull, OperandShortJump},
	{"ifnull", OpIfnull, OperandShortJump},
	{"iinc", OpIinc, OperandIinc},
	{"iload", OpIload, OperandLocal},
	{"iload_0", OpIload0, OperandNone},
	{"iload_1", OpIload1, OperandNone},
	{"iload_2", OpIload2, OperandNone},
	{"iload_3", OpIload3, OperandNone},
	{"imul", OpImul, OperandNone},
	{"ineg", OpIneg, OperandNone},
	{"instanceof", OpInstanceof, OperandClassRef},
	{"invokedynamic", OpInvokedynamic, OperandInvokeDynamicRef},
	{"invokeinterface", OpInvokeinterface, OperandInterfaceRef},
	{"invokespecial", OpInvokespecial, OperandMethodRef},
	{"invokestatic", OpInvokestatic, OperandMethodRef},
	{"invokevirtual", OpInvokevirtual, OperandMethodRef},
	{"ior", OpIor, OperandNone},
	{"irem", OpIrem, OperandNone},
	{"ireturn", OpIreturn, OperandNone},
	{"ishl", OpIshl, OperandNone},
	{"ishr", OpIshr, OperandNone},
	{"istore", OpIstore, OperandLocal},
	{"istore_0", OpIstore0, OperandNone},
	{"istore_1", OpIstore1, OperandNone},
	{"istore_2", OpIstore2, OperandNone},
	{"istore_3", OpIstore3, OperandNone},
	{"isub", OpIsub, OperandNone},
	{"iushr", OpIushr, OperandNone},
	{"ixor", OpIxor, OperandNone},
	{"jsr", OpJsr, OperandShortJump},
	{"jsr_w", OpJsrW, OperandLongJump},
	{"l2d", OpL2d, OperandNone},
	{"l2f", OpL2f, OperandNone},
	{"l2i", OpL2i, OperandNone},
	{"ladd", OpLadd, OperandNone},
	{"laload", OpLaload, OperandNone},
	{"land", OpLand, OperandNone},
	{"lastore", OpLastore, OperandNone},
	{"lcmp", OpLcmp, OperandNone},
	{"lconst_0", OpLconst0, OperandNone},
	{"lconst_1", OpLconst1, OperandNone},
	{"ldc", OpLdc, OperandLdc},
	{"ldc_w", OpLdcW, OperandLdcWide},
	{"ldc2_w", OpLdc2W, OperandLdcWide},
	{"ldiv", OpLdiv, OperandNone},
	{"lload", OpLload, OperandLocal},
	{"lload_0", OpLload0, OperandNone},
	{"lload_1", OpLload1, OperandNone},
	{"lload_2", OpLload2, OperandNone},
	{"lload_3", OpLload3, OperandNone},
	{"lmul", OpLmul, OperandNone},
	{"lneg", OpLneg, OperandNone},
	{"lookupswitch", OpLookupswitch, OperandLookupSwitch},
	{"lor", OpLor, OperandNone},
	{"lrem", OpLrem, OperandNone},
	{"lreturn", OpLreturn, OperandNone},
	{"lshl", OpLshl, OperandNone},
	{"lshr", OpLshr, OperandNone},
	{"lstore", OpLstore, OperandLocal},
	{"lstore_0", OpLstore0, OperandNone},
	{"lstore_1", OpLstore1, OperandNone},
	{"lstore_2", OpLstore2, OperandNone},
	{"lstore_3", OpLstore3, OperandNone},
	{"lsub", OpLsub, OperandNone},
	{"lushr", OpLushr, OperandNone},
	{"lxor", OpLxor, OperandNone},
	{"monitorenter", OpMonitorenter, OperandNone},
	{"monitorexit", OpMonitorexit, OperandNone},
	{"multianewarray", OpMultianewarray, OperandMultiNewArray},
	{"new", OpNew, OperandClassRef},
	{"newarray", OpNewarray, OperandU8Raw},
	{"nop", OpNop, OperandNone},
	{"pop", OpPop, OperandNone},
	{"pop2", OpPop2, OperandNone},
	{"putfield", OpPutfield, OperandFieldRef},
	{"putstatic", OpPutstatic, OperandFieldRef},
	{"ret", OpRet, OperandLocal},
	{"return", OpReturn, OperandNone},
	{"saload", OpSaload, OperandNone},
	{"sastore", OpSastore, OperandNone},
	{"sipush", OpSipush, OperandI16},
	{"swap", OpSwap, OperandNone},
	{"tableswitch", OpTableswitch, OperandTableSwitch},
	{"wide", OpWide, OperandWide},
}

var (
	opcodeByName = make(map[string]Instruction, len(Opcodes))
	opcodeByByte = make(map[byte]Instruction, len(Opcodes))
)

func init() {
	for _, ins := range Opcodes {
		opcodeByName[ins.Name] = ins
		opcodeByByte[ins.Opcode] = ins
	}
}

// LookupMnemonic finds an instruction by its textual mnemonic.
func LookupMnemonic(name string) (Instruction, bool) {
	ins, ok := opcodeByName[name]
	return ins, ok
}

// LookupOpcode finds an instruction by its encoded byte value.
func LookupOpcode(op byte) (Instruction, bool) {
	ins, ok := opcodeByByte[op]
	return ins, ok
}

// NewarrayCode maps the textual primitive type name used by "newarray" to
// its operand byte value (JVM Spec Table 6.5.newarray-A).
var NewarrayCode = map[string]byte{
	"boolean": 4,
	"char":    5,
	"float":   6,
	"double":  7,
	"byte":    8,
	"short":   9,
	"int":     10,
	"long":    11,
}

var newarrayName = func() map[byte]string {
	m := make(map[byte]string, len(NewarrayCode))
	for k, v := range NewarrayCode {
		m[v] = k
	}
	return m
}()

// NewarrayName is the inverse of NewarrayCode.
func NewarrayName(code byte) (string, bool) {
	n, ok := newarrayName[code]
	return n, ok
}
