// Package disasm renders a parsed class file back into the textual
// assembly form asm parses, the inverse half of this module's
// class-file/text round trip.
//
// Grounded on
// _examples/original_source/src/lib/disassemble/disassembler.rs: the same
// enter_block/exit_block indentation model, the same field/method/attribute
// printing order, and the same reliance on a RefPrinter to decide whether a
// constant pool reference prints inline, symbolically, or raw.
package disasm

import (
	"io"

	"github.com/db47h/jasm/classfile"
	"github.com/pkg/errors"
)

// Options controls the disassembler's output.
type Options struct {
	// Roundtrip forces every constant pool reference to print as a raw
	// index, with an explicit ".const [N] = ..." definition for every
	// pool slot, so reassembling the output reproduces the original
	// constant pool order and contents exactly rather than merely an
	// equivalent one.
	Roundtrip bool
	// NoShortCodeAttr forces every Code attribute to be read in the
	// modern (u2 max_stack, u2 max_locals, u4 code_length) form
	// regardless of the class file's version, overriding the default of
	// deciding this from whether the version predates 45.3.
	NoShortCodeAttr bool
}

type disassembler struct {
	w                  lineWriter
	rp                 *RefPrinter
	pool               *classfile.Pool
	opts               Options
	cfVersion          [2]uint16
	ambiguousShortCode bool
}

// shortCodeWarning is printed as a leading comment block when a class's
// Code attribute bytes parse validly as both the pre-45.3 short form and
// the modern long form, which a JVM up to Java 13 and a JVM from 14 on
// would then interpret as different bytecode for the same method.
var shortCodeWarning = []string{
	"Warning! This classfile has been specially crafted so that it will parse",
	"differently (and thus be interpreted as having different bytecode) in JVMs",
	"for Java versions <= 13 and 14+. By default, this tool shows the code as",
	"interpreted in Java <= 13. If you are sure that this class actually targets",
	"Java 14+, pass the no-short-code-attr option to see the alternate version",
	"of the code instead.",
}

// Disassemble parses the class file in data and renders it as textual
// assembly.
func Disassemble(data []byte, opts Options) (string, error) {
	cf, err := classfile.ReadClassFile(data)
	if err != nil {
		return "", errors.Wrap(err, "reading class file")
	}
	return DisassembleClass(cf, opts)
}

// DisassembleClassFrom reads a full class file from r and renders it.
func DisassembleClassFrom(r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return Disassemble(data, Options{})
}

// DisassembleClass renders an already-parsed class file as textual
// assembly.
func DisassembleClass(cf *classfile.ClassFile, opts Options) (string, error) {
	var bsTable []classfile.BootstrapMethod
	hadBsAttr := false
	if a, ok := classfile.Find(cf.Attributes, cf.Pool, "BootstrapMethods"); ok {
		hadBsAttr = true
		bsTable, _ = classfile.DecodeBootstrapMethods(a.Info)
	}
	var innerClasses []classfile.InnerClassEntry
	if a, ok := classfile.Find(cf.Attributes, cf.Pool, "InnerClasses"); ok {
		innerClasses, _ = classfile.DecodeInnerClasses(a.Info)
	}

	d := &disassembler{
		rp:        NewRefPrinter(opts.Roundtrip, cf.Pool, bsTable, innerClasses),
		pool:      cf.Pool,
		opts:      opts,
		cfVersion: [2]uint16{cf.Major, cf.Minor},
	}

	if d.allowShortCode() {
		for _, m := range cf.Methods {
			if a, ok := classfile.Find(m.Attributes, cf.Pool, "Code"); ok {
				if _, ambiguous, err := classfile.ParseCode(a.Info, classfile.CodeOptions{AllowShort: true}); err == nil && ambiguous {
					d.ambiguousShortCode = true
					break
				}
			}
		}
	}
	if d.ambiguousShortCode {
		for _, line := range shortCodeWarning {
			d.w.line("; %s", line)
		}
	}

	d.w.line(".version %d %d", cf.Major, cf.Minor)
	d.w.line(".class%s %s", classNames(cf.AccessFlags), d.rp.Cls(cf.ThisClass))
	d.w.line(".super %s", d.rp.Cls(cf.SuperClass))
	for _, idx := range cf.Interfaces {
		d.w.line(".implements %s", d.rp.Cls(idx))
	}
	if opts.Roundtrip && hadBsAttr && len(bsTable) == 0 {
		d.w.line(".bootstrapmethods")
	}

	for _, f := range cf.Fields {
		if err := d.field(f); err != nil {
			return "", errors.Wrap(err, "disassembling field")
		}
	}
	for _, m := range cf.Methods {
		if err := d.method(m); err != nil {
			return "", errors.Wrap(err, "disassembling method")
		}
	}

	skip := map[string]bool{"BootstrapMethods": true, "InnerClasses": innerClasses != nil}
	for _, a := range cf.Attributes {
		name, _ := cf.Pool.Utf8At(a.NameIndex)
		if skip[string(name)] && !opts.Roundtrip {
			continue
		}
		if string(name) == "BootstrapMethods" {
			continue
		}
		if string(name) == "InnerClasses" {
			if err := d.innerClasses(innerClasses); err != nil {
				return "", err
			}
			continue
		}
		if err := d.attr(a); err != nil {
			return "", errors.Wrap(err, "disassembling class attribute")
		}
	}

	for _, def := range d.rp.ConstDefs() {
		if def.Bootstrap {
			d.w.line(".bootstrap [bs:%d] = %s", def.Index, def.Body)
		} else if opts.Roundtrip {
			d.w.line(".const [%d] = %s", def.Index, def.Body)
		} else {
			d.w.line(".const [_%d] = %s", def.Index, def.Body)
		}
	}

	return d.w.String(), nil
}

func classNames(bits uint16) string {
	return flagSuffix(bits, classfile.ClassFlagNames)
}

// flagSuffix renders bits' set flag names (in the candidate list's fixed
// order) as a single leading-space-prefixed, space-separated suffix ready
// to append directly after a directive keyword, e.g. " public final".
func flagSuffix(bits uint16, candidates []string) string {
	names := classfile.Names(bits, candidates)
	s := ""
	for _, n := range names {
		s += " " + n
	}
	return s
}

func (d *disassembler) field(f classfile.Member) error {
	var constVal uint16
	hasConstVal := false
	var skipAttr *classfile.Attribute
	if !d.opts.Roundtrip {
		for i := range f.Attributes {
			name, _ := d.pool.Utf8At(f.Attributes[i].NameIndex)
			if string(name) == "ConstantValue" {
				v, err := classfile.DecodeConstantValue(f.Attributes[i].Info)
				if err == nil {
					constVal, hasConstVal = v, true
					skipAttr = &f.Attributes[i]
				}
			}
		}
	}

	d.w.startLine()
	d.w.printf(".field%s %s %s", flagSuffix(f.AccessFlags, classfile.FieldFlagNames), d.rp.Utf(f.NameIndex), d.rp.Utf(f.DescriptorIndex))
	if hasConstVal {
		d.w.printf(" = %s", d.rp.Ldc(constVal))
	}

	used := 0
	if hasConstVal {
		used = 1
	}
	if len(f.Attributes) > used {
		d.w.printf(" .fieldattributes\n")
		d.w.enter()
		for i := range f.Attributes {
			if skipAttr == &f.Attributes[i] {
				continue
			}
			if err := d.attr(f.Attributes[i]); err != nil {
				return err
			}
		}
		d.w.exit()
		d.w.line(".end fieldattributes")
	} else {
		d.w.newline()
	}
	return nil
}

func (d *disassembler) method(m classfile.Member) error {
	d.w.newline()
	d.w.line(".method%s %s : %s", flagSuffix(m.AccessFlags, classfile.MethodFlagNames), d.rp.Utf(m.NameIndex), d.rp.Utf(m.DescriptorIndex))
	d.w.enter()
	for _, a := range m.Attributes {
		if err := d.attr(a); err != nil {
			return err
		}
	}
	d.w.exit()
	d.w.line(".end method")
	return nil
}

func (d *disassembler) innerClasses(lines []classfile.InnerClassEntry) error {
	if len(lines) == 0 && !d.opts.Roundtrip {
		return nil
	}
	d.w.line(".innerclasses")
	d.w.enter()
	for _, ic := range lines {
		d.w.line("%s %s %s%s", d.rp.Cls(ic.InnerClassInfoIndex), d.rp.Cls(ic.OuterClassInfoIndex), d.rp.Utf(ic.InnerNameIndex), flagSuffix(ic.InnerClassAccessFlags, classfile.InnerClassFlagNames))
	}
	d.w.exit()
	d.w.line(".end innerclasses")
	return nil
}
