package disasm_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/db47h/jasm/asm"
	"github.com/db47h/jasm/disasm"
)

const helloClassSrc = `
.version 52 0
.class public Foo
.super java/lang/Object

.field private static x I

.method public <init> : ()V
    .code stack 1 locals 1
        aload_0
        invokespecial Method java/lang/Object <init> ()V
        return
    .end code
.end method

.method public static main : ([Ljava/lang/String;)V
    .code stack 2 locals 1
        getstatic Field java/lang/System out Ljava/io/PrintStream;
        ldc "hello, world"
        invokevirtual Method java/io/PrintStream println (Ljava/lang/String;)V
        return
    .end code
.end method
.end class
`

// Assembling, disassembling in roundtrip mode, then reassembling must
// reproduce the original bytes exactly.
func TestRoundtrip(t *testing.T) {
	data1, err := asm.Assemble("hello", strings.NewReader(helloClassSrc))
	if err != nil {
		t.Fatalf("first Assemble: %v", err)
	}

	text, err := disasm.Disassemble(data1, disasm.Options{Roundtrip: true})
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}

	data2, err := asm.Assemble("hello-roundtrip", strings.NewReader(text))
	if err != nil {
		t.Fatalf("second Assemble:\n%s\n\nerror: %v", text, err)
	}

	if !bytes.Equal(data1, data2) {
		t.Fatalf("roundtrip mismatch: %d bytes vs %d bytes\ndisassembly:\n%s", len(data1), len(data2), text)
	}
}

// Non-roundtrip disassembly should still produce reassemblable, albeit
// not necessarily byte-identical, output.
func TestDisassembleNonRoundtrip(t *testing.T) {
	data1, err := asm.Assemble("hello", strings.NewReader(helloClassSrc))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	text, err := disasm.Disassemble(data1, disasm.Options{})
	if err != nil {
		t.Fatalf("Disassemble: %v", err)
	}

	if _, err := asm.Assemble("hello-compact", strings.NewReader(text)); err != nil {
		t.Fatalf("reassembling non-roundtrip disassembly failed:\n%s\n\nerror: %v", text, err)
	}
}
