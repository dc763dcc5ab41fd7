package asm_test

import (
	"strings"
	"testing"

	"github.com/db47h/jasm/asm"
)

// check some errors. We're not checking the whole message, rather that it
// names the right problem.
func TestAssembleErrors(t *testing.T) {
	data := []struct {
		name string
		code string
		want string
	}{
		{
			"unknown_instr",
			".version 52 0\n.class public Foo\n.super java/lang/Object\n" +
				".method public <init> : ()V\n.code stack 0 locals 0\nnotarealinstruction\n.end code\n.end method\n.end class\n",
			"unknown instruction 'notarealinstruction'",
		},
		{
			"undef_label",
			".version 52 0\n.class public Foo\n.super java/lang/Object\n" +
				".method public <init> : ()V\n.code stack 0 locals 0\ngoto Lnope\nreturn\n.end code\n.end method\n.end class\n",
			"undefined label 'Lnope'",
		},
		{
			"dup_label",
			".version 52 0\n.class public Foo\n.super java/lang/Object\n" +
				".method public <init> : ()V\n.code stack 0 locals 0\nL0:\nreturn\nL0:\nreturn\n.end code\n.end method\n.end class\n",
			"duplicate label definition",
		},
		{
			"bad_array_type",
			".version 52 0\n.class public Foo\n.super java/lang/Object\n" +
				".method public <init> : ()V\n.code stack 1 locals 0\nnewarray notatype\nreturn\n.end code\n.end method\n.end class\n",
			"unknown array type 'notatype'",
		},
		{
			"missing_end_class",
			".version 52 0\n.class public Foo\n.super java/lang/Object\n",
			"unexpected end of file inside .class body",
		},
		{
			"missing_end_method",
			".version 52 0\n.class public Foo\n.super java/lang/Object\n" +
				".method public <init> : ()V\n.code stack 0 locals 0\nreturn\n.end code\n",
			"unexpected end of file inside .method body",
		},
	}

	for _, d := range data {
		_, err := asm.Assemble(d.name, strings.NewReader(d.code))
		if err == nil {
			t.Errorf("%s: expected an error, got nil", d.name)
			continue
		}
		if !strings.Contains(err.Error(), d.want) {
			t.Errorf("%s: error %q does not contain %q", d.name, err.Error(), d.want)
		}
	}
}

// a well-formed minimal class with no methods or fields must assemble
// without error.
func TestAssembleMinimal(t *testing.T) {
	src := ".version 52 0\n.class public Foo\n.super java/lang/Object\n.end class\n"
	data, err := asm.Assemble("minimal", strings.NewReader(src))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	// every class file starts with the 0xCAFEBABE magic number.
	want := []byte{0xCA, 0xFE, 0xBA, 0xBE}
	if len(data) < 4 {
		t.Fatalf("Assemble: output too short, got %d bytes", len(data))
	}
	if !bytesEqual(data[:4], want) {
		t.Fatalf("Assemble: bad magic number, got %x", data[:4])
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
