// Copyright 2016 Denis Bernard <db047h@gmail.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package asm assembles the textual form of a JVM class file back into
// its binary .class layout.
//
// A source file is a ".class" directive block:
//
//	.version 52 0
//	.class public Foo
//	.super java/lang/Object
//	.implements java/lang/Runnable
//
//	.const [greeting] = String "hello"
//
//	.field private static x I
//
//	.method public <init> : ()V
//	    .code stack 1 locals 1
//	        aload_0
//	        invokespecial Method java/lang/Object <init> ()V
//	        return
//	    .end code
//	.end method
//	.end class
//
// Constant pool and bootstrap-method table entries may be introduced
// either through a named "[ref] = <constant>" definition referenced
// elsewhere as "[ref]", an explicit slot "[42] = <constant>", or spelled
// out inline at the point of use ("Method java/lang/Object <init> ()V").
// Definitions at the top level of the class body are collected before the
// rest of the class is parsed, so order of appearance relative to the
// fields and methods that use them does not matter; a definition written
// inside a field, method or attribute block is not accepted.
//
// Method bodies support both the modern Code attribute form
// (".code stack N locals N ... .end code", optionally ".code long ..."
// to force the modern (u2, u2, u4) layout even on a class version before
// 45.3)
// and the legacy pre-45.3 form, where ".limit stack N"/".limit locals N"
// appear directly in the method body and ".end method" itself
// terminates the code. Labels ("Lname:") may be used as jump, exception
// handler, and local variable range targets; forward references are
// resolved once the whole method body has been read.
package asm

import (
	"io"
	"io/ioutil"

	"github.com/db47h/jasm/classfile"
	"github.com/db47h/jasm/token"
)

// Assemble reads assembly source from r and returns the resulting class
// file's binary encoding.
//
// The name parameter is used only in diagnostics to identify the source
// of an error; if r reads from a file, name should be that file's name.
func Assemble(name string, r io.Reader) ([]byte, error) {
	text, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cf, err := ParseClass(token.NewSource(name, string(text)))
	if err != nil {
		return nil, err
	}
	return classfile.WriteClassFile(cf)
}
