// Package cpool implements the symbolic constant-pool model used while
// assembling a class: constants and bootstrap method entries that may be
// written as an explicit slot index, a symbolic name resolved later, or
// written out inline at the point of use; the resolver that turns all of
// those into raw indices; and the slot allocator that decides where each
// constant actually lands in the final constant_pool array.
package cpool

import (
	"github.com/db47h/jasm/classfile"
	"github.com/db47h/jasm/token"
)

// RefKind identifies how a Ref is currently expressed.
type RefKind int

const (
	// RefRaw is an explicit pool slot index, written in source as [N].
	RefRaw RefKind = iota
	// RefSym is a symbolic name, written in source as [name], resolved
	// against a prior "name = <const>" definition.
	RefSym
	// RefInline is a constant written out directly at the point of use
	// instead of through a separate definition, e.g. "Method Foo bar ()V".
	RefInline
)

// Ref is a reference to a constant pool entry in any of the three forms
// the textual syntax allows (bootstrap method table entries use BsRef). It is the Go counterpart of the reference
// implementation's generic Or<RefType<Sym>, Inline> sum type, collapsed
// into one tagged struct — following the tag-plus-payload precedent used
// throughout this module for constant pool entries — rather than
// Go generics, because a Ref's Inline payload is mutually recursive with
// Const (a Const can itself embed Refs), and modeling that recursion
// through a type parameter would force every call site to specialize a
// generic type for each distinct kind of reference (class, name-and-type,
// utf8, bootstrap-method) for no practical benefit over a single shared
// struct.
type Ref struct {
	Kind RefKind

	Raw uint16

	Sym     string
	SymSpan token.Span

	Inline *Const // only set when Kind == RefInline
}

// RawRef builds a Ref that names an explicit pool slot.
func RawRef(idx uint16) Ref { return Ref{Kind: RefRaw, Raw: idx} }

// SymRef builds a Ref that names a symbolic definition.
func SymRef(name string, span token.Span) Ref { return Ref{Kind: RefSym, Sym: name, SymSpan: span} }

// InlineRef builds a Ref that carries its value directly.
func InlineRef(c *Const) Ref { return Ref{Kind: RefInline, Inline: c} }

// Const is a symbolic constant pool entry: same shape as
// classfile.Constant, but every index field is a Ref instead of a raw
// uint16, since at this stage those indices may still be symbolic.
type Const struct {
	Tag classfile.Tag

	Utf8 []byte

	Bits32 uint32
	Bits64 uint64

	// Class, String, MethodType, Module, Package
	Name Ref // Utf8 ref

	// Fieldref, Methodref, InterfaceMethodref
	Class    Ref // Class ref
	NameType Ref // NameAndType ref

	// NameAndType
	NTName Ref // Utf8 ref
	NTDesc Ref // Utf8 ref

	// MethodHandle
	MHKind byte
	MHRef  Ref // Field/Method/InterfaceMethod ref

	// Dynamic, InvokeDynamic
	Bootstrap BsRef
}

// BsMethod is one bootstrap method table entry: a MethodHandle reference
// plus its static argument constants — the "inline" shape a Dynamic or
// InvokeDynamic constant's bootstrap reference can carry directly instead
// of pointing at a separate "[bs:name]" definition.
type BsMethod struct {
	Handle Ref // MethodHandle ref (inline or a [N]/[name] ref resolving to one)
	Args   []Ref
}

// BsRef is a reference to a bootstrap method table entry, mirroring Ref
// but for the bootstrap-method namespace, which is addressed separately
// from the regular constant pool.
type BsRef struct {
	Kind RefKind

	Raw uint16

	Sym     string
	SymSpan token.Span

	Inline *BsMethod
}
