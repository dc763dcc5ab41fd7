package cpool_test

import (
	"testing"

	"github.com/db47h/jasm/classfile"
	"github.com/db47h/jasm/cpool"
	"github.com/db47h/jasm/token"
)

func testSpan() token.Span {
	src := token.NewSource("test", "x")
	return src.Span(0, 1)
}

func TestBuilderRawAndSymDefs(t *testing.T) {
	b := cpool.NewBuilder()
	sp := testSpan()

	greeting := &cpool.Const{Tag: classfile.TagUtf8, Utf8: []byte("hello")}
	if err := b.AddRawDef(5, sp, greeting); err != nil {
		t.Fatalf("AddRawDef: %v", err)
	}

	name := cpool.InlineRef(&cpool.Const{Tag: classfile.TagUtf8, Utf8: []byte("Foo")})
	if err := b.AddSymDef("cls", sp, &cpool.Const{Tag: classfile.TagClass, Name: name}); err != nil {
		t.Fatalf("AddSymDef: %v", err)
	}

	if err := b.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	idx, err := b.ResolveRef(cpool.RawRef(5))
	if err != nil || idx != 5 {
		t.Fatalf("ResolveRef(RawRef(5)) = %d, %v, want 5, nil", idx, err)
	}

	clsIdx, err := b.ResolveRef(cpool.SymRef("cls", sp))
	if err != nil {
		t.Fatalf("ResolveRef(SymRef(cls)): %v", err)
	}
	// resolving the same symbol again must return the same slot, not
	// allocate a second one.
	clsIdx2, err := b.ResolveRef(cpool.SymRef("cls", sp))
	if err != nil || clsIdx2 != clsIdx {
		t.Fatalf("ResolveRef(SymRef(cls)) second call = %d, %v, want %d, nil", clsIdx2, err, clsIdx)
	}

	pool, bsTable, needBsAttr := b.Build()
	if needBsAttr {
		t.Error("expected needBsAttr = false with no bootstrap methods")
	}
	if len(bsTable) != 0 {
		t.Errorf("expected empty bootstrap table, got %d entries", len(bsTable))
	}
	if int(idx) >= len(pool.Entries) || pool.Entries[idx].Tag != classfile.TagUtf8 {
		t.Fatalf("pool.Entries[%d] is not the raw Utf8 def", idx)
	}
}

func TestBuilderDedup(t *testing.T) {
	b := cpool.NewBuilder()
	if err := b.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	mk := func() cpool.Ref {
		return cpool.InlineRef(&cpool.Const{Tag: classfile.TagInteger, Bits32: 42})
	}

	idx1, err := b.ResolveRef(mk())
	if err != nil {
		t.Fatalf("ResolveRef: %v", err)
	}
	idx2, err := b.ResolveRef(mk())
	if err != nil {
		t.Fatalf("ResolveRef: %v", err)
	}
	if idx1 != idx2 {
		t.Errorf("two identical inline Integer constants got different slots: %d != %d", idx1, idx2)
	}
}

func TestBuilderLdcRangeCheck(t *testing.T) {
	sp := testSpan()
	// force allocation past slot 255 by claiming everything below it with
	// raw defs of distinct constants.
	b2 := cpool.NewBuilder()
	for i := 1; i < 256; i++ {
		c := &cpool.Const{Tag: classfile.TagInteger, Bits32: uint32(i)}
		if err := b2.AddRawDef(uint16(i), sp, c); err != nil {
			t.Fatalf("AddRawDef(%d): %v", i, err)
		}
	}
	if err := b2.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	r := cpool.InlineRef(&cpool.Const{Tag: classfile.TagInteger, Bits32: 999999})
	if _, err := b2.ResolveLdcRef(r, sp); err == nil {
		t.Error("expected ResolveLdcRef to fail once allocation exceeds index 255")
	}
}

func TestBuilderDuplicateRawDef(t *testing.T) {
	b := cpool.NewBuilder()
	sp := testSpan()
	c := &cpool.Const{Tag: classfile.TagInteger, Bits32: 1}
	if err := b.AddRawDef(10, sp, c); err != nil {
		t.Fatalf("AddRawDef: %v", err)
	}
	if err := b.AddRawDef(10, sp, c); err == nil {
		t.Error("expected duplicate raw def at the same slot to fail")
	}
}

func TestBuilderUndefinedSymRef(t *testing.T) {
	b := cpool.NewBuilder()
	sp := testSpan()
	if err := b.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if _, err := b.ResolveRef(cpool.SymRef("nope", sp)); err == nil {
		t.Error("expected undefined symbolic reference to fail")
	}
}

func TestBuilderBootstrapMethod(t *testing.T) {
	b := cpool.NewBuilder()
	sp := testSpan()

	handle := cpool.InlineRef(&cpool.Const{
		Tag:    classfile.TagMethodHandle,
		MHKind: 6, // REF_invokeStatic
		MHRef: cpool.InlineRef(&cpool.Const{
			Tag:  classfile.TagMethodref,
			Class: cpool.InlineRef(&cpool.Const{Tag: classfile.TagClass,
				Name: cpool.InlineRef(&cpool.Const{Tag: classfile.TagUtf8, Utf8: []byte("Boot")})}),
			NameType: cpool.InlineRef(&cpool.Const{Tag: classfile.TagNameAndType,
				NTName: cpool.InlineRef(&cpool.Const{Tag: classfile.TagUtf8, Utf8: []byte("bsm")}),
				NTDesc: cpool.InlineRef(&cpool.Const{Tag: classfile.TagUtf8, Utf8: []byte("()V")})}),
		}),
	})

	if err := b.Finish(); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	bsRef := cpool.BsRef{Kind: cpool.RefInline, Inline: &cpool.BsMethod{Handle: handle}}
	idx, err := b.ResolveBsRef(bsRef)
	if err != nil {
		t.Fatalf("ResolveBsRef: %v", err)
	}
	if idx != 0 {
		t.Errorf("expected first bootstrap method at index 0, got %d", idx)
	}

	_, bsTable, needBsAttr := b.Build()
	if !needBsAttr {
		t.Error("expected needBsAttr = true with one bootstrap method")
	}
	if len(bsTable) != 1 {
		t.Fatalf("expected one bootstrap method, got %d", len(bsTable))
	}
}
