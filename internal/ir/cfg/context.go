package cfg

import (
	"fmt"
	"strings"
)

// Context interns types and owns the factory methods for constants.
// Structural types are interned by a hash of their member sequence,
// the same structural-type interning compile/internal/types uses (see
// DESIGN.md), while named structs are identity-based and never
// interned.
type Context struct {
	voidTy    *Type
	ints      map[int]*Type
	floats    map[int]*Type
	ptr       *Type
	arrays    map[arrayKey]*Type
	anonStructs map[string]*Type // keyed by structural hash
	namedStructs []*Type
	funcs     map[string]*Type // keyed by structural hash
}

type arrayKey struct {
	elem  *Type
	count int
}

// NewContext constructs an empty type/constant interner.
func NewContext() *Context {
	return &Context{
		ints:        make(map[int]*Type),
		floats:      make(map[int]*Type),
		arrays:      make(map[arrayKey]*Type),
		anonStructs: make(map[string]*Type),
		funcs:       make(map[string]*Type),
	}
}

func (c *Context) VoidType() *Type {
	if c.voidTy == nil {
		c.voidTy = &Type{kind: VoidTypeKind, size: 0, align: 1}
	}
	return c.voidTy
}

// IntegerType returns the unique interned integer type of the given
// bit width. A non-positive width is treated as a panic since it
// indicates a compiler bug, not user input; no upper bound is checked.
func (c *Context) IntegerType(bits int) *Type {
	if bits <= 0 {
		panic(fmt.Sprintf("cfg: invalid integer width %d", bits))
	}
	if t, ok := c.ints[bits]; ok {
		return t
	}
	size := (bits + 7) / 8
	align := size
	if align > 8 {
		align = 8
	}
	if align < 1 {
		align = 1
	}
	t := &Type{kind: IntegerTypeKind, bits: bits, size: size, align: align}
	c.ints[bits] = t
	return t
}

func (c *Context) FloatType(bits int) *Type {
	if bits != 32 && bits != 64 {
		panic(fmt.Sprintf("cfg: invalid float width %d", bits))
	}
	if t, ok := c.floats[bits]; ok {
		return t
	}
	t := &Type{kind: FloatTypeKind, bits: bits, size: bits / 8, align: bits / 8}
	c.floats[bits] = t
	return t
}

// PointerType returns the unique opaque pointer type; scatha pointers
// are untyped at the IR level, sized as the VM's 8-byte
// virtual pointer.
func (c *Context) PointerType() *Type {
	if c.ptr == nil {
		c.ptr = &Type{kind: PointerTypeKind, size: 8, align: 8}
	}
	return c.ptr
}

func (c *Context) ArrayType(elem *Type, count int) *Type {
	key := arrayKey{elem, count}
	if t, ok := c.arrays[key]; ok {
		return t
	}
	t := &Type{
		kind:  ArrayTypeKind,
		elem:  elem,
		count: count,
		size:  elem.size * count,
		align: elem.align,
	}
	c.arrays[key] = t
	return t
}

func structHash(members []*Type) string {
	var sb strings.Builder
	for _, m := range members {
		fmt.Fprintf(&sb, "%p;", m)
	}
	return sb.String()
}

// AnonymousStruct returns the unique interned anonymous struct type
// with the given member sequence.
func (c *Context) AnonymousStruct(members []*Type) *Type {
	key := structHash(members)
	if t, ok := c.anonStructs[key]; ok {
		return t
	}
	size, align, offsets := layoutStruct(members)
	t := &Type{
		kind:    StructTypeKind,
		members: append([]*Type(nil), members...),
		offsets: offsets,
		size:    size,
		align:   align,
	}
	c.anonStructs[key] = t
	return t
}

// NamedStruct creates a fresh, non-interned named struct type with no
// members yet; SetBody fills in the member sequence once it is known
// (mirrors forward-declared struct types in the source frontend).
func (c *Context) NamedStruct(name string) *Type {
	t := &Type{kind: StructTypeKind, name: name}
	c.namedStructs = append(c.namedStructs, t)
	return t
}

// SetBody finalizes a named struct's member sequence and layout. It
// may only be called once per named struct.
func (t *Type) SetBody(members []*Type) {
	if t.kind != StructTypeKind || t.name == "" {
		panic("cfg: SetBody called on non-named-struct type")
	}
	if t.members != nil {
		panic("cfg: struct body already set")
	}
	size, align, offsets := layoutStruct(members)
	t.members = append([]*Type(nil), members...)
	t.offsets = offsets
	t.size = size
	t.align = align
}

func (c *Context) FunctionType(ret *Type, params []*Type) *Type {
	key := structHash(append([]*Type{ret}, params...))
	if t, ok := c.funcs[key]; ok {
		return t
	}
	t := &Type{kind: FunctionTypeKind, ret: ret, params: append([]*Type(nil), params...)}
	c.funcs[key] = t
	return t
}
