// Package cfg implements the typed SSA intermediate representation:
// types, values, users, basic blocks, functions, and modules. It plays
// the role of scatha's IR/CFG headers (see
// original_source/include/scatha/IR/CFG), reshaped as a closed
// discriminated-union hierarchy instead of the original's
// virtual-inheritance tree.
package cfg

import "fmt"

// TypeKind discriminates the closed set of IR types.
type TypeKind int

const (
	VoidTypeKind TypeKind = iota
	IntegerTypeKind
	FloatTypeKind
	PointerTypeKind
	ArrayTypeKind
	StructTypeKind
	FunctionTypeKind
)

func (k TypeKind) String() string {
	switch k {
	case VoidTypeKind:
		return "void"
	case IntegerTypeKind:
		return "integer"
	case FloatTypeKind:
		return "float"
	case PointerTypeKind:
		return "pointer"
	case ArrayTypeKind:
		return "array"
	case StructTypeKind:
		return "struct"
	case FunctionTypeKind:
		return "function"
	default:
		return "unknown"
	}
}

// Type is a node in the closed type hierarchy. Structural types
// (everything but named structs) are interned by
// Context, so two Types with equal structure are the same pointer.
type Type struct {
	kind TypeKind

	// Integer / Float
	bits int

	// Pointer has no further fields: pointers are opaque.

	// Array
	elem  *Type
	count int

	// Struct
	name    string // empty for anonymous (interned) structs
	members []*Type
	offsets []int // byte offset of each member, computed at construction

	// Function
	ret    *Type
	params []*Type

	size  int
	align int
}

func (t *Type) Kind() TypeKind { return t.kind }
func (t *Type) Bits() int      { return t.bits }
func (t *Type) Size() int      { return t.size }
func (t *Type) Align() int     { return t.align }
func (t *Type) Elem() *Type    { return t.elem }
func (t *Type) Count() int     { return t.count }
func (t *Type) Name() string   { return t.name }
func (t *Type) Members() []*Type {
	return t.members
}

// MemberOffset returns the fixed byte offset of member i, computed at
// construction time.
func (t *Type) MemberOffset(i int) int {
	return t.offsets[i]
}

func (t *Type) Return() *Type    { return t.ret }
func (t *Type) Params() []*Type  { return t.params }
func (t *Type) IsVoid() bool     { return t.kind == VoidTypeKind }
func (t *Type) IsInteger() bool  { return t.kind == IntegerTypeKind }
func (t *Type) IsFloat() bool    { return t.kind == FloatTypeKind }
func (t *Type) IsPointer() bool  { return t.kind == PointerTypeKind }
func (t *Type) IsArray() bool    { return t.kind == ArrayTypeKind }
func (t *Type) IsStruct() bool   { return t.kind == StructTypeKind }
func (t *Type) IsFunction() bool { return t.kind == FunctionTypeKind }

func (t *Type) String() string {
	switch t.kind {
	case VoidTypeKind:
		return "void"
	case IntegerTypeKind:
		return fmt.Sprintf("i%d", t.bits)
	case FloatTypeKind:
		return fmt.Sprintf("f%d", t.bits)
	case PointerTypeKind:
		return "ptr"
	case ArrayTypeKind:
		return fmt.Sprintf("[%s x %d]", t.elem, t.count)
	case StructTypeKind:
		if t.name != "" {
			return t.name
		}
		s := "{"
		for i, m := range t.members {
			if i > 0 {
				s += ", "
			}
			s += m.String()
		}
		return s + "}"
	case FunctionTypeKind:
		s := t.ret.String() + "("
		for i, p := range t.params {
			if i > 0 {
				s += ", "
			}
			s += p.String()
		}
		return s + ")"
	default:
		return "<invalid type>"
	}
}

// roundUp rounds n up to the next multiple of align.
func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	if r := n % align; r != 0 {
		n += align - r
	}
	return n
}

// layoutStruct computes size, alignment, and per-member offsets using
// natural alignment with trailing padding to the struct's own
// alignment.
func layoutStruct(members []*Type) (size, align int, offsets []int) {
	offsets = make([]int, len(members))
	align = 1
	offset := 0
	for i, m := range members {
		if m.align > align {
			align = m.align
		}
		offset = roundUp(offset, m.align)
		offsets[i] = offset
		offset += m.size
	}
	size = roundUp(offset, align)
	return size, align, offsets
}
