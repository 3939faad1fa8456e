// Package ffi provides the foreign-function type encoding and the
// host-side table a compiled program's callext instructions resolve
// against. The real dynamic-library loader (the host's dlopen
// equivalent) is out of scope; Loader only specifies the lookup
// interface a host embedding the VM must satisfy.
package ffi

import "fmt"

// Type is the single-byte foreign-function argument/return type tag,
// shared on the wire between the bytecode file's FFI table and the
// VM's call-marshalling code.
type Type uint8

const (
	Void Type = iota
	Int8
	Int16
	Int32
	Int64
	Float
	Double
	Pointer

	numTypes
)

var typeNames = [numTypes]string{
	Void:    "void",
	Int8:    "int8",
	Int16:   "int16",
	Int32:   "int32",
	Int64:   "int64",
	Float:   "float",
	Double:  "double",
	Pointer: "ptr",
}

func (t Type) String() string {
	if t >= numTypes {
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
	return typeNames[t]
}

// Valid reports whether t is one of the closed set of defined types.
func (t Type) Valid() bool { return t < numTypes }

// Size returns the type's encoded register width in bytes. Pointer is
// the wire-format virtual pointer's 8-byte packed form.
func (t Type) Size() int {
	switch t {
	case Void:
		return 0
	case Int8:
		return 1
	case Int16:
		return 2
	case Int32, Float:
		return 4
	case Int64, Double, Pointer:
		return 8
	default:
		return 0
	}
}

// Signature is a foreign function's name and call shape, matching
// scatha::ForeignFunctionInterface's (name, argumentTypes, returnType)
// shape.
type Signature struct {
	Name       string
	ArgTypes   []Type
	ReturnType Type
}

// Slot identifies one foreign library within the table a program's
// callext instructions index into; Index identifies one function
// within that slot. Both are kept as uint32 rather than a narrower
// type per the conservative table-size decision recorded in
// SPEC_FULL's Open Question #4.
type Slot = uint32
type Index = uint32

// Entry is one resolved table row: a function's declared signature
// paired with its (slot, index) position.
type Entry struct {
	Slot      Slot
	Index     Index
	Signature Signature
}
