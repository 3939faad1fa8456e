package isel

import (
	"fmt"

	"scathac/internal/ffi"
	"scathac/internal/ir/cfg"
)

// ffiTypeOf maps a scalar IR type to its wire-format FFI type tag.
// Aggregate (struct/array) FFI arguments aren't part of this port's
// calling convention -- spec's FFI surface is scalars-and-pointers
// only, matching ExternalFunction's fixed (u64* regPtr) marshalling.
func ffiTypeOf(t *cfg.Type) (ffi.Type, error) {
	switch {
	case t.IsVoid():
		return ffi.Void, nil
	case t.IsPointer():
		return ffi.Pointer, nil
	case t.IsFloat():
		if t.Bits() <= 32 {
			return ffi.Float, nil
		}
		return ffi.Double, nil
	case t.IsInteger():
		switch {
		case t.Bits() <= 8:
			return ffi.Int8, nil
		case t.Bits() <= 16:
			return ffi.Int16, nil
		case t.Bits() <= 32:
			return ffi.Int32, nil
		default:
			return ffi.Int64, nil
		}
	default:
		return ffi.Void, fmt.Errorf("isel: %s has no scalar FFI type representation", t)
	}
}

// signatureOf builds the FFI signature a foreign declaration's own
// type describes, for registration in the owning module's extern
// table.
func signatureOf(fn *cfg.Function) (ffi.Signature, error) {
	ret, err := ffiTypeOf(fn.Type().Return())
	if err != nil {
		return ffi.Signature{}, fmt.Errorf("isel: external function %q: %w", fn.Name(), err)
	}
	args := make([]ffi.Type, len(fn.Params()))
	for i, p := range fn.Params() {
		at, err := ffiTypeOf(p.Type())
		if err != nil {
			return ffi.Signature{}, fmt.Errorf("isel: external function %q argument %d: %w", fn.Name(), i, err)
		}
		args[i] = at
	}
	return ffi.Signature{Name: fn.Name(), ArgTypes: args, ReturnType: ret}, nil
}
