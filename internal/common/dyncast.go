// Package common holds small utilities shared across the compiler and
// virtual machine: generic dynamic-cast helpers over closed node
// hierarchies, arbitrary-precision numeric wrappers, and a handful of
// error kinds that don't belong to any single layer.
package common

// Kinded is implemented by every node in a closed variant hierarchy
// (IR values, MIR registers/instructions, assembly operands, ...). Kind
// returns the hierarchy's discriminant for that concrete node. Is,
// Cast and TryCast below do not consult Kind; they are plain runtime
// type assertions.
type Kinded[K comparable] interface {
	Kind() K
}

// Is reports whether v's dynamic type is exactly T. It plays the role
// of scatha's isa<T>.
func Is[T any](v any) bool {
	_, ok := v.(T)
	return ok
}

// Cast asserts that v's dynamic type is T and panics otherwise. It
// plays the role of scatha's cast<T>, which is likewise unchecked in
// release builds and only used where the caller has already
// established the dynamic type by other means (typically a Kind()
// switch).
func Cast[T any](v any) T {
	return v.(T)
}

// TryCast is the checked counterpart of Cast, playing the role of
// scatha's dyncast<T>.
func TryCast[T any](v any) (T, bool) {
	t, ok := v.(T)
	return t, ok
}

// Visit dispatches v to the matching case function by trying each in
// order; it exists for call sites that want exhaustiveness-by-type
// rather than a Kind() switch. Most of this codebase prefers a Kind()
// switch for performance and exhaustiveness checking, and reserves
// Visit for one-off printing code.
func Visit[T any](v any, cases ...func(any) (T, bool)) (T, bool) {
	for _, c := range cases {
		if r, ok := c(v); ok {
			return r, true
		}
	}
	var zero T
	return zero, false
}
