package ffi

import "fmt"

// Loader resolves a named foreign library to the external functions it
// exports. It stands in for the host's real dynamic-library loader
// (dlopen/LoadLibrary equivalent), which is explicitly out of scope:
// only the lookup contract a loader must satisfy is specified here.
type Loader interface {
	// Load returns every external function exported by the named
	// library, in a stable order -- callers use the returned slice's
	// index as the FFI table's per-slot function index.
	Load(library string) ([]ExternalFunction, error)
}

// StaticLoader is a trivial in-process Loader backed by a fixed
// name->functions map, useful for embedding the VM in a host process
// or for tests that don't want a real shared-library search. It is
// the only Loader implementation this package ships.
type StaticLoader struct {
	libraries map[string][]ExternalFunction
}

// NewStaticLoader builds a loader over the given libraries, keyed by
// the name a program's import declares.
func NewStaticLoader(libraries map[string][]ExternalFunction) *StaticLoader {
	return &StaticLoader{libraries: libraries}
}

func (l *StaticLoader) Load(library string) ([]ExternalFunction, error) {
	fns, ok := l.libraries[library]
	if !ok {
		return nil, fmt.Errorf("ffi: no static library registered under %q", library)
	}
	return fns, nil
}

// Table is the slot-indexed function table a loaded program's callext
// instructions address as (slot, index). Slot assignment follows
// library discovery order: the first library resolved by a Loader
// occupies slot 0, the next slot 1, and so on.
type Table struct {
	slots [][]ExternalFunction
}

// NewTable resolves each named library through loader in order,
// assigning it the next unused slot.
func NewTable(loader Loader, libraries []string) (*Table, error) {
	t := &Table{}
	for _, lib := range libraries {
		fns, err := loader.Load(lib)
		if err != nil {
			return nil, err
		}
		t.slots = append(t.slots, fns)
	}
	return t, nil
}

// Resolve returns the external function bound to (slot, index),
// wrapped as a vmerr-shaped FFIError description by the caller (the VM
// layer, which owns the error taxonomy) when it is out of range.
func (t *Table) Resolve(slot Slot, index Index) (ExternalFunction, bool) {
	if int(slot) >= len(t.slots) {
		return ExternalFunction{}, false
	}
	fns := t.slots[slot]
	if int(index) >= len(fns) {
		return ExternalFunction{}, false
	}
	return fns[index], true
}

// NumSlots reports how many libraries currently occupy the table.
func (t *Table) NumSlots() int { return len(t.slots) }
