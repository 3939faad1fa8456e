package mir

import "scathac/internal/ffi"

// Module owns a function list and a constant pool interned by raw
// bit pattern (see Constant). It also accumulates the flat table of
// foreign-function signatures InstCallExt sites reference by index
// (see DeclareExtern) -- the table has a single slot at compile time;
// internal/ffi.Table assigns the real, possibly multi-library slot
// numbering at VM load time, resolving this module's Externs() list
// against whatever Loader the host supplies.
type Module struct {
	functions   []*Function
	constants   map[uint64]*Constant
	externs     []ffi.Signature
	externIndex map[string]uint32
}

func NewModule() *Module {
	return &Module{constants: make(map[uint64]*Constant)}
}

func (m *Module) Functions() []*Function { return m.functions }

func (m *Module) AddFunction(f *Function) {
	f.module = m
	m.functions = append(m.functions, f)
}

func (m *Module) FindFunction(name string) *Function {
	for _, f := range m.functions {
		if f.Name() == name {
			return f
		}
	}
	return nil
}

// DeclareExtern registers sig at most once (keyed by name) and
// returns the index InstCallExt's FFIIndex should carry for a call to
// that function -- a repeat declaration of an already-registered name
// returns the existing index rather than adding a duplicate entry.
func (m *Module) DeclareExtern(sig ffi.Signature) uint32 {
	if m.externIndex == nil {
		m.externIndex = make(map[string]uint32)
	}
	if idx, ok := m.externIndex[sig.Name]; ok {
		return idx
	}
	idx := uint32(len(m.externs))
	m.externs = append(m.externs, sig)
	m.externIndex[sig.Name] = idx
	return idx
}

// Externs returns the module's accumulated foreign-function table, in
// declaration order -- the order a compiled binary's own FFI-table
// section (§6) lists them in.
func (m *Module) Externs() []ffi.Signature { return m.externs }

// Constant returns the module's single shared Constant for value,
// creating it on first use.
func (m *Module) Constant(value uint64) *Constant {
	if c, ok := m.constants[value]; ok {
		return c
	}
	c := newConstant(value)
	m.constants[value] = c
	return c
}
