package pipeline

// Registry is an explicit, caller-owned table of named passes -- built
// by NewRegistry and populated by RegisterXxx calls, then handed to
// Parse -- rather than a package-level global mutated by every pass
// package's init. Each pass package (internal/passes) still registers
// its passes "at startup" in spirit, but it does so by exposing a
// RegisterAll(*Registry) function the driver calls explicitly, so a
// test can build a registry with only the passes it wants to exercise.
type Registry struct {
	funcPasses map[string]*FunctionPassDescriptor
	modPasses  map[string]*ModulePassDescriptor
	loopPasses map[string]*LoopPassDescriptor
}

func NewRegistry() *Registry {
	return &Registry{
		funcPasses: make(map[string]*FunctionPassDescriptor),
		modPasses:  make(map[string]*ModulePassDescriptor),
		loopPasses: make(map[string]*LoopPassDescriptor),
	}
}

func (r *Registry) RegisterFunctionPass(d *FunctionPassDescriptor) {
	r.funcPasses[d.Name] = d
}

func (r *Registry) RegisterModulePass(d *ModulePassDescriptor) {
	r.modPasses[d.Name] = d
}

func (r *Registry) RegisterLoopPass(d *LoopPassDescriptor) {
	r.loopPasses[d.Name] = d
}

func (r *Registry) FunctionPass(name string) (*FunctionPassDescriptor, bool) {
	d, ok := r.funcPasses[name]
	return d, ok
}

func (r *Registry) ModulePass(name string) (*ModulePassDescriptor, bool) {
	d, ok := r.modPasses[name]
	return d, ok
}

func (r *Registry) LoopPass(name string) (*LoopPassDescriptor, bool) {
	d, ok := r.loopPasses[name]
	return d, ok
}
