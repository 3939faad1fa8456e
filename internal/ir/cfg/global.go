package cfg

// Visibility is a Global's binary visibility.
type Visibility int

const (
	Internal Visibility = iota
	External
)

func (v Visibility) String() string {
	if v == External {
		return "external"
	}
	return "internal"
}

// globalBase is embedded by every Global subvariant (GlobalVariable,
// GlobalConstant, Function). It is a User because a global variable's
// initializer is operand 0.
type globalBase struct {
	userBase
	vis Visibility
}

func (g *globalBase) Visibility() Visibility    { return g.vis }
func (g *globalBase) SetVisibility(v Visibility) { g.vis = v }

// GlobalVariable is a mutable global.
type GlobalVariable struct {
	globalBase
}

// Initializer returns the constant this global is initialized with, or
// nil if uninitialized.
func (g *GlobalVariable) Initializer() Value { return g.operands[0] }

func (c *Context) NewGlobalVariable(name string, typ *Type, vis Visibility, init Value) *GlobalVariable {
	g := &GlobalVariable{}
	g.initSelf(g, typ, NodeGlobalVariable, 1)
	g.name = name
	g.vis = vis
	if init != nil {
		g.SetOperand(0, init)
	}
	return g
}

// GlobalConstant is an immutable global.
type GlobalConstant struct {
	globalBase
}

func (g *GlobalConstant) Initializer() Value { return g.operands[0] }

func (c *Context) NewGlobalConstant(name string, typ *Type, vis Visibility, init Value) *GlobalConstant {
	g := &GlobalConstant{}
	g.initSelf(g, typ, NodeGlobalConstant, 1)
	g.name = name
	g.vis = vis
	if init != nil {
		g.SetOperand(0, init)
	}
	return g
}
