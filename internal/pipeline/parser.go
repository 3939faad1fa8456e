package pipeline

// valueKind distinguishes the three literal forms args ::= arg can
// bind a name to: a bare identifier (also used for flag names with no
// value), a number, or a quoted string.
type valueKind int

const (
	valueIdent valueKind = iota
	valueNumber
	valueString
)

type parsedArg struct {
	hasValue bool
	kind     valueKind
	text     string
	num      float64
}

// FuncStep is one bound, ready-to-run function pass occurrence, either
// standing alone in the pipeline or nested inside a module pass's
// fpass-list.
type FuncStep struct {
	Name string
	Desc *FunctionPassDescriptor
	Args Args
}

// ModuleStep is one bound, ready-to-run module pass occurrence, with
// its optional nested function-pass list already resolved and composed.
type ModuleStep struct {
	Name    string
	Desc    *ModulePassDescriptor
	Args    Args
	FPasses []FuncStep
}

// Step is either a FuncStep (bare function pass, sugar for running it
// over every function) or a ModuleStep.
type Step struct {
	Func   *FuncStep
	Module *ModuleStep
}

// Pipeline is a fully parsed and bound sequence of steps, ready to Run.
type Pipeline struct {
	Steps []Step
}

type parser struct {
	reg *Registry
	lex *lexer
	tok token
}

// Parse parses pipeline text against reg, binding every pass argument
// against its registered schema. Registration lookups happen during
// parsing (not after) so an unknown pass name surfaces at the same
// point a human reading the error message would expect it to.
func Parse(reg *Registry, src string) (*Pipeline, error) {
	p := &parser{reg: reg, lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	pl := &Pipeline{}
	for {
		step, err := p.parseMPass()
		if err != nil {
			return nil, err
		}
		pl.Steps = append(pl.Steps, step)
		if p.tok.kind != tokComma {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.tok.kind != tokEOF {
		return nil, p.syntaxErr("unexpected trailing input")
	}
	return pl, nil
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) syntaxErr(msg string) error {
	return &PipelineSyntaxError{Line: p.tok.line, Column: p.tok.column, Msg: msg}
}

func (p *parser) expectIdent() (string, error) {
	if p.tok.kind != tokIdent {
		return "", p.syntaxErr("expected identifier")
	}
	name := p.tok.text
	return name, p.advance()
}

// parseMPass parses one mpass per the grammar: an id, optional
// bracketed args, optional parenthesized fpass-list -- or, with no
// trailing '(' and the id naming a registered function pass instead of
// a module pass, falls through to the bare-fpass-sugar case.
func (p *parser) parseMPass() (Step, error) {
	name, err := p.expectIdent()
	if err != nil {
		return Step{}, err
	}

	rawArgs, err := p.parseOptionalArgs()
	if err != nil {
		return Step{}, err
	}

	if p.tok.kind == tokLParen {
		modDesc, ok := p.reg.ModulePass(name)
		if !ok {
			return Step{}, &PipelineSemanticError{Msg: "unknown module pass " + quote(name)}
		}
		args, err := bindArgs(modDesc.Args, rawArgs)
		if err != nil {
			return Step{}, err
		}
		if err := p.advance(); err != nil { // consume '('
			return Step{}, err
		}
		var fpasses []FuncStep
		for {
			fs, err := p.parseFPass()
			if err != nil {
				return Step{}, err
			}
			fpasses = append(fpasses, fs)
			if p.tok.kind != tokComma {
				break
			}
			if err := p.advance(); err != nil {
				return Step{}, err
			}
		}
		if p.tok.kind != tokRParen {
			return Step{}, p.syntaxErr("expected ')'")
		}
		if err := p.advance(); err != nil {
			return Step{}, err
		}
		return Step{Module: &ModuleStep{Name: name, Desc: modDesc, Args: args, FPasses: fpasses}}, nil
	}

	if modDesc, ok := p.reg.ModulePass(name); ok {
		args, err := bindArgs(modDesc.Args, rawArgs)
		if err != nil {
			return Step{}, err
		}
		return Step{Module: &ModuleStep{Name: name, Desc: modDesc, Args: args}}, nil
	}
	fnDesc, ok := p.reg.FunctionPass(name)
	if !ok {
		return Step{}, &PipelineSemanticError{Msg: "unknown pass " + quote(name)}
	}
	args, err := bindArgs(fnDesc.Args, rawArgs)
	if err != nil {
		return Step{}, err
	}
	return Step{Func: &FuncStep{Name: name, Desc: fnDesc, Args: args}}, nil
}

func (p *parser) parseFPass() (FuncStep, error) {
	name, err := p.expectIdent()
	if err != nil {
		return FuncStep{}, err
	}
	desc, ok := p.reg.FunctionPass(name)
	if !ok {
		return FuncStep{}, &PipelineSemanticError{Msg: "unknown function pass " + quote(name)}
	}
	rawArgs, err := p.parseOptionalArgs()
	if err != nil {
		return FuncStep{}, err
	}
	args, err := bindArgs(desc.Args, rawArgs)
	if err != nil {
		return FuncStep{}, err
	}
	return FuncStep{Name: name, Desc: desc, Args: args}, nil
}

func (p *parser) parseOptionalArgs() (map[string]parsedArg, error) {
	if p.tok.kind != tokLBracket {
		return nil, nil
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	out := make(map[string]parsedArg)
	for {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		pa := parsedArg{}
		if p.tok.kind == tokColon {
			if err := p.advance(); err != nil {
				return nil, err
			}
			switch p.tok.kind {
			case tokIdent:
				pa = parsedArg{hasValue: true, kind: valueIdent, text: p.tok.text}
			case tokNumber:
				pa = parsedArg{hasValue: true, kind: valueNumber, num: p.tok.num, text: p.tok.text}
			case tokString:
				pa = parsedArg{hasValue: true, kind: valueString, text: p.tok.text}
			default:
				return nil, p.syntaxErr("expected argument value")
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if _, dup := out[name]; dup {
			return nil, &PipelineSemanticError{Msg: "duplicate argument " + quote(name)}
		}
		out[name] = pa
		if p.tok.kind != tokComma {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.tok.kind != tokRBracket {
		return nil, p.syntaxErr("expected ']'")
	}
	return out, p.advance()
}
