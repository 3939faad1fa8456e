package cfg

import (
	"fmt"
	"strconv"
	"strings"

	"scathac/internal/common"
)

// Parse reads IR text produced by Print back into a Module. It accepts
// the subset of the printed grammar that has no forward references:
// alloca/load/store, binary arithmetic, compare, conversion, and the
// four terminators. Because every operand in that subset already has a
// Value registered by the time its user is parsed (SSA dominance puts
// every definition textually before its uses within a block, and block
// labels are all known up front), Parse resolves operands in a single
// left-to-right pass instead of needing a placeholder/backpatch scheme.
//
// Two constructs are deliberately left unsupported, each for a
// different forward-reference reason a single left-to-right pass can't
// resolve: phi nodes can reference a value defined later in program
// order (a loop latch's incremented value, referenced by the loop
// header's phi), and calls can reference a callee function whose
// return type is only known once that function's own header has been
// parsed, which for a forward call means after the whole module.
// Printing both is fully supported (PrintFunction); parsing them back
// needs a placeholder/backpatch pass this parser doesn't implement.
// Parse reports a clear error naming the opcode if it encounters one.
func Parse(ctx *Context, src string) (*Module, error) {
	p := &parser{ctx: ctx, toks: tokenize(src)}
	return p.parseModule()
}

type token struct{ text string }

func tokenize(src string) []token {
	var toks []token
	i, n := 0, len(src)
	isPunct := func(b byte) bool {
		switch b {
		case ',', ':', '(', ')', '{', '}', '=', '[', ']', '%', '@':
			return true
		}
		return false
	}
	for i < n {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '%' || c == '@':
			j := i + 1
			for j < n && isIdentByte(src[j]) {
				j++
			}
			toks = append(toks, token{src[i:j]})
			i = j
		case isPunct(c):
			toks = append(toks, token{string(c)})
			i++
		default:
			j := i
			for j < n && !isPunct(src[j]) && src[j] != ' ' && src[j] != '\t' && src[j] != '\n' && src[j] != '\r' {
				j++
			}
			toks = append(toks, token{src[i:j]})
			i = j
		}
	}
	return toks
}

func isIdentByte(b byte) bool {
	return b == '_' || b == '.' || b == '-' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

type parser struct {
	ctx  *Context
	toks []token
	pos  int
}

func (p *parser) peek() string {
	if p.pos >= len(p.toks) {
		return ""
	}
	return p.toks[p.pos].text
}

func (p *parser) peekAt(off int) string {
	if p.pos+off >= len(p.toks) {
		return ""
	}
	return p.toks[p.pos+off].text
}

func (p *parser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *parser) expect(s string) error {
	t := p.next()
	if t != s {
		return fmt.Errorf("ir parse: expected %q, got %q at token %d", s, t, p.pos-1)
	}
	return nil
}

func (p *parser) parseModule() (*Module, error) {
	mod := NewModule(p.ctx)
	for p.peek() != "" {
		f, err := p.parseFunction()
		if err != nil {
			return nil, err
		}
		mod.AddFunction(f)
	}
	return mod, nil
}

func (p *parser) parseVisibility() Visibility {
	switch p.peek() {
	case "external":
		p.next()
		return External
	case "internal":
		p.next()
	}
	return Internal
}

func (p *parser) parseFunction() (*Function, error) {
	vis := p.parseVisibility()
	if err := p.expect("func"); err != nil {
		return nil, err
	}
	name := strings.TrimPrefix(p.next(), "@")
	if err := p.expect("("); err != nil {
		return nil, err
	}
	var paramTypes []*Type
	var paramNames []string
	for p.peek() != ")" {
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		paramTypes = append(paramTypes, t)
		paramNames = append(paramNames, strings.TrimPrefix(p.next(), "%"))
		if p.peek() == "," {
			p.next()
		}
	}
	p.next() // ")"
	if err := p.expect("->"); err != nil {
		return nil, err
	}
	retType, err := p.parseType()
	if err != nil {
		return nil, err
	}
	fnType := p.ctx.FunctionType(retType, paramTypes)
	fn := p.ctx.NewFunction(name, fnType, paramNames, vis)
	if err := p.expect("{"); err != nil {
		return nil, err
	}

	// Block labels carry no forward-reference problem: every label is
	// known before any instruction needs to target it, so they can be
	// created up front in one scan.
	labelPositions := p.scanLabels()
	blocks := make(map[string]*BasicBlock, len(labelPositions))
	for _, name := range labelPositions {
		bb := NewBasicBlock(p.ctx, name)
		fn.PushBlock(bb)
		blocks[name] = bb
	}

	values := map[string]Value{}
	for i, param := range fn.Params() {
		values[paramNames[i]] = param
	}

	var curBlock *BasicBlock
	for p.peek() != "}" {
		if p.peekAt(1) == ":" {
			name := p.next()
			p.next() // ":"
			curBlock = blocks[name]
			continue
		}
		if curBlock == nil {
			return nil, fmt.Errorf("ir parse: instruction outside any block")
		}
		inst, destName, err := p.parseInstruction(values, blocks)
		if err != nil {
			return nil, err
		}
		curBlock.PushInst(inst)
		if destName != "" {
			values[destName] = inst
		}
	}
	p.next() // "}"
	return fn, nil
}

// scanLabels looks ahead over the function body (without consuming it)
// collecting every "name:" header in order, then rewinds.
func (p *parser) scanLabels() []string {
	start := p.pos
	var names []string
	depth := 1
	for p.pos < len(p.toks) && depth > 0 {
		switch p.peek() {
		case "{":
			depth++
		case "}":
			depth--
			if depth == 0 {
				p.pos = start
				return names
			}
		}
		if depth == 1 && p.peekAt(1) == ":" && !strings.HasPrefix(p.peek(), "%") {
			names = append(names, p.peek())
		}
		p.pos++
	}
	p.pos = start
	return names
}

func (p *parser) parseType() (*Type, error) {
	tok := p.next()
	switch {
	case tok == "void":
		return p.ctx.VoidType(), nil
	case tok == "ptr":
		return p.ctx.PointerType(), nil
	case strings.HasPrefix(tok, "i"):
		bits, err := strconv.Atoi(tok[1:])
		if err != nil {
			return nil, fmt.Errorf("ir parse: bad integer type %q", tok)
		}
		return p.ctx.IntegerType(bits), nil
	case strings.HasPrefix(tok, "f"):
		bits, err := strconv.Atoi(tok[1:])
		if err != nil {
			return nil, fmt.Errorf("ir parse: bad float type %q", tok)
		}
		return p.ctx.FloatType(bits), nil
	default:
		return nil, fmt.Errorf("ir parse: unknown type token %q", tok)
	}
}

func (p *parser) resolveValue(values map[string]Value, tok string) (Value, error) {
	switch {
	case strings.HasPrefix(tok, "%"):
		name := strings.TrimPrefix(tok, "%")
		v, ok := values[name]
		if !ok {
			return nil, fmt.Errorf("ir parse: undefined value %%%s", name)
		}
		return v, nil
	case tok == "null":
		return p.ctx.NullPtr(), nil
	case tok == "undef":
		return nil, fmt.Errorf("ir parse: undef requires an explicit type, not supported in this grammar subset")
	default:
		if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
			return p.ctx.IntConst(common.NewAPInt(64, n), p.ctx.IntegerType(64)), nil
		}
		return nil, fmt.Errorf("ir parse: cannot resolve operand %q", tok)
	}
}

func (p *parser) blockRef(blocks map[string]*BasicBlock, tok string) (*BasicBlock, error) {
	name := strings.TrimPrefix(tok, "%")
	bb, ok := blocks[name]
	if !ok {
		return nil, fmt.Errorf("ir parse: undefined block %q", name)
	}
	return bb, nil
}

var arithOpNames = map[string]ArithOp{
	"add": Add, "sub": Sub, "mul": Mul, "sdiv": SDiv, "udiv": UDiv,
	"srem": SRem, "urem": URem, "shl": Shl, "lshr": LShr, "ashr": AShr,
	"and": And, "or": Or, "xor": Xor, "fadd": FAdd, "fsub": FSub,
	"fmul": FMul, "fdiv": FDiv,
}

func isArithOp(op string) bool {
	_, ok := arithOpNames[op]
	return ok
}

var convOpNames = map[string]ConvOp{
	"sext": SExt, "zext": ZExt, "trunc": Trunc, "sitofp": SIToFP,
	"uitofp": UIToFP, "fptosi": FPToSI, "fptoui": FPToUI, "fpext": FPExt,
	"fptrunc": FPTrunc, "bitcast": Bitcast, "ptrtoint": PtrToInt, "inttoptr": IntToPtr,
}

func isConvOp(op string) bool {
	_, ok := convOpNames[op]
	return ok
}

func (p *parser) parseInstruction(values map[string]Value, blocks map[string]*BasicBlock) (*Instruction, string, error) {
	dest := ""
	if strings.HasPrefix(p.peek(), "%") && p.peekAt(1) == "=" {
		dest = strings.TrimPrefix(p.next(), "%")
		p.next() // "="
	}
	op := p.next()

	switch {
	case op == "alloca":
		allocType, err := p.parseType()
		if err != nil {
			return nil, "", err
		}
		p.expectComma()
		countTok := p.next()
		count, err := p.resolveValue(values, countTok)
		if err != nil {
			return nil, "", err
		}
		inst := NewAlloca(p.ctx, allocType, count, dest)
		return inst, dest, nil

	case op == "load":
		typ, err := p.parseType()
		if err != nil {
			return nil, "", err
		}
		p.expectComma()
		ptr, err := p.resolveValue(values, p.next())
		if err != nil {
			return nil, "", err
		}
		return NewLoad(ptr, typ, dest), dest, nil

	case op == "store":
		ptr, err := p.resolveValue(values, p.next())
		if err != nil {
			return nil, "", err
		}
		p.expectComma()
		val, err := p.resolveValue(values, p.next())
		if err != nil {
			return nil, "", err
		}
		return NewStore(p.ctx, ptr, val), "", nil

	case isArithOp(op):
		lhsTok := p.next()
		lhs, err := p.resolveValue(values, lhsTok)
		if err != nil {
			return nil, "", err
		}
		p.expectComma()
		rhs, err := p.resolveValue(values, p.next())
		if err != nil {
			return nil, "", err
		}
		return NewArithmetic(arithOpNames[op], lhs, rhs, lhs.Type(), dest), dest, nil

	case strings.HasPrefix(op, "cmp."):
		parts := strings.Split(op, ".")
		if len(parts) != 3 {
			return nil, "", fmt.Errorf("ir parse: malformed compare opcode %q", op)
		}
		mode := map[string]CompareMode{"s": Signed, "u": Unsigned, "f": Ordered}[parts[1]]
		pred := map[string]ComparePred{"eq": CmpEQ, "ne": CmpNE, "lt": CmpLT, "le": CmpLE, "gt": CmpGT, "ge": CmpGE}[parts[2]]
		lhs, err := p.resolveValue(values, p.next())
		if err != nil {
			return nil, "", err
		}
		p.expectComma()
		rhs, err := p.resolveValue(values, p.next())
		if err != nil {
			return nil, "", err
		}
		return NewCompare(p.ctx, mode, pred, lhs, rhs, dest), dest, nil

	case isConvOp(op):
		operand, err := p.resolveValue(values, p.next())
		if err != nil {
			return nil, "", err
		}
		if err := p.expect("to"); err != nil {
			return nil, "", err
		}
		typ, err := p.parseType()
		if err != nil {
			return nil, "", err
		}
		return NewConversion(convOpNames[op], operand, typ, dest), dest, nil

	case op == "return":
		if p.peek() == "" || p.peekAt(0) == "" {
			return NewReturn(p.ctx, nil), "", nil
		}
		if p.atTerminatorBoundary() {
			return NewReturn(p.ctx, nil), "", nil
		}
		v, err := p.resolveValue(values, p.next())
		if err != nil {
			return nil, "", err
		}
		return NewReturn(p.ctx, v), "", nil

	case op == "goto":
		if err := p.expect("label"); err != nil {
			return nil, "", err
		}
		bb, err := p.blockRef(blocks, p.next())
		if err != nil {
			return nil, "", err
		}
		return NewGoto(p.ctx, bb), "", nil

	case op == "branch":
		cond, err := p.resolveValue(values, p.next())
		if err != nil {
			return nil, "", err
		}
		p.expectComma()
		if err := p.expect("label"); err != nil {
			return nil, "", err
		}
		t1, err := p.blockRef(blocks, p.next())
		if err != nil {
			return nil, "", err
		}
		p.expectComma()
		if err := p.expect("label"); err != nil {
			return nil, "", err
		}
		t2, err := p.blockRef(blocks, p.next())
		if err != nil {
			return nil, "", err
		}
		return NewBranch(p.ctx, cond, t1, t2), "", nil

	case op == "unreachable":
		return NewUnreachable(p.ctx), "", nil

	default:
		return nil, "", fmt.Errorf("ir parse: unsupported instruction opcode %q", op)
	}
}

func (p *parser) expectComma() {
	if p.peek() == "," {
		p.next()
	}
}

// atTerminatorBoundary reports whether the parser has reached the next
// label or the function's closing brace, used to disambiguate a bare
// "return" (void) from "return <value>".
func (p *parser) atTerminatorBoundary() bool {
	t := p.peek()
	return t == "}" || p.peekAt(1) == ":"
}
