// Package pipeline implements the pass registry and the textual
// pipeline grammar that schedules IR transforms against a module:
//
//	pipeline  ::= mpass ("," mpass)*
//	mpass     ::= id ["[" args "]"] ["(" fpass-list ")"] | fpass
//	fpass-list::= fpass ("," fpass)*
//	fpass     ::= id ["[" args "]"]
//	args      ::= arg ("," arg)*
//	arg       ::= id [":" value]
//	value     ::= id | number | string
//
// A bare function-pass identifier at module scope is sugar for
// foreach(fpass): run that one function pass over every function in
// the module. A module pass that takes a parenthesized fpass-list
// composes those function passes into one and hands the composition to
// the module pass as its FunctionPass argument, so e.g. an inliner can
// run a cleanup pass against every function it touches without the
// pipeline driver hard-coding what "cleanup" means.
package pipeline

import (
	"scathac/internal/ir/analysis"
	"scathac/internal/ir/cfg"
)

// PassCategory buckets a pass. Each registry entry records one;
// neither Parse nor Run reads it.
type PassCategory int

const (
	Canonicalization PassCategory = iota
	Simplification
	Schedule
	Other
)

func (c PassCategory) String() string {
	switch c {
	case Canonicalization:
		return "canonicalization"
	case Simplification:
		return "simplification"
	case Schedule:
		return "schedule"
	default:
		return "other"
	}
}

// ArgType is the type of a single named pass argument.
type ArgType int

const (
	ArgFlag ArgType = iota
	ArgNumber
	ArgString
)

// ArgSpec declares one named, typed, defaulted pass argument.
type ArgSpec struct {
	Name    string
	Type    ArgType
	Default ArgValue
}

// ArgValue holds one bound argument value; only the field matching Type
// is meaningful.
type ArgValue struct {
	Type ArgType
	Flag bool
	Num  float64
	Str  string
}

// Args is the fully bound argument map handed to a running pass: every
// key named in the pass's ArgSpec schema is present, filled from either
// the pipeline text or the schema's default.
type Args map[string]ArgValue

func (a Args) Flag(name string) bool     { return a[name].Flag }
func (a Args) Number(name string) float64 { return a[name].Num }
func (a Args) String(name string) string { return a[name].Str }

// FunctionPass transforms a single function in place and reports
// whether it changed anything.
type FunctionPass func(ctx *cfg.Context, fn *cfg.Function, args Args) bool

// ModulePass transforms a whole module. fp is the (possibly composed)
// function pass named in the pipeline text's parenthesized fpass-list
// after this module pass's id, or a no-op if none was given; a module
// pass that wants to clean up functions it touches calls fp itself
// instead of the driver doing it implicitly.
type ModulePass func(ctx *cfg.Context, mod *cfg.Module, fp FunctionPass, args Args) bool

// LoopPass transforms a single natural loop in place.
type LoopPass func(ctx *cfg.Context, loop *analysis.Loop) bool

// FunctionPassDescriptor is a function pass's registry entry.
type FunctionPassDescriptor struct {
	Name     string
	Category PassCategory
	Args     []ArgSpec
	Run      FunctionPass
}

// ModulePassDescriptor is a module pass's registry entry.
type ModulePassDescriptor struct {
	Name     string
	Category PassCategory
	Args     []ArgSpec
	Run      ModulePass
}

// LoopPassDescriptor is a loop pass's registry entry.
type LoopPassDescriptor struct {
	Name     string
	Category PassCategory
	Args     []ArgSpec
	Run      LoopPass
}

func noopFunctionPass(*cfg.Context, *cfg.Function, Args) bool { return false }

// bindArgs matches parsed (name, rawValue) pairs against schema,
// filling every schema name either from parsed or from its default.
// It rejects names absent from schema and rejects a value whose
// literal kind (ident/number/string) disagrees with the schema's
// declared type for that name.
func bindArgs(schema []ArgSpec, parsed map[string]parsedArg) (Args, error) {
	bySchema := make(map[string]ArgSpec, len(schema))
	for _, s := range schema {
		bySchema[s.Name] = s
	}
	for name := range parsed {
		if _, ok := bySchema[name]; !ok {
			return nil, &PipelineSemanticError{Msg: "unknown argument " + quote(name)}
		}
	}
	out := make(Args, len(schema))
	for _, s := range schema {
		p, ok := parsed[s.Name]
		if !ok {
			out[s.Name] = s.Default
			continue
		}
		v, err := coerceArg(s, p)
		if err != nil {
			return nil, err
		}
		out[s.Name] = v
	}
	return out, nil
}

func coerceArg(s ArgSpec, p parsedArg) (ArgValue, error) {
	switch s.Type {
	case ArgFlag:
		if !p.hasValue {
			return ArgValue{Type: ArgFlag, Flag: true}, nil
		}
		if p.kind != valueIdent || (p.text != "true" && p.text != "false") {
			return ArgValue{}, &PipelineSemanticError{Msg: "argument " + quote(s.Name) + " expects a flag"}
		}
		return ArgValue{Type: ArgFlag, Flag: p.text == "true"}, nil
	case ArgNumber:
		if p.kind != valueNumber {
			return ArgValue{}, &PipelineSemanticError{Msg: "argument " + quote(s.Name) + " expects a number"}
		}
		return ArgValue{Type: ArgNumber, Num: p.num}, nil
	case ArgString:
		if p.kind != valueString && p.kind != valueIdent {
			return ArgValue{}, &PipelineSemanticError{Msg: "argument " + quote(s.Name) + " expects a string"}
		}
		return ArgValue{Type: ArgString, Str: p.text}, nil
	default:
		return ArgValue{}, &PipelineSemanticError{Msg: "unreachable argument type"}
	}
}

func quote(s string) string { return "\"" + s + "\"" }
