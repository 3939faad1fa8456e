package pipeline

import (
	"sort"
	"strconv"
	"strings"
)

// Print renders p back to pipeline grammar text, one step per
// comma-separated entry, with arguments printed sorted by name so that
// two structurally identical pipelines always print identically
// regardless of the order they were typed in.
func Print(p *Pipeline) string {
	var sb strings.Builder
	for i, step := range p.Steps {
		if i > 0 {
			sb.WriteString(", ")
		}
		switch {
		case step.Func != nil:
			sb.WriteString(printFuncStep(*step.Func))
		case step.Module != nil:
			sb.WriteString(printModuleStep(*step.Module))
		}
	}
	return sb.String()
}

func printFuncStep(s FuncStep) string {
	return s.Name + printArgs(s.Desc.Args, s.Args)
}

func printModuleStep(s ModuleStep) string {
	out := s.Name + printArgs(s.Desc.Args, s.Args)
	if len(s.FPasses) == 0 {
		return out
	}
	parts := make([]string, len(s.FPasses))
	for i, fp := range s.FPasses {
		parts[i] = printFuncStep(fp)
	}
	return out + "(" + strings.Join(parts, ", ") + ")"
}

func printArgs(schema []ArgSpec, bound Args) string {
	if len(schema) == 0 {
		return ""
	}
	names := make([]string, len(schema))
	for i, s := range schema {
		names[i] = s.Name
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ":" + printArgValue(bound[name])
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func printArgValue(v ArgValue) string {
	switch v.Type {
	case ArgFlag:
		return strconv.FormatBool(v.Flag)
	case ArgNumber:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	default:
		return strconv.Quote(v.Str)
	}
}
