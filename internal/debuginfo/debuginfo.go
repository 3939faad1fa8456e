// Package debuginfo implements the optional `.scdsym` sidecar: a JSON
// file written alongside a `.scbin` binary when the compiler driver is
// invoked with `-d`, mapping text-section byte offsets back to source
// locations and labels, and function names to their instruction-offset
// ranges. The VM and disassembler never require it; it exists purely
// to make a trap or a disassembly listing readable.
//
// Grounded on original_source/include/scatha/Common/DebugMetadata.h
// (SourceLocationMD, SourceFileList) and include/scatha/DebugInfo/
// DebugInfo.h (DebugLabel, IpoRange, DebugInfoMap) -- the nlohmann::json
// serialize()/deserialize() pair there is replaced by this package's
// Sidecar struct and stdlib encoding/json tags, the idiomatic Go
// counterpart to a bespoke single-purpose JSON document.
package debuginfo

import (
	"encoding/json"
	"fmt"
)

// LabelKind mirrors DebugLabel::Type: what kind of binary-offset label
// is, purely for display -- a BasicBlock label with no owning Function
// label at the same offset may still occur for an internal-only block.
type LabelKind int

const (
	FunctionLabel LabelKind = iota
	BasicBlockLabel
	StringDataLabel
	RawDataLabel
)

func (k LabelKind) String() string {
	switch k {
	case FunctionLabel:
		return "function"
	case BasicBlockLabel:
		return "basic-block"
	case StringDataLabel:
		return "string-data"
	case RawDataLabel:
		return "raw-data"
	default:
		return "unknown"
	}
}

// Label names a single text-section or data-section offset.
type Label struct {
	Kind LabelKind `json:"kind"`
	Name string    `json:"name"`
}

// SourceLocation is the (file, line, column) triple attached to an
// instruction. File indexes Sidecar.SourceFiles; a negative index
// means the instruction has no associated source (compiler-synthesized).
type SourceLocation struct {
	File   int `json:"file"`
	Line   int `json:"line"`
	Column int `json:"column"`
}

// IPRange is a function's instruction-pointer span within the text
// section: [Begin, End).
type IPRange struct {
	Begin int `json:"begin"`
	End   int `json:"end"`
}

// Sidecar is the full contents of a `.scdsym` file.
type Sidecar struct {
	// SourceFiles lists absolute source paths; SourceLocation.File
	// indexes into this slice.
	SourceFiles []string `json:"sourceFiles,omitempty"`

	// Labels maps a byte offset (in the text or data section,
	// disambiguated by Label.Kind) to the label at that offset.
	Labels map[int]Label `json:"labels,omitempty"`

	// SourceLocations maps a text-section byte offset to the source
	// location of the instruction starting there.
	SourceLocations map[int]SourceLocation `json:"sourceLocations,omitempty"`

	// FunctionRanges maps a (possibly mangled) function name to its
	// instruction-offset range within the text section.
	FunctionRanges map[string]IPRange `json:"functionRanges,omitempty"`
}

// Empty reports whether every field is empty -- the Go counterpart of
// DebugInfoMap::empty(), used by the compiler driver to skip writing a
// sidecar with nothing in it even when -d is set.
func (s *Sidecar) Empty() bool {
	return s == nil ||
		(len(s.SourceFiles) == 0 && len(s.Labels) == 0 &&
			len(s.SourceLocations) == 0 && len(s.FunctionRanges) == 0)
}

// Marshal serializes s to indented JSON, the `.scdsym` file's on-disk
// form.
func Marshal(s *Sidecar) ([]byte, error) {
	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("debuginfo: marshal sidecar: %w", err)
	}
	return out, nil
}

// Unmarshal parses a `.scdsym` file's contents back into a Sidecar.
func Unmarshal(data []byte) (*Sidecar, error) {
	var s Sidecar
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("debuginfo: unmarshal sidecar: %w", err)
	}
	return &s, nil
}

// FromSymbolTable builds a Sidecar's FunctionRanges from a linked
// program's symbol table (assembly.Program.SymbolTable) and the
// length of its text section -- every public symbol becomes a range
// running to the next symbol's offset (or to the end of text for the
// last one), since the linker's symbol table records starts only.
func FromSymbolTable(symtab map[string]int, textLen int) *Sidecar {
	if len(symtab) == 0 {
		return &Sidecar{}
	}
	names := make([]string, 0, len(symtab))
	for name := range symtab {
		names = append(names, name)
	}
	sortByOffset(names, symtab)

	ranges := make(map[string]IPRange, len(names))
	labels := make(map[int]Label, len(names))
	for i, name := range names {
		begin := symtab[name]
		end := textLen
		if i+1 < len(names) {
			end = symtab[names[i+1]]
		}
		ranges[name] = IPRange{Begin: begin, End: end}
		labels[begin] = Label{Kind: FunctionLabel, Name: name}
	}
	return &Sidecar{FunctionRanges: ranges, Labels: labels}
}

// sortByOffset orders names by their offset in symtab, ascending.
func sortByOffset(names []string, symtab map[string]int) {
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && symtab[names[j-1]] > symtab[names[j]]; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
}
