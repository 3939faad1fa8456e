package assembly

import "fmt"

// Program is a fully linked text section: concatenated bytes plus a
// symbol table mapping every public block's label to its absolute
// offset within Text, the `{bytes, symbolTable}` output §4.7 names.
type Program struct {
	Text        []byte
	SymbolTable map[string]int
}

// Linker merges one or more already-encoded AssemblyStreams into a
// single Program, back-patching intra-module labels across streams
// the way §4.7's "Linking" step describes. A single-stream build (the
// common case for this toolchain's CLI, which compiles all input
// files into one IR module and hence one AssemblyStream) still passes
// through Link so the symbol table gets built uniformly.
type Linker struct {
	SearchHost bool
}

type encodedUnit struct {
	stream *AssemblyStream
	bytes  []byte
	relocs []Relocation
	base   int
}

// Link lays out and encodes every stream, concatenates their text in
// argument order, and back-patches every cross-stream Relocation
// against the merged symbol table. An unresolved label after all
// streams have contributed their public symbols is a link error,
// named per-label so multiple missing symbols are all reported, not
// just the first.
func (l *Linker) Link(streams ...*AssemblyStream) (*Program, error) {
	units := make([]*encodedUnit, len(streams))
	base := 0
	for i, s := range streams {
		s.Layout()
		bytes, relocs, err := s.Encode()
		if err != nil {
			return nil, fmt.Errorf("assembly: linking stream %d: %w", i, err)
		}
		units[i] = &encodedUnit{stream: s, bytes: bytes, relocs: relocs, base: base}
		base += len(bytes)
	}

	symtab := make(map[string]int)
	for _, u := range units {
		for _, b := range u.stream.Blocks() {
			if b.Public() {
				symtab[b.Label()] = u.base + b.Offset()
			}
		}
	}

	text := make([]byte, base)
	for _, u := range units {
		copy(text[u.base:], u.bytes)
	}

	var missing []string
	for _, u := range units {
		for _, r := range u.relocs {
			abs, ok := symtab[r.Label]
			if !ok {
				missing = append(missing, r.Label)
				continue
			}
			siteAbs := u.base + r.Offset
			rel := int64(abs) - int64(siteAbs+8)
			patch := encodeRelOffset(rel)
			copy(text[siteAbs:siteAbs+8], patch)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("assembly: unresolved symbols: %v", missing)
	}

	return &Program{Text: text, SymbolTable: symtab}, nil
}

func encodeRelOffset(v int64) []byte {
	u := uint64(v)
	return []byte{
		byte(u), byte(u >> 8), byte(u >> 16), byte(u >> 24),
		byte(u >> 32), byte(u >> 40), byte(u >> 48), byte(u >> 56),
	}
}
