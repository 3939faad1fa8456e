package cfg

// PointerInfo is the per-value provenance/alignment descriptor for
// pointer-typed values. It is populated by Alloca (alignment from type, range
// from allocation size), GetElementPointer (propagated provenance,
// offset added), and explicit frontend hints.
type PointerInfo struct {
	Align int

	// HasRange/Range: optional statically-known dereferenceable byte
	// range starting at this pointer.
	HasRange bool
	Range    int

	// Provenance: the originating value this pointer was derived from,
	// plus a signed static byte offset from it. Provenance is nil for a
	// pointer whose origin is not statically known (e.g. loaded from
	// memory).
	Provenance Value
	StaticOffset int

	NonNull    bool
	NonEscaping bool
}

// Offset returns a copy of p with the provenance offset advanced by
// delta, used when propagating provenance through a GetElementPointer.
func (p PointerInfo) Offset(delta int) PointerInfo {
	p.StaticOffset += delta
	if p.HasRange {
		p.Range -= delta
		if p.Range < 0 {
			p.HasRange = false
			p.Range = 0
		}
	}
	return p
}
