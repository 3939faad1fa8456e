package mirpasses

import "scathac/internal/mir"

// numRegsForCallMetadata is the count of hardware registers reserved
// immediately after a function's local registers for call bookkeeping
// the assembler and VM need at every call boundary: the return
// instruction pointer, the caller's register-pointer offset, and the
// stack pointer.
const numRegsForCallMetadata = 3

// Devirtualize assigns each of fn's CalleeRegisters (a callee's
// incoming-argument slots) a concrete hardware index, placed right
// after the local hardware registers AllocateRegisters has already
// claimed plus the reserved call-metadata block, and rewrites every
// reference to use it directly. Must run after AllocateRegisters has
// set fn's local hardware register count.
func Devirtualize(fn *mir.Function) bool {
	base := fn.HardwareRegisters().Len() + numRegsForCallMetadata
	fn.SetNumUsedRegisters(base)

	callees := fn.CalleeRegisters().All()
	for _, creg := range callees {
		words := creg.Words()
		hw := fn.HardwareRegisterAt(base, words)
		mergeRegister(fn, creg, hw)
		base += words
	}
	return len(callees) > 0
}
