package common

import (
	"fmt"
	"math/big"
)

// APInt is a fixed-bit-width, arbitrary-magnitude-storage integer used
// for IR integer constants. It stands in for scatha's APInt: the value
// is always reduced modulo 2^Bits and carries its own bit width so that
// e.g. an i8 constant and an i64 constant holding the same numeric
// value are never mistaken for each other.
type APInt struct {
	Bits  int
	Value *big.Int
}

// NewAPInt constructs an APInt of the given bit width from a signed
// 64-bit value, truncating/wrapping into range the way a bitcast from a
// machine register would.
func NewAPInt(bits int, v int64) APInt {
	a := APInt{Bits: bits, Value: big.NewInt(v)}
	return a.Truncated()
}

// Truncated returns a copy of a reduced modulo 2^Bits, using two's
// complement for negative values, matching the wraparound semantics of
// the IR's arithmetic instructions.
func (a APInt) Truncated() APInt {
	mod := new(big.Int).Lsh(big.NewInt(1), uint(a.Bits))
	v := new(big.Int).Mod(a.Value, mod)
	if v.Sign() < 0 {
		v.Add(v, mod)
	}
	return APInt{Bits: a.Bits, Value: v}
}

// SignExtend reinterprets a's bit pattern as signed and returns its
// mathematical value, used by conversion instructions and by printing.
func (a APInt) SignExtend() *big.Int {
	half := new(big.Int).Lsh(big.NewInt(1), uint(a.Bits-1))
	if a.Value.Cmp(half) >= 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(a.Bits))
		return new(big.Int).Sub(a.Value, mod)
	}
	return new(big.Int).Set(a.Value)
}

func (a APInt) String() string {
	return fmt.Sprintf("%s", a.Value.String())
}

// Eq reports bit-width-and-value equality, the equality test constant
// folding and value numbering use to decide whether two integer
// constants are the same value.
func (a APInt) Eq(b APInt) bool {
	return a.Bits == b.Bits && a.Value.Cmp(b.Value) == 0
}

// APFloat is a fixed-width (32 or 64 bit) floating point constant. Go's
// float64 already has exact IEEE-754 bit patterns for both widths (a
// float32 value promoted to float64 and demoted back round-trips
// exactly), so unlike APInt there is no separate big-number backing
// store -- only the declared width, which f32 truncates to on
// construction so bit-exact representation is preserved.
type APFloat struct {
	Bits  int
	Value float64
}

// NewAPFloat constructs an APFloat of the given width, rounding to
// float32 precision first when Bits==32 so the stored value is
// bit-exact for that width.
func NewAPFloat(bits int, v float64) APFloat {
	if bits == 32 {
		v = float64(float32(v))
	}
	return APFloat{Bits: bits, Value: v}
}

func (a APFloat) Eq(b APFloat) bool {
	return a.Bits == b.Bits && a.Value == b.Value
}

func (a APFloat) String() string {
	return fmt.Sprintf("%g", a.Value)
}
