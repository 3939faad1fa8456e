package cfg

import (
	"fmt"

	"scathac/internal/common"
)

// Constant is any compile-time-known value: integer, float, undef,
// null pointer, or record.
// Constants are leaves of the def-use graph -- they are never Users
// themselves, only ever operands of Users -- so each kind embeds
// valueBase directly.
type Constant interface {
	Value
	isConstant()
}

// ConstantInt is an integer constant.
type ConstantInt struct {
	valueBase
	Val common.APInt
}

func (c *ConstantInt) isConstant() {}

// IntConst returns the constant of value val and type typ. Unlike
// types, constants of the same value are not required to be
// pointer-identical; equality is by value (ConstantInt.Val.Eq),
// matching how value numbering and constant folding compare them.
func (ctx *Context) IntConst(val common.APInt, typ *Type) *ConstantInt {
	return &ConstantInt{valueBase: valueBase{kind: NodeIntConst, typ: typ}, Val: val}
}

func (c *ConstantInt) String() string {
	return fmt.Sprintf("%s %s", c.typ, c.Val)
}

// ConstantFloat is a floating point constant.
type ConstantFloat struct {
	valueBase
	Val common.APFloat
}

func (c *ConstantFloat) isConstant() {}

func (ctx *Context) FloatConst(val common.APFloat, typ *Type) *ConstantFloat {
	return &ConstantFloat{valueBase: valueBase{kind: NodeFloatConst, typ: typ}, Val: val}
}

// ConstantUndef is an undefined value of a given type.
type ConstantUndef struct {
	valueBase
}

func (c *ConstantUndef) isConstant() {}

func (ctx *Context) UndefConst(typ *Type) *ConstantUndef {
	return &ConstantUndef{valueBase: valueBase{kind: NodeUndefConst, typ: typ}}
}

// ConstantNullPtr is the null-pointer constant.
type ConstantNullPtr struct {
	valueBase
}

func (c *ConstantNullPtr) isConstant() {}

func (ctx *Context) NullPtr() *ConstantNullPtr {
	return &ConstantNullPtr{valueBase: valueBase{kind: NodeNullPtrConst, typ: ctx.PointerType()}}
}

// ConstantRecord is an aggregate constant (struct or array) built from
// other constants.
type ConstantRecord struct {
	valueBase
	Elements []Constant
}

func (c *ConstantRecord) isConstant() {}

func (ctx *Context) RecordConst(typ *Type, elements []Constant) *ConstantRecord {
	return &ConstantRecord{
		valueBase: valueBase{kind: NodeRecordConst, typ: typ},
		Elements:  append([]Constant(nil), elements...),
	}
}
