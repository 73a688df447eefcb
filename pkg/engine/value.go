package engine

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// Kind identifies the type of value stored in the Value struct.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindInt
	KindFloat
	KindString
	KindObject    // heap object (plain object or heap callable)
	KindLightFunc // immediate callable, no heap object behind it
)

// NativeFn is the signature of a native (host) function. It runs with a
// fresh stack window containing its arguments. The int return is the
// number of results left on top of the window (0 or 1); a non-nil error
// is raised as a runtime fault at the call boundary.
type NativeFn func(c *Context) (int, error)

// Value is a stack-allocated tagged union. Small primitives live in the
// Data word; strings and heap objects keep their payload alive through
// the dedicated fields. A light function carries its Go function inline
// plus a flags word packing magic and arity, so calling it never
// allocates a function object.
type Value struct {
	Kind Kind
	Data uint64 // int64 bits, float64 bits, bool (0/1), lightfunc flags
	Str  string
	Obj  Object
	Fn   NativeFn // lightfunc body, set only for KindLightFunc
}

// Lightfunc flags word layout: bits 0-15 magic (two's complement int16),
// bits 16-23 arity. Arity 255 means variadic.
const lightArityVariadic = 0xff

func lightFlags(magic int16, arity uint8) uint64 {
	return uint64(uint16(magic)) | uint64(arity)<<16
}

func lightFlagsMagic(flags uint64) int16 {
	return int16(uint16(flags))
}

func lightFlagsArity(flags uint64) uint8 {
	return uint8(flags >> 16)
}

// Constructors

func Undefined() Value {
	return Value{Kind: KindUndefined}
}

func Null() Value {
	return Value{Kind: KindNull}
}

func BoolVal(v bool) Value {
	var data uint64
	if v {
		data = 1
	}
	return Value{Kind: KindBool, Data: data}
}

func IntVal(v int64) Value {
	return Value{Kind: KindInt, Data: uint64(v)}
}

func FloatVal(v float64) Value {
	return Value{Kind: KindFloat, Data: math.Float64bits(v)}
}

func StrVal(s string) Value {
	return Value{Kind: KindString, Str: s}
}

func ObjVal(o Object) Value {
	return Value{Kind: KindObject, Obj: o}
}

// LightFuncVal packs fn, magic and arity into an immediate callable.
// Arity must fit in a byte; use LightFuncVariadic for a variadic one.
func LightFuncVal(fn NativeFn, magic int16, arity uint8) Value {
	return Value{Kind: KindLightFunc, Data: lightFlags(magic, arity), Fn: fn}
}

// LightFuncVariadic is like LightFuncVal without arity adjustment.
func LightFuncVariadic(fn NativeFn, magic int16) Value {
	return LightFuncVal(fn, magic, lightArityVariadic)
}

// Accessors

func (v Value) AsBool() bool {
	return v.Data == 1
}

func (v Value) AsInt() int64 {
	return int64(v.Data)
}

func (v Value) AsFloat() float64 {
	return math.Float64frombits(v.Data)
}

func (v Value) AsString() string {
	return v.Str
}

// LightMagic returns the magic packed into a lightfunc flags word.
func (v Value) LightMagic() int16 {
	return lightFlagsMagic(v.Data)
}

// LightArity returns the packed arity, or -1 for a variadic lightfunc.
func (v Value) lightArity() int {
	a := lightFlagsArity(v.Data)
	if a == lightArityVariadic {
		return ArityVariadic
	}
	return int(a)
}

// Type checking helpers

func (v Value) IsUndefined() bool { return v.Kind == KindUndefined }
func (v Value) IsNull() bool      { return v.Kind == KindNull }
func (v Value) IsBool() bool      { return v.Kind == KindBool }
func (v Value) IsInt() bool       { return v.Kind == KindInt }
func (v Value) IsFloat() bool     { return v.Kind == KindFloat }
func (v Value) IsString() bool    { return v.Kind == KindString }
func (v Value) IsObject() bool    { return v.Kind == KindObject }
func (v Value) IsLightFunc() bool { return v.Kind == KindLightFunc }

// IsCallable reports whether invoking v can succeed: light functions and
// the heap callables. Plain objects are not callable.
func (v Value) IsCallable() bool {
	switch v.Kind {
	case KindLightFunc:
		return true
	case KindObject:
		switch v.Obj.(type) {
		case *NativeFunc, *ScriptFunc, *BoundFunc:
			return true
		}
	}
	return false
}

// Equals compares values: identity for objects, numeric equality across
// int/float, payload equality for the rest.
func (v Value) Equals(other Value) bool {
	if v.Kind != other.Kind {
		if v.Kind == KindInt && other.Kind == KindFloat {
			return float64(v.AsInt()) == other.AsFloat()
		}
		if v.Kind == KindFloat && other.Kind == KindInt {
			return v.AsFloat() == float64(other.AsInt())
		}
		return false
	}
	switch v.Kind {
	case KindUndefined, KindNull:
		return true
	case KindBool, KindInt, KindFloat:
		return v.Data == other.Data
	case KindString:
		return v.Str == other.Str
	case KindObject:
		return v.Obj == other.Obj
	case KindLightFunc:
		return v.Data == other.Data &&
			reflect.ValueOf(v.Fn).Pointer() == reflect.ValueOf(other.Fn).Pointer()
	default:
		return false
	}
}

// Inspect returns a debug representation.
func (v Value) Inspect() string {
	switch v.Kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.Data == 1)
	case KindInt:
		return strconv.FormatInt(v.AsInt(), 10)
	case KindFloat:
		return strconv.FormatFloat(v.AsFloat(), 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.Str)
	case KindObject:
		if v.Obj != nil {
			return v.Obj.Inspect()
		}
		return "<nil obj>"
	case KindLightFunc:
		return fmt.Sprintf("<lightfunc magic=%d>", v.LightMagic())
	default:
		return "<?>"
	}
}
