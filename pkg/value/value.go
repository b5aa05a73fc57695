// Package value defines the container-agnostic intermediate representation
// shared by every schema decoder and by the Arrow row appender. Nothing in
// this package knows about MCAP, protobuf, or ROS 2: it is the seam that
// keeps those concerns decoupled from the columnar builder.
package value

import "fmt"

// Kind tags the variant carried by a Value or a DataTypeDef. The two
// enumerations are kept in lockstep: every Value variant has a matching
// DataTypeDef variant of the same Kind.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindI8
	KindI16
	KindI32
	KindI64
	KindU8
	KindU16
	KindU32
	KindU64
	KindF32
	KindF64
	KindString
	KindBytes
	KindStruct
	KindList
	KindArray
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "Null"
	case KindBool:
		return "Bool"
	case KindI8:
		return "I8"
	case KindI16:
		return "I16"
	case KindI32:
		return "I32"
	case KindI64:
		return "I64"
	case KindU8:
		return "U8"
	case KindU16:
		return "U16"
	case KindU32:
		return "U32"
	case KindU64:
		return "U64"
	case KindF32:
		return "F32"
	case KindF64:
		return "F64"
	case KindString:
		return "String"
	case KindBytes:
		return "Bytes"
	case KindStruct:
		return "Struct"
	case KindList:
		return "List"
	case KindArray:
		return "Array"
	case KindMap:
		return "Map"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// MapEntry is a single (key, value) pair inside a Value.Map. Order is
// whatever the producing decoder happened to emit; consumers must not rely
// on it (protobuf map iteration order is undefined by the runtime).
type MapEntry struct {
	Key   Value
	Value Value
}

// Value is a tagged sum produced by every decoder. Only the field matching
// Kind is meaningful; all others are zero. Compound variants (Struct, List,
// Array, Map) own their children outright — there is no sharing and no
// cycle anywhere in a Value tree, so trees can be walked, cloned, or dropped
// without cycle detection.
type Value struct {
	Kind Kind

	Bool bool
	I64  int64  // I8, I16, I32, I64 all stored widened; width tracked by Kind
	U64  uint64 // U8, U16, U32, U64 all stored widened; width tracked by Kind
	F32  float32
	F64  float64

	// String and Bytes are shared-immutable: callers must treat the
	// backing array as read-only so Value trees can be cheaply retained
	// or copied across row batches.
	Str   string
	Bytes []byte

	Struct []Value
	List   []Value
	Array  []Value
	Map    []MapEntry
}

// Null is the sole encoding of "absent" for any nullable schema node.
var Null = Value{Kind: KindNull}

func NewBool(v bool) Value { return Value{Kind: KindBool, Bool: v} }
func NewI8(v int8) Value { return Value{Kind: KindI8, I64: int64(v)} }
func NewI16(v int16) Value { return Value{Kind: KindI16, I64: int64(v)} }
func NewI32(v int32) Value { return Value{Kind: KindI32, I64: int64(v)} }
func NewI64(v int64) Value { return Value{Kind: KindI64, I64: v} }
func NewU8(v uint8) Value { return Value{Kind: KindU8, U64: uint64(v)} }
func NewU16(v uint16) Value { return Value{Kind: KindU16, U64: uint64(v)} }
func NewU32(v uint32) Value { return Value{Kind: KindU32, U64: uint64(v)} }
func NewU64(v uint64) Value { return Value{Kind: KindU64, U64: v} }
func NewF32(v float32) Value { return Value{Kind: KindF32, F32: v} }
func NewF64(v float64) Value { return Value{Kind: KindF64, F64: v} }
func NewString(v string) Value { return Value{Kind: KindString, Str: v} }
func NewBytes(v []byte) Value { return Value{Kind: KindBytes, Bytes: v} }
func NewStruct(v []Value) Value { return Value{Kind: KindStruct, Struct: v} }
func NewList(v []Value) Value { return Value{Kind: KindList, List: v} }
func NewArray(v []Value) Value { return Value{Kind: KindArray, Array: v} }
func NewMap(v []MapEntry) Value { return Value{Kind: KindMap, Map: v} }
func (v Value) IsNull() bool { return v.Kind == KindNull }
