// Package arrowrow appends decoded messages (value.DecodedMessage) into
// an Arrow record batch over a schema produced by pkg/arrowschema. It
// is the single place in the module that knows how to drive Arrow's builder
// API from the container-agnostic Value tree.
package arrowrow

import (
	"math"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/mcaperr"
	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/value"
)

// listValueReserveFactor amortizes capacity for variable-length children
// (List and Map) that have no fixed width to size against.
const listValueReserveFactor = 4

// BuildRecordBatch drains rows into a single Arrow record. schema must carry
// the two prepended timestamp columns (see arrowschema.WithTimestampFields);
// fieldDefs describes the body columns that follow them, in the same order.
// The caller owns the returned record and must Release it.
func BuildRecordBatch(mem memory.Allocator, schema *arrow.Schema, fieldDefs value.FieldDefs, rows []value.DecodedMessage) (arrow.Record, error) {
	if len(rows) == 0 {
		return nil, mcaperr.EmptyRows()
	}
	if mem == nil {
		mem = memory.NewGoAllocator()
	}

	rb := array.NewRecordBuilder(mem, schema)
	defer rb.Release()

	logTimeBuilder, ok := rb.Field(0).(*array.TimestampBuilder)
	if !ok {
		panic("arrowrow: schema field 0 is not the @log_time timestamp column")
	}
	pubTimeBuilder, ok := rb.Field(1).(*array.TimestampBuilder)
	if !ok {
		panic("arrowrow: schema field 1 is not the @publish_time timestamp column")
	}
	logTimeBuilder.Reserve(len(rows))
	pubTimeBuilder.Reserve(len(rows))
	for i, fd := range fieldDefs {
		reserveCapacity(rb.Field(i+2), fd.Elem.Type, len(rows))
	}

	for _, row := range rows {
		logTs, err := toTimestamp(row.LogTime)
		if err != nil {
			return nil, err
		}
		pubTs, err := toTimestamp(row.PublishTime)
		if err != nil {
			return nil, err
		}
		logTimeBuilder.Append(logTs)
		pubTimeBuilder.Append(pubTs)

		if err := appendBody(rb, fieldDefs, row.Value); err != nil {
			return nil, err
		}
	}

	return rb.NewRecord(), nil
}

func appendBody(rb *array.RecordBuilder, fieldDefs value.FieldDefs, body value.Value) error {
	if body.IsNull() {
		for i, fd := range fieldDefs {
			if err := appendValue(rb.Field(i+2), fd.Elem.Type, value.Null); err != nil {
				return err
			}
		}
		return nil
	}
	if body.Kind != value.KindStruct {
		return mcaperr.ValueType("Struct", body.Kind.String())
	}
	for i, fd := range fieldDefs {
		child := value.Null
		if i < len(body.Struct) {
			child = body.Struct[i]
		}
		if err := appendValue(rb.Field(i+2), fd.Elem.Type, child); err != nil {
			return err
		}
	}
	return nil
}

func toTimestamp(nanos uint64) (arrow.Timestamp, error) {
	if nanos > uint64(math.MaxInt64) {
		return 0, mcaperr.New(mcaperr.KindValueType, "message timestamp overflows int64 nanoseconds")
	}
	return arrow.Timestamp(int64(nanos)), nil
}

// appendValue dispatches one Value against the DataTypeDef its destination
// builder was constructed from. A builder type assertion failure here means
// the builder tree (built by pkg/arrowschema) and fieldDefs have drifted
// apart, which is a wiring bug in this module, not a bad input — it panics
// rather than returning an error.
func appendValue(b array.Builder, dt value.DataTypeDef, v value.Value) error {
	if v.IsNull() {
		b.AppendNull()
		return nil
	}
	switch dt.Kind {
	case value.KindBool:
		if v.Kind != value.KindBool {
			return mcaperr.ValueType("Bool", v.Kind.String())
		}
		b.(*array.BooleanBuilder).Append(v.Bool)
	case value.KindI8:
		if v.Kind != value.KindI8 {
			return mcaperr.ValueType("I8", v.Kind.String())
		}
		b.(*array.Int8Builder).Append(int8(v.I64))
	case value.KindI16:
		if v.Kind != value.KindI16 {
			return mcaperr.ValueType("I16", v.Kind.String())
		}
		b.(*array.Int16Builder).Append(int16(v.I64))
	case value.KindI32:
		if v.Kind != value.KindI32 {
			return mcaperr.ValueType("I32", v.Kind.String())
		}
		b.(*array.Int32Builder).Append(int32(v.I64))
	case value.KindI64:
		if v.Kind != value.KindI64 {
			return mcaperr.ValueType("I64", v.Kind.String())
		}
		b.(*array.Int64Builder).Append(v.I64)
	case value.KindU8:
		if v.Kind != value.KindU8 {
			return mcaperr.ValueType("U8", v.Kind.String())
		}
		b.(*array.Uint8Builder).Append(uint8(v.U64))
	case value.KindU16:
		if v.Kind != value.KindU16 {
			return mcaperr.ValueType("U16", v.Kind.String())
		}
		b.(*array.Uint16Builder).Append(uint16(v.U64))
	case value.KindU32:
		if v.Kind != value.KindU32 {
			return mcaperr.ValueType("U32", v.Kind.String())
		}
		b.(*array.Uint32Builder).Append(uint32(v.U64))
	case value.KindU64:
		if v.Kind != value.KindU64 {
			return mcaperr.ValueType("U64", v.Kind.String())
		}
		b.(*array.Uint64Builder).Append(v.U64)
	case value.KindF32:
		if v.Kind != value.KindF32 {
			return mcaperr.ValueType("F32", v.Kind.String())
		}
		b.(*array.Float32Builder).Append(v.F32)
	case value.KindF64:
		if v.Kind != value.KindF64 {
			return mcaperr.ValueType("F64", v.Kind.String())
		}
		b.(*array.Float64Builder).Append(v.F64)
	case value.KindString:
		if v.Kind != value.KindString {
			return mcaperr.ValueType("String", v.Kind.String())
		}
		b.(*array.StringBuilder).Append(v.Str)
	case value.KindBytes:
		if v.Kind != value.KindBytes {
			return mcaperr.ValueType("Bytes", v.Kind.String())
		}
		b.(*array.BinaryBuilder).Append(v.Bytes)
	case value.KindStruct:
		return appendStruct(b.(*array.StructBuilder), dt.Fields, v)
	case value.KindList:
		return appendList(b.(*array.ListBuilder), dt.Elem.Type, v)
	case value.KindArray:
		return appendArray(b.(*array.FixedSizeListBuilder), dt.Elem.Type, dt.Size, v)
	case value.KindMap:
		return appendMap(b.(*array.MapBuilder), dt.Key.Type, dt.Value.Type, v)
	default:
		panic("arrowrow: unsupported DataTypeDef kind " + dt.Kind.String())
	}
	return nil
}

func appendStruct(b *array.StructBuilder, fields value.FieldDefs, v value.Value) error {
	if v.Kind != value.KindStruct {
		return mcaperr.ValueType("Struct", v.Kind.String())
	}
	b.Append(true)
	for i, fd := range fields {
		child := value.Null
		if i < len(v.Struct) {
			child = v.Struct[i]
		}
		if err := appendValue(b.FieldBuilder(i), fd.Elem.Type, child); err != nil {
			return err
		}
	}
	return nil
}

func appendList(b *array.ListBuilder, elemType value.DataTypeDef, v value.Value) error {
	if v.Kind != value.KindList {
		return mcaperr.ValueType("List", v.Kind.String())
	}
	b.Append(true)
	vb := b.ValueBuilder()
	for _, item := range v.List {
		if err := appendValue(vb, elemType, item); err != nil {
			return err
		}
	}
	return nil
}

func appendArray(b *array.FixedSizeListBuilder, elemType value.DataTypeDef, size int, v value.Value) error {
	if v.Kind != value.KindArray {
		return mcaperr.ValueType("Array", v.Kind.String())
	}
	if len(v.Array) != size {
		return mcaperr.FixedSizeLengthMismatch(size, len(v.Array))
	}
	b.Append(true)
	vb := b.ValueBuilder()
	for _, item := range v.Array {
		if err := appendValue(vb, elemType, item); err != nil {
			return err
		}
	}
	return nil
}

func appendMap(b *array.MapBuilder, keyType, valType value.DataTypeDef, v value.Value) error {
	if v.Kind != value.KindMap {
		return mcaperr.ValueType("Map", v.Kind.String())
	}
	b.Append(true)
	kb := b.KeyBuilder()
	ib := b.ItemBuilder()
	for _, entry := range v.Map {
		if err := appendValue(kb, keyType, entry.Key); err != nil {
			return err
		}
		if err := appendValue(ib, valType, entry.Value); err != nil {
			return err
		}
	}
	return nil
}

// reserveCapacity pre-sizes the builder tree against an expected row count.
// Lists and maps have no fixed width, so their value builders are reserved
// at a multiple of the row count as an amortization hint rather than an
// exact figure; FixedSizeList children are reserved exactly, since their
// width is fixed by the schema.
func reserveCapacity(b array.Builder, dt value.DataTypeDef, n int) {
	b.Reserve(n)
	switch dt.Kind {
	case value.KindStruct:
		sb := b.(*array.StructBuilder)
		for i, fd := range dt.Fields {
			reserveCapacity(sb.FieldBuilder(i), fd.Elem.Type, n)
		}
	case value.KindList:
		lb := b.(*array.ListBuilder)
		reserveCapacity(lb.ValueBuilder(), dt.Elem.Type, n*listValueReserveFactor)
	case value.KindArray:
		ab := b.(*array.FixedSizeListBuilder)
		reserveCapacity(ab.ValueBuilder(), dt.Elem.Type, n*dt.Size)
	case value.KindMap:
		mb := b.(*array.MapBuilder)
		reserveCapacity(mb.KeyBuilder(), dt.Key.Type, n*listValueReserveFactor)
		reserveCapacity(mb.ItemBuilder(), dt.Value.Type, n*listValueReserveFactor)
	}
}
