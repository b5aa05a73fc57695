package arrowrow

import (
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/arrowschema"
	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/mcaperr"
	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/value"
)

func scalarFieldDefs() value.FieldDefs {
	return value.FieldDefs{
		{Name: "id", Elem: value.ElementDef{Type: value.Primitive(value.KindU32)}},
		{Name: "label", Elem: value.ElementDef{Type: value.Primitive(value.KindString), Nullable: true}},
	}
}

func TestBuildRecordBatch_Scalars(t *testing.T) {
	fieldDefs := scalarFieldDefs()
	schema := arrowschema.WithTimestampFields(arrowschema.FieldDefsToArrowSchema(fieldDefs))

	rows := []value.DecodedMessage{
		{LogTime: 1000, PublishTime: 2000, Value: value.NewStruct([]value.Value{value.NewU32(1), value.NewString("a")})},
		{LogTime: 1500, PublishTime: 2500, Value: value.NewStruct([]value.Value{value.NewU32(2), value.Null})},
	}

	rec, err := BuildRecordBatch(memory.NewGoAllocator(), schema, fieldDefs, rows)
	require.NoError(t, err)
	defer rec.Release()

	require.Equal(t, int64(2), rec.NumRows())
	idCol := rec.Column(2).(*array.Uint32)
	require.Equal(t, uint32(1), idCol.Value(0))
	require.Equal(t, uint32(2), idCol.Value(1))

	labelCol := rec.Column(3).(*array.String)
	require.Equal(t, "a", labelCol.Value(0))
	require.True(t, labelCol.IsNull(1))

	logTimeCol := rec.Column(0).(*array.Timestamp)
	require.Equal(t, arrow.Timestamp(1000), logTimeCol.Value(0))
	pubTimeCol := rec.Column(1).(*array.Timestamp)
	require.Equal(t, arrow.Timestamp(2500), pubTimeCol.Value(1))
}

func TestBuildRecordBatch_EmptyRows(t *testing.T) {
	fieldDefs := scalarFieldDefs()
	schema := arrowschema.WithTimestampFields(arrowschema.FieldDefsToArrowSchema(fieldDefs))

	_, err := BuildRecordBatch(memory.NewGoAllocator(), schema, fieldDefs, nil)
	require.Error(t, err)
	require.True(t, mcaperr.Is(err, mcaperr.KindEmptyRows))
}

func TestBuildRecordBatch_NullStructRow(t *testing.T) {
	fieldDefs := scalarFieldDefs()
	schema := arrowschema.WithTimestampFields(arrowschema.FieldDefsToArrowSchema(fieldDefs))

	rows := []value.DecodedMessage{
		{LogTime: 10, PublishTime: 20, Value: value.Null},
	}

	rec, err := BuildRecordBatch(memory.NewGoAllocator(), schema, fieldDefs, rows)
	require.NoError(t, err)
	defer rec.Release()

	require.True(t, rec.Column(2).IsNull(0))
	require.True(t, rec.Column(3).IsNull(0))
}

func TestBuildRecordBatch_NestedStructListArrayMap(t *testing.T) {
	fieldDefs := value.FieldDefs{
		{Name: "point", Elem: value.ElementDef{Type: value.StructType(value.FieldDefs{
			{Name: "x", Elem: value.ElementDef{Type: value.Primitive(value.KindF64)}},
			{Name: "y", Elem: value.ElementDef{Type: value.Primitive(value.KindF64)}},
		})}},
		{Name: "tags", Elem: value.ElementDef{Type: value.ListType(value.ElementDef{Type: value.Primitive(value.KindString)})}},
		{Name: "fixed", Elem: value.ElementDef{Type: value.ArrayType(value.ElementDef{Type: value.Primitive(value.KindU8)}, 3)}},
		{Name: "attrs", Elem: value.ElementDef{Type: value.MapType(
			value.ElementDef{Type: value.Primitive(value.KindString)},
			value.ElementDef{Type: value.Primitive(value.KindI32)},
		)}},
	}
	schema := arrowschema.WithTimestampFields(arrowschema.FieldDefsToArrowSchema(fieldDefs))

	body := value.NewStruct([]value.Value{
		value.NewStruct([]value.Value{value.NewF64(1.5), value.NewF64(2.5)}),
		value.NewList([]value.Value{value.NewString("a"), value.NewString("b")}),
		value.NewArray([]value.Value{value.NewU8(1), value.NewU8(2), value.NewU8(3)}),
		value.NewMap([]value.MapEntry{{Key: value.NewString("k"), Value: value.NewI32(7)}}),
	})

	rec, err := BuildRecordBatch(memory.NewGoAllocator(), schema, fieldDefs, []value.DecodedMessage{
		{LogTime: 1, PublishTime: 2, Value: body},
	})
	require.NoError(t, err)
	defer rec.Release()

	structCol := rec.Column(2).(*array.Struct)
	require.Equal(t, 1.5, structCol.Field(0).(*array.Float64).Value(0))

	listCol := rec.Column(3).(*array.List)
	offsets := listCol.Offsets()
	require.Equal(t, int32(0), offsets[0])
	require.Equal(t, int32(2), offsets[1])

	fixedCol := rec.Column(4).(*array.FixedSizeList)
	require.Equal(t, uint8(1), fixedCol.ListValues().(*array.Uint8).Value(0))

	mapCol := rec.Column(5).(*array.Map)
	require.Equal(t, "k", mapCol.Keys().(*array.String).Value(0))
	require.Equal(t, int32(7), mapCol.Items().(*array.Int32).Value(0))
}

func TestBuildRecordBatch_MixedTypesAcrossRows(t *testing.T) {
	nullable := func(dt value.DataTypeDef) value.ElementDef {
		return value.ElementDef{Type: dt, Nullable: true}
	}
	fieldDefs := value.FieldDefs{
		{Name: "scalar_i32", Elem: nullable(value.Primitive(value.KindI32))},
		{Name: "list_i32", Elem: nullable(value.ListType(nullable(value.Primitive(value.KindI32))))},
		{Name: "arr_f32", Elem: nullable(value.ArrayType(nullable(value.Primitive(value.KindF32)), 3))},
		{Name: "arr_f64", Elem: nullable(value.ArrayType(nullable(value.Primitive(value.KindF64)), 2))},
		{Name: "map_str_i32", Elem: nullable(value.MapType(
			value.ElementDef{Type: value.Primitive(value.KindString)},
			nullable(value.Primitive(value.KindI32)),
		))},
		{Name: "nested", Elem: nullable(value.StructType(value.FieldDefs{
			{Name: "a", Elem: nullable(value.Primitive(value.KindI32))},
			{Name: "b", Elem: nullable(value.Primitive(value.KindString))},
		}))},
	}
	schema := arrowschema.WithTimestampFields(arrowschema.FieldDefsToArrowSchema(fieldDefs))

	rows := []value.DecodedMessage{
		{LogTime: 1, PublishTime: 10, Value: value.NewStruct([]value.Value{
			value.NewI32(42),
			value.NewList([]value.Value{value.NewI32(1), value.NewI32(2)}),
			value.NewArray([]value.Value{value.NewF32(1), value.NewF32(2), value.NewF32(3)}),
			value.NewArray([]value.Value{value.NewF64(10), value.NewF64(20)}),
			value.NewMap([]value.MapEntry{
				{Key: value.NewString("k1"), Value: value.NewI32(11)},
				{Key: value.NewString("k2"), Value: value.NewI32(22)},
			}),
			value.NewStruct([]value.Value{value.NewI32(7), value.NewString("ok")}),
		})},
		{LogTime: 2, PublishTime: 20, Value: value.NewStruct([]value.Value{
			value.Null,
			value.Null,
			value.Null,
			value.Null,
			value.NewMap(nil),
			value.NewStruct([]value.Value{value.Null, value.NewString("row2")}),
		})},
		{LogTime: 3, PublishTime: 30, Value: value.Null},
	}

	rec, err := BuildRecordBatch(memory.NewGoAllocator(), schema, fieldDefs, rows)
	require.NoError(t, err)
	defer rec.Release()

	require.Equal(t, int64(3), rec.NumRows())
	require.Equal(t, int64(8), rec.NumCols())

	logTimes := rec.Column(0).(*array.Timestamp)
	for i, want := range []arrow.Timestamp{1, 2, 3} {
		require.Equal(t, want, logTimes.Value(i))
	}

	scalarCol := rec.Column(2).(*array.Int32)
	require.Equal(t, int32(42), scalarCol.Value(0))
	require.True(t, scalarCol.IsNull(1))
	require.True(t, scalarCol.IsNull(2))

	arrF32 := rec.Column(4).(*array.FixedSizeList)
	require.True(t, arrF32.IsNull(1))
	require.True(t, arrF32.IsNull(2))
	f32Values := arrF32.ListValues().(*array.Float32)
	require.Equal(t, 9, f32Values.Len())
	for i, want := range []float32{1, 2, 3} {
		require.Equal(t, want, f32Values.Value(i))
	}
	for i := 3; i < 9; i++ {
		require.True(t, f32Values.IsNull(i))
	}

	mapCol := rec.Column(6).(*array.Map)
	require.False(t, mapCol.IsNull(1)) // empty map, not a null map
	require.True(t, mapCol.IsNull(2))
	require.Equal(t, "k1", mapCol.Keys().(*array.String).Value(0))
	require.Equal(t, int32(22), mapCol.Items().(*array.Int32).Value(1))

	nestedCol := rec.Column(7).(*array.Struct)
	require.True(t, nestedCol.IsNull(2))
	require.Equal(t, int32(7), nestedCol.Field(0).(*array.Int32).Value(0))
	require.True(t, nestedCol.Field(0).(*array.Int32).IsNull(1))
	require.Equal(t, "row2", nestedCol.Field(1).(*array.String).Value(1))
}

func TestBuildRecordBatch_FixedSizeLengthMismatch(t *testing.T) {
	fieldDefs := value.FieldDefs{
		{Name: "fixed", Elem: value.ElementDef{Type: value.ArrayType(value.ElementDef{Type: value.Primitive(value.KindU8)}, 3)}},
	}
	schema := arrowschema.WithTimestampFields(arrowschema.FieldDefsToArrowSchema(fieldDefs))

	body := value.NewStruct([]value.Value{
		value.NewArray([]value.Value{value.NewU8(1), value.NewU8(2)}),
	})

	_, err := BuildRecordBatch(memory.NewGoAllocator(), schema, fieldDefs, []value.DecodedMessage{
		{LogTime: 1, PublishTime: 2, Value: body},
	})
	require.Error(t, err)
	require.True(t, mcaperr.Is(err, mcaperr.KindValueType))
}

func TestBuildRecordBatch_ValueTypeMismatch(t *testing.T) {
	fieldDefs := scalarFieldDefs()
	schema := arrowschema.WithTimestampFields(arrowschema.FieldDefsToArrowSchema(fieldDefs))

	body := value.NewStruct([]value.Value{value.NewString("not a u32"), value.Null})

	_, err := BuildRecordBatch(memory.NewGoAllocator(), schema, fieldDefs, []value.DecodedMessage{
		{LogTime: 1, PublishTime: 2, Value: body},
	})
	require.Error(t, err)
	require.True(t, mcaperr.Is(err, mcaperr.KindValueType))
}
