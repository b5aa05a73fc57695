// Package arrowschema maps the container-agnostic IR schema (value.FieldDefs)
// onto an Arrow columnar schema: the seam between the decoder-produced
// schema and the row appender in pkg/arrowrow.
package arrowschema

import (
	"fmt"

	"github.com/apache/arrow/go/v17/arrow"

	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/value"
)

// LogTimeField and PublishTimeField are the two columns prepended to every
// topic's body schema.
const (
	LogTimeField     = "@log_time"
	PublishTimeField = "@publish_time"
)

// timestampType is the nanosecond, UTC-offset timestamp type shared by both
// prepended columns.
var timestampType = &arrow.TimestampType{Unit: arrow.Nanosecond, TimeZone: "+00:00"}

// FieldDefsToArrowSchema walks fieldDefs and produces the matching Arrow
// schema for one topic's decoded message body, with no timestamp columns.
func FieldDefsToArrowSchema(fieldDefs value.FieldDefs) *arrow.Schema {
	return arrow.NewSchema(fieldDefsToFields(fieldDefs), nil)
}

// WithTimestampFields prepends the two non-nullable timestamp columns
// @log_time and @publish_time to bodySchema, in that order.
func WithTimestampFields(bodySchema *arrow.Schema) *arrow.Schema {
	fields := make([]arrow.Field, 0, bodySchema.NumFields()+2)
	fields = append(fields,
		arrow.Field{Name: LogTimeField, Type: timestampType, Nullable: false},
		arrow.Field{Name: PublishTimeField, Type: timestampType, Nullable: false},
	)
	fields = append(fields, bodySchema.Fields()...)
	return arrow.NewSchema(fields, nil)
}

func fieldDefsToFields(fieldDefs value.FieldDefs) []arrow.Field {
	fields := make([]arrow.Field, len(fieldDefs))
	for i, fd := range fieldDefs {
		fields[i] = elementDefToField(fd.Name, fd.Elem)
	}
	return fields
}

func elementDefToField(name string, elem value.ElementDef) arrow.Field {
	return arrow.Field{Name: name, Type: dataTypeDefToArrow(elem.Type), Nullable: elem.Nullable}
}

// dataTypeDefToArrow materializes one DataTypeDef into its Arrow equivalent.
// Unknown Kinds indicate a decoder emitted an IR node this builder was never
// taught about; that is a programmer error, not a recoverable one.
func dataTypeDefToArrow(dt value.DataTypeDef) arrow.DataType {
	switch dt.Kind {
	case value.KindBool:
		return arrow.FixedWidthTypes.Boolean
	case value.KindI8:
		return arrow.PrimitiveTypes.Int8
	case value.KindI16:
		return arrow.PrimitiveTypes.Int16
	case value.KindI32:
		return arrow.PrimitiveTypes.Int32
	case value.KindI64:
		return arrow.PrimitiveTypes.Int64
	case value.KindU8:
		return arrow.PrimitiveTypes.Uint8
	case value.KindU16:
		return arrow.PrimitiveTypes.Uint16
	case value.KindU32:
		return arrow.PrimitiveTypes.Uint32
	case value.KindU64:
		return arrow.PrimitiveTypes.Uint64
	case value.KindF32:
		return arrow.PrimitiveTypes.Float32
	case value.KindF64:
		return arrow.PrimitiveTypes.Float64
	case value.KindString:
		return arrow.BinaryTypes.String
	case value.KindBytes:
		return arrow.BinaryTypes.Binary
	case value.KindStruct:
		return arrow.StructOf(fieldDefsToFields(dt.Fields)...)
	case value.KindList:
		item := elementDefToField("item", *dt.Elem)
		return arrow.ListOfField(item)
	case value.KindArray:
		item := elementDefToField("item", *dt.Elem)
		return arrow.FixedSizeListOfField(int32(dt.Size), item)
	case value.KindMap:
		keyType := dataTypeDefToArrow(dt.Key.Type)
		valType := dataTypeDefToArrow(dt.Value.Type)
		mapType := arrow.MapOf(keyType, valType)
		mapType.SetItemNullable(dt.Value.Nullable)
		return mapType
	default:
		panic(fmt.Sprintf("arrowschema: unsupported DataTypeDef kind %s", dt.Kind))
	}
}
