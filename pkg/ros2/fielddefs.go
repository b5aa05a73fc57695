package ros2

import "github.com/ClusterCockpit/cc-mcap2arrow/pkg/value"

// FieldDefsForRoot converts the root struct of a ResolvedSchema into
// Arrow-independent FieldDefs. ROS 2 fields have no explicit nullability
// concept on the wire, so every field is non-nullable; Array/Sequence
// element nullability mirrors that.
func FieldDefsForRoot(schema *ResolvedSchema) value.FieldDefs {
	root := schema.Structs[schema.Root.Key()]
	return structFieldDefs(schema, root)
}

func structFieldDefs(schema *ResolvedSchema, s ResolvedStructDef) value.FieldDefs {
	defs := make(value.FieldDefs, 0, len(s.Fields))
	for _, f := range s.Fields {
		elemType := resolvedTypeToDataTypeDef(schema, f.Type)
		if f.FixedLen != nil {
			elemType = value.ArrayType(value.ElementDef{Type: elemType, Nullable: false}, *f.FixedLen)
		}
		defs = append(defs, value.FieldDef{
			Name: f.Name,
			Elem: value.ElementDef{Type: elemType, Nullable: false},
		})
	}
	return defs
}

func resolvedTypeToDataTypeDef(schema *ResolvedSchema, ty ResolvedType) value.DataTypeDef {
	switch ty.Kind {
	case ResolvedPrimitive:
		return value.Primitive(primitiveKind(ty.Primitive))
	case ResolvedBoundedString, ResolvedBoundedWString, ResolvedEnum:
		return value.Primitive(value.KindString)
	case ResolvedStruct:
		return value.StructType(structFieldDefs(schema, schema.Structs[ty.Name.Key()]))
	case ResolvedSequence:
		elemDT := resolvedTypeToDataTypeDef(schema, *ty.SeqElem)
		return value.ListType(value.ElementDef{Type: elemDT, Nullable: false})
	default:
		panic("unknown ResolvedType kind in FieldDefsForRoot")
	}
}

func primitiveKind(p PrimitiveType) value.Kind {
	switch p {
	case PrimBool:
		return value.KindBool
	case PrimI8:
		return value.KindI8
	case PrimI16:
		return value.KindI16
	case PrimI32:
		return value.KindI32
	case PrimI64:
		return value.KindI64
	case PrimU8, PrimOctet:
		return value.KindU8
	case PrimU16:
		return value.KindU16
	case PrimU32:
		return value.KindU32
	case PrimU64:
		return value.KindU64
	case PrimF32:
		return value.KindF32
	case PrimF64:
		return value.KindF64
	case PrimString, PrimWString:
		return value.KindString
	default:
		panic("unknown ROS 2 primitive type")
	}
}
