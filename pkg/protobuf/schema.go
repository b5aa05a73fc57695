package protobuf

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/mcaperr"
	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/value"
)

// parseMessageDescriptor decodes schemaBytes as a FileDescriptorSet and
// resolves schemaName within it. This is the once-per-topic schema parse
// the registry contract requires.
func parseMessageDescriptor(schemaName string, schemaBytes []byte) (protoreflect.MessageDescriptor, error) {
	var fds descriptorpb.FileDescriptorSet
	if err := proto.Unmarshal(schemaBytes, &fds); err != nil {
		return nil, mcaperr.SchemaParse(schemaName, err)
	}

	files, err := protodesc.NewFiles(&fds)
	if err != nil {
		return nil, mcaperr.SchemaParse(schemaName, err)
	}

	desc, err := files.FindDescriptorByName(protoreflect.FullName(schemaName))
	if err != nil {
		return nil, mcaperr.SchemaInvalid(schemaName, fmt.Sprintf("message descriptor not found: %v", err))
	}

	md, ok := desc.(protoreflect.MessageDescriptor)
	if !ok {
		return nil, mcaperr.SchemaInvalid(schemaName, "descriptor is not a message")
	}
	return md, nil
}

// messageFieldsToFieldDefs derives the Arrow-independent FieldDefs for one
// message descriptor under the given presence policy. Schema bytes come
// straight out of the container, so structural problems a generated
// descriptor could never carry (e.g. a non-scalar map key) are reported as
// SchemaInvalid here, before any message is decoded.
func messageFieldsToFieldDefs(desc protoreflect.MessageDescriptor, policy PresencePolicy) (value.FieldDefs, error) {
	fields := desc.Fields()
	defs := make(value.FieldDefs, 0, fields.Len())
	for i := 0; i < fields.Len(); i++ {
		def, err := fieldDescriptorToFieldDef(fields.Get(i), policy)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func fieldDescriptorToFieldDef(fd protoreflect.FieldDescriptor, policy PresencePolicy) (value.FieldDef, error) {
	var dt value.DataTypeDef

	switch {
	case fd.IsMap():
		keyDT, err := mapKeyDataTypeDef(fd.MapKey())
		if err != nil {
			return value.FieldDef{}, err
		}
		valDT, err := kindToDataTypeDef(fd.MapValue(), policy)
		if err != nil {
			return value.FieldDef{}, err
		}
		dt = value.MapType(
			value.ElementDef{Type: keyDT, Nullable: false},
			value.ElementDef{Type: valDT, Nullable: false},
		)
	case fd.IsList():
		inner, err := kindToDataTypeDef(fd, policy)
		if err != nil {
			return value.FieldDef{}, err
		}
		dt = value.ListType(value.ElementDef{Type: inner, Nullable: false})
	default:
		var err error
		dt, err = kindToDataTypeDef(fd, policy)
		if err != nil {
			return value.FieldDef{}, err
		}
	}

	nullable := policy == PresenceAware && fd.HasPresence()
	return value.FieldDef{
		Name: string(fd.Name()),
		Elem: value.ElementDef{Type: dt, Nullable: nullable},
	}, nil
}

func kindToDataTypeDef(fd protoreflect.FieldDescriptor, policy PresencePolicy) (value.DataTypeDef, error) {
	switch fd.Kind() {
	case protoreflect.DoubleKind:
		return value.Primitive(value.KindF64), nil
	case protoreflect.FloatKind:
		return value.Primitive(value.KindF32), nil
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		return value.Primitive(value.KindI32), nil
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return value.Primitive(value.KindI64), nil
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		return value.Primitive(value.KindU32), nil
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return value.Primitive(value.KindU64), nil
	case protoreflect.BoolKind:
		return value.Primitive(value.KindBool), nil
	case protoreflect.StringKind:
		return value.Primitive(value.KindString), nil
	case protoreflect.BytesKind:
		return value.Primitive(value.KindBytes), nil
	case protoreflect.EnumKind:
		return value.Primitive(value.KindString), nil
	case protoreflect.MessageKind, protoreflect.GroupKind:
		fields, err := messageFieldsToFieldDefs(fd.Message(), policy)
		if err != nil {
			return value.DataTypeDef{}, err
		}
		return value.StructType(fields), nil
	default:
		panic(fmt.Sprintf("unsupported protobuf field kind: %v", fd.Kind()))
	}
}

// mapKeyDataTypeDef admits only the scalar kinds a protobuf map key may
// carry. Schema bytes are untrusted container input, so a descriptor
// declaring any other key kind is a schema-level failure, not a panic.
func mapKeyDataTypeDef(fd protoreflect.FieldDescriptor) (value.DataTypeDef, error) {
	switch fd.Kind() {
	case protoreflect.BoolKind:
		return value.Primitive(value.KindBool), nil
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		return value.Primitive(value.KindI32), nil
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return value.Primitive(value.KindI64), nil
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		return value.Primitive(value.KindU32), nil
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return value.Primitive(value.KindU64), nil
	case protoreflect.StringKind:
		return value.Primitive(value.KindString), nil
	default:
		return value.DataTypeDef{}, mcaperr.SchemaInvalid(string(fd.FullName()),
			fmt.Sprintf("map key kind %v is not a scalar", fd.Kind()))
	}
}
