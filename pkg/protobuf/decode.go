package protobuf

import (
	"fmt"
	"strconv"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/mcaperr"
	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/value"
)

// decodeFromDescriptor unmarshals messageBytes against an already-resolved
// MessageDescriptor. Both the topic decoder and any direct callers converge
// here so that FileDescriptorSet parsing is never repeated per message.
func decodeFromDescriptor(
	schemaName string,
	desc protoreflect.MessageDescriptor,
	messageBytes []byte,
	policy PresencePolicy,
) (value.Value, error) {
	msg := dynamicpb.NewMessage(desc)
	if err := proto.Unmarshal(messageBytes, msg); err != nil {
		return value.Value{}, mcaperr.MessageDecode(schemaName, err)
	}
	return messageToValue(msg, desc, policy)
}

func messageToValue(msg protoreflect.Message, desc protoreflect.MessageDescriptor, policy PresencePolicy) (value.Value, error) {
	fields := desc.Fields()
	children := make([]value.Value, fields.Len())
	for i := 0; i < fields.Len(); i++ {
		fd := fields.Get(i)
		if policy == PresenceAware && fd.HasPresence() && !msg.Has(fd) {
			children[i] = value.Null
			continue
		}
		child, err := protoValueToValue(msg.Get(fd), fd, policy)
		if err != nil {
			return value.Value{}, err
		}
		children[i] = child
	}
	return value.NewStruct(children), nil
}

func protoValueToValue(v protoreflect.Value, fd protoreflect.FieldDescriptor, policy PresencePolicy) (value.Value, error) {
	switch {
	case fd.IsMap():
		return mapToValue(v.Map(), fd, policy)
	case fd.IsList():
		return listToValue(v.List(), fd, policy)
	default:
		return scalarProtoValueToValue(v, fd, policy)
	}
}

func scalarProtoValueToValue(v protoreflect.Value, fd protoreflect.FieldDescriptor, policy PresencePolicy) (value.Value, error) {
	switch fd.Kind() {
	case protoreflect.DoubleKind:
		return value.NewF64(v.Float()), nil
	case protoreflect.FloatKind:
		return value.NewF32(float32(v.Float())), nil
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		return value.NewI32(int32(v.Int())), nil
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return value.NewI64(v.Int()), nil
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		return value.NewU32(uint32(v.Uint())), nil
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return value.NewU64(v.Uint()), nil
	case protoreflect.BoolKind:
		return value.NewBool(v.Bool()), nil
	case protoreflect.StringKind:
		return value.NewString(v.String()), nil
	case protoreflect.BytesKind:
		return value.NewBytes(append([]byte(nil), v.Bytes()...)), nil
	case protoreflect.EnumKind:
		return enumToValue(v.Enum(), fd.Enum()), nil
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return messageToValue(v.Message(), fd.Message(), policy)
	default:
		panic("unsupported protobuf field kind: " + fd.Kind().String())
	}
}

func enumToValue(n protoreflect.EnumNumber, ed protoreflect.EnumDescriptor) value.Value {
	if ev := ed.Values().ByNumber(n); ev != nil {
		return value.NewString(string(ev.Name()))
	}
	return value.NewString(strconv.FormatInt(int64(n), 10))
}

func listToValue(list protoreflect.List, fd protoreflect.FieldDescriptor, policy PresencePolicy) (value.Value, error) {
	items := make([]value.Value, list.Len())
	for i := 0; i < list.Len(); i++ {
		item, err := scalarProtoValueToValue(list.Get(i), fd, policy)
		if err != nil {
			return value.Value{}, err
		}
		items[i] = item
	}
	return value.NewList(items), nil
}

func mapToValue(m protoreflect.Map, fd protoreflect.FieldDescriptor, policy PresencePolicy) (value.Value, error) {
	entries := make([]value.MapEntry, 0, m.Len())
	// Protobuf map iteration order is undefined by the runtime; this
	// module preserves whatever order Range yields and does not sort.
	var rangeErr error
	m.Range(func(mk protoreflect.MapKey, v protoreflect.Value) bool {
		key, err := mapKeyToValue(mk, fd.MapKey())
		if err != nil {
			rangeErr = err
			return false
		}
		val, err := scalarProtoValueToValue(v, fd.MapValue(), policy)
		if err != nil {
			rangeErr = err
			return false
		}
		entries = append(entries, value.MapEntry{Key: key, Value: val})
		return true
	})
	if rangeErr != nil {
		return value.Value{}, rangeErr
	}
	return value.NewMap(entries), nil
}

// mapKeyToValue converts a map key under the protobuf map-key scalar sum.
// The topic decoder already rejects non-scalar key kinds when deriving the
// schema, but the check is repeated here so a direct caller holding an
// unvalidated descriptor gets SchemaInvalid instead of a panic.
func mapKeyToValue(mk protoreflect.MapKey, keyFd protoreflect.FieldDescriptor) (value.Value, error) {
	v := mk.Value()
	switch keyFd.Kind() {
	case protoreflect.BoolKind:
		return value.NewBool(v.Bool()), nil
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		return value.NewI32(int32(v.Int())), nil
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return value.NewI64(v.Int()), nil
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		return value.NewU32(uint32(v.Uint())), nil
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return value.NewU64(v.Uint()), nil
	case protoreflect.StringKind:
		return value.NewString(v.String()), nil
	default:
		return value.Value{}, mcaperr.SchemaInvalid(string(keyFd.FullName()),
			fmt.Sprintf("map key kind %v is not a scalar", keyFd.Kind()))
	}
}
