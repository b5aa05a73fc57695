// Package protobuf decodes MCAP channels whose schema_encoding is
// "protobuf": the schema bytes are a serialized FileDescriptorSet and the
// schema name is the fully qualified message name within it.
package protobuf

// PresencePolicy controls how protobuf field presence maps onto IR
// nullability and onto Null-vs-default decoding.
type PresencePolicy int

const (
	// PresenceAware (the default): fields that support presence (proto3
	// optional, singular message fields, oneof members) decode to
	// Value.Null when unset, and are marked nullable=true in the
	// derived schema.
	PresenceAware PresencePolicy = iota

	// AlwaysDefault: legacy behavior. Every field is decoded via
	// protobuf default semantics and marked nullable=false in the
	// derived schema, regardless of presence support.
	AlwaysDefault
)

func (p PresencePolicy) String() string {
	if p == AlwaysDefault {
		return "always_default"
	}
	return "presence_aware"
}
