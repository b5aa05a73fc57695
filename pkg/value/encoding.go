package value

// SchemaEncoding is a closed sum of the schema encodings an MCAP channel may
// declare, plus an Unknown escape hatch for anything the registry has not
// been taught about.
type SchemaEncoding struct {
	tag     string
	unknown string
}

var (
	SchemaEncodingNone       = SchemaEncoding{tag: ""}
	SchemaEncodingProtobuf   = SchemaEncoding{tag: "protobuf"}
	SchemaEncodingFlatbuffer = SchemaEncoding{tag: "flatbuffer"}
	SchemaEncodingROS1Msg    = SchemaEncoding{tag: "ros1msg"}
	SchemaEncodingROS2Msg    = SchemaEncoding{tag: "ros2msg"}
	SchemaEncodingROS2IDL    = SchemaEncoding{tag: "ros2idl"}
	SchemaEncodingOMGIDL     = SchemaEncoding{tag: "omgidl"}
	SchemaEncodingJSONSchema = SchemaEncoding{tag: "jsonschema"}
)

var knownSchemaEncodings = map[string]SchemaEncoding{
	SchemaEncodingNone.tag:       SchemaEncodingNone,
	SchemaEncodingProtobuf.tag:   SchemaEncodingProtobuf,
	SchemaEncodingFlatbuffer.tag: SchemaEncodingFlatbuffer,
	SchemaEncodingROS1Msg.tag:    SchemaEncodingROS1Msg,
	SchemaEncodingROS2Msg.tag:    SchemaEncodingROS2Msg,
	SchemaEncodingROS2IDL.tag:    SchemaEncodingROS2IDL,
	SchemaEncodingOMGIDL.tag:     SchemaEncodingOMGIDL,
	SchemaEncodingJSONSchema.tag: SchemaEncodingJSONSchema,
}

// NewSchemaEncoding maps a raw MCAP schema_encoding string to its closed-sum
// member, or to Unknown(tag) if it is not recognized.
func NewSchemaEncoding(tag string) SchemaEncoding {
	if enc, ok := knownSchemaEncodings[tag]; ok {
		return enc
	}
	return SchemaEncoding{tag: "unknown", unknown: tag}
}

func (e SchemaEncoding) String() string {
	if e.tag == "unknown" {
		return e.unknown
	}
	return e.tag
}

func (e SchemaEncoding) IsUnknown() bool { return e.tag == "unknown" }

// MessageEncoding is a closed sum of the payload encodings an MCAP channel
// may declare, plus an Unknown escape hatch.
type MessageEncoding struct {
	tag     string
	unknown string
}

var (
	MessageEncodingROS1       = MessageEncoding{tag: "ros1"}
	MessageEncodingCDR        = MessageEncoding{tag: "cdr"}
	MessageEncodingProtobuf   = MessageEncoding{tag: "protobuf"}
	MessageEncodingFlatbuffer = MessageEncoding{tag: "flatbuffer"}
	MessageEncodingCBOR       = MessageEncoding{tag: "cbor"}
	MessageEncodingMsgpack    = MessageEncoding{tag: "msgpack"}
	MessageEncodingJSON       = MessageEncoding{tag: "json"}
)

var knownMessageEncodings = map[string]MessageEncoding{
	MessageEncodingROS1.tag:       MessageEncodingROS1,
	MessageEncodingCDR.tag:        MessageEncodingCDR,
	MessageEncodingProtobuf.tag:   MessageEncodingProtobuf,
	MessageEncodingFlatbuffer.tag: MessageEncodingFlatbuffer,
	MessageEncodingCBOR.tag:       MessageEncodingCBOR,
	MessageEncodingMsgpack.tag:    MessageEncodingMsgpack,
	MessageEncodingJSON.tag:       MessageEncodingJSON,
}

func NewMessageEncoding(tag string) MessageEncoding {
	if enc, ok := knownMessageEncodings[tag]; ok {
		return enc
	}
	return MessageEncoding{tag: "unknown", unknown: tag}
}

func (e MessageEncoding) String() string {
	if e.tag == "unknown" {
		return e.unknown
	}
	return e.tag
}

func (e MessageEncoding) IsUnknown() bool { return e.tag == "unknown" }

// EncodingKey identifies a decoder by the (schema_encoding, message_encoding)
// pair found on a channel. It is comparable and therefore usable as a map
// key directly; Unknown's payload participates in equality.
type EncodingKey struct {
	SchemaEncoding  SchemaEncoding
	MessageEncoding MessageEncoding
}

func NewEncodingKey(schemaEnc SchemaEncoding, msgEnc MessageEncoding) EncodingKey {
	return EncodingKey{SchemaEncoding: schemaEnc, MessageEncoding: msgEnc}
}

func (k EncodingKey) String() string {
	return k.SchemaEncoding.String() + "/" + k.MessageEncoding.String()
}
