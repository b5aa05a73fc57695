package protobuf

import (
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/decoder"
	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/value"
)

// Decoder is the decoder.Factory for the (protobuf, protobuf) encoding
// pair: schema_encoding="protobuf", message_encoding="protobuf".
type Decoder struct {
	policy PresencePolicy
}

// New returns a Decoder using PresenceAware, the default policy.
func New() *Decoder {
	return &Decoder{policy: PresenceAware}
}

func NewWithPolicy(policy PresencePolicy) *Decoder {
	return &Decoder{policy: policy}
}

var _ decoder.Factory = (*Decoder)(nil)

func (d *Decoder) Key() value.EncodingKey {
	return value.NewEncodingKey(value.SchemaEncodingProtobuf, value.MessageEncodingProtobuf)
}

func (d *Decoder) BuildTopicDecoder(schemaName string, schemaBytes []byte) (decoder.TopicDecoder, error) {
	desc, err := parseMessageDescriptor(schemaName, schemaBytes)
	if err != nil {
		return nil, err
	}
	fieldDefs, err := messageFieldsToFieldDefs(desc, d.policy)
	if err != nil {
		return nil, err
	}
	return &topicDecoder{
		schemaName: schemaName,
		desc:       desc,
		fieldDefs:  fieldDefs,
		policy:     d.policy,
	}, nil
}

type topicDecoder struct {
	schemaName string
	desc       protoreflect.MessageDescriptor
	fieldDefs  value.FieldDefs
	policy     PresencePolicy
}

var _ decoder.TopicDecoder = (*topicDecoder)(nil)

func (t *topicDecoder) Decode(messageBytes []byte) (value.Value, error) {
	return decodeFromDescriptor(t.schemaName, t.desc, messageBytes, t.policy)
}

func (t *topicDecoder) FieldDefs() value.FieldDefs {
	return t.fieldDefs
}
