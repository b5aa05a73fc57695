package jsonschema

import (
	"encoding/json"

	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/decoder"
	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/mcaperr"
	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/value"
)

// Decoder is the decoder.Factory for the (jsonschema, json) encoding pair.
type Decoder struct{}

func New() *Decoder { return &Decoder{} }

var _ decoder.Factory = (*Decoder)(nil)

func (d *Decoder) Key() value.EncodingKey {
	return value.NewEncodingKey(value.SchemaEncodingJSONSchema, value.MessageEncodingJSON)
}

func (d *Decoder) BuildTopicDecoder(schemaName string, schemaBytes []byte) (decoder.TopicDecoder, error) {
	compiled, err := compile(schemaName, schemaBytes)
	if err != nil {
		return nil, err
	}
	return &topicDecoder{schemaName: schemaName, compiled: compiled}, nil
}

type topicDecoder struct {
	schemaName string
	compiled   *compiledSchema
}

var _ decoder.TopicDecoder = (*topicDecoder)(nil)

func (t *topicDecoder) Decode(messageBytes []byte) (value.Value, error) {
	var raw interface{}
	if err := json.Unmarshal(messageBytes, &raw); err != nil {
		return value.Value{}, mcaperr.MessageDecode(t.schemaName, err)
	}
	if err := t.compiled.validator.Validate(raw); err != nil {
		return value.Value{}, mcaperr.MessageDecode(t.schemaName, err)
	}
	v, err := decodeJSONToValue(t.schemaName, raw, t.compiled.dataType, false)
	if err != nil {
		return value.Value{}, mcaperr.MessageDecode(t.schemaName, err)
	}
	return v, nil
}

func (t *topicDecoder) FieldDefs() value.FieldDefs {
	return t.compiled.fieldDefs
}
