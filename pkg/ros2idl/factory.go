package ros2idl

import (
	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/decoder"
	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/ros2"
	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/value"
)

// Decoder is the decoder.Factory for the (ros2idl, cdr) encoding pair.
type Decoder struct{}

func New() *Decoder { return &Decoder{} }

var _ decoder.Factory = (*Decoder)(nil)

func (d *Decoder) Key() value.EncodingKey {
	return value.NewEncodingKey(value.SchemaEncodingROS2IDL, value.MessageEncodingCDR)
}

func (d *Decoder) BuildTopicDecoder(schemaName string, schemaBytes []byte) (decoder.TopicDecoder, error) {
	schema, err := ResolveSchema(schemaName, string(schemaBytes))
	if err != nil {
		return nil, err
	}
	fieldDefs := ros2.FieldDefsForRoot(schema)
	return &topicDecoder{schema: schema, fieldDefs: fieldDefs}, nil
}

type topicDecoder struct {
	schema    *ros2.ResolvedSchema
	fieldDefs value.FieldDefs
}

var _ decoder.TopicDecoder = (*topicDecoder)(nil)

func (t *topicDecoder) Decode(messageBytes []byte) (value.Value, error) {
	return ros2.DecodeCDRToValue(t.schema, messageBytes)
}

func (t *topicDecoder) FieldDefs() value.FieldDefs {
	return t.fieldDefs
}
