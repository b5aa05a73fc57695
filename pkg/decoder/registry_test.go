package decoder

import (
	"testing"

	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/mcaperr"
	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/value"
)

type stubTopicDecoder struct {
	fields value.FieldDefs
}

func (s *stubTopicDecoder) Decode(b []byte) (value.Value, error) {
	return value.NewString(string(b)), nil
}

func (s *stubTopicDecoder) FieldDefs() value.FieldDefs { return s.fields }

type stubFactory struct {
	key       value.EncodingKey
	fields    value.FieldDefs
	buildErr  error
	callCount int
}

func (s *stubFactory) Key() value.EncodingKey { return s.key }

func (s *stubFactory) BuildTopicDecoder(schemaName string, schemaBytes []byte) (TopicDecoder, error) {
	s.callCount++
	if s.buildErr != nil {
		return nil, s.buildErr
	}
	return &stubTopicDecoder{fields: s.fields}, nil
}

func testKey() value.EncodingKey {
	return value.NewEncodingKey(value.SchemaEncodingJSONSchema, value.MessageEncodingJSON)
}

func TestRegisterLastWins(t *testing.T) {
	r := NewRegistry()
	first := &stubFactory{key: testKey(), fields: value.FieldDefs{{Name: "a", Elem: value.ElementDef{Type: value.Primitive(value.KindI32)}}}}
	second := &stubFactory{key: testKey(), fields: value.FieldDefs{{Name: "b", Elem: value.ElementDef{Type: value.Primitive(value.KindI32)}}}}

	r.Register(first)
	r.Register(second)

	got, ok := r.Lookup(testKey())
	if !ok {
		t.Fatal("expected factory to be registered")
	}
	if got != Factory(second) {
		t.Fatal("expected second registration to win")
	}
}

func TestBuildTopicDecoderNoDecoder(t *testing.T) {
	r := NewRegistry()
	_, err := r.BuildTopicDecoder("my/topic", value.SchemaEncodingProtobuf, value.MessageEncodingProtobuf, "Schema", nil)
	if !mcaperr.Is(err, mcaperr.KindNoDecoder) {
		t.Fatalf("expected NoDecoder error, got %v", err)
	}
}

func TestBuildTopicDecoderEmptyDerivedSchema(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubFactory{key: testKey(), fields: nil})

	_, err := r.BuildTopicDecoder("my/topic", value.SchemaEncodingJSONSchema, value.MessageEncodingJSON, "Schema", nil)
	if !mcaperr.Is(err, mcaperr.KindEmptyDerivedSchema) {
		t.Fatalf("expected EmptyDerivedSchema error, got %v", err)
	}
}

func TestBuildTopicDecoderOK(t *testing.T) {
	r := NewRegistry()
	factory := &stubFactory{
		key:    testKey(),
		fields: value.FieldDefs{{Name: "a", Elem: value.ElementDef{Type: value.Primitive(value.KindI32)}}},
	}
	r.Register(factory)

	td, err := r.BuildTopicDecoder("my/topic", value.SchemaEncodingJSONSchema, value.MessageEncodingJSON, "Schema", []byte("{}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if td.FieldDefs().Len() != 1 {
		t.Fatalf("expected 1 field, got %d", td.FieldDefs().Len())
	}
	if factory.callCount != 1 {
		t.Fatalf("expected schema to be parsed exactly once, got %d", factory.callCount)
	}
}
