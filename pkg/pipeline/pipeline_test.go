package pipeline

import (
	"testing"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/stretchr/testify/require"

	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/decoder"
	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/mcaperr"
	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/value"
)

type fixedTopicDecoder struct {
	fields value.FieldDefs
}

func (f *fixedTopicDecoder) Decode(b []byte) (value.Value, error) {
	return value.NewStruct([]value.Value{value.NewU32(uint32(len(b)))}), nil
}

func (f *fixedTopicDecoder) FieldDefs() value.FieldDefs { return f.fields }

type fixedFactory struct {
	key value.EncodingKey
}

func (f *fixedFactory) Key() value.EncodingKey { return f.key }

func (f *fixedFactory) BuildTopicDecoder(schemaName string, schemaBytes []byte) (decoder.TopicDecoder, error) {
	return &fixedTopicDecoder{fields: value.FieldDefs{
		{Name: "len", Elem: value.ElementDef{Type: value.Primitive(value.KindU32)}},
	}}, nil
}

func testEncodingKey() value.EncodingKey {
	return value.NewEncodingKey(value.SchemaEncodingJSONSchema, value.MessageEncodingJSON)
}

type fakeSummary struct {
	channels map[string][]ChannelInfo
}

func (s *fakeSummary) ChannelsForTopic(topic string) []ChannelInfo {
	return s.channels[topic]
}

type fakeIterator struct {
	msgs []Message
	pos  int
}

func (it *fakeIterator) Next() (Message, bool, error) {
	if it.pos >= len(it.msgs) {
		return Message{}, false, nil
	}
	m := it.msgs[it.pos]
	it.pos++
	return m, true, nil
}

type fakeContainer struct {
	summary *fakeSummary
	msgs    []Message
}

func (c *fakeContainer) Summary() (Summary, error) { return c.summary, nil }

func (c *fakeContainer) Messages() (MessageIterator, error) {
	return &fakeIterator{msgs: c.msgs}, nil
}

func oneChannelSummary(topic string, id uint16) *fakeSummary {
	return &fakeSummary{channels: map[string][]ChannelInfo{
		topic: {{
			ID:              id,
			Topic:           topic,
			SchemaName:      "Schema",
			SchemaEncoding:  value.SchemaEncodingJSONSchema,
			MessageEncoding: value.MessageEncodingJSON,
			SchemaBytes:     []byte("{}"),
			HasSchema:       true,
		}},
	}}
}

func TestConvertTopic_BatchesAndFlushesPartial(t *testing.T) {
	registry := decoder.NewRegistry()
	registry.Register(&fixedFactory{key: testEncodingKey()})

	container := &fakeContainer{
		summary: oneChannelSummary("/topic", 1),
		msgs: []Message{
			{ChannelID: 1, LogTime: 1, PublishTime: 2, Payload: []byte("a")},
			{ChannelID: 1, LogTime: 3, PublishTime: 4, Payload: []byte("bb")},
			{ChannelID: 2, LogTime: 5, PublishTime: 6, Payload: []byte("skip-me")},
			{ChannelID: 1, LogTime: 7, PublishTime: 8, Payload: []byte("ccc")},
		},
	}

	var batches []arrow.Record
	err := ConvertTopic(container, registry, "/topic", Options{BatchSize: 2}, func(batch arrow.Record) error {
		// ConvertTopic releases batch right after this callback returns, so
		// retain a copy (array.NewRecord retains each column) to inspect later.
		retained := array.NewRecord(batch.Schema(), cloneColumns(batch), batch.NumRows())
		batches = append(batches, retained)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, batches, 2)
	require.Equal(t, int64(2), batches[0].NumRows())
	require.Equal(t, int64(1), batches[1].NumRows())

	lenCol0 := batches[0].Column(2).(*array.Uint32)
	require.Equal(t, uint32(1), lenCol0.Value(0))
	require.Equal(t, uint32(2), lenCol0.Value(1))

	lenCol1 := batches[1].Column(2).(*array.Uint32)
	require.Equal(t, uint32(3), lenCol1.Value(0))
}

func cloneColumns(rec arrow.Record) []arrow.Array {
	cols := make([]arrow.Array, rec.NumCols())
	for i := range cols {
		cols[i] = rec.Column(i)
	}
	return cols
}

func TestConvertTopic_TopicNotFound(t *testing.T) {
	registry := decoder.NewRegistry()
	container := &fakeContainer{summary: &fakeSummary{channels: map[string][]ChannelInfo{}}}

	err := ConvertTopic(container, registry, "/missing", DefaultOptions(), func(arrow.Record) error { return nil })
	require.True(t, mcaperr.Is(err, mcaperr.KindTopicNotFound))
}

func TestConvertTopic_MultipleChannels(t *testing.T) {
	registry := decoder.NewRegistry()
	summary := oneChannelSummary("/topic", 1)
	summary.channels["/topic"] = append(summary.channels["/topic"], ChannelInfo{ID: 2, Topic: "/topic", HasSchema: true})
	container := &fakeContainer{summary: summary}

	err := ConvertTopic(container, registry, "/topic", DefaultOptions(), func(arrow.Record) error { return nil })
	require.True(t, mcaperr.Is(err, mcaperr.KindMultipleChannels))
}

func TestConvertTopic_SchemaNotAvailable(t *testing.T) {
	registry := decoder.NewRegistry()
	container := &fakeContainer{summary: &fakeSummary{channels: map[string][]ChannelInfo{
		"/topic": {{ID: 1, Topic: "/topic", HasSchema: false}},
	}}}

	err := ConvertTopic(container, registry, "/topic", DefaultOptions(), func(arrow.Record) error { return nil })
	require.True(t, mcaperr.Is(err, mcaperr.KindSchemaNotAvailable))
}

type failingTopicDecoder struct {
	fields value.FieldDefs
}

func (f *failingTopicDecoder) Decode(b []byte) (value.Value, error) {
	return value.Value{}, mcaperr.MessageDecode("Schema", &mcaperr.Error{Kind: mcaperr.KindMessageDecode, Message: "truncated payload"})
}

func (f *failingTopicDecoder) FieldDefs() value.FieldDefs { return f.fields }

type failingFactory struct {
	key value.EncodingKey
}

func (f *failingFactory) Key() value.EncodingKey { return f.key }

func (f *failingFactory) BuildTopicDecoder(schemaName string, schemaBytes []byte) (decoder.TopicDecoder, error) {
	return &failingTopicDecoder{fields: value.FieldDefs{
		{Name: "len", Elem: value.ElementDef{Type: value.Primitive(value.KindU32)}},
	}}, nil
}

func TestConvertTopic_DecodeFailureStopsTopicRun(t *testing.T) {
	registry := decoder.NewRegistry()
	registry.Register(&failingFactory{key: testEncodingKey()})

	container := &fakeContainer{
		summary: oneChannelSummary("/topic", 1),
		msgs: []Message{
			{ChannelID: 1, Payload: []byte("bad")},
		},
	}

	calls := 0
	err := ConvertTopic(container, registry, "/topic", DefaultOptions(), func(arrow.Record) error {
		calls++
		return nil
	})
	require.True(t, mcaperr.Is(err, mcaperr.KindMessageDecodeFailed))
	require.Equal(t, 0, calls)
}

func TestConvertTopic_CallbackErrorStopsIteration(t *testing.T) {
	registry := decoder.NewRegistry()
	registry.Register(&fixedFactory{key: testEncodingKey()})

	container := &fakeContainer{
		summary: oneChannelSummary("/topic", 1),
		msgs: []Message{
			{ChannelID: 1, Payload: []byte("a")},
			{ChannelID: 1, Payload: []byte("b")},
		},
	}

	calls := 0
	callbackErr := &mcaperr.Error{Kind: mcaperr.KindIO, Message: "callback refused batch"}
	err := ConvertTopic(container, registry, "/topic", Options{BatchSize: 1}, func(batch arrow.Record) error {
		calls++
		return callbackErr
	})
	require.Equal(t, callbackErr, err)
	require.Equal(t, 1, calls)
}
