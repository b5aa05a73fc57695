// Package decoder implements the pluggable decoder registry: the
// dispatch table mapping an MCAP (schema_encoding, message_encoding) pair to
// a Factory capable of parsing that encoding's schema bytes and decoding its
// message payloads.
package decoder

import (
	"sync"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/mcaperr"
	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/value"
)

// TopicDecoder is the per-topic state a Factory produces after parsing one
// topic's schema bytes exactly once. It owns its parsed descriptor /
// resolved schema for the topic's lifetime: decoding many messages on one
// topic must never reparse schema text.
type TopicDecoder interface {
	// Decode turns one raw message payload into a Value tree shaped like
	// FieldDefs. Per-message decode failures are *mcaperr.Error with
	// Kind == mcaperr.KindMessageDecode.
	Decode(messageBytes []byte) (value.Value, error)

	// FieldDefs is the topic's Arrow-independent schema, already
	// validated as non-empty by the factory that produced this decoder.
	FieldDefs() value.FieldDefs
}

// Factory parses schema bytes for one (schema_encoding, message_encoding)
// pair and builds a TopicDecoder for a single topic. Implementations must
// parse the schema exactly once inside BuildTopicDecoder and must never
// parse schema text again inside Decode.
type Factory interface {
	Key() value.EncodingKey
	BuildTopicDecoder(schemaName string, schemaBytes []byte) (TopicDecoder, error)
}

// Registry holds the mapping from EncodingKey to Factory. The zero value is
// ready to use. Registry is safe for concurrent registration and lookup,
// though in practice every factory is registered up front before any topic
// is resolved.
type Registry struct {
	mu        sync.RWMutex
	factories map[value.EncodingKey]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[value.EncodingKey]Factory)}
}

// Register installs factory under its own Key(), replacing any prior entry.
// Last-registration-wins.
func (r *Registry) Register(factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := factory.Key()
	if r.factories == nil {
		r.factories = make(map[value.EncodingKey]Factory)
	}
	if _, exists := r.factories[key]; exists {
		cclog.Debugf("[MCAP2ARROW]> replacing decoder factory for %s", key)
	}
	r.factories[key] = factory
}

// Lookup returns the factory registered for key, if any.
func (r *Registry) Lookup(key value.EncodingKey) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[key]
	return f, ok
}

// BuildTopicDecoder resolves the factory for (schemaEnc, msgEnc), then asks
// it to parse schemaBytes under schemaName once. topic is used only to
// enrich the NoDecoder and EmptyDerivedSchema error messages.
func (r *Registry) BuildTopicDecoder(
	topic string,
	schemaEnc value.SchemaEncoding,
	msgEnc value.MessageEncoding,
	schemaName string,
	schemaBytes []byte,
) (TopicDecoder, error) {
	key := value.NewEncodingKey(schemaEnc, msgEnc)
	factory, ok := r.Lookup(key)
	if !ok {
		return nil, mcaperr.NoDecoder(topic, schemaEnc.String(), msgEnc.String())
	}

	topicDecoder, err := factory.BuildTopicDecoder(schemaName, schemaBytes)
	if err != nil {
		return nil, err
	}
	if topicDecoder.FieldDefs().Len() == 0 {
		return nil, mcaperr.EmptyDerivedSchema(topic, schemaName)
	}
	return topicDecoder, nil
}
