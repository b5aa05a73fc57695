// Package pipeline implements the conversion orchestrator: for one topic, it
// resolves the channel and schema from a caller-supplied container summary,
// builds a TopicDecoder through the registry, iterates the container's
// messages, and drains batches through the row appender into the caller's
// callback.
//
// The MCAP container itself — seeking, decompression, summary/stats parsing
// — is an external collaborator. This package only depends on the small
// Container, Summary and MessageIterator interfaces below, so any reader
// implementation (or a test fake) can drive it.
package pipeline

import (
	"errors"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/memory"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/arrowrow"
	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/arrowschema"
	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/decoder"
	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/mcaperr"
	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/value"
)

// DefaultBatchSize is used whenever Options.BatchSize is zero or negative.
const DefaultBatchSize = 1024

// Options tunes one ConvertTopic run.
type Options struct {
	BatchSize int
}

func DefaultOptions() Options {
	return Options{BatchSize: DefaultBatchSize}
}

// ChannelInfo is the per-channel facts the container summary must expose for
// one topic: which channel backs it, and the schema declared on that
// channel (if any).
type ChannelInfo struct {
	ID              uint16
	Topic           string
	SchemaName      string
	SchemaEncoding  value.SchemaEncoding
	MessageEncoding value.MessageEncoding
	SchemaBytes     []byte
	HasSchema       bool
}

// Summary answers the one question the orchestrator needs of a container:
// which channel(s), if any, back a given topic name.
type Summary interface {
	ChannelsForTopic(topic string) []ChannelInfo
}

// Message is one raw record pulled from the container iterator.
type Message struct {
	ChannelID   uint16
	LogTime     uint64
	PublishTime uint64
	Payload     []byte
}

// MessageIterator yields messages in container order. Next returns
// ok == false (with a nil error) once exhausted.
type MessageIterator interface {
	Next() (msg Message, ok bool, err error)
}

// Container is the external collaborator this package depends on: anything
// capable of producing a Summary and a MessageIterator.
type Container interface {
	Summary() (Summary, error)
	Messages() (MessageIterator, error)
}

// BatchCallback receives one drained record batch. The record is released
// by ConvertTopic immediately after the callback returns — implementations
// must not retain it past the call. Returning an error stops iteration
// immediately; no further callbacks are made and the in-flight batch is not
// re-emitted.
type BatchCallback func(batch arrow.Record) error

// containerErr passes an already-kinded error (e.g. SummaryNotAvailable
// from a container implementation) through untouched and wraps anything
// else as a Container failure.
func containerErr(err error) error {
	var kinded *mcaperr.Error
	if errors.As(err, &kinded) {
		return err
	}
	return mcaperr.Container(err)
}

// ConvertTopic runs the full conversion for one topic against
// registry-built decoders, batching decoded rows at opts.BatchSize (default
// 1024) and handing each batch to callback.
func ConvertTopic(container Container, registry *decoder.Registry, topic string, opts Options, callback BatchCallback) error {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	summary, err := container.Summary()
	if err != nil {
		return containerErr(err)
	}

	channels := summary.ChannelsForTopic(topic)
	switch {
	case len(channels) == 0:
		return mcaperr.TopicNotFound(topic)
	case len(channels) > 1:
		return mcaperr.MultipleChannels(topic)
	}
	channel := channels[0]
	if !channel.HasSchema {
		return mcaperr.SchemaNotAvailable(topic, channel.ID)
	}

	topicDecoder, err := registry.BuildTopicDecoder(
		topic, channel.SchemaEncoding, channel.MessageEncoding, channel.SchemaName, channel.SchemaBytes)
	if err != nil {
		return err
	}

	fieldDefs := topicDecoder.FieldDefs()
	schema := arrowschema.WithTimestampFields(arrowschema.FieldDefsToArrowSchema(fieldDefs))

	it, err := container.Messages()
	if err != nil {
		return containerErr(err)
	}

	mem := memory.NewGoAllocator()
	buf := make([]value.DecodedMessage, 0, batchSize)

	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		rec, err := arrowrow.BuildRecordBatch(mem, schema, fieldDefs, buf)
		if err != nil {
			return err
		}
		defer rec.Release()
		buf = buf[:0]
		return callback(rec)
	}

	rowCount := 0
	for {
		msg, ok, err := it.Next()
		if err != nil {
			return containerErr(err)
		}
		if !ok {
			break
		}
		if msg.ChannelID != channel.ID {
			continue
		}

		decoded, err := topicDecoder.Decode(msg.Payload)
		if err != nil {
			return mcaperr.MessageDecodeFailed(topic, err)
		}
		buf = append(buf, value.DecodedMessage{LogTime: msg.LogTime, PublishTime: msg.PublishTime, Value: decoded})
		rowCount++

		if len(buf) >= batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}

	if err := flush(); err != nil {
		return err
	}
	cclog.Debugf("[MCAP2ARROW]> topic %q: converted %d rows", topic, rowCount)
	return nil
}
