// Package mcaperr collects the kinded error taxonomy shared by every
// decoder and by the pipeline orchestrator. The original source carried
// three competing failure channels (panics, anyhow-wrapped errors, and a
// handful of typed errors); this package picks typed, kinded errors and
// holds to that choice everywhere in this module.
package mcaperr

import (
	"errors"
	"fmt"
)

// Kind tags the taxonomy entry a *Error belongs to, so callers can branch
// with errors.As without string-matching messages.
type Kind string

const (
	KindSchemaParse         Kind = "schema_parse"
	KindSchemaInvalid       Kind = "schema_invalid"
	KindMessageDecode       Kind = "message_decode"
	KindMessageDecodeFailed Kind = "message_decode_failed"
	KindValueType           Kind = "value_type"
	KindEmptyRows           Kind = "empty_rows"
	KindEmptyDerivedSchema  Kind = "empty_derived_schema"
	KindTopicNotFound       Kind = "topic_not_found"
	KindMultipleChannels    Kind = "multiple_channels"
	KindSchemaNotAvailable  Kind = "schema_not_available"
	KindNoDecoder           Kind = "no_decoder"
	KindSummaryNotAvailable Kind = "summary_not_available"
	KindStatsNotAvailable   Kind = "stats_not_available"
	KindCollision           Kind = "collision"
	KindIO                  Kind = "io"
	KindContainer           Kind = "container"
)

// Error is the single concrete error type used across the module. Kind
// drives programmatic branching; Message is the human-readable detail.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func SchemaParse(schemaName string, err error) *Error {
	return Wrap(KindSchemaParse, fmt.Sprintf("failed to parse schema %q", schemaName), err)
}

func SchemaInvalid(schemaName, detail string) *Error {
	return New(KindSchemaInvalid, fmt.Sprintf("schema %q invalid: %s", schemaName, detail))
}

func MessageDecode(schemaName string, err error) *Error {
	return Wrap(KindMessageDecode, fmt.Sprintf("message decode failed for schema %q", schemaName), err)
}

// MessageDecodeFailed is the pipeline-level wrapper around a per-message
// MessageDecode error: it pins the failure to the topic whose run it
// stopped.
func MessageDecodeFailed(topic string, err error) *Error {
	return Wrap(KindMessageDecodeFailed, fmt.Sprintf("message decode failed on topic %q", topic), err)
}

func ValueType(expected, actual string) *Error {
	return New(KindValueType, fmt.Sprintf("expected %s, got %s", expected, actual))
}

// FixedSizeLengthMismatch reports an Array value whose element count
// disagrees with the FixedSizeList width fixed by the schema.
func FixedSizeLengthMismatch(size, n int) *Error {
	return New(KindValueType, fmt.Sprintf("FixedSizeList(length=%d) vs Array(length=%d)", size, n))
}

func EmptyRows() *Error {
	return New(KindEmptyRows, "row appender called with zero rows")
}

func EmptyDerivedSchema(topic, schemaName string) *Error {
	return New(KindEmptyDerivedSchema, fmt.Sprintf("derived schema for topic %q (schema %q) has no fields", topic, schemaName))
}

func TopicNotFound(topic string) *Error {
	return New(KindTopicNotFound, fmt.Sprintf("topic %q not found", topic))
}

func MultipleChannels(topic string) *Error {
	return New(KindMultipleChannels, fmt.Sprintf("multiple channels found for topic %q", topic))
}

func SchemaNotAvailable(topic string, channelID uint16) *Error {
	return New(KindSchemaNotAvailable, fmt.Sprintf("schema not available for topic %q (channel id %d)", topic, channelID))
}

func NoDecoder(topic, schemaEncoding, messageEncoding string) *Error {
	return New(KindNoDecoder, fmt.Sprintf(
		"no decoder registered for schema_encoding=%q, message_encoding=%q on topic %q",
		schemaEncoding, messageEncoding, topic))
}

func SummaryNotAvailable(path string) *Error {
	return New(KindSummaryNotAvailable, fmt.Sprintf("summary not available in %s", path))
}

func StatsNotAvailable(path string) *Error {
	return New(KindStatsNotAvailable, fmt.Sprintf("stats not available in %s", path))
}

func Collision(path string) *Error {
	return New(KindCollision, fmt.Sprintf("flattening column name collision: %q", path))
}

func IO(err error) *Error {
	return Wrap(KindIO, "io failure", err)
}

func Container(err error) *Error {
	return Wrap(KindContainer, "container failure", err)
}
