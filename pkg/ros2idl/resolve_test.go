package ros2idl

import (
	"testing"

	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/mcaperr"
)

const flaggedIDL = `===
IDL: test_msgs/msg/Flagged
module test_msgs {
  module msg {
    struct Flagged {
      uint8 flag;
      double value;
    };
  };
};
`

func TestResolveSchemaEndToEnd(t *testing.T) {
	schema, err := ResolveSchema("test_msgs/msg/Flagged", flaggedIDL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	root := schema.Structs[schema.Root.Key()]
	if len(root.Fields) != 2 {
		t.Fatalf("expected 2 resolved fields, got %d", len(root.Fields))
	}
}

func TestResolveSchemaUnclosedStructFails(t *testing.T) {
	bad := "===\nIDL: test_msgs/msg/Flagged\nstruct Flagged {\nuint8 flag;\n"
	_, err := ResolveSchema("test_msgs/msg/Flagged", bad)
	if !mcaperr.Is(err, mcaperr.KindSchemaParse) {
		t.Fatalf("expected SchemaParse error, got %v", err)
	}
}

func TestResolveSchemaNoSectionsFails(t *testing.T) {
	_, err := ResolveSchema("test_msgs/msg/Flagged", "")
	if !mcaperr.Is(err, mcaperr.KindSchemaParse) {
		t.Fatalf("expected SchemaParse error, got %v", err)
	}
}

const statusIDL = `===
IDL: test_msgs/msg/Msg
module test_msgs {
  module msg {
    enum Status {
      OK,
      WARN,
      ERROR
    };
    struct Msg {
      Status status;
    };
  };
};
`

func TestDecoderEnumVariantAndFallback(t *testing.T) {
	d := New()
	td, err := d.BuildTopicDecoder("test_msgs/msg/Msg", []byte(statusIDL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	v, err := td.Decode([]byte{0x00, 0x01, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00})
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if v.Struct[0].Str != "WARN" {
		t.Errorf("status = %q, want WARN", v.Struct[0].Str)
	}

	v, err = td.Decode([]byte{0x00, 0x01, 0x00, 0x00, 0x05, 0x00, 0x00, 0x00})
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if v.Struct[0].Str != "5" {
		t.Errorf("status = %q, want 5 (out-of-range fallback)", v.Struct[0].Str)
	}
}

func TestDecoderEndToEnd(t *testing.T) {
	d := New()
	td, err := d.BuildTopicDecoder("test_msgs/msg/Flagged", []byte(flaggedIDL))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if td.FieldDefs().Len() != 2 {
		t.Fatalf("expected 2 FieldDefs, got %d", td.FieldDefs().Len())
	}

	// CDR_LE header, flag=7, 7 bytes padding to the 8-byte f64 alignment,
	// then the f64 LE bytes for 1.25.
	payload := []byte{0x00, 0x01, 0x00, 0x00,
		0x07,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xF4, 0x3F,
	}
	v, err := td.Decode(payload)
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if len(v.Struct) != 2 || v.Struct[0].U64 != 7 || v.Struct[1].F64 != 1.25 {
		t.Errorf("unexpected decoded value: %+v", v)
	}
}
