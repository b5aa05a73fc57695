package ros2

import (
	"testing"

	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/mcaperr"
)

func flagValueSchema() *ResolvedSchema {
	name := QualifiedName{"test", "msg", "FlagValue"}
	return &ResolvedSchema{
		Root: name,
		Structs: map[string]ResolvedStructDef{
			name.Key(): {
				Fields: []ResolvedField{
					{Name: "flag", Type: ResolvedType{Kind: ResolvedPrimitive, Primitive: PrimU8}},
					{Name: "value", Type: ResolvedType{Kind: ResolvedPrimitive, Primitive: PrimF64}},
				},
			},
		},
		Enums: map[string][]string{},
	}
}

func le(payload ...byte) []byte {
	// 4-byte LE encapsulation header (CDR_LE = 0x01 in the second byte)
	// followed by the payload bytes under test.
	return append([]byte{0x00, 0x01, 0x00, 0x00}, payload...)
}

func TestCDRPaddedF64(t *testing.T) {
	payload := le(
		0x07,                                           // flag = 7
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,       // 7 padding bytes up to 8-byte alignment
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0xF4, 0x3F, // f64 LE bytes for 1.25
	)
	v, err := DecodeCDRToValue(flagValueSchema(), payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(v.Struct) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(v.Struct))
	}
	if v.Struct[0].U64 != 7 {
		t.Errorf("flag = %d, want 7", v.Struct[0].U64)
	}
	if v.Struct[1].F64 != 1.25 {
		t.Errorf("value = %v, want 1.25", v.Struct[1].F64)
	}
}

func TestCDRIncompleteHeader(t *testing.T) {
	_, err := DecodeCDRToValue(flagValueSchema(), []byte{0x00, 0x01})
	if !mcaperr.Is(err, mcaperr.KindMessageDecode) {
		t.Fatalf("expected MessageDecode error, got %v", err)
	}
}

func TestCDRUnsupportedEndianness(t *testing.T) {
	_, err := DecodeCDRToValue(flagValueSchema(), []byte{0x00, 0x00, 0x00, 0x00})
	if !mcaperr.Is(err, mcaperr.KindMessageDecode) {
		t.Fatalf("expected MessageDecode error, got %v", err)
	}
}

func boundedStringSchema(bound int) *ResolvedSchema {
	name := QualifiedName{"test", "msg", "Bounded"}
	return &ResolvedSchema{
		Root: name,
		Structs: map[string]ResolvedStructDef{
			name.Key(): {
				Fields: []ResolvedField{
					{Name: "s", Type: ResolvedType{Kind: ResolvedBoundedString, BoundedN: bound}},
				},
			},
		},
		Enums: map[string][]string{},
	}
}

func TestCDRBoundedStringOverflow(t *testing.T) {
	// "hello\0" -> length 6 (including NUL), content length 5, bound 3.
	payload := le(0x06, 0x00, 0x00, 0x00, 'h', 'e', 'l', 'l', 'o', 0x00)
	_, err := DecodeCDRToValue(boundedStringSchema(3), payload)
	if !mcaperr.Is(err, mcaperr.KindMessageDecode) {
		t.Fatalf("expected MessageDecode error, got %v", err)
	}
}

func TestCDRStringMissingNulTerminator(t *testing.T) {
	payload := le(0x03, 0x00, 0x00, 0x00, 'a', 'b', 'c')
	_, err := DecodeCDRToValue(boundedStringSchema(10), payload)
	if !mcaperr.Is(err, mcaperr.KindMessageDecode) {
		t.Fatalf("expected MessageDecode error, got %v", err)
	}
}

func sequenceSchema(maxLen *int) *ResolvedSchema {
	name := QualifiedName{"test", "msg", "Seq"}
	elem := ResolvedType{Kind: ResolvedPrimitive, Primitive: PrimI32}
	return &ResolvedSchema{
		Root: name,
		Structs: map[string]ResolvedStructDef{
			name.Key(): {
				Fields: []ResolvedField{
					{Name: "items", Type: ResolvedType{Kind: ResolvedSequence, SeqElem: &elem, SeqMaxLen: maxLen}},
				},
			},
		},
		Enums: map[string][]string{},
	}
}

func TestCDRSequenceBoundOverflow(t *testing.T) {
	max := 2
	payload := le(0x03, 0x00, 0x00, 0x00, 1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0)
	_, err := DecodeCDRToValue(sequenceSchema(&max), payload)
	if !mcaperr.Is(err, mcaperr.KindMessageDecode) {
		t.Fatalf("expected MessageDecode error, got %v", err)
	}
}

func TestCDREnumOutOfRangeFallback(t *testing.T) {
	name := QualifiedName{"test", "msg", "Msg"}
	schema := &ResolvedSchema{
		Root: name,
		Structs: map[string]ResolvedStructDef{
			name.Key(): {
				Fields: []ResolvedField{
					{Name: "status", Type: ResolvedType{Kind: ResolvedEnum, Name: QualifiedName{"test", "msg", "Status"}}},
				},
			},
		},
		Enums: map[string][]string{
			(QualifiedName{"test", "msg", "Status"}).Key(): {"OK", "WARN", "ERROR"},
		},
	}

	inRange := le(0x01, 0x00, 0x00, 0x00)
	v, err := DecodeCDRToValue(schema, inRange)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Struct[0].Str != "WARN" {
		t.Errorf("status = %q, want WARN", v.Struct[0].Str)
	}

	outOfRange := le(0x05, 0x00, 0x00, 0x00)
	v, err = DecodeCDRToValue(schema, outOfRange)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Struct[0].Str != "5" {
		t.Errorf("status = %q, want 5", v.Struct[0].Str)
	}
}
