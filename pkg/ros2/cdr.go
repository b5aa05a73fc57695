package ros2

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/mcaperr"
	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/value"
)

// DecodeCDRToValue decodes little-endian CDR-encapsulated bytes against
// schema, rooted at schema.Root.
func DecodeCDRToValue(schema *ResolvedSchema, data []byte) (value.Value, error) {
	d := &cdrDecoder{buf: data, initialLen: len(data)}
	if err := d.readEncapsulation(); err != nil {
		return value.Value{}, mcaperr.MessageDecode(schema.Root.String(), err)
	}
	v, err := d.decodeStruct(schema, schema.Root, strings.Join(schema.Root, "."))
	if err != nil {
		return value.Value{}, mcaperr.MessageDecode(schema.Root.String(), err)
	}
	return v, nil
}

type cdrError struct{ msg string }

func (e *cdrError) Error() string { return e.msg }

func cdrErrf(format string, args ...interface{}) error {
	return &cdrError{msg: fmt.Sprintf(format, args...)}
}

type cdrDecoder struct {
	buf        []byte
	initialLen int
	alignBase  int
}

func (d *cdrDecoder) remaining() int { return len(d.buf) }

func (d *cdrDecoder) currentOffset() int { return d.initialLen - d.remaining() }

func (d *cdrDecoder) advance(n int) { d.buf = d.buf[n:] }

func (d *cdrDecoder) readEncapsulation() error {
	if d.remaining() < 4 {
		return cdrErrf("incomplete encapsulation header")
	}
	header := d.buf[:4]
	d.advance(4)
	endianness := header[1]
	if endianness != 0x01 {
		return cdrErrf("unsupported CDR endianness: 0x%02x", endianness)
	}
	d.alignBase = 4
	return nil
}

func primitiveAlignSize(p PrimitiveType) int {
	switch p {
	case PrimI16, PrimU16:
		return 2
	case PrimI32, PrimU32, PrimF32:
		return 4
	case PrimI64, PrimU64, PrimF64:
		return 8
	default:
		return 1
	}
}

func (d *cdrDecoder) align(n int) error {
	relativeOffset := d.currentOffset() - d.alignBase
	pad := (n - (relativeOffset % n)) % n
	if d.remaining() < pad {
		return cdrErrf("buffer underflow while aligning")
	}
	d.advance(pad)
	return nil
}

func (d *cdrDecoder) readBytes(n int, path string) ([]byte, error) {
	if d.remaining() < n {
		return nil, cdrErrf("unexpected EOF at %s", path)
	}
	out := d.buf[:n]
	d.advance(n)
	return out, nil
}

func (d *cdrDecoder) decodeStruct(schema *ResolvedSchema, name QualifiedName, path string) (value.Value, error) {
	s, ok := schema.Structs[name.Key()]
	if !ok {
		return value.Value{}, cdrErrf("unknown struct: %s", name.String())
	}
	fields := make([]value.Value, 0, len(s.Fields))
	for _, field := range s.Fields {
		fieldPath := path + "." + field.Name
		v, err := d.decodeField(schema, field, fieldPath)
		if err != nil {
			return value.Value{}, err
		}
		fields = append(fields, v)
	}
	return value.NewStruct(fields), nil
}

func (d *cdrDecoder) decodeField(schema *ResolvedSchema, field ResolvedField, path string) (value.Value, error) {
	if field.FixedLen != nil {
		n := *field.FixedLen
		arr := make([]value.Value, 0, n)
		for i := 0; i < n; i++ {
			p := fmt.Sprintf("%s[%d]", path, i)
			v, err := d.decodeType(schema, field.Type, p)
			if err != nil {
				return value.Value{}, err
			}
			arr = append(arr, v)
		}
		return value.NewArray(arr), nil
	}
	return d.decodeType(schema, field.Type, path)
}

func (d *cdrDecoder) decodeType(schema *ResolvedSchema, ty ResolvedType, path string) (value.Value, error) {
	switch ty.Kind {
	case ResolvedPrimitive:
		return d.decodePrimitive(ty.Primitive, path)
	case ResolvedBoundedString:
		s, err := d.decodeString(path)
		if err != nil {
			return value.Value{}, err
		}
		if len(s) > ty.BoundedN {
			return value.Value{}, cdrErrf("bounded string overflow at %s: %d > %d", path, len(s), ty.BoundedN)
		}
		return value.NewString(s), nil
	case ResolvedBoundedWString:
		return value.Value{}, cdrErrf("wstring not supported at %s", path)
	case ResolvedStruct:
		return d.decodeStruct(schema, ty.Name, path)
	case ResolvedEnum:
		if err := d.align(4); err != nil {
			return value.Value{}, err
		}
		b, err := d.readBytes(4, path)
		if err != nil {
			return value.Value{}, err
		}
		raw := binary.LittleEndian.Uint32(b)
		var s string
		if vars, ok := schema.Enums[ty.Name.Key()]; ok && int(raw) < len(vars) {
			s = vars[raw]
		} else {
			s = FormatUint32(raw)
		}
		return value.NewString(s), nil
	case ResolvedSequence:
		if err := d.align(4); err != nil {
			return value.Value{}, err
		}
		b, err := d.readBytes(4, path)
		if err != nil {
			return value.Value{}, err
		}
		n := int(binary.LittleEndian.Uint32(b))
		if ty.SeqMaxLen != nil && n > *ty.SeqMaxLen {
			return value.Value{}, cdrErrf("sequence bound overflow at %s: %d > %d", path, n, *ty.SeqMaxLen)
		}
		out := make([]value.Value, 0, n)
		for i := 0; i < n; i++ {
			p := fmt.Sprintf("%s[%d]", path, i)
			v, err := d.decodeType(schema, *ty.SeqElem, p)
			if err != nil {
				return value.Value{}, err
			}
			out = append(out, v)
		}
		return value.NewList(out), nil
	default:
		return value.Value{}, cdrErrf("unknown resolved type kind at %s", path)
	}
}

func (d *cdrDecoder) decodePrimitive(p PrimitiveType, path string) (value.Value, error) {
	if err := d.align(primitiveAlignSize(p)); err != nil {
		return value.Value{}, err
	}

	switch p {
	case PrimBool:
		b, err := d.readBytes(1, path)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewBool(b[0] != 0), nil
	case PrimI8:
		b, err := d.readBytes(1, path)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewI8(int8(b[0])), nil
	case PrimI16:
		b, err := d.readBytes(2, path)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewI16(int16(binary.LittleEndian.Uint16(b))), nil
	case PrimI32:
		b, err := d.readBytes(4, path)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewI32(int32(binary.LittleEndian.Uint32(b))), nil
	case PrimI64:
		b, err := d.readBytes(8, path)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewI64(int64(binary.LittleEndian.Uint64(b))), nil
	case PrimU8, PrimOctet:
		b, err := d.readBytes(1, path)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewU8(b[0]), nil
	case PrimU16:
		b, err := d.readBytes(2, path)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewU16(binary.LittleEndian.Uint16(b)), nil
	case PrimU32:
		b, err := d.readBytes(4, path)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewU32(binary.LittleEndian.Uint32(b)), nil
	case PrimU64:
		b, err := d.readBytes(8, path)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewU64(binary.LittleEndian.Uint64(b)), nil
	case PrimF32:
		b, err := d.readBytes(4, path)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewF32(math.Float32frombits(binary.LittleEndian.Uint32(b))), nil
	case PrimF64:
		b, err := d.readBytes(8, path)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewF64(math.Float64frombits(binary.LittleEndian.Uint64(b))), nil
	case PrimString:
		s, err := d.decodeString(path)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewString(s), nil
	case PrimWString:
		return value.Value{}, cdrErrf("wstring not supported at %s", path)
	default:
		return value.Value{}, cdrErrf("unknown primitive type at %s", path)
	}
}

func (d *cdrDecoder) decodeString(path string) (string, error) {
	if err := d.align(4); err != nil {
		return "", err
	}
	b, err := d.readBytes(4, path)
	if err != nil {
		return "", err
	}
	n := int(binary.LittleEndian.Uint32(b))
	if n == 0 {
		return "", nil
	}
	raw, err := d.readBytes(n, path)
	if err != nil {
		return "", err
	}
	if raw[len(raw)-1] != 0 {
		return "", cdrErrf("string missing null terminator at %s", path)
	}
	return string(raw[:n-1]), nil
}
