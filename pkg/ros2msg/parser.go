// Package ros2msg decodes MCAP channels whose schema_encoding is "ros2msg":
// a single-file ROS 2 .msg schema (no module nesting, no multi-section
// bundle). Resolved schemas feed the shared CDR decoder in pkg/ros2.
package ros2msg

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/mcaperr"
	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/ros2"
)

// ParseSchemaName splits an MCAP ros2msg schema name into the struct's full
// name by segment count: "pkg/msg/Type" is used unchanged, "pkg/Type" gets
// a middle "msg" segment inserted, anything else is rejected.
func ParseSchemaName(schemaName string) (ros2.QualifiedName, error) {
	segs := splitNonEmpty(schemaName, "/")
	switch len(segs) {
	case 3:
		return ros2.QualifiedName(segs), nil
	case 2:
		return ros2.QualifiedName{segs[0], "msg", segs[1]}, nil
	default:
		return nil, fmt.Errorf("ros2msg schema name %q must have shape pkg/Type or pkg/msg/Type", schemaName)
	}
}

// ParseMsgFile parses a single-file .msg schema body into a StructDef named
// fullName.
func ParseMsgFile(fullName ros2.QualifiedName, text string) (ros2.StructDef, error) {
	def := ros2.StructDef{FullName: fullName}

	for idx, raw := range strings.Split(text, "\n") {
		lineNo := idx + 1
		line := stripComment(raw)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		c := &cursor{s: line}
		ty, arraySpec, err := c.typeToken()
		if err != nil {
			return ros2.StructDef{}, fmt.Errorf("line %d: %w", lineNo, err)
		}
		c.skipSpace()
		name, ok := c.identifier()
		if !ok {
			return ros2.StructDef{}, fmt.Errorf("line %d: expected field or constant name near %q", lineNo, c.s)
		}
		c.skipSpace()

		if c.char('=') {
			// Constant: "TYPE NAME=VALUE". Value is opaque; the pipeline
			// never evaluates message constants.
			value := strings.TrimSpace(c.s)
			def.Consts = append(def.Consts, ros2.ConstDef{Type: ty, Name: name, Value: value})
			continue
		}

		// Optional default value trails the field name separated by
		// whitespace; CDR decoding never needs it, so it is discarded.
		fieldType := ty
		var fixedLen *int
		switch arraySpec.kind {
		case arrayFixed:
			fixedLen = &arraySpec.n
		case arraySequence:
			fieldType = ros2.NewSequenceExpr(ty, nil)
		case arrayBoundedSequence:
			n := arraySpec.n
			fieldType = ros2.NewSequenceExpr(ty, &n)
		}

		def.Fields = append(def.Fields, ros2.FieldDef{Name: name, Type: fieldType, FixedLen: fixedLen})
	}

	return def, nil
}

// ResolveSchema parses schemaName and text and produces a fully resolved
// ResolvedSchema, ready for CDR decoding.
func ResolveSchema(schemaName, text string) (*ros2.ResolvedSchema, error) {
	fullName, err := ParseSchemaName(schemaName)
	if err != nil {
		return nil, mcaperr.SchemaParse(schemaName, err)
	}
	structDef, err := ParseMsgFile(fullName, text)
	if err != nil {
		return nil, mcaperr.SchemaParse(schemaName, err)
	}
	return ros2.ResolveSingleStruct(structDef)
}

func stripComment(line string) string {
	inStr := false
	escaped := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if inStr {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inStr = false
			}
			continue
		}
		if ch == '"' {
			inStr = true
			continue
		}
		if ch == '#' {
			return line[:i]
		}
	}
	return line
}

func splitNonEmpty(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

type arrayKind int

const (
	arrayNone arrayKind = iota
	arrayFixed
	arraySequence
	arrayBoundedSequence
)

type arraySpec struct {
	kind arrayKind
	n    int
}

type cursor struct{ s string }

func (c *cursor) skipSpace() { c.s = strings.TrimLeft(c.s, " \t") }

func (c *cursor) char(ch byte) bool {
	if c.s != "" && c.s[0] == ch {
		c.s = c.s[1:]
		return true
	}
	return false
}

func isIdentStart(r byte) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentContinue(r byte) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

func (c *cursor) identifier() (string, bool) {
	if c.s == "" || !isIdentStart(c.s[0]) {
		return "", false
	}
	i := 1
	for i < len(c.s) && isIdentContinue(c.s[i]) {
		i++
	}
	id := c.s[:i]
	c.s = c.s[i:]
	return id, true
}

func (c *cursor) number() (int, bool) {
	i := 0
	for i < len(c.s) && c.s[i] >= '0' && c.s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(c.s[:i])
	if err != nil {
		return 0, false
	}
	c.s = c.s[i:]
	return n, true
}

func (c *cursor) consumeKeyword(kw string) bool {
	if !strings.HasPrefix(c.s, kw) {
		return false
	}
	rest := c.s[len(kw):]
	if rest != "" && isIdentContinue(rest[0]) {
		return false
	}
	c.s = rest
	return true
}

var primitiveKeywords = []struct {
	kw string
	p  ros2.PrimitiveType
}{
	{"float32", ros2.PrimF32},
	{"float64", ros2.PrimF64},
	{"int8", ros2.PrimI8},
	{"int16", ros2.PrimI16},
	{"int32", ros2.PrimI32},
	{"int64", ros2.PrimI64},
	{"uint8", ros2.PrimU8},
	{"uint16", ros2.PrimU16},
	{"uint32", ros2.PrimU32},
	{"uint64", ros2.PrimU64},
	{"bool", ros2.PrimBool},
	{"byte", ros2.PrimU8},
	{"char", ros2.PrimU8},
	{"wstring", ros2.PrimWString},
	{"string", ros2.PrimString},
}

// typeToken parses a leading primitive or complex type name, followed by
// an optional array suffix: "[N]" (fixed), "[]" (unbounded sequence), or
// "[<=N]" (bounded sequence). Bounded strings use "string<=N"/"wstring<=N".
func (c *cursor) typeToken() (ros2.TypeExpr, arraySpec, error) {
	for _, pk := range primitiveKeywords {
		save := c.s
		if c.consumeKeyword(pk.kw) {
			if (pk.p == ros2.PrimString || pk.p == ros2.PrimWString) && strings.HasPrefix(c.s, "<=") {
				c.s = c.s[2:]
				n, ok := c.number()
				if !ok {
					return ros2.TypeExpr{}, arraySpec{}, fmt.Errorf("expected bound after %q<=", pk.kw)
				}
				spec, err := c.arraySuffix()
				if err != nil {
					return ros2.TypeExpr{}, arraySpec{}, err
				}
				if pk.p == ros2.PrimWString {
					return ros2.NewBoundedWStringExpr(n), spec, nil
				}
				return ros2.NewBoundedStringExpr(n), spec, nil
			}
			spec, err := c.arraySuffix()
			if err != nil {
				return ros2.TypeExpr{}, arraySpec{}, err
			}
			return ros2.NewPrimitiveExpr(pk.p), spec, nil
		}
		c.s = save
	}

	// Complex type: "pkg/Type" expands to [pkg, "msg", Type]; a bare
	// "Type" stays single-segment for later local-qualification by the
	// resolver.
	name, ok := c.identifier()
	if !ok {
		return ros2.TypeExpr{}, arraySpec{}, fmt.Errorf("expected type near %q", c.s)
	}
	qn := ros2.QualifiedName{name}
	if c.char('/') {
		sub, ok := c.identifier()
		if !ok {
			return ros2.TypeExpr{}, arraySpec{}, fmt.Errorf("expected type name after '/' near %q", c.s)
		}
		qn = ros2.QualifiedName{name, "msg", sub}
	}
	spec, err := c.arraySuffix()
	if err != nil {
		return ros2.TypeExpr{}, arraySpec{}, err
	}
	return ros2.NewScopedExpr(qn), spec, nil
}

func (c *cursor) arraySuffix() (arraySpec, error) {
	if !c.char('[') {
		return arraySpec{kind: arrayNone}, nil
	}
	if c.char(']') {
		return arraySpec{kind: arraySequence}, nil
	}
	if strings.HasPrefix(c.s, "<=") {
		c.s = c.s[2:]
		n, ok := c.number()
		if !ok {
			return arraySpec{}, fmt.Errorf("expected bound after '[<='")
		}
		if !c.char(']') {
			return arraySpec{}, fmt.Errorf("expected ']' to close bounded array")
		}
		return arraySpec{kind: arrayBoundedSequence, n: n}, nil
	}
	n, ok := c.number()
	if !ok {
		return arraySpec{}, fmt.Errorf("expected array size near %q", c.s)
	}
	if !c.char(']') {
		return arraySpec{}, fmt.Errorf("expected ']' to close fixed array")
	}
	return arraySpec{kind: arrayFixed, n: n}, nil
}
