package ros2idl

import (
	"fmt"
	"strings"

	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/ros2"
)

// parseIdlSection walks one IDL section body line by line, building a flat
// ParsedSection. module {} blocks only affect the qualification prefix
// applied to struct/enum names; they do not nest as their own declarations.
func parseIdlSection(idlBody string) (ros2.ParsedSection, error) {
	parsed := ros2.NewParsedSection()

	var modules []string
	var currentStruct *pendingStruct
	var currentEnum *pendingEnum

	annotationDepth := 0
	annInStr, annEscaped := false, false

	lines := strings.Split(idlBody, "\n")
	for idx, raw := range lines {
		lineNo := idx + 1
		line := strings.TrimSpace(stripLineComments(raw))
		if line == "" {
			continue
		}

		if annotationDepth > 0 || strings.HasPrefix(line, "@") {
			open, closeN := parenCountsOutsideStrings(line, &annInStr, &annEscaped)
			annotationDepth += open
			annotationDepth -= closeN
			continue
		}

		if strings.HasPrefix(line, "#include") {
			continue
		}

		if strings.HasPrefix(line, "union ") || strings.HasPrefix(line, "bitmask ") || strings.HasPrefix(line, "typedef ") {
			return ros2.ParsedSection{}, fmt.Errorf("unsupported IDL declaration at line %d: %s", lineNo, line)
		}

		if name, ok := parseModuleOpen(line); ok {
			modules = append(modules, name)
			continue
		}

		if name, ok := parseStructOpen(line); ok {
			if currentStruct != nil || currentEnum != nil {
				return ros2.ParsedSection{}, fmt.Errorf("nested declaration unsupported at line %d: %s", lineNo, line)
			}
			currentStruct = &pendingStruct{name: name}
			continue
		}

		if name, ok := parseEnumOpen(line); ok {
			if currentStruct != nil || currentEnum != nil {
				return ros2.ParsedSection{}, fmt.Errorf("nested declaration unsupported at line %d: %s", lineNo, line)
			}
			currentEnum = &pendingEnum{name: name}
			continue
		}

		if line == "};" || line == "}" {
			switch {
			case currentStruct != nil:
				full := append(append([]string{}, modules...), currentStruct.name)
				qn := ros2.QualifiedName(full)
				parsed.Structs[qn.Key()] = ros2.StructDef{FullName: qn, Fields: currentStruct.fields, Consts: currentStruct.consts}
				currentStruct = nil
			case currentEnum != nil:
				full := append(append([]string{}, modules...), currentEnum.name)
				qn := ros2.QualifiedName(full)
				parsed.Enums[qn.Key()] = ros2.EnumDef{FullName: qn, Variants: currentEnum.variants}
				currentEnum = nil
			default:
				if len(modules) == 0 {
					return ros2.ParsedSection{}, fmt.Errorf("unmatched closing brace at line %d", lineNo)
				}
				modules = modules[:len(modules)-1]
			}
			continue
		}

		if currentStruct != nil {
			if strings.HasPrefix(line, "const ") {
				cd, err := parseConst(line)
				if err != nil {
					return ros2.ParsedSection{}, fmt.Errorf("parse error at line %d: %w", lineNo, err)
				}
				currentStruct.consts = append(currentStruct.consts, cd)
			} else {
				fd, err := parseField(line)
				if err != nil {
					return ros2.ParsedSection{}, fmt.Errorf("parse error at line %d: %w", lineNo, err)
				}
				currentStruct.fields = append(currentStruct.fields, fd)
			}
			continue
		}

		if currentEnum != nil {
			name, err := parseEnumVariant(line)
			if err != nil {
				return ros2.ParsedSection{}, fmt.Errorf("parse error at line %d: %w", lineNo, err)
			}
			if name != "" {
				currentEnum.variants = append(currentEnum.variants, name)
			}
			continue
		}

		return ros2.ParsedSection{}, fmt.Errorf("unexpected top-level statement at line %d: %s", lineNo, line)
	}

	if currentStruct != nil {
		return ros2.ParsedSection{}, fmt.Errorf("unclosed struct declaration")
	}
	if currentEnum != nil {
		return ros2.ParsedSection{}, fmt.Errorf("unclosed enum declaration")
	}
	return parsed, nil
}

type pendingStruct struct {
	name   string
	fields []ros2.FieldDef
	consts []ros2.ConstDef
}

type pendingEnum struct {
	name     string
	variants []string
}

func parseModuleOpen(line string) (string, bool) { return parseBlockOpen(line, "module") }
func parseStructOpen(line string) (string, bool) { return parseBlockOpen(line, "struct") }
func parseEnumOpen(line string) (string, bool)   { return parseBlockOpen(line, "enum") }

// parseBlockOpen matches "<kw> Name {" exactly (trailing content after '{'
// is rejected, matching the original's line-at-a-time grammar).
func parseBlockOpen(line, kw string) (string, bool) {
	c := &cursor{s: strings.TrimSpace(line)}
	if !c.consumeKeyword(kw) {
		return "", false
	}
	c.skipSpace()
	name, ok := c.identifier()
	if !ok {
		return "", false
	}
	c.skipSpace()
	if !c.char('{') {
		return "", false
	}
	if strings.TrimSpace(c.s) != "" {
		return "", false
	}
	return name, true
}

func parseConst(line string) (ros2.ConstDef, error) {
	body, ok := cutPrefix(line, "const ")
	if !ok {
		return ros2.ConstDef{}, fmt.Errorf("const declaration must start with `const`")
	}
	body, ok = cutSuffix(body, ";")
	if !ok {
		return ros2.ConstDef{}, fmt.Errorf("const declaration must end with ';'")
	}
	if hasLongDoubleTokens(body) {
		return ros2.ConstDef{}, fmt.Errorf("unsupported IDL type `long double`")
	}

	c := &cursor{s: strings.TrimSpace(body)}
	ty, err := c.typeExprInner()
	if err != nil {
		return ros2.ConstDef{}, fmt.Errorf("failed to parse const declaration: %w", err)
	}
	c.skipSpace()
	name, ok := c.identifier()
	if !ok {
		return ros2.ConstDef{}, fmt.Errorf("failed to parse const declaration: expected identifier near %q", c.s)
	}
	c.skipSpace()
	if !c.char('=') {
		return ros2.ConstDef{}, fmt.Errorf("failed to parse const declaration: expected '=' near %q", c.s)
	}
	c.skipSpace()
	value := strings.TrimSpace(c.s)
	return ros2.ConstDef{Type: ty, Name: name, Value: value}, nil
}

func parseField(line string) (ros2.FieldDef, error) {
	body, ok := cutSuffix(line, ";")
	if !ok {
		return ros2.FieldDef{}, fmt.Errorf("field declaration must end with ';'")
	}
	body = strings.TrimSpace(body)
	if hasLongDoubleTokens(body) {
		return ros2.FieldDef{}, fmt.Errorf("unsupported IDL type `long double`")
	}

	c := &cursor{s: body}
	ty, err := c.typeExprInner()
	if err != nil {
		return ros2.FieldDef{}, fmt.Errorf("failed to parse field declaration: %w", err)
	}
	c.skipSpace()
	name, fixedLen, err := c.fieldArrayNotation()
	if err != nil {
		return ros2.FieldDef{}, fmt.Errorf("failed to parse field declaration: %w", err)
	}
	if strings.TrimSpace(c.s) != "" {
		return ros2.FieldDef{}, fmt.Errorf("unexpected trailing characters in field: %s", c.s)
	}
	return ros2.FieldDef{Name: name, Type: ty, FixedLen: fixedLen}, nil
}

func (c *cursor) fieldArrayNotation() (string, *int, error) {
	name, ok := c.identifier()
	if !ok {
		return "", nil, fmt.Errorf("expected field name near %q", c.s)
	}
	if c.char('[') {
		c.skipSpace()
		n, ok := c.number()
		if !ok {
			return "", nil, fmt.Errorf("expected array size near %q", c.s)
		}
		c.skipSpace()
		if !c.char(']') {
			return "", nil, fmt.Errorf("expected ']' near %q", c.s)
		}
		return name, &n, nil
	}
	return name, nil, nil
}

func parseEnumVariant(line string) (string, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(line), ",")
	if trimmed == "" {
		return "", nil
	}
	c := &cursor{s: trimmed}
	name, ok := c.identifier()
	if !ok {
		return "", fmt.Errorf("failed to parse enum variant %q", line)
	}
	// "NAME = value" is accepted and the value portion discarded; CDR
	// enum decoding only needs variant order, not declared values.
	return name, nil
}

func hasLongDoubleTokens(s string) bool {
	var b strings.Builder
	for _, r := range s {
		if isIdentContinue(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	tokens := strings.Fields(b.String())
	for i := 0; i+1 < len(tokens); i++ {
		if tokens[i] == "long" && tokens[i+1] == "double" {
			return true
		}
	}
	return false
}

func cutPrefix(s, prefix string) (string, bool) {
	if !strings.HasPrefix(s, prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

func cutSuffix(s, suffix string) (string, bool) {
	if !strings.HasSuffix(s, suffix) {
		return s, false
	}
	return s[:len(s)-len(suffix)], true
}
