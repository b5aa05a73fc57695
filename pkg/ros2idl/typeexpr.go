package ros2idl

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/ros2"
)

// cursor is a minimal recursive-descent scanner over one declaration body
// (a field, const, or sequence type expression with the trailing ';'
// already stripped). It plays the role nom's parser combinators play in
// the original source, hand-rolled in the style this codebase otherwise
// parses text (see pkg/ros2msg and the line-protocol decoder it was
// grounded on).
type cursor struct {
	s string
}

func (c *cursor) skipSpace() {
	c.s = strings.TrimLeft(c.s, " \t")
}

func isIdentStart(r rune) bool { return unicode.IsLetter(r) || r == '_' }
func isIdentContinue(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func (c *cursor) consumePrefix(prefix string) bool {
	if strings.HasPrefix(c.s, prefix) {
		c.s = c.s[len(prefix):]
		return true
	}
	return false
}

// consumeKeyword consumes prefix only if followed by a non-identifier
// character (or end of input), mirroring the original's keyword_boundary
// check so "longitude" does not match the "long" keyword.
func (c *cursor) consumeKeyword(kw string) bool {
	if !strings.HasPrefix(c.s, kw) {
		return false
	}
	rest := c.s[len(kw):]
	if rest != "" && isIdentContinue(rune(rest[0])) {
		return false
	}
	c.s = rest
	return true
}

func (c *cursor) identifier() (string, bool) {
	if c.s == "" || !isIdentStart(rune(c.s[0])) {
		return "", false
	}
	i := 1
	for i < len(c.s) && isIdentContinue(rune(c.s[i])) {
		i++
	}
	id := c.s[:i]
	c.s = c.s[i:]
	return id, true
}

func (c *cursor) char(ch byte) bool {
	if c.s != "" && c.s[0] == ch {
		c.s = c.s[1:]
		return true
	}
	return false
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

// scopedName parses a '::' or '/' separated identifier sequence. The
// separator used is whichever one appears anywhere in the remaining input:
// "::" if present, otherwise "/".
func (c *cursor) scopedName() (ros2.QualifiedName, bool) {
	sep := "/"
	if strings.Contains(c.s, "::") {
		sep = "::"
	}
	var segs []string
	for {
		id, ok := c.identifier()
		if !ok {
			break
		}
		segs = append(segs, id)
		if !c.consumePrefix(sep) {
			break
		}
	}
	if len(segs) == 0 {
		return nil, false
	}
	return ros2.QualifiedName(segs), true
}

// primitiveType matches the longest applicable IDL primitive keyword at the
// cursor. Order matters: multi-word keywords are tried before their
// single-word aliases/substrings.
func (c *cursor) primitiveType() (ros2.PrimitiveType, bool) {
	try := func(kw string, p ros2.PrimitiveType) (ros2.PrimitiveType, bool) {
		save := c.s
		c.skipSpace()
		if c.consumeKeyword(kw) {
			return p, true
		}
		c.s = save
		return 0, false
	}
	tryWords := func(words []string, p ros2.PrimitiveType) (ros2.PrimitiveType, bool) {
		save := c.s
		for i, w := range words {
			if i > 0 {
				c.skipSpace()
			}
			if !c.consumeKeyword(w) {
				c.s = save
				return 0, false
			}
		}
		return p, true
	}

	if p, ok := tryWords([]string{"unsigned", "long", "long"}, ros2.PrimU64); ok {
		return p, true
	}
	if p, ok := tryWords([]string{"long", "long"}, ros2.PrimI64); ok {
		return p, true
	}
	if p, ok := tryWords([]string{"unsigned", "short"}, ros2.PrimU16); ok {
		return p, true
	}
	if p, ok := tryWords([]string{"unsigned", "long"}, ros2.PrimU32); ok {
		return p, true
	}
	if p, ok := try("boolean", ros2.PrimBool); ok {
		return p, true
	}
	if p, ok := try("bool", ros2.PrimBool); ok {
		return p, true
	}
	if p, ok := try("int8", ros2.PrimI8); ok {
		return p, true
	}
	if p, ok := try("int16", ros2.PrimI16); ok {
		return p, true
	}
	if p, ok := try("short", ros2.PrimI16); ok {
		return p, true
	}
	if p, ok := try("int32", ros2.PrimI32); ok {
		return p, true
	}
	if p, ok := try("long", ros2.PrimI32); ok {
		return p, true
	}
	if p, ok := try("int64", ros2.PrimI64); ok {
		return p, true
	}
	if p, ok := try("uint8", ros2.PrimU8); ok {
		return p, true
	}
	if p, ok := try("uint16", ros2.PrimU16); ok {
		return p, true
	}
	if p, ok := try("uint32", ros2.PrimU32); ok {
		return p, true
	}
	if p, ok := try("uint64", ros2.PrimU64); ok {
		return p, true
	}
	if p, ok := try("float32", ros2.PrimF32); ok {
		return p, true
	}
	if p, ok := try("float", ros2.PrimF32); ok {
		return p, true
	}
	if p, ok := try("float64", ros2.PrimF64); ok {
		return p, true
	}
	if p, ok := try("double", ros2.PrimF64); ok {
		return p, true
	}
	if p, ok := try("string", ros2.PrimString); ok {
		return p, true
	}
	if p, ok := try("wstring", ros2.PrimWString); ok {
		return p, true
	}
	if p, ok := try("octet", ros2.PrimOctet); ok {
		return p, true
	}
	return 0, false
}

// typeExprInner parses sequence<T>/sequence<T,N>, string<N>, wstring<N>, a
// bare primitive, or a scoped name, in that priority order.
func (c *cursor) typeExprInner() (ros2.TypeExpr, error) {
	if expr, ok, err := c.trySequence(); ok || err != nil {
		return expr, err
	}
	if expr, ok := c.tryBoundedString("string", func(n int) ros2.TypeExpr { return ros2.NewBoundedStringExpr(n) }); ok {
		return expr, nil
	}
	if expr, ok := c.tryBoundedString("wstring", func(n int) ros2.TypeExpr { return ros2.NewBoundedWStringExpr(n) }); ok {
		return expr, nil
	}
	if p, ok := c.primitiveType(); ok {
		return ros2.NewPrimitiveExpr(p), nil
	}
	c.skipSpace()
	if name, ok := c.scopedName(); ok {
		return ros2.NewScopedExpr(name), nil
	}
	return ros2.TypeExpr{}, fmt.Errorf("expected type expression near %q", c.s)
}

func (c *cursor) trySequence() (ros2.TypeExpr, bool, error) {
	save := c.s
	c.skipSpace()
	if !c.consumeKeyword("sequence") {
		c.s = save
		return ros2.TypeExpr{}, false, nil
	}
	c.skipSpace()
	if !c.char('<') {
		c.s = save
		return ros2.TypeExpr{}, false, nil
	}
	c.skipSpace()
	elem, err := c.typeExprInner()
	if err != nil {
		return ros2.TypeExpr{}, false, err
	}
	var maxLen *int
	save2 := c.s
	c.skipSpace()
	if c.char(',') {
		c.skipSpace()
		if n, ok := c.number(); ok {
			maxLen = &n
		} else {
			c.s = save2
		}
	} else {
		c.s = save2
	}
	c.skipSpace()
	if !c.char('>') {
		return ros2.TypeExpr{}, false, fmt.Errorf("expected '>' to close sequence near %q", c.s)
	}
	return ros2.NewSequenceExpr(elem, maxLen), true, nil
}

func (c *cursor) tryBoundedString(kw string, make_ func(int) ros2.TypeExpr) (ros2.TypeExpr, bool) {
	save := c.s
	if !c.consumeKeyword(kw) {
		c.s = save
		return ros2.TypeExpr{}, false
	}
	c.skipSpace()
	if !c.char('<') {
		c.s = save
		return ros2.TypeExpr{}, false
	}
	c.skipSpace()
	n, ok := c.number()
	if !ok {
		c.s = save
		return ros2.TypeExpr{}, false
	}
	c.skipSpace()
	if !c.char('>') {
		c.s = save
		return ros2.TypeExpr{}, false
	}
	return make_(n), true
}
