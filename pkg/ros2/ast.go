// Package ros2 holds the ROS 2 building blocks shared by the IDL and .msg
// decoders: the raw AST produced by either text parser, the type
// resolver that turns AST references into a self-contained ResolvedSchema,
// and the CDR binary decoder that walks a ResolvedSchema against payload
// bytes.
package ros2

// PrimitiveType is one of the scalar ROS 2 field types. WString is carried
// through the AST and the resolver but always fails at CDR decode time.
type PrimitiveType int

const (
	PrimBool PrimitiveType = iota
	PrimI8
	PrimI16
	PrimI32
	PrimI64
	PrimU8
	PrimU16
	PrimU32
	PrimU64
	PrimF32
	PrimF64
	PrimString
	PrimWString
	PrimOctet // Octet decodes identically to U8.
)

// QualifiedName is an ordered, non-empty sequence of identifier segments,
// e.g. {"geometry_msgs", "msg", "Point"}.
type QualifiedName []string

func (q QualifiedName) Equal(other QualifiedName) bool {
	if len(q) != len(other) {
		return false
	}
	for i := range q {
		if q[i] != other[i] {
			return false
		}
	}
	return true
}

func (q QualifiedName) Key() string {
	s := ""
	for i, seg := range q {
		if i > 0 {
			s += "::"
		}
		s += seg
	}
	return s
}

func (q QualifiedName) String() string { return q.Key() }

// TypeExprKind tags a TypeExpr variant.
type TypeExprKind int

const (
	TypeExprPrimitive TypeExprKind = iota
	TypeExprScoped
	TypeExprSequence
	TypeExprBoundedString
	TypeExprBoundedWString
)

// TypeExpr is a raw, unresolved field type as parsed from either IDL or
// .msg source text.
type TypeExpr struct {
	Kind TypeExprKind

	Primitive PrimitiveType // TypeExprPrimitive
	Scoped    QualifiedName // TypeExprScoped

	SeqElem   *TypeExpr // TypeExprSequence
	SeqMaxLen *int      // TypeExprSequence, nil = unbounded

	BoundedN int // TypeExprBoundedString / TypeExprBoundedWString
}

func NewPrimitiveExpr(p PrimitiveType) TypeExpr { return TypeExpr{Kind: TypeExprPrimitive, Primitive: p} }
func NewScopedExpr(name QualifiedName) TypeExpr { return TypeExpr{Kind: TypeExprScoped, Scoped: name} }
func NewSequenceExpr(elem TypeExpr, maxLen *int) TypeExpr {
	return TypeExpr{Kind: TypeExprSequence, SeqElem: &elem, SeqMaxLen: maxLen}
}
func NewBoundedStringExpr(n int) TypeExpr  { return TypeExpr{Kind: TypeExprBoundedString, BoundedN: n} }
func NewBoundedWStringExpr(n int) TypeExpr { return TypeExpr{Kind: TypeExprBoundedWString, BoundedN: n} }

// FieldDef is one field inside a StructDef, prior to resolution.
type FieldDef struct {
	Name     string
	Type     TypeExpr
	FixedLen *int // non-nil: fixed-size array of this many elements
}

// ConstDef is a declared constant; the pipeline does not evaluate these,
// it only needs to parse past them.
type ConstDef struct {
	Type  TypeExpr
	Name  string
	Value string
}

// StructDef is a raw, unresolved struct/message declaration.
type StructDef struct {
	FullName QualifiedName
	Fields   []FieldDef
	Consts   []ConstDef
}

// EnumDef is a raw, unresolved enum declaration: an ordered list of variant
// names, index position is the CDR wire value.
type EnumDef struct {
	FullName QualifiedName
	Variants []string
}

// ParsedSection is the output of either text parser before resolution: the
// full set of structs and enums reachable from one schema blob, keyed by
// their qualified name.
type ParsedSection struct {
	Structs map[string]StructDef
	Enums   map[string]EnumDef
}

func NewParsedSection() ParsedSection {
	return ParsedSection{Structs: make(map[string]StructDef), Enums: make(map[string]EnumDef)}
}
