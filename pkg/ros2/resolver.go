package ros2

import (
	"fmt"
	"strconv"

	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/mcaperr"
)

// ResolvedTypeKind tags a ResolvedType variant.
type ResolvedTypeKind int

const (
	ResolvedPrimitive ResolvedTypeKind = iota
	ResolvedStruct
	ResolvedEnum
	ResolvedSequence
	ResolvedBoundedString
	ResolvedBoundedWString
)

// ResolvedType is a TypeExpr with every named reference replaced by the
// qualified key it resolves to.
type ResolvedType struct {
	Kind ResolvedTypeKind

	Primitive PrimitiveType // ResolvedPrimitive
	Name      QualifiedName // ResolvedStruct, ResolvedEnum

	SeqElem   *ResolvedType // ResolvedSequence
	SeqMaxLen *int          // ResolvedSequence, nil = unbounded

	BoundedN int // ResolvedBoundedString / ResolvedBoundedWString
}

// ResolvedField is a FieldDef whose type has been fully resolved.
type ResolvedField struct {
	Name     string
	Type     ResolvedType
	FixedLen *int
}

// ResolvedStructDef is a StructDef whose fields have been fully resolved.
type ResolvedStructDef struct {
	Fields []ResolvedField
}

// ResolvedSchema is the complete, self-contained schema needed for CDR
// decoding: structs and enums live in side maps keyed by qualified name, so
// the graph is arena-and-index with no back-pointers and no cycles to
// manage.
type ResolvedSchema struct {
	Root    QualifiedName
	Structs map[string]ResolvedStructDef
	Enums   map[string][]string
}

var builtinTime = QualifiedName{"builtin_interfaces", "msg", "Time"}
var builtinDuration = QualifiedName{"builtin_interfaces", "msg", "Duration"}

func builtinTimeLikeStruct(name QualifiedName) StructDef {
	return StructDef{
		FullName: name,
		Fields: []FieldDef{
			{Name: "sec", Type: NewPrimitiveExpr(PrimI32)},
			{Name: "nanosec", Type: NewPrimitiveExpr(PrimU32)},
		},
	}
}

// EnsureBuiltinStructs injects builtin_interfaces::msg::{Time,Duration} into
// structs if either is absent. Virtually every stamped ROS 2 message
// references these, but they are not bundled with every schema blob.
func EnsureBuiltinStructs(structs map[string]StructDef) {
	if _, ok := structs[builtinTime.Key()]; !ok {
		structs[builtinTime.Key()] = builtinTimeLikeStruct(builtinTime)
	}
	if _, ok := structs[builtinDuration.Key()]; !ok {
		structs[builtinDuration.Key()] = builtinTimeLikeStruct(builtinDuration)
	}
}

// ResolveParsedSection builds a ResolvedSchema from parsed structs/enums and
// a chosen root type. This is the shared resolution backend for both the
// IDL and .msg decoders.
func ResolveParsedSection(parsed ParsedSection, root QualifiedName) (*ResolvedSchema, error) {
	EnsureBuiltinStructs(parsed.Structs)

	out := make(map[string]ResolvedStructDef, len(parsed.Structs))
	for key, def := range parsed.Structs {
		resolved, err := resolveStruct(def, parsed.Structs, parsed.Enums)
		if err != nil {
			return nil, err
		}
		out[key] = *resolved
	}

	enumOut := make(map[string][]string, len(parsed.Enums))
	for key, def := range parsed.Enums {
		enumOut[key] = def.Variants
	}

	if _, ok := out[root.Key()]; !ok {
		return nil, mcaperr.SchemaInvalid(root.String(), fmt.Sprintf("root type %q not found in parsed structs", root.String()))
	}

	return &ResolvedSchema{Root: root, Structs: out, Enums: enumOut}, nil
}

// ResolveSingleStruct builds a ResolvedSchema from a single struct
// definition, as used by the .msg decoder where no multi-section bundle is
// available. EnsureBuiltinStructs is applied automatically.
func ResolveSingleStruct(structDef StructDef) (*ResolvedSchema, error) {
	parsed := NewParsedSection()
	root := structDef.FullName
	parsed.Structs[root.Key()] = structDef
	return ResolveParsedSection(parsed, root)
}

func resolveStruct(def StructDef, allStructs map[string]StructDef, allEnums map[string]EnumDef) (*ResolvedStructDef, error) {
	fields := make([]ResolvedField, 0, len(def.Fields))
	for _, f := range def.Fields {
		ty, err := resolveTypeExpr(f.Type, def.FullName, allStructs, allEnums)
		if err != nil {
			return nil, err
		}
		fields = append(fields, ResolvedField{Name: f.Name, Type: ty, FixedLen: f.FixedLen})
	}
	return &ResolvedStructDef{Fields: fields}, nil
}

// resolveTypeExpr recursively resolves a TypeExpr within the context of
// currentStruct. Single-segment scoped names are first qualified with the
// enclosing module (local-qualification-first) before falling back to
// exact and suffix lookups.
func resolveTypeExpr(expr TypeExpr, currentStruct QualifiedName, allStructs map[string]StructDef, allEnums map[string]EnumDef) (ResolvedType, error) {
	switch expr.Kind {
	case TypeExprPrimitive:
		return ResolvedType{Kind: ResolvedPrimitive, Primitive: expr.Primitive}, nil
	case TypeExprBoundedString:
		return ResolvedType{Kind: ResolvedBoundedString, BoundedN: expr.BoundedN}, nil
	case TypeExprBoundedWString:
		return ResolvedType{Kind: ResolvedBoundedWString, BoundedN: expr.BoundedN}, nil
	case TypeExprSequence:
		elem, err := resolveTypeExpr(*expr.SeqElem, currentStruct, allStructs, allEnums)
		if err != nil {
			return ResolvedType{}, err
		}
		return ResolvedType{Kind: ResolvedSequence, SeqElem: &elem, SeqMaxLen: expr.SeqMaxLen}, nil
	case TypeExprScoped:
		return resolveScoped(expr.Scoped, currentStruct, allStructs, allEnums)
	default:
		return ResolvedType{}, mcaperr.SchemaInvalid(currentStruct.String(), "unknown TypeExpr kind")
	}
}

func resolveScoped(name QualifiedName, currentStruct QualifiedName, allStructs map[string]StructDef, allEnums map[string]EnumDef) (ResolvedType, error) {
	// A single-segment reference is first qualified with the enclosing
	// struct's module path. If that misses, the original segments fall
	// through to the exact and suffix lookups below.
	if len(name) == 1 && len(currentStruct) > 0 {
		local := append(append(QualifiedName{}, currentStruct[:len(currentStruct)-1]...), name[0])
		if _, ok := allStructs[local.Key()]; ok {
			return ResolvedType{Kind: ResolvedStruct, Name: local}, nil
		}
		if _, ok := allEnums[local.Key()]; ok {
			return ResolvedType{Kind: ResolvedEnum, Name: local}, nil
		}
	}

	if _, ok := allStructs[name.Key()]; ok {
		return ResolvedType{Kind: ResolvedStruct, Name: name}, nil
	}
	if _, ok := allEnums[name.Key()]; ok {
		return ResolvedType{Kind: ResolvedEnum, Name: name}, nil
	}

	if found, ambiguous := findBySuffixStruct(allStructs, name); found != nil {
		return ResolvedType{Kind: ResolvedStruct, Name: found}, nil
	} else if ambiguous {
		return ResolvedType{}, mcaperr.SchemaInvalid(currentStruct.String(),
			fmt.Sprintf("unresolved type %q in %q (ambiguous)", name.String(), currentStruct.String()))
	}

	if found, ambiguous := findBySuffixEnum(allEnums, name); found != nil {
		return ResolvedType{Kind: ResolvedEnum, Name: found}, nil
	} else if ambiguous {
		return ResolvedType{}, mcaperr.SchemaInvalid(currentStruct.String(),
			fmt.Sprintf("unresolved type %q in %q (ambiguous)", name.String(), currentStruct.String()))
	}

	return ResolvedType{}, mcaperr.SchemaInvalid(currentStruct.String(),
		fmt.Sprintf("unresolved type %q in %q", name.String(), currentStruct.String()))
}

// findBySuffixStruct finds the unique key in structs whose trailing
// segments equal wanted. Unlike the suffix search this was originally
// modeled on, ambiguity and absence are reported distinctly: callers must
// be able to tell "no candidate" from "more than one candidate" apart.
func findBySuffixStruct(structs map[string]StructDef, wanted QualifiedName) (found QualifiedName, ambiguous bool) {
	var match QualifiedName
	count := 0
	for _, def := range structs {
		if hasSuffix(def.FullName, wanted) {
			count++
			match = def.FullName
		}
	}
	if count == 1 {
		return match, false
	}
	if count > 1 {
		return nil, true
	}
	return nil, false
}

func findBySuffixEnum(enums map[string]EnumDef, wanted QualifiedName) (found QualifiedName, ambiguous bool) {
	var match QualifiedName
	count := 0
	for _, def := range enums {
		if hasSuffix(def.FullName, wanted) {
			count++
			match = def.FullName
		}
	}
	if count == 1 {
		return match, false
	}
	if count > 1 {
		return nil, true
	}
	return nil, false
}

func hasSuffix(key, wanted QualifiedName) bool {
	if len(key) < len(wanted) {
		return false
	}
	return QualifiedName(key[len(key)-len(wanted):]).Equal(wanted)
}

// FormatUint32 renders an out-of-range enum index the way the CDR decoder
// does: its plain decimal form.
func FormatUint32(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}
