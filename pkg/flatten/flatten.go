// Package flatten rewrites a nested Arrow record batch into a flat one,
// driven by a per-type Policy. It operates purely on built Arrow arrays —
// it has no notion of value.Value and runs strictly after pkg/arrowrow has
// materialized a batch.
package flatten

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"

	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/mcaperr"
)

type ListPolicy int

const (
	ListDrop ListPolicy = iota
	ListKeep
	ListFlattenFixed
)

type ArrayPolicy int

const (
	ArrayDrop ArrayPolicy = iota
	ArrayKeep
	ArrayFlatten
)

type MapPolicy int

const (
	MapDrop MapPolicy = iota
	MapKeep
)

type StructPolicy int

const (
	StructKeep StructPolicy = iota
	StructFlatten
)

// Policy fixes how each compound type is rewritten. ListFlattenFixedSize
// only applies when List == ListFlattenFixed; n=0 silently drops the
// column without recording it in Flatten's dropped-paths result.
type Policy struct {
	List                 ListPolicy
	ListFlattenFixedSize int
	Array                ArrayPolicy
	Map                  MapPolicy
	Struct               StructPolicy
}

// DefaultSeparator is used whenever the caller-supplied separator isn't
// exactly one character long.
const DefaultSeparator = "."

type namedArray struct {
	field arrow.Field
	arr   arrow.Array
}

// Flatten rewrites rec into a new record under policy, composing nested
// path segments with separator (falling back to DefaultSeparator unless
// exactly one character is given). It returns the new record, the sorted
// set of dropped column paths, and a Collision error if two output columns
// land on the same final name.
func Flatten(mem memory.Allocator, rec arrow.Record, separator string, policy Policy) (arrow.Record, []string, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	sep := separator
	if utf8.RuneCountInString(sep) != 1 {
		sep = DefaultSeparator
	}

	var dropped []string
	var items []namedArray
	schema := rec.Schema()
	for i := 0; i < int(rec.NumCols()); i++ {
		field := schema.Field(i)
		col := rec.Column(i)
		produced, err := flattenNode(mem, field, col, field.Name, sep, policy, &dropped)
		if err != nil {
			return nil, nil, err
		}
		items = append(items, produced...)
	}

	seen := make(map[string]bool, len(items))
	fields := make([]arrow.Field, len(items))
	arrays := make([]arrow.Array, len(items))
	for i, it := range items {
		if seen[it.field.Name] {
			return nil, nil, mcaperr.Collision(it.field.Name)
		}
		seen[it.field.Name] = true
		fields[i] = it.field
		arrays[i] = it.arr
	}

	sort.Strings(dropped)
	outSchema := arrow.NewSchema(fields, nil)
	return array.NewRecord(outSchema, arrays, rec.NumRows()), dropped, nil
}

func renamed(field arrow.Field, path string) arrow.Field {
	field.Name = path
	return field
}

// flattenNode applies the expand-then-keep-or-drop rule at one schema
// node. Expansion recurses into the emitted children itself, so the
// caller never re-applies the common post-process to an already-expanded
// node.
func flattenNode(mem memory.Allocator, field arrow.Field, arr arrow.Array, path, sep string, policy Policy, dropped *[]string) ([]namedArray, error) {
	var emitted []namedArray
	switch dt := field.Type.(type) {
	case *arrow.StructType:
		if policy.Struct == StructKeep {
			return []namedArray{{field: renamed(field, path), arr: arr}}, nil
		}
		structArr := arr.(*array.Struct)
		var out []namedArray
		for i, childField := range dt.Fields() {
			childPath := path + sep + childField.Name
			produced, err := flattenNode(mem, childField, structArr.Field(i), childPath, sep, policy, dropped)
			if err != nil {
				return nil, err
			}
			out = append(out, produced...)
		}
		return out, nil

	case *arrow.ListType:
		switch policy.List {
		case ListDrop:
			*dropped = append(*dropped, path)
			return nil, nil
		case ListKeep:
			return []namedArray{{field: renamed(field, path), arr: arr}}, nil
		case ListFlattenFixed:
			if policy.ListFlattenFixedSize == 0 {
				return nil, nil
			}
			emitted = flattenListFixed(mem, dt, arr.(*array.List), path, sep, policy.ListFlattenFixedSize)
		}

	case *arrow.FixedSizeListType:
		switch policy.Array {
		case ArrayDrop:
			*dropped = append(*dropped, path)
			return nil, nil
		case ArrayKeep:
			return []namedArray{{field: renamed(field, path), arr: arr}}, nil
		case ArrayFlatten:
			emitted = flattenArrayFixed(mem, dt, arr.(*array.FixedSizeList), path, sep)
		}

	case *arrow.MapType:
		switch policy.Map {
		case MapDrop:
			*dropped = append(*dropped, path)
			return nil, nil
		case MapKeep:
			return []namedArray{{field: renamed(field, path), arr: arr}}, nil
		}
	}

	if emitted != nil {
		var out []namedArray
		for _, it := range emitted {
			produced, err := flattenNode(mem, it.field, it.arr, it.field.Name, sep, policy, dropped)
			if err != nil {
				return nil, err
			}
			out = append(out, produced...)
		}
		return out, nil
	}
	return []namedArray{{field: renamed(field, path), arr: arr}}, nil
}

func flattenListFixed(mem memory.Allocator, lt *arrow.ListType, listArr *array.List, path, sep string, n int) []namedArray {
	elemField := lt.ElemField()
	values := listArr.ListValues()
	offsets := listArr.Offsets()
	numRows := listArr.Len()

	builders := make([]array.Builder, n)
	for i := range builders {
		builders[i] = array.NewBuilder(mem, elemField.Type)
		builders[i].Reserve(numRows)
	}

	for row := 0; row < numRows; row++ {
		rowValid := listArr.IsValid(row)
		start, end := offsets[row], offsets[row+1]
		rowLen := int(end - start)
		for i := 0; i < n; i++ {
			if !rowValid || i >= rowLen {
				builders[i].AppendNull()
				continue
			}
			copyElem(builders[i], values, int(start)+i)
		}
	}

	out := make([]namedArray, n)
	for i := 0; i < n; i++ {
		colArr := builders[i].NewArray()
		builders[i].Release()
		out[i] = namedArray{
			field: arrow.Field{Name: fmt.Sprintf("%s%s%d", path, sep, i), Type: elemField.Type, Nullable: true},
			arr:   colArr,
		}
	}
	return out
}

func flattenArrayFixed(mem memory.Allocator, ft *arrow.FixedSizeListType, fsArr *array.FixedSizeList, path, sep string) []namedArray {
	size := int(ft.Len())
	elemField := ft.ElemField()
	values := fsArr.ListValues()
	numRows := fsArr.Len()

	out := make([]namedArray, size)
	for i := 0; i < size; i++ {
		b := array.NewBuilder(mem, elemField.Type)
		b.Reserve(numRows)
		for row := 0; row < numRows; row++ {
			copyElem(b, values, row*size+i)
		}
		colArr := b.NewArray()
		b.Release()
		out[i] = namedArray{
			field: arrow.Field{Name: fmt.Sprintf("%s%s%d", path, sep, i), Type: elemField.Type, Nullable: elemField.Nullable},
			arr:   colArr,
		}
	}
	return out
}

// copyElem copies the element at src[idx] into dst, recursing through
// nested compound types. Used to pick individual elements out of a
// variable-length or strided source array when expanding List/FixedSizeList
// columns; an unrecognized concrete array type is a wiring bug, not a data
// error, so it panics.
func copyElem(dst array.Builder, src arrow.Array, idx int) {
	if src.IsNull(idx) {
		dst.AppendNull()
		return
	}
	switch s := src.(type) {
	case *array.Boolean:
		dst.(*array.BooleanBuilder).Append(s.Value(idx))
	case *array.Int8:
		dst.(*array.Int8Builder).Append(s.Value(idx))
	case *array.Int16:
		dst.(*array.Int16Builder).Append(s.Value(idx))
	case *array.Int32:
		dst.(*array.Int32Builder).Append(s.Value(idx))
	case *array.Int64:
		dst.(*array.Int64Builder).Append(s.Value(idx))
	case *array.Uint8:
		dst.(*array.Uint8Builder).Append(s.Value(idx))
	case *array.Uint16:
		dst.(*array.Uint16Builder).Append(s.Value(idx))
	case *array.Uint32:
		dst.(*array.Uint32Builder).Append(s.Value(idx))
	case *array.Uint64:
		dst.(*array.Uint64Builder).Append(s.Value(idx))
	case *array.Float32:
		dst.(*array.Float32Builder).Append(s.Value(idx))
	case *array.Float64:
		dst.(*array.Float64Builder).Append(s.Value(idx))
	case *array.String:
		dst.(*array.StringBuilder).Append(s.Value(idx))
	case *array.Binary:
		dst.(*array.BinaryBuilder).Append(s.Value(idx))
	case *array.Timestamp:
		dst.(*array.TimestampBuilder).Append(s.Value(idx))
	case *array.Struct:
		db := dst.(*array.StructBuilder)
		db.Append(true)
		for i := 0; i < s.NumField(); i++ {
			copyElem(db.FieldBuilder(i), s.Field(i), idx)
		}
	case *array.List:
		db := dst.(*array.ListBuilder)
		db.Append(true)
		offsets := s.Offsets()
		values := s.ListValues()
		vb := db.ValueBuilder()
		for k := offsets[idx]; k < offsets[idx+1]; k++ {
			copyElem(vb, values, int(k))
		}
	case *array.FixedSizeList:
		db := dst.(*array.FixedSizeListBuilder)
		db.Append(true)
		size := int(s.DataType().(*arrow.FixedSizeListType).Len())
		values := s.ListValues()
		vb := db.ValueBuilder()
		start := idx * size
		for k := 0; k < size; k++ {
			copyElem(vb, values, start+k)
		}
	case *array.Map:
		db := dst.(*array.MapBuilder)
		db.Append(true)
		offsets := s.Offsets()
		keys := s.Keys()
		valsArr := s.Items()
		kb := db.KeyBuilder()
		ib := db.ItemBuilder()
		for k := offsets[idx]; k < offsets[idx+1]; k++ {
			copyElem(kb, keys, int(k))
			copyElem(ib, valsArr, int(k))
		}
	default:
		panic(fmt.Sprintf("flatten: unsupported array type %T", src))
	}
}
