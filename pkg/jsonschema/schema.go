// Package jsonschema implements the decoder factory for the
// (jsonschema, json) encoding pair. Schema validation is delegated to
// santhosh-tekuri/jsonschema/v5; this package additionally walks the same
// schema document (via encoding/json, since deriving FieldDefs is just
// reading the schema's own JSON shape) to derive the Arrow-independent
// FieldDefs the rest of the pipeline needs.
package jsonschema

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonschemalib "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/mcaperr"
	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/value"
)

// node mirrors the handful of JSON Schema keywords this decoder understands
// well enough to derive a FieldDefs tree. Anything else in the document is
// left to the validator, not to this walk.
type node struct {
	Type       json.RawMessage `json:"type"`
	Properties map[string]node `json:"properties"`
	Items      *node           `json:"items"`
	Required   []string        `json:"required"`
}

func (n node) typeNames() ([]string, error) {
	if len(n.Type) == 0 {
		return nil, nil
	}
	var single string
	if err := json.Unmarshal(n.Type, &single); err == nil {
		return []string{single}, nil
	}
	var many []string
	if err := json.Unmarshal(n.Type, &many); err == nil {
		return many, nil
	}
	return nil, fmt.Errorf("unsupported \"type\" shape: %s", n.Type)
}

func (n node) requiredSet() map[string]bool {
	req := make(map[string]bool, len(n.Required))
	for _, name := range n.Required {
		req[name] = true
	}
	return req
}

// compiledSchema bundles the validator with the FieldDefs derived from the
// same document.
type compiledSchema struct {
	validator *jsonschemalib.Schema
	fieldDefs value.FieldDefs
	dataType  value.DataTypeDef
}

func compile(schemaName string, schemaBytes []byte) (*compiledSchema, error) {
	compiler := jsonschemalib.NewCompiler()
	if err := compiler.AddResource(schemaName, bytes.NewReader(schemaBytes)); err != nil {
		return nil, mcaperr.SchemaParse(schemaName, err)
	}
	validator, err := compiler.Compile(schemaName)
	if err != nil {
		return nil, mcaperr.SchemaParse(schemaName, err)
	}

	var root node
	if err := json.Unmarshal(schemaBytes, &root); err != nil {
		return nil, mcaperr.SchemaParse(schemaName, err)
	}

	dt, err := nodeToDataType(root)
	if err != nil {
		return nil, mcaperr.SchemaInvalid(schemaName, err.Error())
	}
	if dt.Kind != value.KindStruct {
		return nil, mcaperr.SchemaInvalid(schemaName, "root schema must declare type \"object\"")
	}

	return &compiledSchema{validator: validator, fieldDefs: dt.Fields, dataType: dt}, nil
}

func nodeToDataType(n node) (value.DataTypeDef, error) {
	types, err := n.typeNames()
	if err != nil {
		return value.DataTypeDef{}, err
	}
	if len(types) == 0 {
		if len(n.Properties) > 0 {
			types = []string{"object"}
		} else {
			return value.DataTypeDef{}, fmt.Errorf("schema node carries no \"type\" and no \"properties\"")
		}
	}

	switch types[0] {
	case "object":
		required := n.requiredSet()
		fields := make(value.FieldDefs, 0, len(n.Properties))
		for name, child := range n.Properties {
			childType, err := nodeToDataType(child)
			if err != nil {
				return value.DataTypeDef{}, fmt.Errorf("property %q: %w", name, err)
			}
			fields = append(fields, value.FieldDef{
				Name: name,
				Elem: value.ElementDef{Type: childType, Nullable: !required[name]},
			})
		}
		return value.StructType(sortFieldDefs(fields)), nil
	case "array":
		if n.Items == nil {
			return value.DataTypeDef{}, fmt.Errorf("array schema node missing \"items\"")
		}
		elemType, err := nodeToDataType(*n.Items)
		if err != nil {
			return value.DataTypeDef{}, fmt.Errorf("items: %w", err)
		}
		return value.ListType(value.ElementDef{Type: elemType, Nullable: false}), nil
	case "string":
		return value.Primitive(value.KindString), nil
	case "integer":
		return value.Primitive(value.KindI64), nil
	case "number":
		return value.Primitive(value.KindF64), nil
	case "boolean":
		return value.Primitive(value.KindBool), nil
	default:
		return value.DataTypeDef{}, fmt.Errorf("unsupported JSON Schema type %q", types[0])
	}
}

// sortFieldDefs orders properties by name so the derived field order is
// deterministic (object key order from encoding/json's map decoding is
// randomized); it does not keep the order properties appear in the schema.
func sortFieldDefs(fields value.FieldDefs) value.FieldDefs {
	for i := 1; i < len(fields); i++ {
		for j := i; j > 0 && fields[j-1].Name > fields[j].Name; j-- {
			fields[j-1], fields[j] = fields[j], fields[j-1]
		}
	}
	return fields
}

func decodeJSONToValue(schemaName string, raw interface{}, dt value.DataTypeDef, nullable bool) (value.Value, error) {
	if raw == nil {
		if !nullable {
			return value.Value{}, mcaperr.ValueType(dt.Kind.String(), "Null")
		}
		return value.Null, nil
	}

	switch dt.Kind {
	case value.KindStruct:
		obj, ok := raw.(map[string]interface{})
		if !ok {
			return value.Value{}, mcaperr.ValueType("Struct", fmt.Sprintf("%T", raw))
		}
		children := make([]value.Value, len(dt.Fields))
		for i, fd := range dt.Fields {
			child, err := decodeJSONToValue(schemaName, obj[fd.Name], fd.Elem.Type, fd.Elem.Nullable)
			if err != nil {
				return value.Value{}, err
			}
			children[i] = child
		}
		return value.NewStruct(children), nil
	case value.KindList:
		arr, ok := raw.([]interface{})
		if !ok {
			return value.Value{}, mcaperr.ValueType("List", fmt.Sprintf("%T", raw))
		}
		items := make([]value.Value, len(arr))
		for i, item := range arr {
			v, err := decodeJSONToValue(schemaName, item, dt.Elem.Type, dt.Elem.Nullable)
			if err != nil {
				return value.Value{}, err
			}
			items[i] = v
		}
		return value.NewList(items), nil
	case value.KindString:
		s, ok := raw.(string)
		if !ok {
			return value.Value{}, mcaperr.ValueType("String", fmt.Sprintf("%T", raw))
		}
		return value.NewString(s), nil
	case value.KindBool:
		b, ok := raw.(bool)
		if !ok {
			return value.Value{}, mcaperr.ValueType("Bool", fmt.Sprintf("%T", raw))
		}
		return value.NewBool(b), nil
	case value.KindI64:
		f, ok := raw.(float64)
		if !ok {
			return value.Value{}, mcaperr.ValueType("I64", fmt.Sprintf("%T", raw))
		}
		return value.NewI64(int64(f)), nil
	case value.KindF64:
		f, ok := raw.(float64)
		if !ok {
			return value.Value{}, mcaperr.ValueType("F64", fmt.Sprintf("%T", raw))
		}
		return value.NewF64(f), nil
	default:
		return value.Value{}, fmt.Errorf("jsonschema: unsupported DataTypeDef kind %s", dt.Kind)
	}
}
