package ros2idl

import (
	"fmt"
	"strings"

	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/mcaperr"
	"github.com/ClusterCockpit/cc-mcap2arrow/pkg/ros2"
)

// ResolveSchema parses a multi-section ros2idl schema blob and produces a
// fully resolved ResolvedSchema ready for CDR decoding.
//
// Steps: split schemaText into SchemaBundle sections, parse each section
// with parseIdlSection and merge the results, pick the root type named by
// schemaName, then resolve every type reference against the merged set.
func ResolveSchema(schemaName, schemaText string) (*ros2.ResolvedSchema, error) {
	bundle, err := ParseSchemaBundle(schemaName, schemaText)
	if err != nil {
		return nil, mcaperr.SchemaParse(schemaName, err)
	}

	merged := ros2.NewParsedSection()
	for _, section := range bundle.Sections {
		parsed, err := parseIdlSection(section.Body)
		if err != nil {
			return nil, mcaperr.SchemaParse(schemaName, fmt.Errorf("while parsing IDL section %q: %w", strings.Join(section.IdlPath, "/"), err))
		}
		for k, v := range parsed.Structs {
			merged.Structs[k] = v
		}
		for k, v := range parsed.Enums {
			merged.Enums[k] = v
		}
	}

	rootPath := bundle.MainType(schemaName)
	if len(rootPath) == 0 {
		return nil, mcaperr.SchemaInvalid(schemaName, "unable to determine root type")
	}

	return ros2.ResolveParsedSection(merged, ros2.QualifiedName(rootPath))
}
