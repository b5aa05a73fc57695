package ros2idl

import (
	"fmt"
	"strings"
)

// IdlSection is one `IDL: <path>` block extracted from a schema bundle.
type IdlSection struct {
	IdlPath []string
	Body    string
}

// SchemaBundle is the set of sections found in one ros2idl schema blob. MCAP
// emits one bundle per channel; a bundle typically carries the root message
// type plus every nested message/const type it transitively depends on.
type SchemaBundle struct {
	Sections []IdlSection
}

// ParseSchemaBundle splits schemaText on `====` separator lines and parses
// each resulting block's `IDL: pkg/msg/Type` header.
func ParseSchemaBundle(schemaName, schemaText string) (*SchemaBundle, error) {
	var sections []IdlSection
	var buf []string

	flush := func() error {
		if !hasMeaningfulLines(buf) {
			return nil
		}
		sec, err := parseSection(buf)
		if err != nil {
			return err
		}
		sections = append(sections, sec)
		return nil
	}

	for _, line := range strings.Split(schemaText, "\n") {
		if isSeparatorLine(line) {
			if err := flush(); err != nil {
				return nil, err
			}
			buf = nil
			continue
		}
		buf = append(buf, line)
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if len(sections) == 0 {
		return nil, fmt.Errorf("no IDL sections found for schema %q", schemaName)
	}
	return &SchemaBundle{Sections: sections}, nil
}

// MainType returns the idl_path of the section matching schemaName, falling
// back to the first section when no exact match exists.
func (b *SchemaBundle) MainType(schemaName string) []string {
	key := splitQual(schemaName, "/")
	if len(key) > 0 {
		for _, s := range b.Sections {
			if equalStrings(s.IdlPath, key) {
				return s.IdlPath
			}
		}
	}
	if len(b.Sections) > 0 {
		return b.Sections[0].IdlPath
	}
	return nil
}

func hasMeaningfulLines(lines []string) bool {
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			return true
		}
	}
	return false
}

func parseSection(lines []string) (IdlSection, error) {
	var meaningful []string
	for _, l := range lines {
		t := strings.TrimSpace(l)
		if t != "" {
			meaningful = append(meaningful, t)
		}
	}
	if len(meaningful) == 0 {
		return IdlSection{}, fmt.Errorf("empty IDL section")
	}
	header := meaningful[0]
	path, ok := cutPrefix(header, "IDL:")
	if !ok {
		return IdlSection{}, fmt.Errorf("missing `IDL:` header: %s", header)
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return IdlSection{}, fmt.Errorf("empty IDL path in section header")
	}
	body := strings.Join(meaningful[1:], "\n")
	return IdlSection{IdlPath: splitQual(path, "/"), Body: body}, nil
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
