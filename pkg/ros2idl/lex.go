// Package ros2idl decodes MCAP channels whose schema_encoding is "ros2idl":
// a UTF-8 text blob holding one or more `====`-separated IDL sections, each
// describing one ROS 2 message type. Resolved schemas feed the shared CDR
// decoder in pkg/ros2.
package ros2idl

import "strings"

// stripLineComments removes a trailing "// ..." comment, honoring string
// literals so a "//" inside a quoted string is not mistaken for one.
func stripLineComments(line string) string {
	inStr := false
	escaped := false
	runes := []rune(line)
	for i := 0; i+1 < len(runes); i++ {
		ch := runes[i]
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
		if ch == '/' && runes[i+1] == '/' {
			return string(runes[:i])
		}
	}
	return line
}

// isSeparatorLine reports whether line consists solely of '=' characters
// (ignoring surrounding whitespace) and therefore splits IDL sections.
func isSeparatorLine(line string) bool {
	t := strings.TrimSpace(line)
	if t == "" {
		return false
	}
	for _, c := range t {
		if c != '=' {
			return false
		}
	}
	return true
}

// splitQual splits name on sep, trims each segment, and drops empty
// segments.
func splitQual(name, sep string) []string {
	parts := strings.Split(name, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parenCountsOutsideStrings counts '(' and ')' occurring outside string
// literals, continuing the in-string/escaped state across calls so an
// annotation spanning multiple lines tracks balance correctly.
func parenCountsOutsideStrings(s string, inStr, escaped *bool) (open, close int) {
	for _, ch := range s {
		if *inStr {
			switch {
			case *escaped:
				*escaped = false
			case ch == '\\':
				*escaped = true
			case ch == '"':
				*inStr = false
			}
			continue
		}
		switch ch {
		case '"':
			*inStr = true
		case '(':
			open++
		case ')':
			close++
		}
	}
	return open, close
}
