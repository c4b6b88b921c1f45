// Package gen emits Go wrapper source for a filtered schema.
package gen

import (
	"strconv"
	"strings"
	"unicode"
)

// reservedAliases maps schema class names that collide with names the
// generator's own output infrastructure declares. The table is fixed and
// generator-internal, never schema-driven. File names always derive from
// the original schema name so file identity stays a pure function of it.
var reservedAliases = map[string]string{
	// The generated package declares its own TypeRegistry facade.
	"TypeRegistry": "HostTypeRegistry",
}

// classIdent returns the Go identifier a class is emitted under.
func classIdent(name string) string {
	if alias, ok := reservedAliases[name]; ok {
		return alias
	}
	return toPascal(name)
}

// enumIdent returns the Go identifier for an enum reference, which is
// either "Name" (global) or "Class.Name" (class-scoped).
func enumIdent(ref string) string {
	if class, name, ok := strings.Cut(ref, "."); ok {
		return classIdent(class) + toPascal(name)
	}
	return toPascal(ref)
}

// enumValueIdent converts a SCREAMING_SNAKE enum value name to the
// PascalCase suffix of its generated constant.
func enumValueIdent(name string) string {
	return toPascal(strings.ToLower(name))
}

// goKeywords are parameter names that need renaming.
var goKeywords = map[string]bool{
	"break": true, "case": true, "chan": true, "const": true, "continue": true,
	"default": true, "defer": true, "else": true, "fallthrough": true,
	"for": true, "func": true, "go": true, "goto": true, "if": true,
	"import": true, "interface": true, "map": true, "package": true,
	"range": true, "return": true, "select": true, "struct": true,
	"switch": true, "type": true, "var": true,
}

// paramIdent converts a schema parameter name to a safe Go identifier.
func paramIdent(name string, index int) string {
	if name == "" {
		return "arg" + strconv.Itoa(index)
	}
	id := toCamel(name)
	if goKeywords[id] {
		return id + "_"
	}
	return id
}

// toPascal converts snake_case or lowerCamel to PascalCase.
func toPascal(s string) string {
	if len(s) == 0 {
		return s
	}
	var b strings.Builder
	nextUpper := true
	for _, r := range s {
		if r == '_' || r == '-' || r == '.' {
			nextUpper = true
			continue
		}
		if nextUpper {
			b.WriteRune(unicode.ToUpper(r))
			nextUpper = false
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// toCamel converts snake_case to lowerCamelCase.
func toCamel(s string) string {
	p := toPascal(s)
	if p == "" {
		return p
	}
	return strings.ToLower(p[:1]) + p[1:]
}

// toSnake converts PascalCase or camelCase to snake_case for file names.
// Runs of upper-case letters stay together: "HTTPServer" → "http_server".
func toSnake(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if i > 0 && (prevLower || (nextLower && unicode.IsUpper(runes[i-1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else if r == '-' || r == '.' || r == ' ' {
			b.WriteByte('_')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
