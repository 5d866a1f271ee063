package naming

import (
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// Words splits an identifier into its words. Separators are any
// non-alphanumeric rune; case changes start a new word. Consecutive
// uppercase letters (acronyms) are kept together:
// "tableA" → [table A], "HTTPServer" → [HTTP Server], "fang_tasks" → [fang tasks].
func Words(s string) []string {
	runes := []rune(s)
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	for i, r := range runes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if unicode.IsUpper(r) && len(cur) > 0 {
			prev := runes[i-1]
			next := rune(0)
			if i+1 < len(runes) {
				next = runes[i+1]
			}
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && unicode.IsLower(next)) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}

// SnakeCase converts an identifier to snake_case.
// "CreatedAt" → "created_at", "UserID" → "user_id", "tableA" → "table_a".
func SnakeCase(s string) string {
	words := Words(s)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return strings.Join(words, "_")
}

// PascalCase converts an identifier to PascalCase.
// "fang_tasks" → "FangTasks", "tableA" → "TableA", "TODOS" → "Todos".
func PascalCase(s string) string {
	var b strings.Builder
	for _, w := range Words(s) {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return b.String()
}

// ModuleName returns the on-disk module name of a table. It is used both
// as the directory / file name and as the name in module declarations.
func ModuleName(table string) string {
	return SnakeCase(table)
}

// StructName returns the model struct name for a table.
// With singular set the last word is singularized: "user_roles" → "UserRole".
func StructName(table string, singular bool) string {
	name := PascalCase(table)
	if singular {
		name = inflection.Singular(name)
	}
	return name
}
