package query

import (
	"strings"
	"unicode"
)

// DefaultSource derives a physical table name from a schema name: the name
// is converted to snake_case and the last word pluralized, so "BlogPost"
// maps to "blog_posts" and "Category" to "categories".
func DefaultSource(name string) string {
	return pluralize(snakeCase(name))
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// irregularPlurals covers the English nouns that show up in table names and
// don't follow the suffix rules.
var irregularPlurals = map[string]string{
	"child":  "children",
	"person": "people",
	"man":    "men",
	"woman":  "women",
	"index":  "indices",
	"matrix": "matrices",
	"vertex": "vertices",
	"quiz":   "quizzes",
}

func pluralize(s string) string {
	if s == "" {
		return s
	}
	// Only the last word of a snake_case name pluralizes.
	head := ""
	word := s
	if i := strings.LastIndexByte(s, '_'); i >= 0 {
		head, word = s[:i+1], s[i+1:]
	}
	if plural, ok := irregularPlurals[word]; ok {
		return head + plural
	}
	switch {
	case strings.HasSuffix(word, "y") && len(word) > 1 && !isVowel(word[len(word)-2]):
		return head + word[:len(word)-1] + "ies"
	case strings.HasSuffix(word, "s"), strings.HasSuffix(word, "x"),
		strings.HasSuffix(word, "ch"), strings.HasSuffix(word, "sh"):
		return head + word + "es"
	default:
		return head + word + "s"
	}
}

func isVowel(c byte) bool {
	return c == 'a' || c == 'e' || c == 'i' || c == 'o' || c == 'u'
}
