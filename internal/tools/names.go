package tools

import (
	"strings"
	"unicode"
)

// nameOverrides pins the canonical spelling for names the mechanical
// conversion would split wrong, mostly acronym and digit compounds.
var nameOverrides = map[string]string{
	"oauthread":   "oauth_read",
	"oauth_read":  "oauth_read",
	"oauthwrite":  "oauth_write",
	"oauth_write": "oauth_write",
	"m365read":    "m365_read",
	"m365_read":   "m365_read",
	"m365write":   "m365_write",
	"m365_write":  "m365_write",
	"webfetch":    "web_fetch",
	"websearch":   "web_search",
}

// Canonicalize converts any tool name spelling a backend may produce into the
// canonical lower snake_case form used for dispatch. Display surfaces keep
// the original spelling; only routing uses the canonical form.
func Canonicalize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	// Unify separators first so "Web-Fetch" and "web fetch" normalize alike.
	var b strings.Builder
	runes := []rune(strings.NewReplacer("-", "_", " ", "_", ".", "_").Replace(name))
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]))
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			prevUpper := i > 0 && unicode.IsUpper(runes[i-1])
			if prevLower || (prevUpper && nextLower) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}

	// Collapse runs of underscores and trim the edges.
	parts := strings.FieldsFunc(b.String(), func(r rune) bool { return r == '_' })
	canonical := strings.Join(parts, "_")

	if override, ok := nameOverrides[strings.Join(parts, "")]; ok {
		return override
	}
	if override, ok := nameOverrides[canonical]; ok {
		return override
	}
	return canonical
}

// IsCanonical reports whether a name is already in canonical form.
func IsCanonical(name string) bool {
	return name != "" && Canonicalize(name) == name
}
