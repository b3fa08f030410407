package strings

import (
	"strings"
	"unicode"
)

// ToSnakeCase turns a Go field name into its JSON key: "ClientID" becomes
// "client_id" and "DueAt" becomes "due_at". An acronym stays one word until
// a lowercase letter follows it.
func ToSnakeCase(name string) string {
	runes := []rune(name)
	var out strings.Builder
	out.Grow(len(name) + 4)
	for i, r := range runes {
		if !unicode.IsUpper(r) {
			out.WriteRune(r)
			continue
		}
		if i > 0 {
			prevLower := unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])
			endsAcronym := unicode.IsUpper(runes[i-1]) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || endsAcronym {
				out.WriteByte('_')
			}
		}
		out.WriteRune(unicode.ToLower(r))
	}
	return out.String()
}
