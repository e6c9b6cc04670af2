// Package normalize cleans user-entered identity fields before they are
// validated or stored.
package normalize

import (
	"strings"
	"unicode"
)

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims and collapses internal whitespace runs to single spaces.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Phone keeps a leading '+' and the digits; everything else is dropped.
// "+1 (555) 010-2030" becomes "+15550102030".
func Phone(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for i, r := range s {
		if r == '+' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Token lowercases and trims enum-like values (roles, statuses, doc types).
func Token(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
