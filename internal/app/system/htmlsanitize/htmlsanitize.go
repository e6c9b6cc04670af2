// Package htmlsanitize cleans admin-authored HTML and user free text.
package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// ugc allows the formatting admins use in legal pages (links, lists,
	// headings, tables) and strips scripts, handlers, and javascript: URLs.
	ugc = bluemonday.UGCPolicy()

	// strict removes every tag, for comments and names.
	strict = bluemonday.StrictPolicy()
)

// Sanitize returns html with unsafe elements and attributes removed.
func Sanitize(html string) string {
	if html == "" {
		return ""
	}
	return ugc.Sanitize(html)
}

// StripTags removes all markup from s and trims the result.
// Entities produced by the policy are decoded back for plain-text storage.
func StripTags(s string) string {
	if s == "" {
		return ""
	}
	out := strict.Sanitize(s)
	out = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&#34;", `"`, "&#39;", "'").Replace(out)
	return strings.TrimSpace(out)
}
