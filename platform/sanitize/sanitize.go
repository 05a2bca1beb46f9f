// Package sanitize strips markup from user-supplied text before it is stored
// or rendered into notifications.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	htmlTag    = regexp.MustCompile(`<[^>]*>`)
	whitespace = regexp.MustCompile(`\s+`)

	entities = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&amp;", "&",
		"&quot;", "\"",
		"&#39;", "'",
	)
)

// StripHTML removes tags, decodes the common entities and strips again so
// encoded tags do not survive.
func StripHTML(s string) string {
	result := htmlTag.ReplaceAllString(s, "")
	result = entities.Replace(result)
	result = htmlTag.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text strips markup and collapses runs of whitespace to a single space.
func Text(s string) string {
	return whitespace.ReplaceAllString(StripHTML(s), " ")
}
