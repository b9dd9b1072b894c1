package xliff

import "strings"

var (
	escaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	// Single pass: "&amp;lt;" decodes to "&lt;", not "<".
	unescaper = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&amp;", "&",
	)
)

// Escape replaces the XML-special characters &, <, > and " with their
// entity references so the result can be embedded in a text node or a
// double-quoted attribute.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Unescape is the inverse of Escape.
func Unescape(s string) string {
	return unescaper.Replace(s)
}
