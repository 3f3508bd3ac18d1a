// Package encoding provides the XML escaping used when the document tree
// is rendered back to markup. Character data gets &amp; &lt; &gt;;
// attribute values additionally get &quot;. Untouched text must survive a
// load/save cycle byte-for-byte, so no other characters are rewritten.
package encoding

import "strings"

// EscapeXMLText escapes character data for element content. Quotes,
// apostrophes, and whitespace pass through; they are only special
// inside attribute values.
func EscapeXMLText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// EscapeXMLAttr escapes a value for a double-quoted attribute.
func EscapeXMLAttr(s string) string {
	s = EscapeXMLText(s)
	return strings.ReplaceAll(s, "\"", "&quot;")
}
