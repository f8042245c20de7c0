package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var plainText = bluemonday.StrictPolicy()

// SanitizeName strips markup from user supplied labels. The text itself is kept as typed;
// the policy entity-escapes it, so the result is unescaped again.
func SanitizeName(input string) string {
	return strings.TrimSpace(html.UnescapeString(plainText.Sanitize(strings.TrimSpace(input))))
}
