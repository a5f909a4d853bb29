package utils

import "github.com/microcosm-cc/bluemonday"

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeText strips all HTML from user or provider supplied text, leaving
// plain text only. Activity names and profile fields come from an external
// API and are never trusted as markup.
func SanitizeText(s string) string {
	return strictPolicy.Sanitize(s)
}
