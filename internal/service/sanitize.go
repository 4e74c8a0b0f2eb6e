package service

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	plainPolicy = bluemonday.StrictPolicy()
	richPolicy  = bluemonday.UGCPolicy()
)

// plainText strips every tag from s. Entities are decoded again because the
// result is stored as text, not HTML.
func plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(plainPolicy.Sanitize(s)))
}

// richText keeps the formatting tags the admin editor produces and drops scripts, handlers and the like
func richText(s string) string {
	return strings.TrimSpace(richPolicy.Sanitize(s))
}

func plainPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := plainText(*s)
	return &v
}
