package works

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

const (
	titleLimit   = 25
	excerptLimit = 30
	ellipsis     = "..."
)

var plainText = bluemonday.StrictPolicy()

// PlainText strips markup from rich text and decodes entities.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(plainText.Sanitize(s)))
}

// DisplayTitle is the card title: plain text cut at 25 characters.
func DisplayTitle(title string) string {
	return truncate(PlainText(title), titleLimit)
}

// Excerpt is the card excerpt: plain text cut at 30 characters.
func Excerpt(excerpt string) string {
	return truncate(PlainText(excerpt), excerptLimit)
}

// FormatSkill joins the non-empty skill values with ", ".
func FormatSkill(values []string) string {
	kept := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	return strings.Join(kept, ", ")
}

// CategoryName returns the first category name or "".
func CategoryName(item Item) string {
	c, ok := item.Category()
	if !ok {
		return ""
	}
	return c.Name
}

func truncate(s string, limit int) string {
	s = norm.NFC.String(s)
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + ellipsis
}
