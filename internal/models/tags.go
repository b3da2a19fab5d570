package models

import (
	"strings"
	"unicode"
)

// Canonical spellings of the quick-filter tags. Stored data has been seen
// with "highEquity", "high equity", "High Equity" and "high-equity"; all of
// them fold to TagHighEquity.
const (
	TagAbsentee   = "absentee"
	TagHighEquity = "highEquity"
	TagVacant     = "vacant"
)

var canonicalTags = map[string]string{
	"absentee":      TagAbsentee,
	"absenteeowner": TagAbsentee,
	"highequity":    TagHighEquity,
	"vacant":        TagVacant,
}

func foldTag(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// CanonicalTag maps a known tag in any spelling to its canonical form.
// Unknown tags are returned trimmed and otherwise unchanged.
func CanonicalTag(tag string) string {
	if c, ok := canonicalTags[foldTag(tag)]; ok {
		return c
	}
	return strings.TrimSpace(tag)
}

// CanonicalTags canonicalises tags, dropping blanks and duplicates while
// keeping first-seen order.
func CanonicalTags(tags []string) []string {
	if len(tags) == 0 {
		return tags
	}

	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		c := CanonicalTag(t)
		if c == "" {
			continue
		}
		k := strings.ToLower(c)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, c)
	}
	return out
}
